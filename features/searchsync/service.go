package searchsync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"devpress/publisher/internal/content"
	"devpress/publisher/internal/pipeline"
)

// Index is a search backend that upserts records by ObjectID.
type Index interface {
	Name() string
	SaveObjects(ctx context.Context, records []Record) error
}

type Service struct {
	repo     Repository
	index    Index
	siteURL  string
	mediaURL func(string) string
}

func NewService(repo Repository, index Index, siteURL string, mediaURL func(string) string) *Service {
	return &Service{repo: repo, index: index, siteURL: siteURL, mediaURL: mediaURL}
}

func (s *Service) Name() string {
	return pipeline.Search
}

// Run pushes every public article to the index as one batch. An empty store
// leaves the index untouched.
func (s *Service) Run(ctx context.Context, now time.Time) (pipeline.Result, error) {
	articles, err := s.repo.ListPublished(ctx, now)
	if err != nil {
		return pipeline.Result{}, fmt.Errorf("%w: articles: %w", pipeline.ErrStoreRead, err)
	}

	public := articles[:0]
	for _, a := range articles {
		if a.IsPublic(now) {
			public = append(public, a)
		}
	}
	if len(public) == 0 {
		slog.InfoContext(ctx, "no published articles to index", "index", s.index.Name())
		return pipeline.Result{}, nil
	}

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return pipeline.Result{}, fmt.Errorf("%w: categories: %w", pipeline.ErrStoreRead, err)
	}

	builder := NewRecordBuilder(s.siteURL, s.mediaURL, content.NewCategoryTree(categories))
	records := make([]Record, 0, len(public))
	for i := range public {
		records = append(records, builder.Build(&public[i]))
	}

	if err := s.index.SaveObjects(ctx, records); err != nil {
		return pipeline.Result{}, fmt.Errorf("%w: %s: %w", pipeline.ErrSinkWrite, s.index.Name(), err)
	}

	slog.InfoContext(ctx, "search index updated", "index", s.index.Name(), "records", len(records))
	return pipeline.Result{Count: len(records)}, nil
}
