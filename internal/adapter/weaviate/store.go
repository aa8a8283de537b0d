// Package weaviate stores search records as objects of the Article class.
package weaviate

import (
	"context"
	"fmt"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"

	"devpress/publisher/features/searchsync"
	"devpress/publisher/internal/vector"
)

const defaultBatchSize = 100

// objectNamespace seeds the name-based UUIDs derived from record ids.
var objectNamespace = uuid.MustParse("6f1c9a52-3a0e-4c1b-9a57-2e43d1d0b7a4")

// ObjectUUID maps a record id to the same Weaviate object id on every run.
func ObjectUUID(objectID string) strfmt.UUID {
	return strfmt.UUID(uuid.NewSHA1(objectNamespace, []byte(objectID)).String())
}

type Store struct {
	client    *weaviate.Client
	batchSize int
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client, batchSize: defaultBatchSize}
}

func (s *Store) Name() string {
	return "weaviate:" + vector.ArticleClass
}

// EnsureSchema creates or extends the Article class.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return vector.EnsureSchema(ctx, vector.NewSchemaAdapter(s.client))
}

// SaveObjects upserts records in batches. Objects are replaced by id, so
// repeating a run leaves the index unchanged.
func (s *Store) SaveObjects(ctx context.Context, records []searchsync.Record) error {
	for start := 0; start < len(records); start += s.batchSize {
		end := min(start+s.batchSize, len(records))

		objects := make([]*models.Object, 0, end-start)
		for _, r := range records[start:end] {
			objects = append(objects, toObject(r))
		}

		resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
		if err != nil {
			return fmt.Errorf("weaviate batch: %w", err)
		}
		for _, obj := range resp {
			if obj.Result == nil || obj.Result.Errors == nil {
				continue
			}
			for _, e := range obj.Result.Errors.Error {
				if e != nil {
					return fmt.Errorf("weaviate object %s: %s", obj.ID, e.Message)
				}
			}
		}
	}
	return nil
}

// Get returns the stored properties for a record id, or nil when absent.
func (s *Store) Get(ctx context.Context, objectID string) (map[string]interface{}, error) {
	objs, err := s.client.Data().ObjectsGetter().
		WithClassName(vector.ArticleClass).
		WithID(ObjectUUID(objectID).String()).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(objs) == 0 {
		return nil, nil
	}
	props, ok := objs[0].Properties.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected properties type %T", objs[0].Properties)
	}
	return props, nil
}

func toObject(r searchsync.Record) *models.Object {
	props := map[string]interface{}{
		"objectID":     r.ObjectID,
		"title":        r.Title,
		"excerpt":      r.Excerpt,
		"content":      r.Content,
		"slug":         r.Slug,
		"url":          r.URL,
		"category":     r.Category,
		"categoryPath": r.CategoryPath,
		"tags":         r.Tags,
		"author":       r.Author,
		"publishedAt":  r.PublishedAt,
		"status":       r.Status,
	}
	if r.FeaturedImage != "" {
		props["featuredImage"] = r.FeaturedImage
	}
	if r.SeriesOrder > 0 {
		props["seriesOrder"] = r.SeriesOrder
	}
	return &models.Object{
		Class:      vector.ArticleClass,
		ID:         ObjectUUID(r.ObjectID),
		Properties: props,
	}
}
