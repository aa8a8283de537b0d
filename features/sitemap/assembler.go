package sitemap

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"devpress/publisher/internal/content"
	"devpress/publisher/internal/pipeline"
	"devpress/publisher/internal/relevance"
)

// Assembler turns the public content of the store into sitemap entries.
type Assembler struct {
	repo     Repository
	siteURL  string
	mediaURL func(path string) string
}

func NewAssembler(repo Repository, siteURL string, mediaURL func(string) string) *Assembler {
	if mediaURL == nil {
		mediaURL = func(p string) string { return p }
	}
	return &Assembler{
		repo:     repo,
		siteURL:  strings.TrimRight(siteURL, "/"),
		mediaURL: mediaURL,
	}
}

// Assemble reads the store and returns the entries in sitemap order.
// Store failures are wrapped with pipeline.ErrStoreRead.
func (a *Assembler) Assemble(ctx context.Context, now time.Time) ([]URL, error) {
	categories, err := a.repo.ListCategories(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("%w: categories: %w", pipeline.ErrStoreRead, err)
	}
	series, err := a.repo.ListSeries(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("%w: series: %w", pipeline.ErrStoreRead, err)
	}
	tags, err := a.repo.ListTags(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("%w: tags: %w", pipeline.ErrStoreRead, err)
	}
	articles, err := a.repo.ListArticles(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("%w: articles: %w", pipeline.ErrStoreRead, err)
	}

	b := newBuilder(len(staticPages) + len(categories) + len(series) + len(tags) + len(articles) + 2)

	b.add(URL{Loc: a.loc(PathHome), LastMod: now, ChangeFreq: relevance.Daily, Priority: homePriority})
	for _, p := range staticPages {
		b.add(URL{Loc: a.loc(p.path), LastMod: now.Add(-staticPageAge), ChangeFreq: relevance.Weekly, Priority: p.priority})
	}
	for _, g := range categories {
		b.add(a.grouping(PathCategory, g, categoryPriority, now))
	}
	for _, g := range series {
		b.add(a.grouping(PathSeries, g, seriesPriority, now))
	}
	for _, g := range tags {
		b.add(a.grouping(PathTag, g, tagPriority, now))
	}
	for i := range articles {
		art := &articles[i]
		if !art.IsPublic(now) {
			continue
		}
		b.add(a.article(art, now))
	}
	b.add(URL{Loc: a.loc(PathSearch), LastMod: now, ChangeFreq: relevance.Daily, Priority: searchPriority})

	if b.dropped > 0 {
		slog.WarnContext(ctx, "dropped duplicate sitemap locations", "count", b.dropped)
	}
	return b.urls, nil
}

func (a *Assembler) loc(path string) string {
	return a.siteURL + path
}

func (a *Assembler) slugLoc(prefix, slug string) string {
	return a.siteURL + prefix + url.PathEscape(slug)
}

func (a *Assembler) grouping(prefix string, g content.Grouping, priority float64, now time.Time) URL {
	lastMod := g.LatestPublishedAt
	if lastMod.IsZero() {
		lastMod = now.Add(-emptyGroupingAge)
	}
	return URL{
		Loc:        a.slugLoc(prefix, g.Slug),
		LastMod:    lastMod,
		ChangeFreq: relevance.Weekly,
		Priority:   priority,
	}
}

func (a *Assembler) article(art *content.Article, now time.Time) URL {
	lastMod := art.LastModified()
	u := URL{
		Loc:        a.slugLoc(PathArticle, art.Slug),
		LastMod:    lastMod,
		ChangeFreq: relevance.ChangeFrequency(relevance.AgeDays(lastMod, now)),
		Priority: relevance.Score(relevance.Signals{
			AgeDays:          relevance.AgeDays(art.PublishedAt, now),
			HasFeaturedImage: art.Image() != nil,
			InSeries:         art.InSeries(),
			Views:            art.Views,
		}),
	}
	if img := art.Image(); img != nil {
		u.Image = &Image{
			Loc:     a.mediaURL(img.Path),
			Title:   art.Title,
			Caption: imageCaption(img, art),
		}
	}
	return u
}

func imageCaption(img *content.Media, art *content.Article) string {
	caption := img.Caption
	if caption == "" {
		caption = img.Alt
	}
	if caption == "" {
		caption = art.Excerpt
	}
	caption = strings.Join(strings.Fields(caption), " ")
	r := []rune(caption)
	if len(r) > imageCaptionLimit {
		caption = strings.TrimSpace(string(r[:imageCaptionLimit]))
	}
	return caption
}

type builder struct {
	urls    []URL
	seen    map[string]struct{}
	dropped int
}

func newBuilder(capacity int) *builder {
	return &builder{
		urls: make([]URL, 0, capacity),
		seen: make(map[string]struct{}, capacity),
	}
}

// add keeps the first entry for a location.
func (b *builder) add(u URL) {
	if _, ok := b.seen[u.Loc]; ok {
		b.dropped++
		return
	}
	b.seen[u.Loc] = struct{}{}
	b.urls = append(b.urls, u)
}
