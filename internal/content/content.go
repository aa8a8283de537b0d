// Package content holds the read-only view of the CMS content store that the
// publishing pipelines consume.
package content

import "time"

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusScheduled Status = "scheduled"
)

type Article struct {
	ID            int64
	Title         string
	Slug          string
	Body          string
	Excerpt       string
	Status        Status
	PublishedAt   time.Time
	UpdatedAt     time.Time
	AuthorName    string
	SeriesID      int64
	SeriesOrder   int
	CategoryIDs   []int64
	TagNames      []string
	FeaturedImage *Media
	Views         int
}

// IsPublic reports whether the article may appear in the sitemap or the
// search index at the given instant.
func (a *Article) IsPublic(now time.Time) bool {
	return a.Status == StatusPublished && !a.PublishedAt.IsZero() && !a.PublishedAt.After(now)
}

func (a *Article) InSeries() bool {
	return a.SeriesID != 0
}

// LastModified falls back to the publish time when the store has no update
// timestamp for the row.
func (a *Article) LastModified() time.Time {
	if a.UpdatedAt.IsZero() {
		return a.PublishedAt
	}
	return a.UpdatedAt
}

// Image returns the featured image, or nil when the featured media is not an
// image.
func (a *Article) Image() *Media {
	if a.FeaturedImage == nil || !a.FeaturedImage.IsImage() {
		return nil
	}
	return a.FeaturedImage
}

// HasFeaturedImage is implemented by every entity that can own a featured image.
type HasFeaturedImage interface {
	Image() *Media
}

type GroupingKind string

const (
	KindCategory GroupingKind = "category"
	KindSeries   GroupingKind = "series"
	KindTag      GroupingKind = "tag"
)

// Grouping is a category, series or tag together with the publish time of its
// newest public article.
type Grouping struct {
	ID                int64
	Kind              GroupingKind
	Name              string
	Slug              string
	ParentID          int64
	LatestPublishedAt time.Time
}
