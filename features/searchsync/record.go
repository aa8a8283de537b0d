package searchsync

import (
	"html"
	"net/url"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"devpress/publisher/internal/content"
)

const (
	FallbackCategory = "Uncategorized"
	FallbackAuthor   = "Anonymous"
)

// Record is the denormalized document stored in the search index, keyed by
// ObjectID.
type Record struct {
	ObjectID      string   `json:"objectID"`
	Title         string   `json:"title"`
	Excerpt       string   `json:"excerpt"`
	Content       string   `json:"content"`
	Slug          string   `json:"slug"`
	URL           string   `json:"url"`
	Category      string   `json:"category"`
	CategoryPath  []string `json:"category_path"`
	Tags          []string `json:"tags"`
	Author        string   `json:"author"`
	PublishedAt   int64    `json:"published_at"`
	FeaturedImage string   `json:"featured_image,omitempty"`
	SeriesOrder   int      `json:"series_order,omitempty"`
	Status        string   `json:"status"`
}

var textPolicy = newTextPolicy()

func newTextPolicy() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}

// PlainText strips markup from an HTML body and collapses whitespace.
func PlainText(body string) string {
	text := html.UnescapeString(textPolicy.Sanitize(body))
	return strings.Join(strings.Fields(text), " ")
}

// RecordBuilder denormalizes articles into index records.
type RecordBuilder struct {
	siteURL  string
	mediaURL func(string) string
	tree     *content.CategoryTree
}

func NewRecordBuilder(siteURL string, mediaURL func(string) string, tree *content.CategoryTree) *RecordBuilder {
	if mediaURL == nil {
		mediaURL = func(p string) string { return p }
	}
	if tree == nil {
		tree = content.NewCategoryTree(nil)
	}
	return &RecordBuilder{
		siteURL:  strings.TrimRight(siteURL, "/"),
		mediaURL: mediaURL,
		tree:     tree,
	}
}

func (b *RecordBuilder) Build(a *content.Article) Record {
	r := Record{
		ObjectID:     strconv.FormatInt(a.ID, 10),
		Title:        a.Title,
		Excerpt:      a.Excerpt,
		Content:      PlainText(a.Body),
		Slug:         a.Slug,
		URL:          b.siteURL + "/articles/" + url.PathEscape(a.Slug),
		Category:     FallbackCategory,
		CategoryPath: []string{},
		Tags:         []string{},
		Author:       FallbackAuthor,
		PublishedAt:  a.PublishedAt.Unix(),
		Status:       string(a.Status),
	}

	if len(a.CategoryIDs) > 0 {
		primary := a.CategoryIDs[0]
		if name, ok := b.tree.Name(primary); ok {
			r.Category = name
			r.CategoryPath = b.tree.Path(primary)
		}
	}
	if len(a.TagNames) > 0 {
		r.Tags = append(r.Tags, a.TagNames...)
	}
	if name := strings.TrimSpace(a.AuthorName); name != "" {
		r.Author = name
	}
	if a.InSeries() {
		r.SeriesOrder = a.SeriesOrder
	}
	if img := a.Image(); img != nil && img.Path != "" {
		r.FeaturedImage = b.mediaURL(img.Path)
	}
	return r
}
