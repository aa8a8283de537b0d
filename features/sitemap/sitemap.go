package sitemap

import (
	"time"

	"devpress/publisher/internal/relevance"
)

// URL is one crawlable location in the sitemap.
type URL struct {
	Loc        string
	LastMod    time.Time
	ChangeFreq relevance.Frequency
	Priority   float64
	Image      *Image
}

type Image struct {
	Loc     string
	Title   string
	Caption string
}

// Paths of the fixed pages. Slug-keyed pages are built from these prefixes.
const (
	PathHome     = "/"
	PathSearch   = "/search"
	PathCategory = "/category/"
	PathSeries   = "/series/"
	PathTag      = "/tag/"
	PathArticle  = "/articles/"
)

type staticPage struct {
	path     string
	priority float64
}

var staticPages = []staticPage{
	{path: "/about", priority: 0.8},
	{path: "/contact", priority: 0.6},
}

const (
	homePriority     = 1.0
	searchPriority   = 0.6
	categoryPriority = 0.9
	seriesPriority   = 0.9
	tagPriority      = 0.7

	// staticPageAge is the fixed age given to informational pages.
	staticPageAge = 7 * 24 * time.Hour
	// emptyGroupingAge stands in for groupings with no known publish time.
	emptyGroupingAge = 30 * 24 * time.Hour

	imageCaptionLimit = 160
)

// MinimumURLs is the number of entries emitted for an empty content store.
var MinimumURLs = 2 + len(staticPages)
