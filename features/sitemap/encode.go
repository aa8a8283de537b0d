package sitemap

import (
	"encoding/xml"
	"io"
	"strconv"
	"time"
)

const (
	sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"
	imageNS   = "http://www.google.com/schemas/sitemap-image/1.1"
)

type xmlURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	XMLNS   string   `xml:"xmlns,attr"`
	ImageNS string   `xml:"xmlns:image,attr"`
	URLs    []xmlURL `xml:"url"`
}

type xmlURL struct {
	Loc        string    `xml:"loc"`
	LastMod    string    `xml:"lastmod,omitempty"`
	ChangeFreq string    `xml:"changefreq,omitempty"`
	Priority   string    `xml:"priority"`
	Image      *xmlImage `xml:"image:image,omitempty"`
}

type xmlImage struct {
	Loc     string `xml:"image:loc"`
	Title   string `xml:"image:title,omitempty"`
	Caption string `xml:"image:caption,omitempty"`
}

// Encode writes urls as a sitemap document with the image extension.
func Encode(w io.Writer, urls []URL) error {
	set := xmlURLSet{
		XMLNS:   sitemapNS,
		ImageNS: imageNS,
		URLs:    make([]xmlURL, 0, len(urls)),
	}
	for _, u := range urls {
		x := xmlURL{
			Loc:        u.Loc,
			ChangeFreq: string(u.ChangeFreq),
			Priority:   FormatPriority(u.Priority),
		}
		if !u.LastMod.IsZero() {
			x.LastMod = u.LastMod.UTC().Format(time.RFC3339)
		}
		if u.Image != nil {
			x.Image = &xmlImage{Loc: u.Image.Loc, Title: u.Image.Title, Caption: u.Image.Caption}
		}
		set.URLs = append(set.URLs, x)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func FormatPriority(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}
