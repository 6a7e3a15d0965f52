// Package sitemap builds the sitemap.xml document served at the site root.
package sitemap

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/immoshift/immoshift-web/internal/viewmodel"
)

const xmlns = "http://www.sitemaps.org/schemas/sitemap/0.9"

// URL is one <url> entry.
type URL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

// URLSet is the sitemap root element.
type URLSet struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr"`
	URLs    []URL    `xml:"url"`
}

type section struct {
	prefix     string
	changeFreq string
	priority   float64
}

var (
	homeSection     = section{"/", "monthly", 0.5}
	articleSection  = section{"/articles/", "weekly", 0.8}
	trainingSection = section{"/training/", "monthly", 0.9}
	ebookSection    = section{"/ebooks/", "monthly", 0.7}
)

// Build lists the home page followed by every article, training and e-book in
// the aggregate. Locations are absolute against siteURL.
func Build(siteURL string, home viewmodel.Home) URLSet {
	base := strings.TrimRight(siteURL, "/")
	set := URLSet{Xmlns: xmlns}

	add := func(s section, slug, lastmod string) {
		loc := base + s.prefix
		if slug != "" {
			loc += url.PathEscape(slug)
		}
		set.URLs = append(set.URLs, URL{
			Loc:        loc,
			LastMod:    lastModDate(lastmod),
			ChangeFreq: s.changeFreq,
			Priority:   fmt.Sprintf("%.1f", s.priority),
		})
	}

	add(homeSection, "", "")
	for _, a := range home.Articles {
		add(articleSection, a.Slug, a.PublishedAt)
	}
	for _, t := range home.Trainings {
		add(trainingSection, t.Slug, "")
	}
	for _, e := range home.Ebooks {
		add(ebookSection, e.Slug, "")
	}
	return set
}

// Marshal encodes set with the XML declaration.
func Marshal(set URLSet) ([]byte, error) {
	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal sitemap: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// lastModDate reduces an RFC 3339 timestamp to its date. Unparseable values
// are dropped.
func lastModDate(ts string) string {
	if ts == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ""
	}
	return t.UTC().Format(time.DateOnly)
}
