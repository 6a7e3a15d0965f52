// Package viewmodel holds the UI-ready records produced by normalization.
// Every media reference in these types is either empty or an absolute URL.
package viewmodel

import "encoding/json"

// Media is the sealed set of paragraph media variants. Only types in this
// package implement it.
type Media interface {
	media()
	// Kind returns the wire discriminator of the variant.
	Kind() string
}

// NoMedia marks a paragraph without media, or one whose declared media field
// was absent.
type NoMedia struct{}

// ImageMedia is a still image.
type ImageMedia struct {
	URL string
}

// VideoURLMedia is a third-party hosted video (YouTube, Vimeo, ...).
type VideoURLMedia struct {
	URL string
}

// VideoFileMedia is an uploaded video file with an optional poster frame.
type VideoFileMedia struct {
	URL    string
	Poster string
}

func (NoMedia) media() {}
func (ImageMedia) media() {}
func (VideoURLMedia) media() {}
func (VideoFileMedia) media() {}

func (NoMedia) Kind() string { return "none" }
func (ImageMedia) Kind() string { return "image" }
func (VideoURLMedia) Kind() string { return "video_url" }
func (VideoFileMedia) Kind() string { return "video_file" }

// Author is a normalized article author.
type Author struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
	Bio     string `json:"bio,omitempty"`
}

// Paragraph is a normalized content section.
type Paragraph struct {
	ID         int64    `json:"id"`
	Title      string   `json:"title,omitempty"`
	Content    string   `json:"content,omitempty"`
	Media      Media    `json:"-"`
	FileSizeMB *float64 `json:"file_size_mb,omitempty"`
	Position   int      `json:"position"`
}

type paragraphMedia struct {
	Type   string `json:"type"`
	URL    string `json:"url,omitempty"`
	Poster string `json:"poster,omitempty"`
}

// MarshalJSON flattens the media variant into a {type, url, poster} object.
func (p Paragraph) MarshalJSON() ([]byte, error) {
	type plain Paragraph
	m := paragraphMedia{Type: NoMedia{}.Kind()}
	switch v := p.Media.(type) {
	case ImageMedia:
		m = paragraphMedia{Type: v.Kind(), URL: v.URL}
	case VideoURLMedia:
		m = paragraphMedia{Type: v.Kind(), URL: v.URL}
	case VideoFileMedia:
		m = paragraphMedia{Type: v.Kind(), URL: v.URL, Poster: v.Poster}
	}
	return json.Marshal(struct {
		plain
		Media paragraphMedia `json:"media"`
	}{plain(p), m})
}

// Article is a normalized article. Image is empty when the API supplied none;
// placeholder substitution is left to the page.
type Article struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Slug        string      `json:"slug"`
	Excerpt     string      `json:"excerpt"`
	Content     string      `json:"content,omitempty"`
	Image       string      `json:"image"`
	Author      *Author     `json:"author,omitempty"`
	SourceURL   string      `json:"source_url,omitempty"`
	PublishedAt string      `json:"published_at"`
	UpdatedAt   string      `json:"updated_at"`
	Paragraphs  []Paragraph `json:"paragraphs"`
}

// ArticleSummary is a normalized article card.
type ArticleSummary struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Slug          string `json:"slug"`
	Excerpt       string `json:"excerpt"`
	Image         string `json:"image"`
	PublishedAt   string `json:"published_at"`
	AuthorName    string `json:"author_name,omitempty"`
	AuthorPicture string `json:"author_picture,omitempty"`
	SourceURL     string `json:"source_url,omitempty"`
}

// Training is a normalized training offer.
type Training struct {
	ID               int64       `json:"id"`
	Title            string      `json:"title"`
	Slug             string      `json:"slug"`
	ShortDescription string      `json:"short_description"`
	Duration         string      `json:"duration,omitempty"`
	Price            *float64    `json:"price,omitempty"`
	ShowPrice        bool        `json:"show_price"`
	Image            string      `json:"image"`
	VideoURL         string      `json:"video_url,omitempty"`
	UpdatedAt        string      `json:"updated_at"`
	Paragraphs       []Paragraph `json:"paragraphs"`
}

// TrainingSummary is a normalized training card.
type TrainingSummary struct {
	ID               int64    `json:"id"`
	Title            string   `json:"title"`
	Slug             string   `json:"slug"`
	ShortDescription string   `json:"short_description"`
	Image            string   `json:"image"`
	Duration         string   `json:"duration,omitempty"`
	Price            *float64 `json:"price,omitempty"`
	ShowPrice        bool     `json:"show_price"`
}

// Ebook is a normalized e-book.
type Ebook struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	CoverImage  string `json:"cover_image"`
	File        string `json:"file,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// EbookSummary is a normalized e-book card.
type EbookSummary struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	CoverImage  string `json:"cover_image"`
}

// Testimonial is a normalized client quote.
type Testimonial struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Role   string  `json:"role"`
	Avatar string  `json:"avatar"`
	Quote  string  `json:"quote"`
	Rating float64 `json:"rating"`
}

// Home is the normalized home-page aggregate.
type Home struct {
	Testimonials []Testimonial     `json:"testimonials"`
	Trainings    []TrainingSummary `json:"trainings"`
	Articles     []ArticleSummary  `json:"articles"`
	Ebooks       []EbookSummary    `json:"ebooks"`
}
