// internal/model/content.go
// Package model defines the wire records exchanged with the content API.
// Media fields hold the raw paths the API returns; they may be relative to the
// API origin or absent. View-ready records live in package viewmodel.
package model

// MediaType is the discriminator selecting which paragraph media field applies.
type MediaType string

const (
	MediaNone      MediaType = "none"
	MediaImage     MediaType = "image"
	MediaVideoURL  MediaType = "video_url"
	MediaVideoFile MediaType = "video_file"
)

// MediaTypes lists every discriminator value the API emits.
var MediaTypes = []MediaType{MediaNone, MediaImage, MediaVideoURL, MediaVideoFile}

// Author is a reusable article author.
type Author struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
	Bio     string `json:"bio,omitempty"`
}

// Paragraph is a content section attached to an article or a training.
type Paragraph struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title,omitempty"`
	Content    string    `json:"content,omitempty"`
	MediaType  MediaType `json:"media_type,omitempty"`
	Image      string    `json:"image,omitempty"`
	VideoURL   string    `json:"video_url,omitempty"`
	VideoFile  string    `json:"video_file,omitempty"`
	Thumbnail  string    `json:"thumbnail,omitempty"`
	FileSizeMB *float64  `json:"file_size_mb,omitempty"`
	Position   int       `json:"position"`
}

// Article is the detail record served by GET /article/{slug}/.
type Article struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Slug        string      `json:"slug"`
	Excerpt     string      `json:"excerpt"`
	Content     string      `json:"content,omitempty"`
	Image       string      `json:"image,omitempty"`
	Author      *Author     `json:"author,omitempty"`
	SourceURL   string      `json:"source_url,omitempty"`
	IsPublished bool        `json:"is_published"`
	CreatedAt   string      `json:"created_at"`
	PublishedAt string      `json:"published_at"`
	UpdatedAt   string      `json:"updated_at"`
	Paragraphs  []Paragraph `json:"paragraphs,omitempty"`
}

// ArticleSummary is the list form used by the home aggregate.
type ArticleSummary struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Slug          string `json:"slug"`
	Excerpt       string `json:"excerpt"`
	Image         string `json:"image,omitempty"`
	PublishedAt   string `json:"published_at"`
	AuthorName    string `json:"author_name,omitempty"`
	AuthorPicture string `json:"author_picture,omitempty"`
	SourceURL     string `json:"source_url,omitempty"`
}

// Training is the detail record served by GET /training/{slug}/.
type Training struct {
	ID               int64       `json:"id"`
	Title            string      `json:"title"`
	Slug             string      `json:"slug"`
	ShortDescription string      `json:"short_description"`
	Duration         string      `json:"duration,omitempty"`
	Price            *Price      `json:"price,omitempty"`
	ShowPrice        bool        `json:"show_price"`
	Image            string      `json:"image"`
	VideoURL         string      `json:"video_url,omitempty"`
	IsActive         bool        `json:"is_active"`
	Position         int         `json:"position"`
	CreatedAt        string      `json:"created_at"`
	UpdatedAt        string      `json:"updated_at"`
	Paragraphs       []Paragraph `json:"paragraphs,omitempty"`
}

// TrainingSummary is the list form used by the home aggregate.
type TrainingSummary struct {
	ID               int64    `json:"id"`
	Title            string   `json:"title"`
	Slug             string   `json:"slug"`
	ShortDescription string   `json:"short_description"`
	Image            string   `json:"image"`
	Duration         string   `json:"duration,omitempty"`
	Price            *Price   `json:"price,omitempty"`
	ShowPrice        bool     `json:"show_price"`
	Position         int      `json:"position"`
}

// Ebook is the detail record served by GET /ebook/{slug}/.
type Ebook struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	CoverImage  string `json:"cover_image"`
	File        string `json:"file,omitempty"`
	IsActive    bool   `json:"is_active"`
	Position    int    `json:"position"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// EbookSummary is the list form used by the home aggregate.
type EbookSummary struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	CoverImage  string `json:"cover_image"`
	IsActive    bool   `json:"is_active"`
	Position    int    `json:"position"`
}

// Testimonial is a client quote shown on the home page.
type Testimonial struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Role   string  `json:"role"`
	Avatar string  `json:"avatar"`
	Quote  string  `json:"quote"`
	Rating float64 `json:"rating"`
}

// HomeContent is the aggregate served by GET /home/.
type HomeContent struct {
	Testimonials []Testimonial     `json:"testimonials"`
	Trainings    []TrainingSummary `json:"trainings"`
	Articles     []ArticleSummary  `json:"articles"`
	Ebooks       []EbookSummary    `json:"ebooks"`
}
