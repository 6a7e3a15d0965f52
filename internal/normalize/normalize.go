// Package normalize converts content API records into view models. Every
// function here is pure and total: malformed media degrades to empty or
// NoMedia rather than failing.
package normalize

import (
	"log/slog"
	"sort"

	"github.com/immoshift/immoshift-web/internal/imageurl"
	"github.com/immoshift/immoshift-web/internal/metrics"
	"github.com/immoshift/immoshift-web/internal/model"
	"github.com/immoshift/immoshift-web/internal/viewmodel"
)

// Normalizer resolves media references through a Resolver.
type Normalizer struct {
	resolver *imageurl.Resolver
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithMetrics counts paragraphs whose declared media was missing.
func WithMetrics(m *metrics.Metrics) Option {
	return func(n *Normalizer) { n.metrics = m }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Normalizer) { n.logger = l }
}

// New returns a Normalizer using r.
func New(r *imageurl.Resolver, opts ...Option) *Normalizer {
	n := &Normalizer{resolver: r, logger: slog.Default()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Article normalizes an article with its author and paragraphs. A missing
// image stays empty.
func (n *Normalizer) Article(a model.Article) viewmodel.Article {
	out := viewmodel.Article{
		ID:          a.ID,
		Title:       a.Title,
		Slug:        a.Slug,
		Excerpt:     a.Excerpt,
		Content:     a.Content,
		Image:       n.resolver.Resolve(a.Image),
		SourceURL:   a.SourceURL,
		PublishedAt: a.PublishedAt,
		UpdatedAt:   a.UpdatedAt,
		Paragraphs:  n.Paragraphs(a.Paragraphs),
	}
	if a.Author != nil {
		out.Author = &viewmodel.Author{
			ID:      a.Author.ID,
			Name:    a.Author.Name,
			Picture: n.resolver.Resolve(a.Author.Picture),
			Bio:     a.Author.Bio,
		}
	}
	return out
}

func (n *Normalizer) ArticleSummary(a model.ArticleSummary) viewmodel.ArticleSummary {
	return viewmodel.ArticleSummary{
		ID:            a.ID,
		Title:         a.Title,
		Slug:          a.Slug,
		Excerpt:       a.Excerpt,
		Image:         n.resolver.Resolve(a.Image),
		PublishedAt:   a.PublishedAt,
		AuthorName:    a.AuthorName,
		AuthorPicture: n.resolver.Resolve(a.AuthorPicture),
		SourceURL:     a.SourceURL,
	}
}

// Training normalizes a training. VideoURL points at third-party hosting and
// is kept as is.
func (n *Normalizer) Training(t model.Training) viewmodel.Training {
	return viewmodel.Training{
		ID:               t.ID,
		Title:            t.Title,
		Slug:             t.Slug,
		ShortDescription: t.ShortDescription,
		Duration:         t.Duration,
		Price:            t.Price.Float(),
		ShowPrice:        t.ShowPrice,
		Image:            n.resolver.Resolve(t.Image),
		VideoURL:         t.VideoURL,
		UpdatedAt:        t.UpdatedAt,
		Paragraphs:       n.Paragraphs(t.Paragraphs),
	}
}

func (n *Normalizer) TrainingSummary(t model.TrainingSummary) viewmodel.TrainingSummary {
	return viewmodel.TrainingSummary{
		ID:               t.ID,
		Title:            t.Title,
		Slug:             t.Slug,
		ShortDescription: t.ShortDescription,
		Image:            n.resolver.Resolve(t.Image),
		Duration:         t.Duration,
		Price:            t.Price.Float(),
		ShowPrice:        t.ShowPrice,
	}
}

func (n *Normalizer) Ebook(e model.Ebook) viewmodel.Ebook {
	return viewmodel.Ebook{
		ID:          e.ID,
		Title:       e.Title,
		Slug:        e.Slug,
		Description: e.Description,
		CoverImage:  n.resolver.Resolve(e.CoverImage),
		File:        n.resolver.Resolve(e.File),
		CreatedAt:   e.CreatedAt,
	}
}

func (n *Normalizer) EbookSummary(e model.EbookSummary) viewmodel.EbookSummary {
	return viewmodel.EbookSummary{
		ID:          e.ID,
		Title:       e.Title,
		Slug:        e.Slug,
		Description: e.Description,
		CoverImage:  n.resolver.Resolve(e.CoverImage),
	}
}

func (n *Normalizer) Testimonial(t model.Testimonial) viewmodel.Testimonial {
	return viewmodel.Testimonial{
		ID:     t.ID,
		Name:   t.Name,
		Role:   t.Role,
		Avatar: n.resolver.Resolve(t.Avatar),
		Quote:  t.Quote,
		Rating: t.Rating,
	}
}

// Home normalizes every list of the aggregate independently. Nil lists become
// empty ones.
func (n *Normalizer) Home(h model.HomeContent) viewmodel.Home {
	out := viewmodel.Home{
		Testimonials: make([]viewmodel.Testimonial, 0, len(h.Testimonials)),
		Trainings:    make([]viewmodel.TrainingSummary, 0, len(h.Trainings)),
		Articles:     make([]viewmodel.ArticleSummary, 0, len(h.Articles)),
		Ebooks:       make([]viewmodel.EbookSummary, 0, len(h.Ebooks)),
	}
	for _, t := range h.Testimonials {
		out.Testimonials = append(out.Testimonials, n.Testimonial(t))
	}
	for _, t := range h.Trainings {
		out.Trainings = append(out.Trainings, n.TrainingSummary(t))
	}
	for _, a := range h.Articles {
		out.Articles = append(out.Articles, n.ArticleSummary(a))
	}
	for _, e := range h.Ebooks {
		out.Ebooks = append(out.Ebooks, n.EbookSummary(e))
	}
	return out
}

// Paragraphs normalizes ps into a new slice ordered by position.
func (n *Normalizer) Paragraphs(ps []model.Paragraph) []viewmodel.Paragraph {
	out := make([]viewmodel.Paragraph, 0, len(ps))
	for _, p := range ps {
		out = append(out, n.Paragraph(p))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// Paragraph normalizes p, selecting the media variant named by its
// media_type. A declared type whose field is empty yields NoMedia.
func (n *Normalizer) Paragraph(p model.Paragraph) viewmodel.Paragraph {
	return viewmodel.Paragraph{
		ID:         p.ID,
		Title:      p.Title,
		Content:    p.Content,
		Media:      n.media(p),
		FileSizeMB: p.FileSizeMB,
		Position:   p.Position,
	}
}

func (n *Normalizer) media(p model.Paragraph) viewmodel.Media {
	switch p.MediaType {
	case model.MediaNone, "":
		return viewmodel.NoMedia{}
	case model.MediaImage:
		if u := n.resolver.Resolve(p.Image); u != "" {
			return viewmodel.ImageMedia{URL: u}
		}
	case model.MediaVideoURL:
		if p.VideoURL != "" {
			return viewmodel.VideoURLMedia{URL: p.VideoURL}
		}
	case model.MediaVideoFile:
		if u := n.resolver.Resolve(p.VideoFile); u != "" {
			return viewmodel.VideoFileMedia{URL: u, Poster: n.resolver.Resolve(p.Thumbnail)}
		}
	default:
		n.logger.Warn("unknown paragraph media type", "paragraph_id", p.ID, "media_type", string(p.MediaType))
		n.countInconsistent("unknown")
		return viewmodel.NoMedia{}
	}
	n.logger.Warn("paragraph media field missing", "paragraph_id", p.ID, "media_type", string(p.MediaType))
	n.countInconsistent(string(p.MediaType))
	return viewmodel.NoMedia{}
}

func (n *Normalizer) countInconsistent(mediaType string) {
	if n.metrics != nil {
		n.metrics.InconsistentMediaTotal.WithLabelValues(mediaType).Inc()
	}
}
