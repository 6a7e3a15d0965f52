package normalize

import (
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/immoshift/immoshift-web/internal/imageurl"
	"github.com/immoshift/immoshift-web/internal/model"
	"github.com/immoshift/immoshift-web/internal/viewmodel"
)

const origin = "https://api.immoshift.fr"

func newNormalizer() *Normalizer {
	return New(imageurl.New(origin), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func TestArticle(t *testing.T) {
	n := newNormalizer()
	raw := model.Article{
		ID:      3,
		Title:   "Investir à Lyon",
		Slug:    "investir-a-lyon",
		Excerpt: "Guide",
		Image:   "/media/articles/lyon.jpg",
		Author:  &model.Author{ID: 1, Name: "Camille", Picture: "media/authors/c.png"},
		Paragraphs: []model.Paragraph{
			{ID: 11, Position: 2, MediaType: model.MediaVideoURL, VideoURL: "https://youtu.be/abc"},
			{ID: 10, Position: 1, MediaType: model.MediaImage, Image: "/media/p/1.jpg"},
		},
	}

	got := n.Article(raw)
	want := viewmodel.Article{
		ID:      3,
		Title:   "Investir à Lyon",
		Slug:    "investir-a-lyon",
		Excerpt: "Guide",
		Image:   origin + "/media/articles/lyon.jpg",
		Author:  &viewmodel.Author{ID: 1, Name: "Camille", Picture: origin + "/media/authors/c.png"},
		Paragraphs: []viewmodel.Paragraph{
			{ID: 10, Position: 1, Media: viewmodel.ImageMedia{URL: origin + "/media/p/1.jpg"}},
			{ID: 11, Position: 2, Media: viewmodel.VideoURLMedia{URL: "https://youtu.be/abc"}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Article() mismatch (-want +got):\n%s", diff)
	}
}

func TestArticleWithoutImageStaysEmpty(t *testing.T) {
	got := newNormalizer().Article(model.Article{ID: 1, Title: "Sans image"})
	if got.Image != "" {
		t.Errorf("Article().Image = %q, want empty", got.Image)
	}
	if got.Author != nil {
		t.Errorf("Article().Author = %+v, want nil", got.Author)
	}
	if got.Paragraphs == nil || len(got.Paragraphs) != 0 {
		t.Errorf("Article().Paragraphs = %#v, want empty slice", got.Paragraphs)
	}
}

func TestParagraphMedia(t *testing.T) {
	n := newNormalizer()
	tests := []struct {
		name string
		in   model.Paragraph
		want viewmodel.Media
	}{
		{"none", model.Paragraph{MediaType: model.MediaNone, Image: "/ignored.jpg"}, viewmodel.NoMedia{}},
		{"empty type", model.Paragraph{}, viewmodel.NoMedia{}},
		{"image", model.Paragraph{MediaType: model.MediaImage, Image: "media/a.jpg"}, viewmodel.ImageMedia{URL: origin + "/media/a.jpg"}},
		{"image missing", model.Paragraph{MediaType: model.MediaImage, VideoURL: "https://youtu.be/x"}, viewmodel.NoMedia{}},
		{"video url kept verbatim", model.Paragraph{MediaType: model.MediaVideoURL, VideoURL: "https://vimeo.com/1"}, viewmodel.VideoURLMedia{URL: "https://vimeo.com/1"}},
		{"video url missing", model.Paragraph{MediaType: model.MediaVideoURL}, viewmodel.NoMedia{}},
		{"video file with poster", model.Paragraph{MediaType: model.MediaVideoFile, VideoFile: "/media/v.mp4", Thumbnail: "/media/t.jpg"},
			viewmodel.VideoFileMedia{URL: origin + "/media/v.mp4", Poster: origin + "/media/t.jpg"}},
		{"video file without poster", model.Paragraph{MediaType: model.MediaVideoFile, VideoFile: "https://cdn/v.mp4"},
			viewmodel.VideoFileMedia{URL: "https://cdn/v.mp4"}},
		{"video file missing", model.Paragraph{MediaType: model.MediaVideoFile, Thumbnail: "/t.jpg"}, viewmodel.NoMedia{}},
		{"unknown type", model.Paragraph{MediaType: "audio", Image: "/a.jpg"}, viewmodel.NoMedia{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.Paragraph(tt.in).Media
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Paragraph().Media mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParagraphsStableOrder(t *testing.T) {
	got := newNormalizer().Paragraphs([]model.Paragraph{
		{ID: 1, Position: 1}, {ID: 2, Position: 0}, {ID: 3, Position: 1},
	})
	var ids []int64
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	if diff := cmp.Diff([]int64{2, 1, 3}, ids); diff != "" {
		t.Errorf("Paragraphs() order mismatch (-want +got):\n%s", diff)
	}
}

func TestTrainingKeepsVideoURL(t *testing.T) {
	price := model.Price(490)
	got := newNormalizer().Training(model.Training{
		ID: 2, Title: "Formation", Image: "/media/t.jpg", VideoURL: "youtube.com/watch?v=1", Price: &price, ShowPrice: true,
	})
	if got.Image != origin+"/media/t.jpg" {
		t.Errorf("Training().Image = %v", got.Image)
	}
	if got.VideoURL != "youtube.com/watch?v=1" {
		t.Errorf("Training().VideoURL = %v, want unchanged", got.VideoURL)
	}
	if got.Price == nil || *got.Price != 490 {
		t.Errorf("Training().Price = %v, want 490", got.Price)
	}
}

func TestEbook(t *testing.T) {
	got := newNormalizer().Ebook(model.Ebook{ID: 4, CoverImage: "/media/c.png", File: "media/e.pdf"})
	if got.CoverImage != origin+"/media/c.png" || got.File != origin+"/media/e.pdf" {
		t.Errorf("Ebook() = %+v", got)
	}
}

func TestHome(t *testing.T) {
	n := newNormalizer()
	got := n.Home(model.HomeContent{
		Testimonials: []model.Testimonial{{ID: 1, Name: "Léa", Avatar: "/media/l.jpg", Quote: "Top", Rating: 4.5}},
		Articles:     []model.ArticleSummary{{ID: 2, Slug: "a", AuthorPicture: "/media/p.jpg"}},
	})
	want := viewmodel.Home{
		Testimonials: []viewmodel.Testimonial{{ID: 1, Name: "Léa", Avatar: origin + "/media/l.jpg", Quote: "Top", Rating: 4.5}},
		Trainings:    []viewmodel.TrainingSummary{},
		Articles:     []viewmodel.ArticleSummary{{ID: 2, Slug: "a", AuthorPicture: origin + "/media/p.jpg"}},
		Ebooks:       []viewmodel.EbookSummary{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Home() mismatch (-want +got):\n%s", diff)
	}
}
