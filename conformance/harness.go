// Package conformance provides a harness that runs the site end to end: a
// stub content API speaking the real wire format, the real content client
// and normalizers, and the served pages on top.
package conformance

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/immoshift/immoshift-web/internal/content"
	"github.com/immoshift/immoshift-web/internal/formtoken"
	"github.com/immoshift/immoshift-web/internal/imageurl"
	"github.com/immoshift/immoshift-web/internal/model"
	"github.com/immoshift/immoshift-web/internal/normalize"
	"github.com/immoshift/immoshift-web/internal/placeholder"
	"github.com/immoshift/immoshift-web/internal/server"
	"github.com/immoshift/immoshift-web/internal/storage"
)

// RejectedEmail makes the stub API answer success=false.
const RejectedEmail = "quota@example.fr"

// Wire fixtures served by the stub API. Media paths are relative on purpose.
const (
	homeJSON = `{
		"testimonials":[{"id":1,"name":"Nadia","role":"Investisseuse","avatar":"/media/t/nadia.jpg","quote":"Top.\n\nMerci !","rating":4.5}],
		"trainings":[{"id":2,"title":"Coaching premium","slug":"coaching","short_description":"Un an d'accompagnement","image":"/media/tr/c.jpg","show_price":true,"price":"1490.00","position":1},
			{"id":3,"title":"Atelier","slug":"atelier","short_description":"Une journée","image":"/media/tr/a.jpg","show_price":false,"price":null,"position":2}],
		"articles":[{"id":1,"title":"Investir dans l'immobilier locatif","slug":"investir","excerpt":"Les bases.","image":null,"published_at":"2024-03-02T09:30:00Z"}],
		"ebooks":[{"id":4,"title":"Guide du primo-accédant","slug":"guide","description":"Tout savoir","cover_image":"media/eb/g.jpg","is_active":true,"position":1}]
	}`
	articleJSON = `{"id":1,"title":"Investir dans l'immobilier locatif","slug":"investir","excerpt":"Les bases.","image":null,
		"author":{"id":9,"name":"Camille Durand","picture":"/media/a/camille.png"},"is_published":true,
		"created_at":"2024-03-01T08:00:00Z","published_at":"2024-03-02T09:30:00Z","updated_at":"2024-03-02T09:30:00Z",
		"paragraphs":[
			{"id":11,"title":"Vidéo","media_type":"video_url","video_url":"https://www.youtube.com/watch?v=abc123","position":2},
			{"id":10,"title":"Pourquoi","content":"• Rendement\n• Patrimoine","media_type":"image","image":"/media/p/why.jpg","position":1},
			{"id":12,"title":"Incohérent","media_type":"video_file","video_file":null,"position":3}
		]}`
	trainingJSON = `{"id":2,"title":"Coaching premium","slug":"coaching","short_description":"Un an","duration":"12 mois",
		"price":"1490.00","show_price":true,"image":"/media/tr/c.jpg","video_url":"https://vimeo.com/123456","is_active":true,"position":1,
		"paragraphs":[{"id":20,"title":"Programme","content":"Semaine 1\n\nSemaine 2","media_type":"video_file","video_file":"/media/v/intro.mp4","thumbnail":"/media/v/intro.jpg","position":0}]}`
	ebookJSON = `{"id":4,"title":"Guide du primo-accédant","slug":"guide","description":"Tout savoir","cover_image":"media/eb/g.jpg","is_active":true,"position":1}`
)

// Harness runs a stub content API and the site wired against it.
type Harness struct {
	api   *httptest.Server
	site  *httptest.Server
	store storage.Store

	// Downloads records every lead the stub API accepted.
	Downloads chan model.EbookDownloadRequest
}

// Config holds configuration for the conformance test harness.
type Config struct {
	// InlinePlaceholders embeds placeholder cards as data URIs
	InlinePlaceholders bool

	// FormSecret signs lead form tokens
	FormSecret string
}

// NewHarness starts both servers.
func NewHarness(cfg Config) *Harness {
	if cfg.FormSecret == "" {
		cfg.FormSecret = "conformance-secret"
	}
	h := &Harness{store: storage.NewMemory(), Downloads: make(chan model.EbookDownloadRequest, 16)}
	h.api = httptest.NewServer(h.contentAPI())

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	norm := normalize.New(imageurl.New(h.api.URL), normalize.WithLogger(quiet))
	gen := placeholder.New()
	mux := server.NewMux(server.Deps{
		Content:            content.New(h.api.URL, norm, content.WithTimeout(5*time.Second)),
		Store:              h.store,
		Placeholders:       placeholder.NewCache(gen, placeholder.NewMemoryStore(0), nil),
		Generator:          gen,
		Tokens:             formtoken.New(cfg.FormSecret),
		SiteURL:            "https://immoshift.test",
		NavStateTTL:        time.Minute,
		InlinePlaceholders: cfg.InlinePlaceholders,
	})
	h.site = httptest.NewServer(mux)
	return h
}

func (h *Harness) contentAPI() http.Handler {
	mux := http.NewServeMux()
	serve := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, body)
		}
	}
	mux.HandleFunc("GET /home/", serve(homeJSON))
	mux.HandleFunc("GET /article/investir/", serve(articleJSON))
	mux.HandleFunc("GET /training/coaching/", serve(trainingJSON))
	mux.HandleFunc("GET /ebook/guide/", serve(ebookJSON))
	mux.HandleFunc("GET /article/broken/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("POST /download-ebook/", func(w http.ResponseWriter, r *http.Request) {
		var req model.EbookDownloadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if req.Email == RejectedEmail {
			_ = json.NewEncoder(w).Encode(model.EbookDownloadResponse{Success: false, Message: "quota exceeded"})
			return
		}
		h.Downloads <- req
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(model.EbookDownloadResponse{
			Success:     true,
			Message:     "Merci",
			DownloadURL: "https://files.immoshift.test/guide.pdf",
			EbookID:     req.Ebook,
			EbookTitle:  "Guide du primo-accédant",
		})
	})
	return mux
}

// URL returns the base URL of the site.
func (h *Harness) URL() string {
	return h.site.URL
}

// APIURL returns the base URL of the stub content API.
func (h *Harness) APIURL() string {
	return h.api.URL
}

// Close shuts down both servers.
func (h *Harness) Close() {
	h.site.Close()
	h.api.Close()
	h.store.Close()
}

// client does not follow redirects so they can be asserted.
func (h *Harness) client() *http.Client {
	return &http.Client{
		Timeout:       10 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
}

func (h *Harness) get(t *testing.T, path string) (*http.Response, *goquery.Document) {
	t.Helper()
	resp, err := h.client().Get(h.URL() + path)
	if err != nil {
		t.Fatalf("failed to GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		t.Fatalf("failed to parse %s: %v", path, err)
	}
	return resp, doc
}

// RunConformanceTests runs every end-to-end check against the site.
func (h *Harness) RunConformanceTests(t *testing.T) {
	t.Run("HealthEndpoints", h.testHealthEndpoints)
	t.Run("HomePage", h.testHomePage)
	t.Run("ArticlePage", h.testArticlePage)
	t.Run("TrainingPage", h.testTrainingPage)
	t.Run("LoadErrors", h.testLoadErrors)
	t.Run("Placeholder", h.testPlaceholder)
	t.Run("Sitemap", h.testSitemap)
	t.Run("LeadCapture", h.testLeadCapture)
	t.Run("LeadRejection", h.testLeadRejection)
}

// testHealthEndpoints tests the health check endpoints.
func (h *Harness) testHealthEndpoints(t *testing.T) {
	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp, _ := h.get(t, path)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected status 200 for %s, got %d", path, resp.StatusCode)
		}
	}
}

func (h *Harness) testHomePage(t *testing.T) {
	resp, doc := h.get(t, "/home/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200 for /home/, got %d", resp.StatusCode)
	}
	if src, _ := doc.Find(".training-card img").Attr("src"); src != h.APIURL()+"/media/tr/c.jpg" {
		t.Errorf("training image = %q, want resolved against the API origin", src)
	}
	if src, _ := doc.Find(".ebook-card img").Attr("src"); src != h.APIURL()+"/media/eb/g.jpg" {
		t.Errorf("ebook cover = %q, want resolved against the API origin", src)
	}
	if src, _ := doc.Find(".article-card img").Attr("src"); !strings.HasPrefix(src, "/placeholder.png?") && !strings.HasPrefix(src, "data:image/png") {
		t.Errorf("article without image = %q, want a placeholder", src)
	}
	if got := doc.Find(".testimonial .star.full").Length(); got != 4 {
		t.Errorf("full stars = %d, want 4", got)
	}
	if got := doc.Find(".training-card .price").Text(); got != "1490 €" {
		t.Errorf("price = %q, want %q", got, "1490 €")
	}
}

func (h *Harness) testArticlePage(t *testing.T) {
	resp, doc := h.get(t, "/articles/investir")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	titles := doc.Find(".paragraph-title").Map(func(_ int, s *goquery.Selection) string { return s.Text() })
	if strings.Join(titles, ",") != "Pourquoi,Vidéo,Incohérent" {
		t.Errorf("paragraph order = %v, want by position", titles)
	}
	if src, _ := doc.Find(".paragraph-media img").Attr("src"); src != h.APIURL()+"/media/p/why.jpg" {
		t.Errorf("paragraph image = %q", src)
	}
	if src, _ := doc.Find(".paragraph-media iframe").Attr("src"); src != "https://www.youtube.com/embed/abc123" {
		t.Errorf("embed = %q", src)
	}
	if n := doc.Find(".paragraph-media video").Length(); n != 0 {
		t.Errorf("inconsistent video_file paragraph rendered %d videos, want none", n)
	}
	if n := doc.Find(".paragraph .bullet").Length(); n != 2 {
		t.Errorf("bullets = %d, want 2", n)
	}
	if src, _ := doc.Find(".author img").Attr("src"); src != h.APIURL()+"/media/a/camille.png" {
		t.Errorf("author picture = %q", src)
	}
}

func (h *Harness) testTrainingPage(t *testing.T) {
	resp, doc := h.get(t, "/training/coaching")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	if got := doc.Find(".training .price").Text(); got != "1490 €" {
		t.Errorf("training price = %q, want %q", got, "1490 €")
	}
	if src, _ := doc.Find(".training-video iframe").Attr("src"); src != "https://player.vimeo.com/video/123456" {
		t.Errorf("training video = %q", src)
	}
	video := doc.Find(".paragraph-media video")
	if poster, _ := video.Attr("poster"); poster != h.APIURL()+"/media/v/intro.jpg" {
		t.Errorf("poster = %q", poster)
	}
	if src, _ := video.Find("source").Attr("src"); src != h.APIURL()+"/media/v/intro.mp4" {
		t.Errorf("video source = %q", src)
	}
	if got := doc.Find(".paragraph-content p").Length(); got != 3 {
		t.Errorf("plain-mode lines = %d, want 3 including the empty one", got)
	}
}

func (h *Harness) testLoadErrors(t *testing.T) {
	const msg = "Impossible de charger le contenu. Veuillez réessayer plus tard."
	for path, want := range map[string]int{
		"/articles/missing": http.StatusNotFound,
		"/articles/broken":  http.StatusBadGateway,
	} {
		resp, doc := h.get(t, path)
		if resp.StatusCode != want {
			t.Errorf("%s status = %d, want %d", path, resp.StatusCode, want)
		}
		if got := strings.TrimSpace(doc.Find(".error-message").Text()); got != msg {
			t.Errorf("%s message = %q, want %q", path, got, msg)
		}
	}
}

func (h *Harness) testPlaceholder(t *testing.T) {
	q := url.Values{"title": {"Investir dans l'immobilier locatif"}}
	resp, err := h.client().Get(h.URL() + "/placeholder.png?" + q.Encode())
	if err != nil {
		t.Fatalf("failed to GET placeholder: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Errorf("placeholder status=%d type=%q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	first, _ := io.ReadAll(resp.Body)

	again, err := h.client().Get(h.URL() + "/placeholder.png?" + q.Encode())
	if err != nil {
		t.Fatalf("failed to GET placeholder: %v", err)
	}
	defer again.Body.Close()
	second, _ := io.ReadAll(again.Body)
	if string(first) != string(second) {
		t.Errorf("placeholder is not deterministic")
	}
}

func (h *Harness) testSitemap(t *testing.T) {
	resp, err := h.client().Get(h.URL() + "/sitemap.xml")
	if err != nil {
		t.Fatalf("failed to GET sitemap: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	for _, loc := range []string{"https://immoshift.test/articles/investir", "https://immoshift.test/training/coaching", "https://immoshift.test/ebooks/guide"} {
		if !strings.Contains(string(body), "<loc>"+loc+"</loc>") {
			t.Errorf("sitemap missing %s", loc)
		}
	}
}

func (h *Harness) submitLead(t *testing.T, email string) *http.Response {
	t.Helper()
	_, doc := h.get(t, "/ebooks/guide")
	token, ok := doc.Find(`input[name="form_token"]`).Attr("value")
	if !ok {
		t.Fatalf("ebook page has no form token")
	}
	form := url.Values{
		"form_token": {token},
		"first_name": {"Léa"},
		"last_name":  {"Martin"},
		"email":      {email},
	}
	resp, err := h.client().PostForm(h.URL()+"/ebooks/guide", form)
	if err != nil {
		t.Fatalf("failed to POST lead: %v", err)
	}
	return resp
}

func (h *Harness) testLeadCapture(t *testing.T) {
	resp := h.submitLead(t, "lea@example.fr")
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("lead status = %d, want 303", resp.StatusCode)
	}

	select {
	case req := <-h.Downloads:
		if req.Ebook != 4 || req.Email != "lea@example.fr" || req.Phone != "" || req.ConsentMailing {
			t.Errorf("API received %+v", req)
		}
	case <-time.After(time.Second):
		t.Fatalf("API never received the lead")
	}

	_, doc := h.get(t, resp.Header.Get("Location"))
	if href, _ := doc.Find("#redownload").Attr("href"); href != "https://files.immoshift.test/guide.pdf" {
		t.Errorf("download link = %q", href)
	}
	if name, _ := doc.Find("#redownload").Attr("download"); name != "Guide du primo-accédant.pdf" {
		t.Errorf("download filename = %q", name)
	}
}

func (h *Harness) testLeadRejection(t *testing.T) {
	resp := h.submitLead(t, RejectedEmail)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("rejected lead status = %d, want 422", resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if got := doc.Find(".form-error").Text(); got != "quota exceeded" {
		t.Errorf("form error = %q, want the server message", got)
	}
}
