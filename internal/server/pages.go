package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	immoerrors "github.com/immoshift/immoshift-web/internal/errors"
	"github.com/immoshift/immoshift-web/internal/event"
	"github.com/immoshift/immoshift-web/internal/leadform"
	"github.com/immoshift/immoshift-web/internal/placeholder"
	"github.com/immoshift/immoshift-web/internal/render"
	"github.com/immoshift/immoshift-web/internal/storage"
	"github.com/immoshift/immoshift-web/internal/viewmodel"
)

// User-facing page messages.
const (
	MsgLoadFailed   = "Impossible de charger le contenu. Veuillez réessayer plus tard."
	MsgPageNotFound = "Cette page n'existe pas."
	MsgFormExpired  = "Le formulaire a expiré. Veuillez réessayer."
)

// Form field names not covered by leadform.
const (
	fieldPhone     = "phone"
	fieldConsent   = "consent_mailing"
	fieldFormToken = "form_token"
)

var pageFiles = []string{"home", "article", "training", "ebook", "thankyou", "error"}

func (m *Mux) parsePages() map[string]*template.Template {
	funcs := template.FuncMap{
		"paragraph": func(p viewmodel.Paragraph) (template.HTML, error) {
			return render.HTML(render.Paragraph(p))
		},
		"blocks":    render.Text,
		"quote":     render.Quote,
		"stars":     render.Stars,
		"embed":     render.EmbedURL,
		"repeat":    func(n int) []struct{} { return make([]struct{}, n) },
		"cardImage": m.cardImage,
		"price":     formatPrice,
		"date":      formatDate,
	}
	pages := make(map[string]*template.Template, len(pageFiles))
	for _, name := range pageFiles {
		pages[name] = template.Must(template.New("layout.html").Funcs(funcs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html"))
	}
	return pages
}

// cardImage returns src, or a placeholder card for title when src is empty.
// Placeholders are either linked to /placeholder.png or inlined as data URIs.
func (m *Mux) cardImage(src, title string) interface{} {
	if src != "" {
		return src
	}
	if m.deps.InlinePlaceholders {
		if uri := m.deps.Generator.DataURI(title, placeholder.DefaultWidth, placeholder.DefaultHeight); uri != "" {
			return template.URL(uri)
		}
	}
	q := url.Values{}
	q.Set("title", title)
	q.Set("w", strconv.Itoa(placeholder.DefaultWidth))
	q.Set("h", strconv.Itoa(placeholder.DefaultHeight))
	return "/placeholder.png?" + q.Encode()
}

// formatPrice renders an amount in euros, French style.
func formatPrice(p *float64) string {
	if p == nil {
		return ""
	}
	s := strconv.FormatFloat(*p, 'f', 2, 64)
	s = strings.TrimSuffix(s, ".00")
	return strings.Replace(s, ".", ",", 1) + " €"
}

// formatDate renders an RFC 3339 timestamp as dd/mm/yyyy, or returns it
// unchanged when it does not parse.
func formatDate(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Format("02/01/2006")
}

type pageData struct {
	Title string
	Data  interface{}
}

// renderPage buffers the page so a template failure still yields a clean 500.
func (m *Mux) renderPage(w http.ResponseWriter, r *http.Request, status int, page, title string, data interface{}) {
	var buf bytes.Buffer
	if err := m.pages[page].Execute(&buf, pageData{Title: title, Data: data}); err != nil {
		slog.ErrorContext(r.Context(), "template execution failed", "page", page, "error", err)
		fail(w, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderLoadError shows the generic message for NotFound and Transport
// failures; only the status differs.
func (m *Mux) renderLoadError(w http.ResponseWriter, r *http.Request, err error) {
	fail(w, err)
	status := http.StatusBadGateway
	if immoerrors.HasCode(err, immoerrors.IMMO_NOT_FOUND) {
		status = http.StatusNotFound
	} else if errors.Is(err, context.Canceled) {
		// client went away; nobody reads the body
		status = 499
	}
	m.renderPage(w, r, status, "error", "Erreur", errorView{Message: MsgLoadFailed, CorrelationID: correlationID(r.Context())})
}

type errorView struct {
	Message       string
	CorrelationID string
}

func (m *Mux) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/home/", http.StatusFound)
}

func (m *Mux) handleNotFound(w http.ResponseWriter, r *http.Request) {
	m.renderPage(w, r, http.StatusNotFound, "error", "Page introuvable", errorView{Message: MsgPageNotFound, CorrelationID: correlationID(r.Context())})
}

// handleHome handles GET /home/
func (m *Mux) handleHome(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(tracerName).Start(r.Context(), "page.home")
	defer span.End()

	if r.URL.Path != "/home/" {
		m.handleNotFound(w, r)
		return
	}

	home, err := m.deps.Content.GetHome(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		m.renderLoadError(w, r.WithContext(ctx), err)
		return
	}
	m.renderPage(w, r, http.StatusOK, "home", "Immoshift", home)
}

// handleArticle handles GET /articles/{slug}
func (m *Mux) handleArticle(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(tracerName).Start(r.Context(), "page.article")
	defer span.End()

	slug := r.PathValue("slug")
	span.SetAttributes(attribute.String("slug", slug))

	a, err := m.deps.Content.GetArticle(ctx, slug)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		m.renderLoadError(w, r.WithContext(ctx), err)
		return
	}
	m.renderPage(w, r, http.StatusOK, "article", a.Title, a)
}

// handleTraining handles GET /training/{slug}
func (m *Mux) handleTraining(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(tracerName).Start(r.Context(), "page.training")
	defer span.End()

	slug := r.PathValue("slug")
	span.SetAttributes(attribute.String("slug", slug))

	t, err := m.deps.Content.GetTraining(ctx, slug)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		m.renderLoadError(w, r.WithContext(ctx), err)
		return
	}
	m.renderPage(w, r, http.StatusOK, "training", t.Title, t)
}

type ebookView struct {
	Ebook     viewmodel.Ebook
	Action    string
	FormToken string
	Form      leadform.Form
	Errors    leadform.FieldErrors
	Message   string
}

// handleEbook handles GET and POST /ebooks/{slug}
func (m *Mux) handleEbook(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(tracerName).Start(r.Context(), "page.ebook")
	defer span.End()
	r = r.WithContext(ctx)

	slug := r.PathValue("slug")
	span.SetAttributes(attribute.String("slug", slug), attribute.String("method", r.Method))

	e, err := m.deps.Content.GetEbook(ctx, slug)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		m.renderLoadError(w, r, err)
		return
	}

	view := ebookView{Ebook: e, Action: r.URL.Path}
	if r.Method == http.MethodGet {
		m.renderEbook(w, r, http.StatusOK, view)
		return
	}

	if err := r.ParseForm(); err != nil {
		fail(w, err)
		view.Message = leadform.MsgSubmitFailed
		m.renderEbook(w, r, http.StatusBadRequest, view)
		return
	}
	view.Form = leadform.Form{
		FirstName:      r.PostFormValue(leadform.FieldFirstName),
		LastName:       r.PostFormValue(leadform.FieldLastName),
		Email:          r.PostFormValue(leadform.FieldEmail),
		Phone:          r.PostFormValue(fieldPhone),
		ConsentMailing: r.PostFormValue(fieldConsent) != "",
	}

	if err := m.deps.Tokens.Verify(r.PostFormValue(fieldFormToken), e.ID); err != nil {
		span.SetStatus(codes.Error, "form token rejected")
		fail(w, err)
		view.Message = MsgFormExpired
		m.renderEbook(w, r, immoerrors.HTTPStatusOf(err), view)
		return
	}

	nav := &storeNavigator{store: m.deps.Store, ttl: m.deps.NavStateTTL, ebookID: e.ID, now: m.now}
	ctrl := leadform.NewController(m.deps.Content, nav, leadform.WithMetrics(m.deps.Metrics))
	res := ctrl.Submit(ctx, leadform.EbookRef{ID: e.ID, Title: e.Title}, view.Form)

	switch {
	case res.State == leadform.Succeeded:
		m.publishLead(ctx, e, view.Form)
		http.Redirect(w, r, "/thank-you?s="+url.QueryEscape(nav.token), http.StatusSeeOther)
	case !res.FieldErrors.Valid():
		view.Errors = res.FieldErrors
		m.renderEbook(w, r, http.StatusBadRequest, view)
	default:
		span.SetStatus(codes.Error, res.Message)
		fail(w, res.Err)
		view.Message = res.Message
		m.renderEbook(w, r, immoerrors.HTTPStatusOf(res.Err), view)
	}
}

// renderEbook renders the e-book page with a fresh form token.
func (m *Mux) renderEbook(w http.ResponseWriter, r *http.Request, status int, view ebookView) {
	token, err := m.deps.Tokens.Issue(view.Ebook.ID)
	if err != nil {
		fail(w, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	view.FormToken = token
	m.renderPage(w, r, status, "ebook", view.Ebook.Title, view)
}

func (m *Mux) publishLead(ctx context.Context, e viewmodel.Ebook, f leadform.Form) {
	lead := event.Lead{
		EbookID:        e.ID,
		EbookTitle:     e.Title,
		FirstName:      f.FirstName,
		LastName:       f.LastName,
		Email:          f.Email,
		Phone:          f.Phone,
		ConsentMailing: f.ConsentMailing,
	}
	if err := m.deps.Publisher.PublishEbookDownloaded(ctx, correlationID(ctx), lead); err != nil {
		slog.WarnContext(ctx, "failed to publish ebook downloaded event", "ebook_id", e.ID, "error", err)
	}
}

// storeNavigator persists the confirmation state under a fresh token. The
// handler redirects to the token once Replace succeeds.
type storeNavigator struct {
	store   storage.Store
	ttl     time.Duration
	ebookID int64
	now     func() time.Time

	token string
}

func (n *storeNavigator) Replace(ctx context.Context, s leadform.NavigationState) error {
	now := n.now().UTC()
	st := storage.NavState{
		Token:       storage.NewToken(),
		EbookID:     n.ebookID,
		EbookTitle:  s.EbookTitle,
		DownloadURL: s.DownloadURL,
		CreatedAt:   now,
		ExpiresAt:   now.Add(n.ttl),
	}
	if err := n.store.Put(ctx, st); err != nil {
		return fmt.Errorf("store navigation state: %w", err)
	}
	n.token = st.Token
	return nil
}

type thankYouView struct {
	EbookTitle  string
	DownloadURL string
	Filename    string
	DelayMS     int64
}

// handleThankYou handles GET /thank-you?s={token}. An unknown or expired
// token still renders the page, without the download.
func (m *Mux) handleThankYou(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(tracerName).Start(r.Context(), "page.thank_you")
	defer span.End()

	view := thankYouView{DelayMS: leadform.DownloadDelay.Milliseconds()}
	if token := r.URL.Query().Get("s"); token != "" {
		st, err := m.deps.Store.Get(ctx, token)
		switch {
		case err == nil:
			c := leadform.NewConfirmation(leadform.NavigationState{EbookTitle: st.EbookTitle, DownloadURL: st.DownloadURL}, nil)
			d := c.Download()
			view.EbookTitle = st.EbookTitle
			view.DownloadURL = d.URL
			view.Filename = d.Filename
		case errors.Is(err, storage.ErrNotFound):
		default:
			span.SetStatus(codes.Error, err.Error())
			slog.WarnContext(ctx, "navigation state lookup failed", "error", err)
			fail(w, err)
		}
	}

	w.Header().Set("Cache-Control", "no-store")
	m.renderPage(w, r, http.StatusOK, "thankyou", "Merci", view)
}
