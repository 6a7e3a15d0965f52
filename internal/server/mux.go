// internal/server/mux.go
// Package server implements the HTTP handlers and routing of the Immoshift
// site. Pages are rendered server-side from content API view models; the
// e-book lead form posts back to the server, which submits it upstream and
// redirects to a confirmation page carrying the download.
package server

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/immoshift/immoshift-web/internal/event"
	"github.com/immoshift/immoshift-web/internal/formtoken"
	"github.com/immoshift/immoshift-web/internal/leadform"
	"github.com/immoshift/immoshift-web/internal/metrics"
	"github.com/immoshift/immoshift-web/internal/placeholder"
	"github.com/immoshift/immoshift-web/internal/storage"
	"github.com/immoshift/immoshift-web/internal/viewmodel"
)

// ContextKey is used for context values to avoid collisions
// when storing values in request context
type ContextKey string

// ContextKeyCorrelationID stores the request correlation id.
const ContextKeyCorrelationID ContextKey = "correlationId"

const (
	tracerName       = "immoshift-web"
	readinessTimeout = 5 * time.Second
)

//go:embed templates/*.html
var templateFS embed.FS

// Content is the subset of the content API client the pages use.
type Content interface {
	GetArticle(ctx context.Context, slug string) (viewmodel.Article, error)
	GetTraining(ctx context.Context, slug string) (viewmodel.Training, error)
	GetEbook(ctx context.Context, slug string) (viewmodel.Ebook, error)
	GetHome(ctx context.Context) (viewmodel.Home, error)
	leadform.Submitter
}

// ReadyCheck is one dependency probed by /readyz.
type ReadyCheck func(ctx context.Context) error

// Deps carries everything the handlers need. Content, Store, Placeholders
// and Tokens are required; the rest have working defaults.
type Deps struct {
	Content      Content
	Store        storage.Store
	Publisher    event.Publisher
	Placeholders *placeholder.Cache
	Generator    *placeholder.Generator
	Tokens       *formtoken.Issuer
	Metrics      *metrics.Metrics

	SiteURL            string
	NavStateTTL        time.Duration
	InlinePlaceholders bool

	// ReadyChecks are probed by /readyz in addition to the store.
	ReadyChecks map[string]ReadyCheck

	// Now overrides the clock used for navigation states.
	Now func() time.Time
}

// Mux routes site requests.
type Mux struct {
	mux   *http.ServeMux
	deps  Deps
	pages map[string]*template.Template
	now   func() time.Time
}

// NewMux creates the site mux with every page and ops endpoint registered.
func NewMux(d Deps) *http.ServeMux {
	if d.Publisher == nil {
		d.Publisher = event.NewNoop()
	}
	if d.Generator == nil {
		d.Generator = placeholder.New()
	}
	if d.NavStateTTL <= 0 {
		d.NavStateTTL = 30 * time.Minute
	}
	m := &Mux{mux: http.NewServeMux(), deps: d, now: d.Now}
	if m.now == nil {
		m.now = time.Now
	}
	m.pages = m.parsePages()

	// Register health endpoints
	m.mux.HandleFunc("/healthz", m.handleHealthz)
	m.mux.HandleFunc("/readyz", m.handleReadyz)
	m.mux.Handle("/metrics", promhttp.Handler())

	// Pages
	m.mux.HandleFunc("/{$}", m.method(m.withMiddleware(m.handleRoot), http.MethodGet))
	m.mux.HandleFunc("/home/", m.method(m.withMiddleware(m.handleHome), http.MethodGet))
	m.mux.HandleFunc("/articles/{slug}", m.method(m.withMiddleware(m.handleArticle), http.MethodGet))
	m.mux.HandleFunc("/articles/{slug}/", m.method(m.withMiddleware(m.handleArticle), http.MethodGet))
	m.mux.HandleFunc("/training/{slug}", m.method(m.withMiddleware(m.handleTraining), http.MethodGet))
	m.mux.HandleFunc("/training/{slug}/", m.method(m.withMiddleware(m.handleTraining), http.MethodGet))
	m.mux.HandleFunc("/ebooks/{slug}", m.method(m.withMiddleware(m.handleEbook), http.MethodGet, http.MethodPost))
	m.mux.HandleFunc("/ebooks/{slug}/", m.method(m.withMiddleware(m.handleEbook), http.MethodGet, http.MethodPost))
	m.mux.HandleFunc("/thank-you", m.method(m.withMiddleware(m.handleThankYou), http.MethodGet))

	// Generated assets
	m.mux.HandleFunc("/placeholder.png", m.method(m.withMiddleware(m.handlePlaceholder), http.MethodGet))
	m.mux.HandleFunc("/sitemap.xml", m.method(m.withMiddleware(m.handleSitemap), http.MethodGet))

	m.mux.HandleFunc("/", m.withMiddleware(m.handleNotFound))

	return m.mux
}

// method rejects requests whose method is not in allowed.
func (m *Mux) method(h http.HandlerFunc, allowed ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, a := range allowed {
			if r.Method == a {
				h(w, r)
				return
			}
		}
		for _, a := range allowed {
			w.Header().Add("Allow", a)
		}
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// statusRecorder captures the status written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	err    error
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// withMiddleware assigns the correlation id, then logs and counts the request.
func (m *Mux) withMiddleware(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		correlationID := r.Header.Get("X-Correlation-Id")
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		r = r.WithContext(context.WithValue(ctx, ContextKeyCorrelationID, correlationID))
		w.Header().Set("X-Correlation-Id", correlationID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)

		duration := time.Since(start)
		if m.deps.Metrics != nil {
			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			status := strconv.Itoa(rec.status)
			m.deps.Metrics.HTTPRequestTotal.WithLabelValues(r.Method, route, status).Inc()
			m.deps.Metrics.HTTPRequestDuration.WithLabelValues(r.Method, route, status).Observe(duration.Seconds())
		}
		m.logRequest(r, rec.status, duration, correlationID, rec.err)
	}
}

// fail records err on the response so the request log carries it.
func fail(w http.ResponseWriter, err error) {
	if rec, ok := w.(*statusRecorder); ok {
		rec.err = err
	}
}

func correlationID(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeyCorrelationID).(string)
	return id
}

// logRequest logs request details
func (m *Mux) logRequest(r *http.Request, status int, duration time.Duration, correlationID string, err error) {
	attrs := []slog.Attr{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.Duration("duration", duration),
		slog.String("user_agent", r.UserAgent()),
		slog.String("remote_addr", r.RemoteAddr),
	}

	if correlationID != "" {
		attrs = append(attrs, slog.String("correlation_id", correlationID))
	}
	if sc := trace.SpanContextFromContext(r.Context()); sc.HasTraceID() {
		attrs = append(attrs, slog.String("trace_id", sc.TraceID().String()))
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		slog.LogAttrs(r.Context(), slog.LevelError, "request completed with error", attrs...)
	} else {
		slog.LogAttrs(r.Context(), slog.LevelInfo, "request completed", attrs...)
	}
}

// handleHealthz handles liveness health check requests
func (m *Mux) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReadyz probes the navigation-state store and every extra check.
func (m *Mux) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if err := m.deps.Store.Ping(ctx); err != nil {
		slog.WarnContext(ctx, "readiness check failed", "check", "store", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	for name, check := range m.deps.ReadyChecks {
		if err := check(ctx); err != nil {
			slog.WarnContext(ctx, "readiness check failed", "check", name, "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
