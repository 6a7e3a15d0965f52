package server

import (
	"errors"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/immoshift/immoshift-web/internal/placeholder"
	"github.com/immoshift/immoshift-web/internal/sitemap"
)

// handlePlaceholder handles GET /placeholder.png?title=&w=&h=
func (m *Mux) handlePlaceholder(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(tracerName).Start(r.Context(), "asset.placeholder")
	defer span.End()

	q := r.URL.Query()
	title := q.Get("title")
	width, errW := dimension(q.Get("w"), placeholder.DefaultWidth)
	height, errH := dimension(q.Get("h"), placeholder.DefaultHeight)
	if err := errors.Join(errW, errH); err != nil {
		fail(w, err)
		http.Error(w, "invalid dimensions", http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.Int("width", width), attribute.Int("height", height))

	png, err := m.deps.Placeholders.PNG(ctx, title, width, height)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		fail(w, err)
		if errors.Is(err, placeholder.ErrInvalidSize) {
			http.Error(w, "invalid dimensions", http.StatusBadRequest)
			return
		}
		http.Error(w, "placeholder rendering failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	_, _ = w.Write(png)
}

func dimension(v string, fallback int) (int, error) {
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

// handleSitemap handles GET /sitemap.xml
func (m *Mux) handleSitemap(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(tracerName).Start(r.Context(), "asset.sitemap")
	defer span.End()

	home, err := m.deps.Content.GetHome(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		fail(w, err)
		http.Error(w, "sitemap unavailable", http.StatusBadGateway)
		return
	}

	out, err := sitemap.Marshal(sitemap.Build(m.deps.SiteURL, home))
	if err != nil {
		fail(w, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	_, _ = w.Write(out)
}
