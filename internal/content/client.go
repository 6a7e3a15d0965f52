// internal/content/client.go
// Package content is the client for the Immoshift content API. Every
// operation normalizes the response before returning it, so callers only see
// view models with resolved media URLs.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	immoerrors "github.com/immoshift/immoshift-web/internal/errors"
	"github.com/immoshift/immoshift-web/internal/metrics"
	"github.com/immoshift/immoshift-web/internal/model"
	"github.com/immoshift/immoshift-web/internal/normalize"
	"github.com/immoshift/immoshift-web/internal/schema"
	"github.com/immoshift/immoshift-web/internal/viewmodel"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

const defaultUserAgent = "immoshift-web/1.0"

// Client calls the content API. It performs no retries and no caching.
type Client struct {
	base      string
	hc        *http.Client
	norm      *normalize.Normalizer
	contracts *schema.Validator
	metrics   *metrics.Metrics
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithTimeout sets the per-request timeout of the HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.hc
		hc.Timeout = d
		c.hc = &hc
	}
}

// WithMetrics records upstream call counts and latencies.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithUserAgent sets the User-Agent header of every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithValidator replaces the response contract validator.
func WithValidator(v *schema.Validator) Option {
	return func(c *Client) { c.contracts = v }
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, norm *normalize.Normalizer, opts ...Option) *Client {
	transport := &http.Transport{
		DialContext:         (&net.Dialer{Timeout: 2 * time.Second}).DialContext,
		TLSHandshakeTimeout: 3 * time.Second,
		MaxIdleConnsPerHost: 8,
	}
	c := &Client{
		base:      strings.TrimRight(baseURL, "/"),
		hc:        &http.Client{Transport: transport, Timeout: 10 * time.Second},
		norm:      norm,
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.contracts == nil {
		c.contracts = schema.MustNewValidator(c.metrics)
	}
	return c
}

// GetArticle fetches GET /article/{slug}/.
func (c *Client) GetArticle(ctx context.Context, slug string) (viewmodel.Article, error) {
	var a model.Article
	if err := c.getBySlug(ctx, "get_article", "article", slug, schema.Article, &a); err != nil {
		return viewmodel.Article{}, err
	}
	return c.norm.Article(a), nil
}

// GetTraining fetches GET /training/{slug}/.
func (c *Client) GetTraining(ctx context.Context, slug string) (viewmodel.Training, error) {
	var t model.Training
	if err := c.getBySlug(ctx, "get_training", "training", slug, schema.Training, &t); err != nil {
		return viewmodel.Training{}, err
	}
	return c.norm.Training(t), nil
}

// GetEbook fetches GET /ebook/{slug}/.
func (c *Client) GetEbook(ctx context.Context, slug string) (viewmodel.Ebook, error) {
	var e model.Ebook
	if err := c.getBySlug(ctx, "get_ebook", "ebook", slug, schema.Ebook, &e); err != nil {
		return viewmodel.Ebook{}, err
	}
	return c.norm.Ebook(e), nil
}

// GetHome fetches the GET /home/ aggregate.
func (c *Client) GetHome(ctx context.Context) (viewmodel.Home, error) {
	var h model.HomeContent
	if err := c.do(ctx, "get_home", http.MethodGet, "/home/", nil, schema.Home, &h); err != nil {
		return viewmodel.Home{}, err
	}
	return c.norm.Home(h), nil
}

// SubmitEbookDownload posts a lead to POST /download-ebook/. A 2xx reply
// with success=false is returned together with an IMMO_BUSINESS_REJECTION
// error carrying the server message.
func (c *Client) SubmitEbookDownload(ctx context.Context, req model.EbookDownloadRequest) (model.EbookDownloadResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return model.EbookDownloadResponse{}, immoerrors.Wrap(immoerrors.IMMO_INTERNAL, "encode download request", err)
	}

	var resp model.EbookDownloadResponse
	if err := c.do(ctx, "submit_ebook_download", http.MethodPost, "/download-ebook/", body, schema.DownloadResponse, &resp); err != nil {
		return model.EbookDownloadResponse{}, err
	}
	if !resp.Success {
		e := immoerrors.NewWithDetails(immoerrors.IMMO_BUSINESS_REJECTION, resp.Message, "", resp)
		return resp, e
	}
	return resp, nil
}

func (c *Client) getBySlug(ctx context.Context, op, kind, slug, contract string, out interface{}) error {
	if slug == "" {
		return immoerrors.New(immoerrors.IMMO_NOT_FOUND, kind+" slug is empty", "")
	}
	return c.do(ctx, op, http.MethodGet, "/"+kind+"/"+url.PathEscape(slug)+"/", nil, contract, out)
}

// do performs one round-trip and decodes a 2xx body into out after checking
// it against contract.
func (c *Client) do(ctx context.Context, op, method, path string, body []byte, contract string, out interface{}) (err error) {
	ctx, span := otel.Tracer("immoshift/content").Start(ctx, "content."+op)
	defer span.End()
	span.SetAttributes(attribute.String("http.method", method), attribute.String("content.path", path))

	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = strings.ToLower(strings.TrimPrefix(string(immoerrors.CodeOf(err)), "IMMO_"))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		c.metrics.ObserveUpstream(op, status, start)
	}()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return immoerrors.Wrap(immoerrors.IMMO_INTERNAL, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return immoerrors.Wrap(immoerrors.IMMO_TRANSPORT, op+" request failed", err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return immoerrors.New(immoerrors.IMMO_NOT_FOUND, op+": not found", "")
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return immoerrors.New(immoerrors.IMMO_TRANSPORT, fmt.Sprintf("%s: unexpected status %s", op, resp.Status), "")
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return immoerrors.Wrap(immoerrors.IMMO_TRANSPORT, op+": read body", err)
	}
	if err := c.contracts.Validate(contract, raw); err != nil {
		return immoerrors.Wrap(immoerrors.IMMO_TRANSPORT, op+": malformed response", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return immoerrors.Wrap(immoerrors.IMMO_TRANSPORT, op+": decode response", err)
	}
	return nil
}
