// internal/event/nats.go
// Package event publishes lead-capture events to NATS JetStream so the CRM
// side can follow up on e-book downloads.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/immoshift/immoshift-web/internal/metrics"
)

// Stream and subject names.
const (
	StreamLeads            = "IMMO_LEADS"
	SubjectEbookDownloaded = "immoshift.leads.ebook_downloaded"
	envelopeVersion        = "1.0.0"
	dedupWindow            = 2 * time.Minute
)

// Lead is the payload of an e-book download event.
type Lead struct {
	EbookID        int64  `json:"ebookId"`
	EbookTitle     string `json:"ebookTitle"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	Phone          string `json:"phone,omitempty"`
	ConsentMailing bool   `json:"consentMailing"`
}

// Publisher publishes lead events.
type Publisher interface {
	PublishEbookDownloaded(ctx context.Context, correlationID string, lead Lead) error

	// Close closes the publisher connection
	Close() error
}

// noop is used when NATS is not configured or unreachable.
type noop struct{}

// NewNoop returns a Publisher that drops every event.
func NewNoop() Publisher { return noop{} }

func (noop) Close() error { return nil }

func (noop) PublishEbookDownloaded(context.Context, string, Lead) error { return nil }

// jetStream is the subset of nats.JetStreamContext the publisher uses.
type jetStream interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// natsPub is the NATS JetStream implementation of Publisher.
type natsPub struct {
	nc      *nats.Conn
	js      jetStream
	metrics *metrics.Metrics
	now     func() time.Time

	// last publish per ebook/email pair, to drop double submissions
	dedup map[string]time.Time
	mutex sync.Mutex
}

// NewPublisher connects to url. An empty url, or any connection or stream
// setup failure, yields the no-op publisher.
func NewPublisher(url string, m *metrics.Metrics) Publisher {
	if url == "" {
		return NewNoop()
	}

	nc, err := nats.Connect(url, nats.Name("immoshift-web"))
	if err != nil {
		slog.Warn("NATS connect failed, using noop publisher", "error", err)
		return NewNoop()
	}

	js, err := nc.JetStream()
	if err != nil {
		slog.Warn("NATS JetStream context creation failed, using noop publisher", "error", err)
		nc.Close()
		return NewNoop()
	}

	if err := initStreams(js); err != nil {
		slog.Warn("NATS stream initialization failed, using noop publisher", "error", err)
		nc.Close()
		return NewNoop()
	}

	return newNatsPub(nc, js, m)
}

func newNatsPub(nc *nats.Conn, js jetStream, m *metrics.Metrics) *natsPub {
	return &natsPub{nc: nc, js: js, metrics: m, now: time.Now, dedup: make(map[string]time.Time)}
}

// initStreams creates the IMMO_LEADS stream. Leads are kept for a week so
// a stalled consumer can catch up.
func initStreams(js nats.JetStreamContext) error {
	_, err := js.AddStream(&nats.StreamConfig{
		Name:      StreamLeads,
		Subjects:  []string{"immoshift.leads.*"},
		Retention: nats.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Discard:   nats.DiscardOld,
		Storage:   nats.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("failed to create %s stream: %w", StreamLeads, err)
	}
	return nil
}

// EventEnvelope represents the standard event envelope structure.
type EventEnvelope struct {
	Type          string      `json:"type"`
	Version       string      `json:"version"`
	OccurredAt    time.Time   `json:"occurredAt"`
	CorrelationID string      `json:"correlationId"`
	Payload       interface{} `json:"payload"`
}

func (p *natsPub) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}

// claim reports whether key may be published now and, if so, records it.
// Entries older than the window are swept on the way.
func (p *natsPub) claim(key string) bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	now := p.now()
	for k, t := range p.dedup {
		if now.Sub(t) >= dedupWindow {
			delete(p.dedup, k)
		}
	}
	if _, recent := p.dedup[key]; recent {
		return false
	}
	p.dedup[key] = now
	return true
}

func (p *natsPub) release(key string) {
	p.mutex.Lock()
	delete(p.dedup, key)
	p.mutex.Unlock()
}

// PublishEbookDownloaded publishes lead on the downloaded subject. A repeat
// for the same e-book and e-mail inside the dedup window is dropped.
func (p *natsPub) PublishEbookDownloaded(ctx context.Context, correlationID string, lead Lead) (err error) {
	key := fmt.Sprintf("%d:%s", lead.EbookID, strings.ToLower(strings.TrimSpace(lead.Email)))
	if !p.claim(key) {
		p.metrics.ObservePublish(SubjectEbookDownloaded, "deduplicated", p.now())
		return nil
	}

	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
			p.release(key)
		}
		p.metrics.ObservePublish(SubjectEbookDownloaded, status, start)
	}()

	if correlationID == "" {
		correlationID = uuid.New().String()
	}
	envelope := EventEnvelope{
		Type:          SubjectEbookDownloaded,
		Version:       envelopeVersion,
		OccurredAt:    p.now().UTC(),
		CorrelationID: correlationID,
		Payload:       lead,
	}

	b, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	if _, err = p.js.Publish(SubjectEbookDownloaded, b, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish %s: %w", SubjectEbookDownloaded, err)
	}
	return nil
}
