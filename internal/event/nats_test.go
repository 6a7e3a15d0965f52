package event

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJS struct {
	mu   sync.Mutex
	msgs []*nats.Msg
	err  error
}

func (f *fakeJS) Publish(subj string, data []byte, _ ...nats.PubOpt) (*nats.PubAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.msgs = append(f.msgs, &nats.Msg{Subject: subj, Data: data})
	return &nats.PubAck{Stream: StreamLeads, Sequence: uint64(len(f.msgs))}, nil
}

func newTestPub(js *fakeJS, now *time.Time) *natsPub {
	p := newNatsPub(nil, js, nil)
	p.now = func() time.Time { return *now }
	return p
}

var lead = Lead{EbookID: 4, EbookTitle: "Guide", FirstName: "Léa", LastName: "Martin", Email: "Lea@Example.fr", ConsentMailing: true}

func TestPublishEbookDownloaded(t *testing.T) {
	js := &fakeJS{}
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	p := newTestPub(js, &now)

	require.NoError(t, p.PublishEbookDownloaded(context.Background(), "corr-1", lead))
	require.Len(t, js.msgs, 1)
	assert.Equal(t, SubjectEbookDownloaded, js.msgs[0].Subject)

	var env struct {
		Type          string    `json:"type"`
		Version       string    `json:"version"`
		OccurredAt    time.Time `json:"occurredAt"`
		CorrelationID string    `json:"correlationId"`
		Payload       Lead      `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(js.msgs[0].Data, &env))
	assert.Equal(t, SubjectEbookDownloaded, env.Type)
	assert.Equal(t, "1.0.0", env.Version)
	assert.Equal(t, "corr-1", env.CorrelationID)
	assert.True(t, env.OccurredAt.Equal(now))
	assert.Equal(t, lead, env.Payload)
}

func TestPublishDeduplicatesWithinWindow(t *testing.T) {
	js := &fakeJS{}
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	p := newTestPub(js, &now)
	ctx := context.Background()

	require.NoError(t, p.PublishEbookDownloaded(ctx, "", lead))
	again := lead
	again.Email = " lea@example.fr "
	require.NoError(t, p.PublishEbookDownloaded(ctx, "", again))
	assert.Len(t, js.msgs, 1, "same ebook and email inside the window")

	other := lead
	other.EbookID = 5
	require.NoError(t, p.PublishEbookDownloaded(ctx, "", other))
	assert.Len(t, js.msgs, 2)

	now = now.Add(dedupWindow)
	require.NoError(t, p.PublishEbookDownloaded(ctx, "", lead))
	assert.Len(t, js.msgs, 3, "window elapsed")
}

func TestPublishFailureReleasesDedup(t *testing.T) {
	js := &fakeJS{err: errors.New("no responders")}
	now := time.Now()
	p := newTestPub(js, &now)

	assert.Error(t, p.PublishEbookDownloaded(context.Background(), "", lead))

	js.err = nil
	require.NoError(t, p.PublishEbookDownloaded(context.Background(), "", lead))
	assert.Len(t, js.msgs, 1, "a failed publish must not block the retry")
}

func TestPublishGeneratesCorrelationID(t *testing.T) {
	js := &fakeJS{}
	now := time.Now()
	p := newTestPub(js, &now)
	require.NoError(t, p.PublishEbookDownloaded(context.Background(), "", lead))

	var env EventEnvelope
	require.NoError(t, json.Unmarshal(js.msgs[0].Data, &env))
	assert.Len(t, env.CorrelationID, 36)
}

func TestNewPublisherWithoutURL(t *testing.T) {
	p := NewPublisher("", nil)
	assert.NoError(t, p.PublishEbookDownloaded(context.Background(), "", lead))
	assert.NoError(t, p.Close())
}
