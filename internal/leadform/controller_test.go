package leadform

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	immoerrors "github.com/immoshift/immoshift-web/internal/errors"
	"github.com/immoshift/immoshift-web/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubSubmitter struct {
	mu    sync.Mutex
	calls []model.EbookDownloadRequest
	resp  model.EbookDownloadResponse
	err   error
	block chan struct{}
}

func (s *stubSubmitter) SubmitEbookDownload(ctx context.Context, req model.EbookDownloadRequest) (model.EbookDownloadResponse, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()
	if s.block != nil {
		<-s.block
	}
	return s.resp, s.err
}

func (s *stubSubmitter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type stubNavigator struct {
	states []NavigationState
	err    error
}

func (n *stubNavigator) Replace(_ context.Context, s NavigationState) error {
	n.states = append(n.states, s)
	return n.err
}

// fakeScheduler records scheduled calls and runs them on demand.
type fakeScheduler struct {
	mu      sync.Mutex
	pending []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	s.pending = append(s.pending, t)
	return t
}

// advance fires every live timer due within d.
func (s *fakeScheduler) advance(d time.Duration) {
	s.mu.Lock()
	var due, later []*fakeTimer
	for _, t := range s.pending {
		if t.d <= d {
			due = append(due, t)
		} else {
			later = append(later, t)
		}
	}
	s.pending = later
	s.mu.Unlock()
	for _, t := range due {
		if !t.stopped {
			t.f()
		}
	}
}

var validForm = Form{FirstName: "Léa", LastName: "Martin", Email: "lea@example.fr", ConsentMailing: true}

func TestSubmitInvalidStaysEditing(t *testing.T) {
	sub := &stubSubmitter{}
	c := NewController(sub, &stubNavigator{})

	res := c.Submit(context.Background(), EbookRef{ID: 1}, Form{FirstName: "Léa", LastName: "Martin", Email: "not-an-email"})

	assert.Equal(t, Editing, res.State)
	assert.Equal(t, FieldErrors{FieldEmail: MsgInvalidEmail}, res.FieldErrors)
	assert.Equal(t, Editing, c.State())
	assert.Equal(t, 0, sub.callCount(), "validation failure must not reach the network")
}

func TestSubmitHappyPath(t *testing.T) {
	sub := &stubSubmitter{resp: model.EbookDownloadResponse{Success: true, DownloadURL: "https://x/file.pdf"}}
	nav := &stubNavigator{}
	c := NewController(sub, nav)

	res := c.Submit(context.Background(), EbookRef{ID: 4, Title: "Guide LMNP"}, validForm)

	require.Equal(t, Succeeded, res.State)
	assert.NoError(t, res.Err)
	assert.Equal(t, Succeeded, c.State())
	require.Len(t, nav.states, 1)
	assert.Equal(t, NavigationState{EbookTitle: "Guide LMNP", DownloadURL: "https://x/file.pdf"}, nav.states[0])
	assert.Equal(t, int64(4), sub.calls[0].Ebook)
	assert.Empty(t, sub.calls[0].Phone)

	sched := &fakeScheduler{}
	var downloads []Download
	conf := NewConfirmation(*res.Navigation, func(d Download) { downloads = append(downloads, d) }, WithScheduler(sched))
	conf.Start()
	conf.Start()

	sched.advance(DownloadDelay - time.Millisecond)
	assert.Empty(t, downloads, "download fired before the delay")

	sched.advance(DownloadDelay)
	sched.advance(DownloadDelay)
	require.Len(t, downloads, 1)
	assert.Equal(t, Download{URL: "https://x/file.pdf", Filename: "Guide LMNP.pdf"}, downloads[0])
}

func TestSubmitHappyPathFiresOnceAfterDelay(t *testing.T) {
	sched := &fakeScheduler{}
	fired := 0
	conf := NewConfirmation(NavigationState{DownloadURL: "https://x/file.pdf"}, func(Download) { fired++ }, WithScheduler(sched))
	conf.Start()
	require.Len(t, sched.pending, 1)
	assert.Equal(t, DownloadDelay, sched.pending[0].d)
	sched.advance(DownloadDelay)
	assert.Equal(t, 1, fired)
}

func TestSubmitBusinessRejection(t *testing.T) {
	sub := &stubSubmitter{
		resp: model.EbookDownloadResponse{Success: false, Message: "quota exceeded"},
		err:  immoerrors.New(immoerrors.IMMO_BUSINESS_REJECTION, "quota exceeded", ""),
	}
	nav := &stubNavigator{}
	c := NewController(sub, nav)

	res := c.Submit(context.Background(), EbookRef{ID: 1}, validForm)

	assert.Equal(t, Failed, res.State)
	assert.Equal(t, "quota exceeded", res.Message)
	assert.Equal(t, Editing, c.State())
	assert.Empty(t, nav.states)
}

func TestSubmitFailureMessages(t *testing.T) {
	tests := []struct {
		name string
		resp model.EbookDownloadResponse
		err  error
		want string
	}{
		{"transport", model.EbookDownloadResponse{}, immoerrors.New(immoerrors.IMMO_TRANSPORT, "502", ""), MsgSubmitFailed},
		{"rejection without message", model.EbookDownloadResponse{}, immoerrors.New(immoerrors.IMMO_BUSINESS_REJECTION, "", ""), MsgSubmitFailed},
		{"success without url", model.EbookDownloadResponse{Success: true}, nil, MsgSubmitFailed},
		{"success without url with message", model.EbookDownloadResponse{Success: true, Message: "Fichier indisponible"}, nil, "Fichier indisponible"},
		{"unflagged body message", model.EbookDownloadResponse{Message: "E-book désactivé"}, nil, "E-book désactivé"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController(&stubSubmitter{resp: tt.resp, err: tt.err}, &stubNavigator{})
			res := c.Submit(context.Background(), EbookRef{ID: 1}, validForm)
			assert.Equal(t, Failed, res.State)
			assert.Equal(t, tt.want, res.Message)
			assert.Error(t, res.Err)
			assert.Equal(t, Editing, c.State())
		})
	}
}

func TestSubmitNavigatorFailure(t *testing.T) {
	sub := &stubSubmitter{resp: model.EbookDownloadResponse{Success: true, DownloadURL: "https://x/f.pdf"}}
	c := NewController(sub, &stubNavigator{err: errors.New("store down")})

	res := c.Submit(context.Background(), EbookRef{ID: 1}, validForm)
	assert.Equal(t, Failed, res.State)
	assert.Equal(t, MsgSubmitFailed, res.Message)
	assert.Equal(t, Editing, c.State())
}

func TestSubmitResubmitAfterFailure(t *testing.T) {
	sub := &stubSubmitter{err: immoerrors.New(immoerrors.IMMO_TRANSPORT, "down", "")}
	c := NewController(sub, &stubNavigator{})
	c.Submit(context.Background(), EbookRef{ID: 1}, validForm)

	sub.err = nil
	sub.resp = model.EbookDownloadResponse{Success: true, DownloadURL: "https://x/f.pdf"}
	res := c.Submit(context.Background(), EbookRef{ID: 1}, validForm)
	assert.Equal(t, Succeeded, res.State)
	assert.Equal(t, 2, sub.callCount())
}

func TestSubmitInFlight(t *testing.T) {
	sub := &stubSubmitter{
		resp:  model.EbookDownloadResponse{Success: true, DownloadURL: "https://x/f.pdf"},
		block: make(chan struct{}),
	}
	c := NewController(sub, &stubNavigator{})

	done := make(chan Result, 1)
	go func() { done <- c.Submit(context.Background(), EbookRef{ID: 1}, validForm) }()

	require.Eventually(t, func() bool { return c.State() == Submitting }, time.Second, time.Millisecond)

	second := c.Submit(context.Background(), EbookRef{ID: 1}, validForm)
	assert.ErrorIs(t, second.Err, ErrInFlight)

	close(sub.block)
	first := <-done
	assert.Equal(t, Succeeded, first.State)
	assert.Equal(t, 1, sub.callCount())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "editing", Editing.String())
	assert.Equal(t, "submitting", Submitting.String())
	assert.Equal(t, "succeeded", Succeeded.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "State(9)", State(9).String())
}
