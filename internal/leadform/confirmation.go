package leadform

import (
	"sync"
	"time"
)

// DownloadDelay separates arrival on the confirmation view from the automatic
// download, so browsers treat it as user-initiated.
const DownloadDelay = 500 * time.Millisecond

// Download is one file download request.
type Download struct {
	URL      string
	Filename string
}

// Timer is a pending scheduled call.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Filename returns "<title>.pdf", or "ebook.pdf" when title is empty.
func Filename(title string) string {
	if title == "" {
		title = "ebook"
	}
	return title + ".pdf"
}

// Confirmation schedules the automatic download of the confirmation view and
// exposes the manual re-trigger. It is safe for concurrent use.
type Confirmation struct {
	state     NavigationState
	trigger   func(Download)
	scheduler Scheduler

	mu      sync.Mutex
	started bool
	stopped bool
	timer   Timer
}

// ConfirmationOption configures a Confirmation.
type ConfirmationOption func(*Confirmation)

// WithScheduler replaces the wall-clock scheduler.
func WithScheduler(s Scheduler) ConfirmationOption {
	return func(c *Confirmation) { c.scheduler = s }
}

// NewConfirmation returns a Confirmation that calls trigger for state's file.
func NewConfirmation(state NavigationState, trigger func(Download), opts ...ConfirmationOption) *Confirmation {
	c := &Confirmation{state: state, trigger: trigger, scheduler: realScheduler{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Download returns the file the view offers.
func (c *Confirmation) Download() Download {
	return Download{URL: c.state.DownloadURL, Filename: Filename(c.state.EbookTitle)}
}

// Start schedules the automatic download once. Later calls, calls after Stop
// and states without a URL do nothing.
func (c *Confirmation) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.stopped || c.state.DownloadURL == "" {
		return
	}
	c.started = true
	c.timer = c.scheduler.AfterFunc(DownloadDelay, c.fire)
}

func (c *Confirmation) fire() {
	c.mu.Lock()
	stopped := c.stopped
	c.timer = nil
	c.mu.Unlock()
	if !stopped {
		c.trigger(c.Download())
	}
}

// Retrigger downloads immediately, as the view's manual control does.
func (c *Confirmation) Retrigger() {
	c.mu.Lock()
	stopped := c.stopped
	c.mu.Unlock()
	if stopped || c.state.DownloadURL == "" {
		return
	}
	c.trigger(c.Download())
}

// Stop cancels a pending automatic download. The view is gone after Stop, so
// Retrigger is disabled too.
func (c *Confirmation) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
