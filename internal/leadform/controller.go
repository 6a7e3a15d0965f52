package leadform

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	immoerrors "github.com/immoshift/immoshift-web/internal/errors"
	"github.com/immoshift/immoshift-web/internal/metrics"
	"github.com/immoshift/immoshift-web/internal/model"
)

// MsgSubmitFailed is shown when the server gave no message of its own.
const MsgSubmitFailed = "Échec du traitement du téléchargement. Veuillez réessayer."

// ErrInFlight is returned when Submit is called while a submission is pending.
var ErrInFlight = stderrors.New("leadform: submission already in flight")

// State of the form.
type State int

const (
	Editing State = iota
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Editing:
		return "editing"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// EbookRef identifies the e-book the form belongs to.
type EbookRef struct {
	ID    int64
	Title string
}

// NavigationState is carried to the confirmation view.
type NavigationState struct {
	EbookTitle  string `json:"ebookTitle"`
	DownloadURL string `json:"downloadUrl"`
}

// Submitter sends a download request to the content API.
type Submitter interface {
	SubmitEbookDownload(ctx context.Context, req model.EbookDownloadRequest) (model.EbookDownloadResponse, error)
}

// Navigator moves to the confirmation view, replacing the form in history.
type Navigator interface {
	Replace(ctx context.Context, state NavigationState) error
}

// Result describes the outcome of one Submit call.
type Result struct {
	// State is where this attempt ended: Editing on validation failure,
	// Succeeded or Failed otherwise.
	State       State
	FieldErrors FieldErrors
	Message     string
	Navigation  *NavigationState
	Err         error
}

// Controller runs the submission state machine. Transitions are serialized;
// the network call itself runs without holding the lock.
type Controller struct {
	submitter Submitter
	navigator Navigator
	metrics   *metrics.Metrics

	mu    sync.Mutex
	state State
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithMetrics counts submissions by outcome.
func WithMetrics(m *metrics.Metrics) ControllerOption {
	return func(c *Controller) { c.metrics = m }
}

// NewController returns a Controller in the Editing state.
func NewController(s Submitter, n Navigator, opts ...ControllerOption) *Controller {
	c := &Controller{submitter: s, navigator: n}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Submit validates form and, when valid, sends it for ebook. On success the
// navigator is asked to replace the current view. A failed attempt leaves the
// controller in Editing so the visitor can resubmit.
func (c *Controller) Submit(ctx context.Context, ebook EbookRef, form Form) Result {
	if errs := Validate(form); !errs.Valid() {
		c.count("invalid")
		return Result{State: Editing, FieldErrors: errs}
	}

	c.mu.Lock()
	if c.state == Submitting {
		c.mu.Unlock()
		return Result{State: Submitting, Err: ErrInFlight}
	}
	c.state = Submitting
	c.mu.Unlock()

	res := c.send(ctx, ebook, form)

	c.mu.Lock()
	if res.State == Succeeded {
		c.state = Succeeded
	} else {
		c.state = Editing
	}
	c.mu.Unlock()
	return res
}

func (c *Controller) send(ctx context.Context, ebook EbookRef, form Form) Result {
	req := model.EbookDownloadRequest{
		Ebook:          ebook.ID,
		FirstName:      form.FirstName,
		LastName:       form.LastName,
		Email:          form.Email,
		Phone:          form.Phone,
		ConsentMailing: form.ConsentMailing,
	}

	resp, err := c.submitter.SubmitEbookDownload(ctx, req)
	if err != nil {
		c.count(outcomeLabel(err))
		return Result{State: Failed, Message: failureMessage(err), Err: err}
	}
	if !resp.Success || resp.DownloadURL == "" {
		c.count("rejected")
		msg := resp.Message
		if msg == "" {
			msg = MsgSubmitFailed
		}
		return Result{
			State:   Failed,
			Message: msg,
			Err:     immoerrors.New(immoerrors.IMMO_BUSINESS_REJECTION, msg, ""),
		}
	}

	title := ebook.Title
	if title == "" {
		title = resp.EbookTitle
	}
	nav := NavigationState{EbookTitle: title, DownloadURL: resp.DownloadURL}
	if err := c.navigator.Replace(ctx, nav); err != nil {
		c.count("navigation_error")
		return Result{State: Failed, Message: MsgSubmitFailed, Err: fmt.Errorf("replace navigation: %w", err)}
	}
	c.count("succeeded")
	return Result{State: Succeeded, Navigation: &nav}
}

// failureMessage returns the server message of a business rejection and the
// generic message for anything else.
func failureMessage(err error) string {
	var e *immoerrors.Error
	if stderrors.As(err, &e) && e.Code == immoerrors.IMMO_BUSINESS_REJECTION && e.Message != "" {
		return e.Message
	}
	return MsgSubmitFailed
}

func outcomeLabel(err error) string {
	if immoerrors.HasCode(err, immoerrors.IMMO_BUSINESS_REJECTION) {
		return "rejected"
	}
	return "transport_error"
}

func (c *Controller) count(outcome string) {
	if c.metrics != nil {
		c.metrics.LeadSubmissionTotal.WithLabelValues(outcome).Inc()
	}
}
