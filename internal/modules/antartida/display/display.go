// Package display holds the single display state of the viewer:
// Idle, Loading, Success or Failed.
package display

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"antartida-viewer/internal/modules/antartida/query"
	"antartida-viewer/internal/modules/antartida/types"
)

var (
	// ErrBusy is returned by Begin while a request is in flight.
	ErrBusy = errors.New("a query is already in progress")
	// ErrNotLoading is returned when settling a submission that is not the
	// one in flight.
	ErrNotLoading = errors.New("no matching query in progress")
)

// State is one of Idle, Loading, Success or Failed.
type State interface {
	Name() string
	isState()
}

type Idle struct{}

type Loading struct {
	Submission Submission
}

type Success struct {
	Query     query.Descriptor
	Data      []types.Measurement
	SettledAt time.Time
}

type Failed struct {
	Query     query.Descriptor
	Message   string
	SettledAt time.Time
}

func (Idle) Name() string    { return "idle" }
func (Loading) Name() string { return "loading" }
func (Success) Name() string { return "success" }
func (Failed) Name() string  { return "error" }

func (Idle) isState()    {}
func (Loading) isState() {}
func (Success) isState() {}
func (Failed) isState()  {}

// Submission identifies one in-flight request.
type Submission struct {
	ID        string
	Query     query.Descriptor
	StartedAt time.Time
}

// Holder owns the current state. All transitions go through it.
type Holder struct {
	mu    sync.Mutex
	state State
	now   func() time.Time
}

func NewHolder() *Holder {
	return &Holder{state: Idle{}, now: time.Now}
}

// NewHolderWithClock is NewHolder with an injected clock.
func NewHolderWithClock(now func() time.Time) *Holder {
	return &Holder{state: Idle{}, now: now}
}

func (h *Holder) Current() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// StateName is the name of the current state.
func (h *Holder) StateName() string {
	return h.Current().Name()
}

// Busy reports whether a request is in flight.
func (h *Holder) Busy() bool {
	_, ok := h.Current().(Loading)
	return ok
}

// Begin moves Idle, Success or Failed to Loading, dropping any previous
// error or data.
func (h *Holder) Begin(q query.Descriptor) (Submission, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.state.(Loading); ok {
		return Submission{}, ErrBusy
	}
	sub := Submission{
		ID:        uuid.NewString(),
		Query:     q,
		StartedAt: h.now(),
	}
	h.state = Loading{Submission: sub}
	return sub, nil
}

// Resolve moves Loading to Success. data replaces any earlier result.
func (h *Holder) Resolve(sub Submission, data []types.Measurement) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkInFlight(sub); err != nil {
		return err
	}
	h.state = Success{Query: sub.Query, Data: data, SettledAt: h.now()}
	return nil
}

// Reject moves Loading to Failed with a user-facing message.
func (h *Holder) Reject(sub Submission, message string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkInFlight(sub); err != nil {
		return err
	}
	h.state = Failed{Query: sub.Query, Message: message, SettledAt: h.now()}
	return nil
}

func (h *Holder) checkInFlight(sub Submission) error {
	loading, ok := h.state.(Loading)
	if !ok || loading.Submission.ID != sub.ID {
		return ErrNotLoading
	}
	return nil
}
