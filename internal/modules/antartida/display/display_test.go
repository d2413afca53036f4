package display

import (
	"errors"
	"sync"
	"testing"
	"time"

	"antartida-viewer/internal/modules/antartida/query"
	"antartida-viewer/internal/modules/antartida/types"
)

func fixedClock() func() time.Time {
	t := time.Date(2025, 2, 2, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func temp(v float64) *float64 { return &v }

func TestHolder_StartsIdle(t *testing.T) {
	h := NewHolder()
	if _, ok := h.Current().(Idle); !ok {
		t.Fatalf("Current() = %T; want Idle", h.Current())
	}
	if h.Busy() {
		t.Error("Busy() = true; want false")
	}
}

func TestHolder_SuccessCycle(t *testing.T) {
	h := NewHolderWithClock(fixedClock())
	sub, err := h.Begin(query.Descriptor{Station: types.StationJuanCarlosI})
	if err != nil {
		t.Fatalf("Begin() = %v", err)
	}
	if sub.ID == "" {
		t.Error("submission id empty")
	}
	if !h.Busy() {
		t.Error("Busy() = false while loading")
	}

	data := []types.Measurement{{Station: "a", Temperature: temp(1)}}
	if err := h.Resolve(sub, data); err != nil {
		t.Fatalf("Resolve() = %v", err)
	}
	s, ok := h.Current().(Success)
	if !ok {
		t.Fatalf("Current() = %T; want Success", h.Current())
	}
	if len(s.Data) != 1 || s.Query.Station != types.StationJuanCarlosI {
		t.Errorf("Success = %+v", s)
	}
	if s.SettledAt.IsZero() {
		t.Error("SettledAt is zero")
	}
}

func TestHolder_ErrorCycleAndRestart(t *testing.T) {
	h := NewHolder()
	sub, _ := h.Begin(query.Descriptor{})
	if err := h.Reject(sub, "station not found"); err != nil {
		t.Fatalf("Reject() = %v", err)
	}
	f, ok := h.Current().(Failed)
	if !ok {
		t.Fatalf("Current() = %T; want Failed", h.Current())
	}
	if f.Message != "station not found" {
		t.Errorf("Message = %q; want station not found", f.Message)
	}

	// A new submission clears the error.
	sub2, err := h.Begin(query.Descriptor{})
	if err != nil {
		t.Fatalf("Begin() after error = %v", err)
	}
	if _, ok := h.Current().(Loading); !ok {
		t.Fatalf("Current() = %T; want Loading", h.Current())
	}
	if err := h.Resolve(sub2, nil); err != nil {
		t.Fatalf("Resolve() = %v", err)
	}
}

func TestHolder_NewResultReplacesOld(t *testing.T) {
	h := NewHolder()
	sub, _ := h.Begin(query.Descriptor{})
	_ = h.Resolve(sub, []types.Measurement{{Station: "old"}, {Station: "old"}})

	sub, _ = h.Begin(query.Descriptor{})
	_ = h.Resolve(sub, []types.Measurement{{Station: "new"}})

	s := h.Current().(Success)
	if len(s.Data) != 1 || s.Data[0].Station != "new" {
		t.Errorf("Data = %+v; want only the new result", s.Data)
	}
}

func TestHolder_BusyRejectsSecondSubmission(t *testing.T) {
	h := NewHolder()
	sub, _ := h.Begin(query.Descriptor{})
	if _, err := h.Begin(query.Descriptor{}); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Begin() = %v; want ErrBusy", err)
	}
	// The first submission is still the one in flight.
	if err := h.Resolve(sub, nil); err != nil {
		t.Errorf("Resolve(first) = %v", err)
	}
}

func TestHolder_SettleWithoutLoading(t *testing.T) {
	h := NewHolder()
	if err := h.Resolve(Submission{ID: "x"}, nil); !errors.Is(err, ErrNotLoading) {
		t.Errorf("Resolve() from Idle = %v; want ErrNotLoading", err)
	}
	if err := h.Reject(Submission{ID: "x"}, "m"); !errors.Is(err, ErrNotLoading) {
		t.Errorf("Reject() from Idle = %v; want ErrNotLoading", err)
	}

	sub, _ := h.Begin(query.Descriptor{})
	if err := h.Resolve(Submission{ID: "stale"}, nil); !errors.Is(err, ErrNotLoading) {
		t.Errorf("Resolve(stale) = %v; want ErrNotLoading", err)
	}
	_ = h.Resolve(sub, nil)
	if err := h.Reject(sub, "late"); !errors.Is(err, ErrNotLoading) {
		t.Errorf("Reject() after settle = %v; want ErrNotLoading", err)
	}
	if _, ok := h.Current().(Success); !ok {
		t.Errorf("Current() = %T; want Success unchanged", h.Current())
	}
}

func TestHolder_SingleInFlightUnderContention(t *testing.T) {
	h := NewHolder()
	const n = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.Begin(query.Descriptor{}); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if accepted != 1 {
		t.Errorf("accepted = %d; want 1", accepted)
	}
}

func TestStateNames(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Idle{}, "idle"},
		{Loading{}, "loading"},
		{Success{}, "success"},
		{Failed{}, "error"},
	}
	for _, tt := range tests {
		if got := tt.state.Name(); got != tt.want {
			t.Errorf("%T.Name() = %q; want %q", tt.state, got, tt.want)
		}
	}
}

func TestHolder_StateName(t *testing.T) {
	h := NewHolder()
	if got := h.StateName(); got != "idle" {
		t.Errorf("StateName() = %q; want idle", got)
	}
	sub, err := h.Begin(query.Descriptor{})
	if err != nil {
		t.Fatalf("Begin() = %v", err)
	}
	if got := h.StateName(); got != "loading" {
		t.Errorf("StateName() = %q; want loading", got)
	}
	if err := h.Reject(sub, "boom"); err != nil {
		t.Fatalf("Reject() = %v", err)
	}
	if got := h.StateName(); got != "error" {
		t.Errorf("StateName() = %q; want error", got)
	}
}
