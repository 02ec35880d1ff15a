package tasks

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/desertthunder/gerak/internal/shared"
	tu "github.com/desertthunder/gerak/internal/testing"
)

type harness struct {
	loop     *CaptureLoop
	source   *tu.StubSource
	analyzer *tu.MockAnalyzer
	ticker   *tu.ManualTicker
	events   chan Event
}

func newHarness(analyzer *tu.MockAnalyzer) *harness {
	h := &harness{
		source:   &tu.StubSource{Width: 64, Height: 48},
		analyzer: analyzer,
		ticker:   tu.NewManualTicker(),
		events:   make(chan Event, 32),
	}
	h.loop = NewCaptureLoop(LoopOpts{
		Source:      h.source,
		Analyzer:    analyzer,
		JPEGQuality: 80,
		Logger:      shared.NewLogger(io.Discard),
		Ticker:      h.ticker.New,
	})
	return h
}

func (h *harness) sink(ev Event) {
	select {
	case h.events <- ev:
	default:
	}
}

func (h *harness) start(t *testing.T, movement string, gen uint64) {
	t.Helper()
	if err := h.loop.Start(context.Background(), movement, gen, h.sink); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func (h *harness) next(t *testing.T, want EventKind) Event {
	t.Helper()
	select {
	case ev := <-h.events:
		if ev.Kind != want {
			t.Fatalf("expected %s event, got %s (err=%v)", want, ev.Kind, ev.Err)
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s event", want)
	}
	return Event{}
}

func (h *harness) none(t *testing.T) {
	t.Helper()
	select {
	case ev := <-h.events:
		t.Fatalf("expected no event, got %s", ev.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCaptureLoop(t *testing.T) {
	t.Run("Tick Sends Frame And Movement", func(t *testing.T) {
		h := newHarness(&tu.MockAnalyzer{Result: tu.SampleResult("Hebat!")})
		h.start(t, "Berjalan", 1)
		defer h.loop.Stop()

		h.ticker.Tick(t)

		started := h.next(t, EventTickStarted)
		if started.Generation != 1 || started.Movement != "Berjalan" || started.TickID == "" {
			t.Errorf("unexpected tick event %+v", started)
		}
		if started.Frame == nil || started.Frame.Width != 64 || started.Frame.Height != 48 {
			t.Errorf("expected 64x48 frame on tick event, got %+v", started.Frame)
		}

		res := h.next(t, EventResult)
		if res.TickID != started.TickID || res.Result.Text != "Hebat!" {
			t.Errorf("unexpected result event %+v", res)
		}

		calls := h.analyzer.Calls()
		if len(calls) != 1 || calls[0].Movement != "Berjalan" || calls[0].MIMEType != "image/jpeg" || calls[0].Size == 0 {
			t.Errorf("unexpected analyzer calls %+v", calls)
		}
	})

	t.Run("Busy Tick Is Skipped", func(t *testing.T) {
		block := make(chan struct{})
		h := newHarness(&tu.MockAnalyzer{Result: tu.SampleResult("ok"), Block: block, Started: make(chan string, 4)})
		h.start(t, "Berlari", 1)
		defer h.loop.Stop()

		h.ticker.Tick(t)
		h.next(t, EventTickStarted)
		<-h.analyzer.Started

		h.ticker.Tick(t)
		h.next(t, EventTickSkipped)
		h.ticker.Tick(t)
		h.next(t, EventTickSkipped)

		close(block)
		h.next(t, EventResult)

		h.ticker.Tick(t)
		h.next(t, EventTickStarted)
		h.next(t, EventResult)

		if n := len(h.analyzer.Calls()); n != 2 {
			t.Errorf("expected 2 requests, got %d", n)
		}
		if m := h.analyzer.MaxInFlight(); m != 1 {
			t.Errorf("expected at most one request in flight, got %d", m)
		}
	})

	t.Run("Failure Keeps Ticking", func(t *testing.T) {
		h := newHarness(&tu.MockAnalyzer{Err: shared.ErrAPIRequest})
		h.start(t, "Melompat", 3)
		defer h.loop.Stop()

		for range 3 {
			h.ticker.Tick(t)
			h.next(t, EventTickStarted)
			ev := h.next(t, EventFailed)
			if !errors.Is(ev.Err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", ev.Err)
			}
		}
		if h.loop.Running() != 1 {
			t.Errorf("expected loop to keep running, got %d", h.loop.Running())
		}
	})

	t.Run("Nil Result Is A Failure", func(t *testing.T) {
		h := newHarness(&tu.MockAnalyzer{})
		h.start(t, "Berjalan", 1)
		defer h.loop.Stop()

		h.ticker.Tick(t)
		h.next(t, EventTickStarted)
		if ev := h.next(t, EventFailed); !errors.Is(ev.Err, shared.ErrInvalidResponse) {
			t.Errorf("expected ErrInvalidResponse, got %v", ev.Err)
		}
	})

	t.Run("Frame Error Is A Failure", func(t *testing.T) {
		h := newHarness(&tu.MockAnalyzer{Result: tu.SampleResult("x")})
		h.source.FrameErr = shared.ErrCameraUnavailable
		h.start(t, "Berjalan", 1)
		defer h.loop.Stop()

		h.ticker.Tick(t)
		h.next(t, EventFailed)
		if len(h.analyzer.Calls()) != 0 {
			t.Error("expected no request without a frame")
		}

		h.ticker.Tick(t)
		h.next(t, EventFailed)
	})

	t.Run("Stop Discards In-Flight Result", func(t *testing.T) {
		block := make(chan struct{})
		h := newHarness(&tu.MockAnalyzer{Result: tu.SampleResult("late"), Block: block, Started: make(chan string, 1)})
		h.start(t, "Berjalan", 1)

		h.ticker.Tick(t)
		h.next(t, EventTickStarted)
		<-h.analyzer.Started

		h.loop.Stop()
		close(block)
		h.loop.Wait()

		h.none(t)
		if h.loop.Running() != 0 {
			t.Errorf("expected no ticker after stop, got %d", h.loop.Running())
		}
		if h.source.Live() != 0 {
			t.Errorf("expected camera released, %d streams open", h.source.Live())
		}
		if h.ticker.Active() != 0 {
			t.Errorf("expected ticker stopped, %d active", h.ticker.Active())
		}
	})

	t.Run("Toggling Never Leaks Tickers", func(t *testing.T) {
		h := newHarness(&tu.MockAnalyzer{Result: tu.SampleResult("x")})

		for gen := uint64(1); gen <= 5; gen++ {
			h.start(t, "Berjalan", gen)
			if h.loop.Running() != 1 {
				t.Fatalf("expected one ticker, got %d", h.loop.Running())
			}
			h.loop.Stop()
			if h.loop.Running() != 0 {
				t.Fatalf("expected no ticker, got %d", h.loop.Running())
			}
		}
		h.loop.Stop()

		if h.source.Opened() != 5 || h.source.Live() != 0 {
			t.Errorf("expected 5 opens all released, got opened=%d live=%d", h.source.Opened(), h.source.Live())
		}
	})

	t.Run("Restart Replaces Run", func(t *testing.T) {
		h := newHarness(&tu.MockAnalyzer{Result: tu.SampleResult("x")})
		h.start(t, "Berjalan", 1)
		h.start(t, "Berlari", 2)
		defer h.loop.Stop()

		if h.loop.Running() != 1 || h.source.Live() != 1 {
			t.Fatalf("expected a single run, got running=%d live=%d", h.loop.Running(), h.source.Live())
		}

		h.ticker.Tick(t)
		ev := h.next(t, EventTickStarted)
		if ev.Generation != 2 || ev.Movement != "Berlari" {
			t.Errorf("expected events of the new run, got %+v", ev)
		}
	})

	t.Run("Open Failure", func(t *testing.T) {
		h := newHarness(&tu.MockAnalyzer{})
		h.source.OpenErr = shared.ErrCameraUnavailable

		err := h.loop.Start(context.Background(), "Berjalan", 1, h.sink)
		if !errors.Is(err, shared.ErrCameraUnavailable) {
			t.Errorf("expected ErrCameraUnavailable, got %v", err)
		}
		if h.loop.Running() != 0 || h.ticker.Active() != 0 {
			t.Error("expected nothing running after a failed start")
		}
	})

	t.Run("Context Cancel Releases Camera", func(t *testing.T) {
		h := newHarness(&tu.MockAnalyzer{})
		ctx, cancel := context.WithCancel(context.Background())
		if err := h.loop.Start(ctx, "Berjalan", 1, h.sink); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		cancel()
		tu.Eventually(t, func() bool { return h.loop.Running() == 0 }, "ticker exits on cancel")
		tu.Eventually(t, func() bool { return h.source.Live() == 0 }, "camera released on cancel")
		h.loop.Stop()
	})

	t.Run("Missing Dependencies", func(t *testing.T) {
		loop := NewCaptureLoop(LoopOpts{Logger: shared.NewLogger(io.Discard)})
		if err := loop.Start(context.Background(), "Berjalan", 1, nil); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestEventKind(t *testing.T) {
	for kind, want := range map[EventKind]string{
		EventTickStarted: "tick_started",
		EventTickSkipped: "tick_skipped",
		EventResult:      "result",
		EventFailed:      "failed",
		EventKind(99):    "",
	} {
		if got := kind.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", kind, got, want)
		}
	}
}
