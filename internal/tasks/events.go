package tasks

import (
	"time"

	"github.com/desertthunder/gerak/internal/capture"
	"github.com/desertthunder/gerak/internal/models"
)

// EventKind enumerates capture loop events.
type EventKind int

const (
	// EventTickStarted: a frame was grabbed and a request is about to be sent.
	EventTickStarted EventKind = iota
	// EventTickSkipped: a tick fired while a request was still in flight.
	EventTickSkipped
	EventResult
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventTickStarted:
		return "tick_started"
	case EventTickSkipped:
		return "tick_skipped"
	case EventResult:
		return "result"
	case EventFailed:
		return "failed"
	default:
		return ""
	}
}

// Event is one capture loop notification.
type Event struct {
	Kind       EventKind
	Generation uint64
	TickID     string
	Movement   string
	At         time.Time
	Elapsed    time.Duration            // request duration, set on Result and Failed
	Frame      *capture.Frame           // set on TickStarted
	Result     *models.AnalysisResponse // set on Result
	Err        error                    // set on Failed
}
