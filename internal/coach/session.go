package coach

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/gerak/internal/capture"
	"github.com/desertthunder/gerak/internal/models"
	"github.com/desertthunder/gerak/internal/shared"
	"github.com/desertthunder/gerak/internal/tasks"
)

const defaultEventBuffer = 64

// Loop is the capture loop contract a session drives. [tasks.CaptureLoop] implements it.
type Loop interface {
	Start(ctx context.Context, movementName string, generation uint64, sink func(tasks.Event)) error
	Stop()
	Running() int
}

// Stats counts applied loop events.
type Stats struct {
	Ticks    int `json:"ticks"`
	Skipped  int `json:"skipped"`
	Results  int `json:"results"`
	Failures int `json:"failures"`
	Dropped  int `json:"dropped"`
}

// Snapshot is a copy of the session state for rendering.
type Snapshot struct {
	SessionID  string                   `json:"session_id"`
	Movement   *models.Movement         `json:"movement"`
	CameraOn   bool                     `json:"camera_on"`
	Generation uint64                   `json:"generation"`
	Panel      PanelState               `json:"panel"`
	Text       string                   `json:"text"`
	Busy       bool                     `json:"busy"`
	Result     *models.AnalysisResponse `json:"result"`
	Frame      *capture.Frame           `json:"-"`
	Stats      Stats                    `json:"stats"`
}

// SessionOpts configures a [Session].
type SessionOpts struct {
	Catalog     []models.Movement
	Loop        Loop
	Logger      *log.Logger
	EventBuffer int
}

// Session is the single source of truth for one user's coaching session.
//
// Commands (select, toggle) are serialized. Event application and snapshots may run
// concurrently with them.
type Session struct {
	id      string
	catalog []models.Movement
	loop    Loop
	logger  *log.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	events  chan tasks.Event

	opMu sync.Mutex

	mu         sync.RWMutex
	selected   *models.Movement
	cameraOn   bool
	generation uint64
	result     *models.AnalysisResponse
	text       string
	panel      PanelState
	busy       bool
	frame      *capture.Frame
	stats      Stats
}

// NewSession creates a session. ctx bounds the lifetime of every capture run it starts.
func NewSession(ctx context.Context, opts SessionOpts) *Session {
	if opts.Catalog == nil {
		opts.Catalog = models.DefaultMovements()
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = defaultEventBuffer
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	id := shared.GenerateID()
	ctx, cancel := context.WithCancel(ctx)
	return &Session{
		id:      id,
		catalog: opts.Catalog,
		loop:    opts.Loop,
		logger:  shared.WithLogger(opts.Logger, "component", "session", "session", id[:8]),
		ctx:     ctx,
		cancel:  cancel,
		events:  make(chan tasks.Event, opts.EventBuffer),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Catalog returns the movements a user can pick from.
func (s *Session) Catalog() []models.Movement {
	return append([]models.Movement(nil), s.catalog...)
}

// Events delivers loop events for [Session.Apply].
func (s *Session) Events() <-chan tasks.Event { return s.events }

// SelectMovement makes id the current movement.
//
// The previous result is discarded and, when the camera is on, the capture loop restarts for
// the new movement. If that restart fails the camera is switched off.
func (s *Session) SelectMovement(ctx context.Context, id string) error {
	m, err := models.FindMovement(s.catalog, id)
	if err != nil {
		return err
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	s.selected = &m
	s.generation++
	s.resetLocked()
	gen, on := s.generation, s.cameraOn
	s.mu.Unlock()

	s.logger.Info("movement selected", "movement", m.ID, "generation", gen)

	if !on {
		return nil
	}
	return s.startLocked(ctx, m, gen)
}

// ToggleCamera switches the camera on or off.
//
// Without a selected movement it returns [shared.ErrNoMovementSelected] and changes nothing.
// A camera that cannot be opened leaves the session off and returns an error wrapping
// [shared.ErrCameraUnavailable].
func (s *Session) ToggleCamera(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	if s.selected == nil {
		s.mu.Unlock()
		return shared.ErrNoMovementSelected
	}

	s.generation++
	s.resetLocked()
	gen, m := s.generation, *s.selected

	if s.cameraOn {
		s.cameraOn = false
		s.mu.Unlock()

		s.loop.Stop()
		s.logger.Info("camera off", "generation", gen)
		return nil
	}
	s.mu.Unlock()

	return s.startLocked(ctx, m, gen)
}

// startLocked starts the loop for generation gen. Caller holds opMu.
//
// The camera only reads as on once the device is open; the first tick comes an interval later.
func (s *Session) startLocked(ctx context.Context, m models.Movement, gen uint64) error {
	if s.loop == nil {
		return fmt.Errorf("%w: no capture loop", shared.ErrServiceUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.loop.Start(s.ctx, m.Name, gen, s.push); err != nil {
		s.loop.Stop()

		s.mu.Lock()
		s.cameraOn = false
		s.mu.Unlock()

		s.logger.Error("camera start failed", "movement", m.ID, "error", err)
		if !errors.Is(err, shared.ErrCameraUnavailable) {
			err = fmt.Errorf("%w: %v", shared.ErrCameraUnavailable, err)
		}
		return err
	}

	s.mu.Lock()
	s.cameraOn = true
	s.mu.Unlock()

	s.logger.Info("camera on", "movement", m.ID, "generation", gen)
	return nil
}

// resetLocked clears the analysis state. Caller holds mu.
func (s *Session) resetLocked() {
	s.result = nil
	s.text = ""
	s.busy = false
	s.frame = nil
	s.panel = PanelIdle
}

// push is the loop sink; it never blocks.
func (s *Session) push(ev tasks.Event) {
	select {
	case s.events <- ev:
	default:
		s.mu.Lock()
		s.stats.Dropped++
		s.mu.Unlock()
		s.logger.Debug("event buffer full", "kind", ev.Kind)
	}
}

// Apply folds ev into the session. It returns false when ev belongs to a stale generation or
// arrives while the camera is off.
func (s *Session) Apply(ev tasks.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.Generation != s.generation || !s.cameraOn {
		return false
	}

	switch ev.Kind {
	case tasks.EventTickStarted:
		s.busy = true
		s.stats.Ticks++
		if ev.Frame != nil {
			s.frame = ev.Frame
		}
		if s.panel == PanelIdle {
			s.panel = PanelWaiting
		}
	case tasks.EventTickSkipped:
		s.stats.Skipped++
	case tasks.EventResult:
		if ev.Result == nil {
			return false
		}
		s.busy = false
		s.stats.Results++
		s.result = ev.Result
		s.text = ev.Result.Text
		s.panel = PanelHasText
	case tasks.EventFailed:
		s.busy = false
		s.stats.Failures++
		s.result = nil
		s.text = FallbackText
		s.panel = PanelHasText
	default:
		return false
	}
	return true
}

// Run applies events until ctx is done. Used by shells without their own event loop.
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-s.events:
			s.Apply(ev)
		}
	}
}

// Snapshot copies the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		SessionID:  s.id,
		CameraOn:   s.cameraOn,
		Generation: s.generation,
		Panel:      s.panel,
		Text:       s.text,
		Busy:       s.busy,
		Frame:      s.frame,
		Stats:      s.stats,
	}
	if s.selected != nil {
		m := *s.selected
		snap.Movement = &m
	}
	if s.result != nil {
		r := *s.result
		r.Feedback = maps.Clone(s.result.Feedback)
		snap.Result = &r
	}
	return snap
}

// Close stops the capture loop and ends the session context.
func (s *Session) Close() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if s.loop != nil {
		s.loop.Stop()
	}
	s.cancel()

	s.mu.Lock()
	s.cameraOn = false
	s.generation++
	s.mu.Unlock()
}
