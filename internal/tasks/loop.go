package tasks

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/gerak/internal/capture"
	"github.com/desertthunder/gerak/internal/services"
	"github.com/desertthunder/gerak/internal/shared"
	"golang.org/x/time/rate"
)

// DefaultInterval is the analysis period.
const DefaultInterval = 2500 * time.Millisecond

// TickerFunc creates a repeating tick channel and its stop function.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

func newTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// LoopOpts configures a [CaptureLoop].
type LoopOpts struct {
	Source      capture.Source
	Analyzer    services.Analyzer
	Interval    time.Duration
	JPEGQuality int
	Logger      *log.Logger
	Ticker      TickerFunc
}

// CaptureLoop periodically sends the latest camera frame to an [services.Analyzer].
//
// Start and Stop may be called from any goroutine; they are serialized.
type CaptureLoop struct {
	source   capture.Source
	analyzer services.Analyzer
	interval time.Duration
	quality  int
	ticker   TickerFunc
	logger   *log.Logger

	opMu     sync.Mutex
	run      *loopRun
	running  atomic.Int32
	inflight sync.WaitGroup
	failLog  rate.Sometimes
}

// loopRun is the state of one Start..Stop span.
type loopRun struct {
	gen      uint64
	movement string
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	sink     func(Event)

	mu      sync.Mutex
	busy    bool
	stopped bool
}

// NewCaptureLoop creates an idle loop.
func NewCaptureLoop(opts LoopOpts) *CaptureLoop {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Ticker == nil {
		opts.Ticker = newTicker
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &CaptureLoop{
		source:   opts.Source,
		analyzer: opts.Analyzer,
		interval: opts.Interval,
		quality:  opts.JPEGQuality,
		ticker:   opts.Ticker,
		logger:   shared.WithLogger(opts.Logger, "component", "loop"),
		failLog:  rate.Sometimes{First: 3, Interval: 30 * time.Second},
	}
}

// Start stops any previous run, opens the camera and starts ticking for movementName.
//
// Opening the camera may block. On failure nothing is left running and the error wraps
// [shared.ErrCameraUnavailable]. sink must not block.
func (l *CaptureLoop) Start(ctx context.Context, movementName string, generation uint64, sink func(Event)) error {
	if l.source == nil || l.analyzer == nil {
		return fmt.Errorf("%w: capture loop needs a source and an analyzer", shared.ErrServiceUnavailable)
	}
	if sink == nil {
		sink = func(Event) {}
	}

	l.opMu.Lock()
	defer l.opMu.Unlock()

	l.stopLocked()

	stream, err := l.source.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", l.source.Name(), err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &loopRun{
		gen:      generation,
		movement: movementName,
		ctx:      runCtx,
		cancel:   cancel,
		done:     make(chan struct{}),
		sink:     sink,
	}
	l.run = r

	ticks, stopTicks := l.ticker(l.interval)
	l.running.Add(1)
	go l.loop(r, stream, ticks, stopTicks)

	l.logger.Info("capture loop started", "movement", movementName, "generation", generation, "interval", l.interval)
	return nil
}

// Stop ends the current run. It returns after the ticker has stopped and the camera is released;
// in-flight requests are cancelled and their results are never delivered.
func (l *CaptureLoop) Stop() {
	l.opMu.Lock()
	defer l.opMu.Unlock()
	l.stopLocked()
}

func (l *CaptureLoop) stopLocked() {
	r := l.run
	if r == nil {
		return
	}
	l.run = nil

	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()

	r.cancel()
	<-r.done

	l.logger.Info("capture loop stopped", "generation", r.gen)
}

// Running reports the number of live ticker goroutines: 0 or 1.
func (l *CaptureLoop) Running() int {
	return int(l.running.Load())
}

// Wait blocks until every request started before the last Stop has returned.
func (l *CaptureLoop) Wait() {
	l.inflight.Wait()
}

func (l *CaptureLoop) loop(r *loopRun, stream capture.Stream, ticks <-chan time.Time, stopTicks func()) {
	defer close(r.done)
	defer l.running.Add(-1)
	defer func() {
		if err := stream.Close(); err != nil {
			l.logger.Warn("failed to release camera", "error", err)
		}
	}()
	defer stopTicks()

	for {
		select {
		case <-r.ctx.Done():
			return
		case _, ok := <-ticks:
			if !ok {
				return
			}
			l.tick(r, stream)
		}
	}
}

func (l *CaptureLoop) tick(r *loopRun, stream capture.Stream) {
	id := shared.GenerateID()

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	if r.busy {
		r.deliverLocked(Event{Kind: EventTickSkipped, TickID: id})
		r.mu.Unlock()
		l.logger.Debug("tick skipped, analysis in flight", "tick", id)
		return
	}
	r.busy = true
	r.mu.Unlock()

	frame, err := stream.Frame()
	if err != nil {
		l.logFailure(id, err)
		r.finish(Event{Kind: EventFailed, TickID: id, Err: err})
		return
	}

	r.emit(Event{Kind: EventTickStarted, TickID: id, Frame: &frame})

	l.inflight.Add(1)
	go l.analyze(r, id, frame)
}

func (l *CaptureLoop) analyze(r *loopRun, id string, frame capture.Frame) {
	defer l.inflight.Done()

	started := time.Now()
	data, err := capture.EncodeJPEG(frame.Image, l.quality)
	if err != nil {
		l.logFailure(id, err)
		r.finish(Event{Kind: EventFailed, TickID: id, Err: err, Elapsed: time.Since(started)})
		return
	}

	result, err := l.analyzer.Analyze(r.ctx, data, capture.MIMEType, r.movement)
	if err == nil && result == nil {
		err = fmt.Errorf("%w: empty result", shared.ErrInvalidResponse)
	}
	elapsed := time.Since(started)

	if err != nil {
		if r.ctx.Err() == nil {
			l.logFailure(id, err)
		}
		r.finish(Event{Kind: EventFailed, TickID: id, Err: err, Elapsed: elapsed})
		return
	}

	l.logger.Debug("analysis done", "tick", id, "elapsed", elapsed, "bytes", len(data))
	r.finish(Event{Kind: EventResult, TickID: id, Result: result, Elapsed: elapsed})
}

func (l *CaptureLoop) logFailure(id string, err error) {
	l.logger.Debug("analysis failed", "tick", id, "error", err)
	l.failLog.Do(func() {
		l.logger.Warn("analysis failed", "analyzer", l.analyzer.Name(), "error", err)
	})
}

// emit delivers ev unless the run was stopped.
func (r *loopRun) emit(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliverLocked(ev)
}

// finish clears the busy flag and delivers ev in one step, so the next tick observes both.
func (r *loopRun) finish(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.busy = false
	r.deliverLocked(ev)
}

func (r *loopRun) deliverLocked(ev Event) {
	if r.stopped {
		return
	}
	ev.Generation = r.gen
	ev.Movement = r.movement
	ev.At = time.Now()
	r.sink(ev)
}
