package capture

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/gerak/internal/shared"
)

const maxFrameSize = 16 << 20

var (
	jpegSOI = []byte{0xff, 0xd8}
	jpegEOI = []byte{0xff, 0xd9}
)

// CameraSource captures from a local video device through an ffmpeg child process.
type CameraSource struct {
	FFmpeg      string
	InputFormat string
	Device      string
	Width       int
	Height      int
	FPS         int
	OpenTimeout time.Duration
	logger      *log.Logger
}

// NewCameraSource creates a camera source from capture settings.
func NewCameraSource(cfg shared.CaptureConfig, logger *log.Logger) *CameraSource {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	ffmpeg := cfg.FFmpeg
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	return &CameraSource{
		FFmpeg:      ffmpeg,
		InputFormat: cfg.InputFormat,
		Device:      cfg.Device,
		Width:       cfg.Width,
		Height:      cfg.Height,
		FPS:         cfg.FPS,
		OpenTimeout: cfg.OpenTimeoutDuration(),
		logger:      shared.WithLogger(logger, "component", "capture"),
	}
}

// Name describes the device.
func (c *CameraSource) Name() string {
	return fmt.Sprintf("%s:%s", c.InputFormat, c.Device)
}

// Args returns the ffmpeg arguments: read the device, write MJPEG frames to stdout.
func (c *CameraSource) Args() []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	if c.InputFormat != "" {
		args = append(args, "-f", c.InputFormat)
	}
	if c.Width > 0 && c.Height > 0 {
		args = append(args, "-video_size", fmt.Sprintf("%dx%d", c.Width, c.Height))
	}
	if c.FPS > 0 {
		args = append(args, "-framerate", strconv.Itoa(c.FPS))
	}
	return append(args, "-i", c.Device, "-f", "image2pipe", "-vcodec", "mjpeg", "-q:v", "5", "-")
}

// Open starts ffmpeg and blocks until the first frame arrives.
//
// Any failure to produce a frame (missing binary, missing device, permission denied, timeout or
// cancellation) is reported as [shared.ErrCameraUnavailable] and leaves no process behind.
func (c *CameraSource) Open(ctx context.Context) (Stream, error) {
	cmd := exec.Command(c.FFmpeg, c.Args()...)
	stderr := &tailBuffer{max: 2048}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrCameraUnavailable, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrCameraUnavailable, err)
	}

	s := newCameraStream()
	s.stop = func() error {
		_ = cmd.Process.Kill()
		<-s.done
		return cmd.Wait()
	}
	go s.read(stdout)

	c.logger.Debug("starting camera", "device", c.Name(), "pid", cmd.Process.Pid)

	timer := time.NewTimer(c.OpenTimeout)
	defer timer.Stop()

	select {
	case <-s.ready:
		c.logger.Info("camera ready", "device", c.Name())
		s.logger = c.logger
		return s, nil
	case <-s.done:
		s.Close()
		return nil, fmt.Errorf("%w: %s", shared.ErrCameraUnavailable, stderr.message("ffmpeg exited before the first frame"))
	case <-timer.C:
		s.Close()
		return nil, fmt.Errorf("%w: %w waiting for first frame", shared.ErrCameraUnavailable, shared.ErrTimeout)
	case <-ctx.Done():
		s.Close()
		return nil, fmt.Errorf("%w: %v", shared.ErrCameraUnavailable, ctx.Err())
	}
}

// cameraStream is a single-slot mailbox filled by the ffmpeg reader goroutine.
type cameraStream struct {
	mu      sync.Mutex
	latest  []byte
	seq     uint64
	at      time.Time
	unread  bool
	dropped uint64
	readErr error
	cached  *Frame

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}

	closeOnce sync.Once
	closeErr  error
	closed    bool
	stop      func() error
	logger    *log.Logger
}

func newCameraStream() *cameraStream {
	return &cameraStream{ready: make(chan struct{}), done: make(chan struct{})}
}

// read splits r into JPEG frames until EOF, keeping only the newest.
func (s *cameraStream) read(r io.Reader) {
	defer close(s.done)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 512*1024), maxFrameSize)
	scanner.Split(splitJPEG)

	for scanner.Scan() {
		frame := bytes.Clone(scanner.Bytes())

		s.mu.Lock()
		if s.unread {
			s.dropped++
		}
		s.latest = frame
		s.seq++
		s.at = time.Now()
		s.unread = true
		s.mu.Unlock()

		s.readyOnce.Do(func() { close(s.ready) })
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	s.mu.Lock()
	s.readErr = err
	s.mu.Unlock()
}

// Frame decodes the newest frame. Repeated calls without a new frame return the same image.
//
// Decoding runs without the lock so the reader keeps publishing meanwhile.
func (s *cameraStream) Frame() (Frame, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Frame{}, shared.ErrStreamClosed
	}
	if s.latest == nil {
		err := s.readErr
		s.mu.Unlock()
		if err != nil {
			return Frame{}, fmt.Errorf("%w: %v", shared.ErrCameraUnavailable, err)
		}
		return Frame{}, fmt.Errorf("%w: no frame yet", shared.ErrCameraUnavailable)
	}
	if s.readErr != nil && !s.unread {
		err := s.readErr
		s.mu.Unlock()
		return Frame{}, fmt.Errorf("%w: device stopped: %v", shared.ErrCameraUnavailable, err)
	}
	if s.cached != nil && s.cached.Seq == s.seq {
		f := *s.cached
		s.mu.Unlock()
		return f, nil
	}
	data, seq, at := s.latest, s.seq, s.at
	s.mu.Unlock()

	img, err := DecodeImage(data)
	if err != nil {
		return Frame{}, fmt.Errorf("corrupt frame %d: %w", seq, err)
	}
	f := newFrame(seq, at, img)

	s.mu.Lock()
	if s.cached == nil || s.cached.Seq < seq {
		s.cached = &f
	}
	if s.seq == seq {
		s.unread = false
	}
	s.mu.Unlock()
	return f, nil
}

// Dropped counts frames overwritten before anyone read them.
func (s *cameraStream) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close kills ffmpeg and waits for it to exit.
func (s *cameraStream) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		if s.stop != nil {
			err := s.stop()
			var exitErr *exec.ExitError
			if err != nil && !errors.As(err, &exitErr) {
				s.closeErr = err
			}
		}
		if s.logger != nil {
			s.mu.Lock()
			frames, dropped := s.seq, s.dropped
			s.mu.Unlock()
			s.logger.Info("camera released", "frames", frames, "dropped", dropped)
		}
	})
	return s.closeErr
}

// splitJPEG is a [bufio.SplitFunc] yielding complete SOI..EOI images and discarding bytes between them.
func splitJPEG(data []byte, atEOF bool) (int, []byte, error) {
	start := bytes.Index(data, jpegSOI)
	if start < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		if len(data) > 1 {
			return len(data) - 1, nil, nil
		}
		return 0, nil, nil
	}

	end := bytes.Index(data[start+len(jpegSOI):], jpegEOI)
	if end < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		return start, nil, nil
	}

	stop := start + len(jpegSOI) + end + len(jpegEOI)
	return stop, data[start:stop], nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) message(fallback string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if msg := strings.TrimSpace(string(t.buf)); msg != "" {
		return msg
	}
	return fallback
}
