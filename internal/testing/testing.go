// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/gerak/internal/capture"
	"github.com/desertthunder/gerak/internal/models"
)

// AnalyzeCall records one [MockAnalyzer.Analyze] invocation.
type AnalyzeCall struct {
	Movement string
	MIMEType string
	Size     int
}

// MockAnalyzer is a test double for [services.Analyzer].
//
// When Block is set, calls wait until it is closed or their context ends. Started, if set,
// receives the movement name of each call as it begins.
type MockAnalyzer struct {
	Result  *models.AnalysisResponse
	Err     error
	Block   chan struct{}
	Started chan string

	mu          sync.Mutex
	calls       []AnalyzeCall
	inFlight    int
	maxInFlight int
}

func (m *MockAnalyzer) Analyze(ctx context.Context, image []byte, mimeType, movementName string) (*models.AnalysisResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, AnalyzeCall{Movement: movementName, MIMEType: mimeType, Size: len(image)})
	m.inFlight++
	m.maxInFlight = max(m.maxInFlight, m.inFlight)
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if m.Started != nil {
		m.Started <- movementName
	}

	if m.Block != nil {
		select {
		case <-m.Block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}

func (m *MockAnalyzer) Name() string { return "mock" }

// Calls returns a copy of the recorded calls.
func (m *MockAnalyzer) Calls() []AnalyzeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AnalyzeCall(nil), m.calls...)
}

// MaxInFlight is the highest number of concurrent calls observed.
func (m *MockAnalyzer) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}

// StubSource is a [capture.Source] producing solid frames of Width x Height.
type StubSource struct {
	Width    int
	Height   int
	OpenErr  error
	FrameErr error

	mu     sync.Mutex
	opened int
	closed int
}

func (s *StubSource) Open(ctx context.Context) (capture.Stream, error) {
	if s.OpenErr != nil {
		return nil, s.OpenErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.opened++
	s.mu.Unlock()
	return &stubStream{src: s}, nil
}

func (s *StubSource) Name() string { return "stub" }

// Opened counts successful Open calls.
func (s *StubSource) Opened() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

// Live counts streams that are open and not yet closed.
func (s *StubSource) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened - s.closed
}

type stubStream struct {
	src  *StubSource
	once sync.Once
	seq  uint64
}

func (s *stubStream) Frame() (capture.Frame, error) {
	if s.src.FrameErr != nil {
		return capture.Frame{}, s.src.FrameErr
	}
	w, h := s.src.Width, s.src.Height
	if w == 0 || h == 0 {
		w, h = 64, 48
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	img.Set(0, 0, color.White)
	s.seq++
	return capture.Frame{Seq: s.seq, Timestamp: time.Now(), Width: w, Height: h, Image: img}, nil
}

func (s *stubStream) Close() error {
	s.once.Do(func() {
		s.src.mu.Lock()
		s.src.closed++
		s.src.mu.Unlock()
	})
	return nil
}

// ManualTicker hands out a tick channel the test drives with Tick.
type ManualTicker struct {
	C       chan time.Time
	mu      sync.Mutex
	started int
	stopped int
}

func NewManualTicker() *ManualTicker {
	return &ManualTicker{C: make(chan time.Time)}
}

// New matches the tasks ticker constructor signature.
func (m *ManualTicker) New(time.Duration) (<-chan time.Time, func()) {
	m.mu.Lock()
	m.started++
	m.mu.Unlock()
	return m.C, func() {
		m.mu.Lock()
		m.stopped++
		m.mu.Unlock()
	}
}

// Tick delivers one tick and returns once the loop has received it.
func (m *ManualTicker) Tick(t *testing.T) {
	t.Helper()
	select {
	case m.C <- time.Now():
	case <-time.After(2 * time.Second):
		t.Fatal("tick was not received")
	}
}

// Active counts tickers started and not stopped.
func (m *ManualTicker) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started - m.stopped
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// SampleResult is a small analysis payload with one correct and one incorrect landmark.
func SampleResult(text string) *models.AnalysisResponse {
	var pose models.Pose
	pose[models.LeftShoulder] = models.Keypoint{X: 0.4, Y: 0.3}
	pose[models.LeftElbow] = models.Keypoint{X: 0.35, Y: 0.45}
	pose[models.LeftKnee] = models.Keypoint{X: 0.42, Y: 0.7}
	return &models.AnalysisResponse{
		Pose: pose,
		Feedback: models.PoseFeedback{
			models.LeftShoulder: models.StatusCorrect,
			models.LeftKnee:     models.StatusIncorrect,
		},
		Text: text,
	}
}

// Eventually polls cond until it holds or the deadline passes.
func Eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", msg)
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
