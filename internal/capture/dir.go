package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/gerak/internal/shared"
)

var imageExts = []string{".jpg", ".jpeg", ".png"}

// DirSource replays the images of a directory in name order, one per Frame call.
type DirSource struct {
	Dir string
}

// NewDirSource creates a source over dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{Dir: dir}
}

// Name describes the directory.
func (d *DirSource) Name() string { return "dir:" + d.Dir }

// Open lists the images. A missing or empty directory is [shared.ErrCameraUnavailable].
func (d *DirSource) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrCameraUnavailable, err)
	}
	if d.Dir == "" {
		return nil, fmt.Errorf("%w: capture.dir is not set", shared.ErrCameraUnavailable)
	}

	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrCameraUnavailable, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if slices.Contains(imageExts, strings.ToLower(filepath.Ext(e.Name()))) {
			files = append(files, filepath.Join(d.Dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no images in %s", shared.ErrCameraUnavailable, d.Dir)
	}

	return &dirStream{files: files}, nil
}

type dirStream struct {
	mu     sync.Mutex
	files  []string
	next   int
	seq    uint64
	closed bool
}

func (s *dirStream) Frame() (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Frame{}, shared.ErrStreamClosed
	}

	path := s.files[s.next]
	s.next = (s.next + 1) % len(s.files)

	data, err := os.ReadFile(path)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", shared.ErrCameraUnavailable, err)
	}
	img, err := DecodeImage(data)
	if err != nil {
		return Frame{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	s.seq++
	return newFrame(s.seq, time.Now(), img), nil
}

func (s *dirStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
