package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/gerak/internal/shared"
)

// MIMEType of the encoded frames handed to the analyzer.
const MIMEType = "image/jpeg"

// Frame is one decoded camera image.
type Frame struct {
	Seq       uint64
	Timestamp time.Time
	Width     int
	Height    int
	Image     image.Image
}

// Source opens a camera. Open may block while the device starts.
type Source interface {
	Open(ctx context.Context) (Stream, error)
	Name() string
}

// Stream is an open camera. Close releases the device and is safe to call more than once.
type Stream interface {
	// Frame returns the most recent frame.
	Frame() (Frame, error)
	Close() error
}

// NewSource builds the source selected by cfg.Source.
func NewSource(cfg shared.CaptureConfig, logger *log.Logger) (Source, error) {
	switch cfg.Source {
	case "camera", "":
		return NewCameraSource(cfg, logger), nil
	case "dir":
		return NewDirSource(cfg.Dir), nil
	default:
		return nil, fmt.Errorf("%w: unknown capture source %q", shared.ErrInvalidConfig, cfg.Source)
	}
}

// EncodeJPEG encodes img at the given quality (1..100). Pixel dimensions are preserved.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", shared.ErrInvalidInput)
	}
	if quality < 1 || quality > 100 {
		quality = jpeg.DefaultQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeImage decodes JPEG or PNG bytes.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	return img, nil
}

func newFrame(seq uint64, ts time.Time, img image.Image) Frame {
	b := img.Bounds()
	return Frame{Seq: seq, Timestamp: ts, Width: b.Dx(), Height: b.Dy(), Image: img}
}
