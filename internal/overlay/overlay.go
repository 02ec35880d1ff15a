// package overlay draws the detected skeleton over a camera frame
package overlay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/desertthunder/gerak/internal/models"
	xdraw "golang.org/x/image/draw"
)

// Drawing constants, in overlay pixels.
const (
	LineWidth = 4
	Radius    = 8
)

var (
	ColorBone         = color.RGBA{0xff, 0xff, 0xff, 0xff}
	ColorCorrect      = color.RGBA{0x22, 0xc5, 0x5e, 0xff}
	ColorIncorrect    = color.RGBA{0xef, 0x44, 0x44, 0xff}
	ColorUndetermined = color.RGBA{0x3b, 0x82, 0xf6, 0xff}
)

// Canvas is a drawing surface with a fixed pixel size.
type Canvas interface {
	Size() (w, h int)
	Clear()
	Line(x0, y0, x1, y1, width float64, c color.Color)
	Circle(cx, cy, r float64, c color.Color)
}

// KeypointColor returns the fill for part given the model's feedback.
func KeypointColor(feedback models.PoseFeedback, part models.BodyPart) color.RGBA {
	status, ok := feedback.Status(part)
	if !ok {
		return ColorUndetermined
	}
	switch status {
	case models.StatusCorrect:
		return ColorCorrect
	case models.StatusIncorrect:
		return ColorIncorrect
	default:
		return ColorUndetermined
	}
}

// Render clears c and draws pose: bones whose two ends are detected, then one dot per detected keypoint.
func Render(c Canvas, pose models.Pose, feedback models.PoseFeedback) {
	c.Clear()
	w, h := c.Size()
	fw, fh := float64(w), float64(h)

	for _, conn := range models.Connections {
		a, b := pose.Get(conn.From), pose.Get(conn.To)
		if !a.Detected() || !b.Detected() {
			continue
		}
		c.Line(a.X*fw, a.Y*fh, b.X*fw, b.Y*fh, LineWidth, ColorBone)
	}

	for _, part := range models.BodyParts() {
		kp := pose.Get(part)
		if !kp.Detected() {
			continue
		}
		c.Circle(kp.X*fw, kp.Y*fh, Radius, KeypointColor(feedback, part))
	}
}

// RenderResult draws result, or only clears c when result is nil.
func RenderResult(c Canvas, result *models.AnalysisResponse) {
	if result == nil {
		c.Clear()
		return
	}
	Render(c, result.Pose, result.Feedback)
}

// RenderImage returns a transparent w x h overlay for result.
func RenderImage(w, h int, result *models.AnalysisResponse) *image.RGBA {
	c := NewRasterCanvas(w, h)
	RenderResult(c, result)
	return c.Image()
}

// Composite scales overlay onto a copy of frame.
func Composite(frame, overlay image.Image) *image.RGBA {
	b := frame.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), frame, b.Min, xdraw.Src)
	if overlay != nil {
		xdraw.BiLinear.Scale(dst, dst.Bounds(), overlay, overlay.Bounds(), xdraw.Over, nil)
	}
	return dst
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode overlay: %w", err)
	}
	return buf.Bytes(), nil
}
