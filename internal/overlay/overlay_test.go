package overlay

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/desertthunder/gerak/internal/models"
)

func near(a, b uint8) bool {
	d := int(a) - int(b)
	return d >= -2 && d <= 2
}

func sameColor(got color.RGBA, want color.RGBA) bool {
	return near(got.R, want.R) && near(got.G, want.G) && near(got.B, want.B) && near(got.A, want.A)
}

func samplePose() (models.Pose, models.PoseFeedback) {
	var pose models.Pose
	pose[models.LeftShoulder] = models.Keypoint{X: 0.4, Y: 0.3}
	pose[models.LeftElbow] = models.Keypoint{X: 0.35, Y: 0.45}
	pose[models.LeftWrist] = models.Keypoint{X: 0, Y: 0.6}
	pose[models.RightShoulder] = models.Keypoint{X: 0.6, Y: 0.3}
	pose[models.Nose] = models.Keypoint{X: 0.5, Y: 0.1}

	feedback := models.PoseFeedback{
		models.LeftShoulder: models.StatusCorrect,
		models.LeftElbow:    models.StatusIncorrect,
	}
	return pose, feedback
}

func TestRender(t *testing.T) {
	t.Run("Bones Need Both Ends", func(t *testing.T) {
		pose, feedback := samplePose()
		c := &RecordingCanvas{W: 640, H: 480}
		Render(c, pose, feedback)

		if c.Ops[0].Kind != "clear" {
			t.Fatalf("expected clear first, got %s", c.Ops[0].Kind)
		}

		// shoulder-shoulder and shoulder-elbow; elbow-wrist has an undetected end
		if n := c.Count("line"); n != 2 {
			t.Errorf("expected 2 bones, got %d", n)
		}
		for _, op := range c.Ops {
			if op.Kind == "line" && (op.Width != LineWidth || op.Color != ColorBone) {
				t.Errorf("unexpected bone style %+v", op)
			}
		}
	})

	t.Run("Keypoint Colors", func(t *testing.T) {
		pose, feedback := samplePose()
		c := &RecordingCanvas{W: 640, H: 480}
		Render(c, pose, feedback)

		want := map[[2]float64]color.RGBA{
			{256, 144}: ColorCorrect,
			{224, 216}: ColorIncorrect,
			{384, 144}: ColorUndetermined,
			{320, 48}:  ColorUndetermined,
		}
		if n := c.Count("circle"); n != len(want) {
			t.Fatalf("expected %d dots, got %d", len(want), n)
		}
		for _, op := range c.Ops {
			if op.Kind != "circle" {
				continue
			}
			col, ok := want[[2]float64{op.X0, op.Y0}]
			if !ok {
				t.Errorf("unexpected dot at (%v, %v)", op.X0, op.Y0)
				continue
			}
			if op.Color != col || op.Radius != Radius {
				t.Errorf("dot at (%v, %v): got %v r=%v, want %v", op.X0, op.Y0, op.Color, op.Radius, col)
			}
		}
	})

	t.Run("Empty Pose Draws Nothing", func(t *testing.T) {
		c := &RecordingCanvas{W: 10, H: 10}
		Render(c, models.Pose{}, nil)
		if len(c.Ops) != 1 {
			t.Errorf("expected only clear, got %+v", c.Ops)
		}
	})

	t.Run("Nil Result Clears", func(t *testing.T) {
		c := &RecordingCanvas{W: 10, H: 10}
		RenderResult(c, nil)
		if len(c.Ops) != 1 || c.Ops[0].Kind != "clear" {
			t.Errorf("expected only clear, got %+v", c.Ops)
		}
	})
}

func TestKeypointColor(t *testing.T) {
	fb := models.PoseFeedback{models.Nose: models.StatusCorrect, models.LeftEye: models.Status("maybe")}
	if KeypointColor(fb, models.Nose) != ColorCorrect {
		t.Error("expected correct colour")
	}
	if KeypointColor(fb, models.LeftEye) != ColorUndetermined {
		t.Error("expected unknown status to be undetermined")
	}
	if KeypointColor(nil, models.RightEye) != ColorUndetermined {
		t.Error("expected missing feedback to be undetermined")
	}
}

func TestRasterCanvas(t *testing.T) {
	pose, feedback := samplePose()
	img := RenderImage(640, 480, &models.AnalysisResponse{Pose: pose, Feedback: feedback})

	if b := img.Bounds(); b.Dx() != 640 || b.Dy() != 480 {
		t.Fatalf("unexpected bounds %v", b)
	}
	if got := img.RGBAAt(256, 144); !sameColor(got, ColorCorrect) {
		t.Errorf("expected correct dot at shoulder, got %v", got)
	}
	if got := img.RGBAAt(224, 216); !sameColor(got, ColorIncorrect) {
		t.Errorf("expected incorrect dot at elbow, got %v", got)
	}
	if got := img.RGBAAt(320, 144); got.A == 0 || got.R != got.G || got.G != got.B {
		t.Errorf("expected white bone between shoulders, got %v", got)
	}
	if got := img.RGBAAt(5, 5); got.A != 0 {
		t.Errorf("expected transparent background, got %v", got)
	}
	if got := img.RGBAAt(0, 288); got.A != 0 {
		t.Errorf("expected no dot for undetected wrist, got %v", got)
	}

	t.Run("Clear", func(t *testing.T) {
		c := NewRasterCanvas(20, 20)
		c.Circle(10, 10, 5, ColorCorrect)
		c.Clear()
		if c.Image().RGBAAt(10, 10).A != 0 {
			t.Error("expected clear to reset pixels")
		}
	})

	t.Run("Edge Dots Stay In Bounds", func(t *testing.T) {
		c := NewRasterCanvas(20, 20)
		c.Circle(1, 1, 8, ColorIncorrect)
		c.Line(0, 19, 25, 19, 4, ColorBone)
		if c.Image().RGBAAt(0, 0).A == 0 {
			t.Error("expected the visible part of the dot to be drawn")
		}
	})

	t.Run("Nil Result Is Blank", func(t *testing.T) {
		img := RenderImage(8, 8, nil)
		for _, p := range img.Pix {
			if p != 0 {
				t.Fatal("expected a fully transparent image")
			}
		}
	})
}

func TestComposite(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 320, 240))
	for i := range frame.Pix {
		frame.Pix[i] = 0x40
	}
	pose, feedback := samplePose()
	out := Composite(frame, RenderImage(640, 480, &models.AnalysisResponse{Pose: pose, Feedback: feedback}))

	if b := out.Bounds(); b.Dx() != 320 || b.Dy() != 240 {
		t.Fatalf("expected frame size, got %v", b)
	}
	if got := out.RGBAAt(128, 72); got.G <= got.R {
		t.Errorf("expected green dot scaled onto frame, got %v", got)
	}
	if got := out.RGBAAt(2, 2); got != (color.RGBA{0x40, 0x40, 0x40, 0x40}) {
		t.Errorf("expected untouched frame pixel, got %v", got)
	}

	if Composite(frame, nil).Bounds() != out.Bounds() {
		t.Error("expected nil overlay to copy the frame")
	}
}

func TestEncodePNG(t *testing.T) {
	data, err := EncodePNG(RenderImage(16, 12, nil))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width != 16 || cfg.Height != 12 {
		t.Errorf("expected 16x12 png, got %+v %v", cfg, err)
	}
}
