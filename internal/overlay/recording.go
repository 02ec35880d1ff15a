package overlay

import "image/color"

// Op is one recorded drawing call.
type Op struct {
	Kind           string // "clear", "line" or "circle"
	X0, Y0, X1, Y1 float64
	Width, Radius  float64
	Color          color.RGBA
}

// RecordingCanvas records drawing calls instead of painting.
type RecordingCanvas struct {
	W, H int
	Ops  []Op
}

func (c *RecordingCanvas) Size() (int, int) { return c.W, c.H }

func (c *RecordingCanvas) Clear() {
	c.Ops = append(c.Ops, Op{Kind: "clear"})
}

func (c *RecordingCanvas) Line(x0, y0, x1, y1, width float64, col color.Color) {
	c.Ops = append(c.Ops, Op{Kind: "line", X0: x0, Y0: y0, X1: x1, Y1: y1, Width: width, Color: rgba(col)})
}

func (c *RecordingCanvas) Circle(cx, cy, r float64, col color.Color) {
	c.Ops = append(c.Ops, Op{Kind: "circle", X0: cx, Y0: cy, Radius: r, Color: rgba(col)})
}

// Count returns the number of ops of kind.
func (c *RecordingCanvas) Count(kind string) int {
	n := 0
	for _, op := range c.Ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

func rgba(col color.Color) color.RGBA {
	return color.RGBAModel.Convert(col).(color.RGBA)
}
