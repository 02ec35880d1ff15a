package overlay

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

// kappa places cubic control points for a quarter circle.
const kappa = 0.5522847498

// RasterCanvas rasterizes onto a transparent RGBA image.
type RasterCanvas struct {
	img *image.RGBA
	r   *vector.Rasterizer
}

// NewRasterCanvas creates a w x h transparent canvas.
func NewRasterCanvas(w, h int) *RasterCanvas {
	return &RasterCanvas{
		img: image.NewRGBA(image.Rect(0, 0, w, h)),
		r:   vector.NewRasterizer(w, h),
	}
}

func (c *RasterCanvas) Size() (int, int) {
	b := c.img.Bounds()
	return b.Dx(), b.Dy()
}

// Image returns the backing image; it is reused by later draws.
func (c *RasterCanvas) Image() *image.RGBA { return c.img }

func (c *RasterCanvas) Clear() {
	clear(c.img.Pix)
}

// Line strokes a butt-capped segment.
func (c *RasterCanvas) Line(x0, y0, x1, y1, width float64, col color.Color) {
	dx, dy := x1-x0, y1-y0
	length := math.Hypot(dx, dy)
	if length == 0 || width <= 0 {
		return
	}
	nx, ny := -dy/length*width/2, dx/length*width/2

	c.begin()
	c.moveTo(x0+nx, y0+ny)
	c.lineTo(x1+nx, y1+ny)
	c.lineTo(x1-nx, y1-ny)
	c.lineTo(x0-nx, y0-ny)
	c.fill(col)
}

// Circle fills a disc.
func (c *RasterCanvas) Circle(cx, cy, radius float64, col color.Color) {
	if radius <= 0 {
		return
	}
	k := radius * kappa

	c.begin()
	c.moveTo(cx+radius, cy)
	c.cubeTo(cx+radius, cy+k, cx+k, cy+radius, cx, cy+radius)
	c.cubeTo(cx-k, cy+radius, cx-radius, cy+k, cx-radius, cy)
	c.cubeTo(cx-radius, cy-k, cx-k, cy-radius, cx, cy-radius)
	c.cubeTo(cx+k, cy-radius, cx+radius, cy-k, cx+radius, cy)
	c.fill(col)
}

func (c *RasterCanvas) begin() {
	w, h := c.Size()
	c.r.Reset(w, h)
	c.r.DrawOp = draw.Over
}

func (c *RasterCanvas) fill(col color.Color) {
	c.r.ClosePath()
	c.r.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{})
}

// Points are clamped to the canvas; the rasterizer only accumulates inside its bounds.
func (c *RasterCanvas) pt(x, y float64) (float32, float32) {
	w, h := c.Size()
	return float32(min(max(x, 0), float64(w))), float32(min(max(y, 0), float64(h)))
}

func (c *RasterCanvas) moveTo(x, y float64) {
	c.r.MoveTo(c.pt(x, y))
}

func (c *RasterCanvas) lineTo(x, y float64) {
	c.r.LineTo(c.pt(x, y))
}

func (c *RasterCanvas) cubeTo(bx, by, cx, cy, dx, dy float64) {
	x1, y1 := c.pt(bx, by)
	x2, y2 := c.pt(cx, cy)
	x3, y3 := c.pt(dx, dy)
	c.r.CubeTo(x1, y1, x2, y2, x3, y3)
}
