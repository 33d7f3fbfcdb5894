package draw

import (
	"io"
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

// Canvas is a pixel buffer shown with half-block characters: each terminal
// cell holds two stacked pixels. Drawing calls take logical (simulation)
// coordinates that are scaled onto the viewport. Render only emits cells that
// changed since the previous call.
type Canvas struct {
	view     Viewport
	pixels   []bool // Row-major, view.Width by 2*view.Height
	shown    []rune // Cells of the previous Render, 0 when unknown
	logicalW float64
	logicalH float64
	sx, sy   float64 // Pixels per logical unit

	out    []byte
	scaled []Point
	xs     []float64
}

// NewCanvas creates an unscaled canvas of width by height cells: one logical
// unit per pixel.
func NewCanvas(width, height int) *Canvas {
	return NewScaledCanvas(width, height, float64(width), float64(height*2))
}

// NewScaledCanvas creates a width by height cell canvas showing a logical
// area of logicalWidth by logicalHeight.
func NewScaledCanvas(width, height int, logicalWidth, logicalHeight float64) *Canvas {
	c := &Canvas{logicalW: logicalWidth, logicalH: logicalHeight}
	c.SetViewport(Viewport{Width: width, Height: height})
	return c
}

// SetViewport moves or resizes the canvas. A size change discards the pixels
// and forces a full redraw; the logical size is kept.
func (c *Canvas) SetViewport(v Viewport) {
	if v.Width != c.view.Width || v.Height != c.view.Height || c.pixels == nil {
		c.pixels = make([]bool, v.Width*v.Height*2)
		c.shown = make([]rune, v.Width*v.Height)
		if c.view == (Viewport{}) {
			// Nothing was drawn yet, the terminal starts blank
			for i := range c.shown {
				c.shown[i] = BlockEmpty
			}
		}
	}
	c.view = v
	c.rescale()
}

// Viewport returns the current viewport.
func (c *Canvas) Viewport() Viewport {
	return c.view
}

// SetLogicalSize changes the logical area mapped onto the viewport.
func (c *Canvas) SetLogicalSize(width, height float64) {
	c.logicalW = width
	c.logicalH = height
	c.rescale()
}

// LogicalSize returns the logical area mapped onto the viewport.
func (c *Canvas) LogicalSize() (width, height float64) {
	return c.logicalW, c.logicalH
}

func (c *Canvas) rescale() {
	c.sx = float64(c.view.Width) / c.logicalW
	c.sy = float64(c.view.Height*2) / c.logicalH
}

// ForceRedraw makes the next Render emit every cell.
func (c *Canvas) ForceRedraw() {
	clear(c.shown)
}

// Clear unsets every pixel.
func (c *Canvas) Clear() {
	clear(c.pixels)
}

func (c *Canvas) plot(x, y int) {
	if x >= 0 && x < c.view.Width && y >= 0 && y < c.view.Height*2 {
		c.pixels[y*c.view.Width+x] = true
	}
}

func (c *Canvas) toPixel(x, y float64) (int, int) {
	return int(math.Round(x * c.sx)), int(math.Round(y * c.sy))
}

// Pixel reports whether the pixel at column x and half-row y is set.
func (c *Canvas) Pixel(x, y int) bool {
	if x < 0 || x >= c.view.Width || y < 0 || y >= c.view.Height*2 {
		return false
	}
	return c.pixels[y*c.view.Width+x]
}

// SetFloat sets the pixel under a logical point.
func (c *Canvas) SetFloat(x, y float64) {
	c.plot(c.toPixel(x, y))
}

// DrawLine draws a line between two logical points.
func (c *Canvas) DrawLine(a, b Point) {
	x0, y0 := c.toPixel(a.X, a.Y)
	x1, y1 := c.toPixel(b.X, b.Y)

	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}

	// Bresenham with the error term covering both octant halves
	e := dx + dy
	for {
		c.plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// DrawPolygon outlines a closed polygon, filling it first when filled is set.
func (c *Canvas) DrawPolygon(points []Point, filled bool) {
	if len(points) < 3 {
		return
	}
	if filled {
		c.fillPolygon(points)
	}
	prev := points[len(points)-1]
	for _, p := range points {
		c.DrawLine(prev, p)
		prev = p
	}
}

// fillPolygon scan-converts the polygon in pixel space with the even-odd rule.
func (c *Canvas) fillPolygon(points []Point) {
	pts := c.scaled[:0]
	top, bottom := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		q := Point{X: p.X * c.sx, Y: p.Y * c.sy}
		pts = append(pts, q)
		top, bottom = math.Min(top, q.Y), math.Max(bottom, q.Y)
	}
	c.scaled = pts

	for y := int(math.Floor(top)); y <= int(math.Ceil(bottom)); y++ {
		scan := float64(y) + 0.5
		xs := c.xs[:0]
		prev := pts[len(pts)-1]
		for _, p := range pts {
			if (prev.Y <= scan) != (p.Y <= scan) {
				xs = append(xs, prev.X+(scan-prev.Y)/(p.Y-prev.Y)*(p.X-prev.X))
			}
			prev = p
		}
		sort.Float64s(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			c.span(y, xs[i], xs[i+1])
		}
		c.xs = xs
	}
}

// span sets the pixels of row y whose centers lie between x0 and x1.
func (c *Canvas) span(y int, x0, x1 float64) {
	for x := int(math.Ceil(x0 - 0.5)); x <= int(math.Floor(x1-0.5)); x++ {
		c.plot(x, y)
	}
}

// FillCircle fills a logical circle. Unequal axis scales turn it into an
// ellipse on screen.
func (c *Canvas) FillCircle(cx, cy, r float64) {
	if r > 0 {
		pcx, pcy := cx*c.sx, cy*c.sy
		rx, ry := r*c.sx, r*c.sy
		for y := int(math.Floor(pcy - ry)); y <= int(math.Ceil(pcy+ry)); y++ {
			dy := (float64(y) + 0.5 - pcy) / ry
			if dy < -1 || dy > 1 {
				continue
			}
			half := rx * math.Sqrt(1-dy*dy)
			c.span(y, pcx-half, pcx+half)
		}
	}

	// Tiny circles still show up
	c.SetFloat(cx, cy)
}

// DrawCircle outlines a logical circle.
func (c *Canvas) DrawCircle(cx, cy, r float64) {
	steps := int(math.Max(12, 2*math.Pi*r*math.Max(c.sx, c.sy)))
	prev := Point{X: cx + r, Y: cy}
	for i := 1; i <= steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		next := Point{X: cx + r*math.Cos(a), Y: cy + r*math.Sin(a)}
		c.DrawLine(prev, next)
		prev = next
	}
}

// cell returns the half-block character for a terminal cell.
func (c *Canvas) cell(col, row int) rune {
	top := c.pixels[2*row*c.view.Width+col]
	bottom := c.pixels[(2*row+1)*c.view.Width+col]
	switch {
	case top && bottom:
		return BlockFull
	case top:
		return BlockUpperHalf
	case bottom:
		return BlockLowerHalf
	default:
		return BlockEmpty
	}
}

// Render writes the cells that changed since the last call.
func (c *Canvas) Render(w io.Writer) error {
	v := c.view
	buf := c.out[:0]
	for row := 0; row < v.Height; row++ {
		for col := 0; col < v.Width; col++ {
			ch := c.cell(col, row)
			i := row*v.Width + col
			if c.shown[i] == ch {
				continue
			}
			c.shown[i] = ch
			buf = appendCursor(buf, col+1+v.OffsetCol, row+1+v.OffsetRow)
			buf = utf8.AppendRune(buf, ch)
		}
	}
	c.out = buf
	return writeChunks(w, buf)
}

// RenderBorder frames the viewport on the sides that have room for it.
func (c *Canvas) RenderBorder(w io.Writer) error {
	v := c.view
	sides, caps := v.OffsetCol >= 1, v.OffsetRow >= 1
	if !sides && !caps {
		return nil
	}

	left, right := v.OffsetCol, v.OffsetCol+v.Width+1
	top, bottom := v.OffsetRow, v.OffsetRow+v.Height+1
	rule := strings.Repeat("─", v.Width)

	buf := c.out[:0]
	switch {
	case caps && sides:
		buf = append(appendCursor(buf, left, top), "┌"+rule+"┐"...)
		buf = append(appendCursor(buf, left, bottom), "└"+rule+"┘"...)
	case caps:
		buf = append(appendCursor(buf, left+1, top), rule...)
		buf = append(appendCursor(buf, left+1, bottom), rule...)
	}
	if sides {
		for row := top + 1; row < bottom; row++ {
			buf = append(appendCursor(buf, left, row), "│"...)
			buf = append(appendCursor(buf, right, row), "│"...)
		}
	}
	c.out = buf
	return writeChunks(w, buf)
}
