package draw

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

const (
	seqClear      = "\033[H\033[2J"
	seqHideCursor = "\033[?25l"
	seqShowCursor = "\033[?25h"
)

// maxChunkSize keeps single writes near a typical MTU so frames stream
// smoothly over SSH.
const maxChunkSize = 1400

// appendCursor appends the sequence moving the cursor to the 1-based col and row.
func appendCursor(buf []byte, col, row int) []byte {
	buf = append(buf, "\033["...)
	buf = strconv.AppendInt(buf, int64(row), 10)
	buf = append(buf, ';')
	buf = strconv.AppendInt(buf, int64(col), 10)
	return append(buf, 'H')
}

// writeChunks writes data in pieces of at most maxChunkSize bytes.
func writeChunks(w io.Writer, data []byte) error {
	for len(data) > 0 {
		n := min(len(data), maxChunkSize)
		if _, err := w.Write(data[:n]); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// Viewport is the part of a terminal the game is drawn in. Offsets are the
// 0-based columns and rows left blank to center it.
type Viewport struct {
	Width     int
	Height    int
	OffsetCol int
	OffsetRow int
}

// FitViewport clamps a terminal to at most maxWidth by maxHeight cells and
// centers the result.
func FitViewport(termWidth, termHeight, maxWidth, maxHeight int) Viewport {
	w := max(min(termWidth, maxWidth), 0)
	h := max(min(termHeight, maxHeight), 0)
	return Viewport{
		Width:     w,
		Height:    h,
		OffsetCol: max(termWidth-w, 0) / 2,
		OffsetRow: max(termHeight-h, 0) / 2,
	}
}

// ChunkWriter collects one frame of terminal output: the rendered canvas and
// the HUD around it. Positions are 1-based viewport coordinates. Flush sends
// the frame in chunks.
type ChunkWriter struct {
	out    *bufio.Writer
	frame  []byte
	offCol int
	offRow int
}

// NewChunkWriter creates a ChunkWriter writing frames to w.
func NewChunkWriter(w io.Writer, offsetCol, offsetRow int) *ChunkWriter {
	return &ChunkWriter{
		out:    bufio.NewWriterSize(w, 8192),
		offCol: offsetCol,
		offRow: offsetRow,
	}
}

// SetOffset moves the viewport origin, e.g. after a terminal resize.
func (cw *ChunkWriter) SetOffset(offsetCol, offsetRow int) {
	cw.offCol = offsetCol
	cw.offRow = offsetRow
}

// Write appends raw output. Canvas.Render writes through it.
func (cw *ChunkWriter) Write(p []byte) (int, error) {
	cw.frame = append(cw.frame, p...)
	return len(p), nil
}

// Clear appends a full terminal clear.
func (cw *ChunkWriter) Clear() {
	cw.frame = append(cw.frame, seqClear...)
}

// WriteAt writes s starting at col, row of the viewport.
func (cw *ChunkWriter) WriteAt(col, row int, s string) {
	cw.frame = appendCursor(cw.frame, col+cw.offCol, row+cw.offRow)
	cw.frame = append(cw.frame, s...)
}

// Line writes a full-width HUD line, padding it so the previous text is erased.
func (cw *ChunkWriter) Line(row, width int, s string) {
	cw.WriteAt(1, row, Fit(s, width))
}

// Centered writes s in the middle of a width-wide row.
func (cw *ChunkWriter) Centered(row, width int, s string) {
	n := len([]rune(s))
	cw.WriteAt(max(1, (width-n)/2+1), row, s)
}

// barLevels are the eighth-block characters from empty to full.
var barLevels = []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Bars draws values as vertical bars in a width by height box whose
// bottom-left cell is at col, row. Values are scaled against limit.
func (cw *ChunkWriter) Bars(col, row, width, height int, values []int, limit int) {
	if width <= 0 || height <= 0 || limit <= 0 {
		return
	}

	cols := Resample(values, width)
	line := make([]rune, width)
	for r := 0; r < height; r++ {
		below := (height - 1 - r) * 8
		for i, v := range cols {
			level := min(max(v*height*8/limit-below, 0), 8)
			line[i] = barLevels[level]
		}
		cw.WriteAt(col, row-height+1+r, string(line))
	}
}

// Flush sends the frame and starts a new one.
func (cw *ChunkWriter) Flush() error {
	err := writeChunks(cw.out, cw.frame)
	cw.frame = cw.frame[:0]
	if err != nil {
		return err
	}
	return cw.out.Flush()
}

// Resample reduces or stretches values to n columns. Each column takes the
// peak of the values it covers.
func Resample(values []int, n int) []int {
	out := make([]int, max(n, 0))
	if len(values) == 0 {
		return out
	}
	for i := range out {
		lo := i * len(values) / n
		hi := max((i+1)*len(values)/n, lo+1)
		peak := values[lo]
		for _, v := range values[lo:hi] {
			peak = max(peak, v)
		}
		out[i] = peak
	}
	return out
}

// Fit truncates or pads s to exactly width runes.
func Fit(s string, width int) string {
	r := []rune(s)
	if len(r) >= width {
		return string(r[:max(width, 0)])
	}
	return s + strings.Repeat(" ", width-len(r))
}

// EnterScreen hides the cursor and clears the terminal.
func EnterScreen(w io.Writer) {
	io.WriteString(w, seqHideCursor+seqClear)
}

// LeaveScreen clears the terminal and shows the cursor again.
func LeaveScreen(w io.Writer) {
	io.WriteString(w, seqClear+seqShowCursor)
}

// TermSizeFunc reports the terminal dimensions.
type TermSizeFunc func() (width, height int, err error)

// DefaultTermSizeFunc reads the size of os.Stdout.
var DefaultTermSizeFunc TermSizeFunc = func() (int, int, error) {
	return term.GetSize(int(os.Stdout.Fd()))
}
