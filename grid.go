package img2ascii

import (
	"image"
	"io"
	"strings"

	"github.com/wbrown/img2ascii/imageutil"
)

// Cell is one character of a Grid together with the ramp index it was
// quantized to and the color of the downsampled source pixel.
type Cell struct {
	Rune  rune
	Index int
	Color imageutil.RGB
}

// Grid is a character rendering of an image, one Cell per downsampled
// pixel, stored row-major.
type Grid struct {
	Cols, Rows int
	Cells      [][]Cell
}

// Frame is the result of converting one image: always a Grid, plus the
// glyph raster when the conversion rendered one.
type Frame struct {
	Grid   *Grid
	Raster *image.RGBA
}

// Lines returns each row of the grid as a string.
func (g *Grid) Lines() []string {
	lines := make([]string, len(g.Cells))
	var b strings.Builder
	for y, row := range g.Cells {
		b.Reset()
		for _, c := range row {
			b.WriteRune(c.Rune)
		}
		lines[y] = b.String()
	}
	return lines
}

// String joins the rows with newlines, without a trailing newline.
func (g *Grid) String() string {
	return strings.Join(g.Lines(), "\n")
}

// WriteTo writes the grid followed by a newline.
func (g *Grid) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, g.String()+"\n")
	return int64(n), err
}

// Indices returns the ramp index of every cell.
func (g *Grid) Indices() [][]int {
	out := make([][]int, len(g.Cells))
	for y, row := range g.Cells {
		out[y] = make([]int, len(row))
		for x, c := range row {
			out[y][x] = c.Index
		}
	}
	return out
}

// newGrid assembles a Grid from quantized indices and the parallel color
// image, which must have the same dimensions.
func newGrid(indices [][]int, ramp Ramp, colors *imageutil.RGBAImage) *Grid {
	g := &Grid{Rows: len(indices)}
	if g.Rows > 0 {
		g.Cols = len(indices[0])
	}
	g.Cells = make([][]Cell, g.Rows)
	for y, row := range indices {
		g.Cells[y] = make([]Cell, len(row))
		for x, idx := range row {
			g.Cells[y][x] = Cell{
				Rune:  ramp.At(idx),
				Index: idx,
				Color: colors.GetRGB(x, y),
			}
		}
	}
	return g
}
