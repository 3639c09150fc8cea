package img2ascii

import (
	"context"
	"image"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/sync/errgroup"
)

// RenderGrid draws every cell of g at (col*width, row*height) in the
// cell's color on a background-filled canvas of exactly
// (Cols*width, Rows*height). Rows are split into contiguous bands, one
// goroutine and one font face per band; glyphs are clipped to their cell
// so bands never touch the same pixels.
func (c *Converter) RenderGrid(ctx context.Context, g *Grid) (*image.RGBA, error) {
	m := c.font.Metrics
	canvas := image.NewRGBA(image.Rect(0, 0, g.Cols*m.Width, g.Rows*m.Height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(c.background.ToColor()), image.Point{}, draw.Src)

	workers := c.workers
	if workers > g.Rows {
		workers = g.Rows
	}
	if workers < 1 {
		return canvas, nil
	}
	band := (g.Rows + workers - 1) / workers

	eg, ctx := errgroup.WithContext(ctx)
	for start := 0; start < g.Rows; start += band {
		start, end := start, start+band
		if end > g.Rows {
			end = g.Rows
		}
		eg.Go(func() error {
			face := c.font.NewFace()
			defer face.Close()
			d := &font.Drawer{Face: face}
			for y := start; y < end; y++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				drawRow(d, canvas, g.Cells[y], y, m)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return canvas, nil
}

func drawRow(d *font.Drawer, canvas *image.RGBA, row []Cell, y int, m GlyphMetrics) {
	top := y * m.Height
	for x, cell := range row {
		if cell.Rune == ' ' {
			continue
		}
		left := x * m.Width
		d.Dst = canvas.SubImage(image.Rect(left, top, left+m.Width, top+m.Height)).(*image.RGBA)
		d.Src = image.NewUniform(cell.Color.ToColor())
		d.Dot = fixed.P(left, top+m.Ascent)
		d.DrawString(string(cell.Rune))
	}
}
