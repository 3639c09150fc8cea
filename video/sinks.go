package video

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wbrown/img2ascii"
	"github.com/wbrown/img2ascii/imageutil"
)

// PNGSink writes each raster to a numbered file in Dir, which is created
// on the first frame.
type PNGSink struct {
	Dir string
	n   int
}

// WriteFrame saves the raster as frame_NNNNNN.png.
func (s *PNGSink) WriteFrame(f *img2ascii.Frame) error {
	if f.Raster == nil {
		return ErrNoRaster
	}
	if s.n == 0 {
		if err := os.MkdirAll(s.Dir, 0755); err != nil {
			return fmt.Errorf("video: failed to create output directory: %w", err)
		}
	}
	path := filepath.Join(s.Dir, fmt.Sprintf("frame_%06d.png", s.n))
	if err := imageutil.SaveImage(f.Raster, path); err != nil {
		return err
	}
	s.n++
	return nil
}

func (s *PNGSink) Close() error { return nil }

// TerminalSink prints text frames to an ANSI terminal, moving the cursor
// back over the previous frame before each new one. A non-zero Delay paces
// output to one frame per Delay.
type TerminalSink struct {
	W     io.Writer
	Delay time.Duration

	lastRows int
	next     time.Time
}

// WriteFrame prints the frame's grid.
func (s *TerminalSink) WriteFrame(f *img2ascii.Frame) error {
	if f.Grid == nil {
		return ErrNoText
	}
	if s.Delay > 0 {
		now := time.Now()
		if s.next.After(now) {
			time.Sleep(s.next.Sub(now))
		} else {
			s.next = now
		}
		s.next = s.next.Add(s.Delay)
	}

	var b strings.Builder
	if s.lastRows > 0 {
		// Start of line, then up to the top of the previous frame.
		fmt.Fprintf(&b, "\033[999D\033[%dA", s.lastRows)
	}
	for _, line := range f.Grid.Lines() {
		b.WriteString(line)
		b.WriteString("\033[K\n")
	}
	s.lastRows = f.Grid.Rows
	_, err := io.WriteString(s.W, b.String())
	return err
}

func (s *TerminalSink) Close() error { return nil }

// TextSink writes each grid as plain text followed by a blank line.
type TextSink struct {
	W io.Writer
}

func (s *TextSink) WriteFrame(f *img2ascii.Frame) error {
	if f.Grid == nil {
		return ErrNoText
	}
	_, err := io.WriteString(s.W, f.Grid.String()+"\n\n")
	return err
}

func (s *TextSink) Close() error { return nil }

// MultiSink fans frames out to several sinks.
type MultiSink []Sink

func (m MultiSink) WriteFrame(f *img2ascii.Frame) error {
	for _, s := range m {
		if err := s.WriteFrame(f); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink and returns the first error.
func (m MultiSink) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
