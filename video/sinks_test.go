package video

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/wbrown/img2ascii"
)

func textFrame(lines ...string) *img2ascii.Frame {
	g := &img2ascii.Grid{Rows: len(lines)}
	for _, l := range lines {
		row := make([]img2ascii.Cell, 0, len(l))
		for _, r := range l {
			row = append(row, img2ascii.Cell{Rune: r})
		}
		g.Cols = len(row)
		g.Cells = append(g.Cells, row)
	}
	return &img2ascii.Frame{Grid: g}
}

func TestGIFRoundTrip(t *testing.T) {
	c := newTestConverter(t)
	var buf bytes.Buffer
	sink := NewGIFSink(&buf, 20)
	p := &Pipeline{
		Converter: c,
		Source:    NewImageSource(20, testFrames(3)...),
		Sink:      sink,
		Raster:    true,
	}
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sink.Frames() != 3 {
		t.Fatalf("Expected 3 collected frames, got %d", sink.Frames())
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	src, err := DecodeGIF(&buf)
	if err != nil {
		t.Fatalf("DecodeGIF failed: %v", err)
	}
	if src.Len() != 3 {
		t.Errorf("Expected 3 frames, got %d", src.Len())
	}
	if src.FPS() != 20 {
		t.Errorf("Expected 20 fps, got %v", src.FPS())
	}
	img, err := src.Read(context.Background())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 16*7 || b.Dy() != 6*13 {
		t.Errorf("Unexpected frame size %v", b)
	}
}

func TestGIFSinkEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := NewGIFSink(&buf, 10).Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Error("Expected no output without frames")
	}
	if err := NewGIFSink(&buf, 10).WriteFrame(textFrame("ab")); !errors.Is(err, ErrNoRaster) {
		t.Errorf("Expected ErrNoRaster, got %v", err)
	}
}

func TestDecodeGIFComposites(t *testing.T) {
	pal := color.Palette{color.Black, color.White, color.Transparent}
	full := image.NewPaletted(image.Rect(0, 0, 4, 4), pal)
	for i := range full.Pix {
		full.Pix[i] = 1
	}
	// The second frame only covers the top-left pixel.
	patch := image.NewPaletted(image.Rect(0, 0, 1, 1), pal)
	var buf bytes.Buffer
	err := gif.EncodeAll(&buf, &gif.GIF{
		Image:  []*image.Paletted{full, patch},
		Delay:  []int{10, 10},
		Config: image.Config{Width: 4, Height: 4, ColorModel: pal},
	})
	if err != nil {
		t.Fatal(err)
	}

	src, err := DecodeGIF(&buf)
	if err != nil {
		t.Fatalf("DecodeGIF failed: %v", err)
	}
	src.Read(context.Background())
	second, err := src.Read(context.Background())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if r, _, _, _ := second.At(0, 0).RGBA(); r != 0 {
		t.Error("Expected the patched pixel to be black")
	}
	if r, _, _, _ := second.At(3, 3).RGBA(); r != 0xffff {
		t.Error("Expected untouched pixels to keep the first frame")
	}
	if _, err := src.Read(context.Background()); err != io.EOF {
		t.Errorf("Expected io.EOF, got %v", err)
	}
}

func TestTerminalSinkRepositionsCursor(t *testing.T) {
	var buf bytes.Buffer
	sink := &TerminalSink{W: &buf}
	if err := sink.WriteFrame(textFrame("ab", "cd")); err != nil {
		t.Fatal(err)
	}
	first := buf.String()
	if strings.Contains(first, "\033[999D") {
		t.Error("First frame should not move the cursor up")
	}
	if !strings.HasPrefix(first, "ab\033[K\n") {
		t.Errorf("Unexpected first frame %q", first)
	}

	buf.Reset()
	if err := sink.WriteFrame(textFrame("ef", "gh")); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "\033[999D\033[2A") {
		t.Errorf("Expected cursor reset over 2 rows, got %q", buf.String())
	}
	if err := sink.WriteFrame(&img2ascii.Frame{}); !errors.Is(err, ErrNoText) {
		t.Errorf("Expected ErrNoText, got %v", err)
	}
}

func TestTerminalSinkPaces(t *testing.T) {
	sink := &TerminalSink{W: io.Discard, Delay: 20 * time.Millisecond}
	start := time.Now()
	for i := 0; i < 4; i++ {
		if err := sink.WriteFrame(textFrame("x")); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Errorf("Expected at least 60ms for 4 paced frames, took %v", elapsed)
	}
}

type countingSink struct {
	frames, closes int
	err            error
}

func (s *countingSink) WriteFrame(*img2ascii.Frame) error { s.frames++; return nil }
func (s *countingSink) Close() error                      { s.closes++; return s.err }

func TestMultiSink(t *testing.T) {
	a := &countingSink{}
	b := &countingSink{err: errors.New("disk full")}
	m := MultiSink{a, b}
	for i := 0; i < 3; i++ {
		if err := m.WriteFrame(textFrame("x")); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.Close(); err == nil || err.Error() != "disk full" {
		t.Errorf("Expected close error, got %v", err)
	}
	if a.frames != 3 || b.frames != 3 || a.closes != 1 || b.closes != 1 {
		t.Errorf("Unexpected counts: %+v %+v", a, b)
	}
}

func TestFFmpegSinkNeedsRaster(t *testing.T) {
	s := NewFFmpegSink("out.mp4", 30)
	if err := s.WriteFrame(textFrame("x")); !errors.Is(err, ErrNoRaster) {
		t.Errorf("Expected ErrNoRaster, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Closing an unused sink should succeed, got %v", err)
	}
}

func TestOpenFFmpegMissingFile(t *testing.T) {
	if _, err := OpenFFmpeg("/nonexistent/clip.mp4"); err == nil {
		t.Error("Expected error for missing file")
	}
}
