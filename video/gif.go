package video

import (
	"context"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"io"

	"github.com/wbrown/img2ascii"
)

// ImageSource replays an in-memory list of frames at a fixed rate.
type ImageSource struct {
	frames []image.Image
	fps    float64
	next   int
}

// NewImageSource returns a source yielding frames in order.
func NewImageSource(fps float64, frames ...image.Image) *ImageSource {
	return &ImageSource{frames: frames, fps: fps}
}

// FPS returns the playback rate.
func (s *ImageSource) FPS() float64 { return s.fps }

// Len returns the total number of frames.
func (s *ImageSource) Len() int { return len(s.frames) }

func (s *ImageSource) Read(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.frames) {
		return nil, io.EOF
	}
	img := s.frames[s.next]
	s.next++
	return img, nil
}

func (s *ImageSource) Close() error { return nil }

// DecodeGIF decodes an animated GIF into fully composited frames, applying
// each frame's disposal method. The rate is derived from the mean frame
// delay.
func DecodeGIF(r io.Reader) (*ImageSource, error) {
	g, err := gif.DecodeAll(r)
	if err != nil {
		return nil, fmt.Errorf("video: failed to decode gif: %w", err)
	}
	if len(g.Image) == 0 {
		return NewImageSource(0), nil
	}

	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		bounds = g.Image[0].Bounds()
	}
	screen := image.NewRGBA(bounds)
	frames := make([]image.Image, 0, len(g.Image))
	var delay int
	for i, frame := range g.Image {
		var previous *image.RGBA
		disposal := byte(0)
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}
		if disposal == gif.DisposalPrevious {
			previous = image.NewRGBA(bounds)
			copy(previous.Pix, screen.Pix)
		}

		draw.Draw(screen, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
		out := image.NewRGBA(bounds)
		copy(out.Pix, screen.Pix)
		frames = append(frames, out)

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(screen, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			screen = previous
		}
		if i < len(g.Delay) {
			delay += g.Delay[i]
		}
	}

	fps := 10.0
	if delay > 0 {
		fps = 100 * float64(len(frames)) / float64(delay)
	}
	return NewImageSource(fps, frames...), nil
}

// GIFSink collects rendered frames and encodes them as an animated GIF on
// Close. Frames are dithered onto the Plan 9 palette.
type GIFSink struct {
	w      io.Writer
	delay  int
	frames *gif.GIF
}

// NewGIFSink returns a sink writing to w at fps.
func NewGIFSink(w io.Writer, fps float64) *GIFSink {
	delay := 10
	if fps > 0 {
		delay = int(100/fps + 0.5)
	}
	if delay < 2 {
		delay = 2
	}
	return &GIFSink{w: w, delay: delay, frames: &gif.GIF{}}
}

// WriteFrame quantizes and appends the frame's raster.
func (s *GIFSink) WriteFrame(f *img2ascii.Frame) error {
	if f.Raster == nil {
		return ErrNoRaster
	}
	b := f.Raster.Bounds()
	paletted := image.NewPaletted(b, palette.Plan9)
	draw.FloydSteinberg.Draw(paletted, b, f.Raster, b.Min)
	s.frames.Image = append(s.frames.Image, paletted)
	s.frames.Delay = append(s.frames.Delay, s.delay)
	return nil
}

// Frames returns the number of frames collected so far.
func (s *GIFSink) Frames() int { return len(s.frames.Image) }

// Close encodes the collected frames. Nothing is written when no frame was
// received.
func (s *GIFSink) Close() error {
	if len(s.frames.Image) == 0 {
		return nil
	}
	if err := gif.EncodeAll(s.w, s.frames); err != nil {
		return fmt.Errorf("video: failed to encode gif: %w", err)
	}
	return nil
}
