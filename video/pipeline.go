// Package video converts sequences of frames into character renderings.
//
// A Pipeline pulls frames from a Source, converts each one independently
// with an img2ascii.Converter, and hands the result to an optional Display
// and an optional Sink. Sources, sinks and displays are owned by whoever
// opened them; the pipeline never closes them.
package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wbrown/img2ascii"
)

// DefaultProgressEvery is the number of frames between progress log lines.
const DefaultProgressEvery = 30

var (
	// ErrNoRaster is returned by sinks that write images when given a
	// frame converted in text mode.
	ErrNoRaster = errors.New("video: frame has no raster")

	// ErrNoText is returned by sinks that write text when given a frame
	// without a grid.
	ErrNoText = errors.New("video: frame has no grid")
)

// Source yields decoded frames. Read returns io.EOF once the source is
// exhausted.
type Source interface {
	Read(ctx context.Context) (image.Image, error)
	FPS() float64
	Close() error
}

// Sink receives converted frames in order.
type Sink interface {
	WriteFrame(f *img2ascii.Frame) error
	Close() error
}

// Display shows converted frames as they are produced. Show reports
// quit when the viewer asked to stop.
type Display interface {
	Show(f *img2ascii.Frame) (quit bool, err error)
	Close() error
}

// State is the position of a Pipeline in its lifecycle.
type State int

const (
	Idle State = iota
	Reading
	Processing
	Drained
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Reading:
		return "reading"
	case Processing:
		return "processing"
	case Drained:
		return "drained"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Stats summarizes a finished run. State is Drained or Stopped on
// success, and the state the failure happened in otherwise.
type Stats struct {
	Frames  int
	State   State
	Elapsed time.Duration
}

// FPS is the average conversion rate of the run.
func (s Stats) FPS() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Frames) / s.Elapsed.Seconds()
}

// Pipeline converts every frame of Source. Raster selects whether frames
// are rendered to glyph rasters or only converted to text grids.
type Pipeline struct {
	Converter     *img2ascii.Converter
	Source        Source
	Sink          Sink
	Display       Display
	Raster        bool
	ProgressEvery int
	Log           logrus.FieldLogger
}

// Run processes frames until the source is drained, the display asks to
// quit, or ctx is done. A quit request discards the frame being shown and
// returns a nil error; cancellation returns ctx.Err(). Both end in Stopped.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	if p.Converter == nil || p.Source == nil {
		return Stats{State: Idle}, errors.New("video: pipeline needs a converter and a source")
	}
	log := p.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	every := p.ProgressEvery
	if every <= 0 {
		every = DefaultProgressEvery
	}

	start := time.Now()
	stats := Stats{State: Idle}
	finish := func(state State, err error) (Stats, error) {
		stats.State = state
		stats.Elapsed = time.Since(start)
		if err == nil {
			log.WithFields(logrus.Fields{
				"frames": stats.Frames,
				"state":  state.String(),
			}).Info("processing complete")
		}
		return stats, err
	}

	log.Info("starting video processing")
	for {
		stats.State = Reading
		if err := ctx.Err(); err != nil {
			return finish(Stopped, err)
		}
		img, err := p.Source.Read(ctx)
		if err == io.EOF {
			return finish(Drained, nil)
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return finish(Stopped, ctxErr)
			}
			return finish(Reading, fmt.Errorf("video: failed to read frame %d: %w", stats.Frames, err))
		}

		stats.State = Processing
		frame, err := p.Converter.ConvertFrame(ctx, img, p.Raster)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return finish(Stopped, ctxErr)
			}
			return finish(Processing, fmt.Errorf("video: failed to convert frame %d: %w", stats.Frames, err))
		}

		if p.Display != nil {
			quit, err := p.Display.Show(frame)
			if err != nil {
				return finish(Processing, fmt.Errorf("video: failed to display frame %d: %w", stats.Frames, err))
			}
			if quit {
				log.Debug("quit requested")
				return finish(Stopped, nil)
			}
		}
		if p.Sink != nil {
			if err := p.Sink.WriteFrame(frame); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return finish(Stopped, ctxErr)
				}
				return finish(Processing, fmt.Errorf("video: failed to write frame %d: %w", stats.Frames, err))
			}
		}

		stats.Frames++
		if stats.Frames%every == 0 {
			log.WithFields(logrus.Fields{
				"frames": stats.Frames,
				"fps":    fmt.Sprintf("%.2f", float64(stats.Frames)/time.Since(start).Seconds()),
			}).Info("progress")
		}
	}
}

// FrameDelay converts a frame rate into the interval between frames,
// falling back to 30 fps for unknown or nonsensical rates.
func FrameDelay(fps float64) time.Duration {
	if fps <= 0 || fps > 1000 {
		fps = 30
	}
	return time.Duration(float64(time.Second) / fps)
}
