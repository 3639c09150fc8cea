package video

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/wbrown/img2ascii"
	"golang.org/x/image/bmp"
)

// FFmpegSource decodes a video file with an ffmpeg subprocess that writes
// BMP frames to a pipe.
type FFmpegSource struct {
	path   string
	fps    float64
	cmd    *exec.Cmd
	out    *bufio.Reader
	cancel context.CancelFunc
	stderr bytes.Buffer
	done   bool
}

// OpenFFmpeg probes path with ffprobe and starts decoding it. It fails if
// the file cannot be opened or has no video stream.
func OpenFFmpeg(path string) (*FFmpegSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("video: unable to open %s: %w", path, err)
	}
	fps, err := probeFrameRate(path)
	if err != nil {
		return nil, fmt.Errorf("video: unable to open %s: %w", path, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &FFmpegSource{path: path, fps: fps, cancel: cancel}
	s.cmd = exec.CommandContext(ctx, "ffmpeg", "-v", "error", "-nostdin",
		"-i", path, "-f", "image2pipe", "-vcodec", "bmp", "pipe:1")
	s.cmd.Stderr = &s.stderr
	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	if err := s.cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("video: failed to start ffmpeg: %w", err)
	}
	s.out = bufio.NewReaderSize(stdout, 1<<20)
	return s, nil
}

// FPS returns the probed frame rate of the video stream.
func (s *FFmpegSource) FPS() float64 { return s.fps }

// Read decodes the next frame.
func (s *FFmpegSource) Read(ctx context.Context) (image.Image, error) {
	if s.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := s.out.Peek(1); err == io.EOF {
		s.done = true
		if err := s.cmd.Wait(); err != nil {
			return nil, fmt.Errorf("video: ffmpeg: %v: %s", err, strings.TrimSpace(s.stderr.String()))
		}
		return nil, io.EOF
	}
	img, err := bmp.Decode(s.out)
	if err != nil {
		return nil, fmt.Errorf("video: failed to decode frame: %w", err)
	}
	return img, nil
}

// Close stops the decoder.
func (s *FFmpegSource) Close() error {
	s.cancel()
	if !s.done {
		s.done = true
		s.cmd.Wait()
	}
	return nil
}

func probeFrameRate(path string) (float64, error) {
	out, err := exec.Command("ffprobe", "-v", "error", "-select_streams", "v:0",
		"-show_entries", "stream=r_frame_rate",
		"-of", "default=noprint_wrappers=1:nokey=1", path).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	return parseFrameRate(string(out))
}

// parseFrameRate parses ffprobe rates such as "30000/1001" or "25".
func parseFrameRate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("no video stream")
	}
	num, den := s, "1"
	if i := strings.IndexByte(s, '/'); i >= 0 {
		num, den = s[:i], s[i+1:]
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid frame rate %q", s)
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0, fmt.Errorf("invalid frame rate %q", s)
	}
	return n / d, nil
}

// FFmpegSink encodes rendered frames to a video file by piping BMP images
// into ffmpeg. The encoder starts on the first frame, sized from it.
type FFmpegSink struct {
	path   string
	fps    float64
	cmd    *exec.Cmd
	in     io.WriteCloser
	stderr bytes.Buffer
	bounds image.Rectangle
}

// NewFFmpegSink returns a sink writing an H.264 MP4 to path at fps.
func NewFFmpegSink(path string, fps float64) *FFmpegSink {
	if fps <= 0 {
		fps = 30
	}
	return &FFmpegSink{path: path, fps: fps}
}

func (s *FFmpegSink) start(bounds image.Rectangle) error {
	s.cmd = exec.Command("ffmpeg", "-y", "-v", "error",
		"-f", "image2pipe", "-vcodec", "bmp",
		"-framerate", strconv.FormatFloat(s.fps, 'f', -1, 64), "-i", "-",
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"-c:v", "libx264", "-pix_fmt", "yuv420p", s.path)
	s.cmd.Stderr = &s.stderr
	in, err := s.cmd.StdinPipe()
	if err != nil {
		return err
	}
	if err := s.cmd.Start(); err != nil {
		return fmt.Errorf("video: failed to start ffmpeg: %w", err)
	}
	s.in = in
	s.bounds = bounds
	return nil
}

// WriteFrame appends the frame's raster to the video.
func (s *FFmpegSink) WriteFrame(f *img2ascii.Frame) error {
	if f.Raster == nil {
		return ErrNoRaster
	}
	if s.in == nil {
		if err := s.start(f.Raster.Bounds()); err != nil {
			return err
		}
	}
	if f.Raster.Bounds().Size() != s.bounds.Size() {
		return fmt.Errorf("video: frame size %v differs from %v", f.Raster.Bounds().Size(), s.bounds.Size())
	}
	if err := bmp.Encode(s.in, f.Raster); err != nil {
		return fmt.Errorf("video: ffmpeg: %v: %s", err, strings.TrimSpace(s.stderr.String()))
	}
	return nil
}

// Close finishes the file. A sink that never received a frame writes
// nothing.
func (s *FFmpegSink) Close() error {
	if s.in == nil {
		return nil
	}
	s.in.Close()
	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("video: ffmpeg: %v: %s", err, strings.TrimSpace(s.stderr.String()))
	}
	return nil
}
