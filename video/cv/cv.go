// Package cv adapts OpenCV capture, encoding and preview windows to the
// video pipeline. It requires OpenCV to be installed.
package cv

import (
	"context"
	"fmt"
	"image"
	"io"

	"github.com/wbrown/img2ascii"
	"github.com/wbrown/img2ascii/imageutil"
	"github.com/wbrown/img2ascii/video"
	"gocv.io/x/gocv"
)

// WindowTitle is the title of the preview window.
const WindowTitle = "ASCII Video"

var (
	_ video.Source  = (*Capture)(nil)
	_ video.Sink    = (*Writer)(nil)
	_ video.Display = (*Window)(nil)
)

// matToRGBA converts a gocv.Mat (BGR) to an RGBAImage.
func matToRGBA(mat gocv.Mat) (*imageutil.RGBAImage, error) {
	if mat.Type() != gocv.MatTypeCV8UC3 {
		return nil, fmt.Errorf("cv: unsupported mat type %v", mat.Type())
	}
	height, width := mat.Rows(), mat.Cols()
	img := imageutil.NewRGBAImage(width, height)
	bgr := mat.ToBytes()
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * 3
			img.SetRGB(x, y, imageutil.RGB{R: bgr[i+2], G: bgr[i+1], B: bgr[i]})
		}
	}
	return img, nil
}

// rgbaToMat converts an image to a gocv.Mat (BGR). The caller closes the
// result.
func rgbaToMat(src image.Image) (gocv.Mat, error) {
	img := imageutil.RGBAImageFromImage(src)
	width, height := img.Width(), img.Height()
	bgr := make([]byte, width*height*3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := img.GetRGB(x, y)
			i := (y*width + x) * 3
			bgr[i], bgr[i+1], bgr[i+2] = c.B, c.G, c.R
		}
	}
	return gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, bgr)
}

// Capture reads frames from a video file through OpenCV.
type Capture struct {
	vc  *gocv.VideoCapture
	mat gocv.Mat
}

// OpenCapture opens path. It fails when OpenCV cannot open the file.
func OpenCapture(path string) (*Capture, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("cv: unable to open video file %s: %w", path, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("cv: unable to open video file %s", path)
	}
	return &Capture{vc: vc, mat: gocv.NewMat()}, nil
}

// FPS returns the container frame rate.
func (c *Capture) FPS() float64 { return c.vc.Get(gocv.VideoCaptureFPS) }

// Read decodes the next frame, returning io.EOF at the end of the file.
func (c *Capture) Read(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ok := c.vc.Read(&c.mat); !ok || c.mat.Empty() {
		return nil, io.EOF
	}
	img, err := matToRGBA(c.mat)
	if err != nil {
		return nil, err
	}
	return img.RGBA, nil
}

func (c *Capture) Close() error {
	c.mat.Close()
	return c.vc.Close()
}

// Writer encodes rendered frames with OpenCV using the mp4v codec. The
// file is opened on the first frame, sized from it.
type Writer struct {
	path string
	fps  float64
	vw   *gocv.VideoWriter
	size image.Point
}

// NewWriter returns a writer for path at fps.
func NewWriter(path string, fps float64) *Writer {
	if fps <= 0 {
		fps = 30
	}
	return &Writer{path: path, fps: fps}
}

// WriteFrame appends the frame's raster.
func (w *Writer) WriteFrame(f *img2ascii.Frame) error {
	if f.Raster == nil {
		return video.ErrNoRaster
	}
	size := f.Raster.Bounds().Size()
	if w.vw == nil {
		vw, err := gocv.VideoWriterFile(w.path, "mp4v", w.fps, size.X, size.Y, true)
		if err != nil {
			return fmt.Errorf("cv: failed to open video writer: %w", err)
		}
		w.vw, w.size = vw, size
	}
	if size != w.size {
		return fmt.Errorf("cv: frame size %v differs from %v", size, w.size)
	}
	mat, err := rgbaToMat(f.Raster)
	if err != nil {
		return err
	}
	defer mat.Close()
	return w.vw.Write(mat)
}

func (w *Writer) Close() error {
	if w.vw == nil {
		return nil
	}
	return w.vw.Close()
}

// Window previews rendered frames. Pressing q requests quit.
type Window struct {
	win *gocv.Window
}

// NewWindow opens the preview window.
func NewWindow() *Window {
	return &Window{win: gocv.NewWindow(WindowTitle)}
}

// Show draws the frame and polls the keyboard once.
func (w *Window) Show(f *img2ascii.Frame) (bool, error) {
	if f.Raster == nil {
		return false, video.ErrNoRaster
	}
	mat, err := rgbaToMat(f.Raster)
	if err != nil {
		return false, err
	}
	defer mat.Close()
	w.win.IMShow(mat)
	return w.win.WaitKey(1)&0xFF == 'q', nil
}

func (w *Window) Close() error {
	return w.win.Close()
}
