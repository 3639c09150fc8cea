package cv

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"testing"

	"github.com/wbrown/img2ascii"
	"github.com/wbrown/img2ascii/imageutil"
	"github.com/wbrown/img2ascii/video"
	"gocv.io/x/gocv"
)

func TestMatRoundTrip(t *testing.T) {
	img := imageutil.CreateColorBarsImage(64, 32)
	mat, err := rgbaToMat(img.RGBA)
	if err != nil {
		t.Fatalf("rgbaToMat failed: %v", err)
	}
	defer mat.Close()

	// gocv uses BGR format
	vec := mat.GetVecbAt(0, 0)
	c := img.GetRGB(0, 0)
	if vec[0] != c.B || vec[1] != c.G || vec[2] != c.R {
		t.Errorf("Expected BGR order, got %v for %v", vec, c)
	}

	back, err := matToRGBA(mat)
	if err != nil {
		t.Fatalf("matToRGBA failed: %v", err)
	}
	if d := imageutil.MaxDiff(img, back); d != 0 {
		t.Errorf("Expected lossless round trip, max diff %d", d)
	}
}

func TestMatToRGBARejectsGray(t *testing.T) {
	mat := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8U)
	defer mat.Close()
	if _, err := matToRGBA(mat); err == nil {
		t.Error("Expected error for single channel mat")
	}
}

func TestCompareGrayscaleConversion(t *testing.T) {
	img := imageutil.CreateColorBarsImage(256, 256)
	mat, err := rgbaToMat(img.RGBA)
	if err != nil {
		t.Fatal(err)
	}
	defer mat.Close()

	grayMat := gocv.NewMat()
	defer grayMat.Close()
	gocv.CvtColor(mat, &grayMat, gocv.ColorBGRToGray)

	pureGoGray := imageutil.ToGrayscale(img, imageutil.GrayBT601)

	maxDiff := 0
	for y := 0; y < 256; y++ {
		for x := 0; x < 256; x++ {
			d := int(grayMat.GetUCharAt(y, x)) - int(pureGoGray.GetGray(x, y))
			if d < 0 {
				d = -d
			}
			if d > maxDiff {
				maxDiff = d
			}
		}
	}
	t.Logf("Grayscale conversion max diff: %d", maxDiff)

	// Allow small differences due to rounding
	if maxDiff > 1 {
		t.Errorf("Grayscale max diff too high: %d (threshold: 1)", maxDiff)
	}
}

func TestCompareResize(t *testing.T) {
	img := imageutil.CreateGradientImage(256, 256)
	mat, err := rgbaToMat(img.RGBA)
	if err != nil {
		t.Fatal(err)
	}
	defer mat.Close()

	resizedMat := gocv.NewMat()
	defer resizedMat.Close()
	gocv.Resize(mat, &resizedMat, image.Point{X: 128, Y: 128}, 0, 0, gocv.InterpolationArea)
	gocvResized, err := matToRGBA(resizedMat)
	if err != nil {
		t.Fatal(err)
	}

	pureGoResized := imageutil.Resize(img, 128, 128, imageutil.InterpolationArea)

	var sum float64
	for y := 0; y < 128; y++ {
		for x := 0; x < 128; x++ {
			d := float64(gocvResized.GetRGB(x, y).R) - float64(pureGoResized.GetRGB(x, y).R)
			sum += d * d
		}
	}
	mse := sum / (128 * 128)
	t.Logf("Resize MSE: %f", mse)
	if mse > 10 {
		t.Errorf("Resize MSE too high: %f (threshold: 10.0)", mse)
	}
}

func TestWriterNeedsRaster(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "out.mp4"), 25)
	if err := w.WriteFrame(&img2ascii.Frame{}); !errors.Is(err, video.ErrNoRaster) {
		t.Errorf("Expected ErrNoRaster, got %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Closing an unused writer should succeed, got %v", err)
	}
}

func TestOpenCaptureMissingFile(t *testing.T) {
	if _, err := OpenCapture(filepath.Join(t.TempDir(), "missing.mp4")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestWriterCaptureRoundTrip(t *testing.T) {
	c, err := img2ascii.New(img2ascii.WithFontProviders(img2ascii.BasicFont{}), img2ascii.WithSampleRate(0.5))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "out.mp4")
	w := NewWriter(path, 10)
	frames := make([]image.Image, 5)
	for i := range frames {
		frames[i] = imageutil.CreateGradientImage(64, 48).RGBA
	}
	p := &video.Pipeline{Converter: c, Source: video.NewImageSource(10, frames...), Sink: w, Raster: true}
	if _, err := p.Run(context.Background()); err != nil {
		w.Close()
		t.Skipf("mp4v encoder unavailable: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	capture, err := OpenCapture(path)
	if err != nil {
		t.Skipf("mp4v codec unavailable: %v", err)
	}
	defer capture.Close()
	img, err := capture.Read(context.Background())
	if err != nil {
		t.Skipf("mp4v decode unavailable: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 32*7 || b.Dy() != 12*13 {
		t.Errorf("Unexpected frame size %v", b)
	}
}
