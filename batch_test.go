package img2ascii

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/wbrown/img2ascii/imageutil"
)

func TestBatchConvert(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "nested", "out")

	if err := imageutil.SaveImage(imageutil.CreateGradientImage(40, 40), filepath.Join(in, "a.png")); err != nil {
		t.Fatal(err)
	}
	if err := imageutil.SaveImage(imageutil.CreateColorBarsImage(80, 40), filepath.Join(in, "b.png")); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(in, "notes.txt"), []byte("skip me"), 0644); err != nil {
		t.Fatal(err)
	}

	c := newTestConverter(t, WithSampleRate(0.25))
	n, err := BatchConvert(context.Background(), in, out, c, discardLogger())
	if err != nil {
		t.Fatalf("BatchConvert failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 files, got %d", n)
	}

	entries, err := os.ReadDir(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 outputs, got %d", len(entries))
	}

	// 80x40 at 0.25: 20 columns, floor(10 * 7/13) = 5 rows.
	img, err := imageutil.LoadImage(filepath.Join(out, "b.png"+BatchOutputSuffix))
	if err != nil {
		t.Fatalf("Missing output: %v", err)
	}
	if img.Width() != 20*7 || img.Height() != 5*13 {
		t.Errorf("Expected %dx%d, got %dx%d", 20*7, 5*13, img.Width(), img.Height())
	}
}

func TestBatchConvertStopsOnError(t *testing.T) {
	in := t.TempDir()
	if err := os.WriteFile(filepath.Join(in, "broken.png"), []byte("not a png"), 0644); err != nil {
		t.Fatal(err)
	}
	c := newTestConverter(t)
	n, err := BatchConvert(context.Background(), in, t.TempDir(), c, discardLogger())
	if err == nil {
		t.Error("Expected error for undecodable image")
	}
	if n != 0 {
		t.Errorf("Expected 0 files, got %d", n)
	}
}

func TestBatchConvertMissingDir(t *testing.T) {
	c := newTestConverter(t)
	if _, err := BatchConvert(context.Background(), filepath.Join(t.TempDir(), "nope"), t.TempDir(), c, discardLogger()); err == nil {
		t.Error("Expected error for missing input directory")
	}
}
