package main

import (
	"image"
	"image/color/palette"
	"image/gif"
	"os"
	"path/filepath"
	"testing"

	"github.com/codegangsta/cli"
	"github.com/wbrown/img2ascii"
	"github.com/wbrown/img2ascii/video"
	"github.com/wbrown/img2ascii/video/cv"
)

// runConfig parses args with the real global flags and returns the config
// a command would see.
func runConfig(t *testing.T, args ...string) img2ascii.Config {
	t.Helper()
	var cfg img2ascii.Config
	app := cli.NewApp()
	app.Flags = globalFlags
	app.Commands = []cli.Command{{
		Name: "probe",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "backend"},
			cli.BoolFlag{Name: "preview"},
		},
		Action: func(c *cli.Context) error {
			var err error
			cfg, err = loadConfig(c)
			return err
		},
	}}
	if err := app.Run(append([]string{"img2ascii"}, args...)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return cfg
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	body := "sample_rate: 0.1\nramp: classic\nfont_size: 18\nvideo:\n  backend: opencv\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := runConfig(t, "--config", path, "--ramp", "blocks", "--invert", "probe")
	if cfg.SampleRate != 0.1 {
		t.Errorf("Expected sample rate from file, got %v", cfg.SampleRate)
	}
	if cfg.FontSize != 18 {
		t.Errorf("Unset flag should not override file, got font size %v", cfg.FontSize)
	}
	if cfg.Ramp != "blocks" {
		t.Errorf("Expected ramp from flag, got %q", cfg.Ramp)
	}
	if !cfg.Adjust.Invert {
		t.Error("Expected invert from flag")
	}
	if cfg.Video.Backend != "opencv" {
		t.Errorf("Expected backend from file, got %q", cfg.Video.Backend)
	}

	cfg = runConfig(t, "--config", path, "probe", "--backend", "ffmpeg", "--preview")
	if cfg.Video.Backend != "ffmpeg" || !cfg.Video.Preview {
		t.Errorf("Expected command flags to override, got %+v", cfg.Video)
	}
}

func TestDefaultsWithoutConfig(t *testing.T) {
	cfg := runConfig(t, "--sample-rate", "0.3", "--font", "basic", "probe")
	if cfg.SampleRate != 0.3 {
		t.Errorf("Expected 0.3, got %v", cfg.SampleRate)
	}
	if len(cfg.Fonts) != 1 || cfg.Fonts[0] != "basic" {
		t.Errorf("Expected [basic], got %v", cfg.Fonts)
	}
	def := img2ascii.DefaultConfig()
	if cfg.Ramp != def.Ramp || cfg.Aspect != def.Aspect || cfg.Background != def.Background {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
}

func TestOpenSinkByExtension(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		path    string
		backend string
		raster  bool
		check   func(video.Sink) bool
	}{
		{"out.mp4", "ffmpeg", true, func(s video.Sink) bool { _, ok := s.(*video.FFmpegSink); return ok }},
		{"out.avi", "opencv", true, func(s video.Sink) bool { _, ok := s.(*cv.Writer); return ok }},
		{"out.gif", "", true, func(s video.Sink) bool { _, ok := s.(*video.GIFSink); return ok }},
		{"out.txt", "", false, func(s video.Sink) bool { _, ok := s.(*video.TextSink); return ok }},
		{"frames", "", true, func(s video.Sink) bool { _, ok := s.(*video.PNGSink); return ok }},
	}
	for _, tc := range cases {
		sink, raster, closer, err := openSink(filepath.Join(dir, tc.path), tc.backend, 25)
		if err != nil {
			t.Fatalf("%s: openSink failed: %v", tc.path, err)
		}
		if raster != tc.raster {
			t.Errorf("%s: expected raster=%v", tc.path, tc.raster)
		}
		if !tc.check(sink) {
			t.Errorf("%s: unexpected sink %T", tc.path, sink)
		}
		sink.Close()
		closer()
	}
}

func TestOpenSourceGIF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.gif")
	frame := image.NewPaletted(image.Rect(0, 0, 8, 8), palette.Plan9)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	err = gif.EncodeAll(f, &gif.GIF{Image: []*image.Paletted{frame, frame}, Delay: []int{5, 5}})
	f.Close()
	if err != nil {
		t.Fatal(err)
	}

	src, err := openSource(path, "ffmpeg")
	if err != nil {
		t.Fatalf("openSource failed: %v", err)
	}
	defer src.Close()
	if src.FPS() != 20 {
		t.Errorf("Expected 20 fps, got %v", src.FPS())
	}
}

func TestOpenSourceErrors(t *testing.T) {
	if _, err := openSource("clip.mp4", "vlc"); err == nil {
		t.Error("Expected error for unknown backend")
	}
	if _, err := openSource(filepath.Join(t.TempDir(), "missing.gif"), ""); err == nil {
		t.Error("Expected error for missing file")
	}
	if _, err := openSource(filepath.Join(t.TempDir(), "missing.mp4"), "ffmpeg"); err == nil {
		t.Error("Expected error for missing file")
	}
}
