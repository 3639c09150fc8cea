package img2ascii

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wbrown/img2ascii/imageutil"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "img2ascii.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
sample_rate: 0.1
ramp: classic
font_size: 20
fonts: [basic]
aspect: never
resample: nearest
gray: lab
background: "#102030"
adjust:
  contrast: 15
  invert: true
video:
  progress_every: 10
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.SampleRate != 0.1 || cfg.Ramp != "classic" || cfg.FontSize != 20 {
		t.Errorf("Unexpected config: %+v", cfg)
	}
	if !cfg.Adjust.Invert || cfg.Adjust.Contrast != 15 {
		t.Errorf("Unexpected adjustments: %+v", cfg.Adjust)
	}
	if cfg.Video.ProgressEvery != 10 {
		t.Errorf("Expected progress_every 10, got %d", cfg.Video.ProgressEvery)
	}
	if cfg.Video.Backend != "ffmpeg" {
		t.Errorf("Missing keys should keep defaults, got backend %q", cfg.Video.Backend)
	}

	opts, err := cfg.Options()
	if err != nil {
		t.Fatalf("Options failed: %v", err)
	}
	c, err := New(opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	s := c.Settings()
	if s.SampleRate != 0.1 || s.Ramp != ".-vM" || s.Font != "basic" {
		t.Errorf("Unexpected settings: %+v", s)
	}
	if s.Aspect != "never" || s.Resample != "nearest" || s.Gray != "lab" {
		t.Errorf("Unexpected settings: %+v", s)
	}
	if c.background != (imageutil.RGB{R: 0x10, G: 0x20, B: 0x30}) {
		t.Errorf("Unexpected background %v", c.background)
	}
}

func TestLoadConfigUnknownKey(t *testing.T) {
	path := writeConfig(t, "sample_rat: 0.2\n")
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected error for unknown key")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestConfigOptionsInvalid(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"ramp":       func(c *Config) { c.Ramp = "" },
		"aspect":     func(c *Config) { c.Aspect = "sideways" },
		"resample":   func(c *Config) { c.Resample = "bogus" },
		"gray":       func(c *Config) { c.Gray = "sepia" },
		"background": func(c *Config) { c.Background = "#zz" },
	} {
		cfg := DefaultConfig()
		mutate(&cfg)
		if _, err := cfg.Options(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestDefaultConfigMatchesNew(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Fonts = []string{"basic"}
	opts, err := cfg.Options()
	if err != nil {
		t.Fatalf("Options failed: %v", err)
	}
	fromConfig, err := New(opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	plain := newTestConverter(t)
	if fromConfig.Settings() != plain.Settings() {
		t.Errorf("Expected %+v, got %+v", plain.Settings(), fromConfig.Settings())
	}
}
