package img2ascii

import (
	"fmt"
	"os"

	"github.com/wbrown/img2ascii/imageutil"
	"gopkg.in/yaml.v2"
)

// Config is the file form of the converter settings.
//
//	sample_rate: 0.1
//	ramp: classic
//	font_size: 20
//	fonts: [SourceCodePro-Bold.ttf]
//	aspect: auto
//	resample: area
//	gray: bt601
//	background: "#000000"
//	adjust:
//	  contrast: 20
//	video:
//	  progress_every: 30
type Config struct {
	SampleRate float64               `yaml:"sample_rate"`
	Ramp       string                `yaml:"ramp"`
	FontSize   float64               `yaml:"font_size"`
	Fonts      []string              `yaml:"fonts"`
	Aspect     string                `yaml:"aspect"`
	Resample   string                `yaml:"resample"`
	Gray       string                `yaml:"gray"`
	Background string                `yaml:"background"`
	Workers    int                   `yaml:"workers"`
	Adjust     imageutil.Adjustments `yaml:"adjust"`
	Video      VideoConfig           `yaml:"video"`
}

// VideoConfig holds frame pipeline settings.
type VideoConfig struct {
	// ProgressEvery logs progress every N frames; 0 means 30.
	ProgressEvery int `yaml:"progress_every"`
	// Preview opens a preview window when the backend supports one.
	Preview bool `yaml:"preview"`
	// Backend is "ffmpeg" or "opencv".
	Backend string `yaml:"backend"`
}

// DefaultConfig returns the settings New uses when given no options.
func DefaultConfig() Config {
	return Config{
		SampleRate: 0.15,
		Ramp:       DefaultRamp,
		FontSize:   12,
		Aspect:     AspectAuto.String(),
		Resample:   imageutil.InterpolationArea.String(),
		Gray:       imageutil.GrayBT601.String(),
		Background: "black",
		Video: VideoConfig{
			ProgressEvery: 30,
			Backend:       "ffmpeg",
		},
	}
}

// LoadConfig reads a YAML file over DefaultConfig, so keys missing from
// the file keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Options translates the config into converter options.
func (cfg Config) Options() ([]Option, error) {
	ramp, err := ParseRamp(cfg.Ramp)
	if err != nil {
		return nil, err
	}
	aspect, err := ParseAspectMode(cfg.Aspect)
	if err != nil {
		return nil, err
	}
	interp, err := imageutil.ParseInterpolation(cfg.Resample)
	if err != nil {
		return nil, err
	}
	gray, err := imageutil.ParseGrayModel(cfg.Gray)
	if err != nil {
		return nil, err
	}
	bg, err := imageutil.ParseColor(cfg.Background)
	if err != nil {
		return nil, err
	}

	opts := []Option{
		WithSampleRate(cfg.SampleRate),
		WithRamp(ramp),
		WithAspectMode(aspect),
		WithInterpolation(interp),
		WithGrayModel(gray),
		WithBackground(bg),
		WithAdjustments(cfg.Adjust),
	}
	if cfg.FontSize > 0 {
		opts = append(opts, WithFontSize(cfg.FontSize))
	}
	if cfg.Workers > 0 {
		opts = append(opts, WithWorkers(cfg.Workers))
	}

	// A single embedded font name replaces the search list.
	if len(cfg.Fonts) == 1 {
		if p := ParseFontProvider(cfg.Fonts[0]); isEmbedded(p) {
			return append(opts, WithFontProviders(p, BasicFont{})), nil
		}
	}
	return append(opts, WithFontProviders(DefaultFontProviders(cfg.Fonts...)...)), nil
}

func isEmbedded(p FontProvider) bool {
	switch p.(type) {
	case GoMonoFont, BasicFont:
		return true
	}
	return false
}
