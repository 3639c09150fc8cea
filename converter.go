package img2ascii

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/wbrown/img2ascii/imageutil"
)

var (
	// ErrInvalidSampleRate is returned for a sample rate that is not
	// positive.
	ErrInvalidSampleRate = errors.New("img2ascii: sample rate must be positive")

	// ErrEmptyGrid is returned when the downsampled grid has no cells.
	ErrEmptyGrid = errors.New("img2ascii: image downsamples to an empty grid")
)

// floorEpsilon absorbs binary rounding in products such as 100*0.15 before
// flooring.
const floorEpsilon = 1e-9

// AspectMode controls whether rows are scaled by the glyph aspect ratio.
type AspectMode int

const (
	// AspectAuto corrects rendered rasters and leaves text output at the
	// plain sample rate.
	AspectAuto AspectMode = iota
	// AspectAlways corrects both text and raster output.
	AspectAlways
	// AspectNever never corrects.
	AspectNever
)

func (m AspectMode) String() string {
	switch m {
	case AspectAuto:
		return "auto"
	case AspectAlways:
		return "always"
	case AspectNever:
		return "never"
	}
	return fmt.Sprintf("AspectMode(%d)", int(m))
}

// ParseAspectMode maps "auto", "always" or "never" to an AspectMode.
func ParseAspectMode(s string) (AspectMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return AspectAuto, nil
	case "always", "on":
		return AspectAlways, nil
	case "never", "off":
		return AspectNever, nil
	}
	return AspectAuto, fmt.Errorf("unknown aspect mode %q", s)
}

// Converter turns images into character grids and glyph rasters. Its
// configuration is fixed by New, so one Converter may be shared between
// goroutines.
type Converter struct {
	sampleRate    float64
	ramp          Ramp
	fontSize      float64
	fontProviders []FontProvider
	aspect        AspectMode
	interp        imageutil.Interpolation
	grayModel     imageutil.GrayModel
	background    imageutil.RGB
	adjust        imageutil.Adjustments
	workers       int
	log           logrus.FieldLogger

	font *Font
}

// Option configures a Converter.
type Option func(*Converter)

// WithSampleRate sets the fraction of the source resolution kept.
func WithSampleRate(rate float64) Option {
	return func(c *Converter) {
		c.sampleRate = rate
	}
}

// WithRamp sets the symbol ramp.
func WithRamp(r Ramp) Option {
	return func(c *Converter) {
		c.ramp = r
	}
}

// WithFontSize sets the point size used for TrueType fonts.
func WithFontSize(size float64) Option {
	return func(c *Converter) {
		c.fontSize = size
	}
}

// WithFontProviders replaces the font resolution order.
func WithFontProviders(providers ...FontProvider) Option {
	return func(c *Converter) {
		c.fontProviders = providers
	}
}

// WithAspectMode sets the aspect-ratio policy.
func WithAspectMode(m AspectMode) Option {
	return func(c *Converter) {
		c.aspect = m
	}
}

// WithInterpolation sets the downsampling method.
func WithInterpolation(interp imageutil.Interpolation) Option {
	return func(c *Converter) {
		c.interp = interp
	}
}

// WithGrayModel sets how pixels are reduced to intensity.
func WithGrayModel(m imageutil.GrayModel) Option {
	return func(c *Converter) {
		c.grayModel = m
	}
}

// WithBackground sets the raster background color.
func WithBackground(bg imageutil.RGB) Option {
	return func(c *Converter) {
		c.background = bg
	}
}

// WithAdjustments sets the tone adjustments applied before downsampling.
func WithAdjustments(adj imageutil.Adjustments) Option {
	return func(c *Converter) {
		c.adjust = adj
	}
}

// WithWorkers bounds the goroutines used to render raster rows.
func WithWorkers(n int) Option {
	return func(c *Converter) {
		c.workers = n
	}
}

// WithLogger sets the logger. Converters are silent by default.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Converter) {
		c.log = log
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// New creates a Converter and resolves its font.
// Defaults: sample rate 0.15, ramp DefaultRamp, font size 12, aspect auto,
// area interpolation, BT.601 gray, black background, one render worker
// per CPU.
func New(opts ...Option) (*Converter, error) {
	c := &Converter{
		sampleRate: 0.15,
		ramp:       Ramp(DefaultRamp),
		fontSize:   12,
		aspect:     AspectAuto,
		interp:     imageutil.InterpolationArea,
		grayModel:  imageutil.GrayBT601,
		workers:    runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.log == nil {
		c.log = discardLogger()
	}
	if !(c.sampleRate > 0) || math.IsInf(c.sampleRate, 0) {
		return nil, ErrInvalidSampleRate
	}
	if len(c.ramp) == 0 {
		return nil, ErrEmptyRamp
	}
	if c.workers < 1 {
		c.workers = 1
	}
	if len(c.fontProviders) == 0 {
		c.fontProviders = DefaultFontProviders()
	}

	f, err := ResolveFont(c.fontSize, c.log, c.fontProviders...)
	if err != nil {
		return nil, err
	}
	c.font = f
	return c, nil
}

// SampleRate returns the configured sample rate.
func (c *Converter) SampleRate() float64 { return c.sampleRate }

// Ramp returns a copy of the symbol ramp.
func (c *Converter) Ramp() Ramp { return append(Ramp(nil), c.ramp...) }

// Font returns the resolved font.
func (c *Converter) Font() *Font { return c.font }

// Metrics returns the glyph cell size of the resolved font.
func (c *Converter) Metrics() GlyphMetrics { return c.font.Metrics }

// Settings describes the configuration in a form suitable for JSON.
type Settings struct {
	SampleRate  float64               `json:"sample_rate"`
	Ramp        string                `json:"ramp"`
	Font        string                `json:"font"`
	FontSize    float64               `json:"font_size"`
	GlyphWidth  int                   `json:"glyph_width"`
	GlyphHeight int                   `json:"glyph_height"`
	Aspect      string                `json:"aspect"`
	Resample    string                `json:"resample"`
	Gray        string                `json:"gray"`
	Adjust      imageutil.Adjustments `json:"adjust"`
}

// Settings returns the effective configuration.
func (c *Converter) Settings() Settings {
	return Settings{
		SampleRate:  c.sampleRate,
		Ramp:        c.ramp.String(),
		Font:        c.font.Name,
		FontSize:    c.font.Size,
		GlyphWidth:  c.font.Metrics.Width,
		GlyphHeight: c.font.Metrics.Height,
		Aspect:      c.aspect.String(),
		Resample:    c.interp.String(),
		Gray:        c.grayModel.String(),
		Adjust:      c.adjust,
	}
}

// GridSize returns the grid dimensions for a width x height source.
// Columns are floor(width*rate); rows are floor(height*rate*a), where a is
// the glyph aspect ratio when correction applies and 1 otherwise.
func (c *Converter) GridSize(width, height int, raster bool) (cols, rows int) {
	rowScale := c.sampleRate
	if c.aspect == AspectAlways || (c.aspect == AspectAuto && raster) {
		rowScale *= c.font.Metrics.Aspect()
	}
	cols = int(math.Floor(float64(width)*c.sampleRate + floorEpsilon))
	rows = int(math.Floor(float64(height)*rowScale + floorEpsilon))
	return cols, rows
}

// Convert produces the character grid for img.
func (c *Converter) Convert(img image.Image) (*Grid, error) {
	return c.grid(img, false)
}

// Render produces the character grid for img and draws it as a glyph
// raster.
func (c *Converter) Render(img image.Image) (*Frame, error) {
	return c.RenderContext(context.Background(), img)
}

// RenderContext is Render with cancellation between raster rows.
func (c *Converter) RenderContext(ctx context.Context, img image.Image) (*Frame, error) {
	g, err := c.grid(img, true)
	if err != nil {
		return nil, err
	}
	raster, err := c.RenderGrid(ctx, g)
	if err != nil {
		return nil, err
	}
	return &Frame{Grid: g, Raster: raster}, nil
}

// ConvertFrame converts img, rendering a raster only when raster is set.
func (c *Converter) ConvertFrame(ctx context.Context, img image.Image, raster bool) (*Frame, error) {
	if raster {
		return c.RenderContext(ctx, img)
	}
	g, err := c.Convert(img)
	if err != nil {
		return nil, err
	}
	return &Frame{Grid: g}, nil
}

func (c *Converter) grid(img image.Image, raster bool) (*Grid, error) {
	src := imageutil.RGBAImageFromImage(c.adjust.Apply(img))

	cols, rows := c.GridSize(src.Width(), src.Height(), raster)
	if cols < 1 || rows < 1 {
		return nil, fmt.Errorf("%w: %dx%d source at rate %v", ErrEmptyGrid,
			src.Width(), src.Height(), c.sampleRate)
	}

	small := imageutil.Resize(src, cols, rows, c.interp)
	gray := imageutil.ToGrayscale(small, c.grayModel)
	indices := Quantize(Normalize(gray.Rows()), c.ramp.Len())
	return newGrid(indices, c.ramp, small), nil
}
