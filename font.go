package img2ascii

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gomono"
)

// ErrNoFont is returned when every font provider failed.
var ErrNoFont = errors.New("img2ascii: no usable font")

// metricsRune is measured to size a cell. Glyph cells are fixed-width, so
// one wide rune is enough.
const metricsRune = 'M'

// DefaultFontPaths are tried, in order, before the embedded fonts.
var DefaultFontPaths = []string{
	"simhei.ttf",
	"C:/Windows/Fonts/simhei.ttf",
	"/System/Library/Fonts/PingFang.ttc",
	"SourceCodePro-Bold.ttf",
	"DejaVuSansMono.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSansMono.ttf",
}

// GlyphMetrics is the pixel size of one character cell. Ascent is the
// baseline offset from the top of the cell.
type GlyphMetrics struct {
	Width, Height int
	Ascent        int
}

// Aspect returns Width/Height.
func (m GlyphMetrics) Aspect() float64 {
	return float64(m.Width) / float64(m.Height)
}

// Font is a resolved font at a fixed size.
type Font struct {
	Name    string
	Size    float64
	Metrics GlyphMetrics

	newFace func() font.Face
}

// NewFace returns a face for drawing. TrueType faces cache glyphs and are
// not safe for concurrent use, so each goroutine needs its own.
func (f *Font) NewFace() font.Face {
	return f.newFace()
}

// FontProvider is one strategy for obtaining a font.
type FontProvider interface {
	LoadFont(size float64) (*Font, error)
	String() string
}

// FileFont loads a TrueType font from disk.
type FileFont struct {
	Path string
}

func (p FileFont) String() string { return p.Path }

// LoadFont reads and parses the font file.
func (p FileFont) LoadFont(size float64) (*Font, error) {
	fontBytes, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, err
	}
	return parseTrueType(p.Path, fontBytes, size)
}

// GoMonoFont is the Go Mono TrueType font compiled into the binary.
type GoMonoFont struct{}

func (GoMonoFont) String() string { return "gomono" }

// LoadFont parses the embedded font.
func (GoMonoFont) LoadFont(size float64) (*Font, error) {
	return parseTrueType("gomono", gomono.TTF, size)
}

// BasicFont is the built-in 7x13 bitmap face. It ignores the requested
// size.
type BasicFont struct{}

func (BasicFont) String() string { return "basic" }

// LoadFont always succeeds.
func (BasicFont) LoadFont(size float64) (*Font, error) {
	face := basicfont.Face7x13
	return &Font{
		Name:    "basic",
		Size:    13,
		Metrics: measure(face),
		newFace: func() font.Face { return face },
	}, nil
}

func parseTrueType(name string, data []byte, size float64) (*Font, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid font size %v", size)
	}
	ttf, err := freetype.ParseFont(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font %s: %w", name, err)
	}

	newFace := func() font.Face {
		return truetype.NewFace(ttf, &truetype.Options{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
	}

	face := newFace()
	defer face.Close()
	if _, ok := face.GlyphAdvance(metricsRune); !ok {
		return nil, fmt.Errorf("font %s has no glyph for %q", name, metricsRune)
	}

	return &Font{
		Name:    name,
		Size:    size,
		Metrics: measure(face),
		newFace: newFace,
	}, nil
}

func measure(face font.Face) GlyphMetrics {
	m := face.Metrics()
	adv, ok := face.GlyphAdvance(metricsRune)
	if !ok {
		adv = m.Height / 2
	}

	gm := GlyphMetrics{
		Width:  adv.Ceil(),
		Height: (m.Ascent + m.Descent).Ceil(),
		Ascent: m.Ascent.Ceil(),
	}
	if gm.Height <= 0 {
		gm.Height = m.Height.Ceil()
	}
	if gm.Width < 1 {
		gm.Width = 1
	}
	if gm.Height < 1 {
		gm.Height = 1
	}
	return gm
}

// DefaultFontProviders returns the resolution order used when no
// providers are configured: the given paths, DefaultFontPaths, the
// embedded Go Mono font and finally the basic bitmap face.
func DefaultFontProviders(paths ...string) []FontProvider {
	providers := make([]FontProvider, 0, len(paths)+len(DefaultFontPaths)+2)
	for _, p := range paths {
		providers = append(providers, FileFont{Path: p})
	}
	for _, p := range DefaultFontPaths {
		providers = append(providers, FileFont{Path: p})
	}
	return append(providers, GoMonoFont{}, BasicFont{})
}

// ParseFontProvider maps a CLI font name to a provider: "gomono" and
// "basic" select the embedded fonts, anything else is a file path.
func ParseFontProvider(name string) FontProvider {
	switch strings.ToLower(name) {
	case "gomono":
		return GoMonoFont{}
	case "basic":
		return BasicFont{}
	}
	return FileFont{Path: name}
}

// ResolveFont tries each provider in order and returns the first font
// that loads.
func ResolveFont(size float64, log logrus.FieldLogger, providers ...FontProvider) (*Font, error) {
	for _, p := range providers {
		f, err := p.LoadFont(size)
		if err != nil {
			log.WithField("font", p.String()).WithError(err).Debug("font unavailable")
			continue
		}
		log.WithFields(logrus.Fields{
			"font":   f.Name,
			"width":  f.Metrics.Width,
			"height": f.Metrics.Height,
		}).Info("using font")
		return f, nil
	}
	return nil, ErrNoFont
}
