package imageutil

import (
	"fmt"
	"math"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// GrayModel selects how a color pixel is reduced to one intensity.
type GrayModel int

const (
	// GrayBT601 is the luma used by PIL's "L" mode and OpenCV's
	// COLOR_BGR2GRAY: Y = 0.299*R + 0.587*G + 0.114*B.
	GrayBT601 GrayModel = iota

	// GrayLab uses CIE L* lightness scaled to [0, 255].
	GrayLab
)

func (m GrayModel) String() string {
	switch m {
	case GrayBT601:
		return "bt601"
	case GrayLab:
		return "lab"
	}
	return fmt.Sprintf("GrayModel(%d)", int(m))
}

// ParseGrayModel maps "bt601" or "lab" to a GrayModel. The empty string
// selects GrayBT601.
func ParseGrayModel(name string) (GrayModel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "bt601", "luma":
		return GrayBT601, nil
	case "lab", "lightness":
		return GrayLab, nil
	}
	return GrayBT601, fmt.Errorf("unknown gray model %q", name)
}

// ToGrayscale converts an RGBA image to intensities with the given model.
func ToGrayscale(img *RGBAImage, model GrayModel) *GrayImage {
	width, height := img.Width(), img.Height()
	gray := NewGrayImage(width, height)

	for y := 0; y < height; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+width]
		for x := 0; x < width; x++ {
			c := img.RGBAAt(x, y)
			if model == GrayLab {
				row[x] = lightness(c.R, c.G, c.B)
				continue
			}
			// Integer BT.601, rounded.
			lum := (299*int(c.R) + 587*int(c.G) + 114*int(c.B) + 500) / 1000
			if lum > 255 {
				lum = 255
			}
			row[x] = uint8(lum)
		}
	}

	return gray
}

func lightness(r, g, b uint8) uint8 {
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	l, _, _ := c.Lab()
	v := math.Round(l * 255)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// ParseColor parses a hex color ("#102030") or one of a few names into RGB.
func ParseColor(s string) (RGB, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "black":
		return RGB{}, nil
	case "white":
		return RGB{R: 255, G: 255, B: 255}, nil
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return RGB{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return RGB{R: r, G: g, B: b}, nil
}
