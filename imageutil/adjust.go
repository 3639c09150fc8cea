package imageutil

import (
	"image"

	"github.com/disintegration/imaging"
)

// Adjustments are optional tone corrections applied before conversion.
// The zero value leaves the image untouched.
type Adjustments struct {
	// Gamma of 1.0 (or 0, meaning unset) gives the original image. Less
	// than 1.0 darkens, greater than 1.0 lightens.
	Gamma float64 `yaml:"gamma" json:"gamma,omitempty"`
	// Brightness in [-100, 100].
	Brightness float64 `yaml:"brightness" json:"brightness,omitempty"`
	// Contrast in [-100, 100].
	Contrast float64 `yaml:"contrast" json:"contrast,omitempty"`
	// Sharpen sigma; 0 disables.
	Sharpen float64 `yaml:"sharpen" json:"sharpen,omitempty"`
	Invert  bool    `yaml:"invert" json:"invert,omitempty"`
}

// IsZero reports whether no adjustment is configured.
func (a Adjustments) IsZero() bool {
	return (a.Gamma == 0 || a.Gamma == 1) && a.Brightness == 0 &&
		a.Contrast == 0 && a.Sharpen == 0 && !a.Invert
}

// Apply runs the configured adjustments in a fixed order: gamma,
// brightness, contrast, sharpen, invert. The input is returned as-is
// when nothing is configured.
func (a Adjustments) Apply(img image.Image) image.Image {
	if a.IsZero() {
		return img
	}
	if a.Gamma != 0 && a.Gamma != 1 {
		img = imaging.AdjustGamma(img, a.Gamma)
	}
	if a.Brightness != 0 {
		img = imaging.AdjustBrightness(img, a.Brightness)
	}
	if a.Contrast != 0 {
		img = imaging.AdjustContrast(img, a.Contrast)
	}
	if a.Sharpen > 0 {
		img = imaging.Sharpen(img, a.Sharpen)
	}
	if a.Invert {
		img = imaging.Invert(img)
	}
	return img
}
