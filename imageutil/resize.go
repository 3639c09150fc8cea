package imageutil

import (
	"fmt"
	"image"
	"strings"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// Interpolation specifies the interpolation method for resizing.
type Interpolation int

const (
	// InterpolationArea uses Catmull-Rom, the closest pure-Go match for
	// area averaging when downscaling.
	InterpolationArea Interpolation = iota

	// InterpolationLinear uses bilinear interpolation.
	InterpolationLinear

	// InterpolationNearest uses nearest-neighbor interpolation.
	// Fastest but lowest quality.
	InterpolationNearest

	// InterpolationLanczos uses a Lanczos-3 kernel from nfnt/resize.
	InterpolationLanczos
)

var interpolationNames = map[Interpolation]string{
	InterpolationArea:    "area",
	InterpolationLinear:  "linear",
	InterpolationNearest: "nearest",
	InterpolationLanczos: "lanczos",
}

func (i Interpolation) String() string {
	if name, ok := interpolationNames[i]; ok {
		return name
	}
	return fmt.Sprintf("Interpolation(%d)", int(i))
}

// ParseInterpolation maps a name such as "area" or "lanczos" to its
// Interpolation. The empty string selects InterpolationArea.
func ParseInterpolation(name string) (Interpolation, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return InterpolationArea, nil
	}
	for interp, n := range interpolationNames {
		if n == name {
			return interp, nil
		}
	}
	return InterpolationArea, fmt.Errorf("unknown interpolation %q", name)
}

func scalerFor(interp Interpolation) draw.Scaler {
	switch interp {
	case InterpolationLinear:
		return draw.BiLinear
	case InterpolationNearest:
		return draw.NearestNeighbor
	default:
		return draw.CatmullRom
	}
}

// Resize resizes an RGBA image to the specified dimensions using the
// given interpolation method.
func Resize(img *RGBAImage, width, height int, interp Interpolation) *RGBAImage {
	if interp == InterpolationLanczos {
		out := resize.Resize(uint(width), uint(height), img.RGBA, resize.Lanczos3)
		return RGBAImageFromImage(out)
	}

	dst := NewRGBAImage(width, height)
	scalerFor(interp).Scale(dst.RGBA, dst.Bounds(), img.RGBA, img.Bounds(), draw.Src, nil)
	return dst
}

// ResizeGray resizes a grayscale image to the specified dimensions.
func ResizeGray(img *GrayImage, width, height int, interp Interpolation) *GrayImage {
	if interp == InterpolationLanczos {
		out := resize.Resize(uint(width), uint(height), img.Gray, resize.Lanczos3)
		gray := NewGrayImage(width, height)
		draw.Draw(gray.Gray, gray.Bounds(), out, out.Bounds().Min, draw.Src)
		return gray
	}

	dst := NewGrayImage(width, height)
	scalerFor(interp).Scale(dst.Gray, image.Rect(0, 0, width, height), img.Gray, img.Bounds(), draw.Src, nil)
	return dst
}
