// Package imageutil holds the pixel-level helpers shared by the converter
// and the frame pipeline: color and intensity grids, resampling, grayscale
// models, tone adjustments and file I/O.
package imageutil

import (
	"image"
	"image/color"
	"image/draw"
)

// RGB represents a color in the RGB color space with 8-bit channels.
type RGB struct {
	R, G, B uint8
}

// ToColor converts RGB to an opaque color.RGBA.
func (rgb RGB) ToColor() color.RGBA {
	return color.RGBA{R: rgb.R, G: rgb.G, B: rgb.B, A: 255}
}

// RGBFromColor converts a color.Color to RGB, dropping alpha.
func RGBFromColor(c color.Color) RGB {
	r, g, b, _ := c.RGBA()
	return RGB{
		R: uint8(r >> 8),
		G: uint8(g >> 8),
		B: uint8(b >> 8),
	}
}

// RGBAImage is a color grid anchored at (0, 0).
type RGBAImage struct {
	*image.RGBA
}

// NewRGBAImage creates a new RGBAImage with the specified dimensions.
func NewRGBAImage(width, height int) *RGBAImage {
	return &RGBAImage{
		RGBA: image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// RGBAImageFromImage copies any image.Image into an RGBAImage whose
// bounds start at the origin. Images that already are a zero-origin
// *image.RGBA are wrapped without copying.
func RGBAImageFromImage(img image.Image) *RGBAImage {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return &RGBAImage{RGBA: rgba}
	}
	bounds := img.Bounds()
	dst := NewRGBAImage(bounds.Dx(), bounds.Dy())
	draw.Draw(dst.RGBA, dst.Bounds(), img, bounds.Min, draw.Src)
	return dst
}

// Width returns the image width.
func (img *RGBAImage) Width() int {
	return img.Bounds().Dx()
}

// Height returns the image height.
func (img *RGBAImage) Height() int {
	return img.Bounds().Dy()
}

// GetRGB returns the RGB value at (x, y).
func (img *RGBAImage) GetRGB(x, y int) RGB {
	c := img.RGBAAt(x, y)
	return RGB{R: c.R, G: c.G, B: c.B}
}

// SetRGB sets the RGB value at (x, y).
func (img *RGBAImage) SetRGB(x, y int, c RGB) {
	img.SetRGBA(x, y, c.ToColor())
}

// GrayImage is an intensity grid in [0, 255] anchored at (0, 0).
type GrayImage struct {
	*image.Gray
}

// NewGrayImage creates a new GrayImage with the specified dimensions.
func NewGrayImage(width, height int) *GrayImage {
	return &GrayImage{
		Gray: image.NewGray(image.Rect(0, 0, width, height)),
	}
}

// GrayImageFromRows builds a GrayImage from row-major intensity values.
// Rows shorter than the first row are padded with zeros.
func GrayImageFromRows(rows [][]uint8) *GrayImage {
	if len(rows) == 0 {
		return NewGrayImage(0, 0)
	}
	gray := NewGrayImage(len(rows[0]), len(rows))
	for y, row := range rows {
		copy(gray.Pix[y*gray.Stride:y*gray.Stride+gray.Width()], row)
	}
	return gray
}

// Width returns the image width.
func (img *GrayImage) Width() int {
	return img.Bounds().Dx()
}

// Height returns the image height.
func (img *GrayImage) Height() int {
	return img.Bounds().Dy()
}

// GetGray returns the intensity at (x, y).
func (img *GrayImage) GetGray(x, y int) uint8 {
	return img.GrayAt(x, y).Y
}

// Rows returns the intensities as a row-major matrix. The rows are copies
// and may be modified freely.
func (img *GrayImage) Rows() [][]uint8 {
	w, h := img.Width(), img.Height()
	rows := make([][]uint8, h)
	for y := 0; y < h; y++ {
		rows[y] = make([]uint8, w)
		copy(rows[y], img.Pix[y*img.Stride:y*img.Stride+w])
	}
	return rows
}
