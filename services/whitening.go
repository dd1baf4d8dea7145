package services

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/disintegration/imaging"
)

// Packshot whitening defaults.
const (
	WhitenThreshold  uint8   = 235
	WhitenBlurSigma  float64 = 3.0
	WhitenProtection float64 = 0.5
)

// WhitenBackground pushes near-white background pixels to pure white.
// A luminance mask is built from threshold, softened with a gaussian blur of
// blurSigma, and the image is composited over white through it. The central
// protectRatio of the frame (0.0-1.0) is left untouched so a light garment
// is not bleached.
func WhitenBackground(imageBytes []byte, threshold uint8, blurSigma float64, protectRatio float64) ([]byte, error) {
	if protectRatio < 0.0 || protectRatio > 1.0 {
		return nil, fmt.Errorf("protectRatio must be between 0.0 and 1.0")
	}
	if blurSigma <= 0 {
		return nil, fmt.Errorf("blurSigma must be positive")
	}

	src, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	img := imaging.Clone(src)
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	protectedW := int(float64(width) * protectRatio)
	protectedH := int(float64(height) * protectRatio)
	x0 := (width - protectedW) / 2
	y0 := (height - protectedH) / 2
	x1 := x0 + protectedW
	y1 := y0 + protectedH

	// white = background
	mask := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := img.NRGBAAt(x, y)
			luminance := 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
			if luminance >= float64(threshold) {
				mask.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	softMask := imaging.Blur(mask, blurSigma)

	out := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := img.NRGBAAt(x, y)
			if x >= x0 && x < x1 && y >= y0 && y < y1 {
				out.SetNRGBA(x, y, c)
				continue
			}
			keep := 1.0 - float64(softMask.NRGBAAt(x, y).R)/255.0
			out.SetNRGBA(x, y, color.NRGBA{
				R: blendToWhite(c.R, keep),
				G: blendToWhite(c.G, keep),
				B: blendToWhite(c.B, keep),
				A: c.A,
			})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode image to png: %w", err)
	}
	return buf.Bytes(), nil
}

func blendToWhite(v uint8, keep float64) uint8 {
	return uint8(float64(v)*keep + 255.0*(1.0-keep) + 0.5)
}
