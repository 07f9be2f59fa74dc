// Package preprocess applies image transforms that help OCR engines read
// price tags: downscaling oversized captures, cropping to the center
// region where the price usually sits, and boosting contrast. The cloud
// backends do their own preprocessing; this is for the local engine.
package preprocess

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png" // register PNG decoding for camera stills saved as PNG

	xdraw "golang.org/x/image/draw"
)

// Default pipeline parameters, tuned against phone captures of shelf tags.
const (
	DefaultMaxWidth    = 1280
	DefaultCropPercent = 0.6
	DefaultContrast    = 1.5
	DefaultThreshold   = 128

	jpegQuality = 92
)

// Resize scales the image down to maxWidth, preserving aspect ratio.
// Images at or under maxWidth are returned unchanged.
func Resize(img image.Image, maxWidth int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxWidth {
		return img
	}

	scaledH := h * maxWidth / w
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, scaledH))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
	return dst
}

// CropCenter keeps the central fraction of the image, where the price is
// usually printed. percent is the fraction of each dimension to keep,
// clamped to (0, 1].
func CropCenter(img image.Image, percent float64) image.Image {
	if percent <= 0 || percent > 1 {
		percent = DefaultCropPercent
	}

	bounds := img.Bounds()
	cropW := int(float64(bounds.Dx()) * percent)
	cropH := int(float64(bounds.Dy()) * percent)
	x0 := bounds.Min.X + (bounds.Dx()-cropW)/2
	y0 := bounds.Min.Y + (bounds.Dy()-cropH)/2

	dst := image.NewRGBA(image.Rect(0, 0, cropW, cropH))
	xdraw.Copy(dst, image.Point{}, img, image.Rect(x0, y0, x0+cropW, y0+cropH), xdraw.Over, nil)
	return dst
}

// Contrast increases contrast around the midpoint. amount 1.0 leaves the
// image unchanged; 1.5 works well for printed tags.
func Contrast(img image.Image, amount float64) image.Image {
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	c := (amount - 1) * 255
	if c > 255 {
		c = 255
	}
	factor := (259 * (c + 255)) / (255 * (259 - c))

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			dst.Set(x-bounds.Min.X, y-bounds.Min.Y, color.RGBA{
				R: adjust(uint8(r>>8), factor),
				G: adjust(uint8(g>>8), factor),
				B: adjust(uint8(b>>8), factor),
				A: uint8(a >> 8),
			})
		}
	}
	return dst
}

// Threshold converts to black and white around the given luma level.
func Threshold(img image.Image, level uint8) image.Image {
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			gray := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			v := uint8(0)
			if gray > float64(level) {
				v = 255
			}
			dst.Set(x-bounds.Min.X, y-bounds.Min.Y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return dst
}

// ForOCR runs the default pipeline on an encoded image: decode, resize to
// DefaultMaxWidth, crop the central DefaultCropPercent, raise contrast,
// re-encode as JPEG. Threshold is deliberately left out of the default
// pipeline; it helps some tags and destroys others, so callers opt in.
func ForOCR(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	img = Resize(img, DefaultMaxWidth)
	img = CropCenter(img, DefaultCropPercent)
	img = Contrast(img, DefaultContrast)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func adjust(v uint8, factor float64) uint8 {
	adjusted := factor*(float64(v)-128) + 128
	if adjusted < 0 {
		return 0
	}
	if adjusted > 255 {
		return 255
	}
	return uint8(adjusted)
}
