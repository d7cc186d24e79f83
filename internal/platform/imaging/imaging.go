// Package imaging decodes report photos and scans and prepares the
// preprocessing variants handed to OCR.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MinUpscaleEdge is the edge length below which an upscaled variant is added.
const MinUpscaleEdge = 1000

// ContrastFactor scales distance from the mean luminance in the contrast variant.
const ContrastFactor = 2.0

// Variant is one preprocessed rendition of the source image.
type Variant struct {
	Name  string
	Image image.Image
}

// Decode reads any registered raster format.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}

// Variants returns, in order: the original, grayscale, contrast-enhanced
// grayscale, and a 2x upscale of the grayscale when either edge is short.
func Variants(img image.Image) []Variant {
	gray := Grayscale(img)
	out := []Variant{
		{Name: "original", Image: img},
		{Name: "grayscale", Image: gray},
		{Name: "contrast", Image: Contrast(gray, ContrastFactor)},
	}
	b := img.Bounds()
	if b.Dx() < MinUpscaleEdge || b.Dy() < MinUpscaleEdge {
		out = append(out, Variant{Name: "upscaled", Image: Scale(gray, 2)})
	}
	return out
}

// Grayscale converts to 8-bit luminance.
func Grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
	return g
}

// Contrast stretches each pixel away from the mean by factor, clamped to 0..255.
func Contrast(g *image.Gray, factor float64) *image.Gray {
	out := image.NewGray(g.Bounds())
	if len(g.Pix) == 0 {
		return out
	}
	var sum float64
	for _, p := range g.Pix {
		sum += float64(p)
	}
	mean := sum / float64(len(g.Pix))
	for i, p := range g.Pix {
		v := mean + (float64(p)-mean)*factor
		switch {
		case v < 0:
			v = 0
		case v > 255:
			v = 255
		}
		out.Pix[i] = uint8(v + 0.5)
	}
	return out
}

// Scale resizes by factor with Catmull-Rom resampling.
func Scale(img image.Image, factor int) image.Image {
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// EncodePNG serializes an image for the OCR engine.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
