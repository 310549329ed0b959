package spectral

import (
	"image"

	"golang.org/x/image/draw"
)

// FitSize scales (w, h) so the larger side equals maxDim, keeping the aspect
// ratio. Small images are scaled up. Each side is at least one pixel.
func FitSize(w, h, maxDim int) (int, int) {
	scale := min(float64(maxDim)/float64(w), float64(maxDim)/float64(h))
	nw := max(1, int(float64(w)*scale))
	nh := max(1, int(float64(h)*scale))
	return nw, nh
}

// Resize returns an RGBA copy of img fitted within maxDim x maxDim using
// bilinear interpolation.
func Resize(img image.Image, maxDim int) (*image.RGBA, error) {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, ErrEmptyImage
	}

	nw, nh := FitSize(b.Dx(), b.Dy(), maxDim)
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	if nw == b.Dx() && nh == b.Dy() {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst, nil
	}
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst, nil
}
