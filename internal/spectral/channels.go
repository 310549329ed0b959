// Package spectral derives synthetic band intensity maps (optical, infrared
// proxy, x-ray proxy) from a single colour image.
package spectral

import (
	"errors"
	"image"
	"math"

	"github.com/disintegration/gift"
)

// ErrEmptyImage is returned for images without pixels
var ErrEmptyImage = errors.New("image has no pixels")

const (
	infraredRedWeight   = 0.6
	infraredGreenWeight = 0.4
	xrayGain            = 1.5
)

// Map is a row-major grid of intensities for one synthetic band
type Map struct {
	Width  int
	Height int
	Data   []float64
}

// NewMap allocates a zeroed map
func NewMap(width, height int) *Map {
	return &Map{Width: width, Height: height, Data: make([]float64, width*height)}
}

// At returns the intensity at (x, y)
func (m *Map) At(x, y int) float64 {
	return m.Data[y*m.Width+x]
}

// Channels holds the three co-indexed band maps of one image
type Channels struct {
	Optical  *Map
	Infrared *Map
	XRay     *Map
}

// Size returns the shared grid dimensions
func (c *Channels) Size() (int, int) {
	return c.Optical.Width, c.Optical.Height
}

// Len returns the number of pixels per map
func (c *Channels) Len() int {
	return len(c.Optical.Data)
}

// Synthesize builds the three band maps. The optical map is the smoothed
// BT.601 luma, the x-ray map is that value boosted by 1.5 and clamped to
// 255, and the infrared map is 0.6*R + 0.4*G of the unsmoothed pixels.
func Synthesize(img *image.RGBA) (*Channels, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, ErrEmptyImage
	}

	infrared := NewMap(w, h)
	for y := 0; y < h; y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < w; x++ {
			p := img.Pix[off+4*x : off+4*x+3]
			infrared.Data[y*w+x] = infraredRedWeight*float64(p[0]) + infraredGreenWeight*float64(p[1])
		}
	}

	smoothed := GaussianBlur5(Grayscale(img))

	optical := NewMap(w, h)
	xray := NewMap(w, h)
	for y := 0; y < h; y++ {
		row := smoothed.Pix[y*smoothed.Stride : y*smoothed.Stride+w]
		for x, v := range row {
			optical.Data[y*w+x] = float64(v)
			xray.Data[y*w+x] = math.Min(255, math.Max(0, float64(v)*xrayGain))
		}
	}

	return &Channels{Optical: optical, Infrared: infrared, XRay: xray}, nil
}

var grayscale = gift.New(gift.Grayscale())

// Grayscale converts img to an 8-bit luma plane anchored at the origin
func Grayscale(img image.Image) *image.Gray {
	dst := image.NewGray(grayscale.Bounds(img.Bounds()))
	grayscale.Draw(dst, img)
	return dst
}

const blurRadius = 2

// binomial5 is the outer product of [1 4 6 4 1] with itself, over 256
var binomial5 = func() []float32 {
	row := [5]float32{1, 4, 6, 4, 1}
	k := make([]float32, 0, 25)
	for _, a := range row {
		for _, b := range row {
			k = append(k, a*b/256)
		}
	}
	return k
}()

var smoothing = gift.New(gift.Convolution(binomial5, false, false, false, 0))

// GaussianBlur5 smooths an 8-bit plane with the 5x5 binomial kernel. Borders
// mirror without repeating the edge pixel: the plane is padded that way first
// so the filter never samples past the padding.
func GaussianBlur5(src *image.Gray) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	padded := image.NewGray(image.Rect(0, 0, w+2*blurRadius, h+2*blurRadius))
	for y := 0; y < h+2*blurRadius; y++ {
		sy := b.Min.Y + reflect101(y-blurRadius, h)
		for x := 0; x < w+2*blurRadius; x++ {
			padded.Pix[y*padded.Stride+x] = src.GrayAt(b.Min.X+reflect101(x-blurRadius, w), sy).Y
		}
	}

	blurred := image.NewGray(smoothing.Bounds(padded.Bounds()))
	smoothing.Draw(blurred, padded)
	return blurred.SubImage(image.Rect(blurRadius, blurRadius, w+blurRadius, h+blurRadius)).(*image.Gray)
}

func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		} else {
			i = 2*n - 2 - i
		}
	}
	return i
}
