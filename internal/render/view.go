// Package render turns band maps and cluster grids into displayable images.
package render

import (
	"image"
	"math"

	"go-cosmic-inspector/internal/spectral"
	"go-cosmic-inspector/pkg/models"
)

// View renders the mode-specific enhanced image
type View interface {
	Render(src *image.RGBA, ch *spectral.Channels) *image.RGBA
	Name() string
}

// OpticalView boosts contrast on the colour image itself
type OpticalView struct {
	Alpha float64
	Beta  float64
}

// NewOpticalView creates the default optical view
func NewOpticalView() View {
	return &OpticalView{Alpha: 1.15, Beta: 5}
}

// Render applies the contrast boost to every colour channel
func (v *OpticalView) Render(src *image.RGBA, _ *spectral.Channels) *image.RGBA {
	b := src.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		off := src.PixOffset(b.Min.X, b.Min.Y+y)
		in := src.Pix[off : off+4*b.Dx()]
		row := out.Pix[y*out.Stride : y*out.Stride+4*b.Dx()]
		for x := 0; x < b.Dx(); x++ {
			i := 4 * x
			row[i] = ScaleAbs(float64(in[i]), v.Alpha, v.Beta)
			row[i+1] = ScaleAbs(float64(in[i+1]), v.Alpha, v.Beta)
			row[i+2] = ScaleAbs(float64(in[i+2]), v.Alpha, v.Beta)
			row[i+3] = 0xff
		}
	}
	return out
}

// Name returns the view identifier
func (v *OpticalView) Name() string {
	return string(models.ModeOptical)
}

// FalseColorView maps one band through a palette, then boosts contrast
type FalseColorView struct {
	mode    models.Mode
	band    func(ch *spectral.Channels) *spectral.Map
	palette *Palette
	Alpha   float64
	Beta    float64
}

// NewInfraredView renders the infrared band with a fire palette
func NewInfraredView() View {
	return &FalseColorView{
		mode:    models.ModeInfrared,
		band:    func(ch *spectral.Channels) *spectral.Map { return ch.Infrared },
		palette: Inferno,
		Alpha:   1.2,
		Beta:    10,
	}
}

// NewXRayView renders the x-ray band with a plasma palette
func NewXRayView() View {
	return &FalseColorView{
		mode:    models.ModeXRay,
		band:    func(ch *spectral.Channels) *spectral.Map { return ch.XRay },
		palette: Plasma,
		Alpha:   1.2,
		Beta:    10,
	}
}

// Render looks up the truncated band value in the palette
func (v *FalseColorView) Render(_ *image.RGBA, ch *spectral.Channels) *image.RGBA {
	m := v.band(ch)
	out := image.NewRGBA(image.Rect(0, 0, m.Width, m.Height))
	for i, val := range m.Data {
		c := v.palette.At(toUint8(val))
		p := out.Pix[4*i : 4*i+4]
		p[0] = ScaleAbs(float64(c.R), v.Alpha, v.Beta)
		p[1] = ScaleAbs(float64(c.G), v.Alpha, v.Beta)
		p[2] = ScaleAbs(float64(c.B), v.Alpha, v.Beta)
		p[3] = 0xff
	}
	return out
}

// Name returns the view identifier
func (v *FalseColorView) Name() string {
	return string(v.mode)
}

// ViewFor returns the view for a mode; unknown modes render as optical
func ViewFor(mode models.Mode) View {
	switch mode {
	case models.ModeInfrared:
		return NewInfraredView()
	case models.ModeXRay:
		return NewXRayView()
	default:
		return NewOpticalView()
	}
}

// ScaleAbs computes saturate(round(|v*alpha + beta|))
func ScaleAbs(v, alpha, beta float64) uint8 {
	return saturate(math.RoundToEven(math.Abs(v*alpha + beta)))
}

func saturate(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}

// toUint8 truncates toward zero and clamps into [0, 255]
func toUint8(v float64) uint8 {
	return saturate(math.Trunc(v))
}
