package render

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Palette maps an 8-bit intensity onto a colour
type Palette struct {
	name  string
	table [256]color.RGBA
}

type stop struct {
	pos float64
	hex string
}

// Built-in palettes
var (
	// Inferno is a black-purple-orange-yellow fire gradient
	Inferno = newPalette("inferno", evenStops(
		"#000004", "#1f0c48", "#550f6d", "#88226a", "#ba3655",
		"#e35933", "#f98e09", "#f8c932", "#fcffa4",
	))
	// Plasma is a blue-magenta-yellow gradient
	Plasma = newPalette("plasma", evenStops(
		"#0d0887", "#4c02a1", "#7e03a8", "#a92395", "#cc4778",
		"#e66c5c", "#f89540", "#fdc527", "#f0f921",
	))
	// Jet is the classic blue-cyan-yellow-red rainbow
	Jet = newPalette("jet", []stop{
		{0, "#00007f"},
		{0.125, "#0000ff"},
		{0.375, "#00ffff"},
		{0.625, "#ffff00"},
		{0.875, "#ff0000"},
		{1, "#7f0000"},
	})
)

func evenStops(hexes ...string) []stop {
	stops := make([]stop, len(hexes))
	last := float64(len(hexes) - 1)
	for i, h := range hexes {
		stops[i] = stop{pos: float64(i) / last, hex: h}
	}
	return stops
}

// newPalette samples the piecewise RGB blend between stops at 256 points
func newPalette(name string, stops []stop) *Palette {
	colors := make([]colorful.Color, len(stops))
	for i, s := range stops {
		colors[i] = mustHex(s.hex)
	}

	p := &Palette{name: name}
	seg := 0
	for i := range p.table {
		t := float64(i) / 255
		for seg < len(stops)-2 && t > stops[seg+1].pos {
			seg++
		}
		a, b := stops[seg], stops[seg+1]
		local := (t - a.pos) / (b.pos - a.pos)
		local = max(0, min(1, local))

		r, g, bl := colors[seg].BlendRgb(colors[seg+1], local).Clamped().RGB255()
		p.table[i] = color.RGBA{R: r, G: g, B: bl, A: 0xff}
	}
	return p
}

// mustHex parses a built-in stop colour
func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic("render: bad palette colour " + s)
	}
	return c
}

// Name returns the palette identifier
func (p *Palette) Name() string {
	return p.name
}

// At returns the colour for intensity v
func (p *Palette) At(v uint8) color.RGBA {
	return p.table[v]
}
