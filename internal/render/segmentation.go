package render

import (
	"bytes"
	"image"
	"image/png"
)

// NormalizeLabels scales cluster ids so the largest id maps to 255 and id
// 0 maps to 0. A grid with only id 0 normalizes to all zeros.
func NormalizeLabels(labels []int) []uint8 {
	maxID := 0
	for _, l := range labels {
		maxID = max(maxID, l)
	}

	out := make([]uint8, len(labels))
	if maxID == 0 {
		return out
	}
	for i, l := range labels {
		out[i] = uint8(float64(l) / float64(maxID) * 255)
	}
	return out
}

// SegmentationView renders the cluster grid with the rainbow palette
func SegmentationView(labels []int, width, height int) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, v := range NormalizeLabels(labels) {
		c := Jet.At(v)
		copy(out.Pix[4*i:4*i+4], []uint8{c.R, c.G, c.B, c.A})
	}
	return out
}

var encoder = png.Encoder{CompressionLevel: png.BestSpeed}

// EncodePNG encodes img as PNG
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
