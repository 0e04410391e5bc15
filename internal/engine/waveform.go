package engine

import (
	"image"
	"image/color"
	"image/draw"
)

var (
	waveformBackground = color.NRGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff}
	waveformForeground = color.NRGBA{R: 0x38, G: 0xbd, B: 0xf8, A: 0xff}
)

// Envelope reduces samples to one min/max pair per bucket.
func Envelope(samples []float32, buckets int) (mins, maxs []float32) {
	if buckets <= 0 || len(samples) == 0 {
		return nil, nil
	}
	mins = make([]float32, buckets)
	maxs = make([]float32, buckets)
	for b := range buckets {
		lo := b * len(samples) / buckets
		hi := (b + 1) * len(samples) / buckets
		if hi <= lo {
			hi = min(lo+1, len(samples))
		}
		mn, mx := samples[lo], samples[lo]
		for _, s := range samples[lo+1 : hi] {
			mn = min(mn, s)
			mx = max(mx, s)
		}
		mins[b], maxs[b] = mn, mx
	}
	return mins, maxs
}

// RenderWaveform draws one vertical bar per pixel column spanning the
// bucket's min to max amplitude, centred on the horizontal midline.
func RenderWaveform(samples []float32, width, height int) *image.NRGBA {
	width, height = max(width, 1), max(height, 1)
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(waveformBackground), image.Point{}, draw.Src)

	mins, maxs := Envelope(samples, width)
	mid := float32(height-1) / 2
	for x := range mins {
		top := int(mid - clampUnit(maxs[x])*mid)
		bottom := int(mid - clampUnit(mins[x])*mid)
		for y := top; y <= bottom; y++ {
			img.SetNRGBA(x, y, waveformForeground)
		}
	}
	return img
}

func clampUnit(v float32) float32 {
	return max(-1, min(v, 1))
}
