package engine

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	iconPaper  = color.NRGBA{R: 0xf8, G: 0xfa, B: 0xfc, A: 0xff}
	iconFold   = color.NRGBA{R: 0xcb, G: 0xd5, B: 0xe1, A: 0xff}
	iconText   = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	iconAccent = map[string]color.NRGBA{
		"pdf":  {R: 0xdc, G: 0x26, B: 0x26, A: 0xff},
		"doc":  {R: 0x25, G: 0x63, B: 0xeb, A: 0xff},
		"docx": {R: 0x25, G: 0x63, B: 0xeb, A: 0xff},
		"xls":  {R: 0x16, G: 0xa3, B: 0x4a, A: 0xff},
		"xlsx": {R: 0x16, G: 0xa3, B: 0x4a, A: 0xff},
		"csv":  {R: 0x16, G: 0xa3, B: 0x4a, A: 0xff},
		"ppt":  {R: 0xea, G: 0x58, B: 0x0c, A: 0xff},
		"pptx": {R: 0xea, G: 0x58, B: 0x0c, A: 0xff},
	}
	iconDefaultAccent = color.NRGBA{R: 0x47, G: 0x55, B: 0x69, A: 0xff}
	iconArchiveAccent = color.NRGBA{R: 0xd9, G: 0x77, B: 0x06, A: 0xff}
)

// RenderIcon draws a page with a folded corner and a coloured band carrying
// label. The result is exactly width x height.
func RenderIcon(width, height int, accent color.Color, label string) *image.NRGBA {
	width, height = max(width, 16), max(height, 16)
	img := image.NewNRGBA(image.Rect(0, 0, width, height))

	margin := width / 8
	page := image.Rect(margin, height/16, width-margin, height-height/16)
	draw.Draw(img, page, image.NewUniform(iconPaper), image.Point{}, draw.Src)

	fold := page.Dx() / 4
	for y := range fold {
		for x := page.Max.X - fold + y; x < page.Max.X; x++ {
			img.Set(x, page.Min.Y+y, color.Transparent)
		}
		img.Set(page.Max.X-fold+y, page.Min.Y+y, iconFold)
	}

	band := image.Rect(page.Min.X, page.Min.Y+page.Dy()*5/8, page.Max.X, page.Min.Y+page.Dy()*7/8)
	draw.Draw(img, band, image.NewUniform(accent), image.Point{}, draw.Src)
	if label != "" {
		drawLabel(img, band, label)
	}
	return img
}

// drawLabel renders label with the fixed 7x13 face and scales it up to fill
// most of the band.
func drawLabel(dst *image.NRGBA, band image.Rectangle, label string) {
	face := basicfont.Face7x13
	d := &font.Drawer{Face: face, Src: image.NewUniform(iconText)}
	textW := d.MeasureString(label).Ceil()
	textH := face.Height
	if textW == 0 {
		return
	}

	text := image.NewNRGBA(image.Rect(0, 0, textW, textH))
	d.Dst = text
	d.Dot = fixed.P(0, face.Ascent)
	d.DrawString(label)

	w, h := fitText(textW, textH, band.Dx()*9/10, band.Dy()*7/10)
	scaled := imaging.Resize(text, w, h, imaging.NearestNeighbor)
	at := image.Pt(band.Min.X+(band.Dx()-w)/2, band.Min.Y+(band.Dy()-h)/2)
	draw.Draw(dst, image.Rectangle{Min: at, Max: at.Add(image.Pt(w, h))}, scaled, image.Point{}, draw.Over)
}

// fitText scales w x h by the largest factor that fits the box. Unlike
// FitSize it may grow the text.
func fitText(w, h, boxW, boxH int) (int, int) {
	if boxW <= 0 || boxH <= 0 {
		return w, h
	}
	if int64(boxW)*int64(h) <= int64(boxH)*int64(w) {
		return boxW, max(1, h*boxW/w)
	}
	return max(1, w*boxH/h), boxH
}
