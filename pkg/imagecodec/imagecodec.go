// Package imagecodec decodes, scales and re-encodes raster images. It is the
// image engine's only dependency on pixel-level code.
package imagecodec

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// Format is an output encoding.
type Format string

const (
	WebP Format = "webp"
	JPEG Format = "jpeg"
	PNG  Format = "png"
	GIF  Format = "gif"
)

// ParseFormat accepts a format name, an extension or a MIME type.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "image/")
	s = strings.TrimPrefix(s, ".")
	switch s {
	case "webp":
		return WebP, nil
	case "jpeg", "jpg":
		return JPEG, nil
	case "png":
		return PNG, nil
	case "gif":
		return GIF, nil
	default:
		return "", fmt.Errorf("unsupported image format %q", s)
	}
}

// MimeType returns the MIME type of f.
func (f Format) MimeType() string { return "image/" + string(f) }

// Extension returns the file extension of f.
func (f Format) Extension() string {
	if f == JPEG {
		return "jpg"
	}
	return string(f)
}

// Info describes an encoded image without decoding its pixels.
type Info struct {
	Width  int
	Height int
	Format string
}

// Probe reads the header of data.
func Probe(data []byte) (Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("decode image config: %w", err)
	}
	return Info{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// Decode decodes data, applying EXIF orientation for JPEGs.
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Encode writes img as f. quality applies to lossy formats and is clamped
// to 1..100. If the WebP encoder fails the image is written as JPEG, so
// callers must use the returned format.
func Encode(img image.Image, f Format, quality int) ([]byte, Format, error) {
	quality = max(1, min(quality, 100))

	var buf bytes.Buffer
	switch f {
	case WebP:
		if err := webp.Encode(&buf, img, &webp.Options{Quality: float32(quality)}); err == nil {
			return buf.Bytes(), WebP, nil
		}
		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, "", fmt.Errorf("encode jpeg fallback: %w", err)
		}
		return buf.Bytes(), JPEG, nil
	case JPEG:
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return nil, "", fmt.Errorf("encode jpeg: %w", err)
		}
	case PNG:
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, "", fmt.Errorf("encode png: %w", err)
		}
	case GIF:
		if err := imaging.Encode(&buf, img, imaging.GIF); err != nil {
			return nil, "", fmt.Errorf("encode gif: %w", err)
		}
	default:
		return nil, "", fmt.Errorf("unsupported image format %q", f)
	}
	return buf.Bytes(), f, nil
}

// Fit scales img down to fit maxW x maxH keeping its aspect ratio. Images
// already inside the box are returned unchanged.
func Fit(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	w, h := FitSize(b.Dx(), b.Dy(), maxW, maxH)
	if w == b.Dx() && h == b.Dy() {
		return img
	}
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

// FitSize computes the dimensions of a w x h image scaled into the
// maxW x maxH box: the side that overflows most is clamped and the other
// follows from the ratio. Sizes never grow and never drop below 1.
func FitSize(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	if maxW <= 0 {
		maxW = w
	}
	if maxH <= 0 {
		maxH = h
	}
	if w <= maxW && h <= maxH {
		return w, h
	}
	// Compare w/maxW against h/maxH without floats.
	if int64(w)*int64(maxH) >= int64(h)*int64(maxW) {
		return maxW, max(1, int(int64(h)*int64(maxW)/int64(w)))
	}
	return max(1, int(int64(w)*int64(maxH)/int64(h))), maxH
}
