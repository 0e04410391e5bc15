package engine

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/your-org/mediaintake/internal/media"
	"github.com/your-org/mediaintake/internal/rules"
	"github.com/your-org/mediaintake/pkg/imagecodec"
)

// defaultImageQuality is used when a rule asks for a format change or a
// downscale without setting a compression quality.
const defaultImageQuality = 92

// Image processes raster images. Vector images pass through untouched and
// get no thumbnail.
type Image struct {
	Logger *zap.Logger
}

func NewImage(logger *zap.Logger) *Image {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Image{Logger: logger}
}

func (e *Image) Kind() media.Kind { return media.Image }

func (e *Image) Validate(_ context.Context, f *media.File, r rules.Rule) (Validation, error) {
	o := r.Image
	constrained := o.MinWidth > 0 || o.MaxWidth > 0 || o.MinHeight > 0 || o.MaxHeight > 0 ||
		o.MinAspectRatio > 0 || o.MaxAspectRatio > 0

	info, err := imagecodec.Probe(f.Data)
	if err != nil {
		if constrained {
			return Validation{}, err
		}
		return Validation{}, nil
	}
	v := Validation{Meta: map[string]string{
		"width":  strconv.Itoa(info.Width),
		"height": strconv.Itoa(info.Height),
	}}

	check := func(bad bool, code media.ErrorCode, format string, args ...any) {
		if bad {
			v.Failures = append(v.Failures, media.NewFailure(f.Name, code, format, args...))
		}
	}
	w, h := info.Width, info.Height
	check(o.MinWidth > 0 && w < o.MinWidth, media.CodeFileTooSmall, "%s is %dpx wide, minimum is %dpx", f.Name, w, o.MinWidth)
	check(o.MinHeight > 0 && h < o.MinHeight, media.CodeFileTooSmall, "%s is %dpx high, minimum is %dpx", f.Name, h, o.MinHeight)
	check(o.MaxWidth > 0 && w > o.MaxWidth, media.CodeFileTooLarge, "%s is %dpx wide, maximum is %dpx", f.Name, w, o.MaxWidth)
	check(o.MaxHeight > 0 && h > o.MaxHeight, media.CodeFileTooLarge, "%s is %dpx high, maximum is %dpx", f.Name, h, o.MaxHeight)
	if h > 0 {
		ratio := float64(w) / float64(h)
		check(o.MinAspectRatio > 0 && ratio < o.MinAspectRatio, media.CodeInvalidType,
			"%s has aspect ratio %.2f, minimum is %.2f", f.Name, ratio, o.MinAspectRatio)
		check(o.MaxAspectRatio > 0 && ratio > o.MaxAspectRatio, media.CodeInvalidType,
			"%s has aspect ratio %.2f, maximum is %.2f", f.Name, ratio, o.MaxAspectRatio)
	}
	return v, nil
}

func (e *Image) NeedsTransform(r rules.Rule) bool {
	return r.Compresses() || r.Image.Format != "" || r.Image.MaxDimension > 0
}

// Transform re-encodes f. A same-format re-encode that comes out larger
// than the source keeps the source bytes.
func (e *Image) Transform(_ context.Context, f *media.File, r rules.Rule) (*media.File, error) {
	if !raster(f) {
		return f, nil
	}
	target, err := e.targetFormat(f, r)
	if err != nil {
		return nil, err
	}
	img, err := imagecodec.Decode(f.Data)
	if err != nil {
		return nil, err
	}
	resized := false
	if d := r.Image.MaxDimension; d > 0 {
		before := img.Bounds()
		img = imagecodec.Fit(img, d, d)
		resized = img.Bounds() != before
	}

	quality := r.CompressQuality
	if quality <= 0 {
		quality = defaultImageQuality
	}
	data, got, err := imagecodec.Encode(img, target, quality)
	if err != nil {
		return nil, err
	}
	if !resized && got.MimeType() == media.NewDescriptor(f).MimeType && len(data) >= len(f.Data) {
		e.Logger.Debug("re-encode not smaller, keeping source",
			zap.String("file", f.Name),
			zap.Int("source_bytes", len(f.Data)),
			zap.Int("encoded_bytes", len(data)),
		)
		return f, nil
	}
	return f.Rename(got.Extension(), got.MimeType(), data), nil
}

func (e *Image) Thumbnail(_ context.Context, f *media.File, r rules.Rule) (*media.File, error) {
	if !raster(f) {
		return nil, fmt.Errorf("no raster preview for %s", media.NewDescriptor(f).MimeType)
	}
	img, err := imagecodec.Decode(f.Data)
	if err != nil {
		return nil, err
	}
	return encodeThumbnail(f.Name, img, r)
}

// targetFormat is the rule's format, else the source format when it can be
// written back, else WebP.
func (e *Image) targetFormat(f *media.File, r rules.Rule) (imagecodec.Format, error) {
	if r.Image.Format != "" {
		return imagecodec.ParseFormat(r.Image.Format)
	}
	if format, err := imagecodec.ParseFormat(media.NewDescriptor(f).MimeType); err == nil {
		return format, nil
	}
	return imagecodec.WebP, nil
}

func raster(f *media.File) bool {
	return media.NewDescriptor(f).MimeType != "image/svg+xml"
}
