package engine

import (
	"context"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/your-org/mediaintake/internal/media"
	"github.com/your-org/mediaintake/internal/rules"
)

// Document passes documents through and previews them as a labelled icon.
type Document struct{}

func (Document) Kind() media.Kind { return media.Document }

func (Document) Validate(context.Context, *media.File, rules.Rule) (Validation, error) {
	return Validation{}, nil
}

func (Document) NeedsTransform(rules.Rule) bool { return false }

func (Document) Transform(_ context.Context, f *media.File, _ rules.Rule) (*media.File, error) {
	return f, nil
}

func (Document) Thumbnail(_ context.Context, f *media.File, r rules.Rule) (*media.File, error) {
	ext := f.Extension()
	accent, ok := iconAccent[ext]
	if !ok {
		accent = iconDefaultAccent
	}
	opts := r.ThumbnailOrDefault()
	return encodeThumbnail(f.Name, RenderIcon(opts.MaxWidth, opts.MaxHeight, accent, strings.ToUpper(ext)), r)
}

// Archive passes archives through and previews them as an icon labelled
// with the archive size.
type Archive struct{}

func (Archive) Kind() media.Kind { return media.Archive }

func (Archive) Validate(context.Context, *media.File, rules.Rule) (Validation, error) {
	return Validation{}, nil
}

func (Archive) NeedsTransform(rules.Rule) bool { return false }

func (Archive) Transform(_ context.Context, f *media.File, _ rules.Rule) (*media.File, error) {
	return f, nil
}

func (Archive) Thumbnail(_ context.Context, f *media.File, r rules.Rule) (*media.File, error) {
	opts := r.ThumbnailOrDefault()
	label := humanize.Bytes(uint64(f.Size()))
	return encodeThumbnail(f.Name, RenderIcon(opts.MaxWidth, opts.MaxHeight, iconArchiveAccent, label), r)
}
