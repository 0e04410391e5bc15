package engine

import (
	"fmt"
	"image"

	"github.com/your-org/mediaintake/internal/media"
	"github.com/your-org/mediaintake/internal/rules"
	"github.com/your-org/mediaintake/pkg/imagecodec"
)

// encodeThumbnail scales img into the rule's thumbnail box and encodes it.
func encodeThumbnail(sourceName string, img image.Image, r rules.Rule) (*media.File, error) {
	opts := r.ThumbnailOrDefault()
	format, err := imagecodec.ParseFormat(opts.Format)
	if err != nil {
		return nil, fmt.Errorf("thumbnail: %w", err)
	}
	data, got, err := imagecodec.Encode(imagecodec.Fit(img, opts.MaxWidth, opts.MaxHeight), format, opts.Quality)
	if err != nil {
		return nil, fmt.Errorf("thumbnail: %w", err)
	}
	return media.NewFile(thumbnailName(sourceName, got.Extension()), got.MimeType(), data), nil
}
