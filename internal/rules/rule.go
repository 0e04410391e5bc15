// Package rules holds the declarative per-kind constraints and output
// options, and the algorithms deciding which rule governs which file.
package rules

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/your-org/mediaintake/internal/media"
)

const (
	DefaultThumbnailSize    = 200
	DefaultThumbnailFormat  = "webp"
	DefaultThumbnailQuality = 80
)

// Rule constrains and configures processing for the files it matches.
// Numeric zero values mean "not set".
type Rule struct {
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
	// Scope restricts the rule to one kind. The zero value is generic.
	Scope media.Kind `yaml:"scope,omitempty" json:"scope,omitempty"`
	// AllowedMimeTypes accepts exact types, wildcards ("image/*") and
	// extensions (".heic"). Empty means the rule is a catch-all.
	AllowedMimeTypes []string `yaml:"allowed_mime_types,omitempty" json:"allowed_mime_types,omitempty"`

	MinFileSize       int64 `yaml:"min_file_size,omitempty" json:"min_file_size,omitempty"`
	MaxFileSize       int64 `yaml:"max_file_size,omitempty" json:"max_file_size,omitempty"`
	MinSelectionCount int   `yaml:"min_selection_count,omitempty" json:"min_selection_count,omitempty"`
	MaxSelectionCount int   `yaml:"max_selection_count,omitempty" json:"max_selection_count,omitempty"`

	GenerateBase64 bool `yaml:"generate_base64,omitempty" json:"generate_base64,omitempty"`
	GenerateBlob   bool `yaml:"generate_blob,omitempty" json:"generate_blob,omitempty"`

	// CompressQuality in 1..100 asks the engine to re-encode. 0 leaves the
	// content untouched.
	CompressQuality int `yaml:"compress_quality,omitempty" json:"compress_quality,omitempty"`

	Thumbnail ThumbnailOptions `yaml:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	Image     ImageOptions     `yaml:"image,omitempty" json:"image,omitempty"`
	Video     VideoOptions     `yaml:"video,omitempty" json:"video,omitempty"`
	Audio     AudioOptions     `yaml:"audio,omitempty" json:"audio,omitempty"`
}

// ThumbnailOptions bound the preview artifact.
type ThumbnailOptions struct {
	MaxWidth  int    `yaml:"max_width,omitempty" json:"max_width,omitempty"`
	MaxHeight int    `yaml:"max_height,omitempty" json:"max_height,omitempty"`
	Format    string `yaml:"format,omitempty" json:"format,omitempty"`
	Quality   int    `yaml:"quality,omitempty" json:"quality,omitempty"`
}

// ImageOptions are read by the image engine.
type ImageOptions struct {
	Format         string  `yaml:"format,omitempty" json:"format,omitempty"`
	MaxDimension   int     `yaml:"max_dimension,omitempty" json:"max_dimension,omitempty"`
	MinWidth       int     `yaml:"min_width,omitempty" json:"min_width,omitempty"`
	MaxWidth       int     `yaml:"max_width,omitempty" json:"max_width,omitempty"`
	MinHeight      int     `yaml:"min_height,omitempty" json:"min_height,omitempty"`
	MaxHeight      int     `yaml:"max_height,omitempty" json:"max_height,omitempty"`
	MinAspectRatio float64 `yaml:"min_aspect_ratio,omitempty" json:"min_aspect_ratio,omitempty"`
	MaxAspectRatio float64 `yaml:"max_aspect_ratio,omitempty" json:"max_aspect_ratio,omitempty"`
}

// VideoOptions are read by the video engine.
type VideoOptions struct {
	Format          string        `yaml:"format,omitempty" json:"format,omitempty"`
	Resolution      string        `yaml:"resolution,omitempty" json:"resolution,omitempty"`
	StartOffset     time.Duration `yaml:"start_offset,omitempty" json:"start_offset,omitempty"`
	ClipDuration    time.Duration `yaml:"clip_duration,omitempty" json:"clip_duration,omitempty"`
	ThumbnailOffset time.Duration `yaml:"thumbnail_offset,omitempty" json:"thumbnail_offset,omitempty"`
	MaxDuration     time.Duration `yaml:"max_duration,omitempty" json:"max_duration,omitempty"`
	MaxWidth        int           `yaml:"max_width,omitempty" json:"max_width,omitempty"`
	MaxHeight       int           `yaml:"max_height,omitempty" json:"max_height,omitempty"`
	MinBitrate      int           `yaml:"min_bitrate,omitempty" json:"min_bitrate,omitempty"`
	MaxBitrate      int           `yaml:"max_bitrate,omitempty" json:"max_bitrate,omitempty"`
}

// AudioOptions are read by the audio engine.
type AudioOptions struct {
	Format        string        `yaml:"format,omitempty" json:"format,omitempty"`
	StartOffset   time.Duration `yaml:"start_offset,omitempty" json:"start_offset,omitempty"`
	ClipDuration  time.Duration `yaml:"clip_duration,omitempty" json:"clip_duration,omitempty"`
	MaxDuration   time.Duration `yaml:"max_duration,omitempty" json:"max_duration,omitempty"`
	MaxSampleRate int           `yaml:"max_sample_rate,omitempty" json:"max_sample_rate,omitempty"`
	MinBitrate    int           `yaml:"min_bitrate,omitempty" json:"min_bitrate,omitempty"`
	MaxBitrate    int           `yaml:"max_bitrate,omitempty" json:"max_bitrate,omitempty"`
}

// CatchAll returns the rule used when the caller supplies none.
func CatchAll() Rule {
	return Rule{Name: "default"}
}

// AppliesTo reports whether the rule's scope covers kind.
func (r Rule) AppliesTo(kind media.Kind) bool {
	return r.Scope == media.Generic || r.Scope == kind
}

// IsCatchAll reports whether the rule is generic and unrestricted by MIME.
func (r Rule) IsCatchAll() bool {
	return r.Scope == media.Generic && r.Unrestricted()
}

// Unrestricted reports whether the allow-list admits everything: it is
// empty or holds a "*" or "*/*" entry.
func (r Rule) Unrestricted() bool {
	if len(r.AllowedMimeTypes) == 0 {
		return true
	}
	for _, p := range r.AllowedMimeTypes {
		if p := strings.TrimSpace(p); p == "*" || p == "*/*" {
			return true
		}
	}
	return false
}

// Matches reports whether the rule's allow-list admits d.
func (r Rule) Matches(d media.Descriptor) bool {
	return r.Unrestricted() || media.MatchAny(r.AllowedMimeTypes, d)
}

// ThumbnailOrDefault fills unset thumbnail fields with defaults.
func (r Rule) ThumbnailOrDefault() ThumbnailOptions {
	t := r.Thumbnail
	if t.MaxWidth <= 0 {
		t.MaxWidth = DefaultThumbnailSize
	}
	if t.MaxHeight <= 0 {
		t.MaxHeight = DefaultThumbnailSize
	}
	if t.Format == "" {
		t.Format = DefaultThumbnailFormat
	}
	if t.Quality <= 0 {
		t.Quality = DefaultThumbnailQuality
	}
	return t
}

// Or fills the unset fields of t from def.
func (t ThumbnailOptions) Or(def ThumbnailOptions) ThumbnailOptions {
	if t.MaxWidth <= 0 {
		t.MaxWidth = def.MaxWidth
	}
	if t.MaxHeight <= 0 {
		t.MaxHeight = def.MaxHeight
	}
	if t.Format == "" {
		t.Format = def.Format
	}
	if t.Quality <= 0 {
		t.Quality = def.Quality
	}
	return t
}

// Compresses reports whether the rule requests a re-encode.
func (r Rule) Compresses() bool {
	return r.CompressQuality > 0
}

// Validate checks the rule for contradictory or out-of-range values.
func (r Rule) Validate() error {
	var errs []error
	if r.Scope != media.Generic && !r.Scope.Valid() {
		errs = append(errs, fmt.Errorf("scope %q is not a media kind", r.Scope))
	}
	if r.MinFileSize < 0 || r.MaxFileSize < 0 {
		errs = append(errs, errors.New("file size bounds must not be negative"))
	}
	if r.MaxFileSize > 0 && r.MinFileSize > r.MaxFileSize {
		errs = append(errs, fmt.Errorf("min_file_size %d exceeds max_file_size %d", r.MinFileSize, r.MaxFileSize))
	}
	if r.MinSelectionCount < 0 || r.MaxSelectionCount < 0 {
		errs = append(errs, errors.New("selection count bounds must not be negative"))
	}
	if r.MaxSelectionCount > 0 && r.MinSelectionCount > r.MaxSelectionCount {
		errs = append(errs, fmt.Errorf("min_selection_count %d exceeds max_selection_count %d", r.MinSelectionCount, r.MaxSelectionCount))
	}
	if r.CompressQuality < 0 || r.CompressQuality > 100 {
		errs = append(errs, fmt.Errorf("compress_quality %d outside 0-100", r.CompressQuality))
	}
	if r.Thumbnail.Quality < 0 || r.Thumbnail.Quality > 100 {
		errs = append(errs, fmt.Errorf("thumbnail quality %d outside 0-100", r.Thumbnail.Quality))
	}
	if r.Image.MaxAspectRatio > 0 && r.Image.MinAspectRatio > r.Image.MaxAspectRatio {
		errs = append(errs, errors.New("image min_aspect_ratio exceeds max_aspect_ratio"))
	}
	if r.Video.MaxBitrate > 0 && r.Video.MinBitrate > r.Video.MaxBitrate {
		errs = append(errs, errors.New("video min_bitrate exceeds max_bitrate"))
	}
	if r.Audio.MaxBitrate > 0 && r.Audio.MinBitrate > r.Audio.MaxBitrate {
		errs = append(errs, errors.New("audio min_bitrate exceeds max_bitrate"))
	}
	if err := errors.Join(errs...); err != nil {
		name := r.Name
		if name == "" {
			name = "unnamed"
		}
		return fmt.Errorf("rule %s: %w", name, err)
	}
	return nil
}
