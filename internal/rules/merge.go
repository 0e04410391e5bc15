package rules

import "github.com/your-org/mediaintake/internal/media"

// Merge folds rules into one constraint set:
//
//   - allow-lists are unioned; an unrestricted rule makes the result unrestricted
//   - lower bounds take the largest value, upper bounds the smallest set value
//   - generate flags are set if any rule sets them
//   - every other scalar is taken from the last rule that sets it
//
// Bounds and flags are independent of order; pass-through scalars are not.
func Merge(rules []Rule) Rule {
	var out Rule
	if len(rules) == 0 {
		return out
	}

	unrestricted := false
	seen := map[string]bool{}
	scope := rules[0].Scope
	for _, r := range rules {
		if r.Scope != scope {
			scope = media.Generic
		}
		if r.Unrestricted() {
			unrestricted = true
		}
		for _, p := range r.AllowedMimeTypes {
			if !seen[p] {
				seen[p] = true
				out.AllowedMimeTypes = append(out.AllowedMimeTypes, p)
			}
		}

		out.MinFileSize = max(out.MinFileSize, r.MinFileSize)
		out.MaxFileSize = minSet(out.MaxFileSize, r.MaxFileSize)
		out.MinSelectionCount = max(out.MinSelectionCount, r.MinSelectionCount)
		out.MaxSelectionCount = minSet(out.MaxSelectionCount, r.MaxSelectionCount)

		out.GenerateBase64 = out.GenerateBase64 || r.GenerateBase64
		out.GenerateBlob = out.GenerateBlob || r.GenerateBlob

		out.Name = last(out.Name, r.Name)
		out.CompressQuality = last(out.CompressQuality, r.CompressQuality)
		out.Thumbnail = mergeThumbnail(out.Thumbnail, r.Thumbnail)
		out.Image = mergeImage(out.Image, r.Image)
		out.Video = mergeVideo(out.Video, r.Video)
		out.Audio = mergeAudio(out.Audio, r.Audio)
	}
	out.Scope = scope
	if unrestricted {
		out.AllowedMimeTypes = nil
	}
	return out
}

func mergeThumbnail(a, b ThumbnailOptions) ThumbnailOptions {
	return ThumbnailOptions{
		MaxWidth:  minSet(a.MaxWidth, b.MaxWidth),
		MaxHeight: minSet(a.MaxHeight, b.MaxHeight),
		Format:    last(a.Format, b.Format),
		Quality:   last(a.Quality, b.Quality),
	}
}

func mergeImage(a, b ImageOptions) ImageOptions {
	return ImageOptions{
		Format:         last(a.Format, b.Format),
		MaxDimension:   minSet(a.MaxDimension, b.MaxDimension),
		MinWidth:       max(a.MinWidth, b.MinWidth),
		MaxWidth:       minSet(a.MaxWidth, b.MaxWidth),
		MinHeight:      max(a.MinHeight, b.MinHeight),
		MaxHeight:      minSet(a.MaxHeight, b.MaxHeight),
		MinAspectRatio: max(a.MinAspectRatio, b.MinAspectRatio),
		MaxAspectRatio: minSet(a.MaxAspectRatio, b.MaxAspectRatio),
	}
}

func mergeVideo(a, b VideoOptions) VideoOptions {
	return VideoOptions{
		Format:          last(a.Format, b.Format),
		Resolution:      last(a.Resolution, b.Resolution),
		StartOffset:     last(a.StartOffset, b.StartOffset),
		ClipDuration:    last(a.ClipDuration, b.ClipDuration),
		ThumbnailOffset: last(a.ThumbnailOffset, b.ThumbnailOffset),
		MaxDuration:     minSet(a.MaxDuration, b.MaxDuration),
		MaxWidth:        minSet(a.MaxWidth, b.MaxWidth),
		MaxHeight:       minSet(a.MaxHeight, b.MaxHeight),
		MinBitrate:      last(a.MinBitrate, b.MinBitrate),
		MaxBitrate:      last(a.MaxBitrate, b.MaxBitrate),
	}
}

func mergeAudio(a, b AudioOptions) AudioOptions {
	return AudioOptions{
		Format:        last(a.Format, b.Format),
		StartOffset:   last(a.StartOffset, b.StartOffset),
		ClipDuration:  last(a.ClipDuration, b.ClipDuration),
		MaxDuration:   minSet(a.MaxDuration, b.MaxDuration),
		MaxSampleRate: minSet(a.MaxSampleRate, b.MaxSampleRate),
		MinBitrate:    last(a.MinBitrate, b.MinBitrate),
		MaxBitrate:    last(a.MaxBitrate, b.MaxBitrate),
	}
}

type bound interface {
	~int | ~int64 | ~float64
}

// minSet treats zero as unset.
func minSet[T bound](a, b T) T {
	switch {
	case a == 0:
		return b
	case b == 0:
		return a
	default:
		return min(a, b)
	}
}

func last[T comparable](prev, next T) T {
	var zero T
	if next != zero {
		return next
	}
	return prev
}
