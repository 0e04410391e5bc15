package engine

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/mediaintake/internal/media"
	"github.com/your-org/mediaintake/internal/rules"
	"github.com/your-org/mediaintake/pkg/ffmpeg"
	"github.com/your-org/mediaintake/pkg/imagecodec"
)

const (
	DefaultVideoMinBitrate = 500_000
	DefaultVideoMaxBitrate = 5_000_000
	// DefaultThumbnailOffset is where the preview frame is taken.
	DefaultThumbnailOffset = time.Second
)

type videoContainer struct {
	mime       string
	videoCodec string
	audioCodec string
}

var videoContainers = map[string]videoContainer{
	"mp4":  {mime: "video/mp4", videoCodec: "libx264", audioCodec: "aac"},
	"webm": {mime: "video/webm", videoCodec: "libvpx-vp9", audioCodec: "libopus"},
}

// Video transcodes and previews video through a Transcoder.
type Video struct {
	Logger      *zap.Logger
	Transcoders TranscoderProvider
}

func NewVideo(logger *zap.Logger, transcoders TranscoderProvider) *Video {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Video{Logger: logger, Transcoders: transcoders}
}

func (e *Video) Kind() media.Kind { return media.Video }

func (e *Video) Validate(ctx context.Context, f *media.File, r rules.Rule) (Validation, error) {
	o := r.Video
	if o.MaxDuration <= 0 && o.MaxWidth <= 0 && o.MaxHeight <= 0 {
		return Validation{}, nil
	}
	t, err := e.Transcoders.get(ctx)
	if err != nil {
		return Validation{}, err
	}
	meta, err := t.Probe(ctx, f.Data, f.Name)
	if err != nil {
		return Validation{}, err
	}
	if !meta.HasVideo {
		return Validation{}, fmt.Errorf("%s has no video stream", f.Name)
	}

	v := Validation{Meta: videoMeta(meta)}
	add := func(format string, args ...any) {
		v.Failures = append(v.Failures, media.NewFailure(f.Name, media.CodeFileTooLarge, format, args...))
	}
	if o.MaxDuration > 0 && meta.Duration > o.MaxDuration {
		add("%s runs %s, maximum is %s", f.Name, meta.Duration, o.MaxDuration)
	}
	if o.MaxWidth > 0 && meta.Width > o.MaxWidth {
		add("%s is %dpx wide, maximum is %dpx", f.Name, meta.Width, o.MaxWidth)
	}
	if o.MaxHeight > 0 && meta.Height > o.MaxHeight {
		add("%s is %dpx high, maximum is %dpx", f.Name, meta.Height, o.MaxHeight)
	}
	return v, nil
}

func (e *Video) NeedsTransform(r rules.Rule) bool {
	o := r.Video
	return r.Compresses() || o.Format != "" || o.Resolution != "" || o.StartOffset > 0 || o.ClipDuration > 0
}

func (e *Video) Transform(ctx context.Context, f *media.File, r rules.Rule) (*media.File, error) {
	o := r.Video
	format := o.Format
	if format == "" {
		format = "mp4"
	}
	c, ok := videoContainers[format]
	if !ok {
		return nil, fmt.Errorf("unsupported video format %q", format)
	}
	t, err := e.Transcoders.get(ctx)
	if err != nil {
		return nil, err
	}

	opts := ffmpeg.TranscodeOptions{
		Container:  format,
		VideoCodec: c.videoCodec,
		AudioCodec: c.audioCodec,
		Start:      o.StartOffset,
		Duration:   o.ClipDuration,
	}
	if r.Compresses() {
		lo, hi := bitrateRange(o.MinBitrate, o.MaxBitrate, DefaultVideoMinBitrate, DefaultVideoMaxBitrate)
		opts.VideoBitrate = BitrateFor(r.CompressQuality, lo, hi)
		opts.AudioBitrate = BitrateFor(r.CompressQuality, DefaultAudioMinBitrate, DefaultAudioMaxBitrate/2)
	}
	if o.Resolution != "" {
		height, err := ResolutionHeight(o.Resolution)
		if err != nil {
			return nil, err
		}
		// Never upscale.
		if meta, err := t.Probe(ctx, f.Data, f.Name); err != nil || meta.Height == 0 || meta.Height > height {
			opts.Height = height
		}
	}

	e.Logger.Debug("transcoding video",
		zap.String("file", f.Name),
		zap.String("format", format),
		zap.Int("video_bitrate", opts.VideoBitrate),
		zap.Int("height", opts.Height),
	)
	data, err := t.Transcode(ctx, f.Data, f.Name, opts)
	if err != nil {
		return nil, err
	}
	return f.Rename(format, c.mime, data), nil
}

// Thumbnail captures a frame at the rule's offset, moved into the clip
// when the content is shorter.
func (e *Video) Thumbnail(ctx context.Context, f *media.File, r rules.Rule) (*media.File, error) {
	t, err := e.Transcoders.get(ctx)
	if err != nil {
		return nil, err
	}
	offset := r.Video.ThumbnailOffset
	if offset <= 0 {
		offset = DefaultThumbnailOffset
	}
	if meta, err := t.Probe(ctx, f.Data, f.Name); err == nil {
		offset = ClampOffset(offset, meta.Duration)
	}
	frame, err := t.Frame(ctx, f.Data, f.Name, offset)
	if err != nil {
		return nil, err
	}
	img, err := imagecodec.Decode(frame)
	if err != nil {
		return nil, err
	}
	return encodeThumbnail(f.Name, img, r)
}

// ClampOffset keeps a seek position inside content of the given duration.
// Offsets at or past the end fall back to the midpoint. An unknown
// duration leaves the offset alone.
func ClampOffset(offset, duration time.Duration) time.Duration {
	if duration <= 0 || offset < duration {
		return offset
	}
	return duration / 2
}

func bitrateRange(lo, hi, defLo, defHi int) (int, int) {
	if lo <= 0 {
		lo = defLo
	}
	if hi <= 0 {
		hi = defHi
	}
	if lo > hi {
		lo = hi
	}
	return lo, hi
}

func videoMeta(m *ffmpeg.Metadata) map[string]string {
	meta := map[string]string{
		"duration": m.Duration.String(),
		"width":    strconv.Itoa(m.Width),
		"height":   strconv.Itoa(m.Height),
	}
	if m.VideoCodec != "" {
		meta["video_codec"] = m.VideoCodec
	}
	if m.AudioCodec != "" {
		meta["audio_codec"] = m.AudioCodec
	}
	return meta
}
