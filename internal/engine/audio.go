package engine

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/dhowden/tag"
	"go.uber.org/zap"

	"github.com/your-org/mediaintake/internal/media"
	"github.com/your-org/mediaintake/internal/rules"
	"github.com/your-org/mediaintake/pkg/ffmpeg"
)

const (
	DefaultAudioMinBitrate = 64_000
	DefaultAudioMaxBitrate = 320_000
	// waveformSampleRate is plenty for an envelope a few hundred pixels wide.
	waveformSampleRate = 8000
)

type audioFormat struct {
	container string
	mime      string
	codec     string
}

var audioFormats = map[string]audioFormat{
	"mp3": {container: "mp3", mime: "audio/mpeg", codec: "libmp3lame"},
	"aac": {container: "m4a", mime: "audio/mp4", codec: "aac"},
	"ogg": {container: "ogg", mime: "audio/ogg", codec: "libvorbis"},
	"wav": {container: "wav", mime: "audio/wav", codec: "pcm_s16le"},
}

// Audio transcodes audio and renders waveform previews.
type Audio struct {
	Logger      *zap.Logger
	Transcoders TranscoderProvider
}

func NewAudio(logger *zap.Logger, transcoders TranscoderProvider) *Audio {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Audio{Logger: logger, Transcoders: transcoders}
}

func (e *Audio) Kind() media.Kind { return media.Audio }

func (e *Audio) Validate(ctx context.Context, f *media.File, r rules.Rule) (Validation, error) {
	v := Validation{Meta: readTags(f.Data)}
	o := r.Audio
	if o.MaxDuration <= 0 && o.MaxSampleRate <= 0 {
		return v, nil
	}
	t, err := e.Transcoders.get(ctx)
	if err != nil {
		return Validation{}, err
	}
	meta, err := t.Probe(ctx, f.Data, f.Name)
	if err != nil {
		return Validation{}, err
	}
	if !meta.HasAudio {
		return Validation{}, fmt.Errorf("%s has no audio stream", f.Name)
	}
	v.Meta["duration"] = meta.Duration.String()
	if meta.SampleRate > 0 {
		v.Meta["sample_rate"] = strconv.Itoa(meta.SampleRate)
	}

	if o.MaxDuration > 0 && meta.Duration > o.MaxDuration {
		v.Failures = append(v.Failures, media.NewFailure(f.Name, media.CodeFileTooLarge,
			"%s runs %s, maximum is %s", f.Name, meta.Duration, o.MaxDuration))
	}
	if o.MaxSampleRate > 0 && meta.SampleRate > o.MaxSampleRate {
		v.Failures = append(v.Failures, media.NewFailure(f.Name, media.CodeFileTooLarge,
			"%s is sampled at %d Hz, maximum is %d Hz", f.Name, meta.SampleRate, o.MaxSampleRate))
	}
	return v, nil
}

func (e *Audio) NeedsTransform(r rules.Rule) bool {
	o := r.Audio
	return r.Compresses() || o.Format != "" || o.StartOffset > 0 || o.ClipDuration > 0
}

func (e *Audio) Transform(ctx context.Context, f *media.File, r rules.Rule) (*media.File, error) {
	o := r.Audio
	name := o.Format
	if name == "" {
		name = "mp3"
	}
	format, ok := audioFormats[name]
	if !ok {
		return nil, fmt.Errorf("unsupported audio format %q", name)
	}
	t, err := e.Transcoders.get(ctx)
	if err != nil {
		return nil, err
	}
	opts := ffmpeg.TranscodeOptions{
		Container:  format.container,
		AudioCodec: format.codec,
		Start:      o.StartOffset,
		Duration:   o.ClipDuration,
		AudioOnly:  true,
	}
	if r.Compresses() {
		lo, hi := bitrateRange(o.MinBitrate, o.MaxBitrate, DefaultAudioMinBitrate, DefaultAudioMaxBitrate)
		opts.AudioBitrate = BitrateFor(r.CompressQuality, lo, hi)
	}

	e.Logger.Debug("transcoding audio",
		zap.String("file", f.Name),
		zap.String("format", name),
		zap.Int("audio_bitrate", opts.AudioBitrate),
	)
	data, err := t.Transcode(ctx, f.Data, f.Name, opts)
	if err != nil {
		return nil, err
	}
	return f.Rename(format.container, format.mime, data), nil
}

// Thumbnail renders the amplitude envelope as an image.
func (e *Audio) Thumbnail(ctx context.Context, f *media.File, r rules.Rule) (*media.File, error) {
	t, err := e.Transcoders.get(ctx)
	if err != nil {
		return nil, err
	}
	samples, err := t.PCM(ctx, f.Data, f.Name, waveformSampleRate)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%s decoded to no samples", f.Name)
	}
	opts := r.ThumbnailOrDefault()
	return encodeThumbnail(f.Name, RenderWaveform(samples, opts.MaxWidth, opts.MaxHeight), r)
}

// readTags extracts ID3, MP4 and Vorbis tags. Untagged audio yields an
// empty map.
func readTags(data []byte) map[string]string {
	meta := map[string]string{}
	m, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return meta
	}
	set := func(key, value string) {
		if value != "" {
			meta[key] = value
		}
	}
	set("title", m.Title())
	set("artist", m.Artist())
	set("album", m.Album())
	set("genre", m.Genre())
	set("tag_format", string(m.Format()))
	if year := m.Year(); year > 0 {
		meta["year"] = strconv.Itoa(year)
	}
	return meta
}
