package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/your-org/mediaintake/pkg/ffmpeg"
)

// Transcoder is the slice of the ffmpeg runtime the video and audio
// engines need. *ffmpeg.Engine implements it.
type Transcoder interface {
	Probe(ctx context.Context, data []byte, name string) (*ffmpeg.Metadata, error)
	Transcode(ctx context.Context, data []byte, name string, opts ffmpeg.TranscodeOptions) ([]byte, error)
	Frame(ctx context.Context, data []byte, name string, at time.Duration) ([]byte, error)
	PCM(ctx context.Context, data []byte, name string, sampleRate int) ([]float32, error)
}

// TranscoderProvider returns a ready transcoder. It is called on every use
// so the runtime is only loaded once media actually needs it.
type TranscoderProvider func(ctx context.Context) (Transcoder, error)

// SharedTranscoder hands out the process-wide ffmpeg runtime.
func SharedTranscoder(ctx context.Context) (Transcoder, error) {
	e, err := ffmpeg.Shared(ctx)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// StaticTranscoder always returns t.
func StaticTranscoder(t Transcoder) TranscoderProvider {
	return func(context.Context) (Transcoder, error) { return t, nil }
}

func (p TranscoderProvider) get(ctx context.Context) (Transcoder, error) {
	if p == nil {
		p = SharedTranscoder
	}
	t, err := p(ctx)
	if err != nil {
		return nil, fmt.Errorf("load transcoder: %w", err)
	}
	return t, nil
}

// BitrateFor maps quality 1..100 linearly onto [lo, hi].
func BitrateFor(quality, lo, hi int) int {
	quality = max(1, min(quality, 100))
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + (hi-lo)*(quality-1)/99
}

// resolutionHeights are the named output tiers.
var resolutionHeights = map[string]int{
	"480p":  480,
	"720p":  720,
	"1080p": 1080,
	"1440p": 1440,
	"2160p": 2160,
	"4k":    2160,
}

// ResolutionHeight resolves a tier name to a pixel height.
func ResolutionHeight(tier string) (int, error) {
	h, ok := resolutionHeights[tier]
	if !ok {
		return 0, fmt.Errorf("unknown resolution %q", tier)
	}
	return h, nil
}
