package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Metadata is what the pipeline needs to know about a media file.
type Metadata struct {
	Duration   time.Duration `json:"duration"`
	Width      int           `json:"width,omitempty"`
	Height     int           `json:"height,omitempty"`
	HasVideo   bool          `json:"has_video"`
	HasAudio   bool          `json:"has_audio"`
	SampleRate int           `json:"sample_rate,omitempty"`
	Channels   int           `json:"channels,omitempty"`
	Bitrate    int           `json:"bitrate,omitempty"`
	VideoCodec string        `json:"video_codec,omitempty"`
	AudioCodec string        `json:"audio_codec,omitempty"`
	Container  string        `json:"container,omitempty"`
}

type probeOutput struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		BitRate    string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
		Duration   string `json:"duration"`
	} `json:"streams"`
}

// Probe reads container and stream metadata with ffprobe.
func (e *Engine) Probe(ctx context.Context, data []byte, name string) (*Metadata, error) {
	in, cleanup, err := e.stage(data, name)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	out, err := e.run(ctx, e.ffprobe,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		in,
	)
	if err != nil {
		return nil, fmt.Errorf("probe: %w", err)
	}
	return parseProbe(out)
}

func parseProbe(out []byte) (*Metadata, error) {
	var p probeOutput
	if err := json.Unmarshal(out, &p); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	md := &Metadata{
		Container: p.Format.FormatName,
		Duration:  parseSeconds(p.Format.Duration),
	}
	md.Bitrate, _ = strconv.Atoi(p.Format.BitRate)

	for _, s := range p.Streams {
		switch s.CodecType {
		case "video":
			if md.HasVideo {
				continue
			}
			md.HasVideo = true
			md.VideoCodec = s.CodecName
			md.Width, md.Height = s.Width, s.Height
		case "audio":
			if md.HasAudio {
				continue
			}
			md.HasAudio = true
			md.AudioCodec = s.CodecName
			md.SampleRate, _ = strconv.Atoi(s.SampleRate)
			md.Channels = s.Channels
		default:
			continue
		}
		if md.Duration == 0 {
			md.Duration = parseSeconds(s.Duration)
		}
	}
	return md, nil
}

func parseSeconds(s string) time.Duration {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return time.Duration(math.Round(f * float64(time.Second)))
}
