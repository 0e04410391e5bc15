package ffmpeg

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
	"time"
)

// TranscodeOptions describe one re-encode.
type TranscodeOptions struct {
	// Container is the output muxer extension: mp4, webm, mp3, aac, ogg, wav.
	Container    string
	VideoCodec   string
	AudioCodec   string
	VideoBitrate int
	AudioBitrate int
	// Height scales the video keeping aspect ratio; 0 keeps it.
	Height   int
	Start    time.Duration
	Duration time.Duration
	// AudioOnly drops any video stream.
	AudioOnly bool
}

// Transcode re-encodes data according to opts.
func (e *Engine) Transcode(ctx context.Context, data []byte, name string, opts TranscodeOptions) ([]byte, error) {
	in, cleanupIn, err := e.stage(data, name)
	if err != nil {
		return nil, err
	}
	defer cleanupIn()

	out, cleanupOut, err := e.tempOutput(opts.Container)
	if err != nil {
		return nil, err
	}
	defer cleanupOut()

	if _, err := e.run(ctx, e.ffmpeg, TranscodeArgs(in, out, opts)...); err != nil {
		return nil, fmt.Errorf("transcode: %w", err)
	}
	result, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("read transcode output: %w", err)
	}
	return result, nil
}

// TranscodeArgs builds the ffmpeg argument list for a transcode.
func TranscodeArgs(in, out string, opts TranscodeOptions) []string {
	args := []string{"-hide_banner", "-y"}
	if opts.Start > 0 {
		args = append(args, "-ss", seconds(opts.Start))
	}
	args = append(args, "-i", in)
	if opts.Duration > 0 {
		args = append(args, "-t", seconds(opts.Duration))
	}

	if opts.AudioOnly {
		args = append(args, "-vn")
	} else {
		args = append(args, "-map", "0:v:0", "-map", "0:a:0?")
		if opts.VideoCodec != "" {
			args = append(args, "-c:v", opts.VideoCodec)
		}
		if opts.VideoBitrate > 0 {
			args = append(args, "-b:v", strconv.Itoa(opts.VideoBitrate))
		}
		if opts.Height > 0 {
			// -2 keeps the width even, which most encoders require.
			args = append(args, "-vf", "scale=-2:"+strconv.Itoa(opts.Height))
		}
		if opts.Container == "mp4" {
			args = append(args, "-pix_fmt", "yuv420p", "-movflags", "+faststart")
		}
	}

	if opts.AudioCodec != "" {
		args = append(args, "-c:a", opts.AudioCodec)
	}
	if opts.AudioBitrate > 0 && opts.AudioCodec != "pcm_s16le" {
		args = append(args, "-b:a", strconv.Itoa(opts.AudioBitrate))
	}
	return append(args, out)
}

// Frame captures one frame at the given offset as PNG.
func (e *Engine) Frame(ctx context.Context, data []byte, name string, at time.Duration) ([]byte, error) {
	in, cleanup, err := e.stage(data, name)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	out, err := e.run(ctx, e.ffmpeg,
		"-hide_banner",
		"-ss", seconds(at),
		"-i", in,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-c:v", "png",
		"-",
	)
	if err != nil {
		return nil, fmt.Errorf("capture frame: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("capture frame: no frame at %s", at)
	}
	return out, nil
}

// PCM decodes the first audio stream to mono samples in [-1, 1].
func (e *Engine) PCM(ctx context.Context, data []byte, name string, sampleRate int) ([]float32, error) {
	in, cleanup, err := e.stage(data, name)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	out, err := e.run(ctx, e.ffmpeg,
		"-hide_banner",
		"-i", in,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-f", "s16le",
		"-",
	)
	if err != nil {
		return nil, fmt.Errorf("decode pcm: %w", err)
	}
	return decodeS16LE(out), nil
}

func decodeS16LE(raw []byte) []float32 {
	samples := make([]float32, len(raw)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(raw[2*i:]))
		samples[i] = float32(v) / 32768
	}
	return samples
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
