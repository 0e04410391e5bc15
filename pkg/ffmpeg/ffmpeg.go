// Package ffmpeg drives the ffmpeg and ffprobe binaries for video and audio
// work: metadata probing, transcoding, frame capture and PCM decoding.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ErrUnavailable is returned when the binaries cannot be located or run.
var ErrUnavailable = errors.New("ffmpeg: not available")

// Config locates the binaries. Empty paths are looked up on PATH.
type Config struct {
	FFmpegPath  string
	FFprobePath string
	TempDir     string
	Logger      *zap.Logger
}

// Engine runs ffmpeg commands. It holds no per-call state and is safe for
// concurrent use, although the intake pipeline drives it sequentially.
type Engine struct {
	ffmpeg  string
	ffprobe string
	tempDir string
	version string
	logger  *zap.Logger
}

// New locates the binaries and checks that ffmpeg runs.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ffmpegPath, err := lookPath(cfg.FFmpegPath, "ffmpeg")
	if err != nil {
		return nil, err
	}
	ffprobePath, err := lookPath(cfg.FFprobePath, "ffprobe")
	if err != nil {
		return nil, err
	}

	out, err := exec.CommandContext(ctx, ffmpegPath, "-hide_banner", "-version").Output()
	if err != nil {
		return nil, fmt.Errorf("%w: run %s -version: %v", ErrUnavailable, ffmpegPath, err)
	}
	version := parseVersion(out)

	e := &Engine{
		ffmpeg:  ffmpegPath,
		ffprobe: ffprobePath,
		tempDir: cfg.TempDir,
		version: version,
		logger:  logger.Named("ffmpeg"),
	}
	e.logger.Info("ffmpeg engine ready",
		zap.String("ffmpeg", ffmpegPath),
		zap.String("ffprobe", ffprobePath),
		zap.String("version", version),
	)
	return e, nil
}

// Version returns the ffmpeg version string reported at start-up.
func (e *Engine) Version() string { return e.version }

func lookPath(configured, name string) (string, error) {
	if configured == "" {
		configured = name
	}
	path, err := exec.LookPath(configured)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnavailable, name, err)
	}
	return path, nil
}

func parseVersion(out []byte) string {
	line, _, _ := bytes.Cut(out, []byte("\n"))
	fields := strings.Fields(string(line))
	// "ffmpeg version 6.1.1-3ubuntu5 Copyright ..."
	if len(fields) >= 3 && fields[1] == "version" {
		return fields[2]
	}
	return strings.TrimSpace(string(line))
}

// run executes bin with args and returns stdout. stderr is folded into the
// error so callers can surface the codec's own message.
func (e *Engine) run(ctx context.Context, bin string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger.Debug("exec", zap.String("bin", filepath.Base(bin)), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if i := strings.LastIndex(msg, "\n"); i >= 0 {
			msg = msg[i+1:]
		}
		if msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", filepath.Base(bin), err, msg)
		}
		return nil, fmt.Errorf("%s: %w", filepath.Base(bin), err)
	}
	return stdout.Bytes(), nil
}

// stage writes data to a temporary file whose extension hints the demuxer.
// The returned cleanup removes it.
func (e *Engine) stage(data []byte, name string) (string, func(), error) {
	ext := filepath.Ext(name)
	f, err := os.CreateTemp(e.tempDir, "intake-in-*"+ext)
	if err != nil {
		return "", nil, fmt.Errorf("create temp input: %w", err)
	}
	path := f.Name()
	cleanup := func() { _ = os.Remove(path) }

	if _, err := f.Write(data); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("write temp input: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp input: %w", err)
	}
	return path, cleanup, nil
}

func (e *Engine) tempOutput(ext string) (string, func(), error) {
	f, err := os.CreateTemp(e.tempDir, "intake-out-*."+ext)
	if err != nil {
		return "", nil, fmt.Errorf("create temp output: %w", err)
	}
	path := f.Name()
	f.Close()
	return path, func() { _ = os.Remove(path) }, nil
}
