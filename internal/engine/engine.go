// Package engine implements the per-kind processing strategies behind one
// contract, and the scaffold that drives them: validation, then the
// optional transform, then a best-effort thumbnail.
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/your-org/mediaintake/internal/media"
	"github.com/your-org/mediaintake/internal/rules"
)

// Stage names a step of the per-file pipeline.
type Stage string

const (
	StageValidating          Stage = "validating"
	StageCompressing         Stage = "compressing"
	StageGeneratingThumbnail Stage = "generating-thumbnail"
	StageProcessing          Stage = "processing"
	StageCompleted           Stage = "completed"
)

// Validation is the outcome of an engine's content checks. An empty
// Failures slice means the file passed. Meta carries facts discovered on
// the way (dimensions, duration) and ends up on the processed artifact.
type Validation struct {
	Failures []media.Failure
	Meta     map[string]string
}

// Engine is one media kind's strategy.
type Engine interface {
	Kind() media.Kind
	// Validate checks content-level constraints. Size and MIME checks are
	// done by Run before Validate is called. An error means the content
	// could not be inspected at all.
	Validate(ctx context.Context, f *media.File, r rules.Rule) (Validation, error)
	// NeedsTransform reports whether r asks for anything Transform would do.
	NeedsTransform(r rules.Rule) bool
	Transform(ctx context.Context, f *media.File, r rules.Rule) (*media.File, error)
	Thumbnail(ctx context.Context, f *media.File, r rules.Rule) (*media.File, error)
}

// Output is what Run hands to the assembler.
type Output struct {
	Processed *media.File
	Thumbnail *media.File
	// ThumbnailErr is why Thumbnail is nil. It never fails the file.
	ThumbnailErr error
	Meta         map[string]string
}

// StageFunc observes stage transitions.
type StageFunc func(Stage)

// Run drives e over f. A non-nil Failure means the file is unprocessed.
func Run(ctx context.Context, e Engine, f *media.File, r rules.Rule, onStage StageFunc) (Output, *media.Failure) {
	if onStage == nil {
		onStage = func(Stage) {}
	}
	kind := e.Kind()
	fail := func(err error) (Output, *media.Failure) {
		failure := media.NewFailure(f.Name, media.ProcessingErrorCode(kind), "%v", err)
		return Output{}, &failure
	}

	onStage(StageValidating)
	if failure := CheckCommon(media.NewDescriptor(f), r); failure != nil {
		return Output{}, failure
	}
	var v Validation
	err := safely(func() (err error) {
		v, err = e.Validate(ctx, f, r)
		return err
	})
	if err != nil {
		return fail(fmt.Errorf("validate: %w", err))
	}
	if len(v.Failures) > 0 {
		failure := v.Failures[0]
		return Output{}, &failure
	}

	out := Output{Processed: f, Meta: v.Meta}
	if e.NeedsTransform(r) {
		onStage(StageCompressing)
		var processed *media.File
		err := safely(func() (err error) {
			processed, err = e.Transform(ctx, f, r)
			return err
		})
		if err != nil {
			return fail(fmt.Errorf("transform: %w", err))
		}
		if processed != nil {
			out.Processed = processed
		}
	}

	onStage(StageGeneratingThumbnail)
	out.ThumbnailErr = safely(func() (err error) {
		out.Thumbnail, err = e.Thumbnail(ctx, out.Processed, r)
		return err
	})
	if out.ThumbnailErr != nil {
		out.Thumbnail = nil
	}
	return out, nil
}

// CheckCommon applies the rule's MIME allow-list and size bounds.
func CheckCommon(d media.Descriptor, r rules.Rule) *media.Failure {
	if !r.Matches(d) {
		f := media.NewFailure(d.Name, media.CodeInvalidType,
			"%s has type %q, allowed: %s", d.Name, d.MimeType, strings.Join(r.AllowedMimeTypes, ", "))
		return &f
	}
	if r.MinFileSize > 0 && d.SizeBytes < r.MinFileSize {
		f := media.NewFailure(d.Name, media.CodeFileTooSmall,
			"%s is %s, minimum is %s", d.Name, sizeText(d.SizeBytes), sizeText(r.MinFileSize))
		return &f
	}
	if r.MaxFileSize > 0 && d.SizeBytes > r.MaxFileSize {
		f := media.NewFailure(d.Name, media.CodeFileTooLarge,
			"%s is %s, maximum is %s", d.Name, sizeText(d.SizeBytes), sizeText(r.MaxFileSize))
		return &f
	}
	return nil
}

// safely converts a panic inside an engine call into an error so one bad
// file cannot take the batch down.
func safely(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn()
}

func sizeText(n int64) string {
	return humanize.Bytes(uint64(max(n, 0)))
}

// thumbnailName derives "<base>_thumb.<ext>" from a source name.
func thumbnailName(name, ext string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + "_thumb." + ext
}

// Set maps each kind to the engine handling it.
type Set map[media.Kind]Engine

// DefaultSet wires the built-in engines. A nil provider uses the shared
// ffmpeg runtime.
func DefaultSet(logger *zap.Logger, transcoders TranscoderProvider) Set {
	return Set{
		media.Image:    NewImage(logger),
		media.Video:    NewVideo(logger, transcoders),
		media.Audio:    NewAudio(logger, transcoders),
		media.Document: Document{},
		media.Archive:  Archive{},
	}
}
