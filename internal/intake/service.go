package intake

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/your-org/mediaintake/internal/artifact"
	"github.com/your-org/mediaintake/internal/engine"
	"github.com/your-org/mediaintake/internal/media"
	"github.com/your-org/mediaintake/internal/rules"
)

const tracerName = "github.com/your-org/mediaintake/internal/intake"

// Service runs intake batches: classification, rule resolution, the kind
// engines and artifact assembly.
type Service struct {
	engines      engine.Set
	assembler    *artifact.Assembler
	events       *EventPublisher
	defaultRules []rules.Rule
	thumbnail    rules.ThumbnailOptions
	logger       *zap.Logger
	tracer       trace.Tracer
}

type Params struct {
	// Engines defaults to engine.DefaultSet over the shared ffmpeg runtime.
	Engines engine.Set
	// Assembler defaults to one backed by an in-memory reference registry.
	Assembler *artifact.Assembler
	// Events is optional.
	Events *EventPublisher
	// DefaultRules apply when a call supplies none.
	DefaultRules []rules.Rule
	// Thumbnail fills thumbnail options a resolved rule leaves unset.
	Thumbnail rules.ThumbnailOptions
	Logger    *zap.Logger
	Tracer    trace.Tracer
}

// Options configure one batch.
type Options struct {
	Rules      []rules.Rule
	OnProgress func(ProgressEvent)
}

// NewService constructs an intake Service.
func NewService(p Params) *Service {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	engines := p.Engines
	if engines == nil {
		engines = engine.DefaultSet(logger, nil)
	}
	assembler := p.Assembler
	if assembler == nil {
		assembler = artifact.NewAssembler(artifact.NewMemoryRegistry())
	}
	tracer := p.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Service{
		engines:      engines,
		assembler:    assembler,
		events:       p.Events,
		defaultRules: p.DefaultRules,
		thumbnail:    p.Thumbnail,
		logger:       logger,
		tracer:       tracer,
	}
}

// ProcessBatch classifies and processes files, returning one result per
// input file in input order. Per-file problems are reported on the
// results; the returned error is ErrNoFilesProvided or a *BatchError.
func (s *Service) ProcessBatch(ctx context.Context, files []*media.File, opts Options) ([]Result, error) {
	return s.run(ctx, files, opts, media.Classify)
}

// ProcessImages runs files through the image engine without classifying
// them. ProcessVideos, ProcessAudioFiles, ProcessDocuments and
// ProcessArchives do the same for their kinds.
func (s *Service) ProcessImages(ctx context.Context, files []*media.File, opts Options) ([]Result, error) {
	return s.run(ctx, files, opts, fixedKind(media.Image))
}

func (s *Service) ProcessVideos(ctx context.Context, files []*media.File, opts Options) ([]Result, error) {
	return s.run(ctx, files, opts, fixedKind(media.Video))
}

func (s *Service) ProcessAudioFiles(ctx context.Context, files []*media.File, opts Options) ([]Result, error) {
	return s.run(ctx, files, opts, fixedKind(media.Audio))
}

func (s *Service) ProcessDocuments(ctx context.Context, files []*media.File, opts Options) ([]Result, error) {
	return s.run(ctx, files, opts, fixedKind(media.Document))
}

func (s *Service) ProcessArchives(ctx context.Context, files []*media.File, opts Options) ([]Result, error) {
	return s.run(ctx, files, opts, fixedKind(media.Archive))
}

// Close releases the event producer.
func (s *Service) Close(ctx context.Context) error {
	if s.events == nil {
		return nil
	}
	return s.events.Close(ctx)
}

type classifier func(media.Descriptor) (media.Kind, error)

func fixedKind(k media.Kind) classifier {
	return func(media.Descriptor) (media.Kind, error) { return k, nil }
}

// group is the files of one kind, in input order, as indexes into the batch.
type group struct {
	kind    media.Kind
	indexes []int
}

func (s *Service) run(ctx context.Context, files []*media.File, opts Options, classify classifier) ([]Result, error) {
	if len(files) == 0 {
		return nil, ErrNoFilesProvided
	}
	batchID := uuid.NewString()
	ctx, span := s.tracer.Start(ctx, "intake.batch", trace.WithAttributes(
		attribute.String("intake.batch_id", batchID),
		attribute.Int("intake.files", len(files)),
	))
	defer span.End()

	ruleset := opts.Rules
	if len(ruleset) == 0 {
		ruleset = s.defaultRules
	}
	if len(ruleset) == 0 {
		ruleset = []rules.Rule{rules.CatchAll()}
	}

	descriptors := make([]media.Descriptor, len(files))
	for i, f := range files {
		descriptors[i] = media.NewDescriptor(f)
	}

	if err := checkBatchCount(len(files), ruleset); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	groups, err := s.classify(descriptors, ruleset, classify)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.logger.Info("processing batch",
		zap.String("batch_id", batchID),
		zap.Int("files", len(files)),
		zap.Int("kinds", len(groups)),
	)

	results := make([]Result, len(files))
	prog := &progress{batchID: batchID, total: len(files), fn: opts.OnProgress}
	ordinal := 0
	for _, g := range groups {
		admitted := s.admit(g, descriptors, files, ruleset, results)
		for _, i := range g.indexes {
			ordinal++
			if !admitted[i] {
				prog.emit(ordinal, files[i].Name, engine.StageCompleted)
				continue
			}
			results[i] = s.processFile(ctx, g.kind, files[i], descriptors[i], ruleset, func(stage engine.Stage) {
				prog.emit(ordinal, files[i].Name, stage)
			})
			prog.emit(ordinal, files[i].Name, engine.StageCompleted)
		}
	}

	processed := 0
	for _, r := range results {
		if r.OK() {
			processed++
		}
	}
	span.SetAttributes(attribute.Int("intake.processed", processed))
	s.logger.Info("batch finished",
		zap.String("batch_id", batchID),
		zap.Int("processed", processed),
		zap.Int("unprocessed", len(results)-processed),
	)

	if s.events != nil {
		if err := s.events.PublishResults(ctx, batchID, results); err != nil {
			s.logger.Warn("publish intake events failed", zap.String("batch_id", batchID), zap.Error(err))
		}
	}
	return results, nil
}

// checkBatchCount applies the merged selection-count bounds of the generic
// rules to the whole batch.
func checkBatchCount(n int, ruleset []rules.Rule) error {
	generic := rules.Scoped(media.Generic, ruleset)
	if len(generic) == 0 {
		return nil
	}
	merged := rules.Merge(generic)
	if merged.MinSelectionCount > 0 && n < merged.MinSelectionCount {
		return &BatchError{
			Code:    media.CodeTooFewFiles,
			Message: fmt.Sprintf("%d files selected, at least %d required", n, merged.MinSelectionCount),
		}
	}
	if merged.MaxSelectionCount > 0 && n > merged.MaxSelectionCount {
		return &BatchError{
			Code:    media.CodeTooManyFiles,
			Message: fmt.Sprintf("%d files selected, at most %d allowed", n, merged.MaxSelectionCount),
		}
	}
	return nil
}

// classify groups files by kind in order of first appearance. Files that
// cannot be classified form a media.Generic group, which is only allowed
// when a catch-all rule is present.
func (s *Service) classify(descriptors []media.Descriptor, ruleset []rules.Rule, classify classifier) ([]group, error) {
	tolerant := rules.HasCatchAll(ruleset)
	var groups []group
	pos := map[media.Kind]int{}
	for i, d := range descriptors {
		kind, err := classify(d)
		if err != nil {
			if !tolerant {
				return nil, &BatchError{
					Code:    media.CodeUnknownFileType,
					Message: fmt.Sprintf("%s (%s) is not a supported file type", d.Name, d.MimeType),
				}
			}
			kind = media.Generic
		}
		p, ok := pos[kind]
		if !ok {
			p = len(groups)
			pos[kind] = p
			groups = append(groups, group{kind: kind})
		}
		groups[p].indexes = append(groups[p].indexes, i)
	}
	return groups, nil
}

// admit applies the group's count bounds and fills results for every file
// that will not reach an engine. It returns the indexes that will.
func (s *Service) admit(g group, descriptors []media.Descriptor, files []*media.File, ruleset []rules.Rule, results []Result) map[int]bool {
	admitted := make(map[int]bool, len(g.indexes))
	if g.kind == media.Generic {
		for _, i := range g.indexes {
			d := descriptors[i]
			results[i] = unprocessed(media.Generic, d, files[i], media.NewFailure(d.Name, media.CodeUnknownFileType,
				"%s (%s) is not a supported file type", d.Name, d.MimeType))
		}
		return admitted
	}

	var bounds rules.Rule
	if scoped := rules.Scoped(g.kind, ruleset); len(scoped) > 0 {
		bounds = rules.Merge(scoped)
	}
	n := len(g.indexes)
	if bounds.MinSelectionCount > 0 && n < bounds.MinSelectionCount {
		for _, i := range g.indexes {
			d := descriptors[i]
			results[i] = unprocessed(g.kind, d, files[i], media.NewFailure(d.Name, media.CodeTooFewFiles,
				"%d %s files selected, at least %d required", n, g.kind, bounds.MinSelectionCount))
		}
		return admitted
	}
	for k, i := range g.indexes {
		if bounds.MaxSelectionCount > 0 && k >= bounds.MaxSelectionCount {
			d := descriptors[i]
			results[i] = unprocessed(g.kind, d, files[i], media.NewFailure(d.Name, media.CodeTooManyFiles,
				"only the first %d %s files are accepted", bounds.MaxSelectionCount, g.kind))
			continue
		}
		admitted[i] = true
	}
	return admitted
}

func (s *Service) processFile(ctx context.Context, kind media.Kind, f *media.File, d media.Descriptor, ruleset []rules.Rule, onStage engine.StageFunc) Result {
	ctx, span := s.tracer.Start(ctx, "intake.file", trace.WithAttributes(
		attribute.String("intake.file", d.Name),
		attribute.String("intake.kind", kind.String()),
		attribute.Int64("intake.size_bytes", d.SizeBytes),
	))
	defer span.End()

	result := s.dispatch(ctx, kind, f, d, ruleset, onStage)
	if result.Failure != nil {
		span.SetAttributes(attribute.String("intake.error_code", string(result.Failure.Code)))
		span.SetStatus(codes.Error, result.Failure.Message)
		s.logger.Debug("file not processed",
			zap.String("file", d.Name),
			zap.String("kind", kind.String()),
			zap.String("code", string(result.Failure.Code)),
			zap.String("reason", result.Failure.Message),
		)
	}
	return result
}

func (s *Service) dispatch(ctx context.Context, kind media.Kind, f *media.File, d media.Descriptor, ruleset []rules.Rule, onStage engine.StageFunc) Result {
	rule, ok := rules.Resolve(kind, d, ruleset)
	if !ok {
		onStage(engine.StageValidating)
		return unprocessed(kind, d, f, media.NewFailure(d.Name, media.CodeInvalidType,
			"%s (%s) is not accepted by any %s rule", d.Name, d.MimeType, kind))
	}
	rule.Thumbnail = rule.Thumbnail.Or(s.thumbnail)
	eng, ok := s.engines[kind]
	if !ok {
		return unprocessed(kind, d, f, media.NewFailure(d.Name, media.ProcessingErrorCode(kind),
			"no engine for %s files", kind))
	}

	out, failure := engine.Run(ctx, eng, f, rule, onStage)
	if failure != nil {
		return unprocessed(kind, d, f, *failure)
	}
	if out.ThumbnailErr != nil {
		s.logger.Warn("thumbnail generation failed",
			zap.String("file", d.Name),
			zap.String("kind", kind.String()),
			zap.Error(out.ThumbnailErr),
		)
	}

	onStage(engine.StageProcessing)
	processed, err := s.assembler.Build(ctx, kind, artifact.RoleProcessed, out.Processed, rule, out.Meta)
	if err != nil {
		return unprocessed(kind, d, f, media.NewFailure(d.Name, media.ProcessingErrorCode(kind), "%v", err))
	}
	result := Result{Status: StatusProcessed, Kind: kind, Source: d, Original: f, Processed: processed}
	if out.Thumbnail != nil {
		thumb, err := s.assembler.Build(ctx, kind, artifact.RoleThumbnail, out.Thumbnail, rule, nil)
		if err != nil {
			s.logger.Warn("thumbnail assembly failed", zap.String("file", d.Name), zap.Error(err))
		} else {
			result.Thumbnail = thumb
		}
	}
	return result
}

// forKind returns the per-kind entry point for k.
func (s *Service) forKind(k media.Kind) func(context.Context, []*media.File, Options) ([]Result, error) {
	return func(ctx context.Context, files []*media.File, opts Options) ([]Result, error) {
		return s.run(ctx, files, opts, fixedKind(k))
	}
}
