// Package bootstrap assembles an intake Service from configuration. Both
// the HTTP service and the CLI start here.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/your-org/mediaintake/internal/artifact"
	"github.com/your-org/mediaintake/internal/engine"
	"github.com/your-org/mediaintake/internal/intake"
	"github.com/your-org/mediaintake/internal/rules"
	"github.com/your-org/mediaintake/pkg/config"
	"github.com/your-org/mediaintake/pkg/ffmpeg"
	"github.com/your-org/mediaintake/pkg/kafka"
	"github.com/your-org/mediaintake/pkg/storage/objectstore"
)

// Runtime is a wired intake Service and the resources behind it.
type Runtime struct {
	Service *intake.Service
	// Refs is set when reference URLs are held in memory.
	Refs *artifact.MemoryRegistry

	store objectstore.Client
}

// Options relax parts of the configuration for the caller.
type Options struct {
	// DisableEvents skips the Kafka producer even when configured.
	DisableEvents bool
}

// New wires a Runtime. The ffmpeg runtime is configured but not loaded;
// that happens on the first video or audio file.
func New(cfg *config.Config, logger *zap.Logger, opts Options) (*Runtime, error) {
	ffmpeg.Configure(ffmpeg.Config{
		FFmpegPath:  cfg.Intake.FFmpegPath,
		FFprobePath: cfg.Intake.FFprobePath,
		TempDir:     cfg.Intake.TempDir,
		Logger:      logger.Named("ffmpeg"),
	})

	var defaults []rules.Rule
	if cfg.Intake.RulesFile != "" {
		loaded, err := rules.LoadFile(cfg.Intake.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("load default rules: %w", err)
		}
		defaults = loaded
		logger.Info("default rules loaded", zap.String("file", cfg.Intake.RulesFile), zap.Int("rules", len(loaded)))
	}

	rt := &Runtime{}
	var registry artifact.Registry
	switch cfg.Intake.ReferenceBackend {
	case config.ReferenceObjectStore:
		store, err := objectstore.New(objectstore.Config{
			Provider:  cfg.Storage.Provider,
			Endpoint:  cfg.Storage.Endpoint,
			Region:    cfg.Storage.Region,
			Bucket:    cfg.Storage.Bucket,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("init object store: %w", err)
		}
		rt.store = store
		registry = artifact.NewObjectStoreRegistry(store, cfg.Storage.Prefix, cfg.Intake.ReferenceTTL)
	default:
		rt.Refs = artifact.NewExpiringMemoryRegistry(cfg.Intake.ReferenceTTL)
		registry = rt.Refs
	}
	assembler := artifact.NewAssembler(registry)
	assembler.Base64Cutoff = cfg.Intake.Base64MaxBytes

	var events *intake.EventPublisher
	if cfg.Kafka.Enabled && !opts.DisableEvents {
		producer, err := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.ResultsTopic,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			Compression:  kafka.CompressionFromString(cfg.Kafka.CompressionCodec),
			RequiredAcks: kafkago.RequireAll,
			MaxAttempts:  cfg.Kafka.Retries,
		})
		if err != nil {
			return nil, err
		}
		events = intake.NewEventPublisher(producer)
	}

	dim := cfg.Intake.ThumbnailMaxDimension
	rt.Service = intake.NewService(intake.Params{
		Engines:      engine.DefaultSet(logger, engine.SharedTranscoder),
		Assembler:    assembler,
		Events:       events,
		DefaultRules: defaults,
		Thumbnail: rules.ThumbnailOptions{
			MaxWidth:  dim,
			MaxHeight: dim,
			Format:    cfg.Intake.ThumbnailFormat,
		},
		Logger: logger,
	})
	return rt, nil
}

// Close shuts the service down and drops the shared ffmpeg runtime.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error
	if err := r.Service.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close service: %w", err))
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close object store: %w", err))
		}
	}
	ffmpeg.Reset()
	return errors.Join(errs...)
}
