package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures the full runtime configuration of the intake service and CLI.
type Config struct {
	App     AppConfig
	HTTP    HTTPConfig
	Kafka   KafkaConfig
	Storage StorageConfig
	Tracing TracingConfig
	Intake  IntakeConfig
	Upload  UploadConfig
}

type AppConfig struct {
	Name        string `env:"APP_NAME" envDefault:"mediaintake"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	Version     string `env:"APP_VERSION" envDefault:"0.1.0"`
	LogLevel    string `env:"APP_LOG_LEVEL" envDefault:"info"`
	LogEncoding string `env:"APP_LOG_ENCODING" envDefault:"json"`
}

type HTTPConfig struct {
	Addr         string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"300s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
}

type KafkaConfig struct {
	Enabled          bool          `env:"KAFKA_ENABLED" envDefault:"false"`
	Brokers          []string      `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	ResultsTopic     string        `env:"KAFKA_RESULTS_TOPIC" envDefault:"mediaintake.results"`
	Retries          int           `env:"KAFKA_RETRIES" envDefault:"3"`
	CompressionCodec string        `env:"KAFKA_COMPRESSION_CODEC" envDefault:"snappy"`
	BatchSize        int           `env:"KAFKA_BATCH_SIZE" envDefault:"100"`
	BatchTimeout     time.Duration `env:"KAFKA_BATCH_TIMEOUT" envDefault:"1s"`
}

type StorageConfig struct {
	Provider  string `env:"STORAGE_PROVIDER" envDefault:"minio"`
	Endpoint  string `env:"STORAGE_ENDPOINT" envDefault:"http://localhost:9000"`
	Region    string `env:"STORAGE_REGION" envDefault:"us-east-1"`
	Bucket    string `env:"STORAGE_BUCKET" envDefault:"mediaintake-artifacts"`
	Prefix    string `env:"STORAGE_PREFIX" envDefault:"artifacts"`
	AccessKey string `env:"STORAGE_ACCESS_KEY" envDefault:"minioadmin"`
	SecretKey string `env:"STORAGE_SECRET_KEY" envDefault:"minioadmin"`
	UseSSL    bool   `env:"STORAGE_USE_SSL" envDefault:"false"`
}

type TracingConfig struct {
	Endpoint     string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure     bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	SampleRatio  float64 `env:"OTEL_TRACES_SAMPLER_RATIO" envDefault:"1.0"`
	ResourceAttr string  `env:"OTEL_RESOURCE_ATTRIBUTES" envDefault:"service.namespace=mediaintake"`
}

// Reference URL backends.
const (
	ReferenceMemory      = "memory"
	ReferenceObjectStore = "objectstore"
)

type IntakeConfig struct {
	// RulesFile is a YAML rule list used when a request carries none.
	RulesFile             string        `env:"INTAKE_RULES_FILE"`
	ThumbnailMaxDimension int           `env:"INTAKE_THUMBNAIL_MAX_DIMENSION" envDefault:"200"`
	ThumbnailFormat       string        `env:"INTAKE_THUMBNAIL_FORMAT" envDefault:"webp"`
	Base64MaxBytes        int64         `env:"INTAKE_BASE64_MAX_BYTES" envDefault:"10485760"`
	FFmpegPath            string        `env:"INTAKE_FFMPEG_PATH"`
	FFprobePath           string        `env:"INTAKE_FFPROBE_PATH"`
	TempDir               string        `env:"INTAKE_TEMP_DIR"`
	ReferenceBackend      string        `env:"INTAKE_REFERENCE_BACKEND" envDefault:"memory"`
	ReferenceTTL          time.Duration `env:"INTAKE_REFERENCE_TTL" envDefault:"1h"`
}

type UploadConfig struct {
	MaxSizeBytes      int64 `env:"UPLOAD_MAX_SIZE_BYTES" envDefault:"1073741824"`
	MultipartMemBytes int64 `env:"UPLOAD_MULTIPART_MEM_BYTES" envDefault:"52428800"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values env parsing cannot catch.
func (c *Config) Validate() error {
	switch c.Intake.ReferenceBackend {
	case ReferenceMemory, ReferenceObjectStore:
	default:
		return fmt.Errorf("INTAKE_REFERENCE_BACKEND must be %q or %q, got %q",
			ReferenceMemory, ReferenceObjectStore, c.Intake.ReferenceBackend)
	}
	if c.Intake.ThumbnailMaxDimension <= 0 {
		return fmt.Errorf("INTAKE_THUMBNAIL_MAX_DIMENSION must be positive, got %d", c.Intake.ThumbnailMaxDimension)
	}
	return nil
}
