// Package config loads jadepulse settings from defaults, an optional YAML
// file and JADEPULSE_* environment variables, in that order of precedence.
// Command line flags are applied on top by the caller.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/linuxmatters/jadepulse/internal/processor"
	"github.com/linuxmatters/jadepulse/internal/storage"
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all settings.
type Config struct {
	Detection DetectionConfig `yaml:"detection"`
	Metadata  MetadataConfig  `yaml:"metadata"`
	Output    OutputConfig    `yaml:"output"`
	Upload    UploadConfig    `yaml:"upload"`
	Log       LogConfig       `yaml:"log"`
}

// DetectionConfig holds the peak detection parameters
type DetectionConfig struct {
	ThresholdMultiplier float64 `yaml:"threshold_multiplier" env:"JADEPULSE_THRESHOLD, overwrite" validate:"gt=0"`
	MinLength           float64 `yaml:"min_length" env:"JADEPULSE_MIN_LENGTH, overwrite" validate:"gte=0,lte=3600"`
	// 0 detects from the local timezone, negative disables the hum probe
	MainsHz int `yaml:"mains_hz" env:"JADEPULSE_MAINS_HZ, overwrite" validate:"lte=1000"`
}

// MetadataConfig fills the DAT header
type MetadataConfig struct {
	Subject      string `yaml:"subject" env:"JADEPULSE_SUBJECT, overwrite"`
	Experimenter string `yaml:"experimenter" env:"JADEPULSE_EXPERIMENTER, overwrite"`
}

// OutputConfig selects where exports go and which optional ones are written
type OutputConfig struct {
	Dir      string `yaml:"dir" env:"JADEPULSE_OUTPUT_DIR, overwrite"`
	Logs     bool   `yaml:"logs" env:"JADEPULSE_LOGS, overwrite"`
	Waveform bool   `yaml:"waveform" env:"JADEPULSE_WAVEFORM, overwrite"`
	Parquet  string `yaml:"parquet" env:"JADEPULSE_PARQUET, overwrite"`
	// Parquet compression codec
	Compression string `yaml:"compression" env:"JADEPULSE_PARQUET_COMPRESSION, overwrite" validate:"omitempty,oneof=snappy zstd gzip none"`
}

// UploadConfig selects a publish target. Dir and Bucket are exclusive.
type UploadConfig struct {
	Dir             string `yaml:"dir" env:"JADEPULSE_UPLOAD_DIR, overwrite" validate:"excluded_with=Bucket"`
	Bucket          string `yaml:"bucket" env:"JADEPULSE_S3_BUCKET, overwrite"`
	Region          string `yaml:"region" env:"JADEPULSE_S3_REGION, overwrite" validate:"required_with=Bucket"`
	Endpoint        string `yaml:"endpoint" env:"JADEPULSE_S3_ENDPOINT, overwrite" validate:"omitempty,url"`
	Prefix          string `yaml:"prefix" env:"JADEPULSE_UPLOAD_PREFIX, overwrite"`
	AccessKeyID     string `yaml:"access_key_id" env:"AWS_ACCESS_KEY_ID, overwrite"`
	SecretAccessKey string `yaml:"secret_access_key" env:"AWS_SECRET_ACCESS_KEY, overwrite" validate:"required_with=AccessKeyID"`
}

// LogConfig controls the debug log file
type LogConfig struct {
	Level string `yaml:"level" env:"JADEPULSE_LOG_LEVEL, overwrite" validate:"oneof=debug info warn error"`
	File  string `yaml:"file" env:"JADEPULSE_LOG_FILE, overwrite"`
}

// Default returns the built-in settings
func Default() *Config {
	d := processor.DefaultDetectionConfig()
	return &Config{
		Detection: DetectionConfig{
			ThresholdMultiplier: d.ThresholdMultiplier,
			MinLength:           d.MinLength,
		},
		Metadata: MetadataConfig{
			Subject:      "Subject",
			Experimenter: "Experimenter",
		},
		Output: OutputConfig{
			Compression: "snappy",
		},
		Log: LogConfig{
			Level: "debug",
			File:  "jadepulse-debug.log",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty) and the process environment. The result is validated.
func Load(ctx context.Context, path string) (*Config, error) {
	return LoadWith(ctx, path, envconfig.OsLookuper())
}

// LoadWith is Load with a custom environment source
func LoadWith(ctx context.Context, path string, env envconfig.Lookuper) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: env,
	}); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFile overlays the YAML file onto cfg. Keys missing from the file keep
// their current values.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from the user
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field constraint. Failures wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, ", "))
}

// DetectionParams converts to the processor's parameters. mainsHz is the
// resolved hum frequency (see mains.Resolve).
func (c *Config) DetectionParams(mainsHz int) processor.DetectionConfig {
	return processor.DetectionConfig{
		ThresholdMultiplier: c.Detection.ThresholdMultiplier,
		MinLength:           c.Detection.MinLength,
		MainsHz:             mainsHz,
	}
}

// UploadEnabled reports whether a publish target is configured
func (c *Config) UploadEnabled() bool {
	return c.Upload.Dir != "" || c.Upload.Bucket != ""
}

// S3 returns the S3 settings for storage.NewS3Publisher
func (c *Config) S3() storage.S3Config {
	return storage.S3Config{
		Bucket:          c.Upload.Bucket,
		Region:          c.Upload.Region,
		Endpoint:        c.Upload.Endpoint,
		AccessKeyID:     c.Upload.AccessKeyID,
		SecretAccessKey: c.Upload.SecretAccessKey,
	}
}

// Publisher builds the configured publish target. It returns
// storage.ErrNotConfigured when uploads are off.
func (c *Config) Publisher(ctx context.Context) (storage.Publisher, error) {
	switch {
	case c.Upload.Dir != "":
		return storage.NewLocalPublisher(c.Upload.Dir)
	case c.Upload.Bucket != "":
		return storage.NewS3Publisher(ctx, c.S3())
	default:
		return nil, storage.ErrNotConfigured
	}
}

// ZapLevel parses Log.Level
func (c *Config) ZapLevel() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return zapcore.DebugLevel
	}
	return lvl
}

// String returns a summary with secrets masked
func (c *Config) String() string {
	secret := ""
	if c.Upload.SecretAccessKey != "" {
		secret = "****"
	}
	return fmt.Sprintf(
		"Config{Threshold: %.2f, MinLength: %.3f, MainsHz: %d, Subject: %q, Experimenter: %q, OutputDir: %q, Waveform: %t, Parquet: %q, UploadDir: %q, Bucket: %q, Region: %q, Secret: %q, LogLevel: %s}",
		c.Detection.ThresholdMultiplier,
		c.Detection.MinLength,
		c.Detection.MainsHz,
		c.Metadata.Subject,
		c.Metadata.Experimenter,
		c.Output.Dir,
		c.Output.Waveform,
		c.Output.Parquet,
		c.Upload.Dir,
		c.Upload.Bucket,
		c.Upload.Region,
		secret,
		c.Log.Level,
	)
}
