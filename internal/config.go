package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/retitle/internal/apperr"
	"github.com/starford/retitle/internal/extract"
	"github.com/starford/retitle/internal/titlegen"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Structural extractors.
const (
	StructuralPdftotext = "pdftotext"
	StructuralNative    = "native"
)

// Generator backends.
const (
	BackendGemini = "gemini"
	BackendVertex = "vertex"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Extract   ExtractConfig     `yaml:"extract"`
	Generator GeneratorConfig   `yaml:"generator"`
	Scan      ScanConfig        `yaml:"scan"`
	DryRun    bool              `yaml:"dry_run"`
}

// Validate validates the configuration. Credentials are checked
// separately by ValidateCredentials so that commands which never call
// the generator can run without them.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Extract.Validate(); err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	if err := c.Generator.Validate(); err != nil {
		return fmt.Errorf("generator: %w", err)
	}
	if err := c.Scan.Validate(); err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	return nil
}

// ValidateCredentials reports apperr.ErrMissingCredentials when the
// selected backend cannot authenticate.
func (c *Config) ValidateCredentials() error {
	switch c.Generator.Backend {
	case BackendVertex:
		if c.Generator.Vertex.Project == "" {
			return fmt.Errorf("%w: generator.vertex.project is empty", apperr.ErrMissingCredentials)
		}
	default:
		if c.Generator.APIKey == "" {
			return fmt.Errorf("%w: set --api-key, GOOGLE_API_KEY or generator.api_key", apperr.ErrMissingCredentials)
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.Required, validation.In(LogFormatJSON, LogFormatText)),
	)
}

// ExtractConfig configures text acquisition.
type ExtractConfig struct {
	Structural    string        `yaml:"structural"`
	PdftotextBin  string        `yaml:"pdftotext_bin"`
	OCRmyPDFBin   string        `yaml:"ocrmypdf_bin"`
	Languages     []string      `yaml:"languages"`
	OCRMode       string        `yaml:"ocr_mode"`
	MinTextLength int           `yaml:"min_text_length"`
	Timeout       time.Duration `yaml:"timeout"`
	OCRTimeout    time.Duration `yaml:"ocr_timeout"`
}

// Validate validates the extraction configuration.
func (c *ExtractConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Structural, validation.Required, validation.In(StructuralPdftotext, StructuralNative)),
		validation.Field(&c.PdftotextBin, validation.When(c.Structural == StructuralPdftotext, validation.Required)),
		validation.Field(&c.OCRmyPDFBin, validation.When(c.OCRMode != "", validation.Required)),
		validation.Field(&c.Languages, validation.Required, validation.Each(validation.Required, validation.Length(2, 16))),
		validation.Field(&c.OCRMode, validation.In(extract.ModeRedo, extract.ModeForce, extract.ModeSkip)),
		validation.Field(&c.MinTextLength, validation.Required, validation.Min(1)),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.OCRTimeout, validation.Required, validation.Min(time.Second)),
	)
}

// GeneratorConfig configures the title generation service.
type GeneratorConfig struct {
	Backend  string        `yaml:"backend"`
	Endpoint string        `yaml:"endpoint"`
	Model    string        `yaml:"model"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
	Retry    RetryConfig   `yaml:"retry"`
	Vertex   VertexConfig  `yaml:"vertex"`
}

// Validate validates the generator configuration.
func (c *GeneratorConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendGemini, BackendVertex)),
		validation.Field(&c.Endpoint, validation.When(c.Backend == BackendGemini, validation.Required)),
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
	); err != nil {
		return err
	}
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	if c.Backend == BackendVertex {
		if err := c.Vertex.Validate(); err != nil {
			return fmt.Errorf("vertex: %w", err)
		}
	}
	return nil
}

// RetryConfig bounds transport retries.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	RateLimited    bool          `yaml:"rate_limited"`
}

// Validate validates the retry configuration.
func (c *RetryConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.MaxAttempts, validation.Required, validation.Min(1), validation.Max(10)),
		validation.Field(&c.InitialBackoff, validation.Required),
		validation.Field(&c.MaxBackoff, validation.Required),
	); err != nil {
		return err
	}
	if c.MaxBackoff < c.InitialBackoff {
		return errors.New("max_backoff is shorter than initial_backoff")
	}
	return nil
}

// Policy converts the configuration to a titlegen.RetryPolicy.
func (c RetryConfig) Policy() titlegen.RetryPolicy {
	return titlegen.RetryPolicy{
		MaxAttempts:    c.MaxAttempts,
		InitialBackoff: c.InitialBackoff,
		MaxBackoff:     c.MaxBackoff,
		RateLimited:    c.RateLimited,
	}
}

// VertexConfig selects the Vertex AI project.
type VertexConfig struct {
	Project string `yaml:"project"`
	Region  string `yaml:"region"`
}

// Validate validates the Vertex AI configuration.
func (c *VertexConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Region, validation.Required),
	)
}

// ScanConfig controls which documents are processed and how.
type ScanConfig struct {
	Recursive   bool          `yaml:"recursive"`
	Concurrency int           `yaml:"concurrency"`
	Watch       bool          `yaml:"watch"`
	Debounce    time.Duration `yaml:"debounce"`
}

// Validate validates the scan configuration.
func (c *ScanConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Concurrency, validation.Required, validation.Min(1), validation.Max(64)),
		validation.Field(&c.Debounce, validation.When(c.Watch, validation.Required, validation.Min(10*time.Millisecond))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	retry := titlegen.DefaultRetryPolicy()
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatJSON,
		},
		Extract: ExtractConfig{
			Structural:    StructuralPdftotext,
			PdftotextBin:  "pdftotext",
			OCRmyPDFBin:   "ocrmypdf",
			Languages:     []string{"heb", "eng"},
			OCRMode:       extract.ModeRedo,
			MinTextLength: 50,
			Timeout:       30 * time.Second,
			OCRTimeout:    5 * time.Minute,
		},
		Generator: GeneratorConfig{
			Backend:  BackendGemini,
			Endpoint: titlegen.DefaultEndpoint,
			Model:    "gemini-1.5-flash",
			Timeout:  60 * time.Second,
			Retry: RetryConfig{
				MaxAttempts:    retry.MaxAttempts,
				InitialBackoff: retry.InitialBackoff,
				MaxBackoff:     retry.MaxBackoff,
			},
			Vertex: VertexConfig{
				Region: "us-central1",
			},
		},
		Scan: ScanConfig{
			Concurrency: 1,
			Debounce:    2 * time.Second,
		},
	}
}
