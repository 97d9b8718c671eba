package internal

import (
	"io"

	"github.com/starford/retitle/internal/models"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	target    string
	logOutput io.Writer
	report    func(models.Outcome)
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithTarget sets the directory or PDF to process.
func WithTarget(path string) Option {
	return func(a *application) {
		a.target = path
	}
}

// WithLogOutput redirects logs. The default is stderr.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithReporter receives every document outcome as soon as the document
// finishes, in batch and watch mode. Calls are never concurrent.
func WithReporter(fn func(models.Outcome)) Option {
	return func(a *application) {
		a.report = fn
	}
}
