package titlegen

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/starford/retitle/internal/apperr"
)

// VertexOptions configures the Vertex AI backend. Credentials come from
// the environment (application default credentials).
type VertexOptions struct {
	Project string
	Region  string
	Model   string
	Timeout time.Duration
	Retry   RetryPolicy
}

// contentGenerator is satisfied by *genai.GenerativeModel.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Vertex generates titles through Vertex AI.
type Vertex struct {
	client  *genai.Client
	model   contentGenerator
	name    string
	timeout time.Duration
	retry   RetryPolicy
	logger  *slog.Logger
}

// NewVertex creates a Vertex AI generator. Close releases the client.
func NewVertex(ctx context.Context, opts VertexOptions, logger *slog.Logger) (*Vertex, error) {
	if opts.Project == "" || opts.Region == "" {
		return nil, fmt.Errorf("vertex: %w: project and region are required", apperr.ErrMissingCredentials)
	}
	client, err := genai.NewClient(ctx, opts.Project, opts.Region)
	if err != nil {
		return nil, fmt.Errorf("vertex: genai.NewClient: %w", err)
	}
	model := client.GenerativeModel(opts.Model)
	model.SetTemperature(0.2)

	v := newVertex(model, opts, logger)
	v.client = client
	return v, nil
}

func newVertex(model contentGenerator, opts VertexOptions, logger *slog.Logger) *Vertex {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = DefaultRetryPolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Vertex{model: model, name: opts.Model, timeout: opts.Timeout, retry: opts.Retry, logger: logger}
}

// Generate implements Generator.
func (v *Vertex) Generate(ctx context.Context, text string) (string, error) {
	log := v.logger.With(slog.String("stage", "generate"), slog.String("model", v.name), slog.String("backend", "vertex"))
	prompt := genai.Text(BuildPrompt(text))

	raw, err := withRetry(ctx, v.retry, log, func(ctx context.Context) (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, v.timeout)
		defer cancel()
		resp, err := v.model.GenerateContent(callCtx, prompt)
		if err != nil {
			return "", v.classify(ctx, err)
		}
		return responseText(resp)
	})
	if err == nil {
		raw, err = normalize(raw)
	}
	if err != nil {
		logNoTitle(log, err)
		return "", err
	}
	return raw, nil
}

// Close releases the underlying client.
func (v *Vertex) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}

func (v *Vertex) classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %v", apperr.ErrTransport, err)
	case codes.ResourceExhausted:
		if v.retry.RateLimited {
			return fmt.Errorf("%w: %v", apperr.ErrTransport, err)
		}
	}
	return fmt.Errorf("%w: %v", apperr.ErrService, err)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: response has no candidate content", apperr.ErrService)
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}
