package titlegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starford/retitle/internal/apperr"
)

// DefaultEndpoint is the public Generative Language API base URL.
const DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"

const maxResponseBody = 1 << 20

// GeminiOptions configures the REST backend.
type GeminiOptions struct {
	Endpoint string
	Model    string
	APIKey   string
	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration
	Retry   RetryPolicy
	// HTTPClient overrides the default client; Timeout is then ignored.
	HTTPClient *http.Client
}

// Gemini calls models/{model}:generateContent over HTTPS.
type Gemini struct {
	endpoint string
	model    string
	apiKey   string
	client   *http.Client
	retry    RetryPolicy
	logger   *slog.Logger
}

type generateRequest struct {
	Contents []requestContent `json:"contents"`
}

type requestContent struct {
	Parts []requestPart `json:"parts"`
}

type requestPart struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// NewGemini creates a REST generator. An empty API key is rejected with
// apperr.ErrMissingCredentials.
func NewGemini(opts GeminiOptions, logger *slog.Logger) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w: api key is empty", apperr.ErrMissingCredentials)
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("gemini: model is empty")
	}
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = DefaultRetryPolicy()
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gemini{
		endpoint: strings.TrimRight(opts.Endpoint, "/"),
		model:    strings.TrimPrefix(opts.Model, "models/"),
		apiKey:   opts.APIKey,
		client:   client,
		retry:    opts.Retry,
		logger:   logger,
	}, nil
}

// Model returns the model identifier requests are sent to.
func (g *Gemini) Model() string { return g.model }

// Generate implements Generator.
func (g *Gemini) Generate(ctx context.Context, text string) (string, error) {
	log := g.logger.With(slog.String("stage", "generate"), slog.String("model", g.model))

	payload, err := json.Marshal(generateRequest{
		Contents: []requestContent{{Parts: []requestPart{{Text: BuildPrompt(text)}}}},
	})
	if err != nil {
		return "", fmt.Errorf("gemini: encode request: %w", err)
	}

	raw, err := withRetry(ctx, g.retry, log, func(ctx context.Context) (string, error) {
		return g.call(ctx, payload)
	})
	if err == nil {
		raw, err = normalize(raw)
	}
	if err != nil {
		logNoTitle(log, err)
		return "", err
	}
	log.Debug("title candidate received", slog.String("title", raw))
	return raw, nil
}

func (g *Gemini) url() string {
	return g.endpoint + "/models/" + url.PathEscape(g.model) + ":generateContent"
}

// call performs one attempt. Network failures wrap apperr.ErrTransport;
// non-2xx statuses and malformed bodies wrap apperr.ErrService.
func (g *Gemini) call(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url(), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", apperr.ErrService, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %v", apperr.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: read body: %v", apperr.ErrTransport, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests && g.retry.RateLimited {
		return "", fmt.Errorf("%w: status %d", apperr.ErrTransport, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d: %s", apperr.ErrService, resp.StatusCode, snippet(body))
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", apperr.ErrService, err)
	}
	if len(out.Candidates) == 0 || out.Candidates[0].Content == nil ||
		len(out.Candidates[0].Content.Parts) == 0 || out.Candidates[0].Content.Parts[0].Text == nil {
		return "", fmt.Errorf("%w: response has no candidates[0].content.parts[0].text", apperr.ErrService)
	}
	return *out.Candidates[0].Content.Parts[0].Text, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 300 {
		s = s[:300] + "..."
	}
	return s
}
