// Package titlegen asks a remote text-generation service for a document
// title under a fixed prompt contract.
//
// A Generator returns either a raw title candidate or an error. Every
// error means "no title" to the caller and wraps one of
// apperr.ErrInsufficientContent, apperr.ErrService or apperr.ErrTransport
// (or is a context error on cancellation). Only transport errors are
// retried.
package titlegen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/starford/retitle/internal/apperr"
)

// Generator produces a title candidate for page-1 text.
type Generator interface {
	Generate(ctx context.Context, text string) (string, error)
}

// RetryPolicy bounds retries of transport failures.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// RateLimited treats 429 / RESOURCE_EXHAUSTED as a transport error.
	RateLimited bool
}

// DefaultRetryPolicy allows 3 attempts with backoff from 4s capped at 10s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 4 * time.Second,
		MaxBackoff:     10 * time.Second,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	if p.MaxAttempts <= 1 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialBackoff
	eb.MaxInterval = p.MaxBackoff
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0
	eb.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.MaxAttempts-1)), ctx)
}

// withRetry runs op until it succeeds, fails with a non-transport error,
// or the policy is exhausted.
func withRetry(ctx context.Context, p RetryPolicy, log *slog.Logger, op func(ctx context.Context) (string, error)) (string, error) {
	var (
		out     string
		attempt int
	)
	err := backoff.RetryNotify(func() error {
		attempt++
		s, err := op(ctx)
		if err == nil {
			out = s
			return nil
		}
		if errors.Is(err, apperr.ErrTransport) && ctx.Err() == nil {
			return err
		}
		return backoff.Permanent(err)
	}, p.backOff(ctx), func(err error, wait time.Duration) {
		log.Warn("transport error, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", p.MaxAttempts),
			slog.Duration("backoff", wait),
			slog.String("error", err.Error()))
	})
	if err != nil {
		if errors.Is(err, apperr.ErrTransport) {
			return "", fmt.Errorf("after %d attempts: %w", attempt, err)
		}
		return "", err
	}
	return out, nil
}

// normalize trims the reply and maps the sentinel and empty replies to
// errors. Anything else is returned verbatim for sanitization.
func normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	switch s {
	case "":
		return "", fmt.Errorf("%w: empty reply", apperr.ErrService)
	case Sentinel:
		return "", apperr.ErrInsufficientContent
	}
	return s, nil
}

// logNoTitle records why a generator gave up.
func logNoTitle(log *slog.Logger, err error) {
	switch {
	case errors.Is(err, apperr.ErrInsufficientContent):
		log.Info("service reported insufficient content")
	case errors.Is(err, apperr.ErrTransport):
		log.Error("generation failed after retries", slog.String("error", err.Error()))
	case errors.Is(err, context.Canceled):
		log.Warn("generation cancelled")
	default:
		log.Error("generation service error", slog.String("error", err.Error()))
	}
}
