package titlegen

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/starford/retitle/internal/apperr"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr error
	}{
		{"Smith&Dong-2023-NeuralNets", "Smith&Dong-2023-NeuralNets", nil},
		{"  Court-Ruling-Case-456-2023 \n", "Court-Ruling-Case-456-2023", nil},
		{"Insufficient-Content", "", apperr.ErrInsufficientContent},
		{"\tInsufficient-Content\n", "", apperr.ErrInsufficientContent},
		{"Insufficient-Content please", "Insufficient-Content please", nil},
		{"", "", apperr.ErrService},
		{" \n ", "", apperr.ErrService},
	}
	for _, tc := range cases {
		got, err := normalize(tc.in)
		if tc.wantErr != nil {
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("normalize(%q) err = %v, want %v", tc.in, err, tc.wantErr)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("normalize(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("page one")
	if !strings.HasPrefix(p, Prompt) || !strings.HasSuffix(p, "\npage one") {
		t.Errorf("unexpected prompt layout: %q", p)
	}
	if !strings.Contains(Prompt, "'"+Sentinel+"'") {
		t.Error("prompt does not name the sentinel reply")
	}
	if BuildPrompt("page one") != p {
		t.Error("prompt is not deterministic")
	}
}

func TestRetryPolicy_SingleAttempt(t *testing.T) {
	calls := 0
	_, err := withRetry(t.Context(), RetryPolicy{MaxAttempts: 1}, quietLogger(), func(ctx context.Context) (string, error) {
		calls++
		return "", apperr.ErrTransport
	})
	if !errors.Is(err, apperr.ErrTransport) {
		t.Fatalf("err = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryPolicy_Schedule(t *testing.T) {
	cases := []struct {
		name   string
		policy RetryPolicy
		want   []time.Duration
	}{
		{"default", DefaultRetryPolicy(), []time.Duration{4 * time.Second, 8 * time.Second}},
		{
			"capped",
			RetryPolicy{MaxAttempts: 5, InitialBackoff: 4 * time.Second, MaxBackoff: 10 * time.Second},
			[]time.Duration{4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second},
		},
		{"single attempt", RetryPolicy{MaxAttempts: 1, InitialBackoff: time.Second, MaxBackoff: time.Second}, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := tc.policy.backOff(t.Context())
			for i, want := range tc.want {
				if got := b.NextBackOff(); got != want {
					t.Errorf("wait %d = %v, want %v", i+1, got, want)
				}
			}
			if got := b.NextBackOff(); got != backoff.Stop {
				t.Errorf("after %d waits got %v, want Stop", len(tc.want), got)
			}
		})
	}
}
