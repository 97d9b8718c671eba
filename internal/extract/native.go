package extract

import (
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// Native extracts text in-process, for hosts without poppler-utils.
type Native struct{}

type nativeResult struct {
	text string
	err  error
}

// FirstPage implements TextExtractor. The parser cannot be interrupted,
// so on cancellation the result is abandoned rather than awaited.
func (Native) FirstPage(ctx context.Context, path string) (string, error) {
	done := make(chan nativeResult, 1)
	go func() {
		text, err := nativeFirstPage(path)
		done <- nativeResult{text: text, err: err}
	}()
	select {
	case r := <-done:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func nativeFirstPage(path string) (text string, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("native: parse %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("native: open %s: %w", path, err)
	}
	defer f.Close()

	if r.NumPage() < 1 {
		return "", nil
	}
	page := r.Page(1)
	if page.V.IsNull() {
		return "", nil
	}
	text, err = page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("native: page 1 of %s: %w", path, err)
	}
	return text, nil
}
