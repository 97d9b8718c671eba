// Package models defines the domain types for retitle.
package models

import "strings"

// SourceDocument is a PDF selected for renaming. Size and Pages are only
// used for diagnostics; Pages is zero when it could not be determined.
type SourceDocument struct {
	Path  string `json:"path"`
	Size  int64  `json:"size"`
	Pages int    `json:"pages,omitempty"`
}

// Provenance records which stage produced an ExtractedText.
type Provenance string

const (
	ProvenanceStructural Provenance = "structural"
	ProvenanceOCR        Provenance = "ocr"
	ProvenanceNone       Provenance = "none"
)

// ExtractedText is the page-1 text of a document. Empty text is a valid
// result. Issue explains an empty result (tool missing, timeout, OCR
// failure) and is informational only.
type ExtractedText struct {
	Text       string
	Provenance Provenance
	Issue      error
}

// Empty reports whether no usable text was acquired.
func (t ExtractedText) Empty() bool {
	return strings.TrimSpace(t.Text) == ""
}

// OutcomeKind tags a per-document result.
type OutcomeKind string

const (
	KindRenamed        OutcomeKind = "renamed"
	KindPlanned        OutcomeKind = "planned"
	KindSkippedExists  OutcomeKind = "skipped_exists"
	KindSkippedNoTitle OutcomeKind = "skipped_no_title"
	KindSkippedNoText  OutcomeKind = "skipped_no_text"
	KindFailed         OutcomeKind = "failed"
)

// Outcome is the result of running the pipeline on one document.
//
// Path holds the new path for renamed/planned, and the conflicting path
// for skipped_exists. Reason is set for skips and failures; Err keeps the
// underlying error when there is one.
type Outcome struct {
	Document   SourceDocument `json:"document"`
	Kind       OutcomeKind    `json:"kind"`
	Path       string         `json:"path,omitempty"`
	Title      string         `json:"title,omitempty"`
	Provenance Provenance     `json:"provenance,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	Err        error          `json:"-"`
}

// Skipped reports whether the outcome is one of the skipped_* kinds.
func (o Outcome) Skipped() bool {
	switch o.Kind {
	case KindSkippedExists, KindSkippedNoTitle, KindSkippedNoText:
		return true
	}
	return false
}

// Summary counts outcomes by category.
type Summary struct {
	Renamed int `json:"renamed"`
	Planned int `json:"planned"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Summarize tallies outcomes.
func Summarize(outcomes []Outcome) Summary {
	var s Summary
	for _, o := range outcomes {
		switch {
		case o.Kind == KindRenamed:
			s.Renamed++
		case o.Kind == KindPlanned:
			s.Planned++
		case o.Skipped():
			s.Skipped++
		default:
			s.Failed++
		}
	}
	return s
}
