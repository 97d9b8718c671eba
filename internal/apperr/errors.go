// Package apperr holds the sentinel errors shared by the pipeline stages.
package apperr

import "errors"

// Extraction.
var (
	ErrExtractionUnavailable = errors.New("extraction tool unavailable")
	ErrExtractionTimeout     = errors.New("extraction timed out")
)

// Title generation. All of these mean "no title" to the pipeline.
var (
	ErrTransport           = errors.New("transport error")
	ErrService             = errors.New("service error")
	ErrInsufficientContent = errors.New("insufficient content")
)

// Rename.
var (
	ErrNameConflict = errors.New("destination already exists")
	ErrIO           = errors.New("io failure")
)

var ErrMissingCredentials = errors.New("missing credentials")
