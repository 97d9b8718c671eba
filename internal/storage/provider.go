// Package storage defines the document file-system abstraction.
package storage

import "github.com/starford/retitle/internal/models"

// Provider is the interface for document file operations. Paths are
// relative to the provider root unless stated otherwise.
type Provider interface {
	// List returns every PDF under dir. Subdirectories are walked only
	// when recursive is set.
	List(dir string, recursive bool) ([]models.SourceDocument, error)
	// Inspect returns the document at the absolute path abs.
	Inspect(abs string) (models.SourceDocument, error)
	// Exists reports whether anything is present at the absolute path abs.
	Exists(abs string) (bool, error)
	// MoveNoClobber renames src to dst (both absolute) unless dst exists.
	MoveNoClobber(src, dst string) error
}
