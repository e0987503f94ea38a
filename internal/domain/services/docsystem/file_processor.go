package docsystem

import (
	"context"
	"io"
)

// FileProcessor defines the strategy interface for processing uploaded files.
// Different implementations handle different file types (zip, individual files, etc.)
type FileProcessor interface {
	// CanProcess returns true if this processor can handle the given filename
	CanProcess(filename string) bool

	// Process handles file upload and returns import results.
	// If overwrite is true, a file matching an existing document path replaces it;
	// if false, the existing document is left untouched and the file is skipped.
	Process(
		ctx context.Context,
		projectID string,
		userID string,
		file io.Reader,
		filename string,
		folderPath string,
		overwrite bool,
	) (*ImportResult, error)

	// Name returns the processor name for logging
	Name() string
}
