package core

import "errors"

var (
	// ErrUnsupportedFormat is returned when no handler can strip a file.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrCorruptFile is returned when a file does not parse as its format.
	ErrCorruptFile = errors.New("corrupt file")
	// ErrEncrypted is returned for documents that cannot be rewritten
	// without a password.
	ErrEncrypted = errors.New("encrypted document")
	// ErrOutputExists guards against two inputs mapping to one output.
	ErrOutputExists = errors.New("output already written in this batch")
)
