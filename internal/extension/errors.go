package extension

import "errors"

var (
	// ErrInvalidDescriptor indicates a descriptor missing required fields.
	ErrInvalidDescriptor = errors.New("invalid extension descriptor")

	// ErrUnknownExtension indicates an id the registry has never seen.
	ErrUnknownExtension = errors.New("unknown extension id")

	// ErrNoDownload indicates a descriptor without download info.
	ErrNoDownload = errors.New("descriptor has no download info")

	// ErrChecksumMismatch indicates a downloaded package failed verification.
	ErrChecksumMismatch = errors.New("package checksum mismatch")

	// ErrNotInstalled indicates the extension has no installed directory.
	ErrNotInstalled = errors.New("extension not installed")
)
