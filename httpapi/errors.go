package httpapi

import "errors"

var (
	// ErrIngesterRequired is returned when NewServer is given no ingester.
	ErrIngesterRequired = errors.New("ingester is required")

	// ErrNotCSV is returned when an upload does not carry CSV content.
	ErrNotCSV = errors.New("file must be a CSV")

	// ErrEmptyUpload is returned when an upload has no content.
	ErrEmptyUpload = errors.New("uploaded file is empty")

	// ErrFileNameRequired is returned when no file name can be derived for an upload.
	ErrFileNameRequired = errors.New("file name is required")
)
