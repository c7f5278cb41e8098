package source

import (
	"errors"
	"fmt"

	"github.com/poiesic/remessa/core"
)

var (
	// ErrMalformedRow is returned when a row cannot be parsed or does not
	// match the header's column count.
	ErrMalformedRow = fmt.Errorf("%w: malformed row", core.ErrValidation)

	// ErrMissingHeader is returned when a non-empty file has a blank header.
	ErrMissingHeader = fmt.Errorf("%w: missing header", core.ErrValidation)

	// ErrReaderClosed is returned by Read after Close.
	ErrReaderClosed = errors.New("reader closed")
)
