package sqlstore

import "errors"

var (
	// ErrUnsupportedDriver is returned when no dialect exists for a driver name.
	ErrUnsupportedDriver = errors.New("unsupported sql driver")

	// ErrInvalidIdentifier is returned when a configured table name is not a safe SQL identifier.
	ErrInvalidIdentifier = errors.New("invalid sql identifier")

	// ErrKeyTooLong is returned when a dedup identifier exceeds the dialect's key column.
	ErrKeyTooLong = errors.New("key exceeds column length")
)
