package repository

import "errors"

// Sentinel kinds for session store errors.
var (
	ErrNotFound        = errors.New("session not found")
	ErrUnsupportedType = errors.New("unsupported session store type")
	ErrCorruptEntry    = errors.New("corrupt session entry")
)
