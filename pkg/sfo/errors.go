package sfo

import (
	"fmt"

	"github.com/pkg/errors"
)

// Errors
var (
	ErrMalformed    = errors.New("malformed sfo")
	ErrNoEntry      = errors.New("no entry for key")
	ErrInvalidValue = errors.New("invalid value")
	ErrNotLoaded    = errors.New("no sfo loaded")
)

// EntryError reports a failed operation on a single entry
type EntryError struct {
	Key    string
	Reason string
	Err    error // ErrNoEntry or ErrInvalidValue
}

func (e *EntryError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%v: %s", e.Err, e.Key)
	}
	return fmt.Sprintf("[%s] %s", e.Key, e.Reason)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

func invalid(key, format string, args ...interface{}) error {
	return &EntryError{Key: key, Reason: fmt.Sprintf(format, args...), Err: ErrInvalidValue}
}
