package core

import (
	"errors"
	"fmt"
)

// ErrConnection marks a failure to reach the platform at startup.
var ErrConnection = errors.New("platform connection failed")

var ErrEventStreamClosed = errors.New("event stream closed")

// PlatformError is a single failed platform operation.
type PlatformError struct {
	Op  string
	Err error
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PlatformError) Unwrap() error { return e.Err }

func Platform(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PlatformError{Op: op, Err: err}
}
