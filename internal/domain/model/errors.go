package model

import (
	"errors"
	"fmt"
)

var (
	ErrConnection      = errors.New("backend connection error")
	ErrTimeout         = errors.New("backend timeout")
	ErrRequestFailed   = errors.New("backend request failed")
	ErrInvalidResponse = errors.New("invalid backend response")

	ErrCannotConnect = errors.New("cannot connect")
	ErrAuthRejected  = errors.New("registration rejected")

	ErrNotConfigured  = errors.New("backend is not configured")
	ErrDeviceNotFound = errors.New("device not found")
	ErrNotHub         = errors.New("device is not a hub")
	ErrInvalidMode    = errors.New("invalid alarm mode")
)

// RequestFailedError is returned for any non-2xx backend response.
type RequestFailedError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("%s %s: backend returned %d", e.Method, e.Path, e.StatusCode)
}

func (e *RequestFailedError) Is(target error) bool {
	return target == ErrRequestFailed
}
