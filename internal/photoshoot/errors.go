package photoshoot

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidRequest marks a generation request rejected before any network call.
var ErrInvalidRequest = errors.New("invalid generation request")

// ConfigurationError reports a backend whose credential is not configured.
type ConfigurationError struct {
	Backend    Backend
	Credential string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing %s API key: please set the %s environment variable", e.Backend.DisplayName(), e.Credential)
}

// GenerationRefusedError is returned when the backend answered without an
// image. Text holds whatever the model said instead, for diagnostics only.
type GenerationRefusedError struct {
	Backend Backend
	Text    string
}

func (e *GenerationRefusedError) Error() string {
	return "no image was generated: the model may have refused the request due to safety policies or inability to process the images, please try different images"
}

// BackendError wraps transport, auth, quota and other backend failures.
type BackendError struct {
	Backend Backend
	Err     error
}

func (e *BackendError) Error() string {
	return "failed to generate image: an unexpected error occurred, please try again"
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

type ErrorKind string

const (
	KindInvalid       ErrorKind = "invalid"
	KindConfiguration ErrorKind = "configuration"
	KindRefused       ErrorKind = "refused"
	KindBackend       ErrorKind = "backend"
	KindCanceled      ErrorKind = "canceled"
	KindUnknown       ErrorKind = "unknown"
)

// KindOf classifies err for presentation by the front ends.
func KindOf(err error) ErrorKind {
	var (
		cfgErr     *ConfigurationError
		refusedErr *GenerationRefusedError
		backendErr *BackendError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &cfgErr):
		return KindConfiguration
	case errors.As(err, &refusedErr):
		return KindRefused
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalid
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.As(err, &backendErr):
		return KindBackend
	default:
		return KindUnknown
	}
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
