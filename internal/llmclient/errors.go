package llmclient

import "errors"

var ErrEmptyResponse = errors.New("empty response from provider")

// PermanentError indicates a provider failure that will not resolve with a
// retried identical call (unsupported input, context length, bad request).
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}
