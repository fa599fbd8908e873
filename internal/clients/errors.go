package clients

import "errors"

// ErrRejected marks a request the provider refused for good, retrying it will not help.
var ErrRejected = errors.New("request rejected by provider")

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("empty response from provider")
