package models

import "errors"

var (
	// ErrConfiguration means required settings are missing or invalid.
	ErrConfiguration = errors.New("configuration error")
	// ErrAuthentication means the provider rejected the credentials (HTTP 401).
	ErrAuthentication = errors.New("authentication failed")
	// ErrFetchExhausted means every fetch attempt failed transiently.
	ErrFetchExhausted   = errors.New("fetch attempts exhausted")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrPersistence      = errors.New("persistence error")
	ErrNotification     = errors.New("notification error")
)
