package domain

import "errors"

var (
	// ErrMalformedPayload marks an upstream response missing a required field.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrSessionNotFound is returned by session stores for unknown sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrVersionConflict is returned when a session was written concurrently.
	ErrVersionConflict = errors.New("session version conflict")
)
