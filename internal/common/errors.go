// Package common defines shared sentinel errors and small crypto/rand
// helpers used across client and server layers. Callers match these values
// with errors.Is.
package common

import "errors"

var (
	// repository-level errors
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// service-level errors
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")

	// token errors: bad signature, expiry and malformed structure all
	// collapse to this one value
	ErrInvalidToken = errors.New("invalid token")

	// transport errors
	ErrStreamClosed = errors.New("stream closed")
)
