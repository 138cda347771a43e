// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "errors"

// Sentinel errors shared by the synchronizers, the stores and the HTTP layer.
var (
	ErrArticleNotFound = errors.New("article not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("not signed in")
	ErrEmailTaken      = errors.New("email already registered")

	// ErrNoEffect is returned when a filtered update or delete matched no
	// rows. The caller cannot tell a missing row from one it does not own.
	ErrNoEffect = errors.New("no rows affected")

	// ErrCacheCorrupt marks a local cache value that failed to parse. It is
	// absorbed by the cache layer and only ever logged.
	ErrCacheCorrupt = errors.New("local cache value corrupt")

	// ErrNotFound is the remote store's select-one miss.
	ErrNotFound = errors.New("row not found")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Invalid builds a ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// TransportError wraps a failure talking to the remote store or the local
// cache backend.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// Transport wraps err as a TransportError. A nil err stays nil.
func Transport(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Op: op, Err: err}
}
