// Copyright 2026 The Intellitrader Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package apperr classifies request failures so the HTTP layer can map them
// to a status code without inspecting messages.
package apperr

import (
	"errors"
	"net/http"
)

// Kind is the failure class.
type Kind int

const (
	KindInternal Kind = iota
	KindAuthentication
	KindAuthorization
	KindScope
	KindValidation
	KindConflict
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindScope:
		return "scope"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Status returns the HTTP status for the kind.
func (k Kind) Status() int {
	switch k {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindScope, KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure. Message is safe to show to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Authentication reports a missing or invalid session.
func Authentication(message string) *Error { return newError(KindAuthentication, message) }

// Authorization reports a valid session lacking the required role or tenant.
func Authorization(message string) *Error { return newError(KindAuthorization, message) }

// Scope reports a valid session with no resolvable tenant.
func Scope(message string) *Error { return newError(KindScope, message) }

// Validation reports a malformed or incomplete request.
func Validation(message string) *Error { return newError(KindValidation, message) }

// Conflict reports a uniqueness violation.
func Conflict(message string) *Error { return newError(KindConflict, message) }

// NotFound reports a referenced record that does not exist.
func NotFound(message string) *Error { return newError(KindNotFound, message) }

// Internal wraps an unexpected failure. The cause is never shown to clients.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: err}
}

// KindOf returns the kind of err, or KindInternal if err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Status returns the HTTP status for err.
func Status(err error) int {
	return KindOf(err).Status()
}

// Message returns the client-safe message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "internal server error"
}
