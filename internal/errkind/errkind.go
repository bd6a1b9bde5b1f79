// Package errkind defines the stable, provider-independent failure taxonomy
// returned by the gateway. Callers branch on Kind, never on provider status
// codes or error strings.
package errkind

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind is a stable error classification. The string values are part of the
// wire contract (HTTP and gRPC responses) and must not change.
type Kind string

const (
	MissingField      Kind = "MissingField"
	UnknownEventKind  Kind = "UnknownEventKind"
	InvalidConfig     Kind = "InvalidConfig"
	Unauthorized      Kind = "Unauthorized"
	RateLimited       Kind = "RateLimited"
	ServerError       Kind = "ServerError"
	BadRequest        Kind = "BadRequest"
	MalformedResponse Kind = "MalformedResponse"
	NetworkError      Kind = "NetworkError"
	Cancelled         Kind = "Cancelled"
)

// ProviderFailure reports whether k describes a failure of the upstream
// provider (as opposed to bad input, bad configuration, or the caller
// giving up). Only provider failures are worth retrying elsewhere.
func (k Kind) ProviderFailure() bool {
	switch k {
	case Unauthorized, RateLimited, ServerError, BadRequest, MalformedResponse, NetworkError:
		return true
	}
	return false
}

// Error is the typed error carried through the pipeline until the gateway
// turns it into a Result.
type Error struct {
	Kind Kind

	// Field names the missing event field for MissingField.
	Field string

	// Status is the last HTTP status observed, 0 if none.
	Status int

	// Detail is a short diagnostic suitable for logs.
	Detail string

	Err error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Field != "" {
		msg += "(" + e.Field + ")"
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" status=%d", e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind carried by err. Context errors that were never
// classified map to Cancelled; anything else unclassified maps to
// NetworkError. A nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Cancelled
	}
	return NetworkError
}

// ─── CONSTRUCTORS ────────────────────────────────────────────────────────────

func NewMissingField(field string) *Error {
	return &Error{Kind: MissingField, Field: field, Detail: "required field " + field + " is missing"}
}

func NewUnknownEventKind(name string) *Error {
	return &Error{Kind: UnknownEventKind, Detail: fmt.Sprintf("unsupported event %q", name)}
}

func NewInvalidConfig(detail string) *Error {
	return &Error{Kind: InvalidConfig, Detail: detail}
}

func NewMalformed(detail string) *Error {
	return &Error{Kind: MalformedResponse, Detail: detail}
}

func NewNetwork(err error) *Error {
	return &Error{Kind: NetworkError, Err: err}
}

func NewCancelled(err error) *Error {
	return &Error{Kind: Cancelled, Err: err}
}

// FromStatus classifies a non-2xx HTTP status. The table is identical for
// every provider.
func FromStatus(status int, detail string) *Error {
	return &Error{Kind: KindForStatus(status), Status: status, Detail: detail}
}

// KindForStatus maps an HTTP status code to a Kind:
//
//	401, 403 → Unauthorized
//	429      → RateLimited
//	other 4xx → BadRequest
//	anything else non-2xx → ServerError
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return Unauthorized
	case status == http.StatusTooManyRequests:
		return RateLimited
	case status >= 400 && status < 500:
		return BadRequest
	default:
		return ServerError
	}
}
