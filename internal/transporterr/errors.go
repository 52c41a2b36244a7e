// Package transporterr classifies the errors a streaming request can fail
// with, generalizing the provider error taxonomy to the transport layer.
package transporterr

import (
	"errors"
	"fmt"
)

// Kind categorizes a per-request failure.
type Kind string

const (
	KindProtocol      Kind = "protocol"      // ErrorEvent, I/O error, non-2xx response
	KindParse         Kind = "parse"         // malformed event payload
	KindTokenization  Kind = "tokenization"  // count/encode/decode failure
	KindUsageRequired Kind = "usage_required" // use_server_token_count set, no usage reported
)

// Error is a classified per-request failure. It is never retried and never
// aborts peer requests; the pump folds it into a RunRecord as a string.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New wraps cause (may be nil) as a classified transport error.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Protocol builds a protocol-class error.
func Protocol(message string, cause error) *Error {
	return New(KindProtocol, message, cause)
}

// Parse builds a parse-class error.
func Parse(message string, cause error) *Error {
	return New(KindParse, message, cause)
}

// Tokenization builds a tokenization-class error.
func Tokenization(message string, cause error) *Error {
	return New(KindTokenization, message, cause)
}

// UsageRequired builds the "server did not return token usage" error.
func UsageRequired() *Error {
	return New(KindUsageRequired, "server did not return token usage", nil)
}

// KindOf extracts the Kind from err, if it (or a wrapped cause) is an *Error.
func KindOf(err error) (Kind, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return "", false
}
