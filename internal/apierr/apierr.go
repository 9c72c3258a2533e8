// Package apierr models backend failures as a tagged error type so
// calling code can branch on what went wrong instead of sniffing
// response strings at every call site.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a backend failure.
type Kind string

const (
	KindUnknown            Kind = "unknown"
	KindNetwork            Kind = "network"
	KindValidation         Kind = "validation"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindAccountInactive    Kind = "account_inactive"
	KindPhoneNotRegistered Kind = "phone_not_registered"
	KindAlreadyRegistered  Kind = "already_registered"
	KindUnauthorized       Kind = "unauthorized"
	KindInternal           Kind = "internal"
)

// Error is a classified backend or transport failure. Message is always
// suitable for direct display to the user.
type Error struct {
	Kind    Kind
	Message string
	Status  int   // HTTP status, 0 for transport failures
	cause   error // underlying error for transport failures
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is lets errors.Is match on kind: errors.Is(err, &Error{Kind: KindNetwork}).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// Network wraps a transport-level failure with a generic retry message.
func Network(err error) *Error {
	return &Error{
		Kind:    KindNetwork,
		Message: "Could not reach the server. Please try again.",
		cause:   err,
	}
}

// detailEnvelope is the backend error body: {"detail": string | [fieldError]}.
type detailEnvelope struct {
	Detail json.RawMessage `json:"detail"`
}

type fieldError struct {
	Loc []json.RawMessage `json:"loc"`
	Msg string            `json:"msg"`
}

// FromResponse classifies a non-2xx response. The detail payload is a
// plain string for business errors or an array of field errors for
// validation failures; arrays are flattened into one display string.
func FromResponse(status int, body []byte) *Error {
	message, isFieldErrors := parseDetail(body)
	if message == "" {
		message = fmt.Sprintf("Request failed (status %d)", status)
	}

	return &Error{
		Kind:    classify(status, message, isFieldErrors),
		Message: message,
		Status:  status,
	}
}

func classify(status int, message string, isFieldErrors bool) Kind {
	lower := strings.ToLower(message)

	switch {
	case status == http.StatusNotFound,
		strings.Contains(lower, "not registered"):
		return KindPhoneNotRegistered
	case status == http.StatusUnauthorized:
		return KindInvalidCredentials
	case isFieldErrors, status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusBadRequest && strings.Contains(lower, "inactive"):
		return KindAccountInactive
	case status == http.StatusBadRequest && strings.Contains(lower, "already registered"):
		return KindAlreadyRegistered
	case status == http.StatusForbidden:
		return KindUnauthorized
	case status >= 500:
		return KindInternal
	default:
		return KindUnknown
	}
}

// parseDetail extracts the display message from the detail envelope and
// reports whether it was an array of field errors.
func parseDetail(body []byte) (string, bool) {
	var env detailEnvelope
	if err := json.Unmarshal(body, &env); err != nil || len(env.Detail) == 0 {
		return "", false
	}

	var s string
	if err := json.Unmarshal(env.Detail, &s); err == nil {
		return s, false
	}

	var fields []fieldError
	if err := json.Unmarshal(env.Detail, &fields); err == nil && len(fields) > 0 {
		parts := make([]string, 0, len(fields))
		for _, f := range fields {
			if loc := lastLoc(f.Loc); loc != "" {
				parts = append(parts, fmt.Sprintf("%s: %s", loc, f.Msg))
			} else {
				parts = append(parts, f.Msg)
			}
		}
		return strings.Join(parts, "; "), true
	}

	return "", false
}

// lastLoc returns the final string element of a detail location path,
// which names the offending field.
func lastLoc(loc []json.RawMessage) string {
	for i := len(loc) - 1; i >= 0; i-- {
		var s string
		if err := json.Unmarshal(loc[i], &s); err == nil {
			return s
		}
	}
	return ""
}
