// pkg/auth/errors.go
package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"saleorauth/pkg/problems"
)

// Kind classifies a rejection at the middleware boundary.
type Kind int

const (
	// KindBadRequest: a required identifying input was never supplied
	// (e.g. no saleor-api-url header); no tenant claim was even made.
	KindBadRequest Kind = iota
	// KindUnauthorized: no credential record, missing/invalid/expired token.
	KindUnauthorized
	// KindForbidden: valid identity, insufficient permission.
	KindForbidden
	// KindInternalInconsistency: a context field the middleware chain should
	// have set is missing: an ordering bug, not a client error.
	KindInternalInconsistency
	// KindStorageWriteFailure: a persistence write or delete did not
	// complete. Never swallowed.
	KindStorageWriteFailure
)

// Error is a typed middleware rejection. Reason is a stable machine-readable
// slug (also exposed as a problem type URL); Hint tells the operator or user
// how to recover. Both are part of the response contract, not decoration.
type Error struct {
	Kind   Kind
	Reason string
	Hint   string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func BadRequest(reason, hint string) *Error {
	return &Error{Kind: KindBadRequest, Reason: reason, Hint: hint}
}

func Unauthorized(reason, hint string, err error) *Error {
	return &Error{Kind: KindUnauthorized, Reason: reason, Hint: hint, Err: err}
}

func Forbidden(reason, hint string, err error) *Error {
	return &Error{Kind: KindForbidden, Reason: reason, Hint: hint, Err: err}
}

func Inconsistency(reason, hint string) *Error {
	return &Error{Kind: KindInternalInconsistency, Reason: reason, Hint: hint}
}

func StorageWrite(err error) *Error {
	return &Error{
		Kind:   KindStorageWriteFailure,
		Reason: "storage-write-failed",
		Hint:   "Credential persistence failed; check the APL backend and retry.",
		Err:    err,
	}
}

type rejectionBody struct {
	Error     string `json:"error"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// WriteJSON renders a rejection. Unknown error values are rendered as a
// generic internal failure so callers can pass any error through.
func WriteJSON(w http.ResponseWriter, err error) {
	e, ok := err.(*Error)
	if !ok {
		e = &Error{Kind: KindInternalInconsistency, Reason: "internal-error", Hint: "Unexpected failure; see server logs.", Err: err}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.HTTPStatus())
	_ = json.NewEncoder(w).Encode(rejectionBody{
		Error:     e.Reason,
		Type:      problems.Type(e.Reason),
		Message:   e.Hint,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
