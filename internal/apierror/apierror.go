package apierror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
)

// Kind classifies a failure so callers can branch on it without parsing messages.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindPermissionDenied
	KindRateLimited
	KindConflict
	KindInvalidQuery
	KindPartialBatchFailure
	KindUnsupportedCriterion
	KindUnauthenticated
	KindTransient
	KindPermanent
)

var kindNames = map[Kind]string{
	KindUnknown:              "unknown",
	KindNotFound:             "not_found",
	KindPermissionDenied:     "permission_denied",
	KindRateLimited:          "rate_limited",
	KindConflict:             "conflict",
	KindInvalidQuery:         "invalid_query",
	KindPartialBatchFailure:  "partial_batch_failure",
	KindUnsupportedCriterion: "unsupported_criterion",
	KindUnauthenticated:      "unauthenticated",
	KindTransient:            "transient",
	KindPermanent:            "permanent",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinels for errors.Is. Any *Error of the same kind matches.
var (
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrPermissionDenied     = &Error{Kind: KindPermissionDenied}
	ErrRateLimited          = &Error{Kind: KindRateLimited}
	ErrConflict             = &Error{Kind: KindConflict}
	ErrInvalidQuery         = &Error{Kind: KindInvalidQuery}
	ErrPartialBatchFailure  = &Error{Kind: KindPartialBatchFailure}
	ErrUnsupportedCriterion = &Error{Kind: KindUnsupportedCriterion}
	ErrUnauthenticated      = &Error{Kind: KindUnauthenticated}
	ErrTransient            = &Error{Kind: KindTransient}
)

// Error is a classified failure of a single operation.
type Error struct {
	Kind    Kind
	Service string
	Op      string
	ID      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Service != "" {
		b.WriteString(e.Service)
		if e.Op != "" {
			b.WriteString(".")
		}
	}
	b.WriteString(e.Op)
	if e.ID != "" {
		fmt.Fprintf(&b, " %q", e.ID)
	}
	if b.Len() > 0 {
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var be *BatchError
	if errors.As(err, &be) {
		return KindPartialBatchFailure
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether err is worth retrying with backoff.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindRateLimited, KindTransient:
		return true
	}
	return false
}

// Invalid returns an InvalidQuery error raised before any request is dispatched.
func Invalid(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidQuery, Message: fmt.Sprintf(format, args...)}
}

// Unsupported returns an UnsupportedCriterion error for a field the service cannot compile.
func Unsupported(service, field string) *Error {
	return &Error{
		Kind:    KindUnsupportedCriterion,
		Service: service,
		Op:      "compile",
		Message: fmt.Sprintf("criterion %q is not supported by %s", field, service),
	}
}

// NotFound returns a NotFound error for id.
func NotFound(service, op, id string) *Error {
	return &Error{Kind: KindNotFound, Service: service, Op: op, ID: id}
}

// FromStatus maps an HTTP status code to a Kind.
func FromStatus(code int) Kind {
	switch {
	case code == http.StatusBadRequest, code == http.StatusRequestEntityTooLarge:
		return KindInvalidQuery
	case code == http.StatusUnauthorized:
		return KindUnauthenticated
	case code == http.StatusForbidden:
		return KindPermissionDenied
	case code == http.StatusNotFound, code == http.StatusGone:
		return KindNotFound
	case code == http.StatusConflict, code == http.StatusPreconditionFailed:
		return KindConflict
	case code == http.StatusTooManyRequests:
		return KindRateLimited
	case code >= 500:
		return KindTransient
	}
	return KindPermanent
}

var rateLimitReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"quotaExceeded":         true,
	"dailyLimitExceeded":    true,
}

// Classify wraps err as an *Error with the given context. Context cancellation
// and already classified errors are returned unchanged.
func Classify(service, op, id string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}
	var be *BatchError
	if errors.As(err, &be) {
		return err
	}

	out := &Error{Kind: KindTransient, Service: service, Op: op, ID: id, Err: err}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		out.Kind = FromStatus(gerr.Code)
		out.Message = gerr.Message
		if gerr.Code == http.StatusForbidden {
			for _, item := range gerr.Errors {
				if rateLimitReasons[item.Reason] {
					out.Kind = KindRateLimited
					break
				}
			}
		}
	}
	return out
}
