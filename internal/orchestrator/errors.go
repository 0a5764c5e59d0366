package orchestrator

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nerrad567/gray-logic-edge/internal/connection"
)

// Sentinels that client implementations wrap so the orchestrator can
// classify upstream failures without knowing the upstream's error types.
var (
	// ErrTransient marks an eventual-consistency failure worth retrying,
	// such as a credential binding not yet visible to policy evaluation.
	ErrTransient = errors.New("orchestrator: transient upstream failure")

	// ErrResourceNotFound marks an upstream resource that does not exist.
	ErrResourceNotFound = errors.New("orchestrator: upstream resource not found")
)

// Kind classifies an orchestrator failure.
type Kind string

// Error kinds.
const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindNotFound   Kind = "not_found"
	KindPolicy     Kind = "policy"
	KindTransient  Kind = "transient"
	KindInternal   Kind = "internal"
)

// Status returns the HTTP status suggested for the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindPolicy:
		return http.StatusUnprocessableEntity
	case KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// internalMessage replaces Internal error messages at the outer boundary.
const internalMessage = "An internal error occurred. Check the service logs for details."

// Error is a classified orchestrator failure.
type Error struct {
	Kind     Kind
	Message  string
	Op       string
	Resource string
	Err      error

	// public keeps Message visible for an Internal error.
	public bool
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil && e.Err.Error() != e.Message {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Status returns the suggested HTTP status.
func (e *Error) Status() int { return e.Kind.Status() }

// PublicMessage returns the message safe to show a caller. Internal errors
// are replaced with a generic message unless marked public.
func (e *Error) PublicMessage() string {
	if e.Kind == KindInternal && !e.public {
		return internalMessage
	}
	return e.Message
}

func newError(kind Kind, op, resource, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Resource: resource, Message: msg, Err: err}
}

// ValidationError reports malformed input.
func ValidationError(op, msg string, err error) *Error {
	return newError(KindValidation, op, "", msg, err)
}

// ConflictError reports a duplicate resource.
func ConflictError(op, resource, msg string) *Error {
	return newError(KindConflict, op, resource, msg, nil)
}

// NotFoundError reports a missing resource.
func NotFoundError(op, resource, msg string) *Error {
	return newError(KindNotFound, op, resource, msg, nil)
}

// PolicyError reports a request refused by a business rule.
func PolicyError(op, resource, msg string) *Error {
	return newError(KindPolicy, op, resource, msg, nil)
}

// InternalError reports an unexpected downstream failure. Its message is
// hidden from callers.
func InternalError(op, resource string, err error) *Error {
	return newError(KindInternal, op, resource, "unexpected failure", err)
}

// ControlError wraps a downstream failure of a connection command with the
// connection name and action. The original error text stays the public
// message.
func ControlError(connectionName string, action connection.Control, err error) *Error {
	var oe *Error
	if errors.As(err, &oe) {
		return oe
	}
	e := newError(KindInternal, fmt.Sprintf("%s connection %s", action, connectionName), connectionName, err.Error(), err)
	if errors.Is(err, ErrTransient) {
		e.Kind = KindTransient
	}
	e.public = true
	return e
}

// classify wraps err as an *Error unless it already is one. Transient and
// not-found upstream failures keep their meaning; anything else is Internal.
func classify(op, resource string, err error) *Error {
	var oe *Error
	if errors.As(err, &oe) {
		return oe
	}
	switch {
	case errors.Is(err, ErrTransient):
		return newError(KindTransient, op, resource, "upstream service not ready, try again later", err)
	case errors.Is(err, ErrResourceNotFound):
		return newError(KindNotFound, op, resource, fmt.Sprintf("%s not found", resource), err)
	default:
		return InternalError(op, resource, err)
	}
}

// AsError returns err as an *Error, classifying it if necessary.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	return classify("", "", err)
}
