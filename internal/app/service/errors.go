package service

import (
	"errors"
	"fmt"
)

// Kind classifies service failures. The HTTP layer maps each kind to a status.
type Kind int

const (
	KindInternal Kind = iota
	KindLinkNotFound
	KindLinkIDNotUnique
	KindLinkIDNotValid
	KindMalformedURL
	KindURLWithoutHost
	KindURLWithMatchingHosts
)

func (k Kind) String() string {
	switch k {
	case KindLinkNotFound:
		return "LinkNotFound"
	case KindLinkIDNotUnique:
		return "LinkIdNotUnique"
	case KindLinkIDNotValid:
		return "LinkIdNotValid"
	case KindMalformedURL:
		return "MalformedURL"
	case KindURLWithoutHost:
		return "URLWithoutHost"
	case KindURLWithMatchingHosts:
		return "URLWithMatchingHosts"
	default:
		return "Internal"
	}
}

// InternalMessage is the only text clients ever see for internal failures.
const InternalMessage = "Something went wrong"

// Error is returned by every LinkService operation.
type Error struct {
	Kind Kind
	// Subject is the offending id, URL, host or parse message.
	Subject string
	cause   error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindLinkNotFound:
		return fmt.Sprintf("A link with the provided ID '%s' could not be found", e.Subject)
	case KindLinkIDNotUnique:
		return fmt.Sprintf("The provided custom link ID is already in use: %s", e.Subject)
	case KindLinkIDNotValid:
		return fmt.Sprintf("The provided custom link ID is not valid: %s", e.Subject)
	case KindMalformedURL:
		return fmt.Sprintf("Malformed URL: %s", e.Subject)
	case KindURLWithoutHost:
		return fmt.Sprintf("Only URLs with valid hosts are accepted: %s", e.Subject)
	case KindURLWithMatchingHosts:
		return fmt.Sprintf("URLs with the same host as this service are forbidden: %s", e.Subject)
	default:
		return InternalMessage
	}
}

// Unwrap exposes the underlying cause, which for internal errors carries the
// detail that is logged but never sent to clients.
func (e *Error) Unwrap() error { return e.cause }

// Internal reports whether the error hides server-side detail.
func (e *Error) Internal() bool { return e.Kind == KindInternal }

func newError(kind Kind, subject string) *Error {
	return &Error{Kind: kind, Subject: subject}
}

func internalError(op string, cause error) *Error {
	return &Error{Kind: KindInternal, Subject: op, cause: cause}
}

// KindOf returns the Kind of err, or KindInternal when err is not a *Error.
func KindOf(err error) Kind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindInternal
}
