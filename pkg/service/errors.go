package service

import "errors"

// Kind classifies a service failure. Transport status codes are derived
// from the kind at the HTTP boundary only.
type Kind int

const (
	KindInvalidInput Kind = iota
	KindConflict
	KindNotFound
	KindGenerationExhausted
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindGenerationExhausted:
		return "generation_exhausted"
	case KindStore:
		return "store_error"
	default:
		return "unknown"
	}
}

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

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the kind of a service error. The second return is false
// for errors that did not originate in this package.
func KindOf(err error) (Kind, bool) {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind, true
	}
	return 0, false
}

func invalidInput(msg string) error {
	return &Error{Kind: KindInvalidInput, Message: msg}
}

func conflict(msg string) error {
	return &Error{Kind: KindConflict, Message: msg}
}

func notFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func generationExhausted(msg string) error {
	return &Error{Kind: KindGenerationExhausted, Message: msg}
}

func storeError(msg string, cause error) error {
	return &Error{Kind: KindStore, Message: msg, Err: cause}
}
