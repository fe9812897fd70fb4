package domain

import (
	"context"
	"errors"
	"net"
)

// Kind classifies an error for the UI and the API.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindBusy               Kind = "busy"
	KindTransport          Kind = "transport"
	KindRemote             Kind = "remote"
	KindUnsupportedNetwork Kind = "unsupported_network"
	KindNoAccount          Kind = "no_account"
	KindInsufficientFunds  Kind = "insufficient_funds"
	KindRejected           Kind = "rejected"
	KindReverted           Kind = "reverted"
	KindInternal           Kind = "internal"
)

// Error carries a Kind along with the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E wraps err with a kind and operation name.
func E(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

var (
	ErrBusy         = &Error{Kind: KindBusy, Err: errors.New("a submission is already in progress")}
	ErrInvalidDraft = &Error{Kind: KindValidation, Err: errors.New("Please provide a name and description")}
	ErrNotFailed    = &Error{Kind: KindBusy, Err: errors.New("nothing to retry")}
)

// KindOf returns the kind of the outermost *Error in err's chain.
// Unclassified network and deadline errors count as transport failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return KindTransport
	}
	return KindInternal
}
