package fhevm

import (
	"errors"
	"fmt"
)

// Kind classifies bootstrap failures.
type Kind string

const (
	KindEnvironment    Kind = "environment"
	KindSDKLoad        Kind = "sdk-load"
	KindSDKShape       Kind = "sdk-shape"
	KindSDKInit        Kind = "sdk-init"
	KindConfiguration  Kind = "configuration"
	KindInstanceCreate Kind = "instance-create"
	KindAbort          Kind = "abort"
	KindCache          Kind = "cache"
)

var (
	// ErrAborted matches every error of kind KindAbort.
	ErrAborted = errors.New("fhevm: bootstrap aborted")
	// ErrSuperseded is the cancellation cause of an attempt replaced by a
	// newer Bootstrap call.
	ErrSuperseded = errors.New("fhevm: superseded by a newer bootstrap")
)

// Error is returned by every failing bootstrap. Op names the step that
// failed and Err carries the cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err == nil {
		return fmt.Sprintf("fhevm: %s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("fhevm: %s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is makes errors.Is(err, ErrAborted) true for aborts.
func (e *Error) Is(target error) bool {
	return e != nil && target == ErrAborted && e.Kind == KindAbort
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
