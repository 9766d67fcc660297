package sdk

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEnvironment signals that the loader has no environment to install
	// the SDK into.
	ErrEnvironment = errors.New("sdk: no execution environment")
	// ErrNotLoaded is returned when an operation needs an installed module.
	ErrNotLoaded = errors.New("sdk: module not loaded")
	// ErrInitFailed wraps initSDK failures, including a false result.
	ErrInitFailed = errors.New("sdk: initSDK failed")
	// ErrUnknownDriver is returned when a manifest names an unregistered driver.
	ErrUnknownDriver = errors.New("sdk: unknown driver")
	// ErrIntegrity is returned when a fetched manifest does not match the
	// pinned digest.
	ErrIntegrity = errors.New("sdk: integrity mismatch")
)

// Problem is one shape violation.
type Problem struct {
	Field    string
	Expected string
	Got      string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: expected %s, got %s", p.Field, p.Expected, p.Got)
}

// ShapeError lists every violation found while validating a manifest or a
// module, so a wrong CDN payload can be told apart from a network failure.
type ShapeError struct {
	Subject  string
	Problems []Problem
}

func (e *ShapeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.String())
	}
	return fmt.Sprintf("sdk: invalid %s shape: %s", e.Subject, strings.Join(parts, "; "))
}

// Field returns the problem recorded for field, if any.
func (e *ShapeError) Field(field string) (Problem, bool) {
	for _, p := range e.Problems {
		if p.Field == field {
			return p, true
		}
	}
	return Problem{}, false
}

// Attempt records one failed source.
type Attempt struct {
	Source string
	Err    error
}

// LoadError is returned once every source has been tried without producing
// a valid module.
type LoadError struct {
	Attempts []Attempt
}

func (e *LoadError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if len(e.Attempts) == 0 {
		return "sdk: unable to load SDK: no sources configured"
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Source, a.Err))
	}
	return fmt.Sprintf("sdk: unable to load SDK from any of %d sources (%s)", len(e.Attempts), strings.Join(parts, "; "))
}

// Unwrap exposes the per-source causes to errors.Is and errors.As.
func (e *LoadError) Unwrap() []error {
	if e == nil {
		return nil
	}
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// Sources lists the attempted sources in order.
func (e *LoadError) Sources() []string {
	if e == nil {
		return nil
	}
	out := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		out = append(out, a.Source)
	}
	return out
}
