package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the projection pipeline. Callers classify with KindOf
// and wrap with fmt.Errorf("...: %w", err) to add context.
var (
	ErrBadInput         = errors.New("bad input")
	ErrNotFound         = errors.New("not found")
	ErrNotReady         = errors.New("not ready")
	ErrSchemaMismatch   = errors.New("schema mismatch")
	ErrNotEnoughHistory = errors.New("not enough history")
	ErrDataBackend      = errors.New("data backend failure")
	ErrInternal         = errors.New("internal error")
)

// ErrUnknownRuleset is a BadInput specialization raised by the scoring layer.
var ErrUnknownRuleset = fmt.Errorf("%w: unknown scoring ruleset", ErrBadInput)

// Kind is the error classification exposed to CLI and daemon boundaries.
type Kind string

const (
	KindBadInput         Kind = "BadInput"
	KindNotFound         Kind = "NotFound"
	KindNotReady         Kind = "NotReady"
	KindSchemaMismatch   Kind = "SchemaMismatch"
	KindNotEnoughHistory Kind = "NotEnoughHistory"
	KindDataBackend      Kind = "DataBackend"
	KindInternal         Kind = "InternalError"
)

// KindOf classifies an error chain into the taxonomy. Unrecognized errors
// map to InternalError.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrBadInput):
		return KindBadInput
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrNotReady):
		return KindNotReady
	case errors.Is(err, ErrSchemaMismatch):
		return KindSchemaMismatch
	case errors.Is(err, ErrNotEnoughHistory):
		return KindNotEnoughHistory
	case errors.Is(err, ErrDataBackend):
		return KindDataBackend
	default:
		return KindInternal
	}
}
