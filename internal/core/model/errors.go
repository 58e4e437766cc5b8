package model

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	InputError      ErrorKind = "input"
	NumericalError  ErrorKind = "numerical"
	StructuralError ErrorKind = "structural"
	FilteringError  ErrorKind = "filtering"
	FatalError      ErrorKind = "fatal"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrEmptyInput    = errors.New("empty input")
	ErrNotConverged  = errors.New("power iteration did not converge")
	ErrSpanningTree  = errors.New("spanning tree construction failed")
	ErrFiltering     = errors.New("relevance filtering failed")
	ErrSelfLoop      = errors.New("self loop")
	ErrDuplicateEdge = errors.New("duplicate edge")
	ErrUnknownNode   = errors.New("unknown node")
	ErrDuplicateNode = errors.New("duplicate node")
)

// StageError carries enough context for a caller to log a failed stage and
// degrade to the best graph it still has.
type StageError struct {
	Stage string
	Kind  ErrorKind
	Nodes int
	Edges int
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed (%s error, %d nodes, %d edges): %v", e.Stage, e.Kind, e.Nodes, e.Edges, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// KindOf maps an error onto the taxonomy. Unknown errors are fatal.
func KindOf(err error) ErrorKind {
	var se *StageError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &se):
		return se.Kind
	case errors.Is(err, ErrEmptyInput), errors.Is(err, ErrInvalidInput):
		return InputError
	case errors.Is(err, ErrNotConverged):
		return NumericalError
	case errors.Is(err, ErrSpanningTree):
		return StructuralError
	case errors.Is(err, ErrFiltering):
		return FilteringError
	default:
		return FatalError
	}
}
