package graph

import (
	"errors"
	"fmt"
	coreerrors "untangle/internal/core/errors"
)

var (
	ErrDuplicateNode = errors.New("duplicate module node")
	ErrDanglingEdge  = errors.New("dangling dependency edge")
)

type DuplicateNodeError struct {
	Name     string
	Existing Node
}

func (e *DuplicateNodeError) Error() string {
	return fmt.Sprintf("%v: %q collides with %q (%s)", ErrDuplicateNode, e.Name, e.Existing.Name, e.Existing.Path)
}

func (e *DuplicateNodeError) Unwrap() error {
	return ErrDuplicateNode
}

func (e *DuplicateNodeError) ErrorCode() coreerrors.ErrorCode { return coreerrors.CodeDuplicateNode }

type DanglingEdgeError struct {
	Source  string
	Target  string
	Missing string
}

func (e *DanglingEdgeError) Error() string {
	return fmt.Sprintf("%v: %s -> %s references unknown module %q", ErrDanglingEdge, e.Source, e.Target, e.Missing)
}

func (e *DanglingEdgeError) Unwrap() error {
	return ErrDanglingEdge
}

func (e *DanglingEdgeError) ErrorCode() coreerrors.ErrorCode { return coreerrors.CodeDanglingEdge }
