package lti

import (
	"errors"
	"fmt"
)

// Configuration and closure errors.
var (
	// ErrDimensionMismatch indicates matrices that disagree with each other
	// or with the declared port lists.
	ErrDimensionMismatch = errors.New("lti: dimension mismatch")

	// ErrUnresolvedPort indicates a reference to a block or port that does
	// not exist.
	ErrUnresolvedPort = errors.New("lti: unresolved port reference")

	// ErrDuplicateBlock indicates two blocks with the same name in one
	// interconnection.
	ErrDuplicateBlock = errors.New("lti: duplicate block name")

	// ErrDuplicatePort indicates a repeated or empty port name within a block.
	ErrDuplicatePort = errors.New("lti: duplicate port name")

	// ErrEmptyConnection indicates a connection without sources.
	ErrEmptyConnection = errors.New("lti: connection has no sources")

	// ErrAlgebraicLoop indicates an instantaneous feedback path whose
	// simultaneous equations have no unique, numerically reliable solution.
	ErrAlgebraicLoop = errors.New("lti: singular algebraic loop")

	// ErrNegativeTimeConstant indicates a lag or filter time constant below zero.
	ErrNegativeTimeConstant = errors.New("lti: negative time constant")

	// ErrInvalidName indicates a malformed block name or port reference.
	ErrInvalidName = errors.New("lti: invalid name")
)

// PortError reports a reference that could not be resolved.
type PortError struct {
	Ref Ref
	// Kind is "input" or "output".
	Kind string
	// Reason is optional detail, e.g. "no such block".
	Reason string
}

func (e *PortError) Error() string {
	msg := fmt.Sprintf("lti: unresolved %s port %q", e.Kind, e.Ref.Name())
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *PortError) Unwrap() error {
	return ErrUnresolvedPort
}
