// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package destack

import (
	"fmt"

	"github.com/Scrembetsch/KPF-DoubleEndedStackAllocator/region"
)

// ErrorKind names one entry of the allocator's stable error taxonomy.
// Kinds are part of the public contract: callers and tests key off
// them, not off Error() message text.
type ErrorKind int

const (
	KindBadAlignment ErrorKind = iota
	KindBadSize
	KindOverlap
	KindOutOfMemory
	KindBadPointer
	KindLifoViolation
	KindCanaryCorruption
	KindConstructionFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindBadAlignment:
		return "BadAlignment"
	case KindBadSize:
		return "BadSize"
	case KindOverlap:
		return "Overlap"
	case KindOutOfMemory:
		return "OutOfMemory"
	case KindBadPointer:
		return "BadPointer"
	case KindLifoViolation:
		return "LifoViolation"
	case KindCanaryCorruption:
		return "CanaryCorruption"
	case KindConstructionFailed:
		return "ConstructionFailed"
	default:
		return "Unknown"
	}
}

// AllocError is the structured error value every rejected (or, for
// CanaryCorruption, reported-but-completed) operation returns: a typed,
// inspectable error carrying the operation name, the offending address,
// and an optional wrapped cause.
type AllocError struct {
	Op   string // "New", "Allocate", "AllocateBack", "Free", "FreeBack"
	Kind ErrorKind
	Addr region.Address
	Err  error // wrapped cause, e.g. a region commit failure
}

func (e *AllocError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("destack: %s: %s at %#x: %v", e.Op, e.Kind, uintptr(e.Addr), e.Err)
	}

	return fmt.Sprintf("destack: %s: %s at %#x", e.Op, e.Kind, uintptr(e.Addr))
}

func (e *AllocError) Unwrap() error { return e.Err }

// Is reports whether target is an *AllocError of the same Kind,
// regardless of Op/Addr/Err, so callers can use errors.Is against the
// sentinel values below.
func (e *AllocError) Is(target error) bool {
	t, ok := target.(*AllocError)
	if !ok {
		return false
	}

	return e.Kind == t.Kind
}

// Sentinel values, one per taxonomy entry, for errors.Is comparisons.
// Use errors.As to recover the full *AllocError (Op, Addr, wrapped Err).
var (
	ErrBadAlignment       = &AllocError{Kind: KindBadAlignment}
	ErrBadSize            = &AllocError{Kind: KindBadSize}
	ErrOverlap            = &AllocError{Kind: KindOverlap}
	ErrOutOfMemory        = &AllocError{Kind: KindOutOfMemory}
	ErrBadPointer         = &AllocError{Kind: KindBadPointer}
	ErrLifoViolation      = &AllocError{Kind: KindLifoViolation}
	ErrCanaryCorruption   = &AllocError{Kind: KindCanaryCorruption}
	ErrConstructionFailed = &AllocError{Kind: KindConstructionFailed}
)
