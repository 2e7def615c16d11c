// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package destack

import (
	"io"

	"github.com/Scrembetsch/KPF-DoubleEndedStackAllocator/region"
)

// Growth selects the Region Provider backing an Allocator.
type Growth int

const (
	// Fixed commits the whole requested size up front, in one
	// allocation. Allocate/AllocateBack never grow the backing store;
	// exhausting it reports OutOfMemory.
	Fixed Growth = iota

	// Growing reserves a larger range of address space and commits
	// pages into it on demand, front and back independently.
	Growing
)

// Options configures a new Allocator. The zero value is valid and
// selects a canary-checked Fixed allocator with no diagnostics output.
type Options struct {
	// Canaries enables writing and checking the begin/end canary
	// around every block. Disabling it removes the 2*CanarySize
	// per-block overhead and the corruption check on Free/FreeBack.
	//
	// CanaryMode exists, instead of a plain bool, because the natural
	// zero value of a bool would silently mean "canaries off" - the
	// opposite of this allocator's intent. New treats the zero value
	// CanariesDefault the same as CanariesEnabled.
	Canaries CanaryMode

	// Growth selects Fixed or Growing. Fixed is the zero value.
	Growth Growth

	// DefaultReservation is the address space reserved by a Growing
	// allocator when the caller's requested size is smaller than it.
	// Zero means use region.DefaultReservation. Ignored for Fixed.
	DefaultReservation uintptr

	// StrictCanaries, if true, treats a corrupted canary found during
	// Free/FreeBack/Reset as fatal: the allocator panics rather than
	// returning ErrCanaryCorruption and continuing with a rewound
	// cursor. Use this during development to get a stack trace at the
	// point of detection instead of at some unrelated later failure.
	StrictCanaries bool

	// Diagnostics, if non-nil, receives one line of text for every
	// rejected operation and every detected canary corruption. It is
	// never required for correct operation; it exists purely to help
	// a developer see what the allocator refused and why.
	Diagnostics io.Writer
}

// CanaryMode distinguishes "use the allocator's default" from an
// explicit choice, since Options{} must default to canaries on.
type CanaryMode int

const (
	// CanariesDefault lets New choose (currently: enabled).
	CanariesDefault CanaryMode = iota
	CanariesEnabled
	CanariesDisabled
)

// normalize returns a copy of o with defaults filled in. It is
// idempotent: normalizing an already-normalized Options is a no-op.
func (o Options) normalize() Options {
	if o.Canaries == CanariesDefault {
		o.Canaries = CanariesEnabled
	}

	if o.DefaultReservation == 0 {
		o.DefaultReservation = region.DefaultReservation
	}

	return o
}
