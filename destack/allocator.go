// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package destack implements a double-ended stack allocator: two LIFO
// allocation stacks, front growing up from the low address and back
// growing down from the high address, sharing one memory region. Every
// block is bracketed by canaries and prefixed by a hidden header, so
// overflow and use-after-free-style misuse are caught rather than
// silently corrupting neighboring blocks.
//
// An Allocator is not safe for concurrent use; callers that need that
// must serialize access themselves.
package destack

import (
	"fmt"
	"io"

	"github.com/Scrembetsch/KPF-DoubleEndedStackAllocator/layout"
	"github.com/Scrembetsch/KPF-DoubleEndedStackAllocator/region"
)

// noCopy lets go vet's copylocks check flag an Allocator copied by
// value after first use, the same guard C++ expresses with a deleted
// copy/move constructor.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Allocator is a double-ended stack allocator over one region.Region.
// Zero value is not usable; construct with New.
type Allocator struct {
	nc noCopy

	reg   region.Region
	begin region.Address
	end   region.Address

	front region.Address // == begin when the front stack is empty
	back  region.Address // == end when the back stack is empty

	canaries bool
	strict   bool
	diag     io.Writer
}

// New constructs an Allocator over a freshly created region of maxSize
// bytes, headers and canaries included (the Fixed variant), or reserving
// max(maxSize, Options.DefaultReservation) bytes of address space and
// committing pages on demand (the Growing variant).
func New(maxSize uintptr, opts Options) (*Allocator, error) {
	o := opts.normalize()

	var reg region.Region
	var err error
	switch o.Growth {
	case Growing:
		reg, err = region.NewGrowing(maxSize, o.DefaultReservation)
	default:
		reg, err = region.NewFixed(maxSize)
	}

	if err != nil {
		return nil, &AllocError{Op: "New", Kind: KindConstructionFailed, Err: err}
	}

	a := &Allocator{
		reg:      reg,
		begin:    reg.Base(),
		end:      reg.End(),
		canaries: o.Canaries != CanariesDisabled,
		strict:   o.StrictCanaries,
		diag:     o.Diagnostics,
	}
	a.front = a.begin
	a.back = a.end

	return a, nil
}

// Begin returns the lowest address in the region.
func (a *Allocator) Begin() region.Address { return a.begin }

// End returns one past the highest address in the region.
func (a *Allocator) End() region.Address { return a.end }

// Front returns the current front cursor: the payload address of the
// most recent front allocation, or Begin() if the front stack is empty.
func (a *Allocator) Front() region.Address { return a.front }

// Back returns the current back cursor: the payload address of the
// most recent back allocation, or End() if the back stack is empty.
func (a *Allocator) Back() region.Address { return a.back }

// Bytes returns the full backing slice a client indexes with the
// region.Address values Allocate/AllocateBack return, to read or write
// a payload. Touching bytes outside a live block's payload span is the
// caller's own responsibility; Bytes does no bounds checking of its
// own beyond what slicing it already provides.
func (a *Allocator) Bytes() []byte { return a.reg.Bytes() }

// CanarySize returns the width, in bytes, of one canary.
func CanarySize() uint64 { return layout.CanarySize }

// HeaderSize returns the width, in bytes, of one block header.
func HeaderSize() uint64 { return layout.HeaderSize }

func (a *Allocator) canarySize() uint64 {
	if !a.canaries {
		return 0
	}

	return layout.CanarySize
}

func (a *Allocator) reject(op string, kind ErrorKind, addr region.Address, cause error) error {
	err := &AllocError{Op: op, Kind: kind, Addr: addr, Err: cause}
	a.logf("%s rejected: %s at %#x", op, kind, uintptr(addr))
	return err
}

func (a *Allocator) logf(format string, args ...any) {
	if a.diag == nil {
		return
	}

	fmt.Fprintf(a.diag, "destack: "+format+"\n", args...)
}

// Allocate reserves size bytes aligned to align (a power of two) on
// the front stack and returns the payload's address.
func (a *Allocator) Allocate(size uint64, align uint64) (region.Address, error) {
	return a.allocateFront(size, align)
}

// AllocateBack reserves size bytes aligned to align on the back stack.
func (a *Allocator) AllocateBack(size uint64, align uint64) (region.Address, error) {
	return a.allocateBack(size, align)
}

func (a *Allocator) allocateFront(size, align uint64) (region.Address, error) {
	if !layout.IsPowerOfTwo(align) {
		return 0, a.reject("Allocate", KindBadAlignment, 0, nil)
	}

	if size == 0 {
		return 0, a.reject("Allocate", KindBadSize, 0, nil)
	}

	cs, hs := a.canarySize(), uint64(layout.HeaderSize)

	var prevSize uint64
	if a.front != a.begin {
		h := a.readHeader(a.front)
		prevSize = h.Size
	}

	payload := layout.NextFrontPayload(a.front, a.begin, prevSize, size, align, cs, hs)
	blockEnd := payload + region.Address(size) + region.Address(cs)

	if err := a.reg.EnsureFrontCommitted(blockEnd); err != nil {
		return 0, a.reject("Allocate", KindOutOfMemory, payload, err)
	}

	limit := a.back
	if limit != a.end {
		limit -= region.Address(hs) + region.Address(cs)
	}

	if blockEnd > limit {
		return 0, a.reject("Allocate", KindOverlap, payload, nil)
	}

	buf := a.reg.Bytes()
	if cs > 0 {
		layout.WriteCanary(buf[payload-region.Address(cs)-region.Address(hs) : payload-region.Address(hs)])
	}
	layout.EncodeHeader(buf[payload-region.Address(hs):payload], layout.BlockHeader{PrevCursor: a.front, Size: size})
	if cs > 0 {
		layout.WriteCanary(buf[payload+region.Address(size) : blockEnd])
	}

	a.front = payload
	return payload, nil
}

func (a *Allocator) allocateBack(size, align uint64) (region.Address, error) {
	if !layout.IsPowerOfTwo(align) {
		return 0, a.reject("AllocateBack", KindBadAlignment, 0, nil)
	}

	if size == 0 {
		return 0, a.reject("AllocateBack", KindBadSize, 0, nil)
	}

	cs, hs := a.canarySize(), uint64(layout.HeaderSize)

	payload := layout.NextBackPayload(a.back, a.end, size, align, cs, hs)
	if payload > a.back || uint64(payload) < cs+hs {
		// The block does not fit below the back cursor at all; the
		// subtraction in NextBackPayload wrapped around.
		return 0, a.reject("AllocateBack", KindOutOfMemory, a.back, nil)
	}
	blockStart := payload - region.Address(cs) - region.Address(hs)

	if err := a.reg.EnsureBackCommitted(blockStart); err != nil {
		return 0, a.reject("AllocateBack", KindOutOfMemory, payload, err)
	}

	limit := a.front
	if limit != a.begin {
		h := a.readHeader(a.front)
		limit += region.Address(h.Size) + region.Address(cs)
	}

	if blockStart < limit {
		return 0, a.reject("AllocateBack", KindOverlap, payload, nil)
	}

	buf := a.reg.Bytes()
	if cs > 0 {
		layout.WriteCanary(buf[blockStart : blockStart+region.Address(cs)])
	}
	layout.EncodeHeader(buf[blockStart+region.Address(cs):payload], layout.BlockHeader{PrevCursor: a.back, Size: size})
	if cs > 0 {
		end := payload + region.Address(size)
		layout.WriteCanary(buf[end : end+region.Address(cs)])
	}

	a.back = payload
	return payload, nil
}

func (a *Allocator) readHeader(payload region.Address) layout.BlockHeader {
	hs := region.Address(layout.HeaderSize)
	return layout.DecodeHeader(a.reg.Bytes()[payload-hs : payload])
}

// Free releases the block at ptr from the front stack. ptr must be
// the address returned by the most recent still-live Allocate call;
// any other value is a LIFO violation.
func (a *Allocator) Free(ptr region.Address) error {
	if ptr < a.begin || ptr > a.end {
		return a.reject("Free", KindBadPointer, ptr, nil)
	}

	if a.front == a.begin || ptr != a.front {
		return a.reject("Free", KindLifoViolation, ptr, nil)
	}

	cs, hs := a.canarySize(), region.Address(layout.HeaderSize)
	h := a.readHeader(ptr)
	buf := a.reg.Bytes()

	corrupted := false
	if cs > 0 {
		begin := buf[ptr-region.Address(cs)-hs : ptr-hs]
		end := buf[ptr+region.Address(h.Size) : ptr+region.Address(h.Size)+region.Address(cs)]
		corrupted = !layout.CheckCanary(begin) || !layout.CheckCanary(end)
		if corrupted {
			a.reportCorruption("Free", ptr)
		}
	}

	a.front = h.PrevCursor
	if corrupted {
		return &AllocError{Op: "Free", Kind: KindCanaryCorruption, Addr: ptr}
	}

	return nil
}

// FreeBack releases the block at ptr from the back stack, mirroring
// Free.
func (a *Allocator) FreeBack(ptr region.Address) error {
	if ptr < a.begin || ptr > a.end {
		return a.reject("FreeBack", KindBadPointer, ptr, nil)
	}

	if a.back == a.end || ptr != a.back {
		return a.reject("FreeBack", KindLifoViolation, ptr, nil)
	}

	cs, hs := a.canarySize(), region.Address(layout.HeaderSize)
	h := a.readHeader(ptr)
	buf := a.reg.Bytes()

	corrupted := false
	if cs > 0 {
		begin := buf[ptr-region.Address(cs)-hs : ptr-hs]
		end := buf[ptr+region.Address(h.Size) : ptr+region.Address(h.Size)+region.Address(cs)]
		corrupted = !layout.CheckCanary(begin) || !layout.CheckCanary(end)
		if corrupted {
			a.reportCorruption("FreeBack", ptr)
		}
	}

	a.back = h.PrevCursor
	if corrupted {
		return &AllocError{Op: "FreeBack", Kind: KindCanaryCorruption, Addr: ptr}
	}

	return nil
}

func (a *Allocator) reportCorruption(op string, addr region.Address) {
	a.logf("%s detected CanaryCorruption at %#x", op, uintptr(addr))
	if a.strict {
		panic((&AllocError{Op: op, Kind: KindCanaryCorruption, Addr: addr}).Error())
	}
}

// Reset frees every live block on both stacks, front first then back,
// through the normal Free/FreeBack path so canary checks still run
// across a reset the same way they do for an ordinary pop.
func (a *Allocator) Reset() {
	for a.front != a.begin {
		_ = a.Free(a.front)
	}

	for a.back != a.end {
		_ = a.FreeBack(a.back)
	}
}

// Close releases the underlying region. An Allocator must not be used
// after Close.
func (a *Allocator) Close() error {
	return a.reg.Close()
}
