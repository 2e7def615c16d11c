// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// A fully-committed, single-buffer Region.

package region

import "fmt"

var _ Region = (*FixedRegion)(nil)

// FixedRegion backs a double-ended stack allocator with one Go-heap
// buffer, entirely committed from construction. EnsureFrontCommitted
// and EnsureBackCommitted only validate that the requested address is
// within bounds; there is nothing to grow.
type FixedRegion struct {
	buf    []byte
	closed bool
}

// NewFixed allocates size bytes and returns a FixedRegion backed by
// them. Construction failure (size too large for the Go heap) is
// reported as an *ErrReserveFailed; the caller gets no Region.
func NewFixed(size uintptr) (r *FixedRegion, err error) {
	defer func() {
		if p := recover(); p != nil {
			r, err = nil, &ErrReserveFailed{Op: "NewFixed", Size: size, Err: fmt.Errorf("%v", p)}
		}
	}()

	return &FixedRegion{buf: make([]byte, size)}, nil
}

// Base implements Region.
func (r *FixedRegion) Base() Address { return 0 }

// End implements Region.
func (r *FixedRegion) End() Address { return Address(len(r.buf)) }

// Bytes implements Region.
func (r *FixedRegion) Bytes() []byte { return r.buf }

// PageSize implements Region. A FixedRegion has no commit granularity
// smaller than the whole region.
func (r *FixedRegion) PageSize() uintptr { return uintptr(len(r.buf)) }

// EnsureFrontCommitted implements Region.
func (r *FixedRegion) EnsureFrontCommitted(upTo Address) error {
	if upTo > r.End() {
		return &ErrCommitFailed{Op: "EnsureFrontCommitted", Addr: upTo, Err: fmt.Errorf("beyond fixed region end %d", r.End())}
	}

	return nil
}

// EnsureBackCommitted implements Region.
func (r *FixedRegion) EnsureBackCommitted(downTo Address) error {
	if downTo < r.Base() {
		return &ErrCommitFailed{Op: "EnsureBackCommitted", Addr: downTo, Err: fmt.Errorf("before fixed region base %d", r.Base())}
	}

	return nil
}

// CommittedFrontEnd implements Region. Always End(): the whole buffer
// is committed up front.
func (r *FixedRegion) CommittedFrontEnd() Address {
	return Address(len(r.buf))
}

// CommittedBackStart implements Region. Always Base().
func (r *FixedRegion) CommittedBackStart() Address { return r.Base() }

// Close implements Region. Releases the reference to the backing
// buffer so the garbage collector can reclaim it.
func (r *FixedRegion) Close() error {
	r.buf = nil
	r.closed = true
	return nil
}
