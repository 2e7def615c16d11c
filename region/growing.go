// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// A Region that reserves a large virtual range up front and commits
// physical pages on demand as either stack advances, the Go/Unix
// analogue of the original source's VirtualAlloc(MEM_RESERVE) followed
// by VirtualAlloc(MEM_COMMIT) pair.

package region

import (
	"fmt"

	"github.com/cznic/mathutil"
	"golang.org/x/sys/unix"
)

var _ Region = (*GrowingRegion)(nil)

// GrowingRegion reserves max(size, reservation) bytes of anonymous
// virtual memory with PROT_NONE, then commits the first and last page
// (for the front and back stacks respectively) by mprotect-ing them to
// PROT_READ|PROT_WRITE. EnsureFrontCommitted/EnsureBackCommitted extend
// the committed range one page at a time.
type GrowingRegion struct {
	buf      []byte // the full PROT_NONE reservation, mmap'd once
	pageSize uintptr

	committedFrontEnd  Address
	committedBackStart Address
}

// NewGrowing reserves max(size, reservation) bytes of virtual address
// space and commits one page at each end. Construction failure (the
// reservation itself, or committing the first two pages) is reported
// as an *ErrReserveFailed.
func NewGrowing(size, reservation uintptr) (*GrowingRegion, error) {
	n := uintptr(mathutil.MaxInt64(int64(size), int64(reservation)))
	if reservation == 0 {
		n = uintptr(mathutil.MaxInt64(int64(size), int64(DefaultReservation)))
	}

	pageSize := uintptr(unix.Getpagesize())
	n = roundUpPages(n, pageSize)

	buf, err := unix.Mmap(-1, 0, int(n), unix.PROT_NONE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, &ErrReserveFailed{Op: "mmap", Size: n, Err: err}
	}

	r := &GrowingRegion{buf: buf, pageSize: pageSize}

	if err := unix.Mprotect(buf[:pageSize], unix.PROT_READ|unix.PROT_WRITE); err != nil {
		unix.Munmap(buf)
		return nil, &ErrReserveFailed{Op: "mprotect(front)", Size: pageSize, Err: err}
	}
	r.committedFrontEnd = Address(pageSize)

	backStart := uintptr(len(buf)) - pageSize
	if err := unix.Mprotect(buf[backStart:], unix.PROT_READ|unix.PROT_WRITE); err != nil {
		unix.Munmap(buf)
		return nil, &ErrReserveFailed{Op: "mprotect(back)", Size: pageSize, Err: err}
	}
	r.committedBackStart = Address(backStart)

	return r, nil
}

func roundUpPages(n, pageSize uintptr) uintptr {
	if n%pageSize == 0 {
		return n
	}

	return n + (pageSize - n%pageSize)
}

// Base implements Region.
func (r *GrowingRegion) Base() Address { return 0 }

// End implements Region.
func (r *GrowingRegion) End() Address { return Address(len(r.buf)) }

// Bytes implements Region.
func (r *GrowingRegion) Bytes() []byte { return r.buf }

// PageSize implements Region.
func (r *GrowingRegion) PageSize() uintptr { return r.pageSize }

// CommittedFrontEnd implements Region.
func (r *GrowingRegion) CommittedFrontEnd() Address { return r.committedFrontEnd }

// CommittedBackStart implements Region.
func (r *GrowingRegion) CommittedBackStart() Address { return r.committedBackStart }

// EnsureFrontCommitted implements Region. Grows the committed front
// range, one page at a time, until CommittedFrontEnd() > upTo. On
// mprotect failure the previously committed bound is left unchanged -
// no partial commit is ever counted as committed.
func (r *GrowingRegion) EnsureFrontCommitted(upTo Address) error {
	start := r.committedFrontEnd
	for upTo >= r.committedFrontEnd {
		next := r.committedFrontEnd + Address(r.pageSize)
		if next > r.committedBackStart {
			r.committedFrontEnd = start
			return &ErrCommitFailed{Op: "EnsureFrontCommitted", Addr: upTo, Err: fmt.Errorf("would collide with committed back range at %#x", uintptr(r.committedBackStart))}
		}

		if err := unix.Mprotect(r.buf[r.committedFrontEnd:next], unix.PROT_READ|unix.PROT_WRITE); err != nil {
			r.committedFrontEnd = start
			return &ErrCommitFailed{Op: "EnsureFrontCommitted", Addr: upTo, Err: err}
		}

		r.committedFrontEnd = next
	}

	return nil
}

// EnsureBackCommitted implements Region. Symmetric to
// EnsureFrontCommitted, growing backward.
func (r *GrowingRegion) EnsureBackCommitted(downTo Address) error {
	start := r.committedBackStart
	for downTo < r.committedBackStart {
		prev := r.committedBackStart - Address(r.pageSize)
		if prev < r.committedFrontEnd {
			r.committedBackStart = start
			return &ErrCommitFailed{Op: "EnsureBackCommitted", Addr: downTo, Err: fmt.Errorf("would collide with committed front range at %#x", uintptr(r.committedFrontEnd))}
		}

		if err := unix.Mprotect(r.buf[prev:r.committedBackStart], unix.PROT_READ|unix.PROT_WRITE); err != nil {
			r.committedBackStart = start
			return &ErrCommitFailed{Op: "EnsureBackCommitted", Addr: downTo, Err: err}
		}

		r.committedBackStart = prev
	}

	return nil
}

// Close implements Region. Unmaps the entire reservation.
func (r *GrowingRegion) Close() error {
	if r.buf == nil {
		return nil
	}

	err := unix.Munmap(r.buf)
	r.buf = nil
	return err
}
