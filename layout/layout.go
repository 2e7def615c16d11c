// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package layout computes the pure address arithmetic and byte layout
// of a double-ended stack allocator's blocks: alignment, the
// begin-canary/header/payload/end-canary shape, and the next candidate
// payload position on either side. Nothing here touches storage; every
// function is a pure computation over region.Address values.
package layout

import "github.com/Scrembetsch/KPF-DoubleEndedStackAllocator/region"

// AlignUp returns the smallest x >= addr with x mod align == 0. align
// must be a power of two; callers validate that with IsPowerOfTwo
// before calling.
func AlignUp(addr region.Address, align uint64) region.Address {
	a := region.Address(align)
	rem := addr % a
	if rem == 0 {
		return addr
	}

	return addr + (a - rem)
}

// AlignDown returns the largest x <= addr with x mod align == 0. align
// must be a power of two.
func AlignDown(addr region.Address, align uint64) region.Address {
	a := region.Address(align)
	return addr - addr%a
}

// IsPowerOfTwo reports whether n is a power of two (n > 0 && n&(n-1) == 0).
func IsPowerOfTwo(n uint64) bool {
	return n > 0 && n&(n-1) == 0
}

// NextFrontPayload computes the payload start address for the next
// front allocation.
//
// If the front stack is empty (frontCursor == empty), no predecessor
// block's end-canary precedes the new block, so raw starts at begin
// directly. Otherwise raw sits just past the previous block's payload
// and end-canary. In both cases the candidate is then offset by
// begin-canary+header and aligned up - this offset-before-align rule
// is applied unconditionally, which is the only self-consistent
// reading of the source (see spec Open Question 1).
func NextFrontPayload(frontCursor, empty region.Address, prevSize uint64, size uint64, align uint64, canarySize, headerSize uint64) region.Address {
	var raw region.Address
	if frontCursor == empty {
		raw = empty
	} else {
		raw = frontCursor + region.Address(prevSize) + region.Address(canarySize)
	}

	return AlignUp(raw+region.Address(canarySize)+region.Address(headerSize), align)
}

// NextBackPayload computes the payload start address for the next back
// allocation. Symmetric to NextFrontPayload: an empty back stack omits
// the nonexistent predecessor's end-canary from the reservation.
func NextBackPayload(backCursor, empty region.Address, size uint64, align uint64, canarySize, headerSize uint64) region.Address {
	var raw region.Address
	if backCursor == empty {
		raw = backCursor - region.Address(size) - region.Address(canarySize)
	} else {
		raw = backCursor - region.Address(headerSize) - 2*region.Address(canarySize) - region.Address(size)
	}

	return AlignDown(raw, align)
}
