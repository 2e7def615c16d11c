// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package region

import "testing"

func TestFixedRegionBasics(t *testing.T) {
	r, err := NewFixed(1024)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if g, e := r.Base(), Address(0); g != e {
		t.Fatalf("Base() = %d, want %d", g, e)
	}

	if g, e := r.End(), Address(1024); g != e {
		t.Fatalf("End() = %d, want %d", g, e)
	}

	if g, e := len(r.Bytes()), 1024; g != e {
		t.Fatalf("len(Bytes()) = %d, want %d", g, e)
	}

	if g, e := r.CommittedFrontEnd(), r.End(); g != e {
		t.Fatalf("CommittedFrontEnd() = %d, want %d", g, e)
	}

	if g, e := r.CommittedBackStart(), r.Base(); g != e {
		t.Fatalf("CommittedBackStart() = %d, want %d", g, e)
	}

	if err := r.EnsureFrontCommitted(512); err != nil {
		t.Fatal(err)
	}

	if err := r.EnsureFrontCommitted(2048); err == nil {
		t.Fatal("expected EnsureFrontCommitted beyond End to fail")
	}
}

func TestGrowingRegionCommitsOnDemand(t *testing.T) {
	r, err := NewGrowing(4096, 8*4096)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	pg := r.PageSize()
	if g, e := r.CommittedFrontEnd(), Address(pg); g != e {
		t.Fatalf("initial CommittedFrontEnd() = %d, want %d", g, e)
	}

	want := Address(pg * 3)
	if err := r.EnsureFrontCommitted(want); err != nil {
		t.Fatal(err)
	}

	if r.CommittedFrontEnd() <= want {
		t.Fatalf("CommittedFrontEnd() = %d, want > %d", r.CommittedFrontEnd(), want)
	}

	b := r.Bytes()
	b[0] = 0xAB
	if b[0] != 0xAB {
		t.Fatal("committed front page is not writable")
	}

	backWant := r.End() - Address(pg*3)
	if err := r.EnsureBackCommitted(backWant); err != nil {
		t.Fatal(err)
	}

	if r.CommittedBackStart() > backWant {
		t.Fatalf("CommittedBackStart() = %d, want <= %d", r.CommittedBackStart(), backWant)
	}

	b[len(b)-1] = 0xCD
	if b[len(b)-1] != 0xCD {
		t.Fatal("committed back page is not writable")
	}
}

func TestGrowingRegionReservationFloor(t *testing.T) {
	r, err := NewGrowing(16, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if int(r.End()) < DefaultReservation {
		t.Fatalf("End() = %d, want at least DefaultReservation %d", r.End(), DefaultReservation)
	}
}

func TestGrowingRegionFrontBackCollision(t *testing.T) {
	r, err := NewGrowing(4096, 2*4096)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if err := r.EnsureFrontCommitted(r.End() - 1); err == nil {
		t.Fatal("expected front commit colliding with committed back range to fail")
	}

	if r.CommittedFrontEnd() != Address(r.PageSize()) {
		t.Fatalf("CommittedFrontEnd() changed after rejected commit: %d", r.CommittedFrontEnd())
	}
}

// NewFixed reports construction failure rather than letting make's
// out-of-memory panic escape, for a size no Go heap can satisfy.
func TestNewFixed_OversizeFails(t *testing.T) {
	_, err := NewFixed(^uintptr(0) - 1)
	if err == nil {
		t.Fatal("expected NewFixed to fail for an unsatisfiable size")
	}

	var reserveErr *ErrReserveFailed
	if _, ok := err.(*ErrReserveFailed); !ok {
		t.Fatalf("err = %T(%v), want %T", err, err, reserveErr)
	}
}

// A reservation smaller than size is not an error: NewGrowing reserves
// max(size, reservation), so size wins.
func TestGrowingRegionReservationBelowSize(t *testing.T) {
	r, err := NewGrowing(65536, 16)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if int(r.End()) < 65536 {
		t.Fatalf("End() = %d, want at least requested size 65536", r.End())
	}
}
