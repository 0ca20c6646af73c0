/*
 *
 * Copyright 2025 gRPC authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package shm

import "testing"

type testPing struct{ N uint32 }
type testPong struct{ N uint32 }
type testSmall struct{ N uint32 }
type testBig struct {
	N uint32
	S [32000]byte
}
type testStop struct{}
type testFixed struct{ Seq uint64 }

func TestNewFamilyMaxPayload(t *testing.T) {
	f, err := NewFamily(testPing{}, testPong{})
	if err != nil {
		t.Fatalf("NewFamily: %v", err)
	}
	if got, want := f.MaxPayload(), 4; got != want {
		t.Errorf("MaxPayload() = %d, want %d", got, want)
	}
	if got, want := f.NumAlternatives(), 2; got != want {
		t.Errorf("NumAlternatives() = %d, want %d", got, want)
	}
}

func TestNewFamilyMixedSizes(t *testing.T) {
	f, err := NewFamily(testSmall{}, testBig{}, testStop{})
	if err != nil {
		t.Fatalf("NewFamily: %v", err)
	}
	want := 4 + 32000
	if got := f.MaxPayload(); got != want {
		t.Errorf("MaxPayload() = %d, want %d", got, want)
	}
}

func TestFamilyRejectsNonPOD(t *testing.T) {
	type hasSlice struct{ S []byte }
	if _, err := NewFamily(hasSlice{}); err == nil {
		t.Fatal("expected error for a field with indirect storage, got nil")
	}

	type hasPointer struct{ P *int }
	if _, err := NewFamily(hasPointer{}); err == nil {
		t.Fatal("expected error for a pointer field, got nil")
	}

	type hasString struct{ S string }
	if _, err := NewFamily(hasString{}); err == nil {
		t.Fatal("expected error for a string field, got nil")
	}
}

func TestFamilyRejectsDuplicateAlternatives(t *testing.T) {
	if _, err := NewFamily(testPing{}, testPing{}); err == nil {
		t.Fatal("expected error for duplicate alternative types, got nil")
	}
}

func TestFamilyWithCompanion(t *testing.T) {
	base, err := NewFamily(testSmall{}, testBig{})
	if err != nil {
		t.Fatalf("NewFamily: %v", err)
	}
	paired, err := base.WithCompanion(testFixed{})
	if err != nil {
		t.Fatalf("WithCompanion: %v", err)
	}
	if !paired.HasCompanion() {
		t.Error("HasCompanion() = false, want true")
	}
	want := 8 + 4 + 32000 // Seq(8) + Big(4+32000), max alternative is Big
	if got := paired.MaxPayload(); got != want {
		t.Errorf("MaxPayload() = %d, want %d", got, want)
	}
	if base.HasCompanion() {
		t.Error("WithCompanion mutated the receiver family")
	}
}

func TestFamilyNewAndInvalidTag(t *testing.T) {
	f, err := NewFamily(testPing{}, testPong{})
	if err != nil {
		t.Fatalf("NewFamily: %v", err)
	}
	v, err := f.New(1)
	if err != nil {
		t.Fatalf("New(1): %v", err)
	}
	if _, ok := v.(*testPong); !ok {
		t.Errorf("New(1) = %T, want *testPong", v)
	}

	if _, err := f.New(2); err == nil {
		t.Fatal("New(2) on a 2-alternative family: expected InvalidTagError, got nil")
	} else if _, ok := err.(*InvalidTagError); !ok {
		t.Errorf("New(2) error type = %T, want *InvalidTagError", err)
	}
}

func TestFamilyIndexAndBytesRoundTrip(t *testing.T) {
	f, err := NewFamily(testPing{}, testPong{})
	if err != nil {
		t.Fatalf("NewFamily: %v", err)
	}
	p := &testPing{N: 42}
	tag, span, err := f.indexAndBytes(p)
	if err != nil {
		t.Fatalf("indexAndBytes: %v", err)
	}
	if tag != 0 {
		t.Errorf("tag = %d, want 0", tag)
	}
	if len(span) != 4 {
		t.Errorf("len(span) = %d, want 4", len(span))
	}

	// span aliases p's memory: mutating it through the span must be
	// visible through p.
	before := p.N
	span[0] ^= 0xFF
	if p.N == before {
		t.Fatalf("span does not alias p's storage as expected")
	}
}

func TestFamilyIndexAndBytesRejectsForeignType(t *testing.T) {
	f, err := NewFamily(testPing{}, testPong{})
	if err != nil {
		t.Fatalf("NewFamily: %v", err)
	}
	if _, _, err := f.indexAndBytes(&testSmall{}); err == nil {
		t.Fatal("expected error for a type outside the family, got nil")
	}
}
