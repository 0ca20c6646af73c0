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

func TestHeaderSizeIsStable(t *testing.T) {
	// A change in this value means the header's field order or padding
	// shifted; init()'s offset assertions should already have panicked
	// at package load in that case, but pin the total size too.
	if HeaderSize != 88 {
		t.Errorf("HeaderSize = %d, want 88", HeaderSize)
	}
}

func TestEventSlotHeaderInitFiniVacancy(t *testing.T) {
	var slot eventSlotHeader
	if slot.Pid() != 0 {
		t.Fatalf("new slot Pid() = %d, want 0 (vacant)", slot.Pid())
	}
	slot.Init(1234, 7)
	if got := slot.Pid(); got != 1234 {
		t.Errorf("Pid() after Init = %d, want 1234", got)
	}
	slot.Fini()
	if got := slot.Pid(); got != 0 {
		t.Errorf("Pid() after Fini = %d, want 0", got)
	}
}

func TestHeaderClaimInitIsOneShot(t *testing.T) {
	var h Header
	if !h.claimInit() {
		t.Fatal("first claimInit() = false, want true")
	}
	if h.claimInit() {
		t.Fatal("second claimInit() = true, want false")
	}
	if !h.initialized() {
		t.Error("initialized() = false after a successful claimInit()")
	}
}

func TestHeaderNextOwnerSeqIsMonotonic(t *testing.T) {
	var h Header
	a := h.nextOwnerSeq()
	b := h.nextOwnerSeq()
	if b <= a {
		t.Errorf("nextOwnerSeq() sequence not increasing: %d then %d", a, b)
	}
}
