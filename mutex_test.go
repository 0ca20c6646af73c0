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

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRegionMutexExclusion(t *testing.T) {
	requireFutex(t)

	var word uint32
	m := &regionMutex{word: &word, name: "test", logger: defaultLogger()}

	if !m.TryLock(time.Second) {
		t.Fatal("TryLock on an unheld mutex returned false")
	}
	if m.TryLock(50 * time.Millisecond) {
		t.Fatal("TryLock on an already-held mutex returned true")
	}
	m.Unlock()
	if !m.TryLock(time.Second) {
		t.Fatal("TryLock after Unlock returned false")
	}
	m.Unlock()
}

func TestRegionMutexWakesWaiter(t *testing.T) {
	requireFutex(t)

	var word uint32
	m := &regionMutex{word: &word, name: "test", logger: defaultLogger()}

	if !m.TryLock(time.Second) {
		t.Fatal("initial TryLock failed")
	}

	acquired := make(chan struct{})
	go func() {
		if m.TryLock(2 * time.Second) {
			close(acquired)
		}
	}()

	time.Sleep(50 * time.Millisecond)
	m.Unlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the mutex after Unlock")
	}
}

func TestRegionMutexSerializesManyWaiters(t *testing.T) {
	requireFutex(t)

	var word uint32
	m := &regionMutex{word: &word, name: "test", logger: defaultLogger()}

	var counter int64
	var wg sync.WaitGroup
	const n = 16
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !m.TryLock(5 * time.Second) {
				t.Error("TryLock timed out under contention")
				return
			}
			atomic.AddInt64(&counter, 1)
			m.Unlock()
		}()
	}
	wg.Wait()
	if counter != n {
		t.Errorf("counter = %d, want %d", counter, n)
	}
}
