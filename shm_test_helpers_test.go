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
	"fmt"
	"runtime"
	"testing"
	"time"
)

// futexSupported reports whether this build/platform combination has a
// real futex backend, matching the build tag on futex_linux.go.
func futexSupported() bool {
	if runtime.GOOS != "linux" {
		return false
	}
	return runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64"
}

func requireFutex(t *testing.T) {
	t.Helper()
	if !futexSupported() {
		t.Skip("futex-backed shared-memory channel only supported on linux/amd64 or linux/arm64")
	}
}

// uniquePhysicalName returns a physical_name unlikely to collide with a
// concurrent test run.
func uniquePhysicalName(t *testing.T, baseName string) string {
	t.Helper()
	return fmt.Sprintf("%s-%s-%d", baseName, t.Name(), time.Now().UnixNano())
}
