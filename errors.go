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

import "fmt"

// VersionMismatchError is returned when an attaching endpoint's Type/Version
// disagree with the region's already-initialized header. It is fatal to the
// attaching endpoint; the existing endpoint(s) remain functional.
type VersionMismatchError struct {
	LogicalName          string
	WantType, WantVersion uint16
	GotType, GotVersion   uint16
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("shm: %s: version mismatch: region has type=%d version=%d, endpoint wants type=%d version=%d",
		e.LogicalName, e.GotType, e.GotVersion, e.WantType, e.WantVersion)
}

// EventInitFailedError wraps an OS-level failure initializing an event slot.
type EventInitFailedError struct {
	LogicalName string
	Err         error
}

func (e *EventInitFailedError) Error() string {
	return fmt.Sprintf("shm: %s: event init failed: %v", e.LogicalName, e.Err)
}

func (e *EventInitFailedError) Unwrap() error { return e.Err }

// EventPostFailedError wraps an OS-level failure posting (waking) an event
// slot.
type EventPostFailedError struct {
	LogicalName string
	Err         error
}

func (e *EventPostFailedError) Error() string {
	return fmt.Sprintf("shm: %s: event post failed: %v", e.LogicalName, e.Err)
}

func (e *EventPostFailedError) Unwrap() error { return e.Err }

// InvalidTagError indicates protocol corruption: the wire tag index named
// by a sender does not belong to the channel's message family. It
// indicates a misbehaving peer.
type InvalidTagError struct {
	LogicalName string
	Tag         uint8
	NumVariants int
}

func (e *InvalidTagError) Error() string {
	return fmt.Sprintf("shm: %s: invalid tag %d (family has %d alternatives)", e.LogicalName, e.Tag, e.NumVariants)
}
