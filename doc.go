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

// Package shm implements a shared-memory, typed, bidirectional
// single-consumer multi-producer message channel between cooperating
// processes on the same host.
//
// A channel is identified by a stable physical name and carries messages
// drawn from a fixed, compile-time-known closed set of record types (a
// tagged union), optionally paired with a fixed companion record. A sender
// places one message at a time into a shared region; the receiver extracts
// it and acknowledges. Named futex-based events drive the rendezvous; a
// futex-based mutex in the same region serializes concurrent senders.
//
// The package exposes three things to a host process: a Family describing
// the closed set of alternatives a channel carries, and a Receiver/Sender
// pair constructed from ChannelParameters and a Family. Exactly one
// Receiver and any number of Senders may exist for a given physical name at
// once.
package shm
