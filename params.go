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

import "time"

// ChannelParameters identifies a channel and its wire-compatibility
// discriminators. It is immutable for the lifetime of an endpoint.
type ChannelParameters struct {
	// PhysicalName is the OS-visible name of the backing shared region.
	PhysicalName string
	// LogicalName is the human name used in diagnostics and error text.
	LogicalName string
	// Type and Version are validated on attach; a mismatch against an
	// already-initialized region is fatal to the attaching endpoint.
	Type    uint16
	Version uint16
}

// endpointOptions collects the functional options shared by NewReceiver and
// NewSender.
type endpointOptions struct {
	logger     Logger
	pollPeriod time.Duration
}

// Option adjusts ambient endpoint behavior without growing
// ChannelParameters. Options never affect wire compatibility.
type Option func(*endpointOptions)

// WithLogger overrides the package-default Logger for a single endpoint.
func WithLogger(logger Logger) Option {
	return func(o *endpointOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithPollPeriod overrides the poll period used for every bounded wait on
// this endpoint. Intended for tests that want disconnection/idle behavior
// to be observable without the package default's 500ms wait; production
// callers should not need this.
func WithPollPeriod(d time.Duration) Option {
	return func(o *endpointOptions) {
		if d > 0 {
			o.pollPeriod = d
		}
	}
}

func newEndpointOptions(opts []Option) endpointOptions {
	o := endpointOptions{
		logger:     defaultLogger(),
		pollPeriod: defaultPollPeriod,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
