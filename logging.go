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

import "github.com/sirupsen/logrus"

// Logger receives diagnostics this package recovers from locally and does
// not otherwise propagate to a caller. Implementations must be safe to call
// from any goroutine.
type Logger interface {
	// MutexBug is called when a futex-based mutex operation fails in a way
	// that does not prevent progress but indicates a contended or stale
	// mutex word; such faults are never returned as errors. context names
	// the call site and the channel's logical name, e.g.
	// "regionMutex.TryLock:<name>" or "regionMutex.Unlock:<name>".
	MutexBug(err error, context string)
}

// logrusLogger adapts a logrus.FieldLogger to Logger, mirroring the
// package-level logger the govpp shared-memory adapter installs by default
// and lets callers override with SetLogger.
type logrusLogger struct {
	log logrus.FieldLogger
}

func (l logrusLogger) MutexBug(err error, context string) {
	l.log.WithField("context", context).WithError(err).Warn("shm: recovered mutex fault")
}

var pkgLogger Logger = logrusLogger{log: logrus.StandardLogger()}

// defaultLogger returns the package-wide default Logger, used by endpoints
// that do not supply WithLogger.
func defaultLogger() Logger {
	return pkgLogger
}

// SetLogger overrides the package-wide default Logger for endpoints
// constructed after this call. It does not affect endpoints already
// constructed with an explicit WithLogger option or a prior default.
func SetLogger(logger Logger) {
	if logger != nil {
		pkgLogger = logger
	}
}
