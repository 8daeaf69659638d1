// Copyright 2025 The Alder Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package telemetry

import (
	"context"
	"testing"
	"time"
)

// TestingRecorder creates a [Recorder] with defaults suited to unit tests:
// the Prometheus provider with no metrics server, so recorded values can be
// read back through [Recorder.MetricsHandler] without touching the network.
// Shutdown is registered with t.Cleanup.
//
// Example:
//
//	func TestSomething(t *testing.T) {
//	    t.Parallel()
//	    rec := telemetry.TestingRecorder(t, "test-service")
//	    // Use rec...
//	}
func TestingRecorder(t testing.TB, serviceName string, opts ...Option) *Recorder {
	t.Helper()

	allOpts := append([]Option{WithServiceName(serviceName)}, opts...)

	rec, err := New(allOpts...)
	if err != nil {
		t.Fatalf("TestingRecorder: failed to create recorder: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rec.Shutdown(ctx); err != nil {
			t.Logf("TestingRecorder: shutdown warning: %v", err)
		}
	})

	return rec
}
