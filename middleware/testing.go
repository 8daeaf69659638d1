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

package middleware

import (
	"io"
	"log/slog"
)

// NewTestLogger creates a silent logger for tests. It discards all output.
func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// NewCaptureLogger creates a logger that writes JSON records to w, useful
// for asserting on log output in tests.
//
// Example:
//
//	var buf bytes.Buffer
//	logger := middleware.NewCaptureLogger(&buf)
//	r := router.MustNew(
//	    router.WithMiddleware(accesslog.New(accesslog.WithLogger(logger))),
//	    router.WithRoutes(...),
//	)
//	// drive requests, then assert on buf.String()
func NewCaptureLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, nil))
}
