// Copyright 2026 Ewout Prangsma
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
//
// Author Ewout Prangsma
//
package logging

import (
	"io"

	aerr "github.com/ewoutp/go-aggregate-error"
)

type multiWriter struct {
	writers []io.Writer
}

// NewMultiWriter creates an output for logs that copies every entry
// to all given writers.
func NewMultiWriter(writers ...io.Writer) io.Writer {
	return &multiWriter{
		writers: writers,
	}
}

// Write to all writers, even when some of them fail.
func (l *multiWriter) Write(p []byte) (int, error) {
	var ae aerr.AggregateError
	for _, w := range l.writers {
		if _, err := w.Write(p); err != nil {
			ae.Add(err)
		}
	}
	return len(p), ae.AsError()
}
