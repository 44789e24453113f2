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
package sketch

import (
	"fmt"
	"io"
)

// Fprint writes each value to w, preceded by a single space.
// It returns the number of bytes written and the first write error.
func Fprint(w io.Writer, values ...any) (int, error) {
	total := 0
	for _, v := range values {
		n, err := fmt.Fprint(w, " ", v)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
