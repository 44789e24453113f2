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
	"github.com/pkg/errors"

	"github.com/binkynet/SketchKit/pkg/bridge"
)

const (
	// MaxRAMProbe is the ceiling of AvailableRAM.
	MaxRAMProbe = 2048
)

// AvailableRAM returns the largest contiguous block (below MaxRAMProbe)
// the board allocator can currently hand out.
// The size is decremented before every attempt, the first block that can
// be allocated is released again and its size returned.
// When not even a single byte can be allocated, 0 is returned together
// with an OutOfMemoryError.
func (k *Kit) AvailableRAM() (int, error) {
	return availableRAM(k.bridge)
}

func availableRAM(alloc bridge.Allocator) (int, error) {
	size := MaxRAMProbe
	for size > 1 {
		size--
		release, err := alloc.TryAllocate(size)
		if bridge.IsOutOfMemory(err) {
			continue
		} else if err != nil {
			return 0, maskAny(err)
		}
		release()
		availableRAMGauge.Set(float64(size))
		return size, nil
	}
	availableRAMGauge.Set(0)
	return 0, errors.Wrap(bridge.OutOfMemoryError, "no block of 1 byte or more available")
}
