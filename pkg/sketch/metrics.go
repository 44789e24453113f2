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
	"github.com/binkynet/SketchKit/pkg/metrics"
)

const (
	subSystem = "sketch"
)

var (
	// Result of the last free memory probe
	availableRAMGauge = metrics.MustRegisterGauge(subSystem,
		"available_ram_bytes",
		"Largest contiguous block found by the last free memory probe")
	// Total number of analog samples taken per pin
	analogSamplesTotal = metrics.MustRegisterCounterVec(subSystem,
		"analog_samples_total",
		"Total number of raw analog samples taken per pin",
		"pin")
	// Total number of averaged reads that saw an out of range sample
	analogOverflowsTotal = metrics.MustRegisterCounterVec(subSystem,
		"analog_overflows_total",
		"Total number of averaged analog reads with an out of range sample per pin",
		"pin")
	// Total number of completed blink cycles per pin
	blinkCyclesTotal = metrics.MustRegisterCounterVec(subSystem,
		"blink_cycles_total",
		"Total number of completed LED blink cycles per pin",
		"pin")
	// Total number of loop limiters that halted
	loopLimiterHaltsTotal = metrics.MustRegisterCounter(subSystem,
		"loop_limiter_halts_total",
		"Total number of loop limiters that halted their caller")
)
