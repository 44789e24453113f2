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
package monitor

import "github.com/binkynet/SketchKit/pkg/metrics"

const subSystem = "monitor"

var (
	analogValueGauge    = metrics.MustRegisterGaugeVec(subSystem, "analog_value", "Last averaged analog value", "pin")
	analogOverflowGauge = metrics.MustRegisterGaugeVec(subSystem, "analog_overflow", "1 if the last averaged reading contained an out-of-range sample", "pin")
	readErrorsTotal     = metrics.MustRegisterCounterVec(subSystem, "read_errors_total", "Number of failed analog readings", "pin")
)
