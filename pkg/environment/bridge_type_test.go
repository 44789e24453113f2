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

package environment

import "testing"

func TestBridgeTypeFor(t *testing.T) {
	tests := []struct {
		machine  string
		sysfs    bool
		expected string
	}{
		{"x86_64", true, BridgeTypeVirtual},
		{"x86_64", false, BridgeTypeVirtual},
		{"armv7l", true, BridgeTypeRPI},
		{"armv6l", false, BridgeTypePeriph},
		{"aarch64", true, BridgeTypeRPI},
		{" AARCH64 ", false, BridgeTypePeriph},
	}
	for _, test := range tests {
		if got := bridgeTypeFor(test.machine, test.sysfs); got != test.expected {
			t.Errorf("bridgeTypeFor(%q, %v): expected %s, got %s", test.machine, test.sysfs, test.expected, got)
		}
	}
}
