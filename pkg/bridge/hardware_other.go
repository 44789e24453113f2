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

//go:build !linux

package bridge

import "github.com/pkg/errors"

// HardwareConfig configures the bridges that run on real Linux boards.
type HardwareConfig struct {
	I2CLocation string
	ADCAddress  uint8
}

// NewRaspberryPiBridge is only available on Linux.
func NewRaspberryPiBridge(cfg HardwareConfig) (API, error) {
	return nil, errors.Wrap(NotSupportedError, "rpi bridge requires linux")
}

// NewPeriphBridge is only available on Linux.
func NewPeriphBridge(cfg HardwareConfig) (API, error) {
	return nil, errors.Wrap(NotSupportedError, "periph bridge requires linux")
}
