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
	"context"
	"strconv"
	"time"

	"github.com/binkynet/SketchKit/pkg/bridge"
)

const (
	// DefaultBlinkCount is the usual number of cycles for BlinkLED.
	DefaultBlinkCount = 3
	// BlinkHold is how long the LED stays on and off during a cycle.
	BlinkHold = 300 * time.Millisecond
)

// OpenDrain emulates an open-drain output on a push-pull pin.
// A true value floats the pin (input, pulled high externally),
// a false value drives it low. The output level is always set low.
func (k *Kit) OpenDrain(pin bridge.Pin, value bool) error {
	mode := bridge.PinModeOutput
	if value {
		mode = bridge.PinModeInput
	}
	if err := k.bridge.SetPinMode(pin, mode); err != nil {
		return maskAny(err)
	}
	if err := k.bridge.DigitalWrite(pin, false); err != nil {
		return maskAny(err)
	}
	k.log.Debug().Uint8("pin", uint8(pin)).Bool("value", value).Msg("open drain set")
	return nil
}

// BlinkLED configures the pin as output and blinks it n times,
// BlinkHold on followed by BlinkHold off.
// It blocks until done or until the context is canceled.
func (k *Kit) BlinkLED(ctx context.Context, pin bridge.Pin, n uint8) error {
	if err := k.bridge.SetPinMode(pin, bridge.PinModeOutput); err != nil {
		return maskAny(err)
	}
	cycles := blinkCyclesTotal.WithLabelValues(strconv.Itoa(int(pin)))
	for i := uint8(0); i < n; i++ {
		if err := k.bridge.DigitalWrite(pin, true); err != nil {
			return maskAny(err)
		}
		if err := k.bridge.Delay(ctx, BlinkHold); err != nil {
			// Do not leave the LED on
			if werr := k.bridge.DigitalWrite(pin, false); werr != nil {
				k.log.Debug().Err(werr).Uint8("pin", uint8(pin)).Msg("failed to turn LED off")
			}
			return maskAny(err)
		}
		if err := k.bridge.DigitalWrite(pin, false); err != nil {
			return maskAny(err)
		}
		if err := k.bridge.Delay(ctx, BlinkHold); err != nil {
			return maskAny(err)
		}
		cycles.Inc()
	}
	k.log.Debug().Uint8("pin", uint8(pin)).Uint8("cycles", n).Msg("blinked LED")
	return nil
}
