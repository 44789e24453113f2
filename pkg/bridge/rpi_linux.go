//    Copyright 2017 Ewout Prangsma
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

//go:build linux

package bridge

import (
	"sync"

	"github.com/ecc1/gpio"
	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
)

const (
	rpiPinCount = 28
)

type piBridge struct {
	realClock
	mmapAllocator
	i2cAnalog

	mutex   sync.Mutex
	levels  map[Pin]bool
	outputs map[Pin]gpio.OutputPin
}

// NewRaspberryPiBridge implements the bridge for Raspberry PI's using
// sysfs GPIO and an ADS1115 converter on I2C.
func NewRaspberryPiBridge(cfg HardwareConfig) (API, error) {
	cfg.setDefaults()
	return &piBridge{
		i2cAnalog: i2cAnalog{config: cfg},
		levels:    make(map[Pin]bool),
		outputs:   make(map[Pin]gpio.OutputPin),
	}, nil
}

// SetPinMode configures the given pin as input or output.
func (p *piBridge) SetPinMode(pin Pin, mode PinMode) error {
	if int(pin) >= rpiPinCount {
		return errors.Wrapf(InvalidPinError, "pin %d", pin)
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()

	activeLow := false
	switch mode {
	case PinModeInput:
		if _, err := gpio.Input(int(pin), activeLow); err != nil {
			return errors.Wrapf(err, "Input[%d] failed", pin)
		}
		delete(p.outputs, pin)
	case PinModeOutput:
		out, err := gpio.Output(int(pin), activeLow, p.levels[pin])
		if err != nil {
			return errors.Wrapf(err, "Output[%d] failed", pin)
		}
		p.outputs[pin] = out
	default:
		return errors.Wrapf(NotSupportedError, "pin mode %d", mode)
	}
	return nil
}

// DigitalWrite commands the output level of the given pin.
func (p *piBridge) DigitalWrite(pin Pin, high bool) error {
	if int(pin) >= rpiPinCount {
		return errors.Wrapf(InvalidPinError, "pin %d", pin)
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.levels[pin] = high
	if out, found := p.outputs[pin]; found {
		if err := out.Write(high); err != nil {
			return errors.Wrapf(err, "Write[%d] failed", pin)
		}
	}
	return nil
}

// Close releases the I2C bus and puts all outputs back to input.
func (p *piBridge) Close() error {
	var ae aerr.AggregateError
	p.mutex.Lock()
	for pin := range p.outputs {
		if _, err := gpio.Input(int(pin), false); err != nil {
			ae.Add(errors.Wrapf(err, "Input[%d] failed", pin))
		}
		delete(p.outputs, pin)
	}
	p.mutex.Unlock()
	ae.Add(p.i2cAnalog.close())
	return ae.AsError()
}
