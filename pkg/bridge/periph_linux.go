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

//go:build linux

package bridge

import (
	"fmt"
	"sync"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

type periphBridge struct {
	realClock
	mmapAllocator
	i2cAnalog

	mutex  sync.Mutex
	pins   map[Pin]gpio.PinIO
	modes  map[Pin]PinMode
	levels map[Pin]bool
}

// NewPeriphBridge implements the bridge on top of periph.io, for boards
// that have no sysfs GPIO. Pins are addressed by their GPIO<n> name.
func NewPeriphBridge(cfg HardwareConfig) (API, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "host.Init failed")
	}
	cfg.setDefaults()
	return &periphBridge{
		i2cAnalog: i2cAnalog{config: cfg},
		pins:      make(map[Pin]gpio.PinIO),
		modes:     make(map[Pin]PinMode),
		levels:    make(map[Pin]bool),
	}, nil
}

// lookup returns the periph pin for the given pin number.
// Caller must hold the mutex.
func (p *periphBridge) lookup(pin Pin) (gpio.PinIO, error) {
	if io, found := p.pins[pin]; found {
		return io, nil
	}
	io := gpioreg.ByName(fmt.Sprintf("GPIO%d", pin))
	if io == nil {
		return nil, errors.Wrapf(InvalidPinError, "pin %d", pin)
	}
	p.pins[pin] = io
	return io, nil
}

// SetPinMode configures the given pin as input or output.
func (p *periphBridge) SetPinMode(pin Pin, mode PinMode) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	io, err := p.lookup(pin)
	if err != nil {
		return err
	}
	switch mode {
	case PinModeInput:
		if err := io.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
			return errors.Wrapf(err, "In[%s] failed", io.Name())
		}
	case PinModeOutput:
		if err := io.Out(gpio.Level(p.levels[pin])); err != nil {
			return errors.Wrapf(err, "Out[%s] failed", io.Name())
		}
	default:
		return errors.Wrapf(NotSupportedError, "pin mode %d", mode)
	}
	p.modes[pin] = mode
	return nil
}

// DigitalWrite commands the output level of the given pin.
func (p *periphBridge) DigitalWrite(pin Pin, high bool) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	io, err := p.lookup(pin)
	if err != nil {
		return err
	}
	p.levels[pin] = high
	if p.modes[pin] == PinModeOutput {
		if err := io.Out(gpio.Level(high)); err != nil {
			return errors.Wrapf(err, "Out[%s] failed", io.Name())
		}
	}
	return nil
}

// Close releases the I2C bus and halts all used pins.
func (p *periphBridge) Close() error {
	var ae aerr.AggregateError
	p.mutex.Lock()
	for pin, io := range p.pins {
		if err := io.Halt(); err != nil {
			ae.Add(errors.Wrapf(err, "Halt[%s] failed", io.Name()))
		}
		delete(p.pins, pin)
	}
	p.mutex.Unlock()
	ae.Add(p.i2cAnalog.close())
	return ae.AsError()
}
