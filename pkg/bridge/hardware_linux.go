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
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	defaultI2CLocation = "/dev/i2c-1"
)

// HardwareConfig configures the bridges that run on real Linux boards.
type HardwareConfig struct {
	// Device file of the I2C bus the ADS1115 converter is attached to.
	I2CLocation string
	// I2C address of the ADS1115 converter.
	ADCAddress uint8
}

func (c *HardwareConfig) setDefaults() {
	if c.I2CLocation == "" {
		c.I2CLocation = defaultI2CLocation
	}
	if c.ADCAddress == 0 {
		c.ADCAddress = ads1115DefaultAddress
	}
}

// mmapAllocator probes memory with anonymous private mappings.
type mmapAllocator struct{}

// TryAllocate maps size bytes; the returned function unmaps them.
func (mmapAllocator) TryAllocate(size int) (func(), error) {
	if size <= 0 {
		return nil, errors.Wrapf(NotSupportedError, "allocation of %d bytes", size)
	}
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err == unix.ENOMEM {
		return nil, errors.Wrapf(OutOfMemoryError, "allocation of %d bytes", size)
	} else if err != nil {
		return nil, maskAny(err)
	}
	var once sync.Once
	return func() {
		once.Do(func() { unix.Munmap(b) })
	}, nil
}

// i2cAnalog provides analog input and conversion control through an
// ADS1115 converter. The I2C bus is opened on first use.
type i2cAnalog struct {
	mutex  sync.Mutex
	config HardwareConfig
	bus    I2CBus
	adc    *ads1115
}

// converter opens the bus (if needed) and returns the ADS1115.
func (a *i2cAnalog) converter() (*ads1115, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.adc == nil {
		bus, err := NewI2CBus(a.config.I2CLocation)
		if err != nil {
			return nil, errors.Wrap(err, "NewI2CBus failed")
		}
		a.bus = bus
		a.adc = newADS1115(bus, a.config.ADCAddress)
	}
	return a.adc, nil
}

// AnalogRead performs a single conversion on the given pin.
func (a *i2cAnalog) AnalogRead(pin Pin) (uint16, error) {
	adc, err := a.converter()
	if err != nil {
		return 0, err
	}
	return adc.AnalogRead(pin)
}

// MaxAnalogValue returns the largest value AnalogRead can return.
func (a *i2cAnalog) MaxAnalogValue() uint16 {
	return ads1115MaxValue
}

// ReadConversionControl returns the conversion-control byte of the ADS1115.
func (a *i2cAnalog) ReadConversionControl() (uint8, error) {
	adc, err := a.converter()
	if err != nil {
		return 0, err
	}
	return adc.ReadConversionControl()
}

// WriteConversionControl overwrites the conversion-control byte of the ADS1115.
func (a *i2cAnalog) WriteConversionControl(value uint8) error {
	adc, err := a.converter()
	if err != nil {
		return err
	}
	return adc.WriteConversionControl(value)
}

// close the bus if it was opened.
func (a *i2cAnalog) close() error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.bus != nil {
		bus := a.bus
		a.bus = nil
		a.adc = nil
		if err := bus.Close(); err != nil {
			return errors.Wrap(err, "Close failed")
		}
	}
	return nil
}
