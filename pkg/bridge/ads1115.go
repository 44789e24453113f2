// Copyright 2022 Ewout Prangsma
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

package bridge

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	// Registry addresses
	ads1115RegConversion = 0x00
	ads1115RegConfig     = 0x01

	// Default I2C address (ADDR pin to GND)
	ads1115DefaultAddress = 0x48
	ads1115ChannelCount   = 4
	// Positive full scale of a single-ended conversion
	ads1115MaxValue = 0x7FFF

	ads1115ConversionTimeout = time.Millisecond * 500
)

const (
	ADS1X15_REG_CONFIG_OS_MASK    = (0x8000) ///< OS Mask
	ADS1X15_REG_CONFIG_OS_SINGLE  = (0x8000) ///< Write: Set to start a single-conversion
	ADS1X15_REG_CONFIG_OS_NOTBUSY = (0x8000) ///< Read: Bit = 1 when device is not performing a conversion

	ADS1X15_REG_CONFIG_MUX_MASK     = (0x7000) ///< Mux Mask
	ADS1X15_REG_CONFIG_MUX_SINGLE_0 = (0x4000) ///< Single-ended AIN0
	ADS1X15_REG_CONFIG_MUX_SINGLE_1 = (0x5000) ///< Single-ended AIN1
	ADS1X15_REG_CONFIG_MUX_SINGLE_2 = (0x6000) ///< Single-ended AIN2
	ADS1X15_REG_CONFIG_MUX_SINGLE_3 = (0x7000) ///< Single-ended AIN3

	ADS1X15_REG_CONFIG_PGA_6_144V = (0x0000) ///< +/-6.144V range = Gain 2/3

	ADS1X15_REG_CONFIG_MODE_SINGLE = (0x0100) ///< Power-down single-shot mode (default)

	ADS1X15_REG_CONFIG_CMODE_TRAD   = (0x0000) ///< Traditional comparator with hysteresis (default)
	ADS1X15_REG_CONFIG_CPOL_ACTVLOW = (0x0000) ///< ALERT/RDY pin is low when active (default)
	ADS1X15_REG_CONFIG_CLAT_NONLAT  = (0x0000) ///< Non-latching comparator (default)
	ADS1X15_REG_CONFIG_CQUE_NONE    = (0x0003) ///< Disable the comparator and put ALERT/RDY in high state (default)

	RATE_ADS1115_8SPS   = (0x0000) ///< 8 samples per second
	RATE_ADS1115_128SPS = (0x0080) ///< 128 samples per second (device default)
)

const (
	// The conversion-control byte is config bits 5..11: data rate in
	// bits 0-2 (the "prescaler"), operating mode in bit 3, gain in bits 4-6.
	ads1115ControlShift = 5
	ads1115ControlMask  = 0x7F
)

var (
	ads1115MuxByChannel = []uint16{
		ADS1X15_REG_CONFIG_MUX_SINGLE_0,
		ADS1X15_REG_CONFIG_MUX_SINGLE_1,
		ADS1X15_REG_CONFIG_MUX_SINGLE_2,
		ADS1X15_REG_CONFIG_MUX_SINGLE_3,
	}
)

// ads1115 is an analog input on an ADS1115 converter.
// Pins 0..3 map to single-ended inputs AIN0..AIN3.
type ads1115 struct {
	mutex   sync.Mutex
	bus     I2CBus
	address uint8
	// Config bits without OS and MUX fields
	config uint16
}

// newADS1115 creates an analog input for an ADS1115 device at given address.
// Conversions run at the slowest, most precise data rate until the
// conversion-control byte selects another one.
func newADS1115(bus I2CBus, address uint8) *ads1115 {
	return &ads1115{
		bus:     bus,
		address: address,
		config: ADS1X15_REG_CONFIG_CQUE_NONE |
			ADS1X15_REG_CONFIG_CLAT_NONLAT |
			ADS1X15_REG_CONFIG_CPOL_ACTVLOW |
			ADS1X15_REG_CONFIG_CMODE_TRAD |
			RATE_ADS1115_8SPS |
			ADS1X15_REG_CONFIG_MODE_SINGLE |
			ADS1X15_REG_CONFIG_PGA_6_144V,
	}
}

// AnalogRead performs a single-shot conversion on the given channel.
// Negative results are clamped to 0.
func (d *ads1115) AnalogRead(pin Pin) (uint16, error) {
	if int(pin) >= ads1115ChannelCount {
		return 0, errors.Wrapf(InvalidPinError, "ads1115 channel %d", pin)
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), ads1115ConversionTimeout)
	defer cancel()

	// Trigger a conversion
	configBits := d.config | ads1115MuxByChannel[pin] | ADS1X15_REG_CONFIG_OS_SINGLE
	if err := d.writeWordReg(ctx, ads1115RegConfig, configBits); err != nil {
		return 0, err
	}
	ads1115ConversionsTotal.WithLabelValues(strconv.Itoa(int(pin))).Inc()

	// Wait until conversion ready
	for {
		if err := ctx.Err(); err != nil {
			return 0, maskAny(err)
		}
		status, err := d.readWordReg(ctx, ads1115RegConfig)
		if err != nil {
			return 0, err
		}
		if status&ADS1X15_REG_CONFIG_OS_MASK == ADS1X15_REG_CONFIG_OS_NOTBUSY {
			break
		}
		time.Sleep(time.Millisecond)
	}

	result, err := d.readWordReg(ctx, ads1115RegConversion)
	if err != nil {
		return 0, err
	}
	return clampConversion(result), nil
}

// MaxAnalogValue returns the positive full scale value.
func (d *ads1115) MaxAnalogValue() uint16 {
	return ads1115MaxValue
}

// ReadConversionControl returns the data rate, mode and gain bits.
func (d *ads1115) ReadConversionControl() (uint8, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	return controlFromConfig(d.config), nil
}

// WriteConversionControl replaces the data rate, mode and gain bits
// used for subsequent conversions.
func (d *ads1115) WriteConversionControl(value uint8) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.config = configWithControl(d.config, value)
	return nil
}

// controlFromConfig extracts the conversion-control byte from config bits.
func controlFromConfig(config uint16) uint8 {
	return uint8((config >> ads1115ControlShift) & ads1115ControlMask)
}

// configWithControl replaces the conversion-control part of config bits.
func configWithControl(config uint16, control uint8) uint16 {
	config &^= ads1115ControlMask << ads1115ControlShift
	return config | (uint16(control)&ads1115ControlMask)<<ads1115ControlShift
}

// clampConversion turns a two's complement conversion result into
// a non-negative sample.
func clampConversion(raw uint16) uint16 {
	if int16(raw) < 0 {
		return 0
	}
	return raw
}

// read a 16-bit register
func (d *ads1115) readWordReg(ctx context.Context, reg uint8) (uint16, error) {
	var result uint16
	if err := d.bus.Execute(ctx, d.address, func(ctx context.Context, dev I2CDevice) error {
		var buf [3]uint8
		buf[0] = reg
		if err := dev.WriteDevice(buf[:1]); err != nil {
			return fmt.Errorf("failed to write registry: %w", err)
		}
		if err := dev.ReadDevice(buf[1:]); err != nil {
			return fmt.Errorf("failed to read word: %w", err)
		}
		// ADS115 transfers MSB first
		result = (uint16(buf[1]) << 8) | uint16(buf[2])
		return nil
	}); err != nil {
		return 0, err
	}
	return result, nil
}

// write a 16-bit register value
func (d *ads1115) writeWordReg(ctx context.Context, reg uint8, value uint16) error {
	buf := [3]uint8{reg, uint8(value >> 8), uint8(value)}
	return d.bus.Execute(ctx, d.address, func(ctx context.Context, dev I2CDevice) error {
		return dev.WriteDevice(buf[:])
	})
}
