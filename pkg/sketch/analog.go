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
	"strconv"

	"github.com/pkg/errors"

	"github.com/binkynet/SketchKit/pkg/bridge"
)

const (
	// DefaultPrescalerBits selects a faster, less precise conversion clock
	// for AnalogReadFast.
	DefaultPrescalerBits = 4
	// PrescalerMask selects the prescaler bits of the conversion-control register.
	PrescalerMask = 0x07
)

// AnalogAverage returns the integer mean of the given number of
// consecutive raw conversions on the given pin.
func (k *Kit) AnalogAverage(pin bridge.Pin, samples int) (uint16, error) {
	value, _, err := k.analogAverage(pin, samples)
	return value, err
}

// AnalogAverageOverflow returns the integer mean of the given number of
// consecutive raw conversions on the given pin.
// overflow is true when any sample was at or above the maximum value of
// the converter, or at zero.
func (k *Kit) AnalogAverageOverflow(pin bridge.Pin, samples int) (value uint16, overflow bool, err error) {
	value, overflow, err = k.analogAverage(pin, samples)
	if err != nil {
		return 0, false, err
	}
	if overflow {
		analogOverflowsTotal.WithLabelValues(strconv.Itoa(int(pin))).Inc()
		k.log.Debug().
			Uint8("pin", uint8(pin)).
			Int("samples", samples).
			Uint16("value", value).
			Msg("analog input out of range")
	}
	return value, overflow, nil
}

func (k *Kit) analogAverage(pin bridge.Pin, samples int) (uint16, bool, error) {
	if samples <= 0 {
		return 0, false, errors.Wrapf(InvalidArgumentError, "sample count must be positive, got %d", samples)
	}
	maxValue := k.bridge.MaxAnalogValue()
	var sum uint64
	overflow := false
	for i := 0; i < samples; i++ {
		sample, err := k.bridge.AnalogRead(pin)
		if err != nil {
			return 0, false, maskAny(err)
		}
		sum += uint64(sample)
		if sample >= maxValue || sample == 0 {
			overflow = true
		}
	}
	analogSamplesTotal.WithLabelValues(strconv.Itoa(int(pin))).Add(float64(samples))
	return uint16(sum / uint64(samples)), overflow, nil
}

// AnalogReadFast performs a single conversion on the given pin with the
// prescaler bits of the conversion-control register temporarily replaced
// by prescalerBits. The register is restored before returning.
func (k *Kit) AnalogReadFast(pin bridge.Pin, prescalerBits uint8) (result uint16, err error) {
	override, err := OverridePrescaler(k.bridge, prescalerBits)
	if err != nil {
		return 0, err
	}
	defer func() {
		if rerr := override.Release(); rerr != nil && err == nil {
			result, err = 0, rerr
		}
	}()

	value, err := k.bridge.AnalogRead(pin)
	if err != nil {
		return 0, maskAny(err)
	}
	analogSamplesTotal.WithLabelValues(strconv.Itoa(int(pin))).Inc()
	return value, nil
}

// PrescalerOverride holds a conversion-control register whose prescaler
// bits have been replaced. Release restores the saved value.
type PrescalerOverride struct {
	reg      bridge.ConversionControl
	original uint8
	released bool
}

// OverridePrescaler saves the conversion-control register and replaces its
// prescaler bits with the low 3 bits of prescalerBits, keeping all other bits.
// Callers must Release the returned override, typically with defer.
func OverridePrescaler(reg bridge.ConversionControl, prescalerBits uint8) (*PrescalerOverride, error) {
	original, err := reg.ReadConversionControl()
	if err != nil {
		return nil, maskAny(err)
	}
	if err := reg.WriteConversionControl(withPrescaler(original, prescalerBits)); err != nil {
		return nil, maskAny(err)
	}
	return &PrescalerOverride{
		reg:      reg,
		original: original,
	}, nil
}

// Original returns the register value saved by OverridePrescaler.
func (o *PrescalerOverride) Original() uint8 {
	return o.original
}

// Release restores the saved register value.
// Calling Release more than once has no effect.
func (o *PrescalerOverride) Release() error {
	if o.released {
		return nil
	}
	o.released = true
	if err := o.reg.WriteConversionControl(o.original); err != nil {
		return errors.Wrap(err, "restoring conversion control failed")
	}
	return nil
}

// withPrescaler replaces the prescaler bits of a control register value.
func withPrescaler(control, prescalerBits uint8) uint8 {
	return (control &^ PrescalerMask) | (prescalerBits & PrescalerMask)
}
