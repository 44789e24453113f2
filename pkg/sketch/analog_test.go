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
	"testing"

	"github.com/pkg/errors"

	"github.com/binkynet/SketchKit/pkg/bridge"
)

func TestAnalogAverageConstant(t *testing.T) {
	for _, v := range []uint16{1, 2, 511, 1000, 1022} {
		for _, n := range []int{1, 2, 3, 7, 64, 1000} {
			k, vb := newTestKit(t, bridge.VirtualConfig{})
			vb.SetAnalogSamples(0, v)
			got, err := k.AnalogAverage(0, n)
			if err != nil {
				t.Fatalf("AnalogAverage failed: %v", err)
			}
			if got != v {
				t.Errorf("v=%d n=%d: expected %d, got %d", v, n, v, got)
			}
			got, overflow, err := k.AnalogAverageOverflow(0, n)
			if err != nil {
				t.Fatalf("AnalogAverageOverflow failed: %v", err)
			}
			if got != v || overflow {
				t.Errorf("v=%d n=%d: expected %d/false, got %d/%v", v, n, v, got, overflow)
			}
		}
	}
}

func TestAnalogAverageTruncates(t *testing.T) {
	k, vb := newTestKit(t, bridge.VirtualConfig{})
	vb.SetAnalogSamples(3, 10, 11, 11)
	got, err := k.AnalogAverage(3, 3)
	if err != nil {
		t.Fatalf("AnalogAverage failed: %v", err)
	}
	if got != 10 {
		t.Errorf("Expected 10, got %d", got)
	}
}

func TestAnalogAverageWideAccumulator(t *testing.T) {
	k, vb := newTestKit(t, bridge.VirtualConfig{MaxAnalogValue: 0xFFFF})
	vb.SetAnalogSamples(1, 0xFFFE)
	got, err := k.AnalogAverage(1, 100000)
	if err != nil {
		t.Fatalf("AnalogAverage failed: %v", err)
	}
	if got != 0xFFFE {
		t.Errorf("Expected %d, got %d", 0xFFFE, got)
	}
}

func TestAnalogAverageOverflow(t *testing.T) {
	tests := []struct {
		samples  []uint16
		overflow bool
	}{
		{[]uint16{1, 500, 1022}, false},
		{[]uint16{1023, 500, 500}, true},
		{[]uint16{500, 1023, 500}, true},
		{[]uint16{500, 500, 0}, true},
		{[]uint16{0, 500, 500}, true},
		{[]uint16{500, 500, 1023}, true},
	}
	for _, test := range tests {
		k, vb := newTestKit(t, bridge.VirtualConfig{})
		vb.SetAnalogSamples(2, test.samples...)
		_, overflow, err := k.AnalogAverageOverflow(2, len(test.samples))
		if err != nil {
			t.Fatalf("AnalogAverageOverflow failed: %v", err)
		}
		if overflow != test.overflow {
			t.Errorf("%v: expected overflow %v, got %v", test.samples, test.overflow, overflow)
		}
	}
}

func TestAnalogAverageInvalidSampleCount(t *testing.T) {
	k, vb := newTestKit(t, bridge.VirtualConfig{})
	for _, n := range []int{0, -1} {
		if _, err := k.AnalogAverage(0, n); !IsInvalidArgument(err) {
			t.Errorf("n=%d: expected InvalidArgumentError, got %v", n, err)
		}
		if _, _, err := k.AnalogAverageOverflow(0, n); !IsInvalidArgument(err) {
			t.Errorf("n=%d: expected InvalidArgumentError, got %v", n, err)
		}
	}
	if len(vb.Events()) != 0 {
		t.Error("Expected no conversions")
	}
}

func TestAnalogReadFast(t *testing.T) {
	const initial = 0x87
	for bits := 0; bits < 256; bits++ {
		k, vb := newTestKit(t, bridge.VirtualConfig{ConversionControl: initial})
		vb.SetAnalogSamples(4, 321)
		got, err := k.AnalogReadFast(4, uint8(bits))
		if err != nil {
			t.Fatalf("AnalogReadFast failed: %v", err)
		}
		if got != 321 {
			t.Errorf("Expected 321, got %d", got)
		}
		after, _ := vb.ReadConversionControl()
		if after != initial {
			t.Errorf("bits=%d: expected register 0x%02x after read, got 0x%02x", bits, initial, after)
		}
		var reads int
		for _, e := range vb.Events() {
			if e.Kind != bridge.EventAnalogRead {
				continue
			}
			reads++
			expected := uint8(initial&^PrescalerMask) | uint8(bits&PrescalerMask)
			if e.Control != expected {
				t.Errorf("bits=%d: expected register 0x%02x during read, got 0x%02x", bits, expected, e.Control)
			}
		}
		if reads != 1 {
			t.Errorf("Expected exactly 1 conversion, got %d", reads)
		}
	}
}

func TestAnalogReadFastRestoresOnReadError(t *testing.T) {
	k, vb := newTestKit(t, bridge.VirtualConfig{PinCount: 2, ConversionControl: 0x86})
	if _, err := k.AnalogReadFast(7, DefaultPrescalerBits); !bridge.IsInvalidPin(err) {
		t.Errorf("Expected InvalidPinError, got %v", err)
	}
	if after, _ := vb.ReadConversionControl(); after != 0x86 {
		t.Errorf("Expected register restored to 0x86, got 0x%02x", after)
	}
}

type brokenControl struct {
	value      uint8
	writes     int
	failWrites map[int]bool
}

func (c *brokenControl) ReadConversionControl() (uint8, error) { return c.value, nil }

func (c *brokenControl) WriteConversionControl(value uint8) error {
	c.writes++
	if c.failWrites[c.writes] {
		return errors.New("write failed")
	}
	c.value = value
	return nil
}

func TestOverridePrescaler(t *testing.T) {
	reg := &brokenControl{value: 0xF5}
	o, err := OverridePrescaler(reg, 0x02)
	if err != nil {
		t.Fatalf("OverridePrescaler failed: %v", err)
	}
	if reg.value != 0xF2 {
		t.Errorf("Expected 0xF2, got 0x%02x", reg.value)
	}
	if o.Original() != 0xF5 {
		t.Errorf("Expected original 0xF5, got 0x%02x", o.Original())
	}
	if err := o.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := o.Release(); err != nil {
		t.Fatalf("Second Release failed: %v", err)
	}
	if reg.value != 0xF5 {
		t.Errorf("Expected 0xF5 after release, got 0x%02x", reg.value)
	}
	if reg.writes != 2 {
		t.Errorf("Expected 2 writes, got %d", reg.writes)
	}
}

func TestOverridePrescalerFailures(t *testing.T) {
	reg := &brokenControl{value: 0x87, failWrites: map[int]bool{1: true}}
	if _, err := OverridePrescaler(reg, 1); err == nil {
		t.Error("Expected override to fail")
	}

	reg = &brokenControl{value: 0x87, failWrites: map[int]bool{2: true}}
	o, err := OverridePrescaler(reg, 1)
	if err != nil {
		t.Fatalf("OverridePrescaler failed: %v", err)
	}
	if err := o.Release(); err == nil {
		t.Error("Expected release to fail")
	}
}
