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
package bridge

import (
	"context"
	"testing"

	"github.com/pkg/errors"
)

// fakeADS1115 models the register pointer and registers of a converter.
type fakeADS1115 struct {
	pointer    uint8
	config     uint16
	conversion uint16
	busyReads  int
	writes     []uint16
}

func (f *fakeADS1115) Execute(ctx context.Context, address uint8, op func(context.Context, I2CDevice) error) error {
	if address != ads1115DefaultAddress {
		return errors.Errorf("no device at 0x%02x", address)
	}
	return op(ctx, f)
}

func (f *fakeADS1115) Close() error { return nil }

func (f *fakeADS1115) WriteDevice(data []byte) error {
	f.pointer = data[0]
	if len(data) == 3 {
		value := uint16(data[1])<<8 | uint16(data[2])
		f.writes = append(f.writes, value)
		if f.pointer == ads1115RegConfig {
			// Conversion starts, OS bit reads 0 while busy
			f.config = value &^ ADS1X15_REG_CONFIG_OS_MASK
		}
	}
	return nil
}

func (f *fakeADS1115) ReadDevice(data []byte) error {
	var value uint16
	switch f.pointer {
	case ads1115RegConfig:
		value = f.config
		if f.busyReads > 0 {
			f.busyReads--
		} else {
			value |= ADS1X15_REG_CONFIG_OS_NOTBUSY
		}
	case ads1115RegConversion:
		value = f.conversion
	}
	data[0] = uint8(value >> 8)
	data[1] = uint8(value)
	return nil
}

func TestADS1115AnalogRead(t *testing.T) {
	bus := &fakeADS1115{conversion: 0x1234, busyReads: 2}
	d := newADS1115(bus, ads1115DefaultAddress)
	v, err := d.AnalogRead(2)
	if err != nil {
		t.Fatalf("AnalogRead failed: %v", err)
	}
	if v != 0x1234 {
		t.Errorf("Expected 0x1234, got 0x%04x", v)
	}
	if len(bus.writes) != 1 {
		t.Fatalf("Expected 1 config write, got %d", len(bus.writes))
	}
	w := bus.writes[0]
	if w&ADS1X15_REG_CONFIG_MUX_MASK != ADS1X15_REG_CONFIG_MUX_SINGLE_2 {
		t.Errorf("Expected mux of AIN2, got 0x%04x", w)
	}
	if w&ADS1X15_REG_CONFIG_OS_MASK != ADS1X15_REG_CONFIG_OS_SINGLE {
		t.Errorf("Expected single conversion start, got 0x%04x", w)
	}
	if d.MaxAnalogValue() != 0x7FFF {
		t.Errorf("Expected 0x7FFF, got 0x%04x", d.MaxAnalogValue())
	}
}

func TestADS1115InvalidChannel(t *testing.T) {
	d := newADS1115(&fakeADS1115{}, ads1115DefaultAddress)
	if _, err := d.AnalogRead(4); !IsInvalidPin(err) {
		t.Errorf("Expected InvalidPinError, got %v", err)
	}
}

func TestADS1115ConversionControl(t *testing.T) {
	bus := &fakeADS1115{}
	d := newADS1115(bus, ads1115DefaultAddress)
	c, err := d.ReadConversionControl()
	if err != nil {
		t.Fatalf("ReadConversionControl failed: %v", err)
	}
	// 8SPS (rate 0), single-shot mode, gain 2/3
	if c != 0x08 {
		t.Errorf("Expected 0x08, got 0x%02x", c)
	}
	if err := d.WriteConversionControl(0x0F); err != nil {
		t.Fatalf("WriteConversionControl failed: %v", err)
	}
	if _, err := d.AnalogRead(0); err != nil {
		t.Fatalf("AnalogRead failed: %v", err)
	}
	if rate := (bus.writes[0] >> ads1115ControlShift) & 0x07; rate != 0x07 {
		t.Errorf("Expected rate 7 in config write, got %d", rate)
	}
	if bus.writes[0]&ADS1X15_REG_CONFIG_CQUE_NONE != ADS1X15_REG_CONFIG_CQUE_NONE {
		t.Error("Expected comparator bits to be preserved")
	}
}

func TestConfigWithControl(t *testing.T) {
	tests := []struct {
		config   uint16
		control  uint8
		expected uint16
	}{
		{0x0000, 0x00, 0x0000},
		{0xFFFF, 0x00, 0xF01F},
		{0x0000, 0x7F, 0x0FE0},
		{0x0000, 0xFF, 0x0FE0},
		{0x8583, 0x07, 0x80E3},
	}
	for _, test := range tests {
		got := configWithControl(test.config, test.control)
		if got != test.expected {
			t.Errorf("configWithControl(0x%04x, 0x%02x): expected 0x%04x, got 0x%04x", test.config, test.control, test.expected, got)
		}
		if c := controlFromConfig(got); c != test.control&ads1115ControlMask {
			t.Errorf("controlFromConfig(0x%04x): expected 0x%02x, got 0x%02x", got, test.control&ads1115ControlMask, c)
		}
	}
}

func TestClampConversion(t *testing.T) {
	tests := map[uint16]uint16{
		0x0000: 0,
		0x0001: 1,
		0x7FFF: 0x7FFF,
		0x8000: 0,
		0xFFFF: 0,
	}
	for raw, expected := range tests {
		if got := clampConversion(raw); got != expected {
			t.Errorf("clampConversion(0x%04x): expected %d, got %d", raw, expected, got)
		}
	}
}

func TestADS1115FastRateDiffersFromBaseline(t *testing.T) {
	bus := &fakeADS1115{}
	d := newADS1115(bus, ads1115DefaultAddress)
	if _, err := d.AnalogRead(1); err != nil {
		t.Fatalf("AnalogRead failed: %v", err)
	}
	original, _ := d.ReadConversionControl()
	// Select data rate 4 in the low 3 bits, as the default fast read does.
	if err := d.WriteConversionControl((original &^ 0x07) | 4); err != nil {
		t.Fatalf("WriteConversionControl failed: %v", err)
	}
	if _, err := d.AnalogRead(1); err != nil {
		t.Fatalf("AnalogRead failed: %v", err)
	}
	d.WriteConversionControl(original)
	if _, err := d.AnalogRead(1); err != nil {
		t.Fatalf("AnalogRead failed: %v", err)
	}

	rate := func(config uint16) uint16 { return (config >> ads1115ControlShift) & 0x07 }
	normal, fast, restored := bus.writes[0], bus.writes[1], bus.writes[2]
	if normal == fast {
		t.Errorf("Expected fast config to differ from normal config 0x%04x", normal)
	}
	if rate(fast) <= rate(normal) {
		t.Errorf("Expected fast data rate above %d, got %d", rate(normal), rate(fast))
	}
	if restored != normal {
		t.Errorf("Expected config 0x%04x after restore, got 0x%04x", normal, restored)
	}
}
