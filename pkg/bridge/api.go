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

package bridge

import (
	"context"
	"time"
)

// Pin identifies a single hardware I/O line.
type Pin uint8

// PinMode is the configuration of a digital pin.
type PinMode byte

const (
	PinModeInput PinMode = iota
	PinModeOutput
)

// String returns a human readable mode.
func (m PinMode) String() string {
	switch m {
	case PinModeInput:
		return "input"
	case PinModeOutput:
		return "output"
	default:
		return "unknown"
	}
}

// API of the bridge, the hardware (or simulation of it) that sketch
// helpers run against.
type API interface {
	DigitalPins
	Clock
	AnalogInput
	Allocator
	ConversionControl

	// Close releases all hardware resources held by the bridge.
	Close() error
}

// DigitalPins configures and drives digital I/O lines.
type DigitalPins interface {
	// SetPinMode configures the given pin as input or output.
	SetPinMode(pin Pin, mode PinMode) error
	// DigitalWrite commands the output level of the given pin.
	// Writing to a pin configured as input only stores the level,
	// it is driven once the pin becomes an output.
	DigitalWrite(pin Pin, high bool) error
}

// Clock provides timed delays.
type Clock interface {
	// Delay blocks for the given duration or until the context is canceled.
	Delay(ctx context.Context, d time.Duration) error
}

// AnalogInput performs raw analog-to-digital conversions.
type AnalogInput interface {
	// AnalogRead performs a single conversion on the given pin.
	AnalogRead(pin Pin) (uint16, error)
	// MaxAnalogValue returns the largest value AnalogRead can return.
	MaxAnalogValue() uint16
}

// Allocator gives access to the dynamic memory allocator of the board.
type Allocator interface {
	// TryAllocate allocates a contiguous block of size bytes.
	// On success the returned function releases the block.
	// When no such block is available, an OutOfMemoryError is returned.
	TryAllocate(size int) (release func(), err error)
}

// ConversionControl gives access to the conversion-control register of
// the analog-to-digital converter.
// The low 3 bits of the register select the conversion clock prescaler.
type ConversionControl interface {
	// ReadConversionControl returns the current register value.
	ReadConversionControl() (uint8, error)
	// WriteConversionControl overwrites the register.
	WriteConversionControl(value uint8) error
}

// realClock delays using wall-clock time.
type realClock struct{}

// Delay blocks for the given duration or until the context is canceled.
func (realClock) Delay(ctx context.Context, d time.Duration) error {
	return sleep(ctx, d)
}

// sleep blocks for the given duration or until the context is canceled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
