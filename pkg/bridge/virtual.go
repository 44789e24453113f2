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
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	defaultVirtualPinCount          = 20
	defaultVirtualHeapSize          = 2048
	defaultVirtualMaxAnalogValue    = 1023
	defaultVirtualConversionControl = 0x87 // enabled, prescaler 128
)

// VirtualConfig configures a virtual bridge.
// Zero values select defaults that resemble a small 8-bit board.
type VirtualConfig struct {
	// Number of pins (0...PinCount-1)
	PinCount int
	// Largest contiguous block the heap can hand out.
	HeapSize int
	// Maximum value of an analog conversion.
	MaxAnalogValue uint16
	// Initial value of the conversion-control register.
	// 0 selects the default unless HasConversionControl is set.
	ConversionControl    uint8
	HasConversionControl bool
	// Record hardware actions in the event log (see Events).
	// Off by default, the log grows with every action.
	RecordEvents bool
}

// EventKind identifies what happened on a virtual bridge.
type EventKind byte

const (
	EventPinMode EventKind = iota
	EventDigitalWrite
	EventDelay
	EventAnalogRead
	EventConversionControl
)

// Event is a single recorded hardware action on a virtual bridge.
type Event struct {
	// Virtual time at which the event started.
	At   time.Duration
	Kind EventKind
	Pin  Pin
	Mode PinMode
	High bool
	// Duration of a delay.
	Duration time.Duration
	// Converted value for analog reads, register value otherwise.
	Value uint16
	// Conversion-control register at the time of an analog read.
	Control uint8
}

// VirtualBridge simulates a board in memory.
// Time only advances through Delay, so blocking helpers run instantly.
type VirtualBridge struct {
	mutex     sync.Mutex
	config    VirtualConfig
	modes     []PinMode
	levels    []bool
	analog    map[Pin][]uint16
	control   uint8
	largest   int
	allocated int
	now       time.Duration
	events    []Event
}

var _ API = &VirtualBridge{}

// NewVirtualBridge implements the bridge for a simulated board.
func NewVirtualBridge(cfg VirtualConfig) *VirtualBridge {
	if cfg.PinCount <= 0 {
		cfg.PinCount = defaultVirtualPinCount
	}
	if cfg.HeapSize <= 0 {
		cfg.HeapSize = defaultVirtualHeapSize
	}
	if cfg.MaxAnalogValue == 0 {
		cfg.MaxAnalogValue = defaultVirtualMaxAnalogValue
	}
	if cfg.ConversionControl == 0 && !cfg.HasConversionControl {
		cfg.ConversionControl = defaultVirtualConversionControl
	}
	return &VirtualBridge{
		config:  cfg,
		modes:   make([]PinMode, cfg.PinCount),
		levels:  make([]bool, cfg.PinCount),
		analog:  make(map[Pin][]uint16),
		control: cfg.ConversionControl,
		largest: cfg.HeapSize,
	}
}

// SetPinMode configures the given pin as input or output.
func (p *VirtualBridge) SetPinMode(pin Pin, mode PinMode) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if err := p.checkPin(pin); err != nil {
		return err
	}
	p.modes[pin] = mode
	p.record(Event{Kind: EventPinMode, Pin: pin, Mode: mode})
	return nil
}

// DigitalWrite commands the output level of the given pin.
func (p *VirtualBridge) DigitalWrite(pin Pin, high bool) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if err := p.checkPin(pin); err != nil {
		return err
	}
	p.levels[pin] = high
	p.record(Event{Kind: EventDigitalWrite, Pin: pin, Mode: p.modes[pin], High: high})
	return nil
}

// Delay advances the virtual clock.
func (p *VirtualBridge) Delay(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.record(Event{Kind: EventDelay, Duration: d})
	p.now += d
	return nil
}

// AnalogRead returns the next queued sample of the given pin.
// The last sample of a pin is repeated once its queue is drained.
// Pins without samples read mid-scale.
func (p *VirtualBridge) AnalogRead(pin Pin) (uint16, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if err := p.checkPin(pin); err != nil {
		return 0, err
	}
	value := p.config.MaxAnalogValue / 2
	if q := p.analog[pin]; len(q) > 0 {
		value = q[0]
		if len(q) > 1 {
			p.analog[pin] = q[1:]
		}
	}
	p.record(Event{Kind: EventAnalogRead, Pin: pin, Value: value, Control: p.control})
	return value, nil
}

// MaxAnalogValue returns the largest value AnalogRead can return.
func (p *VirtualBridge) MaxAnalogValue() uint16 {
	return p.config.MaxAnalogValue
}

// TryAllocate allocates from the simulated heap.
func (p *VirtualBridge) TryAllocate(size int) (func(), error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if size <= 0 {
		return nil, errors.Wrapf(NotSupportedError, "allocation of %d bytes", size)
	}
	if size > p.largest {
		return nil, errors.Wrapf(OutOfMemoryError, "allocation of %d bytes", size)
	}
	p.largest -= size
	p.allocated += size
	var once sync.Once
	return func() {
		once.Do(func() {
			p.mutex.Lock()
			defer p.mutex.Unlock()
			p.largest += size
			p.allocated -= size
		})
	}, nil
}

// ReadConversionControl returns the simulated conversion-control register.
func (p *VirtualBridge) ReadConversionControl() (uint8, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return p.control, nil
}

// WriteConversionControl overwrites the simulated conversion-control register.
func (p *VirtualBridge) WriteConversionControl(value uint8) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.control = value
	p.record(Event{Kind: EventConversionControl, Value: uint16(value)})
	return nil
}

// Close the bridge.
func (p *VirtualBridge) Close() error {
	return nil
}

// SetAnalogSamples queues the samples returned by subsequent reads of the given pin.
func (p *VirtualBridge) SetAnalogSamples(pin Pin, samples ...uint16) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.analog[pin] = append([]uint16(nil), samples...)
}

// SetLargestFreeBlock changes the largest block the simulated heap can hand out.
func (p *VirtualBridge) SetLargestFreeBlock(size int) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.largest = size
}

// Allocated returns the number of bytes currently allocated.
func (p *VirtualBridge) Allocated() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return p.allocated
}

// PinState returns the mode and commanded level of the given pin.
func (p *VirtualBridge) PinState(pin Pin) (PinMode, bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return p.modes[pin], p.levels[pin]
}

// Events returns a copy of all recorded events.
// Always empty unless RecordEvents is set.
func (p *VirtualBridge) Events() []Event {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return append([]Event(nil), p.events...)
}

// ResetEvents clears the event log.
func (p *VirtualBridge) ResetEvents() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.events = nil
}

// Now returns the virtual time.
func (p *VirtualBridge) Now() time.Duration {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return p.now
}

func (p *VirtualBridge) checkPin(pin Pin) error {
	if int(pin) >= p.config.PinCount {
		return errors.Wrapf(InvalidPinError, "pin %d", pin)
	}
	return nil
}

// record appends an event stamped with the current virtual time.
// Caller must hold the mutex.
func (p *VirtualBridge) record(e Event) {
	if !p.config.RecordEvents {
		return
	}
	e.At = p.now
	p.events = append(p.events, e)
}
