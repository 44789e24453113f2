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
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/SketchKit/pkg/bridge"
)

func TestOpenDrain(t *testing.T) {
	k, vb := newTestKit(t, bridge.VirtualConfig{})
	const pin = bridge.Pin(5)

	if err := k.OpenDrain(pin, true); err != nil {
		t.Fatalf("OpenDrain(true) failed: %v", err)
	}
	if mode, high := vb.PinState(pin); mode != bridge.PinModeInput || high {
		t.Errorf("Expected input/low, got %s/%v", mode, high)
	}

	if err := k.OpenDrain(pin, false); err != nil {
		t.Fatalf("OpenDrain(false) failed: %v", err)
	}
	if mode, high := vb.PinState(pin); mode != bridge.PinModeOutput || high {
		t.Errorf("Expected output/low, got %s/%v", mode, high)
	}

	// Mode is configured before the level is commanded.
	events := vb.Events()
	if len(events) != 4 {
		t.Fatalf("Expected 4 events, got %d", len(events))
	}
	expected := []bridge.EventKind{bridge.EventPinMode, bridge.EventDigitalWrite, bridge.EventPinMode, bridge.EventDigitalWrite}
	for i, e := range events {
		if e.Kind != expected[i] {
			t.Errorf("Event %d: expected kind %d, got %d", i, expected[i], e.Kind)
		}
		if e.Kind == bridge.EventDigitalWrite && e.High {
			t.Errorf("Event %d: pin must never be driven high", i)
		}
	}
}

func TestOpenDrainInvalidPin(t *testing.T) {
	k, _ := newTestKit(t, bridge.VirtualConfig{PinCount: 4})
	if err := k.OpenDrain(4, true); !bridge.IsInvalidPin(err) {
		t.Errorf("Expected InvalidPinError, got %v", err)
	}
}

// transitions counts high to low transitions and collects delays.
func transitions(events []bridge.Event, pin bridge.Pin) (int, []time.Duration) {
	count := 0
	high := false
	var delays []time.Duration
	for _, e := range events {
		switch e.Kind {
		case bridge.EventDigitalWrite:
			if e.Pin != pin {
				continue
			}
			if high && !e.High {
				count++
			}
			high = e.High
		case bridge.EventDelay:
			delays = append(delays, e.Duration)
		}
	}
	return count, delays
}

func TestBlinkLED(t *testing.T) {
	for _, n := range []uint8{0, 1, DefaultBlinkCount, 10} {
		k, vb := newTestKit(t, bridge.VirtualConfig{})
		const pin = bridge.Pin(13)
		if err := k.BlinkLED(context.Background(), pin, n); err != nil {
			t.Fatalf("BlinkLED(%d) failed: %v", n, err)
		}
		if mode, high := vb.PinState(pin); mode != bridge.PinModeOutput || high {
			t.Errorf("n=%d: expected output/low after blinking, got %s/%v", n, mode, high)
		}
		count, delays := transitions(vb.Events(), pin)
		if count != int(n) {
			t.Errorf("n=%d: expected %d transitions, got %d", n, n, count)
		}
		if len(delays) != 2*int(n) {
			t.Errorf("n=%d: expected %d delays, got %d", n, 2*int(n), len(delays))
		}
		for _, d := range delays {
			if d != BlinkHold {
				t.Errorf("n=%d: expected hold of %s, got %s", n, BlinkHold, d)
			}
		}
		if vb.Now() != time.Duration(n)*2*BlinkHold {
			t.Errorf("n=%d: expected elapsed %s, got %s", n, time.Duration(n)*2*BlinkHold, vb.Now())
		}
	}
}

func TestBlinkLEDCanceled(t *testing.T) {
	k, vb := newTestKit(t, bridge.VirtualConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := k.BlinkLED(ctx, 2, 3)
	if errors.Cause(err) != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if _, high := vb.PinState(2); high {
		t.Error("Expected LED to be left off")
	}
}

// ledOffFailure fails every attempt to drive a pin low.
type ledOffFailure struct {
	*bridge.VirtualBridge
}

func (b ledOffFailure) DigitalWrite(pin bridge.Pin, high bool) error {
	if !high {
		return errors.New("pin stuck")
	}
	return b.VirtualBridge.DigitalWrite(pin, high)
}

func TestBlinkLEDCanceledLogsTurnOffFailure(t *testing.T) {
	var buf bytes.Buffer
	k, err := New(Dependencies{
		Log:    zerolog.New(&buf).Level(zerolog.DebugLevel),
		Bridge: ledOffFailure{bridge.NewVirtualBridge(bridge.VirtualConfig{})},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = k.BlinkLED(ctx, 2, 1)
	if errors.Cause(err) != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if !strings.Contains(buf.String(), "failed to turn LED off") || !strings.Contains(buf.String(), "pin stuck") {
		t.Errorf("Expected turn-off failure to be logged, got %q", buf.String())
	}
}
