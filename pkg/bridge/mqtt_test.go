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
	"testing"

	"github.com/rs/zerolog"
)

func newTestMQTTBridge(prefix string) *mqttBridge {
	return &mqttBridge{
		log:    zerolog.Nop(),
		config: MQTTConfig{TopicPrefix: prefix, MaxAnalogValue: 1023},
		states: make(map[string]string),
	}
}

func TestMQTTAnalogState(t *testing.T) {
	b := newTestMQTTBridge("board1/")
	if _, err := b.AnalogRead(3); !IsNotAvailable(err) {
		t.Errorf("Expected NotAvailableError, got %v", err)
	}
	b.handleState("board1/pin3/analog", " 512\n")
	b.handleState("board1/pin3/mode", "input")
	b.handleState("board1/pin4/analog", "high")
	v, err := b.AnalogRead(3)
	if err != nil {
		t.Fatalf("AnalogRead failed: %v", err)
	}
	if v != 512 {
		t.Errorf("Expected 512, got %d", v)
	}
	if _, err := b.AnalogRead(4); err == nil || IsNotAvailable(err) {
		t.Errorf("Expected parse error, got %v", err)
	}
	if _, found := b.states["pin3/mode"]; found {
		t.Error("Expected non-analog state to be ignored")
	}
}

func TestMQTTUnsupported(t *testing.T) {
	b := newTestMQTTBridge("")
	if _, err := b.TryAllocate(10); !IsNotSupported(err) {
		t.Errorf("Expected NotSupportedError, got %v", err)
	}
	if _, err := b.ReadConversionControl(); !IsNotSupported(err) {
		t.Errorf("Expected NotSupportedError, got %v", err)
	}
	if err := b.WriteConversionControl(1); !IsNotSupported(err) {
		t.Errorf("Expected NotSupportedError, got %v", err)
	}
	if err := b.DigitalWrite(1, true); err == nil {
		t.Error("Expected publish on closed bridge to fail")
	}
	if b.pinTopic(7, "mode") != "pin7/mode" {
		t.Errorf("Unexpected topic %s", b.pinTopic(7, "mode"))
	}
}

func TestFormatBool(t *testing.T) {
	if formatBool(true) != "1" || formatBool(false) != "0" {
		t.Error("Unexpected bool format")
	}
}
