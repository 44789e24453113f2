// Copyright 2025 Ewout Prangsma
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
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	mqttapi "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	mqttPublishTimeout      = time.Millisecond * 200
	mqttDefaultMaxAnalog    = 1023
	mqttDisconnectQuiesceMs = 250
)

// MQTTConfig configures a bridge to a remote board that is driven over MQTT.
type MQTTConfig struct {
	// Address (host:port) of the MQTT broker.
	BrokerAddress string
	// Client ID used to connect to the broker.
	ClientID string
	// Prefix of all topics of the remote board, e.g. "board1/".
	TopicPrefix string
	// Maximum value of an analog conversion on the remote board.
	MaxAnalogValue uint16
}

type mqttBridge struct {
	realClock
	log    zerolog.Logger
	config MQTTConfig
	mutex  sync.Mutex
	states map[string]string
	client mqttapi.Client
}

// NewMQTTBridge implements the bridge for a remote board.
// Pin modes and levels are published to <prefix>pin<N>/mode and
// <prefix>pin<N>/command, analog values are taken from the
// <prefix>pin<N>/analog state topics.
func NewMQTTBridge(log zerolog.Logger, cfg MQTTConfig) (API, error) {
	if cfg.BrokerAddress == "" {
		return nil, errors.New("broker address missing")
	}
	if cfg.MaxAnalogValue == 0 {
		cfg.MaxAnalogValue = mqttDefaultMaxAnalog
	}
	if cfg.TopicPrefix != "" {
		cfg.TopicPrefix = strings.TrimSuffix(cfg.TopicPrefix, "/") + "/"
	}
	b := &mqttBridge{
		log:    log.With().Str("component", "mqtt-bridge").Logger(),
		config: cfg,
		states: make(map[string]string),
	}

	opts := mqttapi.NewClientOptions().
		AddBroker("tcp://" + cfg.BrokerAddress).
		SetClientID(cfg.ClientID)
	opts.SetKeepAlive(2 * time.Second)
	opts.SetPingTimeout(1 * time.Second)
	opts.SetOrderMatters(false)
	opts.SetOnConnectHandler(func(c mqttapi.Client) {
		topic := cfg.TopicPrefix + "#"
		if token := c.Subscribe(topic, 0, b.onMessage); token.Wait() && token.Error() != nil {
			b.log.Error().Err(token.Error()).Msgf("failed to subscribe to '%s'", topic)
		} else {
			b.log.Debug().Msgf("Subscribed to MQTT topic '%s'", topic)
		}
	})

	b.client = mqttapi.NewClient(opts)
	if token := b.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to mqtt: %w", token.Error())
	}
	return b, nil
}

// Receive state messages
func (b *mqttBridge) onMessage(client mqttapi.Client, msg mqttapi.Message) {
	b.handleState(msg.Topic(), string(msg.Payload()))
}

// handleState stores the payload of a state topic.
func (b *mqttBridge) handleState(topic, payload string) {
	topic = strings.TrimPrefix(topic, b.config.TopicPrefix)
	if !strings.HasSuffix(topic, "/analog") {
		return
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.states[topic] = payload
}

// SetPinMode publishes the requested pin mode.
func (b *mqttBridge) SetPinMode(pin Pin, mode PinMode) error {
	return b.publish("mode", b.pinTopic(pin, "mode"), mode.String())
}

// DigitalWrite publishes the requested pin level.
func (b *mqttBridge) DigitalWrite(pin Pin, high bool) error {
	return b.publish("command", b.pinTopic(pin, "command"), formatBool(high))
}

// AnalogRead returns the last analog value reported by the remote board.
func (b *mqttBridge) AnalogRead(pin Pin) (uint16, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	key := fmt.Sprintf("pin%d/analog", pin)
	state, found := b.states[key]
	if !found {
		return 0, errors.Wrapf(NotAvailableError, "pin %d", pin)
	}
	value, err := strconv.ParseUint(strings.TrimSpace(state), 10, 16)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid analog value '%s' on pin %d", state, pin)
	}
	return uint16(value), nil
}

// MaxAnalogValue returns the largest value AnalogRead can return.
func (b *mqttBridge) MaxAnalogValue() uint16 {
	return b.config.MaxAnalogValue
}

// TryAllocate is not supported on a remote board.
func (b *mqttBridge) TryAllocate(size int) (func(), error) {
	return nil, errors.Wrap(NotSupportedError, "memory probe over mqtt")
}

// ReadConversionControl is not supported on a remote board.
func (b *mqttBridge) ReadConversionControl() (uint8, error) {
	return 0, errors.Wrap(NotSupportedError, "conversion control over mqtt")
}

// WriteConversionControl is not supported on a remote board.
func (b *mqttBridge) WriteConversionControl(value uint8) error {
	return errors.Wrap(NotSupportedError, "conversion control over mqtt")
}

// Publish sends a raw payload to a topic relative to the topic prefix.
func (b *mqttBridge) Publish(topic string, payload []byte) error {
	return b.publish("raw", b.config.TopicPrefix+topic, string(payload))
}

// Close disconnects from the broker.
func (b *mqttBridge) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.client != nil {
		b.client.Disconnect(mqttDisconnectQuiesceMs)
		b.client = nil
	}
	return nil
}

func (b *mqttBridge) pinTopic(pin Pin, suffix string) string {
	return fmt.Sprintf("%spin%d/%s", b.config.TopicPrefix, pin, suffix)
}

// publish a payload, waiting a short time for delivery.
func (b *mqttBridge) publish(kind, topic, payload string) error {
	b.mutex.Lock()
	client := b.client
	b.mutex.Unlock()
	if client == nil {
		return errors.New("mqtt bridge closed")
	}

	mqttPublishTotal.WithLabelValues(kind).Inc()
	token := client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(mqttPublishTimeout) {
		mqttPublishTimeoutsTotal.Inc()
		b.log.Warn().
			Str("topic", topic).
			Str("payload", payload).
			Msg("failed to deliver MQTT command in time")
		return nil
	}
	if err := token.Error(); err != nil {
		return errors.Wrapf(err, "publish to '%s' failed", topic)
	}
	return nil
}

// format a bool as string
func formatBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
