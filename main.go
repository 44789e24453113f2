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

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	terminate "github.com/pulcy/go-terminate"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/binkynet/SketchKit/pkg/bridge"
	"github.com/binkynet/SketchKit/pkg/environment"
	"github.com/binkynet/SketchKit/pkg/logging"
	"github.com/binkynet/SketchKit/pkg/monitor"
	"github.com/binkynet/SketchKit/pkg/server"
	"github.com/binkynet/SketchKit/pkg/sketch"
)

const (
	projectName       = "SketchKit"
	defaultServerPort = 7130
)

var (
	projectVersion = "dev"
	projectBuild   = "dev"
)

func main() {
	var levelFlag string
	var bridgeType string
	var serverHost string
	var serverPort int
	var ledPin uint8
	var blinkCount uint8
	var adcPin uint8
	var samples int
	var interval time.Duration
	var maxLoops uint64
	var mqttBroker string
	var mqttPrefix string
	var mqttLogTopic string

	pflag.StringVarP(&levelFlag, "level", "l", "info", "Set log level")
	pflag.StringVarP(&bridgeType, "bridge", "b", environment.BridgeTypeAuto, "Type of bridge to use (auto|virtual|rpi|periph|mqtt)")
	pflag.StringVar(&serverHost, "host", "0.0.0.0", "Host address the HTTP server will listen on")
	pflag.IntVar(&serverPort, "port", defaultServerPort, "Port the HTTP server will listen on")
	pflag.Uint8Var(&ledPin, "led-pin", 13, "Pin of the status LED")
	pflag.Uint8Var(&blinkCount, "blink", sketch.DefaultBlinkCount, "Number of LED blinks at startup")
	pflag.Uint8Var(&adcPin, "adc-pin", 0, "Analog input watched by the monitor")
	pflag.IntVar(&samples, "samples", 16, "Number of conversions averaged per reading")
	pflag.DurationVar(&interval, "interval", time.Second, "Time between monitor readings")
	pflag.Uint64Var(&maxLoops, "max-loops", 0, "Halt the monitor after this many readings (0 = unlimited)")
	pflag.StringVar(&mqttBroker, "mqtt-broker", "", "Address (host:port) of the MQTT broker for the mqtt bridge")
	pflag.StringVar(&mqttPrefix, "mqtt-prefix", "", "Topic prefix of the remote board for the mqtt bridge")
	pflag.StringVar(&mqttLogTopic, "mqtt-log-topic", "", "Topic (relative to the prefix) logs are forwarded to when using the mqtt bridge")
	pflag.Parse()

	// Prepare to shutdown in a controlled manor
	ctx, cancel := context.WithCancel(context.Background())

	mqttLogWriter := logging.NewMQTTWriter(ctx)
	logWriter := logging.NewMultiWriter(zerolog.ConsoleWriter{Out: os.Stderr}, mqttLogWriter)
	logger := zerolog.New(logWriter).With().Timestamp().Logger()
	if level, err := zerolog.ParseLevel(levelFlag); err != nil {
		Exitf("Invalid log level '%s': %v\n", levelFlag, err)
	} else {
		logger = logger.Level(level)
	}

	if bridgeType == environment.BridgeTypeAuto {
		bridgeType = environment.AutoDetectBridgeType(logger)
	}
	var br bridge.API
	var err error
	switch bridgeType {
	case environment.BridgeTypeVirtual:
		br = bridge.NewVirtualBridge(bridge.VirtualConfig{})
	case environment.BridgeTypeRPI:
		br, err = bridge.NewRaspberryPiBridge(bridge.HardwareConfig{})
		if err != nil {
			Exitf("Failed to initialize Raspberry Pi Bridge: %v\n", err)
		}
	case environment.BridgeTypePeriph:
		br, err = bridge.NewPeriphBridge(bridge.HardwareConfig{})
		if err != nil {
			Exitf("Failed to initialize periph.io Bridge: %v\n", err)
		}
	case environment.BridgeTypeMQTT:
		hostname, _ := os.Hostname()
		br, err = bridge.NewMQTTBridge(logger, bridge.MQTTConfig{
			BrokerAddress: mqttBroker,
			ClientID:      fmt.Sprintf("sketchkit-%s", hostname),
			TopicPrefix:   mqttPrefix,
		})
		if err != nil {
			Exitf("Failed to initialize MQTT Bridge: %v\n", err)
		}
		if p, ok := br.(logging.Publisher); ok && mqttLogTopic != "" {
			mqttLogWriter.SetDestination(mqttLogTopic, p)
			mqttLogWriter.Enable(true)
		}
	default:
		Exitf("Unknown bridge type '%s' (auto|virtual|rpi|periph|mqtt)\n", bridgeType)
	}
	defer br.Close()

	kit, err := sketch.New(sketch.Dependencies{
		Log:    logger,
		Bridge: br,
	})
	if err != nil {
		Exitf("Failed to initialize sketch kit: %v\n", err)
	}

	mon, err := monitor.New(monitor.Config{
		Pin:      bridge.Pin(adcPin),
		Samples:  samples,
		Interval: interval,
		MaxLoops: maxLoops,
	}, monitor.Dependencies{
		Log:     logger,
		Sampler: kit,
	})
	if err != nil {
		Exitf("Failed to initialize monitor: %v\n", err)
	}

	httpServer, err := server.New(server.Config{
		Host:     serverHost,
		HTTPPort: serverPort,
	}, logger, kit)
	if err != nil {
		Exitf("Failed to initialize Server: %v\n", err)
	}

	t := terminate.NewTerminator(func(template string, args ...interface{}) {
		logger.Info().Msgf(template, args...)
	}, cancel)
	go t.ListenSignals()

	fmt.Printf("Starting %s (version %s build %s)\n", projectName, projectVersion, projectBuild)
	logger.Info().Str("bridge", bridgeType).Msg("Bridge selected")

	if err := kit.BlinkLED(ctx, bridge.Pin(ledPin), blinkCount); err != nil {
		logger.Warn().Err(err).Uint8("pin", ledPin).Msg("Failed to blink LED")
	}
	if free, err := kit.AvailableRAM(); err != nil && !bridge.IsOutOfMemory(err) {
		logger.Warn().Err(err).Msg("Failed to probe free memory")
	} else {
		logger.Info().Int("bytes", free).Msgf("Free memory %s", humanize.IBytes(uint64(free)))
		sketch.Fprint(os.Stdout, "free:", free, "bytes\n")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return mon.Run(ctx) })
	g.Go(func() error { return httpServer.Run(ctx) })
	if err := g.Wait(); err != nil {
		Exitf("Service run failed: %#v", err)
	}
}

// Print the given error message and exit with code 1
func Exitf(message string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, message, args...)
	os.Exit(1)
}
