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
package monitor

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/SketchKit/pkg/bridge"
	"github.com/binkynet/SketchKit/pkg/sketch"
	"github.com/binkynet/SketchKit/pkg/util"
)

const (
	defaultInterval = time.Second
	defaultSamples  = 16
	maxRetryDelay   = time.Second * 30
)

// Config for the analog monitor.
type Config struct {
	// Analog input to watch
	Pin bridge.Pin
	// Number of conversions averaged per reading
	Samples int
	// Time between readings
	Interval time.Duration
	// If non-zero, halt after this many readings
	MaxLoops uint64
}

// Sampler performs averaged analog reads.
type Sampler interface {
	AnalogAverageOverflow(pin bridge.Pin, samples int) (uint16, bool, error)
}

// Dependencies of the monitor.
type Dependencies struct {
	Log     zerolog.Logger
	Sampler Sampler
	// Halt is invoked once MaxLoops is exceeded. Defaults to spinning forever.
	Halt func()
}

// Monitor periodically reads an analog input.
type Monitor struct {
	Config
	log     zerolog.Logger
	sampler Sampler
	limiter *sketch.LoopLimiter
}

// New creates a new monitor.
func New(cfg Config, deps Dependencies) (*Monitor, error) {
	if deps.Sampler == nil {
		return nil, errors.Wrap(sketch.InvalidArgumentError, "sampler missing")
	}
	if cfg.Samples == 0 {
		cfg.Samples = defaultSamples
	}
	if cfg.Samples < 0 {
		return nil, errors.Wrapf(sketch.InvalidArgumentError, "sample count must be positive, got %d", cfg.Samples)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	log := deps.Log.With().Str("component", "monitor").Logger()
	m := &Monitor{
		Config:  cfg,
		log:     log,
		sampler: deps.Sampler,
	}
	if cfg.MaxLoops > 0 {
		m.limiter = sketch.NewLoopLimiter(log, deps.Halt)
	}
	return m, nil
}

// Run the monitor until the given context is canceled.
func (m *Monitor) Run(ctx context.Context) error {
	m.log.Info().
		Uint8("pin", uint8(m.Pin)).
		Int("samples", m.Samples).
		Dur("interval", m.Interval).
		Msg("Starting analog monitor")
	label := strconv.Itoa(int(m.Pin))
	return util.UntilCanceled(ctx, m.log, "analog monitor", m.Interval, maxRetryDelay, func() error {
		if m.limiter != nil {
			m.limiter.MaxLoops(m.MaxLoops)
		}
		value, overflow, err := m.sampler.AnalogAverageOverflow(m.Pin, m.Samples)
		if err != nil {
			readErrorsTotal.WithLabelValues(label).Inc()
			return err
		}
		analogValueGauge.WithLabelValues(label).Set(float64(value))
		if overflow {
			analogOverflowGauge.WithLabelValues(label).Set(1)
		} else {
			analogOverflowGauge.WithLabelValues(label).Set(0)
		}
		m.log.Debug().
			Uint16("value", value).
			Bool("overflow", overflow).
			Msg("Analog reading")
		return nil
	})
}
