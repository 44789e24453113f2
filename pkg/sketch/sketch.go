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
// Package sketch provides small helpers for microcontroller-style code:
// a free-memory probe, open-drain emulation, LED blinking, a loop limiter,
// averaged and fast analog reads and space separated output.
// All hardware access goes through a bridge.API.
package sketch

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/SketchKit/pkg/bridge"
)

// Dependencies of a Kit.
type Dependencies struct {
	Log    zerolog.Logger
	Bridge bridge.API
}

// Kit bundles the sketch helpers for a single board.
type Kit struct {
	log    zerolog.Logger
	bridge bridge.API
}

// New creates a Kit for the given board.
func New(deps Dependencies) (*Kit, error) {
	if deps.Bridge == nil {
		return nil, errors.Wrap(InvalidArgumentError, "bridge missing")
	}
	return &Kit{
		log:    deps.Log.With().Str("component", "sketch").Logger(),
		bridge: deps.Bridge,
	}, nil
}
