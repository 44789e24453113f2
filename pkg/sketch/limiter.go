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
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/binkynet/SketchKit/pkg/util"
)

// LoopLimiter lets the first iterations of a loop run and then halts the
// calling goroutine for good. It is meant for bring-up and debug code.
//
// Every call site that should share a budget must share the same LoopLimiter.
type LoopLimiter struct {
	log   zerolog.Logger
	count uint64
	halt  func()
}

// NewLoopLimiter creates a limiter with a zero counter.
// halt is called once the budget is exceeded and must not return;
// when nil, the calling goroutine spins forever.
func NewLoopLimiter(log zerolog.Logger, halt func()) *LoopLimiter {
	if halt == nil {
		halt = util.SpinForever
	}
	return &LoopLimiter{
		log:  log,
		halt: halt,
	}
}

// MaxLoops increments the counter and returns when it does not exceed
// loops. Otherwise it never returns.
func (l *LoopLimiter) MaxLoops(loops uint64) {
	count := atomic.AddUint64(&l.count, 1)
	if count <= loops {
		return
	}
	loopLimiterHaltsTotal.Inc()
	l.log.Warn().
		Uint64("count", count).
		Uint64("loops", loops).
		Msg("Loop limit exceeded, halting")
	for {
		l.halt()
	}
}

// Count returns the number of MaxLoops calls so far.
func (l *LoopLimiter) Count() uint64 {
	return atomic.LoadUint64(&l.count)
}
