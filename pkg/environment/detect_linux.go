// Copyright 2024 Ewout Prangsma
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

package environment

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

const (
	sysfsGPIOPath = "/sys/class/gpio"
)

// AutoDetectBridgeType detects the default bridge type based on the environment.
// ARM machines with sysfs GPIO get "rpi", other ARM machines "periph",
// everything else runs on the "virtual" bridge.
func AutoDetectBridgeType(log zerolog.Logger) string {
	var name unix.Utsname
	if err := unix.Uname(&name); err != nil {
		log.Warn().Err(err).Msg("Uname failed, using virtual bridge")
		return BridgeTypeVirtual
	}
	machine := strings.TrimRight(string(name.Machine[:]), "\x00")
	return bridgeTypeFor(machine, dirExists(sysfsGPIOPath))
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
