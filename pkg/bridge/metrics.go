//    Copyright 2023 Ewout Prangsma
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
	"github.com/binkynet/SketchKit/pkg/metrics"
)

const (
	subSystem = "bridge"
)

var (
	// Total number of times I2CBus.Execute is called
	i2cExecuteCounters = metrics.MustRegisterCounterVec(subSystem,
		"i2c_execute_total",
		"Total number of times I2CBus.Execute is called",
		"address")
	// Total number of times I2CBus.Execute failed
	i2cExecuteErrorCounters = metrics.MustRegisterCounterVec(subSystem,
		"i2c_execute_error_total",
		"Total number of times I2CBus.Execute failed",
		"address")
	// Total number of ADS1115 conversions
	ads1115ConversionsTotal = metrics.MustRegisterCounterVec(subSystem,
		"ads1115_conversions_total",
		"Total number of ADS1115 conversions per channel",
		"channel")
	// Total number of MQTT messages published
	mqttPublishTotal = metrics.MustRegisterCounterVec(subSystem,
		"mqtt_publish_total",
		"Total number of MQTT messages published per kind",
		"kind")
	// Total number of MQTT publications that did not complete in time
	mqttPublishTimeoutsTotal = metrics.MustRegisterCounter(subSystem,
		"mqtt_publish_timeouts_total",
		"Total number of MQTT publications that did not complete in time")
)
