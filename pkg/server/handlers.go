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
package server

import (
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/binkynet/SketchKit/pkg/bridge"
	"github.com/binkynet/SketchKit/pkg/sketch"
)

const (
	defaultSamples = 16
	// maxSamples bounds the conversions a single request can trigger.
	maxSamples = 1024
)

var maskAny = errors.WithStack

// MemoryResponse is returned by GET /api/memory.
type MemoryResponse struct {
	Bytes int    `json:"bytes"`
	Human string `json:"human"`
}

// AnalogResponse is returned by GET /api/analog/:pin[/fast].
type AnalogResponse struct {
	Pin      bridge.Pin `json:"pin"`
	Value    uint16     `json:"value"`
	Samples  int        `json:"samples,omitempty"`
	Overflow bool       `json:"overflow,omitempty"`
}

// ErrorResponse is returned for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleMemory(c echo.Context) error {
	size, err := s.service.AvailableRAM()
	if err != nil && !bridge.IsOutOfMemory(err) {
		return err
	}
	return c.JSON(http.StatusOK, MemoryResponse{
		Bytes: size,
		Human: humanize.IBytes(uint64(size)),
	})
}

func (s *Server) handleAnalog(c echo.Context) error {
	pin, err := pinParam(c)
	if err != nil {
		return err
	}
	samples := defaultSamples
	if raw := c.QueryParam("samples"); raw != "" {
		samples, err = strconv.Atoi(raw)
		if err != nil {
			return errors.Wrapf(sketch.InvalidArgumentError, "invalid samples '%s'", raw)
		}
		if samples > maxSamples {
			return errors.Wrapf(sketch.InvalidArgumentError, "samples %d exceeds maximum of %d", samples, maxSamples)
		}
	}
	value, overflow, err := s.service.AnalogAverageOverflow(pin, samples)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, AnalogResponse{
		Pin:      pin,
		Value:    value,
		Samples:  samples,
		Overflow: overflow,
	})
}

func (s *Server) handleAnalogFast(c echo.Context) error {
	pin, err := pinParam(c)
	if err != nil {
		return err
	}
	bits := uint64(sketch.DefaultPrescalerBits)
	if raw := c.QueryParam("prescaler"); raw != "" {
		bits, err = strconv.ParseUint(raw, 0, 8)
		if err != nil {
			return errors.Wrapf(sketch.InvalidArgumentError, "invalid prescaler '%s'", raw)
		}
	}
	value, err := s.service.AnalogReadFast(pin, uint8(bits))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, AnalogResponse{
		Pin:   pin,
		Value: value,
	})
}

// pinParam parses the :pin path parameter.
func pinParam(c echo.Context) (bridge.Pin, error) {
	raw := c.Param("pin")
	pin, err := strconv.ParseUint(raw, 10, 8)
	if err != nil {
		return 0, errors.Wrapf(sketch.InvalidArgumentError, "invalid pin '%s'", raw)
	}
	return bridge.Pin(pin), nil
}

// errorHandler maps errors onto HTTP status codes.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		c.JSON(he.Code, ErrorResponse{Error: http.StatusText(he.Code)})
		return
	}
	code := http.StatusInternalServerError
	switch {
	case sketch.IsInvalidArgument(err), bridge.IsInvalidPin(err):
		code = http.StatusBadRequest
	case bridge.IsNotSupported(err):
		code = http.StatusNotImplemented
	case bridge.IsNotAvailable(err):
		code = http.StatusServiceUnavailable
	default:
		s.log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}
	c.JSON(code, ErrorResponse{Error: err.Error()})
}
