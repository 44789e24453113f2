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
	"context"
	"net"
	"net/http"
	"net/http/pprof"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/binkynet/SketchKit/pkg/bridge"
)

// Config for the HTTP server.
type Config struct {
	// Host interface to listen on
	Host string
	// Port to listen on for HTTP requests
	HTTPPort int
}

// Service is the sketch functionality exposed over HTTP.
type Service interface {
	AvailableRAM() (int, error)
	AnalogAverageOverflow(pin bridge.Pin, samples int) (uint16, bool, error)
	AnalogReadFast(pin bridge.Pin, prescalerBits uint8) (uint16, error)
}

// Server runs the HTTP server for the service.
type Server struct {
	Config
	log     zerolog.Logger
	service Service
}

// New configures a new Server.
func New(cfg Config, log zerolog.Logger, service Service) (*Server, error) {
	return &Server{
		Config:  cfg,
		log:     log.With().Str("component", "server").Logger(),
		service: service,
	}, nil
}

// Run the server until the given context is canceled.
func (s *Server) Run(ctx context.Context) error {
	log := s.log
	httpAddr := net.JoinHostPort(s.Host, strconv.Itoa(s.HTTPPort))
	httpLis, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return maskAny(err)
	}
	httpSrv := http.Server{
		Handler: s.router(),
	}

	log.Debug().Str("address", httpAddr).Msg("Serving HTTP")
	go func() {
		if err := httpSrv.Serve(httpLis); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to serve HTTP server")
		}
		log.Debug().Str("address", httpAddr).Msg("Done Serving HTTP")
	}()

	// Wait until context closed
	<-ctx.Done()

	log.Info().Msg("Closing server")
	httpSrv.Shutdown(context.Background())
	return nil
}

// router builds the HTTP routes.
func (s *Server) router() *echo.Echo {
	r := echo.New()
	r.HideBanner = true
	r.HidePort = true
	r.HTTPErrorHandler = s.errorHandler
	r.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	r.GET("/debug/pprof/*", echo.WrapHandler(http.HandlerFunc(pprof.Index)))
	api := r.Group("/api")
	api.GET("/memory", s.handleMemory)
	api.GET("/analog/:pin", s.handleAnalog)
	api.GET("/analog/:pin/fast", s.handleAnalogFast)
	return r
}
