/*
 * Copyright 2019 gocas authors and its licensors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/nameof/gocas/provider"
)

const shutdownTimeout = 10 * time.Second

// Server is our HTTP server implementation.
type Server struct {
	listenAddr string
	logger     logrus.FieldLogger

	provider *provider.Provider

	mux http.Handler
}

// NewServer constructs a server from the provided parameters.
func NewServer(c *Config) (*Server, error) {
	s := &Server{
		listenAddr: c.Config.ListenAddr,
		logger:     c.Config.Logger,

		provider: c.Provider,
	}

	return s, nil
}

// AddContext adds the accociated server's context to the provided
// http.Handler request.
func (s *Server) AddContext(parent context.Context, next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		next.ServeHTTP(rw, req.WithContext(parent))
	})
}

// AddRoutes registers the accociated server's handlers on the provided
// router.
func (s *Server) AddRoutes(ctx context.Context, router *mux.Router) {
	router.HandleFunc("/health-check", s.HealthCheckHandler)
	router.Handle("/metrics", promhttp.Handler())

	s.provider.AddRoutes(ctx, router)
}

// ServeHTTP implements the http.HandlerFunc interface.
func (s *Server) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	s.mux.ServeHTTP(rw, req)
}

// Serve starts all the accociated servers and listeners resources and blocks
// forever until signals or error occurs.
func (s *Server) Serve(ctx context.Context) error {
	serveCtx, serveCtxCancel := context.WithCancel(ctx)
	defer serveCtxCancel()

	logger := s.logger

	router := mux.NewRouter()
	s.AddRoutes(serveCtx, router)
	s.mux = router

	errCh := make(chan error, 2)
	signalCh := make(chan os.Signal, 1)

	srv := &http.Server{
		Addr:    s.listenAddr,
		Handler: s.AddContext(serveCtx, s),
	}

	logger.WithField("listenAddr", s.listenAddr).Infoln("starting http listener")
	go func() {
		err := srv.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	var err error
	select {
	case err = <-errCh:
		// breaks
	case reason := <-signalCh:
		logger.WithField("signal", reason).Warnln("received signal")
		// breaks
	case <-serveCtx.Done():
		// breaks
	}

	logger.Infoln("clean server shutdown start")
	shutdownCtx, shutdownCtxCancel := context.WithTimeout(ctx, shutdownTimeout)
	defer shutdownCtxCancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.WithError(shutdownErr).Warnln("clean server shutdown failed")
	}

	return err
}
