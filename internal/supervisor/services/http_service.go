// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// HTTPServer is the part of *http.Server the service drives.
//
// Keeping it an interface lets tests run the service against a fake server
// without binding a port.
//
// Satisfied by *http.Server from net/http:
//   - ListenAndServe() error
//   - Shutdown(ctx context.Context) error
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService runs the Punchclock API server as a supervised service.
//
// It bridges http.Server's blocking ListenAndServe and suture's
// context-driven Serve:
//
//  1. ListenAndServe runs in its own goroutine
//  2. Serve waits for either context cancellation or a server error
//  3. On cancellation, Shutdown drains open requests within shutdownTimeout
//
// The shutdown context is derived from context.Background, because the
// serve context is already done when shutdown starts.
//
// Example usage:
//
//	server := &http.Server{Addr: ":3000", Handler: router.SetupChi()}
//	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
type HTTPServerService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

// NewHTTPServerService wraps server.
//
// shutdownTimeout bounds how long in-flight requests (a clock-out waiting on
// the Sheets API, an Excel export) may run after shutdown begins. A
// non-positive value means 10 seconds.
func NewHTTPServerService(server HTTPServer, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve implements suture.Service.
//
// It returns:
//   - the wrapped ListenAndServe error if the server fails on its own (for
//     example, the port is taken), so the supervisor restarts it
//   - nil if the server stops cleanly without cancellation
//   - ctx.Err() after a graceful shutdown
//   - the wrapped Shutdown error if draining exceeds the timeout
//
// http.ErrServerClosed is expected during shutdown and is never reported.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

// String implements fmt.Stringer for supervisor logs.
func (h *HTTPServerService) String() string {
	return "http-server"
}
