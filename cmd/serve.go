// Copyright 2025 The Ringload Authors
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

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ringload/ringload/clock"
	"github.com/ringload/ringload/internal/loader"
	"github.com/ringload/ringload/internal/logger"
	"github.com/ringload/ringload/internal/metrics"
)

// shutdownGrace bounds how long serve waits, after a SIGINT/SIGTERM, for
// in-flight ring completions to drain before exiting anyway. This is
// process supervision, not the per-entry cancellation spec.md §9 defers —
// see SPEC_FULL.md §12.
const shutdownGrace = 10 * time.Second

// shutdownClock drives the grace-period timeout below. Tests substitute a
// clock.FakeClock to exercise the forced-exit path without a real wait.
var shutdownClock clock.Clock = clock.RealClock{}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the loader process (reader + responder) and block until terminated",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := resolvedConfig()
		if err != nil {
			return err
		}
		logger.UpdateDefaultLogger(os.Stderr, c.Logging.Severity, c.Logging.Format)
		logger.Infof("loaderd: starting with config: %s", c)

		if err := metrics.Register(); err != nil {
			return fmt.Errorf("registering metrics views: %w", err)
		}

		state, err := loader.Init(c)
		if err != nil {
			return fmt.Errorf("init: %w", err)
		}
		defer func() {
			if err := state.Close(); err != nil {
				logger.Warnf("loaderd: close: %v", err)
			}
		}()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, gctx := errgroup.WithContext(ctx)
		if c.Metrics.Enabled {
			g.Go(func() error {
				return metrics.Serve(gctx, c.Metrics.ListenAddr)
			})
		}
		g.Go(func() error {
			return loader.Start(gctx, state)
		})

		done := make(chan error, 1)
		go func() { done <- g.Wait() }()

		select {
		case err = <-done:
			if ctx.Err() != nil {
				return nil
			}
			return err
		case <-ctx.Done():
			logger.Infof("loaderd: shutdown signal received, grace period %s", shutdownGrace)
			select {
			case <-done:
				return nil
			case <-shutdownClock.After(shutdownGrace):
				logger.Warnf("loaderd: grace period expired with threads still running, forcing exit")
				os.Exit(1)
				return nil
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
