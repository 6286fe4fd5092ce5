/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"structsketch/internal/backend"
	applog "structsketch/internal/log"
)

var (
	serveAddr   string
	serveMemory bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the shared systems server",
	Long: `Run the HTTP server that stores named systems for a team.

Systems are kept in Postgres (SSK_PG_DSN or DATABASE_URL); --memory keeps them
in process memory instead. Tokens are signed with SSK_AUTH_SECRET.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from ADDR or PORT, else :8080)")
	serveCmd.Flags().BoolVar(&serveMemory, "memory", false, "keep systems in memory instead of Postgres")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := interruptible(cmd)
	defer cancel()
	cfg := backend.ConfigFromEnv()
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}
	if cfg.Secret == "" {
		return errors.New("SSK_AUTH_SECRET is required")
	}
	if !serveMemory {
		return backend.Start(ctx, cfg)
	}
	h := backend.NewServer(backend.NewMemStore(), cfg.Secret).Handler()
	return serveHandler(ctx, cfg.Addr, h)
}

func serveHandler(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	applog.WithComponent("backend").Info("in-memory server listening", slog.String("addr", addr))
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
