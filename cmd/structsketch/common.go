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
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"structsketch/internal/backend"
	"structsketch/internal/config"
	applog "structsketch/internal/log"
	"structsketch/internal/model"
	"structsketch/internal/solver"
	"structsketch/internal/storage"
)

// loadSystem opens a system file into a fresh store. Entities that do not
// validate are dropped and logged.
func loadSystem(path string) (*model.Store, error) {
	l := applog.WithOperation(applog.WithComponent("cli"), "load").With(slog.String("path", path))
	f, err := storage.OpenFile(path)
	if err != nil {
		return nil, err
	}
	if f.Recovered {
		l.Warn("system file unreadable, using latest backup")
	}
	grid := f.Snapshot.Meta.GridSize
	if grid <= 0 {
		grid = appCfg.Canvas.GridSize
	}
	store := model.New(grid)
	if dropped := store.ImportSnapshot(f.Snapshot); dropped > 0 {
		l.Warn("dropped invalid entities", slog.Int("count", dropped))
	}
	return store, nil
}

func solverClient() *solver.Client {
	c := solver.NewClient(appCfg.Solver.BaseURL, solverToken, config.Timeout(appCfg.Solver.TimeoutMs, 30*time.Second))
	p := solver.DefaultPaths()
	override(&p.Kinematics, appCfg.Solver.KinematicsPath)
	override(&p.Solution, appCfg.Solver.SolutionPath)
	override(&p.Simplify, appCfg.Solver.SimplifyPath)
	override(&p.Dynamic, appCfg.Solver.DynamicPath)
	c.Paths = p
	return c
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func systemsClient() (*backend.Client, error) {
	tok, err := config.Token(config.KeySystemsToken)
	if err != nil {
		return nil, err
	}
	return backend.NewClient(appCfg.Systems.BaseURL, tok, config.Timeout(appCfg.Systems.TimeoutMs, 10*time.Second)), nil
}

func openLibrary(ctx context.Context) (*storage.Library, error) {
	path, err := appCfg.LibraryPath()
	if err != nil {
		return nil, err
	}
	return storage.OpenLibrary(ctx, path)
}

// interruptible returns the command context cancelled on Ctrl-C.
func interruptible(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt)
}
