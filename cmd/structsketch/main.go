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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"structsketch/internal/config"
	"structsketch/internal/crash"
	applog "structsketch/internal/log"
	"structsketch/internal/telemetry"
	"structsketch/internal/version"
)

var (
	appCfg      config.AppConfig
	solverToken string
	debug       bool
)

var rootCmd = &cobra.Command{
	Use:   "structsketch",
	Short: "Sketch and analyze planar structural systems",
	Long: `structsketch draws planar frames and trusses on a grid and sends them to a
structural solver for kinematic, static and dynamic analysis.

Without a subcommand the editor is started. System files use the .ssk.json
extension; a local SQLite library and an optional shared server keep named
systems.`,
	Version:           version.String(),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	Args:              cobra.MaximumNArgs(1),
	RunE:              runUI,
}

// setup loads the config and initializes logging and telemetry for every command.
func setup(_ *cobra.Command, _ []string) error {
	cfg, tok, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if debug {
		cfg.Logging.Level = "debug"
	}
	appCfg, solverToken = cfg, tok

	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
		Levels:    cfg.Logging.Levels,
	})
	tc := telemetry.FromEnv()
	tc.OptIn = tc.OptIn || cfg.General.TelemetryOptIn
	telemetry.NewDefault(tc)
	return nil
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func main() {
	defer crash.Recover("", nil)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
