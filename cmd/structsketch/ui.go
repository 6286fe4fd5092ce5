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
	"log/slog"

	"github.com/spf13/cobra"

	applog "structsketch/internal/log"
	"structsketch/internal/storage"
	"structsketch/internal/ui"
)

var uiCmd = &cobra.Command{
	Use:   "ui [file]",
	Short: "Open the sketch editor",
	Long: `Open the sketch editor, optionally with a system file.

The local library is attached when it can be opened; otherwise the library
menu stays disabled.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUI,
}

func init() {
	rootCmd.AddCommand(uiCmd)
}

func runUI(cmd *cobra.Command, args []string) error {
	l := applog.WithComponent("cli")
	opt := ui.Options{Config: appCfg, Analyzer: solverClient()}
	if len(args) == 1 {
		opt.Path = args[0]
	}
	var lib *storage.Library
	if path, err := appCfg.LibraryPath(); err == nil {
		lib, err = storage.OpenLibrary(cmd.Context(), path)
		if err != nil {
			l.Warn("library unavailable", slog.Any("err", err))
		}
	}
	if lib != nil {
		defer lib.Close()
		opt.Library = lib
	}
	l.Info("starting editor", slog.String("file", opt.Path))
	return ui.Run(opt)
}
