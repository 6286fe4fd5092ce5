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
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"structsketch/internal/hinge"
	applog "structsketch/internal/log"
	"structsketch/internal/model"
	"structsketch/internal/storage"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Re-check a system file whenever it changes",
	Long: `Print counts and modelling findings each time the file is written, for
example while editing it by hand or from a script. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 200*time.Millisecond, "quiet period before a change is handled")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := interruptible(cmd)
	defer cancel()
	l := applog.WithOperation(applog.WithComponent("cli"), "watch")
	out := cmd.OutOrStdout()

	w, err := storage.NewWatcher(watchDebounce)
	if err != nil {
		return err
	}
	defer w.Close()

	store, err := loadSystem(args[0])
	if err != nil {
		return err
	}
	report(out, store)
	err = w.Watch(args[0], func(path string, f *storage.SystemFile, err error) {
		if err != nil {
			l.Warn("reload failed", slog.String("path", path), slog.Any("err", err))
			return
		}
		if dropped := store.ImportSnapshot(f.Snapshot); dropped > 0 {
			l.Warn("dropped invalid entities", slog.Int("count", dropped))
		}
		fmt.Fprintf(out, "-- %s changed\n", path)
		report(out, store)
	})
	if err != nil {
		return err
	}
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func report(out io.Writer, store *model.Store) {
	st := store.Stats()
	fmt.Fprintf(out, "%d node(s), %d member(s), %d load(s), %d support(s)\n", st.Nodes, st.Members, st.Loads, st.Supports)
	for _, f := range hinge.Validate(store) {
		fmt.Fprintln(out, f.Error())
	}
}
