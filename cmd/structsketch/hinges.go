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
	"strings"

	"github.com/spf13/cobra"

	"structsketch/internal/hinge"
	"structsketch/internal/storage"
	"structsketch/internal/ui"
)

var fixHinges bool

var checkHingesCmd = &cobra.Command{
	Use:   "check-hinges <file>",
	Short: "List double hinges and optionally resolve them",
	Long: `List nodes where two or more members meet with moment releases at the node.

With --fix the release of the first member end at every such node is removed
and the file is saved.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheckHinges,
}

func init() {
	rootCmd.AddCommand(checkHingesCmd)
	checkHingesCmd.Flags().BoolVar(&fixHinges, "fix", false, "resolve each double hinge at its first member end and save")
}

func runCheckHinges(cmd *cobra.Command, args []string) error {
	store, err := loadSystem(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	found := hinge.Check(store)
	if len(found) == 0 {
		fmt.Fprintln(out, "no double hinges")
		return nil
	}
	for _, d := range found {
		fmt.Fprintf(out, "node %d: %s\n", d.NodeID, strings.Join(ui.EndLabels(d), ", "))
	}
	if !fixHinges {
		return nil
	}
	if err := hinge.Gate(cmd.Context(), store, hinge.FirstEnd); err != nil {
		return err
	}
	if err := storage.SaveFile(args[0], store.ExportSnapshot()); err != nil {
		return err
	}
	fmt.Fprintf(out, "resolved %d double hinge(s)\n", len(found))
	return nil
}
