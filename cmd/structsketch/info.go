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
	"text/tabwriter"

	"github.com/spf13/cobra"

	"structsketch/internal/hinge"
)

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Show counts and extent of a system",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	store, err := loadSystem(args[0])
	if err != nil {
		return err
	}
	st := store.Stats()
	name := store.Meta().Name
	if name == "" {
		name = "-"
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Name:\t%s\n", name)
	fmt.Fprintf(w, "Nodes:\t%d\n", st.Nodes)
	fmt.Fprintf(w, "Members:\t%d\n", st.Members)
	fmt.Fprintf(w, "Supports:\t%d\n", st.Supports)
	fmt.Fprintf(w, "Loads:\t%d\n", st.Loads)
	fmt.Fprintf(w, "Panels:\t%d\n", st.Panels)
	fmt.Fprintf(w, "Constraints:\t%d\n", st.Constraints)
	if st.Nodes > 0 {
		b := st.Bounds
		fmt.Fprintf(w, "Extent:\tx %g..%g, y %g..%g\n", b.X, b.X+b.W, b.Y, b.Y+b.H)
	}
	fmt.Fprintf(w, "Total length:\t%.3f\n", st.TotalLength)
	fmt.Fprintf(w, "Double hinges:\t%d\n", len(hinge.Check(store)))
	return w.Flush()
}
