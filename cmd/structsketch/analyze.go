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
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"structsketch/internal/domain"
	"structsketch/internal/export"
	"structsketch/internal/hinge"
	applog "structsketch/internal/log"
	"structsketch/internal/solver"
	"structsketch/internal/storage"
	"structsketch/internal/telemetry"
)

var (
	analyzeKind     string
	analyzeOut      string
	analyzeDiagrams string
	analyzeFix      bool
	analyzeWrite    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Run a solver analysis on a system",
	Long: `Send a system to the solver and print a summary of the result.

Kinds:
  kinematics  degrees of freedom and mechanism modes
  static      reactions and member forces
  dynamic     natural frequencies and time history
  simplify    merge collinear members (use --write to save)

Static and kinematic runs refuse systems with double hinges unless --fix-hinges
is given, which releases the first member end at each such node.

Examples:
  structsketch analyze frame.ssk.json --kind static --out result.json
  structsketch analyze frame.ssk.json --kind static --diagrams ./forces`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&analyzeKind, "kind", "k", "static", "kinematics, static, dynamic or simplify")
	analyzeCmd.Flags().StringVarP(&analyzeOut, "out", "o", "", "write the raw result as JSON to this file")
	analyzeCmd.Flags().StringVar(&analyzeDiagrams, "diagrams", "", "write N/V/M diagrams of a static run into this directory")
	analyzeCmd.Flags().BoolVar(&analyzeFix, "fix-hinges", false, "resolve double hinges at their first member end")
	analyzeCmd.Flags().BoolVar(&analyzeWrite, "write", false, "save the simplified system back to the file")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := interruptible(cmd)
	defer cancel()
	l := applog.WithOperation(applog.WithComponent("cli"), "analyze").With(slog.String("kind", analyzeKind))

	store, err := loadSystem(args[0])
	if err != nil {
		return err
	}
	var chooser hinge.Chooser
	if analyzeFix {
		chooser = hinge.FirstEnd
	}
	notify := solver.NotifierFunc(func(level solver.Level, msg string) {
		if level == solver.LevelError {
			l.Error(msg)
			return
		}
		l.Info(msg)
	})
	sess := solver.NewSession(solverClient(), store, chooser, notify)
	out := cmd.OutOrStdout()

	start := time.Now()
	var result any
	switch analyzeKind {
	case "kinematics":
		var res *domain.KinematicResult
		res, err = sess.RunKinematics(ctx)
		if err == nil {
			result = res
			printKinematics(out, res)
		}
	case "static":
		var res *domain.StaticResult
		res, err = sess.RunStatic(ctx)
		if err == nil {
			result = res
			printStatic(out, res)
			if analyzeDiagrams != "" {
				files, derr := export.SaveForceDiagrams(analyzeDiagrams, res)
				if derr != nil {
					return derr
				}
				fmt.Fprintf(out, "wrote %d diagram(s) to %s\n", len(files), analyzeDiagrams)
			}
		}
	case "dynamic":
		var res *domain.DynamicResult
		res, err = sess.RunDynamic(ctx)
		if err == nil {
			result = res
			printDynamic(out, res)
		}
	case "simplify":
		var removed int
		removed, err = sess.Simplify(ctx)
		if err == nil {
			fmt.Fprintf(out, "simplified: %d member(s) removed\n", removed)
			result = store.ExportSnapshot()
			if analyzeWrite {
				err = storage.SaveFile(args[0], store.ExportSnapshot())
			}
		}
	default:
		return fmt.Errorf("unknown analysis kind %q", analyzeKind)
	}
	telemetry.Analysis(analyzeKind, time.Since(start), err)
	if err != nil {
		return err
	}
	if analyzeOut != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(analyzeOut, data, 0o644); err != nil {
			return err
		}
		l.Info("result written", slog.String("path", analyzeOut))
	}
	return nil
}

func printKinematics(w io.Writer, res *domain.KinematicResult) {
	if !res.IsKinematic {
		fmt.Fprintf(w, "stable: not a mechanism (dof %d)\n", res.DOF)
		return
	}
	fmt.Fprintf(w, "mechanism: %d degree(s) of freedom, %d mode(s)\n", res.DOF, len(res.Modes))
	for i, m := range res.Modes {
		fmt.Fprintf(w, "  mode %d: %d rigid bod(ies)\n", i+1, len(m.RigidBodies))
	}
}

func printStatic(w io.Writer, res *domain.StaticResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Node\tRx\tRy\tM\t")
	for _, k := range numericKeys(res.Reactions) {
		r := res.Reactions[k]
		fmt.Fprintf(tw, "%s\t%.3f\t%.3f\t%.3f\t\n", k, r[0], r[1], r[2])
	}
	tw.Flush()

	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Member\tmax |N|\tmax |V|\tmax |M|\t")
	for _, k := range numericKeys(res.MemberResults) {
		var n, v, m float64
		for _, s := range res.MemberResults[k].Stations {
			n, v, m = max(n, math.Abs(s.N)), max(v, math.Abs(s.V)), max(m, math.Abs(s.M))
		}
		fmt.Fprintf(tw, "%s\t%.3f\t%.3f\t%.3f\t\n", k, n, v, m)
	}
	tw.Flush()
}

func printDynamic(w io.Writer, res *domain.DynamicResult) {
	if !res.Success {
		fmt.Fprintf(w, "dynamic analysis failed: %s\n", res.Message)
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Mode\tf [Hz]\tT [s]\t")
	for i, f := range res.NaturalFrequencies {
		fmt.Fprintf(tw, "%d\t%.4f\t%.4f\t\n", i+1, f.Frequency, f.Period)
	}
	tw.Flush()
	fmt.Fprintf(w, "stable: %t, time steps: %d\n", res.IsStable, len(res.TimeHistory))
}

// numericKeys sorts id-keyed result maps by their numeric value.
func numericKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA != nil || errB != nil {
			return keys[i] < keys[j]
		}
		return a < b
	})
	return keys
}
