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
	"math"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"structsketch/internal/deform"
	"structsketch/internal/domain"
	"structsketch/internal/export"
	"structsketch/internal/solver"
	"structsketch/internal/telemetry"
	"structsketch/internal/ui"
	"structsketch/internal/vector"
)

var (
	exportPreset  string
	exportFormats []string
	exportOut     string
	exportName    string
	exportLabels  bool
	exportSolve   string
	exportMode    int
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Render a system to SVG, PNG, PDF and force diagrams",
	Long: `Render a system into an output directory, one subdirectory per format.

The web preset writes PNG and SVG without labels; the print preset writes PDF
with a report page and labelled PNG. --solve static draws the deformed shape
and adds N/V/M diagrams; --solve kinematics marks the poles of a mechanism mode.

Examples:
  structsketch export frame.ssk.json --out ./out
  structsketch export frame.ssk.json --preset web --format svg
  structsketch export frame.ssk.json --solve static --format pdf,diagrams`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	f := exportCmd.Flags()
	f.StringVarP(&exportPreset, "preset", "p", string(export.PresetPrint), "web or print")
	f.StringSliceVarP(&exportFormats, "format", "f", nil, "svg, png, pdf, diagrams (default from preset)")
	f.StringVarP(&exportOut, "out", "o", "export", "output directory")
	f.StringVar(&exportName, "name", "", "base file name (default system name)")
	f.BoolVar(&exportLabels, "labels", false, "draw node labels and load values")
	f.StringVar(&exportSolve, "solve", "", "run static or kinematics first and draw the result")
	f.IntVar(&exportMode, "mode", 0, "mechanism mode for --solve kinematics")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx, cancel := interruptible(cmd)
	defer cancel()
	store, err := loadSystem(args[0])
	if err != nil {
		return err
	}
	opt := export.BatchOptions{
		Preset:  export.PresetName(exportPreset),
		Formats: exportFormats,
		OutDir:  exportOut,
		Name:    exportName,
	}
	if opt.Name == "" {
		opt.Name = store.Meta().Name
	}
	if opt.Name == "" {
		opt.Name = strings.TrimSuffix(filepath.Base(args[0]), ".ssk.json")
	}
	if cmd.Flags().Changed("labels") {
		opt.Labels = &exportLabels
	}

	snap := store.ExportSnapshot()
	if exportSolve != "" {
		sess := solver.NewSession(solverClient(), store, nil, nil)
		var r solver.Result
		switch exportSolve {
		case "static":
			if _, err := sess.RunStatic(ctx); err != nil {
				return err
			}
			r = sess.Result()
			opt.Result = r.Static
		case "kinematics":
			if _, err := sess.RunKinematics(ctx); err != nil {
				return err
			}
			r = sess.Result()
		default:
			return fmt.Errorf("unknown analysis %q for --solve", exportSolve)
		}
		opt.Deformed, opt.Poles = resultOverlay(r, snap)
	}

	files, err := export.BatchExport(snap, opt)
	if err != nil {
		return err
	}
	telemetry.Event("export", map[string]any{"preset": exportPreset, "files": len(files)})
	out := cmd.OutOrStdout()
	for _, f := range files {
		fmt.Fprintln(out, f)
	}
	return nil
}

// resultOverlay turns an analysis result into the still frame and poles an
// export draws. Animated views are captured at their peak.
func resultOverlay(r solver.Result, snap domain.Snapshot) (*deform.Frame, map[int]vector.Pt) {
	a := r.Analysis(exportMode)
	if a == nil {
		return nil, nil
	}
	amp := ui.Amplitude(a, appCfg.Canvas.Amplitude, snap.Meta.GridSize, 1)
	t := 0.0
	if a.View.Animated() {
		t = math.Pi / (2 * deform.PhaseRate)
	}
	frame := deform.Compose(a, snap, t, 0, amp)
	var poles map[int]vector.Pt
	if a.View == deform.ViewMechanism {
		poles = deform.Poles(deform.Mode(r.Kinematic, exportMode))
	}
	return &frame, poles
}
