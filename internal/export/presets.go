/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"structsketch/internal/deform"
	"structsketch/internal/domain"
	"structsketch/internal/vector"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// BatchOptions controls exporting one system to several formats.
//
// Files are named <Name>.<ext> inside OutDir/<format>/. OutDir defaults to
// the preset name, Name to the system name or "system".
type BatchOptions struct {
	Preset   PresetName
	Formats  []string // allowed: svg, png, pdf, diagrams; empty means preset defaults
	OutDir   string
	Name     string
	Labels   *bool // when set, overrides the preset default
	Deformed *deform.Frame
	Poles    map[int]vector.Pt
	Result   *domain.StaticResult
}

// BatchExport writes snap in every requested format and returns the files written.
func BatchExport(snap domain.Snapshot, opt BatchOptions) ([]string, error) {
	if snap.Empty() {
		return nil, fmt.Errorf("system is empty")
	}
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	baseOut := opt.OutDir
	if baseOut == "" {
		baseOut = string(opt.Preset)
	}
	name := opt.Name
	if name == "" {
		name = fileSafe(snap.Meta.Name)
	}
	if name == "" {
		name = "system"
	}
	labels := presetLabels(opt.Preset)
	if opt.Labels != nil {
		labels = *opt.Labels
	}
	w, h := presetSize(opt.Preset)
	sceneOpt := Options{Width: w, Height: h, Labels: labels, Deformed: opt.Deformed, Poles: opt.Poles, Title: snap.Meta.Name}

	var written []string
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		out := filepath.Join(baseOut, f, name+"."+f)
		var err error
		switch f {
		case "svg":
			err = ExportSVG(out, snap, sceneOpt)
		case "png":
			err = ExportPNG(out, snap, sceneOpt)
		case "pdf":
			err = ExportPDF(out, snap, PDFOptions{Options: sceneOpt, Report: opt.Preset == PresetPrint, Result: opt.Result})
		case "diagrams":
			var files []string
			files, err = SaveForceDiagrams(filepath.Join(baseOut, f), opt.Result)
			written = append(written, files...)
			if err != nil {
				return written, fmt.Errorf("diagrams: %w", err)
			}
			continue
		default:
			return written, fmt.Errorf("unknown format: %s", f)
		}
		if err != nil {
			return written, fmt.Errorf("%s: %w", f, err)
		}
		written = append(written, out)
	}
	return written, nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{"png", "svg"}
	case PresetPrint:
		return []string{"pdf", "png"}
	default:
		return []string{"svg"}
	}
}

func presetLabels(p PresetName) bool {
	return p != PresetWeb
}

func presetSize(p PresetName) (float64, float64) {
	if p == PresetPrint {
		return 1600, 1200
	}
	return 1024, 768
}

// fileSafe keeps letters, digits, dash and underscore; everything else becomes '_'.
func fileSafe(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// writeFile creates path and its directory, then streams fn's output into it.
func writeFile(path string, fn func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure out dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	return nil
}
