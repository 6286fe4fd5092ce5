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
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"structsketch/internal/domain"
)

// ErrNoStations is returned when a member result has nothing to plot.
var ErrNoStations = errors.New("member result has no stations")

// Force diagram page size.
var (
	DiagramWidth  = 6 * vg.Inch
	DiagramHeight = 4 * vg.Inch
)

var (
	colorN = color.RGBA{R: 0x1f, G: 0x6f, B: 0xb4, A: 255}
	colorV = color.RGBA{R: 0x2e, G: 0x9d, B: 0x4f, A: 255}
	colorM = color.RGBA{R: 0xc0, G: 0x39, B: 0x2b, A: 255}
)

// ForceDiagram plots normal force, shear and moment along one member.
func ForceDiagram(title string, res domain.MemberResult) (*plot.Plot, error) {
	if len(res.Stations) == 0 {
		return nil, ErrNoStations
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "N, V (kN) / M (kNm)"
	p.Legend.Top = true

	n := make(plotter.XYs, len(res.Stations))
	v := make(plotter.XYs, len(res.Stations))
	m := make(plotter.XYs, len(res.Stations))
	for i, s := range res.Stations {
		n[i] = plotter.XY{X: s.X, Y: s.N}
		v[i] = plotter.XY{X: s.X, Y: s.V}
		m[i] = plotter.XY{X: s.X, Y: s.M}
	}
	for _, c := range []struct {
		name string
		xys  plotter.XYs
		col  color.Color
	}{
		{"N", n, colorN},
		{"V", v, colorV},
		{"M", m, colorM},
	} {
		l, err := plotter.NewLine(c.xys)
		if err != nil {
			return nil, fmt.Errorf("%s line: %w", c.name, err)
		}
		l.LineStyle.Width = vg.Points(1.5)
		l.LineStyle.Color = c.col
		p.Add(l)
		p.Legend.Add(c.name, l)
	}

	first, last := res.Stations[0].X, res.Stations[len(res.Stations)-1].X
	zero, err := plotter.NewLine(plotter.XYs{{X: first, Y: 0}, {X: last, Y: 0}})
	if err != nil {
		return nil, fmt.Errorf("zero line: %w", err)
	}
	zero.LineStyle.Width = vg.Points(0.5)
	zero.LineStyle.Color = color.Gray{Y: 120}
	zero.LineStyle.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}
	p.Add(zero)

	labels, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    []plotter.XY{{X: last, Y: res.MaxM}, {X: last, Y: res.MinM}},
		Labels: []string{"max M " + trimFloat(res.MaxM), "min M " + trimFloat(res.MinM)},
	})
	if err == nil {
		p.Add(labels)
	}
	return p, nil
}

// WriteForceDiagram renders a member's force diagram in format ("png", "svg" or "pdf").
func WriteForceDiagram(w io.Writer, format, title string, res domain.MemberResult) error {
	p, err := ForceDiagram(title, res)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(DiagramWidth, DiagramHeight, strings.ToLower(format))
	if err != nil {
		return fmt.Errorf("diagram writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write diagram: %w", err)
	}
	return nil
}

// SaveForceDiagrams writes one PNG per member result into dir and returns the file names.
func SaveForceDiagrams(dir string, res *domain.StaticResult) ([]string, error) {
	if res == nil {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	var out []string
	for _, key := range sortedKeys(res.MemberResults) {
		mr := res.MemberResults[key]
		if len(mr.Stations) == 0 {
			continue
		}
		p, err := ForceDiagram("Member "+key, mr)
		if err != nil {
			return out, err
		}
		name := filepath.Join(dir, "member-"+key+".png")
		if err := p.Save(DiagramWidth, DiagramHeight, name); err != nil {
			return out, fmt.Errorf("save diagram %s: %w", key, err)
		}
		out = append(out, name)
	}
	return out, nil
}
