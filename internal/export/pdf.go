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
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"structsketch/internal/domain"
	"structsketch/internal/vector"
	"structsketch/internal/version"
)

// A4 landscape in points.
const (
	pageW = 841.89
	pageH = 595.28
)

// PDFOptions controls PDF export. Units are points; the page origin is top-left.
type PDFOptions struct {
	Options
	// Report appends pages listing nodes, members and loads.
	Report bool
	// Result, if set, adds reactions and one force diagram per member.
	Result *domain.StaticResult
}

// WritePDF renders snap to a PDF document written to w.
func WritePDF(w io.Writer, snap domain.Snapshot, opt PDFOptions) error {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: pageW, Ht: pageH},
	})
	title := opt.Title
	if title == "" {
		title = snap.Meta.Name
	}
	if title == "" {
		title = "Structural system"
	}
	pdf.SetTitle(title, true)
	pdf.SetAuthor("StructSketch "+version.Version, true)
	pdf.SetFont("Helvetica", "", 10)

	sceneOpt := opt.Options
	sceneOpt.Width, sceneOpt.Height = pageW, pageH
	if sceneOpt.Title == "" {
		sceneOpt.Title = title
	}
	pdf.AddPage()
	drawScene(pdf, BuildScene(snap, sceneOpt))

	if opt.Report {
		writeReport(pdf, snap)
	}
	if opt.Result != nil {
		if err := writeResults(pdf, opt.Result); err != nil {
			return err
		}
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// ExportPDF writes the PDF for snap to path.
func ExportPDF(path string, snap domain.Snapshot, opt PDFOptions) error {
	return writeFile(path, func(w io.Writer) error { return WritePDF(w, snap, opt) })
}

func drawScene(pdf *gofpdf.Fpdf, sc Scene) {
	for _, it := range sc.Items {
		if it.Text != "" {
			size := it.Size
			if size <= 0 {
				size = 10
			}
			pdf.SetFontSize(size)
			pdf.SetTextColor(int(it.Stroke.Color.R), int(it.Stroke.Color.G), int(it.Stroke.Color.B))
			pdf.Text(it.At.X, it.At.Y, it.Text)
			continue
		}
		setDrawColor(pdf, it.Stroke.Color)
		pdf.SetLineWidth(it.Stroke.Width)
		pdf.SetDashPattern(it.Stroke.Dash, 0)
		style := "D"
		if it.Fill != nil {
			setFillColor(pdf, *it.Fill)
			style = "FD"
		}
		parts, closed := it.Path.Subpaths()
		for i, pts := range parts {
			if len(pts) < 2 {
				continue
			}
			pdf.MoveTo(pts[0].X, pts[0].Y)
			for _, p := range pts[1:] {
				pdf.LineTo(p.X, p.Y)
			}
			if closed[i] {
				pdf.ClosePath()
				pdf.DrawPath(style)
			} else {
				pdf.DrawPath("D")
			}
		}
	}
	pdf.SetDashPattern(nil, 0)
	pdf.SetTextColor(0, 0, 0)
}

func writeReport(pdf *gofpdf.Fpdf, snap domain.Snapshot) {
	pdf.AddPage()
	heading(pdf, "Nodes")
	table(pdf, []string{"ID", "x (m)", "y (m)", "Symbol", "Rotation"}, []float64{40, 80, 80, 140, 80}, func(row func(...string)) {
		for _, n := range snap.Nodes {
			row(strconv.Itoa(n.ID), trimFloat(n.X), trimFloat(n.Y), n.Symbol, trimFloat(n.Rotation))
		}
	})
	heading(pdf, "Members")
	table(pdf, []string{"ID", "Start", "End", "Kind", "Releases"}, []float64{40, 60, 60, 80, 200}, func(row func(...string)) {
		for _, m := range snap.Members {
			row(strconv.Itoa(m.ID), strconv.Itoa(m.Start), strconv.Itoa(m.End), string(m.Kind), releaseText(m.Releases))
		}
	})
	if len(snap.Loads) > 0 {
		heading(pdf, "Loads")
		table(pdf, []string{"ID", "Kind", "Target", "Value", "Angle"}, []float64{40, 80, 120, 120, 80}, func(row func(...string)) {
			for _, l := range snap.Loads {
				val := trimFloat(l.Value)
				if l.Kind == domain.DistributedLoad && l.ValueEnd != l.Value {
					val += " .. " + trimFloat(l.ValueEnd)
				}
				row(strconv.Itoa(l.ID), string(l.Kind), targetText(l.Target), val, trimFloat(l.Angle))
			}
		})
	}
}

func writeResults(pdf *gofpdf.Fpdf, res *domain.StaticResult) error {
	pdf.AddPage()
	if len(res.Reactions) > 0 {
		heading(pdf, "Reactions")
		table(pdf, []string{"Node", "Rx (kN)", "Ry (kN)", "M (kNm)"}, []float64{60, 100, 100, 100}, func(row func(...string)) {
			for _, k := range sortedKeys(res.Reactions) {
				r := res.Reactions[k]
				row(k, trimFloat(r[0]), trimFloat(r[1]), trimFloat(r[2]))
			}
		})
	}
	const cols = 2
	w, h := (pageW-3*36)/cols, (pageW-3*36)/cols*2/3
	i := 0
	for _, key := range sortedKeys(res.MemberResults) {
		mr := res.MemberResults[key]
		if len(mr.Stations) == 0 {
			continue
		}
		var buf bytes.Buffer
		if err := WriteForceDiagram(&buf, "png", "Member "+key, mr); err != nil {
			return err
		}
		name := "member-" + key
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(name, opts, &buf)
		if i%(cols*2) == 0 {
			pdf.AddPage()
		}
		slot := i % (cols * 2)
		x := 36 + float64(slot%cols)*(w+36)
		y := 36 + float64(slot/cols)*(h+24)
		pdf.ImageOptions(name, x, y, w, h, false, opts, 0, "")
		i++
	}
	return nil
}

func heading(pdf *gofpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 20, text, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
}

func table(pdf *gofpdf.Fpdf, header []string, widths []float64, rows func(row func(...string))) {
	pdf.SetFillColor(230, 230, 230)
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range header {
		pdf.CellFormat(widths[i], 16, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 10)
	rows(func(cells ...string) {
		for i, c := range cells {
			if i >= len(widths) {
				break
			}
			pdf.CellFormat(widths[i], 14, c, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	})
	pdf.Ln(8)
}

func releaseText(r domain.Releases) string {
	side := func(t domain.ReleaseTriple) string {
		s := ""
		if t.N {
			s += "N"
		}
		if t.V {
			s += "V"
		}
		if t.M {
			s += "M"
		}
		if s == "" {
			return "-"
		}
		return s
	}
	return "start " + side(r.Start) + ", end " + side(r.End)
}

func targetText(t domain.LoadTarget) string {
	if t.Kind == domain.TargetMember {
		return "member " + strconv.Itoa(t.MemberID)
	}
	return "node " + strconv.Itoa(t.NodeID)
}

// sortedKeys orders result keys numerically when they are node or member ids.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})
	return keys
}

func setDrawColor(pdf *gofpdf.Fpdf, c vector.Color) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setFillColor(pdf *gofpdf.Fpdf, c vector.Color) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}
