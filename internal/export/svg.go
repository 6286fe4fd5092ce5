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
	"strings"

	"structsketch/internal/domain"
	"structsketch/internal/vector"
)

// WriteSVG renders sc as a standalone SVG document. Coordinates are device units.
func WriteSVG(w io.Writer, sc Scene) error {
	var buf bytes.Buffer
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(&buf, format, args...)
	}

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" version=\"1.1\" width=\"%g\" height=\"%g\" viewBox=\"0 0 %g %g\">\n", sc.Width, sc.Height, sc.Width, sc.Height)
	if sc.Title != "" {
		wf("  <title>%s</title>\n", escText(sc.Title))
	}
	wf("  <rect x=\"0\" y=\"0\" width=\"%g\" height=\"%g\" fill=\"%s\"/>\n", sc.Width, sc.Height, sc.Background.Hex())

	for _, it := range sc.Items {
		if it.Text != "" {
			size := it.Size
			if size <= 0 {
				size = 10
			}
			wf("  <text x=\"%.2f\" y=\"%.2f\" font-family=\"Helvetica, Arial, sans-serif\" font-size=\"%g\" fill=\"%s\">%s</text>\n",
				it.At.X, it.At.Y, size, it.Stroke.Color.Hex(), escText(it.Text))
			continue
		}
		d := svgPathData(it.Path)
		if d == "" {
			continue
		}
		fill := "none"
		if it.Fill != nil {
			fill = it.Fill.Hex()
		}
		wf("  <path d=\"%s\" fill=\"%s\" stroke=\"%s\" stroke-width=\"%g\"%s/>\n", d, fill, it.Stroke.Color.Hex(), it.Stroke.Width, svgDash(it.Stroke))
	}
	wf("</svg>\n")

	if werr != nil {
		return fmt.Errorf("build svg: %w", werr)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

// ExportSVG builds the scene for snap and writes it to path.
func ExportSVG(path string, snap domain.Snapshot, opt Options) error {
	return writeFile(path, func(w io.Writer) error { return WriteSVG(w, BuildScene(snap, opt)) })
}

func svgPathData(p vector.Path) string {
	var sb strings.Builder
	for _, c := range p.Cmds {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		switch c.Op {
		case vector.MoveTo:
			fmt.Fprintf(&sb, "M%.2f %.2f", c.P.X, c.P.Y)
		case vector.LineTo:
			fmt.Fprintf(&sb, "L%.2f %.2f", c.P.X, c.P.Y)
		case vector.Close:
			sb.WriteByte('Z')
		}
	}
	return sb.String()
}

func svgDash(s vector.Stroke) string {
	if len(s.Dash) == 0 {
		return ""
	}
	parts := make([]string, len(s.Dash))
	for i, d := range s.Dash {
		parts[i] = fmt.Sprintf("%g", d)
	}
	return " stroke-dasharray=\"" + escAttr(strings.Join(parts, " ")) + "\""
}

func escAttr(s string) string {
	// naive escaping sufficient for our simple usage
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '"':
			out = append(out, '&', 'q', 'u', 'o', 't', ';')
		case '\n':
			out = append(out, ' ')
		case '\r':
			// skip
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}

func escText(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '&':
			out = append(out, '&', 'a', 'm', 'p', ';')
		case '<':
			out = append(out, '&', 'l', 't', ';')
		case '>':
			out = append(out, '&', 'g', 't', ';')
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}
