/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "math"

type PathOp uint8

const (
	MoveTo PathOp = iota
	LineTo
	Close
)

type PathCmd struct {
	Op PathOp
	P  Pt
}

// Path is a sequence of straight segments. Curves (deflected members, mode
// shapes) are sampled into line segments before they reach a Path.
type Path struct{ Cmds []PathCmd }

func (p *Path) MoveTo(pt Pt) { p.Cmds = append(p.Cmds, PathCmd{Op: MoveTo, P: pt}) }
func (p *Path) LineTo(pt Pt) { p.Cmds = append(p.Cmds, PathCmd{Op: LineTo, P: pt}) }
func (p *Path) Close()       { p.Cmds = append(p.Cmds, PathCmd{Op: Close}) }

// Polyline builds an open path through pts.
func Polyline(pts ...Pt) Path {
	var p Path
	for i, pt := range pts {
		if i == 0 {
			p.MoveTo(pt)
			continue
		}
		p.LineTo(pt)
	}
	return p
}

// Polygon builds a closed path through pts.
func Polygon(pts ...Pt) Path {
	p := Polyline(pts...)
	if len(pts) > 0 {
		p.Close()
	}
	return p
}

// Transform returns a copy of p with m applied to every point.
func (p Path) Transform(m Affine2D) Path {
	out := Path{Cmds: make([]PathCmd, len(p.Cmds))}
	for i, c := range p.Cmds {
		if c.Op != Close {
			c.P = m.Apply(c.P)
		}
		out.Cmds[i] = c
	}
	return out
}

// Subpaths splits p at MoveTo commands; closed reports whether each ends with Close.
func (p Path) Subpaths() (parts [][]Pt, closed []bool) {
	for _, c := range p.Cmds {
		switch c.Op {
		case MoveTo:
			parts = append(parts, []Pt{c.P})
			closed = append(closed, false)
		case LineTo:
			if len(parts) == 0 {
				parts = append(parts, nil)
				closed = append(closed, false)
			}
			parts[len(parts)-1] = append(parts[len(parts)-1], c.P)
		case Close:
			if len(closed) > 0 {
				closed[len(closed)-1] = true
			}
		}
	}
	return parts, closed
}

// Bounds returns the axis-aligned box of all points in p.
func (p Path) Bounds() Rect {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range p.Cmds {
		if c.Op == Close {
			continue
		}
		minX, maxX = math.Min(minX, c.P.X), math.Max(maxX, c.P.X)
		minY, maxY = math.Min(minY, c.P.Y), math.Max(maxY, c.P.Y)
	}
	if minX > maxX || minY > maxY {
		return Rect{}
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Circle samples a closed polygon with n segments.
func Circle(c Pt, r float64, n int) Path {
	if n < 3 {
		n = 3
	}
	pts := make([]Pt, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = Pt{X: c.X + r*math.Cos(a), Y: c.Y + r*math.Sin(a)}
	}
	return Polygon(pts...)
}
