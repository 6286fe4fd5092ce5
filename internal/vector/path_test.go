/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "testing"

func TestPathBoundsAndTransform(t *testing.T) {
	p := Polygon(Pt{0, 0}, Pt{10, 0}, Pt{0, 10})
	b := p.Bounds()
	if b.X != 0 || b.Y != 0 || b.W != 10 || b.H != 10 {
		t.Fatalf("unexpected bounds: %+v", b)
	}
	moved := p.Transform(Translate(5, 5))
	if bb := moved.Bounds(); bb.X != 5 || bb.Y != 5 || bb.W != 10 || bb.H != 10 {
		t.Fatalf("unexpected transformed bounds: %+v", bb)
	}
	// source untouched
	if p.Cmds[1].P != (Pt{10, 0}) {
		t.Fatalf("Transform mutated the source path")
	}
	if (Path{}).Bounds() != (Rect{}) {
		t.Fatalf("empty path bounds should be zero")
	}
}

func TestPathSubpaths(t *testing.T) {
	var p Path
	p.MoveTo(Pt{0, 0})
	p.LineTo(Pt{1, 0})
	p.Close()
	p.MoveTo(Pt{5, 5})
	p.LineTo(Pt{6, 6})
	p.LineTo(Pt{7, 5})
	parts, closed := p.Subpaths()
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 3 {
		t.Fatalf("parts = %v", parts)
	}
	if !closed[0] || closed[1] {
		t.Fatalf("closed = %v", closed)
	}
}

func TestCircleAndHex(t *testing.T) {
	c := Circle(Pt{1, 1}, 2, 4)
	if b := c.Bounds(); !b.Min().Eq(Pt{-1, -1}, 1e-9) || !b.Max().Eq(Pt{3, 3}, 1e-9) {
		t.Fatalf("circle bounds = %+v", b)
	}
	if got := (Color{255, 16, 1, 255}).Hex(); got != "#ff1001" {
		t.Fatalf("Hex = %q", got)
	}
	if s := Dashed(Black, 1, 4); len(s.Dash) != 2 {
		t.Fatalf("dash = %v", s.Dash)
	}
}
