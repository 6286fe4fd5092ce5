/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package viewport maps between world meters and canvas pixels.
package viewport

import (
	"math"

	"structsketch/internal/vector"
)

// DefaultCellsAcross is the number of grid cells that fill the canvas width.
const DefaultCellsAcross = 20

// Viewport is a value type; callers copy it freely.
type Viewport struct {
	Size        vector.Size // canvas size in pixels
	GridSize    float64     // meters per grid cell
	CellsAcross float64
	Offset      vector.Pt // pan offset in pixels
}

// New returns a viewport with the default cell count.
func New(w, h, gridSize float64) Viewport {
	return Viewport{Size: vector.Size{W: w, H: h}, GridSize: gridSize, CellsAcross: DefaultCellsAcross}
}

// Scale returns pixels per meter, or 0 for a degenerate canvas or grid.
func (v Viewport) Scale() float64 {
	cells := v.CellsAcross
	if cells <= 0 {
		cells = DefaultCellsAcross
	}
	if v.Size.W <= 0 || v.Size.H <= 0 || v.GridSize <= 0 {
		return 0
	}
	return v.Size.W / (cells * v.GridSize)
}

// Origin is the pixel position of world (0,0).
func (v Viewport) Origin() vector.Pt {
	w, h := math.Max(v.Size.W, 0), math.Max(v.Size.H, 0)
	return vector.Pt{X: w/2 + v.Offset.X, Y: h/2 + v.Offset.Y}
}

// ToPixel maps a world point to canvas pixels.
func (v Viewport) ToPixel(real vector.Pt) vector.Pt {
	o, s := v.Origin(), v.Scale()
	return vector.Pt{X: o.X + real.X*s, Y: o.Y - real.Y*s}
}

// ToReal maps canvas pixels to world meters. A degenerate viewport maps
// everything onto the world origin.
func (v Viewport) ToReal(pixel vector.Pt) vector.Pt {
	s := v.Scale()
	if s == 0 {
		return vector.Pt{}
	}
	o := v.Origin()
	return vector.Pt{X: (pixel.X - o.X) / s, Y: (o.Y - pixel.Y) / s}
}

// Transform is ToPixel as an affine map.
func (v Viewport) Transform() vector.Affine2D {
	o, s := v.Origin(), v.Scale()
	return vector.Translate(o.X, o.Y).Mul(vector.Scale(s, -s))
}

// PixelLength converts a distance in meters to pixels.
func (v Viewport) PixelLength(meters float64) float64 { return meters * v.Scale() }

// Resize changes only the canvas size.
func (v *Viewport) Resize(w, h float64) { v.Size = vector.Size{W: w, H: h} }

// Pan shifts the world origin by a pixel delta.
func (v *Viewport) Pan(d vector.Pt) { v.Offset = v.Offset.Add(d) }

// SnapToGrid rounds a world point to the nearest grid multiple.
func (v Viewport) SnapToGrid(real vector.Pt) vector.Pt {
	if v.GridSize <= 0 {
		return real
	}
	g := v.GridSize
	return vector.Pt{X: math.Round(real.X/g) * g, Y: math.Round(real.Y/g) * g}
}

// VisibleWorld returns the world rectangle currently on screen.
func (v Viewport) VisibleWorld() vector.Rect {
	a := v.ToReal(vector.Pt{})
	b := v.ToReal(vector.Pt{X: v.Size.W, Y: v.Size.H})
	x0, y0 := math.Min(a.X, b.X), math.Min(a.Y, b.Y)
	return vector.R(x0, y0, math.Max(a.X, b.X)-x0, math.Max(a.Y, b.Y)-y0)
}

// GridLine is a pixel-space segment. Axis is set for the x=0 and y=0 lines.
type GridLine struct {
	A, B     vector.Pt
	Axis     bool
	Vertical bool
}

// GridLines returns every visible grid line in pixel space.
func (v Viewport) GridLines() []GridLine {
	if v.Scale() == 0 {
		return nil
	}
	world := v.VisibleWorld()
	lo, hi := world.Min(), world.Max()
	g := v.GridSize
	var out []GridLine
	for i := math.Ceil(lo.X / g); i*g <= hi.X; i++ {
		x := v.ToPixel(vector.Pt{X: i * g}).X
		out = append(out, GridLine{A: vector.Pt{X: x}, B: vector.Pt{X: x, Y: v.Size.H}, Axis: i == 0, Vertical: true})
	}
	for j := math.Ceil(lo.Y / g); j*g <= hi.Y; j++ {
		y := v.ToPixel(vector.Pt{Y: j * g}).Y
		out = append(out, GridLine{A: vector.Pt{Y: y}, B: vector.Pt{X: v.Size.W, Y: y}, Axis: j == 0})
	}
	return out
}
