/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Drawing styles shared by the canvas and the exporters.

type Color struct{ R, G, B, A uint8 }

var (
	Black       = Color{0, 0, 0, 255}
	White       = Color{255, 255, 255, 255}
	Transparent = Color{0, 0, 0, 0}
	GridGray    = Color{225, 225, 225, 255}
	AxisGray    = Color{160, 160, 160, 255}
	SupportBlue = Color{30, 90, 200, 255}
	LoadRed     = Color{200, 30, 30, 255}
	DeformGreen = Color{20, 150, 60, 255}
	PoleOrange  = Color{230, 140, 20, 255}
)

// Hex formats c as #rrggbb.
func (c Color) Hex() string {
	const digits = "0123456789abcdef"
	b := []byte{'#', 0, 0, 0, 0, 0, 0}
	for i, v := range []uint8{c.R, c.G, c.B} {
		b[1+2*i] = digits[v>>4]
		b[2+2*i] = digits[v&0x0f]
	}
	return string(b)
}

type Stroke struct {
	Color Color
	Width float64 // device units (px, pt)
	Dash  []float64
}

// Solid returns an undashed stroke.
func Solid(c Color, w float64) Stroke { return Stroke{Color: c, Width: w} }

// Dashed returns a stroke with equal dash and gap length.
func Dashed(c Color, w, dash float64) Stroke { return Stroke{Color: c, Width: w, Dash: []float64{dash, dash}} }
