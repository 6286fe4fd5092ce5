/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"structsketch/internal/deform"
	"structsketch/internal/domain"
	"structsketch/internal/export"
	"structsketch/internal/tools"
	"structsketch/internal/vector"
	"structsketch/internal/viewport"
)

var (
	gridColor      = vector.Color{R: 228, G: 228, B: 228, A: 255}
	selectionColor = vector.Color{R: 0, G: 170, B: 255, A: 255}
)

// Overlay is the transient editor state drawn on top of the system.
type Overlay struct {
	Grid bool
	// Preview is the rubber-band connection in world coordinates.
	Preview    [2]vector.Pt
	HasPreview bool
	Cursor     vector.Pt
	ShowCursor bool
	Tool       tools.Tool
	Rotation   float64
	SelNode    int
	SelMember  int
}

// ComposeScene renders snap through the canvas viewport with grid, deformed
// shape and editor overlays.
func ComposeScene(snap domain.Snapshot, view viewport.Viewport, ov Overlay, frame *deform.Frame, poles map[int]vector.Pt) export.Scene {
	world := view.Transform()
	sc := export.BuildScene(snap, export.Options{
		Width: view.Size.W, Height: view.Size.H, Labels: true,
		Deformed: frame, Poles: poles, World: &world,
	})
	if ov.Grid {
		sc.Items = append(gridItems(view), sc.Items...)
	}
	sc.Items = append(sc.Items, overlayItems(snap, world, ov)...)
	return sc
}

func gridItems(view viewport.Viewport) []export.Item {
	lines := view.GridLines()
	items := make([]export.Item, 0, len(lines))
	for _, l := range lines {
		st := vector.Solid(gridColor, 1)
		if l.Axis {
			st = vector.Solid(vector.AxisGray, 1)
		}
		items = append(items, export.Item{Layer: export.LayerPanels, Path: vector.Polyline(l.A, l.B), Stroke: st})
	}
	return items
}

func overlayItems(snap domain.Snapshot, world vector.Affine2D, ov Overlay) []export.Item {
	var items []export.Item
	sel := vector.Solid(selectionColor, 4)
	if ov.SelMember != 0 {
		for _, m := range snap.Members {
			if m.ID != ov.SelMember {
				continue
			}
			a, okA := nodePos(snap, m.Start)
			b, okB := nodePos(snap, m.End)
			if okA && okB {
				items = append(items, export.Item{Layer: export.LayerLabels, Path: vector.Polyline(world.Apply(a), world.Apply(b)), Stroke: sel})
			}
		}
	}
	if ov.SelNode != 0 {
		if p, ok := nodePos(snap, ov.SelNode); ok {
			items = append(items, export.Item{Layer: export.LayerLabels, Path: vector.Circle(world.Apply(p), 8, 16), Stroke: vector.Solid(selectionColor, 2)})
		}
	}
	if ov.HasPreview {
		items = append(items, export.Item{Layer: export.LayerLabels,
			Path: vector.Polyline(world.Apply(ov.Preview[0]), world.Apply(ov.Preview[1])), Stroke: vector.Dashed(selectionColor, 1.5, 5)})
	}
	if ov.ShowCursor && ov.Tool != nil && ov.Tool.Category() != tools.CatSelect {
		c := world.Apply(ov.Cursor)
		items = append(items, export.Item{Layer: export.LayerLabels, Path: vector.Circle(c, 5, 12), Stroke: vector.Solid(selectionColor, 1)})
		if ov.Tool.Category() == tools.CatSupport {
			// rotation tick points along the support's local down direction
			tip := c.Add(vector.Pt{X: 0, Y: 14}.Rotate(vector.DegToRad(ov.Rotation)))
			items = append(items, export.Item{Layer: export.LayerLabels, Path: vector.Polyline(c, tip), Stroke: vector.Solid(selectionColor, 1.5)})
		}
	}
	return items
}

func nodePos(snap domain.Snapshot, id int) (vector.Pt, bool) {
	for _, n := range snap.Nodes {
		if n.ID == id {
			return n.Pos(), true
		}
	}
	return vector.Pt{}, false
}
