/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package export draws a structural system, optionally with its deformed
// shape, to SVG, PNG and PDF, and plots member force diagrams.
package export

import (
	"fmt"
	"math"

	"structsketch/internal/deform"
	"structsketch/internal/domain"
	"structsketch/internal/tools"
	"structsketch/internal/vector"
)

// Layer orders items; lower layers are drawn first.
type Layer int

const (
	LayerPanels Layer = iota
	LayerMembers
	LayerDeformed
	LayerSupports
	LayerLoads
	LayerLabels
)

// Item is one drawable primitive in device coordinates (Y down).
type Item struct {
	Layer  Layer
	Path   vector.Path
	Stroke vector.Stroke
	Fill   *vector.Color
	Text   string
	At     vector.Pt
	Size   float64 // text size
}

// Scene is a device-space drawing of a system.
type Scene struct {
	Width, Height float64
	Background    vector.Color
	Title         string
	Items         []Item
	// World maps meters to device units.
	World vector.Affine2D
}

// Options controls scene construction.
type Options struct {
	Width, Height float64 // device units; defaults 800x600
	Margin        float64 // defaults to 40
	Title         string
	Labels        bool
	HideLoads     bool
	// Deformed, if set, is drawn over the undeformed system.
	Deformed *deform.Frame
	// Poles are instantaneous centers keyed by member id.
	Poles map[int]vector.Pt
	// World, if set, replaces the fit-to-page transform.
	World *vector.Affine2D
}

const (
	nodeRadius  = 3.0
	glyphSize   = 10.0
	arrowLength = 36.0
)

// BuildScene lays snap out so that it fits the page with the given margin.
func BuildScene(snap domain.Snapshot, opt Options) Scene {
	if opt.Width <= 0 {
		opt.Width = 800
	}
	if opt.Height <= 0 {
		opt.Height = 600
	}
	if opt.Margin <= 0 {
		opt.Margin = 40
	}
	sc := Scene{Width: opt.Width, Height: opt.Height, Background: vector.White, Title: opt.Title}
	if opt.World != nil {
		sc.World = *opt.World
	} else {
		sc.World = fit(snap, opt)
	}

	nodes := make(map[int]domain.Node, len(snap.Nodes))
	for _, n := range snap.Nodes {
		nodes[n.ID] = n
	}
	dev := func(p vector.Pt) vector.Pt { return sc.World.Apply(p) }

	panelFill := vector.Color{R: 235, G: 240, B: 250, A: 255}
	for _, p := range snap.Panels {
		corners := p.Corners()
		for i := range corners {
			corners[i] = dev(corners[i])
		}
		sc.add(Item{Layer: LayerPanels, Path: vector.Polygon(corners...), Stroke: vector.Solid(vector.SupportBlue, 1), Fill: &panelFill})
	}

	for _, m := range snap.Members {
		a, okA := nodes[m.Start]
		b, okB := nodes[m.End]
		if !okA || !okB {
			continue
		}
		w := 2.0
		if m.Kind == domain.Truss {
			w = 1.2
		}
		pa, pb := dev(a.Pos()), dev(b.Pos())
		sc.add(Item{Layer: LayerMembers, Path: vector.Polyline(pa, pb), Stroke: vector.Solid(vector.Black, w)})
		// end moment releases show as open circles just inside the member
		dir := pb.Sub(pa)
		if l := dir.Len(); l > 0 {
			dir = dir.Mul(1 / l)
			if m.Releases.Start.M {
				sc.hingeGlyph(LayerMembers, pa.Add(dir.Mul(glyphSize*0.6)), glyphSize*0.35)
			}
			if m.Releases.End.M {
				sc.hingeGlyph(LayerMembers, pb.Sub(dir.Mul(glyphSize*0.6)), glyphSize*0.35)
			}
		}
	}

	for _, k := range snap.Constraints {
		a, okA := nodes[k.NodeA]
		b, okB := nodes[k.NodeB]
		if !okA || !okB {
			continue
		}
		pa, pb := dev(a.Pos()), dev(b.Pos())
		switch k.Kind {
		case domain.SpringConstraint:
			sc.add(Item{Layer: LayerMembers, Path: zigzag(pa, pb, 8, glyphSize*0.5), Stroke: vector.Solid(vector.Black, 1)})
		case domain.DamperConstraint:
			sc.add(Item{Layer: LayerMembers, Path: vector.Polyline(pa, pb), Stroke: vector.Dashed(vector.Black, 1.5, 6)})
		default:
			sc.add(Item{Layer: LayerMembers, Path: vector.Polyline(pa, pb), Stroke: vector.Solid(vector.AxisGray, 0.8)})
		}
	}

	if opt.Deformed != nil {
		sc.addDeformed(snap, opt.Deformed)
	}

	for _, n := range snap.Nodes {
		p := dev(n.Pos())
		sc.supportGlyph(p, n)
		black := vector.Black
		sc.add(Item{Layer: LayerSupports, Path: vector.Circle(p, nodeRadius, 12), Stroke: vector.Solid(vector.Black, 0.5), Fill: &black})
		if opt.Labels {
			sc.add(Item{Layer: LayerLabels, Text: fmt.Sprintf("N%d", n.ID), At: p.Add(vector.Pt{X: 6, Y: -6}), Size: 10})
		}
	}

	if !opt.HideLoads {
		for _, l := range snap.Loads {
			sc.addLoad(snap, nodes, l, opt.Labels)
		}
	}

	orange := vector.PoleOrange
	for id, pole := range opt.Poles {
		p := dev(pole)
		sc.add(Item{Layer: LayerLabels, Path: vector.Circle(p, 4, 12), Stroke: vector.Solid(vector.PoleOrange, 1), Fill: &orange})
		if opt.Labels {
			sc.add(Item{Layer: LayerLabels, Text: fmt.Sprintf("(%d)", id), At: p.Add(vector.Pt{X: 6, Y: 12}), Size: 9})
		}
	}

	if opt.Title != "" {
		sc.add(Item{Layer: LayerLabels, Text: opt.Title, At: vector.Pt{X: opt.Margin / 2, Y: opt.Margin / 2}, Size: 14})
	}
	sortItems(sc.Items)
	return sc
}

func (sc *Scene) add(it Item) {
	if it.Text != "" && it.Stroke.Color == (vector.Color{}) {
		it.Stroke.Color = vector.Black
	}
	sc.Items = append(sc.Items, it)
}

// fit returns the world-to-device transform that centers the system's bounds.
func fit(snap domain.Snapshot, opt Options) vector.Affine2D {
	var pts []vector.Pt
	for _, n := range snap.Nodes {
		pts = append(pts, n.Pos())
	}
	for _, p := range snap.Panels {
		pts = append(pts, p.Corners()...)
	}
	if opt.Deformed != nil {
		for _, p := range opt.Deformed.Nodes {
			pts = append(pts, p)
		}
	}
	for _, p := range opt.Poles {
		pts = append(pts, p)
	}
	b := vector.BoundsOf(pts)
	grid := snap.Meta.GridSize
	if grid <= 0 {
		grid = 1
	}
	// a single point or a straight line still gets a sensible scale
	w, h := math.Max(b.W, grid), math.Max(b.H, grid)
	s := math.Min((opt.Width-2*opt.Margin)/w, (opt.Height-2*opt.Margin)/h)
	if s <= 0 || math.IsInf(s, 0) || math.IsNaN(s) {
		s = 1
	}
	c := vector.Pt{X: b.X + b.W/2, Y: b.Y + b.H/2}
	return vector.Translate(opt.Width/2, opt.Height/2).Mul(vector.Scale(s, -s)).Mul(vector.Translate(-c.X, -c.Y))
}

func (sc *Scene) addDeformed(snap domain.Snapshot, f *deform.Frame) {
	st := vector.Solid(vector.DeformGreen, 1.6)
	for _, m := range snap.Members {
		a, okA := f.Nodes[m.Start]
		b, okB := f.Nodes[m.End]
		if !okA || !okB {
			continue
		}
		sc.add(Item{Layer: LayerDeformed, Path: vector.Polyline(sc.World.Apply(a), sc.World.Apply(b)), Stroke: st})
	}
	for _, pose := range f.Panels {
		corners := make([]vector.Pt, len(pose.Corners))
		for i, c := range pose.Corners {
			corners[i] = sc.World.Apply(c)
		}
		sc.add(Item{Layer: LayerDeformed, Path: vector.Polygon(corners...), Stroke: vector.Dashed(vector.DeformGreen, 1, 4)})
	}
}

func (sc *Scene) hingeGlyph(layer Layer, p vector.Pt, r float64) {
	white := vector.White
	sc.add(Item{Layer: layer, Path: vector.Circle(p, r, 16), Stroke: vector.Solid(vector.Black, 1), Fill: &white})
}

// supportGlyph draws the node's symbol in its rotated frame. Screen rotation is
// clockwise in device space because Y points down.
func (sc *Scene) supportGlyph(p vector.Pt, n domain.Node) {
	rot := vector.DegToRad(n.Rotation)
	at := func(x, y float64) vector.Pt { return p.Add(vector.Pt{X: x, Y: y}.Rotate(rot)) }
	s := glyphSize
	st := vector.Solid(vector.SupportBlue, 1.2)
	switch n.Symbol {
	case tools.SymPinned:
		sc.add(Item{Layer: LayerSupports, Path: vector.Polygon(p, at(-s, 1.5*s), at(s, 1.5*s)), Stroke: st})
	case tools.SymRoller:
		sc.add(Item{Layer: LayerSupports, Path: vector.Polygon(p, at(-s, 1.5*s), at(s, 1.5*s)), Stroke: st})
		sc.add(Item{Layer: LayerSupports, Path: vector.Polyline(at(-s, 2*s), at(s, 2*s)), Stroke: st})
	case tools.SymFixed:
		var hatch vector.Path
		hatch.MoveTo(at(-s, 0))
		hatch.LineTo(at(s, 0))
		for x := -s; x <= s; x += s / 2 {
			hatch.MoveTo(at(x, 0))
			hatch.LineTo(at(x-s/2, s/2))
		}
		sc.add(Item{Layer: LayerSupports, Path: hatch, Stroke: st})
	case tools.SymSliding:
		sc.add(Item{Layer: LayerSupports, Path: vector.Polyline(at(-s, s/2), at(s, s/2)), Stroke: st})
		sc.add(Item{Layer: LayerSupports, Path: vector.Polyline(at(-s, s), at(s, s)), Stroke: st})
	case tools.SymSpring:
		sc.add(Item{Layer: LayerSupports, Path: zigzag(p, at(0, 2*s), 6, s/2), Stroke: st})
		sc.add(Item{Layer: LayerSupports, Path: vector.Polyline(at(-s, 2*s), at(s, 2*s)), Stroke: st})
	case tools.SymRotationalSpring:
		var spiral vector.Path
		for i := 0; i <= 24; i++ {
			a := float64(i) / 24 * 3 * math.Pi
			r := s * (0.2 + 0.8*float64(i)/24)
			q := p.Add(vector.Pt{X: r * math.Cos(a), Y: r * math.Sin(a)})
			if i == 0 {
				spiral.MoveTo(q)
			} else {
				spiral.LineTo(q)
			}
		}
		sc.add(Item{Layer: LayerSupports, Path: spiral, Stroke: st})
	case tools.SymMomentHinge, tools.SymShearHinge, tools.SymAxialHinge:
		sc.hingeGlyph(LayerSupports, p, s*0.5)
	}
}

// zigzag draws a spring between a and b with n teeth of amplitude amp.
func zigzag(a, b vector.Pt, n int, amp float64) vector.Path {
	d := b.Sub(a)
	l := d.Len()
	if l == 0 || n < 1 {
		return vector.Polyline(a, b)
	}
	u := d.Mul(1 / l)
	nrm := vector.Pt{X: -u.Y, Y: u.X}
	lead := l * 0.15
	var p vector.Path
	p.MoveTo(a)
	p.LineTo(a.Add(u.Mul(lead)))
	step := (l - 2*lead) / float64(n)
	for i := 0; i < n; i++ {
		side := 1.0
		if i%2 == 1 {
			side = -1
		}
		p.LineTo(a.Add(u.Mul(lead + step*(float64(i)+0.5))).Add(nrm.Mul(amp * side)))
	}
	p.LineTo(b.Sub(u.Mul(lead)))
	p.LineTo(b)
	return p
}

// loadPoint returns the world position a load acts on.
func loadPoint(snap domain.Snapshot, nodes map[int]domain.Node, t domain.LoadTarget, ratio float64) (vector.Pt, bool) {
	switch t.Kind {
	case domain.TargetNode:
		n, ok := nodes[t.NodeID]
		return n.Pos(), ok
	case domain.TargetMember:
		for _, m := range snap.Members {
			if m.ID != t.MemberID {
				continue
			}
			a, okA := nodes[m.Start]
			b, okB := nodes[m.End]
			if !okA || !okB {
				return vector.Pt{}, false
			}
			return vector.Lerp(a.Pos(), b.Pos(), ratio), true
		}
	}
	return vector.Pt{}, false
}

// arrow ends at tip and points along the screen angle (0 = +x, 90 = down).
func arrow(tip vector.Pt, angleDeg, length float64) vector.Path {
	a := vector.DegToRad(angleDeg)
	dir := vector.Pt{X: math.Cos(a), Y: math.Sin(a)}
	tail := tip.Sub(dir.Mul(length))
	head := math.Min(8, length/3)
	left := tip.Sub(dir.Rotate(math.Pi / 7).Mul(head))
	right := tip.Sub(dir.Rotate(-math.Pi / 7).Mul(head))
	var p vector.Path
	p.MoveTo(tail)
	p.LineTo(tip)
	p.MoveTo(left)
	p.LineTo(tip)
	p.LineTo(right)
	return p
}

func (sc *Scene) addLoad(snap domain.Snapshot, nodes map[int]domain.Node, l domain.Load, labels bool) {
	st := vector.Solid(vector.LoadRed, 1.4)
	switch l.Kind {
	case domain.PointLoad:
		w, ok := loadPoint(snap, nodes, l.Target, l.Ratio)
		if !ok {
			return
		}
		tip := sc.World.Apply(w)
		angle := l.Angle
		if l.Value < 0 {
			angle += 180
		}
		sc.add(Item{Layer: LayerLoads, Path: arrow(tip, angle, arrowLength), Stroke: st})
		if labels {
			sc.add(Item{Layer: LayerLabels, Text: formatValue(l.Value, "kN"), At: tip.Add(vector.Pt{X: 6, Y: -arrowLength / 2}), Size: 9, Stroke: st})
		}
	case domain.MomentLoad:
		w, ok := loadPoint(snap, nodes, l.Target, l.Ratio)
		if !ok {
			return
		}
		c := sc.World.Apply(w)
		r := glyphSize * 1.6
		var p vector.Path
		sweep := 1.5 * math.Pi
		if l.Value < 0 {
			sweep = -sweep
		}
		const n = 18
		for i := 0; i <= n; i++ {
			a := -math.Pi/2 + sweep*float64(i)/n
			q := c.Add(vector.Pt{X: r * math.Cos(a), Y: r * math.Sin(a)})
			if i == 0 {
				p.MoveTo(q)
			} else {
				p.LineTo(q)
			}
		}
		sc.add(Item{Layer: LayerLoads, Path: p, Stroke: st})
		if labels {
			sc.add(Item{Layer: LayerLabels, Text: formatValue(l.Value, "kNm"), At: c.Add(vector.Pt{X: r + 4, Y: -r}), Size: 9, Stroke: st})
		}
	case domain.DistributedLoad:
		r0, r1 := l.Ratio, l.RatioEnd
		if r0 == 0 && r1 == 0 {
			r1 = 1
		}
		peak := math.Max(math.Abs(l.Value), math.Abs(l.ValueEnd))
		if peak == 0 {
			peak = 1
		}
		const stations = 6
		var tails []vector.Pt
		for i := 0; i <= stations; i++ {
			t := float64(i) / stations
			w, ok := loadPoint(snap, nodes, l.Target, r0+(r1-r0)*t)
			if !ok {
				return
			}
			v := l.Value + (l.ValueEnd-l.Value)*t
			length := arrowLength * math.Abs(v) / peak
			tip := sc.World.Apply(w)
			angle := l.Angle
			if v < 0 {
				angle += 180
			}
			a := vector.DegToRad(angle)
			tails = append(tails, tip.Sub(vector.Pt{X: math.Cos(a), Y: math.Sin(a)}.Mul(length)))
			if length > 1 {
				sc.add(Item{Layer: LayerLoads, Path: arrow(tip, angle, length), Stroke: vector.Solid(vector.LoadRed, 1)})
			}
		}
		sc.add(Item{Layer: LayerLoads, Path: vector.Polyline(tails...), Stroke: st})
		if labels {
			txt := formatValue(l.Value, "kN/m")
			if l.ValueEnd != l.Value {
				txt += " .. " + formatValue(l.ValueEnd, "kN/m")
			}
			sc.add(Item{Layer: LayerLabels, Text: txt, At: tails[len(tails)/2].Add(vector.Pt{X: 0, Y: -6}), Size: 9, Stroke: st})
		}
	}
}

func formatValue(v float64, unit string) string {
	return fmt.Sprintf("%s %s", trimFloat(v), unit)
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	for len(s) > 1 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}

// sortItems is a stable sort by layer.
func sortItems(items []Item) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].Layer < items[j-1].Layer; j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}
