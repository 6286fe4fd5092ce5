/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"strings"
	"testing"

	"structsketch/internal/deform"
	"structsketch/internal/domain"
	"structsketch/internal/export"
	"structsketch/internal/gesture"
	"structsketch/internal/hinge"
	"structsketch/internal/model"
	"structsketch/internal/tools"
	"structsketch/internal/vector"
	"structsketch/internal/viewport"
)

func beam(t *testing.T) (domain.Snapshot, int, int) {
	t.Helper()
	s := model.New(1)
	a := s.AddNode(vector.Pt{X: 0, Y: 0}, tools.SymPinned, 0, nil)
	b := s.AddNode(vector.Pt{X: 4, Y: 0}, tools.SymRoller, 0, nil)
	m, ok := s.AddMember(a, b, domain.Beam, nil)
	if !ok {
		t.Fatalf("AddMember failed")
	}
	return s.ExportSnapshot(), a, m
}

func TestComposeSceneUsesViewport(t *testing.T) {
	snap, _, _ := beam(t)
	view := viewport.New(400, 300, 1)
	sc := ComposeScene(snap, view, Overlay{Grid: true}, nil, nil)
	if sc.Width != 400 || sc.Height != 300 {
		t.Fatalf("scene size %vx%v", sc.Width, sc.Height)
	}
	p := sc.World.Apply(vector.Pt{X: 4, Y: 0})
	if !p.Eq(view.ToPixel(vector.Pt{X: 4, Y: 0}), 1e-9) {
		t.Fatalf("scene world transform differs from viewport: %v", p)
	}
	if len(sc.Items) <= len(view.GridLines()) {
		t.Fatalf("expected grid plus system items, got %d", len(sc.Items))
	}
	if sc.Items[0].Layer != export.LayerPanels {
		t.Fatalf("grid should be drawn first")
	}
}

func TestComposeSceneOverlays(t *testing.T) {
	snap, node, member := beam(t)
	view := viewport.New(400, 300, 1)
	base := len(ComposeScene(snap, view, Overlay{}, nil, nil).Items)
	ov := Overlay{
		SelNode: node, SelMember: member,
		HasPreview: true, Preview: [2]vector.Pt{{X: 0, Y: 0}, {X: 1, Y: 1}},
		ShowCursor: true, Cursor: vector.Pt{X: 2, Y: 2}, Tool: tools.Support{Symbol: tools.SymFixed},
	}
	// selection member, selection node, preview, cursor ring, rotation tick
	if got := len(ComposeScene(snap, view, ov, nil, nil).Items); got != base+5 {
		t.Fatalf("overlay items = %d, want %d", got-base, 5)
	}
	ov.Tool = tools.Select{}
	if got := len(ComposeScene(snap, view, ov, nil, nil).Items); got != base+3 {
		t.Fatalf("select tool should hide the cursor ghost, got %d overlays", got-base)
	}
}

func TestComposeSceneDeformed(t *testing.T) {
	snap, _, _ := beam(t)
	frame := &deform.Frame{Nodes: map[int]vector.Pt{1: {X: 0, Y: 0}, 2: {X: 4, Y: -0.3}}}
	sc := ComposeScene(snap, viewport.New(400, 300, 1), Overlay{}, frame, nil)
	found := false
	for _, it := range sc.Items {
		if it.Layer == export.LayerDeformed {
			found = true
		}
	}
	if !found {
		t.Fatalf("deformed shape not drawn")
	}
}

func TestParseLoadFields(t *testing.T) {
	req := gesture.Request{Kind: domain.PointLoad, Value: 10, Ratio: 0.5}
	ans, err := ParseLoadFields(req, LoadFields{Value: " 12,5 "})
	if err != nil || !ans.OK || ans.Value != 12.5 || ans.Ratio != 0.5 {
		t.Fatalf("answer = %+v, err = %v", ans, err)
	}
	if _, err := ParseLoadFields(req, LoadFields{Value: "ten"}); err == nil {
		t.Fatalf("expected parse error")
	}
	ans, err = ParseLoadFields(req, LoadFields{})
	if err != nil || ans.Value != 10 {
		t.Fatalf("empty value should keep default: %+v %v", ans, err)
	}
}

func TestParseLoadFieldsDistributed(t *testing.T) {
	req := gesture.Request{Kind: domain.DistributedLoad, Value: 5, ValueEnd: 5, Ratio: 0, RatioEnd: 1}
	ans, err := ParseLoadFields(req, LoadFields{Value: "2", ValueEnd: "4", Ratio: "0.25", RatioEnd: ""})
	if err != nil {
		t.Fatalf("ParseLoadFields: %v", err)
	}
	if ans.Value != 2 || ans.ValueEnd != 4 || ans.Ratio != 0.25 || ans.RatioEnd != 1 {
		t.Fatalf("answer = %+v", ans)
	}
	if _, err := ParseLoadFields(req, LoadFields{Value: "1", Ratio: "1.5"}); err == nil {
		t.Fatalf("expected ratio range error")
	}
}

func TestFieldsForAndTitle(t *testing.T) {
	req := gesture.Request{Kind: domain.DistributedLoad, Target: domain.LoadTarget{Kind: domain.TargetMember, MemberID: 3}, Value: 1.5, ValueEnd: 2, RatioEnd: 1}
	f := FieldsFor(req)
	if f.Value != "1.5" || f.ValueEnd != "2" || f.Ratio != "0" || f.RatioEnd != "1" {
		t.Fatalf("fields = %+v", f)
	}
	if got := LoadTitle(req); got != "Line load on member 3" {
		t.Fatalf("title = %q", got)
	}
}

func TestEndLabels(t *testing.T) {
	d := hinge.DoubleHinge{NodeID: 2, Ends: []domain.MemberEnd{{MemberID: 1, Side: domain.EndEnd}, {MemberID: 2, Side: domain.StartEnd}}}
	got := strings.Join(EndLabels(d), "|")
	if got != "member 1 (end end)|member 2 (start end)" {
		t.Fatalf("labels = %q", got)
	}
}

func TestAmplitude(t *testing.T) {
	if got := Amplitude(nil, 0.5, 1, 1); got != 0 {
		t.Fatalf("nil analysis amplitude = %v", got)
	}
	modal := &deform.Analysis{View: deform.ViewModal}
	if got := Amplitude(modal, 0.5, 2, 3); got != 3 {
		t.Fatalf("modal amplitude = %v, want 3", got)
	}
	static := &deform.Analysis{View: deform.ViewStatic, Static: &domain.StaticResult{
		Displacements: map[string]domain.Vec3{"1": {0.003, -0.004, 0}},
	}}
	// peak displacement 0.005 m is scaled to 1 m
	if got := Amplitude(static, 1, 1, 1); got < 199.999 || got > 200.001 {
		t.Fatalf("static amplitude = %v, want 200", got)
	}
}
