/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"math"
	"testing"

	"structsketch/internal/vector"
)

func TestSnapshotJSONFieldNames(t *testing.T) {
	s := Snapshot{
		Nodes:   []Node{{ID: 1, X: 0, Y: 0}, {ID: 2, X: 3, Y: 0}},
		Members: []Member{{ID: 1, Start: 1, End: 2, Kind: Beam, Section: DefaultSection()}},
		Meta:    Meta{Version: SnapshotVersion, GridSize: 1},
	}
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, k := range []string{"nodes", "members", "loads", "meta"} {
		if _, ok := raw[k]; !ok {
			t.Fatalf("missing key %q in %s", k, b)
		}
	}
	if _, ok := raw["scheiben"]; ok {
		t.Fatalf("empty panels should be omitted: %s", b)
	}
	members := raw["members"].([]any)
	m0 := members[0].(map[string]any)
	if m0["startNodeId"].(float64) != 1 || m0["endNodeId"].(float64) != 2 {
		t.Fatalf("unexpected member encoding: %v", m0)
	}
}

func TestKinematicResultDecodesNullPoles(t *testing.T) {
	payload := `{"is_kinematic":true,"dof":1,"modes":[{"velocities":{"2":[0,1]},"member_poles":{"1":[0,0],"2":null},"rigid_bodies":[{"member_ids":[1],"center_or_vector":[0,0],"movement_type":"rotation"}]}]}`
	var r KinematicResult
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !r.IsKinematic || r.DOF != 1 || len(r.Modes) != 1 {
		t.Fatalf("unexpected result: %+v", r)
	}
	if r.Modes[0].MemberPoles["2"] != nil {
		t.Fatalf("null pole should decode to nil")
	}
	if v := r.Modes[0].Velocities[Key(2)]; v != (Vec2{0, 1}) {
		t.Fatalf("velocity = %v", v)
	}
}

func TestPanelCornersRectangleRotation(t *testing.T) {
	p := Panel{Shape: RectanglePanel, P1: vector.Pt{}, P2: vector.Pt{X: 2, Y: 2}, Rotation: 90}
	cs := p.Corners()
	if len(cs) != 4 {
		t.Fatalf("corners = %d, want 4", len(cs))
	}
	c := p.Center()
	if math.Abs(c.X-1) > 1e-9 || math.Abs(c.Y-1) > 1e-9 {
		t.Fatalf("center = %+v, want (1,1)", c)
	}
	// a square turned by 90° maps corner (0,0) onto (2,0)
	if math.Abs(cs[0].X-2) > 1e-9 || math.Abs(cs[0].Y) > 1e-9 {
		t.Fatalf("first corner = %+v, want (2,0)", cs[0])
	}
}

func TestSupportNormalized(t *testing.T) {
	s := Support{Axial: Channel{Kind: Fixed, Stiffness: 5}, Rotational: SpringChannel(100)}.Normalized()
	if s.Axial.Stiffness != 0 || s.Transverse.Kind != Free || s.Rotational.Stiffness != 100 {
		t.Fatalf("unexpected normalization: %+v", s)
	}
	if (Support{}).IsFree() != true {
		t.Fatalf("zero support should be free")
	}
}
