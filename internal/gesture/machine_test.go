/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package gesture

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"structsketch/internal/domain"
	"structsketch/internal/model"
	"structsketch/internal/snap"
	"structsketch/internal/tools"
	"structsketch/internal/vector"
	"structsketch/internal/viewport"
)

// 400x400 canvas at 1 m grid: 20 px per meter, world origin at pixel (200,200).
func px(x, y float64) vector.Pt { return vector.Pt{X: 200 + 20*x, Y: 200 - 20*y} }

func newMachine(t *testing.T, p Prompter) (*model.Store, *Machine) {
	t.Helper()
	s := model.New(1)
	vp := viewport.New(400, 400, 1)
	r := snap.New(s, func() viewport.Viewport { return vp })
	if p == nil {
		p = PrompterFunc(func(context.Context, Request) (Answer, error) {
			t.Fatalf("unexpected prompt")
			return Answer{}, nil
		})
	}
	return s, New(s, r, p)
}

func answer(a Answer) Prompter {
	return PrompterFunc(func(context.Context, Request) (Answer, error) { return a, nil })
}

func TestMemberCreationScenario(t *testing.T) {
	s, m := newMachine(t, nil)
	m.SetTool(tools.Connection{Kind: tools.ConnBeam})
	m.Press(px(0, 0))
	if m.State() != DraggingConnection {
		t.Fatalf("state after press = %v", m.State())
	}
	if len(s.Nodes()) != 0 {
		t.Fatalf("press must not mutate the model")
	}
	m.Move(px(1.5, 0))
	if a, b, ok := m.PreviewLine(); !ok || a != (vector.Pt{}) || !b.Eq(vector.Pt{X: 2}, 1e-9) {
		t.Fatalf("preview = %v %v %v", a, b, ok)
	}
	if err := m.Release(context.Background(), px(3, 0)); err != nil {
		t.Fatalf("release: %v", err)
	}
	nodes := s.Nodes()
	if len(nodes) != 2 {
		t.Fatalf("nodes = %d, want 2", len(nodes))
	}
	if nodes[0].Pos() != (vector.Pt{}) || nodes[1].Pos() != (vector.Pt{X: 3}) {
		t.Fatalf("node positions %+v %+v", nodes[0].Pos(), nodes[1].Pos())
	}
	members := s.Members()
	if len(members) != 1 || !members[0].Connects(nodes[0].ID, nodes[1].ID) {
		t.Fatalf("members = %+v", members)
	}
	if m.State() != Idle {
		t.Fatalf("state after commit = %v", m.State())
	}
}

func TestClickClickConnection(t *testing.T) {
	s, m := newMachine(t, nil)
	m.SetTool(tools.Connection{Kind: tools.ConnTruss})
	m.Press(px(0, 0))
	_ = m.Release(context.Background(), px(0, 0))
	if m.State() != DraggingConnection || len(s.Nodes()) != 1 {
		t.Fatalf("first click: state %v, nodes %d", m.State(), len(s.Nodes()))
	}
	// clicking the start node again is a self connection
	m.Press(px(0, 0))
	_ = m.Release(context.Background(), px(0, 0))
	if len(s.Members()) != 0 {
		t.Fatalf("self connection committed")
	}
	m.Press(px(0, 4))
	_ = m.Release(context.Background(), px(0, 4))
	ms := s.Members()
	if len(ms) != 1 || ms[0].Kind != domain.Truss {
		t.Fatalf("members = %+v", ms)
	}
}

func TestSpringConnectionCreatesConstraint(t *testing.T) {
	s, m := newMachine(t, nil)
	m.SetTool(tools.Connection{Kind: tools.ConnSpring})
	m.Press(px(0, 0))
	_ = m.Release(context.Background(), px(2, 0))
	if len(s.Members()) != 0 || len(s.Constraints()) != 1 {
		t.Fatalf("members %d constraints %d", len(s.Members()), len(s.Constraints()))
	}
	if c := s.Constraints()[0]; c.Kind != domain.SpringConstraint || c.Stiffness <= 0 {
		t.Fatalf("constraint = %+v", c)
	}
}

func TestLeaveAbandonsDrag(t *testing.T) {
	s, m := newMachine(t, nil)
	m.SetTool(tools.Connection{Kind: tools.ConnBeam})
	m.Press(px(0, 0))
	m.Move(px(2, 2))
	m.Leave()
	if m.State() != Idle {
		t.Fatalf("state = %v", m.State())
	}
	_ = m.Release(context.Background(), px(2, 2))
	if len(s.Nodes()) != 0 || len(s.Members()) != 0 {
		t.Fatalf("leave must not mutate")
	}
}

func TestRotationAlwaysSnapped(t *testing.T) {
	for _, initial := range []float64{0, 90, 315} {
		for dy := -800.0; dy <= 800; dy += 7.3 {
			r := rotationFor(initial, 100, 100+dy)
			if r < 0 || r >= 360 || math.Mod(r, 45) != 0 {
				t.Fatalf("rotation(%v, dy=%v) = %v", initial, dy, r)
			}
		}
	}
}

func TestSupportCommitsAtPressPosition(t *testing.T) {
	s, m := newMachine(t, nil)
	m.SetTool(tools.Support{Symbol: tools.SymPinned})
	m.Press(px(1, 1))
	if m.State() != Rotating {
		t.Fatalf("state = %v", m.State())
	}
	m.Move(vector.Pt{X: px(1, 1).X + 50, Y: px(1, 1).Y - 93})
	if got := m.Rotation(); got != 90 {
		t.Fatalf("live rotation = %v, want 90", got)
	}
	_ = m.Release(context.Background(), px(4, 4))
	nodes := s.Nodes()
	if len(nodes) != 1 {
		t.Fatalf("nodes = %d", len(nodes))
	}
	n := nodes[0]
	if n.Pos() != (vector.Pt{X: 1, Y: 1}) || n.Rotation != 90 || n.Symbol != tools.SymPinned {
		t.Fatalf("node = %+v", n)
	}
	if n.Support.Axial.Kind != domain.Fixed || n.Support.Rotational.Kind != domain.Free {
		t.Fatalf("support = %+v", n.Support)
	}
	if m.Rotation() != 0 {
		t.Fatalf("rotation not reset after commit: %v", m.Rotation())
	}
}

func TestHingeReleasesEveryIncidentEnd(t *testing.T) {
	s, m := newMachine(t, nil)
	c := s.AddNode(vector.Pt{}, "", 0, nil)
	for _, p := range []vector.Pt{{X: 3}, {X: -3}, {Y: 3}} {
		n := s.AddNode(p, "", 0, nil)
		s.AddMember(c, n, domain.Beam, nil)
	}
	m.SetTool(tools.Hinge{Symbol: tools.SymMomentHinge})
	m.Press(px(0, 0))
	_ = m.Release(context.Background(), px(0, 0))
	for _, end := range s.Incident(c) {
		mem, _ := s.Member(end.MemberID)
		if !mem.Release(end.Side).M {
			t.Fatalf("end %+v not released", end)
		}
	}
	if n, _ := s.Node(c); n.Symbol != tools.SymMomentHinge {
		t.Fatalf("symbol = %q", n.Symbol)
	}
}

func TestMemberEndsFollowNodeSymbols(t *testing.T) {
	s, m := newMachine(t, nil)
	s.AddNode(vector.Pt{}, tools.SymMomentHinge, 0, nil)
	s.AddNode(vector.Pt{X: 3}, tools.SymRigid, 0, nil)
	m.SetTool(tools.Connection{Kind: tools.ConnBeam})
	m.Press(px(0, 0))
	_ = m.Release(context.Background(), px(3, 0))
	ms := s.Members()
	if len(ms) != 1 {
		t.Fatalf("members = %d", len(ms))
	}
	if !ms[0].Releases.Start.M || ms[0].Releases.End.M {
		t.Fatalf("releases = %+v", ms[0].Releases)
	}
}

func TestPointLoadPromptAndCommit(t *testing.T) {
	var got Request
	p := PrompterFunc(func(_ context.Context, r Request) (Answer, error) {
		got = r
		return Answer{OK: true, Value: 25}, nil
	})
	s, m := newMachine(t, p)
	n := s.AddNode(vector.Pt{X: 2}, "", 0, nil)
	m.SetTool(tools.Load{Kind: domain.PointLoad})
	if m.Rotation() != 90 {
		t.Fatalf("point load default rotation = %v", m.Rotation())
	}
	m.Press(px(2, 0))
	if err := m.Release(context.Background(), px(2, 0)); err != nil {
		t.Fatalf("release: %v", err)
	}
	if got.Target.Kind != domain.TargetNode || got.Target.NodeID != n {
		t.Fatalf("request = %+v", got)
	}
	ls := s.Loads()
	if len(ls) != 1 || ls[0].Value != 25 || ls[0].Angle != 90 {
		t.Fatalf("loads = %+v", ls)
	}
}

func TestPointLoadOnMemberUsesRatio(t *testing.T) {
	// The answer's ratio is ignored for point loads; the press position decides.
	s, m := newMachine(t, answer(Answer{OK: true, Value: 5, Ratio: 0.9}))
	a := s.AddNode(vector.Pt{}, "", 0, nil)
	b := s.AddNode(vector.Pt{X: 4}, "", 0, nil)
	id, _ := s.AddMember(a, b, domain.Beam, nil)
	m.SetTool(tools.Load{Kind: domain.PointLoad})
	m.Press(px(1, 0.1))
	_ = m.Release(context.Background(), px(1, 0.1))
	ls := s.Loads()
	if len(ls) != 1 || ls[0].Target.MemberID != id || math.Abs(ls[0].Ratio-0.25) > 1e-9 {
		t.Fatalf("loads = %+v", ls)
	}
}

func TestCommitSettlesBeforePrompt(t *testing.T) {
	s, m := newMachine(t, answer(Answer{OK: true, Value: 7}))
	n := s.AddNode(vector.Pt{X: 2}, "", 0, nil)
	other := s.AddNode(vector.Pt{X: -3}, "", 0, nil)
	m.SetTool(tools.Load{Kind: domain.PointLoad})
	m.Press(px(2, 0))
	m.Move(vector.Pt{X: px(2, 0).X, Y: px(2, 0).Y - 93})
	wait, err := m.Commit(px(2, 0))
	if err != nil || wait == nil {
		t.Fatalf("commit = %v, %v", wait == nil, err)
	}
	// events arriving before the prompt is answered
	m.Move(vector.Pt{X: px(2, 0).X, Y: px(2, 0).Y + 200})
	m.Press(px(-3, 0))
	if err := m.Release(context.Background(), px(-3, 0)); !errors.Is(err, ErrBusy) {
		t.Fatalf("release while prompting = %v", err)
	}
	if err := wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	ls := s.Loads()
	if len(ls) != 1 || ls[0].Target.NodeID != n || ls[0].Angle != 180 {
		t.Fatalf("loads = %+v (other node %d)", ls, other)
	}
	if m.Busy() {
		t.Fatalf("machine still busy")
	}
}

func TestPromptCancelIsNoMutation(t *testing.T) {
	s, m := newMachine(t, answer(Answer{OK: false, Value: 99}))
	s.AddNode(vector.Pt{}, "", 0, nil)
	rev := s.Revision()
	m.SetTool(tools.Load{Kind: domain.MomentLoad})
	m.Press(px(0, 0))
	if err := m.Release(context.Background(), px(0, 0)); err != nil {
		t.Fatalf("cancel must not be an error: %v", err)
	}
	if s.Revision() != rev || len(s.Loads()) != 0 {
		t.Fatalf("model mutated on cancel")
	}
}

func TestPromptContextCancelled(t *testing.T) {
	p := PrompterFunc(func(ctx context.Context, _ Request) (Answer, error) {
		<-ctx.Done()
		return Answer{}, ctx.Err()
	})
	s, m := newMachine(t, p)
	s.AddNode(vector.Pt{}, "", 0, nil)
	m.SetTool(tools.Load{Kind: domain.PointLoad})
	ctx, cancel := context.WithCancel(context.Background())
	m.Press(px(0, 0))
	done := make(chan error, 1)
	go func() { done <- m.Release(ctx, px(0, 0)) }()

	deadline := time.Now().Add(2 * time.Second)
	for !m.Busy() {
		if time.Now().After(deadline) {
			t.Fatalf("machine never became busy")
		}
		time.Sleep(time.Millisecond)
	}
	m.Press(px(3, 3))
	if m.State() != Idle {
		t.Fatalf("press while busy changed state to %v", m.State())
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("release: %v", err)
	}
	if len(s.Loads()) != 0 {
		t.Fatalf("load committed after cancel")
	}
}

func TestDistributedLoadRatioOrdering(t *testing.T) {
	s, m := newMachine(t, answer(Answer{OK: true, Value: 2, ValueEnd: 4, Ratio: 0.8, RatioEnd: 0.2}))
	a := s.AddNode(vector.Pt{}, "", 0, nil)
	b := s.AddNode(vector.Pt{X: 4}, "", 0, nil)
	s.AddMember(a, b, domain.Beam, nil)
	m.SetTool(tools.Load{Kind: domain.DistributedLoad})
	m.Press(px(2, 0))
	_ = m.Release(context.Background(), px(2, 0))
	ls := s.Loads()
	if len(ls) != 1 {
		t.Fatalf("loads = %d", len(ls))
	}
	if ls[0].Ratio != 0.2 || ls[0].RatioEnd != 0.8 || ls[0].Value != 4 || ls[0].ValueEnd != 2 {
		t.Fatalf("load = %+v", ls[0])
	}
}

func TestDistributedLoadNeedsMember(t *testing.T) {
	s, m := newMachine(t, nil)
	s.AddNode(vector.Pt{}, "", 0, nil)
	m.SetTool(tools.Load{Kind: domain.DistributedLoad})
	m.Press(px(0, 0))
	if err := m.Release(context.Background(), px(0, 0)); err != nil {
		t.Fatalf("release: %v", err)
	}
	if len(s.Loads()) != 0 {
		t.Fatalf("distributed load without member committed")
	}
}

func TestDeleteNodeAndMember(t *testing.T) {
	s, m := newMachine(t, nil)
	a := s.AddNode(vector.Pt{}, "", 0, nil)
	b := s.AddNode(vector.Pt{X: 4}, "", 0, nil)
	c := s.AddNode(vector.Pt{X: 4, Y: 4}, "", 0, nil)
	s.AddMember(a, b, domain.Beam, nil)
	s.AddMember(b, c, domain.Beam, nil)
	m.SetTool(tools.Delete{})
	m.Press(px(4, 2))
	_ = m.Release(context.Background(), px(4, 2))
	if len(s.Members()) != 1 || len(s.Nodes()) != 3 {
		t.Fatalf("after member delete: members %d nodes %d", len(s.Members()), len(s.Nodes()))
	}
	m.Press(px(0, 0))
	_ = m.Release(context.Background(), px(0, 0))
	if len(s.Members()) != 0 || len(s.Nodes()) != 2 {
		t.Fatalf("after node delete: members %d nodes %d", len(s.Members()), len(s.Nodes()))
	}
	// empty space is ignored
	m.Press(px(-5, -5))
	_ = m.Release(context.Background(), px(-5, -5))
	if len(s.Nodes()) != 2 {
		t.Fatalf("delete on empty space mutated the model")
	}
}
