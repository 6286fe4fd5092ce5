/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package gesture turns pointer events into model edits.
//
// A Machine is driven by Press, Move, Release and Leave. Tools that place an
// oriented symbol (supports, hinges, loads) turn a press into a rotation
// gesture: vertical drag sets the angle in 45° steps and the symbol lands at
// the press position on release. Connection tools draw members and
// constraints either by press-drag-release or by two separate clicks.
package gesture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"structsketch/internal/domain"
	applog "structsketch/internal/log"
	"structsketch/internal/model"
	"structsketch/internal/snap"
	"structsketch/internal/tools"
	"structsketch/internal/vector"
)

// RotationStep is the angular resolution of the rotation gesture in degrees.
const RotationStep = 45

// State of the pointer interaction.
type State int

const (
	Idle State = iota
	Rotating
	DraggingConnection
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Rotating:
		return "rotating"
	case DraggingConnection:
		return "dragging-connection"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Request asks the user for load values before a load is committed.
type Request struct {
	Kind   domain.LoadKind
	Target domain.LoadTarget
	Angle  float64
	// defaults shown to the user
	Value, ValueEnd, Ratio, RatioEnd float64
}

// Distributed reports whether the answer must carry a ratio pair.
func (r Request) Distributed() bool { return r.Kind == domain.DistributedLoad }

// Answer is the user's reply. OK false means the user cancelled.
type Answer struct {
	OK                               bool
	Value, ValueEnd, Ratio, RatioEnd float64
}

// Prompter asks the user for load values. Implementations block until the
// user answers or ctx is done.
type Prompter interface {
	Prompt(ctx context.Context, req Request) (Answer, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, req Request) (Answer, error)

func (f PrompterFunc) Prompt(ctx context.Context, req Request) (Answer, error) { return f(ctx, req) }

// ErrBusy is returned by Release while an earlier prompt is still open.
var ErrBusy = errors.New("gesture: prompt pending")

type connDrag struct {
	from      snap.Resolution
	fromPixel vector.Pt
	anchored  bool // start node exists; the next release elsewhere commits
	startID   int
}

// Machine is safe for concurrent use; UI toolkits deliver pointer callbacks
// on more than one goroutine.
type Machine struct {
	mu       sync.Mutex
	store    *model.Store
	resolver *snap.Resolver
	prompter Prompter
	log      *slog.Logger

	tool     tools.Tool
	state    State
	rotation float64

	pressed     bool
	origin      snap.Resolution
	originPixel vector.Pt
	initialY    float64
	initialRot  float64

	drag   *connDrag
	cursor vector.Pt
	busy   bool

	selNode, selMember int
}

// New returns an idle machine with the select tool active.
func New(store *model.Store, resolver *snap.Resolver, prompter Prompter) *Machine {
	return &Machine{
		store:    store,
		resolver: resolver,
		prompter: prompter,
		tool:     tools.Select{},
		log:      applog.WithComponent("gesture"),
	}
}

// SetTool switches tools, abandoning any gesture in progress.
func (m *Machine) SetTool(t tools.Tool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tool = t
	m.resetLocked()
	m.rotation = tools.DefaultRotation(t)
}

// Tool returns the active tool.
func (m *Machine) Tool() tools.Tool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tool
}

// State returns the current interaction state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Rotation returns the live rotation in degrees used for preview and commit.
func (m *Machine) Rotation() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rotation
}

// SetRotation sets the live rotation outside of a gesture, e.g. from a keyboard shortcut.
func (m *Machine) SetRotation(deg float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rotation = vector.SnapAngle(deg, RotationStep)
}

// Busy reports whether a prompt is open.
func (m *Machine) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busy
}

// Selection returns the node or member picked by the select tool; 0 means none.
func (m *Machine) Selection() (nodeID, memberID int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selNode, m.selMember
}

// PreviewLine returns the rubber band from the drag start to the cursor in
// world coordinates.
func (m *Machine) PreviewLine() (a, b vector.Pt, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != DraggingConnection || m.drag == nil {
		return a, b, false
	}
	return m.drag.from.Pos, m.cursor, true
}

// Cursor returns the last resolved pointer position in world coordinates.
func (m *Machine) Cursor() vector.Pt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor
}

// Press starts a gesture. It never mutates the model.
func (m *Machine) Press(pixel vector.Pt) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy {
		return
	}
	res := m.resolver.ResolvePointer(pixel)
	m.cursor = res.Pos
	m.pressed = true
	m.origin, m.originPixel = res, pixel

	switch t := m.tool.(type) {
	case tools.Support, tools.Hinge, tools.Load:
		if tools.Rotates(t) {
			m.state = Rotating
			m.initialY = pixel.Y
			m.initialRot = m.rotation
		}
	case tools.Connection:
		if m.drag == nil {
			m.drag = &connDrag{from: res, fromPixel: pixel}
		}
		m.state = DraggingConnection
	case tools.Select, tools.Delete:
	}
}

// Move updates the live rotation or the rubber band.
func (m *Machine) Move(pixel vector.Pt) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursor = m.resolver.ResolvePointer(pixel).Pos
	if m.state == Rotating && m.pressed {
		m.rotation = rotationFor(m.initialRot, m.initialY, pixel.Y)
	}
}

func rotationFor(initial, y0, y float64) float64 {
	return vector.SnapAngle(vector.Normalize360(initial-(y-y0)), RotationStep)
}

// Leave abandons a connection drag or rotation without touching the model.
func (m *Machine) Leave() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy {
		return
	}
	if m.state == Rotating {
		m.rotation = m.initialRot
	}
	m.resetLocked()
}

func (m *Machine) resetLocked() {
	m.state = Idle
	m.drag = nil
	m.pressed = false
}

// Pending is the part of a release that waits on the Prompter. It must be
// called exactly once; the machine stays busy until it returns.
type Pending func(ctx context.Context) error

// Release ends a gesture and commits it. Load tools block on the Prompter;
// a cancelled prompt or a done ctx leaves the model untouched and returns nil.
func (m *Machine) Release(ctx context.Context, pixel vector.Pt) error {
	wait, err := m.Commit(pixel)
	if err != nil || wait == nil {
		return err
	}
	return wait(ctx)
}

// Commit settles the pointer state of a release before returning, so later
// pointer events cannot change what is committed. Everything except a load
// prompt is applied immediately; a load prompt is returned as Pending.
func (m *Machine) Commit(pixel vector.Pt) (Pending, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy {
		return nil, ErrBusy
	}
	if !m.pressed {
		return nil, nil
	}
	m.pressed = false
	res := m.resolver.ResolvePointer(pixel)
	m.cursor = res.Pos

	switch t := m.tool.(type) {
	case tools.Select:
		m.selectLocked(res, pixel)
	case tools.Delete:
		m.deleteLocked(res, pixel)
	case tools.Connection:
		m.connectLocked(t, res, pixel)
	case tools.Support:
		m.state = Idle
		m.placeSupportLocked(t)
		m.rotation = tools.DefaultRotation(t)
	case tools.Hinge:
		m.state = Idle
		m.placeHingeLocked(t)
		m.rotation = tools.DefaultRotation(t)
	case tools.Load:
		m.state = Idle
		return m.loadPendingLocked(t), nil
	}
	return nil, nil
}

func (m *Machine) selectLocked(res snap.Resolution, pixel vector.Pt) {
	m.selNode, m.selMember = 0, 0
	if res.IsExistingNode {
		m.selNode = res.NodeID
		return
	}
	if id, ok := m.resolver.FindMemberAt(pixel); ok {
		m.selMember = id
	}
}

func (m *Machine) deleteLocked(res snap.Resolution, pixel vector.Pt) {
	if res.IsExistingNode {
		m.store.DeleteNode(res.NodeID)
		return
	}
	if id, ok := m.resolver.FindMemberAt(pixel); ok {
		m.store.DeleteMember(id)
	}
}

// ensureNode returns the node under res, creating a plain joint on empty space.
func (m *Machine) ensureNode(res snap.Resolution) int {
	if res.IsExistingNode {
		return res.NodeID
	}
	return m.store.AddNode(res.Pos, "", 0, nil)
}

func sameSpot(a, b snap.Resolution) bool {
	if a.IsExistingNode && b.IsExistingNode {
		return a.NodeID == b.NodeID
	}
	return a.Pos.Eq(b.Pos, 1e-9)
}

func (m *Machine) connectLocked(t tools.Connection, target snap.Resolution, pixel vector.Pt) {
	d := m.drag
	if d == nil {
		m.state = Idle
		return
	}
	if !d.anchored {
		if sameSpot(d.from, target) || d.fromPixel.Dist(pixel) <= m.resolver.SnapRadiusPx {
			// a click: anchor the start and wait for a second click
			d.startID = m.ensureNode(d.from)
			d.anchored = true
			if n, ok := m.store.Node(d.startID); ok {
				d.from = snap.Resolution{Pos: n.Pos(), NodeID: n.ID, IsExistingNode: true}
			}
			return
		}
		d.startID = m.ensureNode(d.from)
	} else if target.IsExistingNode && target.NodeID == d.startID {
		m.log.Debug("self connection ignored", slog.Int("node", d.startID))
		return
	} else if !target.IsExistingNode && target.Pos.Eq(d.from.Pos, 1e-9) {
		return
	}
	endID := m.ensureNode(target)
	m.commitConnection(t, d.startID, endID)
	m.drag = nil
	m.state = Idle
}

func (m *Machine) commitConnection(t tools.Connection, a, b int) {
	cs, ok := tools.LookupConnection(t.Kind)
	if !ok {
		return
	}
	if cs.IsMember() {
		var rel domain.Releases
		if n, ok := m.store.Node(a); ok {
			rel.Start.M = tools.EndMomentReleased(n.Symbol)
		}
		if n, ok := m.store.Node(b); ok {
			rel.End.M = tools.EndMomentReleased(n.Symbol)
		}
		if id, ok := m.store.AddMember(a, b, cs.Member, &rel); ok {
			m.log.Debug("member created", slog.Int("member", id), slog.Int("start", a), slog.Int("end", b))
		}
		return
	}
	m.store.AddConstraint(domain.Constraint{
		Kind: cs.Constraint, NodeA: a, NodeB: b,
		Stiffness: cs.Stiffness, Damping: cs.Damping, AxialStiffness: cs.AxialStiffness,
	})
}

func (m *Machine) placeSupportLocked(t tools.Support) {
	ss, ok := tools.LookupSupport(t.Symbol)
	if !ok {
		return
	}
	sup := ss.Support
	if m.origin.IsExistingNode {
		m.store.UpdateNodeSymbol(m.origin.NodeID, ss.Symbol, m.rotation, &sup)
		return
	}
	m.store.AddNode(m.origin.Pos, ss.Symbol, m.rotation, &sup)
}

// placeHingeLocked writes the hinge pattern to every member end at the node
// and records the symbol so later members pick it up.
func (m *Machine) placeHingeLocked(t tools.Hinge) {
	hs, ok := tools.LookupHinge(t.Symbol)
	if !ok {
		return
	}
	if !m.origin.IsExistingNode {
		m.store.AddNode(m.origin.Pos, hs.Symbol, m.rotation, nil)
		return
	}
	for _, end := range m.store.Incident(m.origin.NodeID) {
		m.store.SetMemberEndRelease(end, hs.Releases)
	}
	m.store.UpdateNodeSymbol(m.origin.NodeID, hs.Symbol, m.rotation, nil)
}

// loadPendingLocked captures the load request from the press and returns
// the prompt wait, or nil when there is no valid target.
func (m *Machine) loadPendingLocked(t tools.Load) Pending {
	angle := m.rotation
	m.rotation = tools.DefaultRotation(t)
	req, ok := m.loadRequestLocked(t, angle)
	if !ok {
		return nil
	}
	m.busy = true
	return func(ctx context.Context) error {
		ans, err := m.prompter.Prompt(ctx, req)

		m.mu.Lock()
		m.busy = false
		m.mu.Unlock()

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("prompt load value: %w", err)
		}
		if !ans.OK || ctx.Err() != nil {
			return nil
		}
		m.commitLoad(req, ans, angle)
		return nil
	}
}

func (m *Machine) commitLoad(req Request, ans Answer, angle float64) {
	ls := model.LoadSpec{Target: req.Target, Kind: req.Kind, Value: ans.Value, Angle: angle, Frame: domain.Global}
	if req.Target.Kind == domain.TargetMember {
		ls.Ratio = req.Ratio
	}
	if req.Distributed() {
		ls.Ratio, ls.ValueEnd, ls.RatioEnd = ans.Ratio, ans.ValueEnd, ans.RatioEnd
	}
	if id, ok := m.store.AddLoad(ls); ok {
		m.log.Debug("load created", slog.Int("load", id), slog.String("kind", string(ls.Kind)))
	}
}

// loadRequestLocked decides the load target from the press position.
func (m *Machine) loadRequestLocked(t tools.Load, angle float64) (Request, bool) {
	req := Request{Kind: t.Kind, Angle: angle, Value: 10}
	if m.origin.IsExistingNode && t.Kind != domain.DistributedLoad {
		req.Target = domain.LoadTarget{Kind: domain.TargetNode, NodeID: m.origin.NodeID}
		return req, true
	}
	id, ok := m.resolver.FindMemberAt(m.originPixel)
	if !ok {
		return req, false
	}
	req.Target = domain.LoadTarget{Kind: domain.TargetMember, MemberID: id}
	if req.Distributed() {
		req.ValueEnd, req.Ratio, req.RatioEnd = req.Value, 0, 1
		return req, true
	}
	raw := m.resolver.View().ToReal(m.originPixel)
	req.Ratio = m.resolver.ProjectRatio(id, raw)
	return req, true
}
