/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package model holds the in-memory structural graph edited by the canvas.
//
// A Store is an explicit object handed to every collaborator; there are no
// package level instances. All mutations go through the methods below, which
// enforce the graph invariants (distinct member ends, no duplicate members,
// no dangling references) and keep derived data current.
package model

import (
	"log/slog"
	"sync"

	"structsketch/internal/domain"
	applog "structsketch/internal/log"
	"structsketch/internal/vector"
)

// Entity names the collection a Change refers to.
type Entity string

const (
	EntityNode       Entity = "node"
	EntityMember     Entity = "member"
	EntityLoad       Entity = "load"
	EntityPanel      Entity = "panel"
	EntityConstraint Entity = "constraint"
	EntityAll        Entity = "all"
)

// Op is the kind of mutation.
type Op string

const (
	OpAdded    Op = "added"
	OpUpdated  Op = "updated"
	OpRemoved  Op = "removed"
	OpCleared  Op = "cleared"
	OpImported Op = "imported"
)

// Change is delivered to subscribers after each successful mutation.
type Change struct {
	Op       Op
	Entity   Entity
	ID       int
	Revision uint64
}

// Store is safe for use from multiple goroutines.
type Store struct {
	mu          sync.RWMutex
	nodes       []domain.Node
	members     []domain.Member
	loads       []domain.Load
	panels      []domain.Panel
	constraints []domain.Constraint
	meta        domain.Meta

	incident map[int][]domain.MemberEnd // nil when stale
	rev      uint64

	subMu   sync.Mutex
	subs    map[int]func(Change)
	nextSub int

	log *slog.Logger
}

// New returns an empty store using gridSize meters per cell.
func New(gridSize float64) *Store {
	if gridSize <= 0 {
		gridSize = 1
	}
	return &Store{
		meta: domain.Meta{Version: domain.SnapshotVersion, GridSize: gridSize},
		subs: map[int]func(Change){},
		log:  applog.WithComponent("model"),
	}
}

// Subscribe registers fn for every change and returns a function removing it.
// fn runs on the mutating goroutine after the store lock is released.
func (s *Store) Subscribe(fn func(Change)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) emit(c Change) {
	s.subMu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}

// touch must be called with mu held for writing.
func (s *Store) touch(op Op, e Entity, id int) Change {
	s.rev++
	s.incident = nil
	return Change{Op: op, Entity: e, ID: id, Revision: s.rev}
}

// Revision increases with every successful mutation.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rev
}

// Meta returns snapshot metadata.
func (s *Store) Meta() domain.Meta {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyMeta(s.meta)
}

// SetName renames the system.
func (s *Store) SetName(name string) {
	s.mu.Lock()
	s.meta.Name = name
	c := s.touch(OpUpdated, EntityAll, 0)
	s.mu.Unlock()
	s.emit(c)
}

// SetDynamicParams stores the parameters sent with dynamic analysis requests.
func (s *Store) SetDynamicParams(p domain.DynamicParams) {
	s.mu.Lock()
	s.meta.Dynamic = &p
	c := s.touch(OpUpdated, EntityAll, 0)
	s.mu.Unlock()
	s.emit(c)
}

// ---- nodes ----

// AddNode creates a node at pos and returns its id. A nil support leaves
// every channel free.
func (s *Store) AddNode(pos vector.Pt, symbol string, rotation float64, support *domain.Support) int {
	n := domain.Node{X: pos.X, Y: pos.Y, Symbol: symbol, Rotation: vector.Normalize360(rotation)}
	if support != nil {
		n.Support = support.Normalized()
	} else {
		n.Support = domain.Support{}.Normalized()
	}
	s.mu.Lock()
	n.ID = nextID(s.nodes, func(n domain.Node) int { return n.ID })
	s.nodes = append(s.nodes, n)
	c := s.touch(OpAdded, EntityNode, n.ID)
	s.mu.Unlock()
	s.emit(c)
	return n.ID
}

// UpdateNodeSymbol records the symbol and rotation on a node. A nil support
// keeps the node's current support.
func (s *Store) UpdateNodeSymbol(id int, symbol string, rotation float64, support *domain.Support) bool {
	s.mu.Lock()
	i := s.nodeIndex(id)
	if i < 0 {
		s.mu.Unlock()
		s.log.Debug("update symbol on missing node", slog.Int("node", id))
		return false
	}
	s.nodes[i].Symbol = symbol
	s.nodes[i].Rotation = vector.Normalize360(rotation)
	if support != nil {
		s.nodes[i].Support = support.Normalized()
	}
	c := s.touch(OpUpdated, EntityNode, id)
	s.mu.Unlock()
	s.emit(c)
	return true
}

// MoveNode relocates a node; attached members follow implicitly.
func (s *Store) MoveNode(id int, pos vector.Pt) bool {
	s.mu.Lock()
	i := s.nodeIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.nodes[i].X, s.nodes[i].Y = pos.X, pos.Y
	c := s.touch(OpUpdated, EntityNode, id)
	s.mu.Unlock()
	s.emit(c)
	return true
}

// DeleteNode removes a node together with its incident members, constraints,
// node loads, loads on the removed members and panel connections.
func (s *Store) DeleteNode(id int) bool {
	s.mu.Lock()
	i := s.nodeIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.nodes = append(s.nodes[:i], s.nodes[i+1:]...)

	removed := map[int]bool{}
	members := s.members[:0]
	for _, m := range s.members {
		if m.Start == id || m.End == id {
			removed[m.ID] = true
			continue
		}
		members = append(members, m)
	}
	s.members = members

	loads := s.loads[:0]
	for _, l := range s.loads {
		if l.Target.Kind == domain.TargetNode && l.Target.NodeID == id {
			continue
		}
		if l.Target.Kind == domain.TargetMember && removed[l.Target.MemberID] {
			continue
		}
		loads = append(loads, l)
	}
	s.loads = loads

	cons := s.constraints[:0]
	for _, k := range s.constraints {
		if k.NodeA == id || k.NodeB == id {
			continue
		}
		cons = append(cons, k)
	}
	s.constraints = cons

	for pi := range s.panels {
		conns := s.panels[pi].Connections[:0]
		for _, pc := range s.panels[pi].Connections {
			if pc.NodeID != id {
				conns = append(conns, pc)
			}
		}
		s.panels[pi].Connections = conns
	}
	c := s.touch(OpRemoved, EntityNode, id)
	s.mu.Unlock()
	s.log.Debug("node deleted", slog.Int("node", id), slog.Int("members", len(removed)))
	s.emit(c)
	return true
}

// ---- members ----

// AddMember connects nodes a and b. It rejects self-loops, unknown nodes and
// a second member between the same unordered pair. A nil releases value
// leaves both ends fixed; truss members always release moments at both ends.
func (s *Store) AddMember(a, b int, kind domain.MemberKind, releases *domain.Releases) (int, bool) {
	if kind == "" {
		kind = domain.Beam
	}
	s.mu.Lock()
	if reason := s.memberRejection(a, b); reason != "" {
		s.mu.Unlock()
		s.log.Debug("member rejected", slog.Int("a", a), slog.Int("b", b), slog.String("reason", reason))
		return 0, false
	}
	m := domain.Member{Start: a, End: b, Kind: kind, Section: domain.DefaultSection()}
	if releases != nil {
		m.Releases = *releases
	}
	if kind == domain.Truss {
		m.Releases.Start.M, m.Releases.End.M = true, true
	}
	m.ID = nextID(s.members, func(m domain.Member) int { return m.ID })
	s.members = append(s.members, m)
	c := s.touch(OpAdded, EntityMember, m.ID)
	s.mu.Unlock()
	s.emit(c)
	return m.ID, true
}

func (s *Store) memberRejection(a, b int) string {
	if a == b {
		return "self-loop"
	}
	if s.nodeIndex(a) < 0 || s.nodeIndex(b) < 0 {
		return "missing node"
	}
	for _, m := range s.members {
		if m.Connects(a, b) {
			return "duplicate"
		}
	}
	return ""
}

// SetMemberReleases replaces both end releases of a member.
func (s *Store) SetMemberReleases(id int, r domain.Releases) bool {
	return s.updateMember(id, func(m *domain.Member) { m.Releases = r })
}

// SetMemberEndRelease replaces the release triple of one member end.
func (s *Store) SetMemberEndRelease(end domain.MemberEnd, r domain.ReleaseTriple) bool {
	return s.updateMember(end.MemberID, func(m *domain.Member) {
		if end.Side == domain.EndEnd {
			m.Releases.End = r
		} else {
			m.Releases.Start = r
		}
	})
}

// SetMemberSection replaces the section properties of a member. A zero
// section is rejected.
func (s *Store) SetMemberSection(id int, sec domain.Section) bool {
	if sec == (domain.Section{}) {
		s.log.Debug("member section rejected", slog.Int("member", id))
		return false
	}
	return s.updateMember(id, func(m *domain.Member) { m.Section = sec })
}

func (s *Store) updateMember(id int, fn func(*domain.Member)) bool {
	s.mu.Lock()
	i := s.memberIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	fn(&s.members[i])
	c := s.touch(OpUpdated, EntityMember, id)
	s.mu.Unlock()
	s.emit(c)
	return true
}

// DeleteMember removes a member and the loads placed on it.
func (s *Store) DeleteMember(id int) bool {
	s.mu.Lock()
	i := s.memberIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.members = append(s.members[:i], s.members[i+1:]...)
	loads := s.loads[:0]
	for _, l := range s.loads {
		if l.Target.Kind == domain.TargetMember && l.Target.MemberID == id {
			continue
		}
		loads = append(loads, l)
	}
	s.loads = loads
	c := s.touch(OpRemoved, EntityMember, id)
	s.mu.Unlock()
	s.emit(c)
	return true
}

// ---- panels and constraints ----

// AddPanel stores a panel. Connections must reference existing nodes.
func (s *Store) AddPanel(p domain.Panel) (int, bool) {
	if p.Shape == "" {
		p.Shape = domain.RectanglePanel
	}
	if p.Type == "" {
		p.Type = domain.RigidPanel
	}
	if p.Material == (domain.PanelMaterial{}) {
		p.Material = domain.DefaultPanelMaterial()
	}
	p.Rotation = vector.Normalize360(p.Rotation)
	p.Extra = append([]vector.Pt(nil), p.Extra...)
	p.Connections = append([]domain.PanelConnection(nil), p.Connections...)
	s.mu.Lock()
	for _, pc := range p.Connections {
		if s.nodeIndex(pc.NodeID) < 0 {
			s.mu.Unlock()
			s.log.Debug("panel rejected", slog.Int("node", pc.NodeID), slog.String("reason", "missing node"))
			return 0, false
		}
	}
	p.ID = nextID(s.panels, func(p domain.Panel) int { return p.ID })
	s.panels = append(s.panels, p)
	c := s.touch(OpAdded, EntityPanel, p.ID)
	s.mu.Unlock()
	s.emit(c)
	return p.ID, true
}

// ConnectPanel attaches a panel to a node, replacing an existing connection
// to the same node.
func (s *Store) ConnectPanel(panelID, nodeID int, r domain.ReleaseTriple) bool {
	s.mu.Lock()
	pi := s.panelIndex(panelID)
	if pi < 0 || s.nodeIndex(nodeID) < 0 {
		s.mu.Unlock()
		return false
	}
	p := &s.panels[pi]
	replaced := false
	for i := range p.Connections {
		if p.Connections[i].NodeID == nodeID {
			p.Connections[i].Releases = r
			replaced = true
		}
	}
	if !replaced {
		p.Connections = append(p.Connections, domain.PanelConnection{NodeID: nodeID, Releases: r})
	}
	c := s.touch(OpUpdated, EntityPanel, panelID)
	s.mu.Unlock()
	s.emit(c)
	return true
}

// DeletePanel removes a panel.
func (s *Store) DeletePanel(id int) bool {
	s.mu.Lock()
	i := s.panelIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.panels = append(s.panels[:i], s.panels[i+1:]...)
	c := s.touch(OpRemoved, EntityPanel, id)
	s.mu.Unlock()
	s.emit(c)
	return true
}

// AddConstraint stores a spring, damper or cable between two distinct nodes.
func (s *Store) AddConstraint(k domain.Constraint) (int, bool) {
	s.mu.Lock()
	if k.NodeA == k.NodeB || s.nodeIndex(k.NodeA) < 0 || s.nodeIndex(k.NodeB) < 0 {
		s.mu.Unlock()
		s.log.Debug("constraint rejected", slog.Int("a", k.NodeA), slog.Int("b", k.NodeB))
		return 0, false
	}
	k.ID = nextID(s.constraints, func(k domain.Constraint) int { return k.ID })
	s.constraints = append(s.constraints, k)
	c := s.touch(OpAdded, EntityConstraint, k.ID)
	s.mu.Unlock()
	s.emit(c)
	return k.ID, true
}

// DeleteConstraint removes a constraint.
func (s *Store) DeleteConstraint(id int) bool {
	s.mu.Lock()
	for i, k := range s.constraints {
		if k.ID == id {
			s.constraints = append(s.constraints[:i], s.constraints[i+1:]...)
			c := s.touch(OpRemoved, EntityConstraint, id)
			s.mu.Unlock()
			s.emit(c)
			return true
		}
	}
	s.mu.Unlock()
	return false
}

// ClearAll empties every collection; grid size and name survive.
func (s *Store) ClearAll() {
	s.mu.Lock()
	s.nodes, s.members, s.loads, s.panels, s.constraints = nil, nil, nil, nil, nil
	c := s.touch(OpCleared, EntityAll, 0)
	s.mu.Unlock()
	s.emit(c)
}

// ---- index helpers, callers hold mu ----

func (s *Store) nodeIndex(id int) int {
	for i := range s.nodes {
		if s.nodes[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) memberIndex(id int) int {
	for i := range s.members {
		if s.members[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) panelIndex(id int) int {
	for i := range s.panels {
		if s.panels[i].ID == id {
			return i
		}
	}
	return -1
}

func nextID[T any](xs []T, id func(T) int) int {
	m := 0
	for _, x := range xs {
		m = max(m, id(x))
	}
	return m + 1
}
