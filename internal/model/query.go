/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package model

import (
	"sort"

	"structsketch/internal/domain"
	"structsketch/internal/vector"
)

// Node returns a copy of the node with id.
func (s *Store) Node(id int) (domain.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.nodeIndex(id); i >= 0 {
		return s.nodes[i], true
	}
	return domain.Node{}, false
}

// Member returns a copy of the member with id.
func (s *Store) Member(id int) (domain.Member, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.memberIndex(id); i >= 0 {
		return s.members[i], true
	}
	return domain.Member{}, false
}

// Panel returns a deep copy of the panel with id.
func (s *Store) Panel(id int) (domain.Panel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.panelIndex(id); i >= 0 {
		return copyPanel(s.panels[i]), true
	}
	return domain.Panel{}, false
}

// MemberEnds returns the world positions of a member's start and end nodes.
func (s *Store) MemberEnds(id int) (a, b vector.Pt, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.memberIndex(id)
	if i < 0 {
		return a, b, false
	}
	ia, ib := s.nodeIndex(s.members[i].Start), s.nodeIndex(s.members[i].End)
	if ia < 0 || ib < 0 {
		return a, b, false
	}
	return s.nodes[ia].Pos(), s.nodes[ib].Pos(), true
}

// Nodes returns the nodes in store order.
func (s *Store) Nodes() []domain.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Node(nil), s.nodes...)
}

// Members returns the members in store order.
func (s *Store) Members() []domain.Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Member(nil), s.members...)
}

// Loads returns the loads in store order.
func (s *Store) Loads() []domain.Load {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Load(nil), s.loads...)
}

// Panels returns deep copies of the panels in store order.
func (s *Store) Panels() []domain.Panel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Panel, len(s.panels))
	for i, p := range s.panels {
		out[i] = copyPanel(p)
	}
	return out
}

// Constraints returns the constraints in store order.
func (s *Store) Constraints() []domain.Constraint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Constraint(nil), s.constraints...)
}

// Incident lists every member end attached to nodeID, in member order.
// The adjacency is derived lazily and dropped on every mutation.
func (s *Store) Incident(nodeID int) []domain.MemberEnd {
	s.mu.RLock()
	if s.incident != nil {
		out := append([]domain.MemberEnd(nil), s.incident[nodeID]...)
		s.mu.RUnlock()
		return out
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.incident == nil {
		idx := make(map[int][]domain.MemberEnd, len(s.nodes))
		for _, m := range s.members {
			idx[m.Start] = append(idx[m.Start], domain.MemberEnd{MemberID: m.ID, Side: domain.StartEnd})
			idx[m.End] = append(idx[m.End], domain.MemberEnd{MemberID: m.ID, Side: domain.EndEnd})
		}
		s.incident = idx
	}
	return append([]domain.MemberEnd(nil), s.incident[nodeID]...)
}

// Stats summarizes the model.
type Stats struct {
	Nodes, Members, Loads, Panels, Constraints int
	Supports                                   int
	Bounds                                     vector.Rect
	TotalLength                                float64
}

// Stats returns counts, support count, bounding box and summed member length.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{Nodes: len(s.nodes), Members: len(s.members), Loads: len(s.loads), Panels: len(s.panels), Constraints: len(s.constraints)}
	pts := make([]vector.Pt, 0, len(s.nodes))
	for _, n := range s.nodes {
		pts = append(pts, n.Pos())
		if !n.Support.IsFree() {
			st.Supports++
		}
	}
	st.Bounds = vector.BoundsOf(pts)
	for _, m := range s.members {
		a, b := s.nodeIndex(m.Start), s.nodeIndex(m.End)
		if a >= 0 && b >= 0 {
			st.TotalLength += s.nodes[a].Pos().Dist(s.nodes[b].Pos())
		}
	}
	return st
}

// NodeIDs returns the sorted node ids.
func (s *Store) NodeIDs() []int {
	s.mu.RLock()
	ids := make([]int, 0, len(s.nodes))
	for _, n := range s.nodes {
		ids = append(ids, n.ID)
	}
	s.mu.RUnlock()
	sort.Ints(ids)
	return ids
}

func copyPanel(p domain.Panel) domain.Panel {
	p.Extra = append([]vector.Pt(nil), p.Extra...)
	p.Connections = append([]domain.PanelConnection(nil), p.Connections...)
	return p
}

func copyMeta(m domain.Meta) domain.Meta {
	if m.Dynamic != nil {
		d := *m.Dynamic
		m.Dynamic = &d
	}
	return m
}
