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
	"log/slog"

	"structsketch/internal/domain"
	"structsketch/internal/vector"
)

// ExportSnapshot returns a deep copy of the model. It never fails.
func (s *Store) ExportSnapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := domain.Snapshot{
		Nodes:   append(make([]domain.Node, 0, len(s.nodes)), s.nodes...),
		Members: append(make([]domain.Member, 0, len(s.members)), s.members...),
		Loads:   append(make([]domain.Load, 0, len(s.loads)), s.loads...),
		Meta:    copyMeta(s.meta),
	}
	for _, p := range s.panels {
		snap.Panels = append(snap.Panels, copyPanel(p))
	}
	if len(s.constraints) > 0 {
		snap.Constraints = append([]domain.Constraint(nil), s.constraints...)
	}
	return snap
}

// ImportSnapshot replaces the whole model with snap. Optional fields get
// their defaults, ratios and angles are normalized and entities that would
// break the graph invariants are dropped. It returns the number of dropped
// entities. Importing an exported snapshot reproduces it exactly.
func (s *Store) ImportSnapshot(snap domain.Snapshot) (dropped int) {
	var (
		nodes       []domain.Node
		members     []domain.Member
		loads       []domain.Load
		panels      []domain.Panel
		constraints []domain.Constraint
	)
	nodeSet := map[int]bool{}
	for _, n := range snap.Nodes {
		if n.ID <= 0 || nodeSet[n.ID] {
			dropped++
			continue
		}
		nodeSet[n.ID] = true
		n.Support = n.Support.Normalized()
		n.Rotation = vector.Normalize360(n.Rotation)
		nodes = append(nodes, n)
	}

	memberSet := map[int]bool{}
	for _, m := range snap.Members {
		if m.ID <= 0 || memberSet[m.ID] || m.Start == m.End || !nodeSet[m.Start] || !nodeSet[m.End] || hasPair(members, m.Start, m.End) {
			dropped++
			continue
		}
		memberSet[m.ID] = true
		if m.Kind == "" {
			m.Kind = domain.Beam
		}
		if m.Section == (domain.Section{}) {
			m.Section = domain.DefaultSection()
		}
		members = append(members, m)
	}

	loadSet := map[int]bool{}
	for _, l := range snap.Loads {
		nl, ok := normalizeLoad(l)
		if ok {
			switch nl.Target.Kind {
			case domain.TargetNode:
				ok = nodeSet[nl.Target.NodeID]
			case domain.TargetMember:
				ok = memberSet[nl.Target.MemberID]
			}
		}
		if !ok || nl.ID <= 0 || loadSet[nl.ID] {
			dropped++
			continue
		}
		loadSet[nl.ID] = true
		loads = append(loads, nl)
	}

	panelSet := map[int]bool{}
	for _, p := range snap.Panels {
		if p.ID <= 0 || panelSet[p.ID] {
			dropped++
			continue
		}
		panelSet[p.ID] = true
		p = copyPanel(p)
		conns := p.Connections[:0]
		for _, pc := range p.Connections {
			if nodeSet[pc.NodeID] {
				conns = append(conns, pc)
			} else {
				dropped++
			}
		}
		if len(conns) == 0 {
			conns = nil
		}
		p.Connections = conns
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
		panels = append(panels, p)
	}

	constraintSet := map[int]bool{}
	for _, k := range snap.Constraints {
		if k.ID <= 0 || constraintSet[k.ID] || k.NodeA == k.NodeB || !nodeSet[k.NodeA] || !nodeSet[k.NodeB] {
			dropped++
			continue
		}
		constraintSet[k.ID] = true
		constraints = append(constraints, k)
	}

	meta := copyMeta(snap.Meta)
	meta.Version = domain.SnapshotVersion
	if meta.GridSize <= 0 {
		meta.GridSize = 1
	}

	s.mu.Lock()
	s.nodes, s.members, s.loads, s.panels, s.constraints = nodes, members, loads, panels, constraints
	s.meta = meta
	c := s.touch(OpImported, EntityAll, 0)
	s.mu.Unlock()
	if dropped > 0 {
		s.log.Warn("snapshot import dropped entities", slog.Int("dropped", dropped))
	}
	s.emit(c)
	return dropped
}

func hasPair(ms []domain.Member, a, b int) bool {
	for _, m := range ms {
		if m.Connects(a, b) {
			return true
		}
	}
	return false
}
