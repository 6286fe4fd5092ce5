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
	"math"

	"structsketch/internal/domain"
	"structsketch/internal/vector"
)

// LoadSpec describes a load before it is normalized and stored.
type LoadSpec struct {
	Target   domain.LoadTarget
	Kind     domain.LoadKind
	Value    float64
	ValueEnd float64
	Ratio    float64
	RatioEnd float64
	Angle    float64
	Frame    domain.Frame
}

// NodeLoad is a convenience constructor for a node-scoped load.
func NodeLoad(nodeID int, kind domain.LoadKind, value, angle float64) LoadSpec {
	return LoadSpec{Target: domain.LoadTarget{Kind: domain.TargetNode, NodeID: nodeID}, Kind: kind, Value: value, Angle: angle}
}

// MemberLoad is a convenience constructor for a point or moment load on a member.
func MemberLoad(memberID int, kind domain.LoadKind, value, ratio, angle float64) LoadSpec {
	return LoadSpec{Target: domain.LoadTarget{Kind: domain.TargetMember, MemberID: memberID}, Kind: kind, Value: value, Ratio: ratio, Angle: angle}
}

// DistributedLoad is a convenience constructor for a linearly varying member load.
func DistributedLoad(memberID int, start, end, ratio, ratioEnd, angle float64) LoadSpec {
	return LoadSpec{
		Target: domain.LoadTarget{Kind: domain.TargetMember, MemberID: memberID},
		Kind:   domain.DistributedLoad, Value: start, ValueEnd: end, Ratio: ratio, RatioEnd: ratioEnd, Angle: angle,
	}
}

// normalizeLoad clamps ratios, orders distributed ratio pairs and reports
// whether the load is structurally acceptable regardless of its target.
func normalizeLoad(l domain.Load) (domain.Load, bool) {
	if math.IsNaN(l.Value) || math.IsInf(l.Value, 0) || math.IsNaN(l.ValueEnd) || math.IsInf(l.ValueEnd, 0) {
		return l, false
	}
	switch l.Kind {
	case domain.PointLoad, domain.MomentLoad, domain.DistributedLoad:
	default:
		return l, false
	}
	if l.Frame == "" {
		l.Frame = domain.Global
	}
	l.Angle = vector.Normalize360(l.Angle)
	switch l.Target.Kind {
	case domain.TargetNode:
		if l.Kind == domain.DistributedLoad {
			return l, false
		}
		l.Target.MemberID = 0
		l.Ratio, l.RatioEnd, l.ValueEnd = 0, 0, 0
	case domain.TargetMember:
		l.Target.NodeID = 0
		l.Ratio = clamp01(l.Ratio)
		if l.Kind == domain.DistributedLoad {
			l.RatioEnd = clamp01(l.RatioEnd)
			if l.Ratio == 0 && l.RatioEnd == 0 {
				l.RatioEnd = 1
			}
			if l.Ratio > l.RatioEnd {
				l.Ratio, l.RatioEnd = l.RatioEnd, l.Ratio
				l.Value, l.ValueEnd = l.ValueEnd, l.Value
			}
		} else {
			l.RatioEnd, l.ValueEnd = 0, 0
		}
	default:
		return l, false
	}
	return l, true
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}

// AddLoad normalizes and stores a load. Loads whose target does not exist,
// distributed loads on nodes and non-finite magnitudes are rejected.
func (s *Store) AddLoad(ls LoadSpec) (int, bool) {
	l, ok := normalizeLoad(domain.Load{
		Target: ls.Target, Kind: ls.Kind, Value: ls.Value, ValueEnd: ls.ValueEnd,
		Ratio: ls.Ratio, RatioEnd: ls.RatioEnd, Angle: ls.Angle, Frame: ls.Frame,
	})
	if !ok {
		s.log.Debug("load rejected", slog.String("kind", string(ls.Kind)), slog.String("target", string(ls.Target.Kind)))
		return 0, false
	}
	s.mu.Lock()
	if !s.targetExists(l.Target) {
		s.mu.Unlock()
		s.log.Debug("load rejected", slog.String("reason", "missing target"))
		return 0, false
	}
	l.ID = nextID(s.loads, func(l domain.Load) int { return l.ID })
	s.loads = append(s.loads, l)
	c := s.touch(OpAdded, EntityLoad, l.ID)
	s.mu.Unlock()
	s.emit(c)
	return l.ID, true
}

// DeleteLoad removes a load.
func (s *Store) DeleteLoad(id int) bool {
	s.mu.Lock()
	for i, l := range s.loads {
		if l.ID == id {
			s.loads = append(s.loads[:i], s.loads[i+1:]...)
			c := s.touch(OpRemoved, EntityLoad, id)
			s.mu.Unlock()
			s.emit(c)
			return true
		}
	}
	s.mu.Unlock()
	return false
}

func (s *Store) targetExists(t domain.LoadTarget) bool {
	switch t.Kind {
	case domain.TargetNode:
		return s.nodeIndex(t.NodeID) >= 0
	case domain.TargetMember:
		return s.memberIndex(t.MemberID) >= 0
	}
	return false
}
