/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package deform turns analysis results into displaced drawing geometry.
//
// Every lookup into a result degrades to zero displacement when the entry is
// missing; partial solver output never produces an error here.
package deform

import (
	"math"
	"strconv"

	"structsketch/internal/domain"
	"structsketch/internal/vector"
)

// PhaseRate is the angular speed of the visual oscillation in rad/s.
const PhaseRate = 3

// minNorm floors the transient normalization.
const minNorm = 1e-9

// Disp is a nodal displacement with its small rotation in radians.
type Disp struct {
	D     vector.Pt
	Theta float64
}

// Field maps node ids to displacements.
type Field map[int]Disp

// At returns the displacement of id or zero.
func (f Field) At(id int) Disp { return f[id] }

// Apply returns the displaced position of every node.
func (f Field) Apply(nodes []domain.Node) map[int]vector.Pt {
	out := make(map[int]vector.Pt, len(nodes))
	for _, n := range nodes {
		out[n.ID] = n.Pos().Add(f[n.ID].D)
	}
	return out
}

// Oscillation is sin(PhaseRate·t).
func Oscillation(t float64) float64 { return math.Sin(PhaseRate * t) }

func fieldFrom(m map[string]domain.Vec3, scale float64) Field {
	f := make(Field, len(m))
	for k, v := range m {
		id, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		f[id] = Disp{D: vector.Pt{X: v[0] * scale, Y: v[1] * scale}, Theta: v[2] * scale}
	}
	return f
}

// Modal returns mode shape mode scaled by sin(3·tVis)·amplitude. An absent
// result or mode index gives an empty field.
func Modal(res *domain.DynamicResult, mode int, tVis, amplitude float64) Field {
	if res == nil || mode < 0 || mode >= len(res.NaturalFrequencies) {
		return Field{}
	}
	return fieldFrom(res.NaturalFrequencies[mode].ModeShape, Oscillation(tVis)*amplitude)
}

// Static returns the FEM displacements multiplied by scale.
func Static(res *domain.StaticResult, scale float64) Field {
	if res == nil {
		return Field{}
	}
	return fieldFrom(res.Displacements, scale)
}

// AutoScale picks a static scale that draws the largest displacement with
// length target meters.
func AutoScale(res *domain.StaticResult, target float64) float64 {
	if res == nil {
		return 0
	}
	var m float64
	for _, v := range res.Displacements {
		m = math.Max(m, math.Hypot(v[0], v[1]))
	}
	return target / math.Max(m, minNorm)
}

// Transient plays back a time history normalized by the largest nodal
// displacement over the whole history.
type Transient struct {
	res     *domain.DynamicResult
	maxNorm float64
}

// NewTransient scans the history once. res may be nil.
func NewTransient(res *domain.DynamicResult) *Transient {
	t := &Transient{res: res}
	if res == nil {
		return t
	}
	for _, step := range res.TimeHistory {
		for _, v := range step.Displacements {
			t.maxNorm = math.Max(t.maxNorm, math.Hypot(v[0], v[1]))
		}
	}
	return t
}

// Steps returns the number of time steps.
func (t *Transient) Steps() int {
	if t == nil || t.res == nil {
		return 0
	}
	return len(t.res.TimeHistory)
}

// MaxNorm is the largest displacement magnitude in the history.
func (t *Transient) MaxNorm() float64 { return t.maxNorm }

// Scale is amplitude / max(maxNorm, 1e-9); always finite for finite amplitude.
func (t *Transient) Scale(amplitude float64) float64 {
	return amplitude / math.Max(t.maxNorm, minNorm)
}

// Time returns the simulated time of step, or 0 when out of range.
func (t *Transient) Time(step int) float64 {
	if step < 0 || step >= t.Steps() {
		return 0
	}
	return t.res.TimeHistory[step].Time
}

// At returns the scaled displacements of step; out of range is empty.
func (t *Transient) At(step int, amplitude float64) Field {
	if step < 0 || step >= t.Steps() {
		return Field{}
	}
	return fieldFrom(t.res.TimeHistory[step].Displacements, t.Scale(amplitude))
}
