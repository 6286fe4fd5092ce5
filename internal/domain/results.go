/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package domain

import (
	"strconv"

	"structsketch/internal/vector"
)

// Analysis results are produced by the external service and consumed read-only.
// Per-node maps are keyed by the decimal node id as sent on the wire.

// Vec2 is a JSON [x, y] pair.
type Vec2 [2]float64

// Pt converts to a geometry point.
func (v Vec2) Pt() vector.Pt { return vector.Pt{X: v[0], Y: v[1]} }

// Vec3 is a JSON [u, v, theta] triple.
type Vec3 [3]float64

// Key formats an entity id the way result maps are keyed.
func Key(id int) string { return strconv.Itoa(id) }

// MovementType describes how a rigid body moves in a mechanism mode.
type MovementType string

const (
	MovementRotation    MovementType = "rotation"
	MovementTranslation MovementType = "translation"
)

// RigidBody groups members that move as one body. CenterOrVector is the
// instantaneous center for rotations and the direction for translations.
type RigidBody struct {
	MemberIDs      []int        `json:"member_ids"`
	CenterOrVector Vec2         `json:"center_or_vector"`
	MovementType   MovementType `json:"movement_type"`
}

// KinematicMode is one mechanism degree of freedom.
type KinematicMode struct {
	Velocities  map[string]Vec2  `json:"velocities"`
	MemberPoles map[string]*Vec2 `json:"member_poles"`
	RigidBodies []RigidBody      `json:"rigid_bodies"`
}

// KinematicResult answers the kinematics endpoint.
type KinematicResult struct {
	IsKinematic bool            `json:"is_kinematic"`
	DOF         int             `json:"dof"`
	Modes       []KinematicMode `json:"modes"`
}

// Station is one sampling point of internal forces along a member.
type Station struct {
	X float64 `json:"x"`
	N float64 `json:"N"`
	V float64 `json:"V"`
	M float64 `json:"M"`
}

// MemberResult holds internal force stations and extrema of one member.
type MemberResult struct {
	Stations []Station `json:"stations"`
	MaxM     float64   `json:"maxM"`
	MinM     float64   `json:"minM"`
	MaxN     float64   `json:"maxN"`
	MinN     float64   `json:"minN"`
	MaxV     float64   `json:"maxV"`
	MinV     float64   `json:"minV"`
}

// StaticResult answers the static FEM solution endpoint.
type StaticResult struct {
	Displacements map[string]Vec3         `json:"displacements"`
	Reactions     map[string]Vec3         `json:"reactions"`
	MemberResults map[string]MemberResult `json:"memberResults"`
}

// NaturalFrequency is one eigenmode of the dynamic analysis.
type NaturalFrequency struct {
	Frequency float64         `json:"frequency"`
	Period    float64         `json:"period"`
	ModeShape map[string]Vec3 `json:"modeShape"`
}

// TimeStep is one snapshot of a transient time history.
type TimeStep struct {
	Time             float64         `json:"time"`
	Displacements    map[string]Vec3 `json:"displacements"`
	Velocities       map[string]Vec3 `json:"velocities"`
	Accelerations    map[string]Vec3 `json:"accelerations"`
	KineticEnergy    float64         `json:"kineticEnergy"`
	PotentialEnergy  float64         `json:"potentialEnergy"`
	DissipatedEnergy float64         `json:"dissipatedEnergy"`
	TotalEnergy      float64         `json:"total_energy"`
}

// DynamicResult answers the dynamic analysis endpoint.
type DynamicResult struct {
	Success              bool               `json:"success"`
	Message              string             `json:"message"`
	NaturalFrequencies   []NaturalFrequency `json:"naturalFrequencies"`
	TimeHistory          []TimeStep         `json:"timeHistory"`
	IsStable             bool               `json:"isStable"`
	CriticalDampingRatio float64            `json:"criticalDampingRatio"`
}
