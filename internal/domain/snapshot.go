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

// SnapshotVersion is bumped when the exported structure changes incompatibly.
const SnapshotVersion = 1

// DynamicParams configures a time-history request.
type DynamicParams struct {
	Duration     float64 `json:"duration"`
	TimeStep     float64 `json:"timeStep"`
	DampingRatio float64 `json:"dampingRatio"`
	NumModes     int     `json:"numModes"`
}

// DefaultDynamicParams returns 5s at 10ms with 2% damping and 6 modes.
func DefaultDynamicParams() DynamicParams {
	return DynamicParams{Duration: 5, TimeStep: 0.01, DampingRatio: 0.02, NumModes: 6}
}

// Meta carries model-wide settings alongside the entity collections.
type Meta struct {
	Version  int            `json:"version"`
	Name     string         `json:"name,omitempty"`
	GridSize float64        `json:"gridSize"`
	Dynamic  *DynamicParams `json:"dynamic,omitempty"`
}

// Snapshot is the serializable state of a structural system. It doubles as
// the request payload for every analysis endpoint.
type Snapshot struct {
	Nodes       []Node       `json:"nodes"`
	Members     []Member     `json:"members"`
	Loads       []Load       `json:"loads"`
	Panels      []Panel      `json:"scheiben,omitempty"`
	Constraints []Constraint `json:"constraints,omitempty"`
	Meta        Meta         `json:"meta"`
}

// Empty reports whether the snapshot contains no entities.
func (s Snapshot) Empty() bool {
	return len(s.Nodes) == 0 && len(s.Members) == 0 && len(s.Loads) == 0 && len(s.Panels) == 0 && len(s.Constraints) == 0
}
