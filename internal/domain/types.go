/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "structsketch/internal/vector"

// This file defines the structural model shared by the editor, the store and
// the analysis service payloads. JSON names follow the service contract.

// ChannelKind is the state of one support channel.
type ChannelKind string

const (
	Free   ChannelKind = "free"
	Fixed  ChannelKind = "fixed"
	Spring ChannelKind = "spring"
)

// Channel is a single support degree of freedom: free, fixed, or a spring with finite stiffness.
type Channel struct {
	Kind      ChannelKind `json:"kind"`
	Stiffness float64     `json:"stiffness,omitempty"`
}

// FreeChannel, FixedChannel and SpringChannel build the three channel states.
func FreeChannel() Channel                { return Channel{Kind: Free} }
func FixedChannel() Channel               { return Channel{Kind: Fixed} }
func SpringChannel(k float64) Channel     { return Channel{Kind: Spring, Stiffness: k} }
func (c Channel) IsFree() bool            { return c.Kind == "" || c.Kind == Free }
func (c Channel) normalized() Channel {
	switch c.Kind {
	case Fixed:
		return Channel{Kind: Fixed}
	case Spring:
		return c
	default:
		return Channel{Kind: Free}
	}
}

// Support holds the axial, transverse and rotational channels of a node in
// the node's rotated frame.
type Support struct {
	Axial      Channel `json:"axial"`
	Transverse Channel `json:"transverse"`
	Rotational Channel `json:"rotational"`
}

// IsFree reports whether no channel is restrained.
func (s Support) IsFree() bool {
	return s.Axial.IsFree() && s.Transverse.IsFree() && s.Rotational.IsFree()
}

// Normalized fills empty channel kinds with free and drops stiffness on non-spring channels.
func (s Support) Normalized() Support {
	return Support{Axial: s.Axial.normalized(), Transverse: s.Transverse.normalized(), Rotational: s.Rotational.normalized()}
}

// ReleaseTriple describes a member end condition: axial (N), shear (V) and moment (M) release.
type ReleaseTriple struct {
	N bool `json:"n"`
	V bool `json:"v"`
	M bool `json:"m"`
}

// Releases is the pair of member end conditions.
type Releases struct {
	Start ReleaseTriple `json:"start"`
	End   ReleaseTriple `json:"end"`
}

// Node is a joint in the structural graph.
type Node struct {
	ID       int     `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
	Symbol   string  `json:"symbol,omitempty"` // last support/hinge symbol placed on the node
	Support  Support `json:"support"`
}

// Pos returns the node position in meters.
func (n Node) Pos() vector.Pt { return vector.Pt{X: n.X, Y: n.Y} }

// MemberKind distinguishes bending members from pin-ended truss bars.
type MemberKind string

const (
	Beam  MemberKind = "beam"
	Truss MemberKind = "truss"
)

// Section carries the cross-section and material constants of a member.
type Section struct {
	E    float64 `json:"E"`
	A    float64 `json:"A"`
	I    float64 `json:"I"`
	Mass float64 `json:"m"` // kg per meter
}

// DefaultSection is a steel IPE 300.
func DefaultSection() Section {
	return Section{E: 2.1e11, A: 5.38e-3, I: 8.356e-5, Mass: 42.2}
}

// Member is a straight element connecting two distinct nodes.
type Member struct {
	ID       int        `json:"id"`
	Start    int        `json:"startNodeId"`
	End      int        `json:"endNodeId"`
	Kind     MemberKind `json:"kind"`
	Section  Section    `json:"section"`
	Releases Releases   `json:"releases"`
}

// Other returns the node id at the opposite end of nodeID, or 0 if nodeID is not an endpoint.
func (m Member) Other(nodeID int) int {
	switch nodeID {
	case m.Start:
		return m.End
	case m.End:
		return m.Start
	}
	return 0
}

// Connects reports whether the member joins a and b in either orientation.
func (m Member) Connects(a, b int) bool {
	return (m.Start == a && m.End == b) || (m.Start == b && m.End == a)
}

// EndSide names one end of a member.
type EndSide string

const (
	StartEnd EndSide = "start"
	EndEnd   EndSide = "end"
)

// MemberEnd addresses one end of one member.
type MemberEnd struct {
	MemberID int     `json:"memberId"`
	Side     EndSide `json:"side"`
}

// Release returns the triple at the addressed end.
func (m Member) Release(side EndSide) ReleaseTriple {
	if side == EndEnd {
		return m.Releases.End
	}
	return m.Releases.Start
}

// TargetKind selects what a load acts on.
type TargetKind string

const (
	TargetNode   TargetKind = "NODE"
	TargetMember TargetKind = "MEMBER"
)

// LoadTarget references the node or member a load acts on.
type LoadTarget struct {
	Kind     TargetKind `json:"kind"`
	NodeID   int        `json:"nodeId,omitempty"`
	MemberID int        `json:"memberId,omitempty"`
}

// LoadKind enumerates the supported load types.
type LoadKind string

const (
	PointLoad       LoadKind = "point"
	MomentLoad      LoadKind = "moment"
	DistributedLoad LoadKind = "distributed"
)

// Frame is the reference frame of a load angle.
type Frame string

const (
	Global Frame = "global"
	Local  Frame = "local"
)

// Load is a force, moment or line load. Angle is in degrees on screen
// (0 = +x, 90 = pointing down). For member targets Ratio (and RatioEnd for
// distributed loads) locate the load along the member in [0,1].
type Load struct {
	ID       int        `json:"id"`
	Target   LoadTarget `json:"target"`
	Kind     LoadKind   `json:"kind"`
	Value    float64    `json:"value"`
	ValueEnd float64    `json:"valueEnd,omitempty"`
	Ratio    float64    `json:"ratio,omitempty"`
	RatioEnd float64    `json:"ratioEnd,omitempty"`
	Angle    float64    `json:"angle"`
	Frame    Frame      `json:"frame,omitempty"`
}

// PanelShape is the outline family of a panel.
type PanelShape string

const (
	RectanglePanel PanelShape = "rectangle"
	TrianglePanel  PanelShape = "triangle"
	PolygonPanel   PanelShape = "polygon"
)

// PanelType decides how the solver treats a panel.
type PanelType string

const (
	RigidPanel   PanelType = "RIGID"
	ElasticPanel PanelType = "ELASTIC"
)

// PanelMaterial holds plate properties used for elastic panels.
type PanelMaterial struct {
	E         float64 `json:"E"`
	Nu        float64 `json:"nu"`
	Thickness float64 `json:"thickness"`
	Density   float64 `json:"density"`
}

// DefaultPanelMaterial is 20cm of C30/37 concrete.
func DefaultPanelMaterial() PanelMaterial {
	return PanelMaterial{E: 3.3e10, Nu: 0.2, Thickness: 0.2, Density: 2500}
}

// PanelConnection attaches a panel to a node, optionally released.
type PanelConnection struct {
	NodeID   int           `json:"nodeId"`
	Releases ReleaseTriple `json:"releases"`
}

// Panel (Scheibe) is a rigid or elastic plate connected to nodes.
type Panel struct {
	ID          int               `json:"id"`
	Shape       PanelShape        `json:"shape"`
	P1          vector.Pt         `json:"p1"`
	P2          vector.Pt         `json:"p2"`
	Extra       []vector.Pt       `json:"extra,omitempty"`
	Rotation    float64           `json:"rotation"`
	Type        PanelType         `json:"type"`
	Material    PanelMaterial     `json:"material"`
	Connections []PanelConnection `json:"connections"`
}

// ConstraintKind enumerates two-node auxiliary elements.
type ConstraintKind string

const (
	SpringConstraint ConstraintKind = "spring"
	DamperConstraint ConstraintKind = "damper"
	CableConstraint  ConstraintKind = "cable"
)

// Constraint is a spring, damper or cable between two nodes.
type Constraint struct {
	ID             int            `json:"id"`
	Kind           ConstraintKind `json:"kind"`
	NodeA          int            `json:"nodeA"`
	NodeB          int            `json:"nodeB"`
	Stiffness      float64        `json:"stiffness,omitempty"`
	Damping        float64        `json:"damping,omitempty"`
	AxialStiffness float64        `json:"axialStiffness,omitempty"`
	Prestress      float64        `json:"prestress,omitempty"`
}
