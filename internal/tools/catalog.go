/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package tools

import "structsketch/internal/domain"

// SupportSpec is the channel pattern a support symbol applies to a node.
type SupportSpec struct {
	Symbol  string
	Label   string
	Support domain.Support
}

// HingeSpec is the release pattern a hinge symbol applies to every member end
// at a node. Rigid clears all releases.
type HingeSpec struct {
	Symbol   string
	Label    string
	Releases domain.ReleaseTriple
}

// ConnectionKind names what a connection drag creates.
type ConnectionKind string

const (
	ConnBeam   ConnectionKind = "beam"
	ConnTruss  ConnectionKind = "truss"
	ConnSpring ConnectionKind = "spring"
	ConnDamper ConnectionKind = "damper"
	ConnCable  ConnectionKind = "cable"
)

// ConnectionSpec tells the commit step which entity to create.
type ConnectionSpec struct {
	Kind       ConnectionKind
	Label      string
	Member     domain.MemberKind     // set for members
	Constraint domain.ConstraintKind // set for constraints
	// default element properties for constraints
	Stiffness, Damping, AxialStiffness float64
}

// IsMember reports whether the connection creates a member.
func (c ConnectionSpec) IsMember() bool { return c.Member != "" }

const (
	SymPinned           = "pinned"
	SymRoller           = "roller"
	SymFixed            = "fixed"
	SymSliding          = "sliding"
	SymSpring           = "spring"
	SymRotationalSpring = "rotational_spring"

	SymMomentHinge = "moment_hinge"
	SymShearHinge  = "shear_hinge"
	SymAxialHinge  = "axial_hinge"
	SymRigid       = "rigid"
)

const (
	defaultSpringStiffness     = 1e5
	defaultRotationalStiffness = 1e4
)

var fixed, free = domain.FixedChannel(), domain.FreeChannel()

var supports = []SupportSpec{
	{SymPinned, "Pinned support", domain.Support{Axial: fixed, Transverse: fixed, Rotational: free}},
	{SymRoller, "Roller support", domain.Support{Axial: free, Transverse: fixed, Rotational: free}},
	{SymFixed, "Fixed support", domain.Support{Axial: fixed, Transverse: fixed, Rotational: fixed}},
	{SymSliding, "Sliding clamp", domain.Support{Axial: free, Transverse: fixed, Rotational: fixed}},
	{SymSpring, "Spring support", domain.Support{Axial: free, Transverse: domain.SpringChannel(defaultSpringStiffness), Rotational: free}},
	{SymRotationalSpring, "Rotational spring", domain.Support{Axial: fixed, Transverse: fixed, Rotational: domain.SpringChannel(defaultRotationalStiffness)}},
}

var hinges = []HingeSpec{
	{SymMomentHinge, "Moment hinge", domain.ReleaseTriple{M: true}},
	{SymShearHinge, "Shear hinge", domain.ReleaseTriple{V: true}},
	{SymAxialHinge, "Axial hinge", domain.ReleaseTriple{N: true}},
	{SymRigid, "Rigid joint", domain.ReleaseTriple{}},
}

var connections = []ConnectionSpec{
	{Kind: ConnBeam, Label: "Beam", Member: domain.Beam},
	{Kind: ConnTruss, Label: "Truss", Member: domain.Truss},
	{Kind: ConnSpring, Label: "Spring", Constraint: domain.SpringConstraint, Stiffness: defaultSpringStiffness},
	{Kind: ConnDamper, Label: "Damper", Constraint: domain.DamperConstraint, Damping: 1e3},
	{Kind: ConnCable, Label: "Cable", Constraint: domain.CableConstraint, AxialStiffness: 2e7},
}

// Supports returns the support catalog in display order.
func Supports() []SupportSpec { return append([]SupportSpec(nil), supports...) }

// Hinges returns the hinge catalog in display order.
func Hinges() []HingeSpec { return append([]HingeSpec(nil), hinges...) }

// Connections returns the connection catalog in display order.
func Connections() []ConnectionSpec { return append([]ConnectionSpec(nil), connections...) }

func LookupSupport(symbol string) (SupportSpec, bool) {
	for _, s := range supports {
		if s.Symbol == symbol {
			return s, true
		}
	}
	return SupportSpec{}, false
}

func LookupHinge(symbol string) (HingeSpec, bool) {
	for _, h := range hinges {
		if h.Symbol == symbol {
			return h, true
		}
	}
	return HingeSpec{}, false
}

func LookupConnection(kind ConnectionKind) (ConnectionSpec, bool) {
	for _, c := range connections {
		if c.Kind == kind {
			return c, true
		}
	}
	return ConnectionSpec{}, false
}

// EndMomentReleased derives a new member end's moment release from the
// symbol last recorded on its node. Only a moment hinge releases the end.
func EndMomentReleased(nodeSymbol string) bool {
	return nodeSymbol == SymMomentHinge
}

// All returns one tool of every kind in palette order.
func All() []Tool {
	out := []Tool{Select{}}
	for _, c := range connections {
		out = append(out, Connection{Kind: c.Kind})
	}
	for _, s := range supports {
		out = append(out, Support{Symbol: s.Symbol})
	}
	for _, h := range hinges {
		out = append(out, Hinge{Symbol: h.Symbol})
	}
	out = append(out, Load{Kind: domain.PointLoad}, Load{Kind: domain.MomentLoad}, Load{Kind: domain.DistributedLoad}, Delete{})
	return out
}
