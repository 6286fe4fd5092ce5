/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package tools defines the closed set of canvas tools and their symbol catalog.
package tools

import (
	"fmt"

	"structsketch/internal/domain"
)

// Tool is implemented only by the types in this package.
type Tool interface {
	Category() Category
	Name() string
	isTool()
}

// Category groups tools by what a commit does.
type Category string

const (
	CatSelect     Category = "select"
	CatConnection Category = "connection"
	CatSupport    Category = "support"
	CatHinge      Category = "hinge"
	CatLoad       Category = "load"
	CatDelete     Category = "delete"
)

type (
	Select     struct{}
	Connection struct{ Kind ConnectionKind }
	Support    struct{ Symbol string }
	Hinge      struct{ Symbol string }
	Load       struct{ Kind domain.LoadKind }
	Delete     struct{}
)

func (Select) Category() Category     { return CatSelect }
func (Connection) Category() Category { return CatConnection }
func (Support) Category() Category    { return CatSupport }
func (Hinge) Category() Category      { return CatHinge }
func (Load) Category() Category       { return CatLoad }
func (Delete) Category() Category     { return CatDelete }

func (Select) Name() string       { return "select" }
func (c Connection) Name() string { return string(c.Kind) }
func (s Support) Name() string    { return s.Symbol }
func (h Hinge) Name() string      { return h.Symbol }
func (l Load) Name() string       { return string(l.Kind) }
func (Delete) Name() string       { return "delete" }

func (Select) isTool()     {}
func (Connection) isTool() {}
func (Support) isTool()    {}
func (Hinge) isTool()      {}
func (Load) isTool()       {}
func (Delete) isTool()     {}

// Rotates reports whether pressing with t starts a rotation gesture.
func Rotates(t Tool) bool {
	switch t.(type) {
	case Support, Hinge, Load:
		return true
	case Select, Connection, Delete:
		return false
	}
	panic(fmt.Sprintf("tools: unknown tool %T", t))
}

// NeedsMagnitude reports whether committing t prompts for a value first.
func NeedsMagnitude(t Tool) bool {
	switch t.(type) {
	case Load:
		return true
	case Select, Connection, Support, Hinge, Delete:
		return false
	}
	panic(fmt.Sprintf("tools: unknown tool %T", t))
}

// DefaultRotation is the live rotation a tool starts from and returns to
// after every commit. Point loads point down; everything else starts at 0°.
func DefaultRotation(t Tool) float64 {
	switch v := t.(type) {
	case Load:
		if v.Kind == domain.PointLoad {
			return 90
		}
		return 0
	case Select, Connection, Support, Hinge, Delete:
		return 0
	}
	panic(fmt.Sprintf("tools: unknown tool %T", t))
}

// Parse builds a tool from a category and sub-type name as used in config
// files and the command line.
func Parse(category, name string) (Tool, error) {
	switch Category(category) {
	case CatSelect:
		return Select{}, nil
	case CatDelete:
		return Delete{}, nil
	case CatConnection:
		if _, ok := LookupConnection(ConnectionKind(name)); !ok {
			return nil, fmt.Errorf("unknown connection %q", name)
		}
		return Connection{Kind: ConnectionKind(name)}, nil
	case CatSupport:
		if _, ok := LookupSupport(name); !ok {
			return nil, fmt.Errorf("unknown support %q", name)
		}
		return Support{Symbol: name}, nil
	case CatHinge:
		if _, ok := LookupHinge(name); !ok {
			return nil, fmt.Errorf("unknown hinge %q", name)
		}
		return Hinge{Symbol: name}, nil
	case CatLoad:
		switch k := domain.LoadKind(name); k {
		case domain.PointLoad, domain.MomentLoad, domain.DistributedLoad:
			return Load{Kind: k}, nil
		}
		return nil, fmt.Errorf("unknown load kind %q", name)
	}
	return nil, fmt.Errorf("unknown tool category %q", category)
}
