/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package hinge

import (
	"fmt"

	"structsketch/internal/domain"
)

// Severity of a finding.
type Severity int

const (
	SeverityError   Severity = iota // blocks analysis
	SeverityWarning                 // informational
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Finding is one problem in the model.
type Finding struct {
	NodeID   int
	MemberID int
	Message  string
	Severity Severity
}

func (f Finding) Error() string {
	switch {
	case f.NodeID != 0:
		return fmt.Sprintf("[%s] node %d: %s", f.Severity, f.NodeID, f.Message)
	case f.MemberID != 0:
		return fmt.Sprintf("[%s] member %d: %s", f.Severity, f.MemberID, f.Message)
	}
	return fmt.Sprintf("[%s] %s", f.Severity, f.Message)
}

// Model is the read side Validate needs.
type Model interface {
	Members
	Nodes() []domain.Node
	Loads() []domain.Load
}

// Validate reports double hinges as errors and a few advisory checks as
// warnings. It never mutates the model.
func Validate(m Model) []Finding {
	var out []Finding
	for _, d := range Check(m) {
		out = append(out, Finding{
			NodeID:   d.NodeID,
			Message:  fmt.Sprintf("%d member ends release the moment; keep at most one", len(d.Ends)),
			Severity: SeverityError,
		})
	}

	nodes := m.Nodes()
	attached := map[int]bool{}
	for _, mem := range m.Members() {
		attached[mem.Start], attached[mem.End] = true, true
	}
	supported := false
	for _, n := range nodes {
		if !n.Support.IsFree() {
			supported = true
		}
		if !attached[n.ID] {
			out = append(out, Finding{NodeID: n.ID, Message: "node is not attached to any member", Severity: SeverityWarning})
		}
	}
	if len(nodes) > 0 && !supported {
		out = append(out, Finding{Message: "structure has no supports", Severity: SeverityWarning})
	}
	if len(m.Loads()) == 0 && len(nodes) > 0 {
		out = append(out, Finding{Message: "structure carries no loads", Severity: SeverityWarning})
	}
	return out
}

// Blocking reports whether any finding is an error.
func Blocking(fs []Finding) bool {
	for _, f := range fs {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}
