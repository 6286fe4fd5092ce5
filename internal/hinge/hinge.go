/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package hinge finds joints whose relative rotation is undetermined and
// walks the user through fixing them before an analysis is sent.
package hinge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"structsketch/internal/domain"
	applog "structsketch/internal/log"
)

// ErrUnresolved is returned by Gate when double hinges remain.
var ErrUnresolved = errors.New("unresolved double hinges")

// Members is the read side needed by Check.
type Members interface {
	Members() []domain.Member
}

// Store is what Gate needs to read and clear releases.
type Store interface {
	Members
	SetMemberEndRelease(end domain.MemberEnd, r domain.ReleaseTriple) bool
}

// DoubleHinge is a node with two or more moment-released member ends.
type DoubleHinge struct {
	NodeID int
	Ends   []domain.MemberEnd
}

// Check scans all member ends grouped by node. Results are sorted by node id,
// ends keep member order.
func Check(m Members) []DoubleHinge {
	released := map[int][]domain.MemberEnd{}
	for _, mem := range m.Members() {
		if mem.Releases.Start.M {
			released[mem.Start] = append(released[mem.Start], domain.MemberEnd{MemberID: mem.ID, Side: domain.StartEnd})
		}
		if mem.Releases.End.M {
			released[mem.End] = append(released[mem.End], domain.MemberEnd{MemberID: mem.ID, Side: domain.EndEnd})
		}
	}
	var out []DoubleHinge
	for node, ends := range released {
		if len(ends) >= 2 {
			out = append(out, DoubleHinge{NodeID: node, Ends: ends})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out
}

// IsDoubleHinge reports whether nodeID is currently flagged.
func IsDoubleHinge(m Members, nodeID int) bool {
	for _, d := range Check(m) {
		if d.NodeID == nodeID {
			return true
		}
	}
	return false
}

// Resolve clears the moment release of one member end.
func Resolve(s Store, end domain.MemberEnd) bool {
	for _, mem := range s.Members() {
		if mem.ID != end.MemberID {
			continue
		}
		r := mem.Release(end.Side)
		r.M = false
		return s.SetMemberEndRelease(end, r)
	}
	return false
}

// Chooser asks which end of a double hinge should become rigid. ok false
// means the user declined.
type Chooser interface {
	Choose(ctx context.Context, d DoubleHinge) (end domain.MemberEnd, ok bool, err error)
}

// ChooserFunc adapts a function to Chooser.
type ChooserFunc func(ctx context.Context, d DoubleHinge) (domain.MemberEnd, bool, error)

func (f ChooserFunc) Choose(ctx context.Context, d DoubleHinge) (domain.MemberEnd, bool, error) {
	return f(ctx, d)
}

// FirstEnd resolves every double hinge by fixing its first listed end.
var FirstEnd = ChooserFunc(func(_ context.Context, d DoubleHinge) (domain.MemberEnd, bool, error) {
	return d.Ends[0], true, nil
})

// Gate blocks until the model has no double hinges. Each round the chooser
// picks an end for the lowest offending node and that end is made rigid.
// A declined choice, an end that does not belong to the node or a done ctx
// yields ErrUnresolved.
func Gate(ctx context.Context, s Store, c Chooser) error {
	l := applog.WithOperation(applog.WithComponent("hinge"), "gate")
	for {
		found := Check(s)
		if len(found) == 0 {
			return nil
		}
		if c == nil {
			return fmt.Errorf("%w: %d node(s)", ErrUnresolved, len(found))
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnresolved, err)
		}
		d := found[0]
		end, ok, err := c.Choose(ctx, d)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("%w: %v", ErrUnresolved, err)
			}
			return fmt.Errorf("choose release at node %d: %w", d.NodeID, err)
		}
		if !ok || !contains(d.Ends, end) {
			return fmt.Errorf("%w: node %d", ErrUnresolved, d.NodeID)
		}
		if !Resolve(s, end) {
			return fmt.Errorf("%w: member %d vanished", ErrUnresolved, end.MemberID)
		}
		l.Info("double hinge resolved", slog.Int("node", d.NodeID), slog.Int("member", end.MemberID), slog.String("side", string(end.Side)))
	}
}

func contains(ends []domain.MemberEnd, e domain.MemberEnd) bool {
	for _, x := range ends {
		if x == e {
			return true
		}
	}
	return false
}
