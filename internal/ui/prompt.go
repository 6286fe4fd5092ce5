/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"fmt"
	"strconv"
	"strings"

	"structsketch/internal/domain"
	"structsketch/internal/gesture"
	"structsketch/internal/hinge"
)

// LoadFields is the text the load dialog edits.
type LoadFields struct {
	Value, ValueEnd, Ratio, RatioEnd string
}

// FieldsFor prefills the dialog from a request.
func FieldsFor(req gesture.Request) LoadFields {
	f := LoadFields{Value: formatNum(req.Value)}
	if req.Distributed() {
		f.ValueEnd = formatNum(req.ValueEnd)
		f.Ratio = formatNum(req.Ratio)
		f.RatioEnd = formatNum(req.RatioEnd)
	}
	return f
}

// ParseLoadFields validates dialog input into an accepted answer. Empty end
// fields of a distributed load fall back to the request defaults.
func ParseLoadFields(req gesture.Request, f LoadFields) (gesture.Answer, error) {
	v, err := parseNum("value", f.Value, req.Value)
	if err != nil {
		return gesture.Answer{}, err
	}
	ans := gesture.Answer{OK: true, Value: v, Ratio: req.Ratio}
	if !req.Distributed() {
		return ans, nil
	}
	if ans.ValueEnd, err = parseNum("end value", f.ValueEnd, req.ValueEnd); err != nil {
		return gesture.Answer{}, err
	}
	if ans.Ratio, err = parseNum("start ratio", f.Ratio, req.Ratio); err != nil {
		return gesture.Answer{}, err
	}
	if ans.RatioEnd, err = parseNum("end ratio", f.RatioEnd, req.RatioEnd); err != nil {
		return gesture.Answer{}, err
	}
	for _, r := range []float64{ans.Ratio, ans.RatioEnd} {
		if r < 0 || r > 1 {
			return gesture.Answer{}, fmt.Errorf("ratio %s outside 0..1", formatNum(r))
		}
	}
	return ans, nil
}

func parseNum(name, s string, def float64) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", name, s)
	}
	return v, nil
}

func formatNum(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// LoadTitle names the dialog for a request.
func LoadTitle(req gesture.Request) string {
	where := fmt.Sprintf("node %d", req.Target.NodeID)
	if req.Target.Kind == domain.TargetMember {
		where = fmt.Sprintf("member %d", req.Target.MemberID)
	}
	switch req.Kind {
	case domain.MomentLoad:
		return "Moment on " + where
	case domain.DistributedLoad:
		return "Line load on " + where
	}
	return "Point load on " + where
}

// EndLabels lists the choices offered for a double hinge, one per member end.
func EndLabels(d hinge.DoubleHinge) []string {
	out := make([]string, len(d.Ends))
	for i, e := range d.Ends {
		out[i] = fmt.Sprintf("member %d (%s end)", e.MemberID, e.Side)
	}
	return out
}
