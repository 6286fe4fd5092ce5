/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package deform

import (
	"sync"

	"structsketch/internal/domain"
	"structsketch/internal/vector"
)

// View selects how results are drawn.
type View int

const (
	ViewNone View = iota
	ViewStatic
	ViewModal
	ViewTransient
	ViewMechanism
)

func (v View) String() string {
	switch v {
	case ViewStatic:
		return "static"
	case ViewModal:
		return "modal"
	case ViewTransient:
		return "transient"
	case ViewMechanism:
		return "mechanism"
	}
	return "none"
}

// Animated reports whether the view changes over time.
func (v View) Animated() bool { return v == ViewModal || v == ViewTransient || v == ViewMechanism }

// Analysis bundles the result a view draws from. Only the field matching
// View is read.
type Analysis struct {
	View      View
	Static    *domain.StaticResult
	Dynamic   *domain.DynamicResult
	Kinematic *domain.KinematicResult
	Mode      int

	once      sync.Once
	transient *Transient
}

// Transient returns the cached playback helper for the dynamic result.
func (a *Analysis) Transient() *Transient {
	a.once.Do(func() { a.transient = NewTransient(a.Dynamic) })
	return a.transient
}

// Frame is one drawable state.
type Frame struct {
	Nodes  map[int]vector.Pt
	Panels []PanelPose
	Time   float64 // simulated time for transient playback
}

// DefaultStepDuration is the wall-clock time one transient step is shown.
const DefaultStepDuration = 1.0 / 30

// Player is the animation clock. Tick does nothing and reports false while
// no animated analysis is loaded, so callers can skip redraws entirely.
type Player struct {
	mu           sync.Mutex
	a            *Analysis
	t            float64
	paused       bool
	speed        float64
	stepDuration float64
}

func NewPlayer() *Player { return &Player{speed: 1, stepDuration: DefaultStepDuration} }

// Load replaces the analysis and rewinds the clock. nil clears.
func (p *Player) Load(a *Analysis) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.a = a
	p.t = 0
}

// Clear drops the analysis.
func (p *Player) Clear() { p.Load(nil) }

// Analysis returns the loaded analysis or nil.
func (p *Player) Analysis() *Analysis {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.a
}

// SetPaused stops or resumes the clock.
func (p *Player) SetPaused(paused bool) {
	p.mu.Lock()
	p.paused = paused
	p.mu.Unlock()
}

// Paused reports whether the clock is stopped.
func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// SetSpeed sets the clock multiplier; non-positive values reset it to 1.
func (p *Player) SetSpeed(s float64) {
	p.mu.Lock()
	if s <= 0 {
		s = 1
	}
	p.speed = s
	p.mu.Unlock()
}

// Tick advances the clock by dt seconds and reports whether a redraw is needed.
func (p *Player) Tick(dt float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.a == nil || !p.a.View.Animated() || p.paused {
		return false
	}
	p.t += dt * p.speed
	return true
}

// Time returns the animation time in seconds.
func (p *Player) Time() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.t
}

// Step returns the transient step shown at the current time, looping.
func (p *Player) Step() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stepLocked()
}

func (p *Player) stepLocked() int {
	if p.a == nil || p.a.View != ViewTransient {
		return 0
	}
	n := p.a.Transient().Steps()
	if n == 0 {
		return 0
	}
	return int(p.t/p.stepDuration) % n
}

// Frame computes the displaced geometry for the current clock. amplitude is
// the static scale, the modal amplitude, the transient target length or the
// mechanism gain depending on the view. ok is false when nothing is loaded.
func (p *Player) Frame(snap domain.Snapshot, amplitude float64) (Frame, bool) {
	p.mu.Lock()
	a, t, step := p.a, p.t, p.stepLocked()
	p.mu.Unlock()
	if a == nil || a.View == ViewNone {
		return Frame{}, false
	}
	return Compose(a, snap, t, step, amplitude), true
}

// Compose is the clock-free core of Player.Frame.
func Compose(a *Analysis, snap domain.Snapshot, t float64, step int, amplitude float64) Frame {
	var f Field
	var fr Frame
	switch a.View {
	case ViewStatic:
		f = Static(a.Static, amplitude)
	case ViewModal:
		f = Modal(a.Dynamic, a.Mode, t, amplitude)
	case ViewTransient:
		tr := a.Transient()
		f = tr.At(step, amplitude)
		fr.Time = tr.Time(step)
	case ViewMechanism:
		pos := Mechanism(snap.Nodes, snap.Members, Mode(a.Kinematic, a.Mode), t, amplitude)
		f = Field{}
		for _, n := range snap.Nodes {
			f[n.ID] = Disp{D: pos[n.ID].Sub(n.Pos())}
		}
		fr.Nodes = pos
		fr.Panels = PanelPoses(snap.Panels, snap.Nodes, f)
		return fr
	default:
		f = Field{}
	}
	fr.Nodes = f.Apply(snap.Nodes)
	fr.Panels = PanelPoses(snap.Panels, snap.Nodes, f)
	return fr
}
