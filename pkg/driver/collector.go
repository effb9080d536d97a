package driver

import (
	"slices"

	"reform/pkg/form"
	"reform/pkg/vm"
)

// Snapshot is what a form looked like when it left scope.
type Snapshot struct {
	ID      form.ID
	Name    string
	Anchors map[form.AnchorID]form.Vec2
	// Outline holds evenly spaced points along the outline, ends included.
	Outline []form.Vec2
	// Scope is the number of open runtime scopes when the form left.
	Scope int
}

// Anchor returns the captured position of an anchor.
func (s Snapshot) Anchor(id form.AnchorID) (form.Vec2, bool) {
	v, ok := s.Anchors[id]
	return v, ok
}

const defaultSamples = 16

// Collector captures a Snapshot of every form as its scope closes. A form
// that leaves scope several times, such as one created in a loop, yields
// one snapshot per exit.
type Collector struct {
	vm.BaseListener
	rt      *vm.Runtime
	samples int
	shots   []Snapshot
	peak    int
}

// NewCollector reads words through rt. samples below 2 select the default.
func NewCollector(rt *vm.Runtime, samples int) *Collector {
	if samples < 2 {
		samples = defaultSamples
	}
	return &Collector{rt: rt, samples: samples}
}

func (c *Collector) BeginEvaluation(form.Vec2) {
	c.shots = c.shots[:0]
	c.peak = 0
}

func (c *Collector) ExitScope(forms []form.Form) {
	c.peak = max(c.peak, c.rt.Words())
	for _, f := range forms {
		c.shots = append(c.shots, c.capture(f))
	}
}

func (c *Collector) capture(f form.Form) Snapshot {
	s := Snapshot{
		ID:      f.Identifier(),
		Name:    f.Name(),
		Anchors: make(map[form.AnchorID]form.Vec2),
		Scope:   c.rt.Depth(),
	}
	for _, a := range f.Anchors() {
		if v, ok := a.Position(c.rt); ok {
			s.Anchors[a.ID()] = v
		}
	}
	if o := f.Outline(); o != nil {
		for i := range c.samples {
			t := float64(i) / float64(c.samples-1)
			if v, ok := o.Position(c.rt, t); ok {
				s.Outline = append(s.Outline, v)
			}
		}
	}
	return s
}

// Snapshots returns the snapshots of the latest evaluation in capture order.
func (c *Collector) Snapshots() []Snapshot { return slices.Clone(c.shots) }

// PeakWords is the largest number of stack words seen allocated at a scope
// exit during the latest evaluation.
func (c *Collector) PeakWords() int { return c.peak }

// Latest returns the last snapshot taken of id.
func (c *Collector) Latest(id form.ID) (Snapshot, bool) {
	for _, s := range slices.Backward(c.shots) {
		if s.ID == id {
			return s, true
		}
	}
	return Snapshot{}, false
}
