package qwidgets

import (
	"math"

	"cogentcore.org/core/math32/minmax"
)

// SliderBase has the state shared by FloatSlider and RangeSlider: a hard
// range that values are clamped to, an optional soft range limiting the
// part of the track that is shown, and step sizes.
//
// Positions are normalized: 0 and 1 are the ends of the visible track.
type SliderBase struct {
	Widget
	// SingleStep is the step for StepBy, and values are rounded to
	// multiples of it. Zero disables rounding.
	SingleStep float64
	PageStep   float64

	RangeChanged     func(minmax.F64) `qobject:"range"`
	SoftRangeChanged func(minmax.F64) `qobject:"softRange"`
	SliderPressed    func()
	SliderReleased   func()

	hard    minmax.F64
	soft    minmax.F64
	hasSoft bool
	down    bool
	// called after the hard range changed
	onRange func()
}

func newSliderBase() SliderBase {
	return SliderBase{
		Widget:     newWidget(),
		SingleStep: 0.01,
		PageStep:   0.1,
		hard:       minmax.F64{Min: 0, Max: 1},
	}
}

// Range returns the hard range.
func (s *SliderBase) Range() minmax.F64 {
	return s.hard
}

// SetRange sets the hard range, swapping the bounds if necessary. Use
// -math.MaxFloat64 or math.MaxFloat64 for an open end. The soft range and
// values are clamped to the new range.
func (s *SliderBase) SetRange(r minmax.F64) {
	if r.Min > r.Max {
		r.Min, r.Max = r.Max, r.Min
	}
	if r == s.hard {
		return
	}
	s.hard = r
	if s.hasSoft {
		s.setSoft(minmax.F64{Min: r.ClipValue(s.soft.Min), Max: r.ClipValue(s.soft.Max)})
	}
	s.changed("range")
	if s.onRange != nil {
		s.onRange()
	}
}

// SoftRange returns the soft range, or the hard range if none is set.
func (s *SliderBase) SoftRange() minmax.F64 {
	if s.hasSoft {
		return s.soft
	}
	return s.hard
}

// SetSoftRange limits the visible track to r, clamped to the hard range.
// Setting a value outside of the soft range extends it.
func (s *SliderBase) SetSoftRange(r minmax.F64) {
	r = minmax.F64{Min: s.hard.ClipValue(r.Min), Max: s.hard.ClipValue(r.Max)}
	if r.Min > r.Max {
		r.Min, r.Max = r.Max, r.Min
	}
	s.setSoft(r)
}

func (s *SliderBase) setSoft(r minmax.F64) {
	if s.hasSoft && s.soft == r {
		return
	}
	s.soft = r
	s.hasSoft = true
	s.changed("softRange")
}

// ClearSoftRange shows the whole hard range again.
func (s *SliderBase) ClearSoftRange() {
	if !s.hasSoft {
		return
	}
	s.hasSoft = false
	s.changed("softRange")
}

func (s *SliderBase) HasSoftRange() bool {
	return s.hasSoft
}

// extendSoft grows the soft range to include v.
func (s *SliderBase) extendSoft(v float64) {
	if !s.hasSoft || s.soft.InRange(v) {
		return
	}
	soft := s.soft
	soft.FitValInRange(v)
	s.setSoft(soft)
}

// VisualRange is the range shown by the track.
func (s *SliderBase) VisualRange() minmax.F64 {
	return s.SoftRange()
}

// IsSliderDown returns true between Press and Release.
func (s *SliderBase) IsSliderDown() bool {
	return s.down
}

// bound clamps v to the hard range and rounds it to the single step.
func (s *SliderBase) bound(v float64) float64 {
	v = s.hard.ClipValue(v)
	if s.SingleStep > 0 {
		v = s.hard.ClipValue(snap(v, s.SingleStep))
	}
	return v
}

func snap(v, step float64) float64 {
	v = math.Round(v/step) * step
	// Drop representation error such as 3 * 0.1
	if math.Abs(v) < 1e9 {
		v = math.Round(v*1e9) / 1e9
	}
	return v
}

// valueAt maps a normalized position to a value in the visual range.
func (s *SliderBase) valueAt(pos float64) float64 {
	vr := s.VisualRange()
	return vr.ProjValue(math.Max(0, math.Min(pos, 1)))
}

// positionOf maps a value to its normalized position on the track.
func (s *SliderBase) positionOf(v float64) float64 {
	vr := s.VisualRange()
	return vr.NormValue(v)
}

func (s *SliderBase) press() {
	s.down = true
	if s.QObject != nil {
		s.SliderPressed()
	}
}

// Release ends a drag started by Press.
func (s *SliderBase) Release() {
	if !s.down {
		return
	}
	s.down = false
	if s.QObject != nil {
		s.SliderReleased()
	}
}
