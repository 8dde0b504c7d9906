package qwidgets

import "math"

type handle int

const (
	noHandle handle = iota
	minHandle
	maxHandle
)

// RangeSlider selects an interval with two handles. The minimum is never
// greater than the maximum: moving one handle past the other swaps them.
type RangeSlider struct {
	SliderBase

	MinValueChanged func(float64)          `qobject:"value"`
	MaxValueChanged func(float64)          `qobject:"value"`
	SliderMoved     func(float64, float64) `qobject:"min,max"`

	minValue float64
	maxValue float64
	active   handle
}

// NewRangeSlider returns a slider with the range 0 to 1, with the whole
// range selected.
func NewRangeSlider() *RangeSlider {
	s := &RangeSlider{SliderBase: newSliderBase()}
	s.minValue, s.maxValue = s.hard.Min, s.hard.Max
	// A new range selects all of it
	s.onRange = func() {
		s.setValues(s.hard.Min, s.hard.Max)
		s.moved()
	}
	return s
}

func (s *RangeSlider) MinValue() float64 {
	return s.minValue
}

func (s *RangeSlider) MaxValue() float64 {
	return s.maxValue
}

// SetMinValue moves the minimum handle. A value above the maximum makes it
// the new maximum, and the old maximum the new minimum.
func (s *RangeSlider) SetMinValue(v float64) {
	v = s.bound(v)
	if v > s.maxValue {
		s.setValues(s.maxValue, v)
		s.swapActive()
	} else {
		s.setValues(v, s.maxValue)
	}
}

// SetMaxValue moves the maximum handle, swapping like SetMinValue.
func (s *RangeSlider) SetMaxValue(v float64) {
	v = s.bound(v)
	if v < s.minValue {
		s.setValues(v, s.minValue)
		s.swapActive()
	} else {
		s.setValues(s.minValue, v)
	}
}

func (s *RangeSlider) setValues(lo, hi float64) {
	s.extendSoft(lo)
	s.extendSoft(hi)
	minChanged, maxChanged := lo != s.minValue, hi != s.maxValue
	s.minValue, s.maxValue = lo, hi
	if maxChanged {
		s.changed("maxValue")
	}
	if minChanged {
		s.changed("minValue")
	}
}

func (s *RangeSlider) swapActive() {
	switch s.active {
	case minHandle:
		s.active = maxHandle
	case maxHandle:
		s.active = minHandle
	}
}

func (s *RangeSlider) moved() {
	if s.QObject != nil {
		s.SliderMoved(s.minValue, s.maxValue)
	}
}

// Positions returns the normalized positions of both handles.
func (s *RangeSlider) Positions() (float64, float64) {
	return s.positionOf(s.minValue), s.positionOf(s.maxValue)
}

// Press starts a drag with the handle nearest to the normalized position
// pos, moving it there.
func (s *RangeSlider) Press(pos float64) {
	lo, hi := s.Positions()
	if math.Abs(pos-lo) < math.Abs(pos-hi) {
		s.active = minHandle
	} else {
		s.active = maxHandle
	}
	s.press()
	s.moveActive(s.valueAt(pos))
}

// Drag moves the pressed handle to pos.
func (s *RangeSlider) Drag(pos float64) {
	if s.down && s.active != noHandle {
		s.moveActive(s.valueAt(pos))
	}
}

// Release ends a drag.
func (s *RangeSlider) Release() {
	s.SliderBase.Release()
	s.active = noHandle
}

func (s *RangeSlider) moveActive(v float64) {
	if s.active == minHandle {
		s.SetMinValue(v)
	} else {
		s.SetMaxValue(v)
	}
	s.moved()
}

func (s *RangeSlider) activeValue() float64 {
	if s.active == minHandle {
		return s.minValue
	}
	return s.maxValue
}

// StepBy moves the handle that was last pressed, or the maximum handle.
func (s *RangeSlider) StepBy(steps int) {
	s.moveActive(s.activeValue() + float64(steps)*s.SingleStep)
}

func (s *RangeSlider) PageBy(pages int) {
	s.moveActive(s.activeValue() + float64(pages)*s.PageStep)
}

func (s *RangeSlider) Home() {
	s.moveActive(s.VisualRange().Min)
}

func (s *RangeSlider) End() {
	s.moveActive(s.VisualRange().Max)
}
