package qwidgets

import "strconv"

// SpinBox edits an integer within an inclusive range.
type SpinBox struct {
	Widget
	Prefix string
	Suffix string

	ValueChanged func(int) `qobject:"value"`

	value    int
	minimum  int
	maximum  int
	step     int
	wrapping bool
}

// NewSpinBox returns a spin box with the range 0 to 99.
func NewSpinBox() *SpinBox {
	return &SpinBox{Widget: newWidget(), maximum: 99, step: 1}
}

func (s *SpinBox) Value() int {
	return s.value
}

// SetValue sets the value, clamped to the range.
func (s *SpinBox) SetValue(v int) {
	v = s.bound(v)
	if v == s.value {
		return
	}
	s.value = v
	s.changed("value")
}

func (s *SpinBox) bound(v int) int {
	if v < s.minimum {
		return s.minimum
	}
	if v > s.maximum {
		return s.maximum
	}
	return v
}

func (s *SpinBox) Minimum() int {
	return s.minimum
}

func (s *SpinBox) Maximum() int {
	return s.maximum
}

// SetRange sets the inclusive range, swapping the bounds if necessary, and
// clamps the value.
func (s *SpinBox) SetRange(minimum, maximum int) {
	if minimum > maximum {
		minimum, maximum = maximum, minimum
	}
	s.minimum, s.maximum = minimum, maximum
	s.SetValue(s.value)
}

func (s *SpinBox) SetSingleStep(step int) {
	s.step = step
}

// SetWrapping makes stepping past one end of the range continue from the
// other.
func (s *SpinBox) SetWrapping(wrapping bool) {
	s.wrapping = wrapping
}

// StepBy changes the value by steps single steps.
func (s *SpinBox) StepBy(steps int) {
	v := s.value + steps*s.step
	if s.wrapping && s.maximum > s.minimum {
		span := s.maximum - s.minimum + 1
		v = s.minimum + ((v-s.minimum)%span+span)%span
	}
	s.SetValue(v)
}

// Text is the displayed text, including prefix and suffix.
func (s *SpinBox) Text() string {
	return s.Prefix + strconv.Itoa(s.value) + s.Suffix
}
