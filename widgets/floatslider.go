package qwidgets

// FloatSlider selects a float64 value from a range.
//
// SliderMoved is emitted for changes made by interaction (Press, Drag,
// StepBy, PageBy, Home and End); ValueChanged for any change.
type FloatSlider struct {
	SliderBase

	ValueChanged func(float64) `qobject:"value"`
	SliderMoved  func(float64) `qobject:"value"`

	value float64
}

// NewFloatSlider returns a slider with the range 0 to 1. Sliders must be
// created with NewFloatSlider.
func NewFloatSlider() *FloatSlider {
	s := &FloatSlider{SliderBase: newSliderBase()}
	s.onRange = func() {
		if v := s.bound(s.value); v != s.value {
			s.SetValue(v)
		}
	}
	return s
}

func (s *FloatSlider) Value() float64 {
	return s.value
}

// SetValue sets the value, clamped to the range and rounded to the single
// step.
func (s *FloatSlider) SetValue(v float64) {
	v = s.bound(v)
	s.extendSoft(v)
	if v == s.value {
		return
	}
	s.value = v
	s.changed("value")
}

// Position returns the normalized position of the handle.
func (s *FloatSlider) Position() float64 {
	return s.positionOf(s.value)
}

func (s *FloatSlider) move(v float64) {
	s.SetValue(v)
	if s.QObject != nil {
		s.SliderMoved(s.value)
	}
}

// Press starts a drag at the normalized position pos, moving the handle
// there.
func (s *FloatSlider) Press(pos float64) {
	s.press()
	s.move(s.valueAt(pos))
}

// Drag moves the handle to pos during a drag.
func (s *FloatSlider) Drag(pos float64) {
	if s.down {
		s.move(s.valueAt(pos))
	}
}

func (s *FloatSlider) StepBy(steps int) {
	s.move(s.value + float64(steps)*s.SingleStep)
}

func (s *FloatSlider) PageBy(pages int) {
	s.move(s.value + float64(pages)*s.PageStep)
}

// Home moves to the start of the visible track.
func (s *FloatSlider) Home() {
	s.move(s.VisualRange().Min)
}

// End moves to the end of the visible track.
func (s *FloatSlider) End() {
	s.move(s.VisualRange().Max)
}
