package qwidgets

// Label displays text.
type Label struct {
	Widget
	Text string
}

func NewLabel(text string) *Label {
	return &Label{Widget: newWidget(), Text: text}
}

// LineEdit is a single line text input. Text changes as the user types;
// EditingFinished is emitted when input is confirmed.
type LineEdit struct {
	Widget
	Text        string
	Placeholder string
	ReadOnly    bool

	EditingFinished func()
	ReturnPressed   func()
}

func NewLineEdit() *LineEdit {
	return &LineEdit{Widget: newWidget()}
}

// Type replaces the text as if typed by the user. It does nothing if the
// edit is read-only.
func (l *LineEdit) Type(text string) {
	if l.ReadOnly || l.Text == text {
		return
	}
	l.Text = text
	l.changed("text")
}

// Finish confirms the input, as if return was pressed.
func (l *LineEdit) Finish() {
	if l.QObject == nil {
		return
	}
	l.ReturnPressed()
	l.EditingFinished()
}
