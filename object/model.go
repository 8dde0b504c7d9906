package qobject

import (
	"fmt"
	"reflect"
)

// Model is embedded in another type instead of QObject to create a list
// model, a table of rows whose columns are named by roles.
//
// To be a model, a type must embed Model and must implement the
// ModelDataSource interface. No other special initialization is
// necessary.
//
// When data changes, you must call Model's methods to notify views of the
// change. The notifications are delivered synchronously as signals.
type Model struct {
	QObject

	// Signals
	ModelReset   func()
	RowsInserted func(int, int)      `qobject:"start,count"`
	RowsRemoved  func(int, int)      `qobject:"start,count"`
	RowsMoved    func(int, int, int) `qobject:"start,count,destination"`
	DataChanged  func(int, string)   `qobject:"row,role"`
}

// Types embedding Model must implement ModelDataSource to provide data.
//
// Row returns the data of one row, either as a slice ordered like
// RoleNames or as a map keyed by role.
type ModelDataSource interface {
	Row(row int) interface{}
	RowCount() int
	RoleNames() []string
}

// Types embedding Model may implement ModelDataSink to accept edits.
// SetData returns false if the edit was rejected.
type ModelDataSink interface {
	SetRowData(row int, role string, value interface{}) bool
}

func (m *Model) dataSource() ModelDataSource {
	// The QObject interface is embedded in Model, so it can be accessed from here,
	// but Model is embedded in the app's model type as well, and that is the type
	// that is initialized for the QObject.
	//
	// This enables a neat trick: we can access the QObject here, and its object
	// field will point back to the app's type, which is usually not available
	// from embedded types.
	impl, _ := m.QObject.(*objectImpl)
	if impl == nil {
		return nil
	}
	ds, _ := impl.object.(ModelDataSource)
	return ds
}

// Data returns the value of role in row, or nil if the row or role does not
// exist.
func (m *Model) Data(row int, role string) interface{} {
	data := m.dataSource()
	if data == nil || row < 0 || row >= data.RowCount() {
		return nil
	}
	switch r := data.Row(row).(type) {
	case map[string]interface{}:
		return r[role]
	case []interface{}:
		for i, name := range data.RoleNames() {
			if name == role && i < len(r) {
				return r[i]
			}
		}
	}
	return nil
}

// SetData writes value into role of row through the ModelDataSink, emitting
// DataChanged if it was accepted and different.
func (m *Model) SetData(row int, role string, value interface{}) error {
	data := m.dataSource()
	if data == nil {
		return ErrNotQObject
	}
	sink, ok := data.(ModelDataSink)
	if !ok {
		return fmt.Errorf("qobject: model %T is read-only", data)
	}
	if row < 0 || row >= data.RowCount() {
		return fmt.Errorf("qobject: row %d out of range", row)
	}
	if current := m.Data(row, role); current != nil && reflect.DeepEqual(current, value) {
		return nil
	}
	if !sink.SetRowData(row, role, value) {
		return fmt.Errorf("qobject: model rejected %s for row %d", role, row)
	}
	m.Updated(row, role)
	return nil
}

func (m *Model) Reset() {
	if m.dataSource() != nil {
		m.ModelReset()
	}
}

func (m *Model) Inserted(start, count int) {
	if m.dataSource() != nil {
		m.RowsInserted(start, count)
	}
}

func (m *Model) Removed(start, count int) {
	if m.dataSource() != nil {
		m.RowsRemoved(start, count)
	}
}

func (m *Model) Moved(start, count, destination int) {
	if m.dataSource() != nil {
		m.RowsMoved(start, count, destination)
	}
}

// Updated announces a change to one role of a row. An empty role means the
// whole row changed.
func (m *Model) Updated(row int, role string) {
	if m.dataSource() == nil {
		// No-op for uninitialized objects
		return
	}
	m.DataChanged(row, role)
}
