// Package qmapper maps one row of a list model onto properties of other
// objects, usually the widgets of an editor form.
//
// Each mapping joins a model role with a property. Selecting a row writes
// the row's data into every mapped property; changing a mapped property
// writes it back into the model, either immediately or when Commit is
// called. The current row follows the model when rows are inserted,
// removed or moved before it.
package qmapper

import (
	"errors"
	"log/slog"
	"reflect"

	qbinding "github.com/CrimsonAS/qbind/binding"
	qobject "github.com/CrimsonAS/qbind/object"
)

// Model is a list model that a DataMapper can edit. Types embedding
// qobject.Model and implementing qobject.ModelDataSource satisfy it.
type Model interface {
	qobject.QObject
	RowCount() int
	Data(row int, role string) interface{}
	SetData(row int, role string, value interface{}) error
}

// DataMapper is a QObject. Its currentRow property announces row changes
// with CurrentRowChanged, and autoCommit controls whether edits are written
// to the model as they happen.
type DataMapper struct {
	qobject.QObject

	AutoCommit bool

	CurrentRowChanged func(int) `qobject:"row"`
	// Committed is emitted after pending edits were written by Commit.
	Committed func(int) `qobject:"row"`

	logger  *slog.Logger
	onError func(error)
	reg     *qbinding.Bindings

	model      Model
	modelConns []qobject.Connection
	row        int

	mappings []*mapping
	pending  []*mapping
	updating bool
}

type mapping struct {
	endpoint     *qbinding.Endpoint
	role         string
	fromModel    func(data interface{}) interface{}
	fromProperty func(value, data interface{}) interface{}
	watcher      *qbinding.Watcher
}

// New creates a DataMapper without a model. Bindings created to watch
// mapped properties live as long as the mapper.
func New(opts ...Option) (*DataMapper, error) {
	m := &DataMapper{AutoCommit: true, row: -1, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	if err := qobject.Init(m); err != nil {
		return nil, err
	}
	reg, err := qbinding.New(m, qbinding.WithLogger(m.logger), qbinding.WithErrorHandler(func(err error) {
		if m.onError != nil && !errors.Is(err, qbinding.ErrCycleGuardTripped) {
			m.onError(err)
		}
	}))
	if err != nil {
		return nil, err
	}
	m.reg = reg
	if _, err := m.Connect(qobject.DestroyedSignal, func(args ...interface{}) {
		m.disconnectModel()
		m.model = nil
		m.mappings = nil
		m.pending = nil
	}); err != nil {
		return nil, err
	}
	return m, nil
}

// Model returns the mapped model, or nil.
func (m *DataMapper) Model() Model {
	return m.model
}

// SetModel replaces the mapped model. Pending edits for the previous model
// are discarded and no row is selected afterwards.
func (m *DataMapper) SetModel(model Model) error {
	if model == m.model {
		return nil
	}
	m.disconnectModel()
	m.model = nil
	m.pending = nil
	m.setRow(-1)
	if model == nil {
		m.Changed("model")
		return nil
	}
	if err := qobject.Init(model); err != nil {
		return err
	}

	handlers := map[string]func(args ...interface{}){
		"modelReset":   func(args ...interface{}) { m.modelReset() },
		"rowsInserted": func(args ...interface{}) { m.rowsInserted(intArg(args, 0), intArg(args, 1)) },
		"rowsRemoved":  func(args ...interface{}) { m.rowsRemoved(intArg(args, 0), intArg(args, 1)) },
		"rowsMoved": func(args ...interface{}) {
			m.rowsMoved(intArg(args, 0), intArg(args, 1), intArg(args, 2))
		},
		"dataChanged": func(args ...interface{}) {
			row := m.row
			if len(args) > 0 {
				row = intArg(args, 0)
			}
			m.dataChanged(row, stringArg(args, 1))
		},
		qobject.DestroyedSignal: func(args ...interface{}) {
			m.modelConns = nil
			m.model = nil
			m.pending = nil
			m.setRow(-1)
			m.Changed("model")
		},
	}
	for _, signal := range []string{"modelReset", "rowsInserted", "rowsRemoved", "rowsMoved", "dataChanged", qobject.DestroyedSignal} {
		conn, err := model.Connect(signal, handlers[signal])
		if err != nil {
			for _, c := range m.modelConns {
				model.Disconnect(c)
			}
			m.modelConns = nil
			return err
		}
		m.modelConns = append(m.modelConns, conn)
	}
	m.model = model
	m.Changed("model")
	m.logger.Debug("qmapper: model set", "model", model.Identifier(), "rows", model.RowCount())
	return nil
}

func (m *DataMapper) disconnectModel() {
	if m.model != nil {
		for _, c := range m.modelConns {
			m.model.Disconnect(c)
		}
	}
	m.modelConns = nil
}

func intArg(args []interface{}, i int) int {
	if i >= len(args) {
		return 0
	}
	v, _ := args[i].(int)
	return v
}

func stringArg(args []interface{}, i int) string {
	if i >= len(args) {
		return ""
	}
	v, _ := args[i].(string)
	return v
}

// CurrentRow returns the selected row, or -1 if no row is selected.
func (m *DataMapper) CurrentRow() int {
	return m.row
}

// SetCurrentRow commits pending edits, selects row and writes its data into
// every mapped property. -1 clears the selection without touching the
// mapped properties.
func (m *DataMapper) SetCurrentRow(row int) error {
	if m.model == nil {
		return ErrNoModel
	}
	if row < -1 || row >= m.model.RowCount() {
		return errorRow(row, m.model.RowCount())
	}
	var errs []error
	if len(m.pending) > 0 {
		errs = append(errs, m.Commit())
	}
	m.setRow(row)
	errs = append(errs, m.Refresh())
	return errors.Join(errs...)
}

func (m *DataMapper) setRow(row int) {
	if row == m.row {
		return
	}
	m.row = row
	m.Changed("currentRow")
}

// ToFirst selects the first row of the model.
func (m *DataMapper) ToFirst() error {
	return m.SetCurrentRow(0)
}

// ToLast selects the last row of the model.
func (m *DataMapper) ToLast() error {
	if m.model == nil {
		return ErrNoModel
	}
	return m.SetCurrentRow(m.model.RowCount() - 1)
}

// ToNext selects the row after the current one.
func (m *DataMapper) ToNext() error {
	return m.SetCurrentRow(m.row + 1)
}

// ToPrevious selects the row before the current one.
func (m *DataMapper) ToPrevious() error {
	if m.row <= 0 {
		return errorRow(m.row-1, m.RowCount())
	}
	return m.SetCurrentRow(m.row - 1)
}

// RowCount returns the number of rows of the model, or 0 without a model.
func (m *DataMapper) RowCount() int {
	if m.model == nil {
		return 0
	}
	return m.model.RowCount()
}

func (m *DataMapper) valid() bool {
	return m.model != nil && m.row >= 0 && m.row < m.model.RowCount()
}

// AddMapping maps role of the model onto property of target. The property
// is written from the current row right away, if one is selected.
//
// Changes of the property are detected like a binding source would be: by
// its notify signal, the signal named with NotifyOn, or by events.
func (m *DataMapper) AddMapping(target qobject.QObject, property, role string, opts ...MappingOption) error {
	o := mappingOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	ep, err := qbinding.Resolve(target, property, o.accessor)
	if err != nil {
		return err
	}
	mp := &mapping{endpoint: ep, role: role, fromModel: o.fromModel, fromProperty: o.fromProperty}

	var watchOpts []qbinding.EndpointOption
	if o.accessor != nil {
		watchOpts = append(watchOpts, qbinding.Via(o.accessor))
	}
	if o.signal != "" {
		watchOpts = append(watchOpts, qbinding.NotifyOn(o.signal))
	}
	w, err := m.reg.Watch(target, property, func(value interface{}) { m.propertyChanged(mp, value) }, watchOpts...)
	if err != nil {
		return err
	}
	mp.watcher = w
	m.mappings = append(m.mappings, mp)

	if m.valid() {
		return m.apply(mp)
	}
	return nil
}

// RemoveMapping removes every mapping of property of target. It returns
// false if there was none.
func (m *DataMapper) RemoveMapping(target qobject.QObject, property string) bool {
	removed := false
	kept := m.mappings[:0]
	for _, mp := range m.mappings {
		if mp.endpoint.Object() == target && mp.endpoint.Property() == property {
			m.drop(mp)
			removed = true
			continue
		}
		kept = append(kept, mp)
	}
	m.mappings = kept
	return removed
}

// Clear removes all mappings and discards pending edits.
func (m *DataMapper) Clear() {
	for _, mp := range m.mappings {
		m.drop(mp)
	}
	m.mappings = nil
	m.pending = nil
}

func (m *DataMapper) drop(mp *mapping) {
	m.reg.Remove(mp.watcher)
	for i, p := range m.pending {
		if p == mp {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			break
		}
	}
}

// Mappings returns the number of mappings.
func (m *DataMapper) Mappings() int {
	return len(m.mappings)
}

// Refresh writes the data of the current row into every mapped property.
// Mappings that fail are skipped and their errors returned together.
func (m *DataMapper) Refresh() error {
	if !m.valid() {
		return nil
	}
	var errs []error
	for _, mp := range m.mappings {
		if err := m.apply(mp); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *DataMapper) apply(mp *mapping) error {
	if !mp.endpoint.Valid() {
		return nil
	}
	value := m.model.Data(m.row, mp.role)
	if mp.fromModel != nil {
		value = mp.fromModel(value)
	}
	m.updating = true
	defer func() { m.updating = false }()
	if err := mp.endpoint.Write(value); err != nil {
		return mappingError(mp, m.row, err)
	}
	return nil
}

// extract returns the model data for the mapped property and whether it
// differs from what the model holds.
func (m *DataMapper) extract(mp *mapping, value interface{}) (interface{}, bool) {
	current := m.model.Data(m.row, mp.role)
	data := value
	if mp.fromProperty != nil {
		data = mp.fromProperty(value, current)
	}
	return data, !reflect.DeepEqual(data, current)
}

func (m *DataMapper) propertyChanged(mp *mapping, value interface{}) {
	if m.updating || !m.valid() {
		return
	}
	data, differs := m.extract(mp, value)
	if !differs {
		return
	}
	if !m.AutoCommit {
		for _, p := range m.pending {
			if p == mp {
				return
			}
		}
		m.pending = append(m.pending, mp)
		return
	}
	if err := m.store(mp, data); err != nil {
		m.report(err)
	}
}

func (m *DataMapper) store(mp *mapping, data interface{}) error {
	row := m.row
	m.updating = true
	err := m.model.SetData(row, mp.role, data)
	m.updating = false
	if err != nil {
		return mappingError(mp, row, err)
	}
	m.logger.Debug("qmapper: stored", "row", row, "role", mp.role)
	return nil
}

// Pending returns the number of mappings with uncommitted edits.
func (m *DataMapper) Pending() int {
	return len(m.pending)
}

// Commit writes the current values of mappings with pending edits to the
// model. Values that no longer differ from the model are skipped.
func (m *DataMapper) Commit() error {
	if m.model == nil {
		return ErrNoModel
	}
	pending := m.pending
	m.pending = nil
	if !m.valid() {
		return nil
	}
	row := m.row
	var errs []error
	for _, mp := range pending {
		if !mp.endpoint.Valid() {
			continue
		}
		value, err := mp.endpoint.Read()
		if err != nil {
			errs = append(errs, mappingError(mp, row, err))
			continue
		}
		data, differs := m.extract(mp, value)
		if !differs {
			continue
		}
		if err := m.store(mp, data); err != nil {
			errs = append(errs, err)
		}
	}
	if len(pending) > 0 {
		m.Committed(row)
	}
	return errors.Join(errs...)
}

// Revert discards pending edits and rewrites the mapped properties from the
// model.
func (m *DataMapper) Revert() error {
	m.pending = nil
	return m.Refresh()
}

func (m *DataMapper) report(err error) {
	m.logger.Warn("qmapper: edit not stored", "error", err)
	if m.onError != nil {
		m.onError(err)
	}
}

func (m *DataMapper) modelReset() {
	m.pending = nil
	if m.row >= m.model.RowCount() {
		m.setRow(-1)
	}
	if err := m.Refresh(); err != nil {
		m.report(err)
	}
}

func (m *DataMapper) rowsInserted(start, count int) {
	if m.row >= 0 && m.row >= start {
		m.setRow(m.row + count)
	}
}

func (m *DataMapper) rowsRemoved(start, count int) {
	switch {
	case m.row < start:
	case m.row < start+count:
		m.pending = nil
		m.setRow(-1)
	default:
		m.setRow(m.row - count)
	}
}

// rowsMoved follows the current row through a move of count rows from
// start to destination, the index of the first moved row afterwards.
func (m *DataMapper) rowsMoved(start, count, destination int) {
	row := m.row
	if row < 0 {
		return
	}
	if row >= start && row < start+count {
		m.setRow(destination + row - start)
		return
	}
	if row >= start+count {
		row -= count
	}
	if row >= destination {
		row += count
	}
	m.setRow(row)
}

func (m *DataMapper) dataChanged(row int, role string) {
	if m.updating || row != m.row || !m.valid() {
		return
	}
	var errs []error
	for _, mp := range m.mappings {
		if role != "" && mp.role != role {
			continue
		}
		if err := m.apply(mp); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		m.report(err)
	}
}
