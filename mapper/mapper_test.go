package qmapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qobject "github.com/CrimsonAS/qbind/object"
	qwidgets "github.com/CrimsonAS/qbind/widgets"
)

type contact struct {
	Name    string
	Age     int
	Details map[string]interface{}
}

type ContactModel struct {
	qobject.Model
	contacts []contact
}

func (m *ContactModel) Row(row int) interface{} {
	c := m.contacts[row]
	return map[string]interface{}{"name": c.Name, "age": c.Age, "details": c.Details}
}

func (m *ContactModel) RowCount() int {
	return len(m.contacts)
}

func (m *ContactModel) RoleNames() []string {
	return []string{"name", "age", "details"}
}

func (m *ContactModel) SetRowData(row int, role string, value interface{}) bool {
	c := &m.contacts[row]
	switch role {
	case "name":
		s, ok := value.(string)
		if ok {
			c.Name = s
		}
		return ok
	case "age":
		i, ok := value.(int)
		if ok {
			c.Age = i
		}
		return ok
	case "details":
		d, ok := value.(map[string]interface{})
		if ok {
			c.Details = d
		}
		return ok
	}
	return false
}

func (m *ContactModel) RowLess(i, j int) bool {
	return m.contacts[i].Name < m.contacts[j].Name
}

func (m *ContactModel) RowMove(src, dst int) {
	c := m.contacts[src]
	m.contacts = append(m.contacts[:src], m.contacts[src+1:]...)
	m.contacts = append(m.contacts[:dst], append([]contact{c}, m.contacts[dst:]...)...)
}

func (m *ContactModel) insert(row int, c contact) {
	m.contacts = append(m.contacts[:row], append([]contact{c}, m.contacts[row:]...)...)
	m.Inserted(row, 1)
}

func (m *ContactModel) remove(row int) {
	m.contacts = append(m.contacts[:row], m.contacts[row+1:]...)
	m.Removed(row, 1)
}

var _ qobject.SortableModel = &ContactModel{}

func newContacts(t *testing.T, contacts ...contact) *ContactModel {
	t.Helper()
	model := &ContactModel{contacts: contacts}
	require.NoError(t, qobject.Init(model))
	return model
}

// Tally announces changes of Count with its own signal.
type Tally struct {
	qobject.QObject
	Count   int `qobject:"nonotify"`
	Counted func()
}

func newMapper(t *testing.T, opts ...Option) *DataMapper {
	t.Helper()
	m, err := New(opts...)
	require.NoError(t, err)
	return m
}

func TestMapper(t *testing.T) {
	model := newContacts(t, contact{Name: "Ann", Age: 31}, contact{Name: "Bob", Age: 45})
	m := newMapper(t)
	name, age := qwidgets.NewLineEdit(), qwidgets.NewSpinBox()

	require.NoError(t, m.SetModel(model))
	assert.Equal(t, -1, m.CurrentRow())
	require.NoError(t, m.AddMapping(name, "text", "name"))
	require.NoError(t, m.AddMapping(age, "value", "age"))
	assert.Equal(t, 2, m.Mappings())
	assert.Empty(t, name.Text, "nothing is written without a row")

	var rows []int
	_, err := m.Connect("currentRowChanged", func(args ...interface{}) {
		rows = append(rows, args[0].(int))
	})
	require.NoError(t, err)

	require.NoError(t, m.SetCurrentRow(1))
	assert.Equal(t, "Bob", name.Text)
	assert.Equal(t, 45, age.Value())

	name.Type("Bobby")
	assert.Equal(t, "Bobby", model.Data(1, "name"))
	age.SetValue(46)
	assert.Equal(t, 46, model.Data(1, "age"))

	require.NoError(t, model.SetData(1, "age", 50))
	assert.Equal(t, 50, age.Value(), "model edits should reach the mapped property")

	require.NoError(t, m.ToFirst())
	assert.Equal(t, "Ann", name.Text)
	assert.Equal(t, 31, age.Value())
	require.NoError(t, m.ToNext())
	assert.Equal(t, "Bobby", name.Text)
	assert.Equal(t, []int{1, 0, 1}, rows)

	assert.ErrorIs(t, m.ToNext(), ErrRow)
	assert.ErrorIs(t, m.SetCurrentRow(5), ErrRow)
	require.NoError(t, m.ToPrevious())
	assert.ErrorIs(t, m.ToPrevious(), ErrRow)
}

func TestMapperWithoutModel(t *testing.T) {
	m := newMapper(t)
	assert.ErrorIs(t, m.SetCurrentRow(0), ErrNoModel)
	assert.ErrorIs(t, m.Commit(), ErrNoModel)
	assert.NoError(t, m.Refresh())
	assert.Equal(t, 0, m.RowCount())

	// Mappings may be added before the model
	name := qwidgets.NewLineEdit()
	require.NoError(t, m.AddMapping(name, "text", "name"))
	require.NoError(t, m.SetModel(newContacts(t, contact{Name: "Ann"})))
	require.NoError(t, m.ToLast())
	assert.Equal(t, "Ann", name.Text)

	assert.Error(t, m.AddMapping(name, "missing", "name"))
}

func TestMapperManualCommit(t *testing.T) {
	model := newContacts(t, contact{Name: "Ann", Age: 31}, contact{Name: "Bob", Age: 45})
	m := newMapper(t, WithManualCommit())
	name := qwidgets.NewLineEdit()
	require.NoError(t, m.SetModel(model))
	require.NoError(t, m.AddMapping(name, "text", "name"))
	require.NoError(t, m.SetCurrentRow(0))

	var committed []int
	_, err := m.Connect("committed", func(args ...interface{}) {
		committed = append(committed, args[0].(int))
	})
	require.NoError(t, err)

	name.Type("Anna")
	name.Type("Annie")
	assert.Equal(t, "Ann", model.Data(0, "name"))
	assert.Equal(t, 1, m.Pending())

	require.NoError(t, m.Commit())
	assert.Equal(t, "Annie", model.Data(0, "name"))
	assert.Equal(t, 0, m.Pending())
	assert.Equal(t, []int{0}, committed)

	// Changing the row commits first
	name.Type("Ann")
	require.NoError(t, m.SetCurrentRow(1))
	assert.Equal(t, "Ann", model.Data(0, "name"))
	assert.Equal(t, "Bob", name.Text)
	assert.Equal(t, []int{0, 0}, committed)

	name.Type("Robert")
	require.NoError(t, m.Revert())
	assert.Equal(t, "Bob", name.Text)
	assert.Equal(t, "Bob", model.Data(1, "name"))
	assert.Equal(t, 0, m.Pending())

	require.NoError(t, m.SetProperty("autoCommit", true))
	name.Type("Rob")
	assert.Equal(t, "Rob", model.Data(1, "name"))
	assert.Equal(t, 0, m.Pending())
}

func TestMapperConverters(t *testing.T) {
	model := newContacts(t, contact{Name: "Ann", Details: map[string]interface{}{"quantity": 42, "format": "usd"}})
	m := newMapper(t)
	quantity := qwidgets.NewSpinBox()
	require.NoError(t, m.SetModel(model))
	require.NoError(t, m.AddMapping(quantity, "value", "details",
		FromModel(func(data interface{}) interface{} {
			return data.(map[string]interface{})["quantity"]
		}),
		FromProperty(func(value, data interface{}) interface{} {
			next := map[string]interface{}{}
			for k, v := range data.(map[string]interface{}) {
				next[k] = v
			}
			next["quantity"] = value
			return next
		}),
	))
	require.NoError(t, m.SetCurrentRow(0))
	assert.Equal(t, 42, quantity.Value())

	quantity.SetValue(99)
	details := model.Data(0, "details").(map[string]interface{})
	assert.Equal(t, 99, details["quantity"])
	assert.Equal(t, "usd", details["format"])

	// Changes made behind the model's back need a refresh
	model.contacts[0].Details = map[string]interface{}{"quantity": 12, "format": "usd"}
	require.NoError(t, m.Refresh())
	assert.Equal(t, 12, quantity.Value())
}

func TestMapperNotifyOn(t *testing.T) {
	model := newContacts(t, contact{Name: "Ann", Age: 31})
	m := newMapper(t)
	tally := &Tally{}
	require.NoError(t, m.SetModel(model))
	require.NoError(t, m.AddMapping(tally, "count", "age", NotifyOn("counted")))
	require.NoError(t, m.ToFirst())
	assert.Equal(t, 31, tally.Count)

	tally.Count++
	tally.Counted()
	assert.Equal(t, 32, model.Data(0, "age"))
}

func TestMapperFollowsRows(t *testing.T) {
	model := newContacts(t, contact{Name: "Ann"}, contact{Name: "Bob"}, contact{Name: "Cid"})
	m := newMapper(t)
	name := qwidgets.NewLineEdit()
	require.NoError(t, m.SetModel(model))
	require.NoError(t, m.AddMapping(name, "text", "name"))
	require.NoError(t, m.SetCurrentRow(1))

	model.insert(0, contact{Name: "Aaron"})
	assert.Equal(t, 2, m.CurrentRow())
	model.insert(3, contact{Name: "Bea"})
	assert.Equal(t, 2, m.CurrentRow())
	model.remove(0)
	assert.Equal(t, 1, m.CurrentRow())
	assert.Equal(t, "Bob", name.Text)

	// Keep the model sorted; the edited row moves and the mapper follows it
	_, err := model.Connect("dataChanged", func(args ...interface{}) {
		qobject.SortModelUpdated(model, args[0].(int))
	})
	require.NoError(t, err)
	name.Type("Zed")
	assert.Equal(t, 3, m.CurrentRow())
	assert.Equal(t, "Zed", model.Data(3, "name"))

	model.remove(3)
	assert.Equal(t, -1, m.CurrentRow())
	name.Type("ignored")
	assert.Equal(t, []string{"Ann", "Bea", "Cid"}, []string{
		model.Data(0, "name").(string), model.Data(1, "name").(string), model.Data(2, "name").(string),
	})

	require.NoError(t, m.ToFirst())
	model.contacts = []contact{{Name: "Dan"}}
	model.Reset()
	assert.Equal(t, 0, m.CurrentRow())
	assert.Equal(t, "Dan", name.Text)
}

func TestMapperRemoveMapping(t *testing.T) {
	model := newContacts(t, contact{Name: "Ann", Age: 31})
	m := newMapper(t)
	name, age := qwidgets.NewLineEdit(), qwidgets.NewSpinBox()
	require.NoError(t, m.SetModel(model))
	require.NoError(t, m.AddMapping(name, "text", "name"))
	require.NoError(t, m.AddMapping(age, "value", "age"))
	require.NoError(t, m.ToFirst())

	assert.True(t, m.RemoveMapping(name, "text"))
	assert.False(t, m.RemoveMapping(name, "text"))
	name.Type("Anna")
	assert.Equal(t, "Ann", model.Data(0, "name"))

	m.Clear()
	assert.Equal(t, 0, m.Mappings())
	age.SetValue(40)
	assert.Equal(t, 31, model.Data(0, "age"))
}

func TestMapperRejectedEdit(t *testing.T) {
	var errs []error
	model := newContacts(t, contact{Name: "Ann", Age: 31})
	m := newMapper(t, WithErrorHandler(func(err error) { errs = append(errs, err) }))
	age := qwidgets.NewLineEdit()
	require.NoError(t, m.SetModel(model))
	require.NoError(t, m.AddMapping(age, "text", "age"))
	require.NoError(t, m.ToFirst())
	assert.Equal(t, "31", age.Text)

	age.Type("old")
	assert.Equal(t, 31, model.Data(0, "age"))
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrMapping)
}

func TestMapperDestroyed(t *testing.T) {
	model := newContacts(t, contact{Name: "Ann", Age: 31}, contact{Name: "Bob", Age: 45})
	m := newMapper(t)
	name, age := qwidgets.NewLineEdit(), qwidgets.NewSpinBox()
	require.NoError(t, m.SetModel(model))
	require.NoError(t, m.AddMapping(name, "text", "name"))
	require.NoError(t, m.AddMapping(age, "value", "age"))
	require.NoError(t, m.ToFirst())

	name.Destroy()
	require.NoError(t, m.SetCurrentRow(1), "destroyed targets are skipped")
	assert.Equal(t, 45, age.Value())

	other := newMapper(t)
	require.NoError(t, other.SetModel(model))
	require.NoError(t, other.AddMapping(age, "value", "age"))
	other.Destroy()
	assert.Nil(t, other.Model())
	age.SetValue(60)
	assert.Equal(t, 60, model.Data(1, "age"), "only the live mapper stores the edit")

	model.Destroy()
	assert.Nil(t, m.Model())
	assert.Equal(t, -1, m.CurrentRow())
	assert.ErrorIs(t, m.SetCurrentRow(0), ErrNoModel)
}

func TestMapperSparseDataChanged(t *testing.T) {
	model := newContacts(t, contact{Name: "Ann", Age: 31}, contact{Name: "Bob", Age: 45})
	m := newMapper(t)
	name, age := qwidgets.NewLineEdit(), qwidgets.NewSpinBox()
	require.NoError(t, m.SetModel(model))
	require.NoError(t, m.AddMapping(name, "text", "name"))
	require.NoError(t, m.AddMapping(age, "value", "age"))
	require.NoError(t, m.SetCurrentRow(1))

	// Without arguments, the whole current row is refreshed
	model.contacts[1] = contact{Name: "Rob", Age: 46}
	model.Emit("dataChanged")
	assert.Equal(t, "Rob", name.Text)
	assert.Equal(t, 46, age.Value())

	// Without a role, every role of the row is refreshed
	model.contacts[1].Age = 47
	model.Emit("dataChanged", 1)
	assert.Equal(t, 47, age.Value())

	model.contacts[0].Name = "Anna"
	model.Emit("dataChanged", 0)
	assert.Equal(t, "Rob", name.Text)
}
