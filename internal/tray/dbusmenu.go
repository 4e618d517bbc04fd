package tray

import (
	"errors"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	menuInterface = "com.canonical.dbusmenu"
	menuVersion   = uint32(3)
)

var (
	errUnknownItem     = errors.New("unknown menu item")
	errUnknownProperty = errors.New("unknown menu property")
)

// menuLayout is the (ia{sv}av) node returned by GetLayout.
type menuLayout struct {
	ID         int32
	Properties map[string]dbus.Variant
	Children   []dbus.Variant
}

// menuProperties is one (ia{sv}) entry of GetGroupProperties.
type menuProperties struct {
	ID         int32
	Properties map[string]dbus.Variant
}

// menuEvent is one (isvu) entry of EventGroup.
type menuEvent struct {
	ID        int32
	EventID   string
	Data      dbus.Variant
	Timestamp uint32
}

// dbusMenu exports a flat menu. Entry ids are the item index plus one; id 0
// is the root.
type dbusMenu struct {
	conn     *dbus.Conn
	path     dbus.ObjectPath
	dispatch Dispatch

	mu       sync.Mutex
	items    []MenuItem
	revision uint32
}

func newDBusMenu(conn *dbus.Conn, path dbus.ObjectPath, dispatch Dispatch) *dbusMenu {
	return &dbusMenu{conn: conn, path: path, dispatch: dispatch, revision: 1}
}

func (m *dbusMenu) setItems(items []MenuItem) {
	m.mu.Lock()
	m.items = cloneMenu(items)
	m.revision++
	revision := m.revision
	m.mu.Unlock()
	if m.conn != nil {
		_ = m.conn.Emit(m.path, menuInterface+".LayoutUpdated", revision, int32(0))
	}
}

func (m *dbusMenu) GetLayout(parentID int32, recursionDepth int32, propertyNames []string) (uint32, menuLayout, *dbus.Error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if parentID == 0 {
		return m.revision, buildLayout(m.items), nil
	}
	idx := int(parentID) - 1
	if idx < 0 || idx >= len(m.items) {
		return 0, menuLayout{}, dbus.MakeFailedError(errUnknownItem)
	}
	return m.revision, menuLayout{ID: parentID, Properties: itemProperties(m.items[idx]), Children: []dbus.Variant{}}, nil
}

func (m *dbusMenu) GetGroupProperties(ids []int32, propertyNames []string) ([]menuProperties, *dbus.Error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]menuProperties, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			out = append(out, menuProperties{ID: 0, Properties: rootProperties()})
			continue
		}
		idx := int(id) - 1
		if idx < 0 || idx >= len(m.items) {
			continue
		}
		out = append(out, menuProperties{ID: id, Properties: itemProperties(m.items[idx])})
	}
	return out, nil
}

func (m *dbusMenu) GetProperty(id int32, name string) (dbus.Variant, *dbus.Error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	props := rootProperties()
	if id != 0 {
		idx := int(id) - 1
		if idx < 0 || idx >= len(m.items) {
			return dbus.Variant{}, dbus.MakeFailedError(errUnknownItem)
		}
		props = itemProperties(m.items[idx])
	}
	value, ok := props[name]
	if !ok {
		return dbus.Variant{}, dbus.MakeFailedError(errUnknownProperty)
	}
	return value, nil
}

func (m *dbusMenu) Event(id int32, eventID string, data dbus.Variant, timestamp uint32) *dbus.Error {
	if eventID != "clicked" {
		return nil
	}
	m.activate(id)
	return nil
}

func (m *dbusMenu) EventGroup(events []menuEvent) ([]int32, *dbus.Error) {
	missing := []int32{}
	for _, ev := range events {
		if ev.EventID != "clicked" {
			continue
		}
		if !m.activate(ev.ID) {
			missing = append(missing, ev.ID)
		}
	}
	return missing, nil
}

func (m *dbusMenu) AboutToShow(id int32) (bool, *dbus.Error) {
	return false, nil
}

func (m *dbusMenu) AboutToShowGroup(ids []int32) ([]int32, []int32, *dbus.Error) {
	return []int32{}, []int32{}, nil
}

func (m *dbusMenu) activate(id int32) bool {
	m.mu.Lock()
	idx := int(id) - 1
	if idx < 0 || idx >= len(m.items) {
		m.mu.Unlock()
		return false
	}
	item := m.items[idx]
	m.mu.Unlock()
	if item.Separator || item.Disabled || item.Activate == nil {
		return true
	}
	if m.dispatch != nil {
		m.dispatch(item.Activate)
	} else {
		item.Activate()
	}
	return true
}

func buildLayout(items []MenuItem) menuLayout {
	children := make([]dbus.Variant, 0, len(items))
	for i, item := range items {
		children = append(children, dbus.MakeVariant(menuLayout{
			ID:         int32(i + 1),
			Properties: itemProperties(item),
			Children:   []dbus.Variant{},
		}))
	}
	return menuLayout{ID: 0, Properties: rootProperties(), Children: children}
}

func rootProperties() map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"children-display": dbus.MakeVariant("submenu"),
	}
}

func itemProperties(item MenuItem) map[string]dbus.Variant {
	if item.Separator {
		return map[string]dbus.Variant{
			"type":    dbus.MakeVariant("separator"),
			"visible": dbus.MakeVariant(true),
		}
	}
	props := map[string]dbus.Variant{
		"label":   dbus.MakeVariant(item.Label),
		"enabled": dbus.MakeVariant(!item.Disabled),
		"visible": dbus.MakeVariant(true),
	}
	if item.Toggle {
		state := int32(0)
		if item.Checked {
			state = 1
		}
		props["toggle-type"] = dbus.MakeVariant("checkmark")
		props["toggle-state"] = dbus.MakeVariant(state)
	}
	return props
}
