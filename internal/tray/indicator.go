package tray

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"

	"updatenotifier/internal/logging"
)

const (
	itemInterface     = "org.kde.StatusNotifierItem"
	watcherName       = "org.kde.StatusNotifierWatcher"
	watcherPath       = dbus.ObjectPath("/StatusNotifierWatcher")
	itemPathPrefix    = "/org/ayatana/NotificationItem/"
	statusPassive     = "Passive"
	statusActive      = "Active"
	categorySystem    = "SystemServices"
	introspectableIfc = "org.freedesktop.DBus.Introspectable"
)

// toolTip is the (sa(iiay)ss) StatusNotifierItem tooltip.
type toolTip struct {
	IconName    string
	Pixmaps     []pixmap
	Title       string
	Description string
}

type pixmap struct {
	Width  int32
	Height int32
	Data   []byte
}

// Indicator exports one StatusNotifierItem with a dbusmenu on the session
// bus. State set before Ensure is kept and published on export.
type Indicator struct {
	conn     *dbus.Conn
	id       string
	path     dbus.ObjectPath
	menuPath dbus.ObjectPath
	dispatch Dispatch
	logger   *slog.Logger

	mu       sync.Mutex
	exported bool
	props    *prop.Properties
	menu     *dbusMenu
	icon     string
	tooltip  string
	visible  bool
	single   func()
}

// NewIndicator prepares an item for id. Nothing is exported until Ensure.
func NewIndicator(conn *dbus.Conn, id string, dispatch Dispatch, logger *slog.Logger) *Indicator {
	path := dbus.ObjectPath(itemPathPrefix + objectPathElement(id))
	return &Indicator{
		conn:     conn,
		id:       id,
		path:     path,
		menuPath: path + "/Menu",
		dispatch: dispatch,
		logger:   logging.NewComponentLogger(logger, "tray").With(logging.String("item", id)),
		menu:     newDBusMenu(conn, path+"/Menu", dispatch),
	}
}

// Ensure exports the item and registers it with the StatusNotifierWatcher.
func (i *Indicator) Ensure() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.exported {
		return nil
	}
	if i.conn == nil {
		return fmt.Errorf("export %s: %w", i.id, ErrUnavailable)
	}

	item := &sniItem{owner: i}
	if err := i.conn.Export(item, i.path, itemInterface); err != nil {
		return fmt.Errorf("export %s: %w", itemInterface, err)
	}
	props, err := prop.Export(i.conn, i.path, prop.Map{itemInterface: i.itemProps()})
	if err != nil {
		return fmt.Errorf("export item properties: %w", err)
	}
	i.props = props
	itemNode := &introspect.Node{
		Name: string(i.path),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{
				Name:       itemInterface,
				Methods:    introspect.Methods(item),
				Properties: props.Introspection(itemInterface),
				Signals: []introspect.Signal{
					{Name: "NewIcon"},
					{Name: "NewToolTip"},
					{Name: "NewStatus", Args: []introspect.Arg{{Name: "status", Type: "s"}}},
				},
			},
		},
	}
	if err := i.conn.Export(introspect.NewIntrospectable(itemNode), i.path, introspectableIfc); err != nil {
		return fmt.Errorf("export item introspection: %w", err)
	}

	if err := i.conn.Export(i.menu, i.menuPath, menuInterface); err != nil {
		return fmt.Errorf("export %s: %w", menuInterface, err)
	}
	menuProps, err := prop.Export(i.conn, i.menuPath, prop.Map{menuInterface: {
		"Version":       {Value: menuVersion, Writable: false, Emit: prop.EmitTrue},
		"TextDirection": {Value: "ltr", Writable: false, Emit: prop.EmitTrue},
		"Status":        {Value: "normal", Writable: false, Emit: prop.EmitTrue},
		"IconThemePath": {Value: []string{}, Writable: false, Emit: prop.EmitTrue},
	}})
	if err != nil {
		return fmt.Errorf("export menu properties: %w", err)
	}
	menuNode := &introspect.Node{
		Name: string(i.menuPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{
				Name:       menuInterface,
				Methods:    introspect.Methods(i.menu),
				Properties: menuProps.Introspection(menuInterface),
				Signals: []introspect.Signal{{
					Name: "LayoutUpdated",
					Args: []introspect.Arg{{Name: "revision", Type: "u"}, {Name: "parent", Type: "i"}},
				}},
			},
		},
	}
	if err := i.conn.Export(introspect.NewIntrospectable(menuNode), i.menuPath, introspectableIfc); err != nil {
		return fmt.Errorf("export menu introspection: %w", err)
	}

	call := i.conn.Object(watcherName, watcherPath).Call(watcherName+".RegisterStatusNotifierItem", 0, string(i.path))
	if call.Err != nil {
		return fmt.Errorf("register with %s: %w", watcherName, call.Err)
	}
	i.exported = true
	i.logger.Debug("status notifier item registered", logging.String("object_path", string(i.path)))
	return nil
}

func (i *Indicator) itemProps() map[string]*prop.Prop {
	status := statusPassive
	if i.visible {
		status = statusActive
	}
	return map[string]*prop.Prop{
		"Category":   {Value: categorySystem, Writable: false, Emit: prop.EmitTrue},
		"Id":         {Value: "update-notifier-" + i.id, Writable: false, Emit: prop.EmitTrue},
		"Title":      {Value: "update-notifier", Writable: false, Emit: prop.EmitTrue},
		"Status":     {Value: status, Writable: false, Emit: prop.EmitTrue},
		"IconName":   {Value: i.icon, Writable: false, Emit: prop.EmitTrue},
		"ToolTip":    {Value: toolTip{IconName: i.icon, Pixmaps: []pixmap{}, Title: i.tooltip}, Writable: false, Emit: prop.EmitTrue},
		"Menu":       {Value: i.menuPath, Writable: false, Emit: prop.EmitTrue},
		"ItemIsMenu": {Value: false, Writable: false, Emit: prop.EmitTrue},
	}
}

func (i *Indicator) SetIcon(name string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.icon = name
	if !i.exported {
		return
	}
	i.props.SetMust(itemInterface, "IconName", name)
	i.props.SetMust(itemInterface, "ToolTip", toolTip{IconName: name, Pixmaps: []pixmap{}, Title: i.tooltip})
	i.emit("NewIcon")
}

func (i *Indicator) SetVisible(visible bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.visible = visible
	if !i.exported {
		return
	}
	status := statusPassive
	if visible {
		status = statusActive
	}
	i.props.SetMust(itemInterface, "Status", status)
	i.emit("NewStatus", status)
}

func (i *Indicator) Visible() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.visible
}

func (i *Indicator) SetTooltip(text string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.tooltip = text
	if !i.exported {
		return
	}
	i.props.SetMust(itemInterface, "ToolTip", toolTip{IconName: i.icon, Pixmaps: []pixmap{}, Title: text})
	i.emit("NewToolTip")
}

func (i *Indicator) SetMenu(items []MenuItem) {
	i.menu.setItems(items)
}

func (i *Indicator) SetSingleAction(fn func()) {
	i.mu.Lock()
	i.single = fn
	i.mu.Unlock()
}

// Destroy unexports the item. The watcher drops it when the objects vanish
// or the connection closes.
func (i *Indicator) Destroy() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.exported {
		return nil
	}
	i.exported = false
	for _, export := range []struct {
		path  dbus.ObjectPath
		iface string
	}{
		{i.path, itemInterface},
		{i.path, introspectableIfc},
		{i.path, "org.freedesktop.DBus.Properties"},
		{i.menuPath, menuInterface},
		{i.menuPath, introspectableIfc},
		{i.menuPath, "org.freedesktop.DBus.Properties"},
	} {
		if err := i.conn.Export(nil, export.path, export.iface); err != nil {
			return fmt.Errorf("unexport %s on %s: %w", export.iface, export.path, err)
		}
	}
	return nil
}

func (i *Indicator) emit(signal string, values ...any) {
	if err := i.conn.Emit(i.path, itemInterface+"."+signal, values...); err != nil {
		i.logger.Debug("signal emit failed", logging.String("signal", signal), logging.Error(err))
	}
}

func (i *Indicator) activate() {
	i.mu.Lock()
	fn := i.single
	i.mu.Unlock()
	if fn == nil {
		return
	}
	if i.dispatch != nil {
		i.dispatch(fn)
		return
	}
	fn()
}

// sniItem carries the exported StatusNotifierItem methods so the Indicator's
// own exported methods stay off the bus.
type sniItem struct {
	owner *Indicator
}

func (s *sniItem) Activate(x, y int32) *dbus.Error {
	s.owner.activate()
	return nil
}

func (s *sniItem) SecondaryActivate(x, y int32) *dbus.Error {
	s.owner.activate()
	return nil
}

func (s *sniItem) ContextMenu(x, y int32) *dbus.Error {
	return nil
}

func (s *sniItem) Scroll(delta int32, orientation string) *dbus.Error {
	return nil
}

func objectPathElement(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "item"
	}
	return b.String()
}
