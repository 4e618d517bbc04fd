package tray

import (
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"

	"updatenotifier/internal/logging"
)

// Backend names accepted by NewFactory.
const (
	BackendAuto      = "auto"
	BackendIndicator = "indicator"
	BackendHeadless  = "headless"
)

// Factory creates presenters for one resolved backend.
type Factory struct {
	backend  string
	conn     *dbus.Conn
	dispatch Dispatch
	logger   *slog.Logger
}

// NewFactory resolves backend. "auto" picks the indicator when conn is set
// and a StatusNotifierWatcher is on the bus, and falls back to headless
// otherwise. "indicator" fails with ErrUnavailable when it cannot be used.
func NewFactory(backend string, conn *dbus.Conn, dispatch Dispatch, logger *slog.Logger) (*Factory, error) {
	logger = logging.NewComponentLogger(logger, "tray")
	f := &Factory{conn: conn, dispatch: dispatch, logger: logger}

	switch backend {
	case BackendHeadless:
		f.backend = BackendHeadless
	case BackendIndicator:
		if err := watcherPresent(conn); err != nil {
			return nil, err
		}
		f.backend = BackendIndicator
	case BackendAuto, "":
		if err := watcherPresent(conn); err != nil {
			logger.Info("tray host not found; using headless applets", logging.Error(err))
			f.backend = BackendHeadless
		} else {
			f.backend = BackendIndicator
		}
	default:
		return nil, fmt.Errorf("unknown tray backend %q", backend)
	}
	logger.Debug("tray backend selected", logging.String("backend", f.backend))
	return f, nil
}

// Backend returns the resolved backend name.
func (f *Factory) Backend() string {
	return f.backend
}

// New returns a presenter for the applet id.
func (f *Factory) New(id string) Presenter {
	if f.backend == BackendIndicator {
		return NewIndicator(f.conn, id, f.dispatch, f.logger)
	}
	return NewHeadless(id, f.logger)
}

func watcherPresent(conn *dbus.Conn) error {
	if conn == nil {
		return fmt.Errorf("no session bus: %w", ErrUnavailable)
	}
	var has bool
	if err := conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, watcherName).Store(&has); err != nil {
		return fmt.Errorf("query %s owner: %w", watcherName, err)
	}
	if !has {
		return fmt.Errorf("%s not on the session bus: %w", watcherName, ErrUnavailable)
	}
	return nil
}
