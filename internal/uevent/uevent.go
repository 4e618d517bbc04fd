// Package uevent watches kernel device events for newly attached printers and
// starts the printer configuration applet for the first one seen.
package uevent

import (
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pilebones/go-udev/crawler"
	"github.com/pilebones/go-udev/netlink"

	"updatenotifier/internal/launcher"
	"updatenotifier/internal/logging"
)

const (
	printerInterfaceClass    = "07"
	printerInterfaceSubClass = "01"
	printerConfigProcess     = "system-config-printer"
)

// Options configure a Monitor.
type Options struct {
	Launcher  *launcher.Launcher
	SysfsRoot string
	ProcRoot  string
	Logger    *slog.Logger
}

// Monitor listens for usb and firmware uevents.
type Monitor struct {
	launcher  *launcher.Launcher
	sysfsRoot string
	procRoot  string
	logger    *slog.Logger

	// checked is set once a printer was handled; later devices are ignored
	// for the rest of the run.
	checked atomic.Bool

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// New builds a Monitor. Empty roots default to /sys and /proc.
func New(opts Options) *Monitor {
	sysfs := opts.SysfsRoot
	if sysfs == "" {
		sysfs = "/sys"
	}
	procRoot := opts.ProcRoot
	if procRoot == "" {
		procRoot = "/proc"
	}
	return &Monitor{
		launcher:  opts.Launcher,
		sysfsRoot: sysfs,
		procRoot:  procRoot,
		logger:    logging.NewComponentLogger(opts.Logger, "uevent"),
	}
}

// Start connects to the kernel uevent socket, then walks the usb devices that
// are already present. Failure to connect is logged and not fatal.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket; printer detection disabled",
			logging.Error(err),
			logging.String(logging.FieldEventType, "netlink_connect_failed"),
			logging.String(logging.FieldErrorHint, "ensure the session may open netlink sockets"),
			logging.String(logging.FieldImpact, "the printer applet is not started on hot-plug"),
		)
	} else {
		m.conn = conn
		m.quit = make(chan struct{})
		go m.monitorLoop(ctx, conn, m.quit)
		m.logger.Debug("uevent monitor started", logging.String(logging.FieldEventType, "uevent_monitor_started"))
	}
	m.running = true

	go m.coldPlug(ctx)
	return nil
}

// Stop closes the uevent socket.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false
	m.logger.Debug("uevent monitor stopped")
}

// PrinterHandled reports whether a printer was already dealt with.
func (m *Monitor) PrinterHandled() bool {
	return m.checked.Load()
}

func (m *Monitor) monitorLoop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, hotplugMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case ev := <-queue:
			m.HandleEvent(string(ev.Action), ev.KObj, ev.Env)
		case err := <-errs:
			m.logger.Debug("uevent monitor error", logging.Error(err))
		}
	}
}

func (m *Monitor) coldPlug(ctx context.Context) {
	queue := make(chan crawler.Device)
	errs := make(chan error)
	quit := crawler.ExistingDevices(queue, errs, coldplugMatcher())
	for {
		select {
		case <-ctx.Done():
			close(quit)
			return
		case dev, more := <-queue:
			if !more {
				return
			}
			m.HandleEvent("add", dev.KObj, dev.Env)
		case err := <-errs:
			m.logger.Debug("device crawl error", logging.Error(err))
		}
	}
}

// hotplugMatcher accepts add and change events for usb and firmware devices.
func hotplugMatcher() netlink.Matcher {
	action := "add|change"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env:    map[string]string{"SUBSYSTEM": "^(usb|firmware)$"},
	})
	return rules
}

func coldplugMatcher() netlink.Matcher {
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Env: map[string]string{"SUBSYSTEM": "^usb$"},
	})
	return rules
}

// HandleEvent looks at one device event. The first printer starts the
// printer applet unless the printer configuration tool is already running.
// It reports whether the event was consumed by printer handling.
func (m *Monitor) HandleEvent(action, devpath string, env map[string]string) bool {
	if action != "add" && action != "change" {
		return false
	}
	if m.checked.Load() {
		return false
	}
	if !m.IsPrinter(devpath, env) {
		m.logger.Debug("not a printer", logging.String("devpath", devpath))
		return false
	}
	if !m.checked.CompareAndSwap(false, true) {
		return false
	}
	m.logger.Debug("printer identified", logging.String("devpath", devpath))

	if launcher.ProcessRunning(m.procRoot, printerConfigProcess) {
		m.logger.Debug("printer configuration already running")
		return true
	}
	applet := m.launcher.Helpers().PrinterApplet
	if err := m.launcher.Start(applet); err != nil {
		logging.WarnWithContext(m.logger, "printer applet failed to start", "helper_spawn_failed",
			logging.String(logging.FieldHelper, applet),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "install system-config-printer"),
			logging.String(logging.FieldImpact, "the new printer is not offered for setup"),
		)
		return true
	}
	m.logger.Info("printer applet started",
		logging.String(logging.FieldEventType, "printer_detected"),
		logging.String("devpath", devpath),
	)
	return true
}

// IsPrinter reports whether the device is a usb printer interface or an lp
// device node.
func (m *Monitor) IsPrinter(devpath string, env map[string]string) bool {
	if devpath != "" {
		dir := filepath.Join(m.sysfsRoot, devpath)
		if m.sysfsAttr(dir, "bInterfaceClass") == printerInterfaceClass &&
			m.sysfsAttr(dir, "bInterfaceSubClass") == printerInterfaceSubClass {
			return true
		}
		if strings.HasPrefix(path.Base(devpath), "lp") {
			return true
		}
	}
	if name := env["DEVNAME"]; name != "" && strings.HasPrefix(path.Base(name), "lp") {
		return true
	}
	return false
}

func (m *Monitor) sysfsAttr(dir, name string) string {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
