package tray

import (
	"log/slog"
	"sync"

	"updatenotifier/internal/logging"
)

// Headless keeps applet state in memory and logs changes. It backs sessions
// without a StatusNotifier host and the tests.
type Headless struct {
	id     string
	logger *slog.Logger

	mu        sync.Mutex
	ensured   bool
	destroyed bool
	icon      string
	tooltip   string
	visible   bool
	menu      []MenuItem
	single    func()
}

// NewHeadless returns an in-memory presenter identified by id.
func NewHeadless(id string, logger *slog.Logger) *Headless {
	return &Headless{
		id:     id,
		logger: logging.NewComponentLogger(logger, "tray").With(logging.String("item", id)),
	}
}

func (h *Headless) Ensure() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ensured = true
	h.destroyed = false
	return nil
}

func (h *Headless) SetIcon(name string) {
	h.mu.Lock()
	h.icon = name
	h.mu.Unlock()
}

func (h *Headless) SetVisible(visible bool) {
	h.mu.Lock()
	changed := h.visible != visible
	h.visible = visible
	tooltip := h.tooltip
	h.mu.Unlock()
	if changed {
		h.logger.Info("tray item visibility",
			logging.Bool("visible", visible),
			logging.String("tooltip", tooltip),
		)
	}
}

func (h *Headless) Visible() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.visible
}

func (h *Headless) SetTooltip(text string) {
	h.mu.Lock()
	h.tooltip = text
	h.mu.Unlock()
}

func (h *Headless) SetMenu(items []MenuItem) {
	h.mu.Lock()
	h.menu = cloneMenu(items)
	h.mu.Unlock()
}

func (h *Headless) SetSingleAction(fn func()) {
	h.mu.Lock()
	h.single = fn
	h.mu.Unlock()
}

func (h *Headless) Destroy() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.destroyed = true
	h.visible = false
	return nil
}

// Ensured reports whether Ensure has been called since the last Destroy.
func (h *Headless) Ensured() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ensured && !h.destroyed
}

func (h *Headless) Icon() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.icon
}

func (h *Headless) Tooltip() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tooltip
}

// Menu returns a copy of the current menu.
func (h *Headless) Menu() []MenuItem {
	h.mu.Lock()
	defer h.mu.Unlock()
	return cloneMenu(h.menu)
}

// Activate runs the single action as a primary click would. It reports
// whether an action was set.
func (h *Headless) Activate() bool {
	h.mu.Lock()
	fn := h.single
	h.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}

// Trigger runs the menu entry labelled label. It reports whether a matching
// enabled entry exists.
func (h *Headless) Trigger(label string) bool {
	h.mu.Lock()
	var fn func()
	for _, item := range h.menu {
		if item.Label == label && !item.Separator && !item.Disabled {
			fn = item.Activate
			break
		}
	}
	h.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}
