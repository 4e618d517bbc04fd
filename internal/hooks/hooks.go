package hooks

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"updatenotifier/internal/launcher"
	"updatenotifier/internal/logging"
	"updatenotifier/internal/notifications"
	"updatenotifier/internal/store"
	"updatenotifier/internal/tray"
)

const (
	// Icon is the hook applet icon.
	Icon = "hook-notifier"
	// Tooltip is shown while unread hooks exist.
	Tooltip = "Information available"

	terminalEmulator = "x-terminal-emulator"
)

// Records persists the per-file hook state.
type Records interface {
	LoadHooks(ctx context.Context) (map[string]store.HookRecord, error)
	SaveHook(ctx context.Context, rec store.HookRecord) error
	DeleteHook(ctx context.Context, filename string) error
}

// Deps are the collaborators of the hook check.
type Deps struct {
	Dir      string
	Launcher *launcher.Launcher
	Records  Records
	Notifier notifications.Service
	Applet   *tray.Applet
	IsAdmin  func() bool
	// BootTime returns when the system booted. Defaults to sysinfo uptime.
	BootTime func() time.Time
	Logger   *slog.Logger
}

// Handler runs the hook check and owns the hook applet. Methods must be
// called from the daemon loop.
type Handler struct {
	dir      string
	launcher *launcher.Launcher
	records  Records
	notifier notifications.Service
	applet   *tray.Applet
	isAdmin  func() bool
	bootTime func() time.Time
	logger   *slog.Logger

	shown   []Hook
	current int
}

// New builds the hook handler. A nil Records keeps state in memory only.
func New(deps Deps) *Handler {
	records := deps.Records
	if records == nil {
		records = newMemoryRecords()
	}
	isAdmin := deps.IsAdmin
	if isAdmin == nil {
		isAdmin = func() bool { return true }
	}
	bootTime := deps.BootTime
	if bootTime == nil {
		bootTime = systemBootTime
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewFanout(deps.Logger)
	}
	return &Handler{
		dir:      deps.Dir,
		launcher: deps.Launcher,
		records:  records,
		notifier: notifier,
		applet:   deps.Applet,
		isAdmin:  isAdmin,
		bootTime: bootTime,
		logger:   logging.NewComponentLogger(deps.Logger, "hooks"),
	}
}

// Init creates the hidden applet and runs the first check.
func (h *Handler) Init(ctx context.Context) {
	h.applet.Ensure()
	h.applet.SetIcon(Icon)
	h.applet.SetTooltip(Tooltip)
	h.applet.SetSingleAction(func() { h.present(ctx) })
	h.applet.SetVisible(false)
	h.Check(ctx)
}

// Unread returns the hooks currently offered to the user.
func (h *Handler) Unread() []Hook {
	out := make([]Hook, len(h.shown))
	copy(out, h.shown)
	return out
}

// Check rescans the hooks directory and returns the number of unread hooks.
// A hook is unread when its content changed since it was last seen or it was
// never marked seen.
func (h *Handler) Check(ctx context.Context) int {
	records, err := h.records.LoadHooks(ctx)
	if err != nil {
		h.recordsFailed(err)
		records = map[string]store.HookRecord{}
	}

	entries, err := os.ReadDir(h.dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.WarnWithContext(h.logger, "hooks directory unreadable", "hooks_dir_unreadable",
			logging.String(logging.FieldPath, h.dir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the directory permissions"),
			logging.String(logging.FieldImpact, "hook information is not shown"),
		)
		return len(h.shown)
	}

	present := make(map[string]bool)
	var shown []Hook
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		name := entry.Name()
		present[name] = true
		hook, rec, ok := h.load(ctx, name, records[name])
		if !ok {
			continue
		}
		if rec != records[name] {
			if err := h.records.SaveHook(ctx, rec); err != nil {
				h.recordsFailed(err)
			}
		}
		if !rec.Seen && h.shouldDisplay(ctx, hook, rec) {
			shown = append(shown, hook)
		}
	}
	for name := range records {
		if present[name] {
			continue
		}
		if err := h.records.DeleteHook(ctx, name); err != nil {
			h.recordsFailed(err)
		}
	}
	sort.Slice(shown, func(i, j int) bool { return shown[i].Filename < shown[j].Filename })

	wasEmpty := len(h.shown) == 0
	h.shown = shown
	if h.current >= len(shown) {
		h.current = 0
	}
	h.logger.Debug("hook check finished", logging.Int("unread", len(shown)), logging.Int("files", len(present)))

	if len(shown) == 0 {
		h.applet.SetVisible(false)
		return 0
	}
	h.refreshMenu(ctx)
	h.applet.SetVisible(true)
	if wasEmpty {
		h.logger.Info("hook information available",
			logging.String(logging.FieldEventType, "hooks_available"),
			logging.Int("unread", len(shown)),
		)
		h.present(ctx)
	}
	return len(shown)
}

// load reads name and returns its parsed hook and updated record. A changed
// digest resets the seen and command-run markers.
func (h *Handler) load(ctx context.Context, name string, rec store.HookRecord) (Hook, store.HookRecord, bool) {
	path := filepath.Join(h.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		h.logger.Debug("hook unreadable", logging.String(logging.FieldPath, path), logging.Error(err))
		return Hook{}, rec, false
	}
	hook, err := Parse(bytes.NewReader(data))
	if err != nil {
		h.logger.Debug("hook unparsable", logging.String(logging.FieldPath, path), logging.Error(err))
		return Hook{}, rec, false
	}
	hook.Filename = name

	sum := md5.Sum(data)
	digest := hex.EncodeToString(sum[:])
	info, err := os.Stat(path)
	if err != nil {
		return Hook{}, rec, false
	}
	if rec.Filename == "" || rec.Digest != digest {
		if rec.Filename != "" {
			h.logger.Debug("hook changed", logging.String(logging.FieldPath, path))
		}
		rec = store.HookRecord{Filename: name, Digest: digest}
	}
	rec.Mtime = info.ModTime().Unix()
	return hook, rec, true
}

func (h *Handler) shouldDisplay(ctx context.Context, hook Hook, rec store.HookRecord) bool {
	if hook.OnlyAdminUsers && !h.isAdmin() {
		return false
	}
	if hook.DontShowAfterReboot && time.Unix(rec.Mtime, 0).Before(h.bootTime()) {
		h.logger.Debug("hook predates boot", logging.String("hook", hook.Filename))
		return false
	}
	if hook.DisplayIf != "" {
		res, err := h.launcher.Run(ctx, h.launcher.Helpers().Shell, "-c", hook.DisplayIf)
		if err != nil {
			h.logger.Debug("DisplayIf failed to run", logging.String("hook", hook.Filename), logging.Error(err))
			return false
		}
		if res.ExitCode != 0 {
			h.logger.Debug("DisplayIf false", logging.String("hook", hook.Filename), logging.Int("exit_code", res.ExitCode))
			return false
		}
	}
	return true
}

func (h *Handler) refreshMenu(ctx context.Context) {
	if len(h.shown) == 0 {
		h.applet.SetMenu(nil)
		return
	}
	hook := h.shown[h.current]
	items := []tray.MenuItem{{Label: displayName(hook), Disabled: true}}
	if hook.Command != "" {
		items = append(items, tray.MenuItem{Label: "Run this action now", Activate: func() { h.RunCommand(ctx) }})
	}
	if len(h.shown) > 1 {
		items = append(items, tray.MenuItem{Label: "Next", Activate: func() { h.Next(ctx) }})
	}
	items = append(items,
		tray.MenuItem{Separator: true},
		tray.MenuItem{Label: "Mark as read", Activate: func() { h.MarkRead(ctx) }},
	)
	h.applet.SetMenu(items)
}

// present notifies about the current hook. The notification action moves on
// to the next unread hook.
func (h *Handler) present(ctx context.Context) {
	if len(h.shown) == 0 {
		return
	}
	hook := h.shown[h.current]
	var next func()
	if len(h.shown) > 1 {
		next = func() { h.Next(ctx) }
	}
	if err := h.notifier.NotifyHookInformation(ctx, hook.Name, hook.Description, next); err != nil {
		logging.WarnWithContext(h.logger, "hook notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the notification daemon or ntfy topic"),
			logging.String(logging.FieldImpact, "hook text is only reachable from the tray menu"),
		)
	}
}

// Next advances to the following unread hook and presents it.
func (h *Handler) Next(ctx context.Context) {
	if len(h.shown) == 0 {
		return
	}
	h.current = (h.current + 1) % len(h.shown)
	h.refreshMenu(ctx)
	h.present(ctx)
}

// RunCommand starts the current hook's command and remembers that it ran.
func (h *Handler) RunCommand(ctx context.Context) {
	if len(h.shown) == 0 {
		return
	}
	hook := h.shown[h.current]
	if hook.Command == "" {
		return
	}
	shell := h.launcher.Helpers().Shell
	argv := []string{shell, "-c", hook.Command}
	if hook.Terminal {
		argv = []string{terminalEmulator, "-e", shell, "-c", hook.Command}
	}
	if err := h.launcher.Invoke(false, argv...); err != nil {
		logging.WarnWithContext(h.logger, "hook command failed to start", "helper_spawn_failed",
			logging.String("hook", hook.Filename),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the command named in the hook file"),
			logging.String(logging.FieldImpact, "the hook action did not run"),
		)
		return
	}
	h.update(ctx, hook.Filename, func(rec *store.HookRecord) { rec.CmdRun = true })
	h.logger.Info("hook command started", logging.String("hook", hook.Filename), logging.String(logging.FieldEventType, "hook_command"))
}

// MarkRead marks every unread hook as seen and hides the applet.
func (h *Handler) MarkRead(ctx context.Context) {
	for _, hook := range h.shown {
		h.update(ctx, hook.Filename, func(rec *store.HookRecord) { rec.Seen = true })
	}
	h.logger.Debug("hooks marked read", logging.Int("count", len(h.shown)))
	h.shown = nil
	h.current = 0
	h.applet.SetVisible(false)
	h.applet.SetMenu(nil)
}

func (h *Handler) update(ctx context.Context, filename string, change func(*store.HookRecord)) {
	records, err := h.records.LoadHooks(ctx)
	if err != nil {
		h.recordsFailed(err)
		return
	}
	rec, ok := records[filename]
	if !ok {
		return
	}
	change(&rec)
	if err := h.records.SaveHook(ctx, rec); err != nil {
		h.recordsFailed(err)
	}
}

func (h *Handler) recordsFailed(err error) {
	logging.WarnWithContext(h.logger, "hook state not persisted", "hook_state_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the state database"),
		logging.String(logging.FieldImpact, "read hooks may be shown again"),
	)
}

func displayName(hook Hook) string {
	if hook.Name != "" {
		return hook.Name
	}
	return hook.Filename
}

func systemBootTime() time.Time {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return time.Time{}
	}
	return time.Now().Add(-time.Duration(info.Uptime) * time.Second)
}

type memoryRecords struct {
	records map[string]store.HookRecord
}

func newMemoryRecords() *memoryRecords {
	return &memoryRecords{records: make(map[string]store.HookRecord)}
}

func (m *memoryRecords) LoadHooks(context.Context) (map[string]store.HookRecord, error) {
	out := make(map[string]store.HookRecord, len(m.records))
	for k, v := range m.records {
		out[k] = v
	}
	return out, nil
}

func (m *memoryRecords) SaveHook(_ context.Context, rec store.HookRecord) error {
	m.records[rec.Filename] = rec
	return nil
}

func (m *memoryRecords) DeleteHook(_ context.Context, filename string) error {
	delete(m.records, filename)
	return nil
}
