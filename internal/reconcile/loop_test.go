package reconcile

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"updatenotifier/internal/config"
	"updatenotifier/internal/crash"
	"updatenotifier/internal/launcher"
	"updatenotifier/internal/logging"
	"updatenotifier/internal/monitor"
	"updatenotifier/internal/testsupport"
	"updatenotifier/internal/updates"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

type fakeUpdates struct{ rec *recorder }

func (f fakeUpdates) Check(context.Context) updates.State {
	f.rec.add("update-check")
	return updates.StateHidden
}

func (f fakeUpdates) SetAptRunning(running bool) {
	if running {
		f.rec.add("apt-busy")
		return
	}
	f.rec.add("apt-idle")
}

func (f fakeUpdates) CancelOutdatedNag() {
	f.rec.add("cancel-nag")
}

func (f fakeUpdates) Status() updates.Status {
	return updates.Status{State: updates.StateHidden.String()}
}

type fakeHooks struct{ rec *recorder }

func (f fakeHooks) Check(context.Context) int {
	f.rec.add("hooks")
	return 0
}

type fakeCrash struct{ rec *recorder }

func (f fakeCrash) Check(context.Context) crash.Outcome {
	f.rec.add("crash")
	return crash.OutcomeNone
}

type fakeAvahi struct{ rec *recorder }

func (f fakeAvahi) Check(context.Context) bool {
	f.rec.add("avahi")
	return false
}

type fixture struct {
	cfg     *config.Config
	rec     *recorder
	acc     *monitor.Accumulator
	events  chan monitor.Event
	plugins chan struct{}
	now     time.Time
	loop    *Loop
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	f := &fixture{
		cfg:     cfg,
		rec:     &recorder{},
		acc:     monitor.NewAccumulator(monitor.NewRules(cfg.Paths), logging.NewNop()),
		events:  make(chan monitor.Event),
		plugins: make(chan struct{}, 4),
		now:     time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC),
	}
	f.loop = New(Options{
		Accumulator: f.acc,
		Events:      f.events,
		Interval:    time.Hour,
		AptIdle:     600 * time.Second,
		Plugins: func(context.Context) {
			f.rec.add("plugins")
			f.plugins <- struct{}{}
		},
		Now:    func() time.Time { return f.now },
		Logger: logging.NewNop(),
	})
	return f
}

func (f *fixture) ready() {
	f.loop.SetHandlers(fakeUpdates{f.rec}, fakeHooks{f.rec}, fakeCrash{f.rec}, fakeAvahi{f.rec})
}

func (f *fixture) change(path string) {
	f.acc.OnPathChanged(path, monitor.KindChanged, f.now)
}

func TestTickSkippedUntilReady(t *testing.T) {
	f := newFixture(t)
	f.change(f.cfg.Paths.DpkgRunStamp)
	f.change(filepath.Join(f.cfg.Paths.HooksDir, "note"))

	if f.loop.Tick(context.Background()) {
		t.Fatal("expected tick skipped before handlers exist")
	}
	st := f.loop.Pending()
	if !st.DpkgRan || !st.HookPending {
		t.Fatalf("expected pending state untouched, got %+v", st)
	}
	if len(f.rec.list()) != 0 {
		t.Fatalf("expected no checks, got %v", f.rec.list())
	}

	f.ready()
	if !f.loop.Tick(context.Background()) {
		t.Fatal("expected tick once ready")
	}
	if st := f.loop.Pending(); st.DpkgRan || st.HookPending {
		t.Fatalf("expected flags cleared, got %+v", st)
	}
}

func TestTickOrder(t *testing.T) {
	f := newFixture(t)
	f.ready()
	f.change(filepath.Join(f.cfg.Paths.AptListsDir, "archive_Packages"))
	f.change(f.cfg.Paths.DpkgRunStamp)
	f.change(filepath.Join(f.cfg.Paths.HooksDir, "note"))
	f.change(filepath.Join(f.cfg.Paths.CrashDir, "_usr_bin_app.1000.crash"))
	f.change(f.cfg.Paths.AvahiMarker)

	f.loop.Tick(context.Background())
	<-f.plugins

	got := slices.DeleteFunc(f.rec.list(), func(c string) bool { return c == "plugins" })
	want := []string{"cancel-nag", "update-check", "apt-idle", "hooks", "crash", "avahi"}
	if !slices.Equal(got, want) {
		t.Fatalf("unexpected order\n got %v\nwant %v", got, want)
	}
	st := f.loop.Pending()
	if st != (monitor.PendingState{}) {
		t.Fatalf("expected every flag cleared, got %+v", st)
	}
}

func TestTickAptBusyThenIdleTimeout(t *testing.T) {
	f := newFixture(t)
	f.ready()
	f.change(f.cfg.Paths.DpkgStatus)

	f.loop.Tick(context.Background())
	if got := f.rec.list(); !slices.Equal(got, []string{"apt-busy"}) {
		t.Fatalf("expected busy only, got %v", got)
	}
	st := f.loop.Pending()
	if st.AptRunning {
		t.Fatal("expected AptRunning cleared after the tick")
	}
	if st.LastAptAction.IsZero() {
		t.Fatal("expected LastAptAction kept for the idle timeout")
	}

	f.now = f.now.Add(5 * time.Minute)
	f.loop.Tick(context.Background())
	if got := f.rec.list(); len(got) != 1 {
		t.Fatalf("expected nothing before the idle timeout, got %v", got)
	}

	f.now = f.now.Add(6 * time.Minute)
	f.loop.Tick(context.Background())
	want := []string{"apt-busy", "apt-idle", "update-check"}
	if got := f.rec.list(); !slices.Equal(got, want) {
		t.Fatalf("unexpected calls\n got %v\nwant %v", got, want)
	}
	if !f.loop.Pending().LastAptAction.IsZero() {
		t.Fatal("expected LastAptAction reset")
	}
}

func TestTickLockFilesIgnored(t *testing.T) {
	f := newFixture(t)
	f.ready()
	f.change(filepath.Join(f.cfg.Paths.AptListsDir, "lock"))
	f.loop.Tick(context.Background())
	if got := f.rec.list(); len(got) != 0 {
		t.Fatalf("expected lock file change ignored, got %v", got)
	}
}

func TestPluginChainCoalescesRunsWhileBusy(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	started := make(chan struct{}, 4)
	var active, overlapped atomic.Int32
	f.loop.plugins = func(context.Context) {
		if active.Add(1) > 1 {
			overlapped.Store(1)
		}
		defer active.Add(-1)
		started <- struct{}{}
		<-release
	}
	f.ready()

	f.change(f.cfg.Paths.DpkgRunStamp)
	f.loop.Tick(context.Background())
	<-started

	// Two more package runs while the chain is busy collapse into one pass.
	for i := 0; i < 2; i++ {
		f.change(f.cfg.Paths.DpkgRunStamp)
		f.loop.Tick(context.Background())
	}
	select {
	case <-started:
		t.Fatal("second plugin chain started while the first was running")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a follow-up plugin chain after the first finished")
	}
	deadline := time.Now().Add(2 * time.Second)
	for f.loop.pluginsRunning.Load() {
		if time.Now().After(deadline) {
			t.Fatal("plugin chain did not finish")
		}
		time.Sleep(5 * time.Millisecond)
	}
	select {
	case <-started:
		t.Fatal("expected exactly one follow-up run")
	default:
	}
	if runs := f.loop.pluginRuns.Load(); runs != 2 {
		t.Fatalf("expected two plugin runs, got %d", runs)
	}
	if overlapped.Load() != 0 {
		t.Fatal("plugin chains overlapped")
	}
}

func TestRunSerializesEventsAndCalls(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- f.loop.Run(ctx) }()

	f.loop.Dispatch(f.ready)
	f.events <- monitor.Event{Path: f.cfg.Paths.AvahiMarker, Kind: monitor.KindCreated}

	st, err := f.loop.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.Ready || !st.Pending.AvahiPending {
		t.Fatalf("expected ready loop with avahi pending, got %+v", st)
	}
	if st.Updates == nil || st.Updates.State != "hidden" {
		t.Fatalf("expected update status, got %+v", st.Updates)
	}

	us, err := f.loop.CheckNow(context.Background())
	if err != nil {
		t.Fatalf("CheckNow: %v", err)
	}
	if us.State != "hidden" || !slices.Contains(f.rec.list(), "update-check") {
		t.Fatalf("expected forced check, got %+v calls %v", us, f.rec.list())
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := f.loop.Call(context.Background(), func() {}); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped after exit, got %v", err)
	}
	// Must not block after the loop has stopped.
	f.loop.Dispatch(func() {})
}

func TestCheckNowBeforeReady(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = f.loop.Run(ctx) }()

	if _, err := f.loop.CheckNow(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestAfterFuncStop(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = f.loop.Run(ctx) }()

	fired := make(chan string, 2)
	var stop func()
	if err := f.loop.Call(ctx, func() {
		stop = f.loop.AfterFunc(100*time.Millisecond, func() { fired <- "cancelled" })
		f.loop.AfterFunc(200*time.Millisecond, func() { fired <- "kept" })
	}); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if err := f.loop.Call(ctx, stop); err != nil {
		t.Fatalf("Call: %v", err)
	}

	select {
	case got := <-fired:
		if got != "kept" {
			t.Fatalf("stopped timer ran: %s", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
}

func TestPluginChainRunsInOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	for _, name := range []string{"20-second", "10-first", ".hidden"} {
		testsupport.WriteScript(t, filepath.Join(cfg.Paths.PluginDir, name), "exit 0")
	}
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.PluginDir, "README"), "not executable")
	runner := testsupport.NewFakeRunner()
	run := PluginChain(cfg.Paths.PluginDir, launcher.New(runner, cfg.Helpers, false, logging.NewNop()), logging.NewNop())
	run(context.Background())

	var got []string
	for _, call := range runner.Calls() {
		got = append(got, filepath.Base(call.String()))
	}
	if !slices.Equal(got, []string{"10-first", "20-second"}) {
		t.Fatalf("unexpected plugin order %v", got)
	}
}

func TestTickWithoutUpdateCheck(t *testing.T) {
	f := newFixture(t)
	f.loop.SetHandlers(nil, fakeHooks{f.rec}, fakeCrash{f.rec}, fakeAvahi{f.rec})
	f.change(f.cfg.Paths.DpkgRunStamp)
	f.change(filepath.Join(f.cfg.Paths.HooksDir, "note"))

	if !f.loop.Tick(context.Background()) {
		t.Fatal("expected tick without the update applet")
	}
	<-f.plugins
	if got := slices.DeleteFunc(f.rec.list(), func(c string) bool { return c == "plugins" }); !slices.Equal(got, []string{"hooks"}) {
		t.Fatalf("unexpected calls %v", got)
	}
	if st := f.loop.snapshot(); st.Updates == nil || st.Updates.State != StateDisabled {
		t.Fatalf("expected disabled update status, got %+v", st.Updates)
	}
}
