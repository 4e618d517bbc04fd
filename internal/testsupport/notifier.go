package testsupport

import (
	"context"
	"sync"

	"updatenotifier/internal/notifications"
)

// Notice is one notification recorded by RecordingNotifier.
type Notice struct {
	Kind   string
	Title  string
	Body   string
	System  bool
	Action  func()
	Dismiss func()
}

// RecordingNotifier implements notifications.Service and keeps every call.
type RecordingNotifier struct {
	mu        sync.Mutex
	notices   []Notice
	withdrawn int
	err       error
	noActions bool
}

// WithoutActions makes the notifier behave like a transport that cannot
// report action clicks back.
func (r *RecordingNotifier) WithoutActions() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.noActions = true
}

// Fail makes every later notification return err.
func (r *RecordingNotifier) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *RecordingNotifier) record(n Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
	return r.err
}

// Notices returns the recorded notifications in order.
func (r *RecordingNotifier) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Kind returns the notifications of one kind: "updates", "crash", "avahi",
// "hooks" or "test".
func (r *RecordingNotifier) Kind(kind string) []Notice {
	var out []Notice
	for _, n := range r.Notices() {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// Withdrawn counts WithdrawUpdates calls.
func (r *RecordingNotifier) Withdrawn() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.withdrawn
}

func (r *RecordingNotifier) NotifyUpdatesAvailable(_ context.Context, body string, show func()) error {
	return r.record(Notice{Kind: "updates", Body: body, Action: show})
}

func (r *RecordingNotifier) WithdrawUpdates(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.withdrawn++
	return nil
}

func (r *RecordingNotifier) NotifyCrashReport(_ context.Context, system bool, report, dismissed func()) error {
	r.mu.Lock()
	noActions := r.noActions
	r.mu.Unlock()
	if noActions {
		if err := r.record(Notice{Kind: "crash", System: system}); err != nil {
			return err
		}
		if report != nil {
			return notifications.ErrNotInteractive
		}
		return nil
	}
	return r.record(Notice{Kind: "crash", System: system, Action: report, Dismiss: dismissed})
}

func (r *RecordingNotifier) NotifyAvahiDisabled(context.Context) error {
	return r.record(Notice{Kind: "avahi"})
}

func (r *RecordingNotifier) NotifyHookInformation(_ context.Context, name, description string, show func()) error {
	return r.record(Notice{Kind: "hooks", Title: name, Body: description, Action: show})
}

func (r *RecordingNotifier) TestNotification(context.Context) error {
	return r.record(Notice{Kind: "test"})
}
