package testsupport

import (
	"context"
	"strings"
	"sync"

	"updatenotifier/internal/launcher"
)

// Call is one recorded helper invocation.
type Call struct {
	Argv  []string
	Async bool
}

// String joins the argv with spaces.
func (c Call) String() string {
	return strings.Join(c.Argv, " ")
}

// FakeRunner records helper invocations and replays scripted results keyed
// by the space-joined argv. Unscripted commands exit 0 with no output.
type FakeRunner struct {
	mu       sync.Mutex
	calls    []Call
	results  map[string]launcher.Result
	failures map[string]error
}

// NewFakeRunner returns an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{results: make(map[string]launcher.Result), failures: make(map[string]error)}
}

// On scripts the result for argv.
func (f *FakeRunner) On(result launcher.Result, argv ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[strings.Join(argv, " ")] = result
}

// Fail makes argv fail to spawn with err.
func (f *FakeRunner) Fail(err error, argv ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[strings.Join(argv, " ")] = err
}

func (f *FakeRunner) Run(_ context.Context, name string, args ...string) (launcher.Result, error) {
	call := Call{Argv: append([]string{name}, args...)}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if err := f.failures[call.String()]; err != nil {
		return launcher.Result{}, err
	}
	return f.results[call.String()], nil
}

func (f *FakeRunner) Start(name string, args ...string) error {
	call := Call{Argv: append([]string{name}, args...), Async: true}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.failures[call.String()]
}

// Calls returns every recorded invocation in order.
func (f *FakeRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Started returns the asynchronous invocations as joined strings.
func (f *FakeRunner) Started() []string {
	var out []string
	for _, c := range f.Calls() {
		if c.Async {
			out = append(out, c.String())
		}
	}
	return out
}

// Ran reports whether any invocation, sync or async, matches argv exactly.
func (f *FakeRunner) Ran(argv ...string) bool {
	want := strings.Join(argv, " ")
	for _, c := range f.Calls() {
		if c.String() == want {
			return true
		}
	}
	return false
}

// Reset forgets recorded calls but keeps the script.
func (f *FakeRunner) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}
