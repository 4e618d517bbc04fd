package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"

	"updatenotifier/internal/logging"
)

// Kind is the type of filesystem change.
type Kind int

const (
	KindChanged Kind = iota
	KindCreated
	KindDeleted
	KindMoved
	KindAttributes
)

func (k Kind) String() string {
	switch k {
	case KindCreated:
		return "created"
	case KindDeleted:
		return "deleted"
	case KindMoved:
		return "moved"
	case KindAttributes:
		return "attributes"
	default:
		return "changed"
	}
}

func kindFromOp(op fsnotify.Op) Kind {
	switch {
	case op.Has(fsnotify.Create):
		return KindCreated
	case op.Has(fsnotify.Remove):
		return KindDeleted
	case op.Has(fsnotify.Rename):
		return KindMoved
	case op.Has(fsnotify.Write):
		return KindChanged
	case op.Has(fsnotify.Chmod):
		return KindAttributes
	default:
		return KindChanged
	}
}

// Event is a change to one watched path.
type Event struct {
	Path string
	Kind Kind
}

// Source delivers filesystem events for an allow-list of directories and
// files. Files are watched through their parent directory and filtered to
// the exact path.
type Source struct {
	logger  *slog.Logger
	watcher *fsnotify.Watcher
	events  chan Event

	mu      sync.Mutex
	dirs    map[string]struct{}
	files   map[string]struct{}
	kernel  map[string]struct{}
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewSource opens an inotify instance.
func NewSource(logger *slog.Logger) (*Source, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create inotify watcher: %w", err)
	}
	return &Source{
		logger:  logging.NewComponentLogger(logger, "inotify"),
		watcher: watcher,
		events:  make(chan Event, 64),
		dirs:    make(map[string]struct{}),
		files:   make(map[string]struct{}),
		kernel:  make(map[string]struct{}),
	}, nil
}

// Subscribe registers dirs and files. A path that cannot be watched is logged
// and skipped. It returns the number of subscriptions that succeeded.
func (s *Source) Subscribe(dirs, files []string) int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ok := 0
	for _, dir := range dirs {
		dir = filepath.Clean(dir)
		if err := s.addKernelWatch(dir); err != nil {
			s.watchFailed(dir, err)
			continue
		}
		s.dirs[dir] = struct{}{}
		ok++
	}
	for _, file := range files {
		file = filepath.Clean(file)
		if err := s.addKernelWatch(filepath.Dir(file)); err != nil {
			s.watchFailed(file, err)
			continue
		}
		s.files[file] = struct{}{}
		ok++
	}
	return ok
}

func (s *Source) addKernelWatch(dir string) error {
	if _, exists := s.kernel[dir]; exists {
		return nil
	}
	if err := s.watcher.Add(dir); err != nil {
		return err
	}
	s.kernel[dir] = struct{}{}
	s.logger.Debug("watch added", logging.String(logging.FieldPath, dir))
	return nil
}

func (s *Source) watchFailed(path string, err error) {
	logging.WarnWithContext(s.logger, "can not watch path", "watch_add_failed",
		logging.String(logging.FieldPath, path),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the path exists and the inotify watch limit"),
		logging.String(logging.FieldImpact, "changes to this path are not noticed"),
	)
}

// Watched returns the subscribed directories and files in sorted order.
func (s *Source) Watched() []string {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.dirs)+len(s.files))
	for dir := range s.dirs {
		out = append(out, dir)
	}
	for file := range s.files {
		out = append(out, file)
	}
	sort.Strings(out)
	return out
}

// Events returns the channel of filtered events.
func (s *Source) Events() <-chan Event {
	if s == nil {
		return nil
	}
	return s.events
}

// Start begins forwarding events until ctx is cancelled or Close is called.
func (s *Source) Start(ctx context.Context) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.wg.Add(1)
	go s.loop(loopCtx)
}

// Close stops the forwarding loop and releases the inotify instance.
func (s *Source) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.running = false
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	err := s.watcher.Close()
	s.wg.Wait()
	return err
}

func (s *Source) loop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !s.accepts(ev.Name) {
				continue
			}
			select {
			case s.events <- Event{Path: ev.Name, Kind: kindFromOp(ev.Op)}:
			case <-ctx.Done():
				return
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logging.WarnWithContext(s.logger, "inotify error", "inotify_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "raise fs.inotify.max_queued_events if events overflow"),
				logging.String(logging.FieldImpact, "some changes may be noticed late"),
			)
		}
	}
}

func (s *Source) accepts(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[path]; ok {
		return true
	}
	if _, ok := s.dirs[path]; ok {
		return true
	}
	_, ok := s.dirs[filepath.Dir(path)]
	return ok
}
