// Package watch maintains the set of filesystem watches covering a shader
// and everything it imports, and debounces the resulting change events.
package watch

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gogpu/shadertui"
)

// defaultDebounce suppresses the event bursts editors emit per save.
// Events arriving within this window of the last surfaced change are
// consumed silently.
const defaultDebounce = 100 * time.Millisecond

// Set owns the live watches for one shader program. The entry file is
// always watched; Reconcile swaps the rest of the set to follow the
// program's current imports. All methods are called from one goroutine.
type Set struct {
	entry   string
	w       *fsnotify.Watcher
	watched map[string]struct{}

	// changes is fed by the forwarding goroutine and drained by Poll.
	changes chan string

	debounce     time.Duration
	lastSurfaced time.Time
}

// New builds a Set watching the entry file.
func New(entry string) (*Set, error) {
	canon, err := canonical(entry)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve %s: %w", entry, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	s := &Set{
		entry:        canon,
		w:            w,
		watched:      make(map[string]struct{}),
		changes:      make(chan string, 64),
		debounce:     defaultDebounce,
		lastSurfaced: time.Now(),
	}
	go s.forward()
	if err := s.add(canon); err != nil {
		w.Close()
		return nil, err
	}
	return s, nil
}

// forward relays raw fsnotify events onto the change channel. Editors
// replace files in various ways, so both writes and re-creations count.
func (s *Set) forward() {
	for {
		select {
		case ev, ok := <-s.w.Events:
			if !ok {
				return
			}
			if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) {
				select {
				case s.changes <- ev.Name:
				default:
					// A full buffer means a burst the debounce
					// would swallow anyway.
				}
			}
		case err, ok := <-s.w.Errors:
			if !ok {
				return
			}
			shadertui.Logger().Warn("watch: watcher error", "error", err)
		}
	}
}

func (s *Set) add(path string) error {
	if _, ok := s.watched[path]; ok {
		return nil
	}
	if err := s.w.Add(path); err != nil {
		return fmt.Errorf("watch: add %s: %w", path, err)
	}
	s.watched[path] = struct{}{}
	return nil
}

// Reconcile replaces the watch set with files plus the entry. Watches for
// files no longer imported are removed; new imports gain watches. A file
// that cannot be watched is logged and skipped so one bad path never
// blocks reloads of the rest of the program.
func (s *Set) Reconcile(files map[string]struct{}) {
	target := make(map[string]struct{}, len(files)+1)
	for f := range files {
		canon, err := canonical(f)
		if err != nil {
			shadertui.Logger().Warn("watch: cannot resolve file", "path", f, "error", err)
			continue
		}
		target[canon] = struct{}{}
	}
	target[s.entry] = struct{}{}

	for path := range s.watched {
		if _, keep := target[path]; !keep {
			if err := s.w.Remove(path); err != nil {
				shadertui.Logger().Warn("watch: remove failed", "path", path, "error", err)
			}
			delete(s.watched, path)
		}
	}
	for path := range target {
		if err := s.add(path); err != nil {
			shadertui.Logger().Warn("watch: cannot watch file", "path", path, "error", err)
		}
	}
}

// Watched returns a copy of the currently watched paths.
func (s *Set) Watched() map[string]struct{} {
	out := make(map[string]struct{}, len(s.watched))
	for p := range s.watched {
		out[p] = struct{}{}
	}
	return out
}

// Poll returns a pending change without blocking. A change is surfaced
// only when the debounce window has passed since the last surfaced one;
// suppressed changes are consumed, not queued, and do not extend the
// window.
func (s *Set) Poll() (string, bool) {
	select {
	case path := <-s.changes:
		now := time.Now()
		if now.Sub(s.lastSurfaced) > s.debounce {
			s.lastSurfaced = now
			return path, true
		}
		return "", false
	default:
		return "", false
	}
}

// Close stops the watcher and its forwarding goroutine.
func (s *Set) Close() error {
	return s.w.Close()
}

func canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
