// Package watcher polls a directory tree and reports created and modified
// files, so new sources get their versions generated.
package watcher

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fruitsalade/mediagen/internal/logging"
)

// Event types.
const (
	EventCreate = "create"
	EventModify = "modify"
	EventDelete = "delete"
)

// DefaultInterval is the polling interval used when none is given.
const DefaultInterval = 5 * time.Second

// Event is a file change. Path is absolute.
type Event struct {
	Type string
	Path string
	Time time.Time
}

// Watcher polls root for changes.
type Watcher struct {
	root     string
	interval time.Duration
	exclude  []string

	mu    sync.Mutex
	state map[string]int64 // path -> mtime
	done  chan struct{}
	once  sync.Once
}

// New creates a watcher. Directories in exclude, typically the filter
// directory when it lives below root, are never descended into.
func New(root string, interval time.Duration, exclude ...string) (*Watcher, error) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		root:     abs,
		interval: interval,
		state:    make(map[string]int64),
		done:     make(chan struct{}),
	}
	for _, e := range exclude {
		if e == "" {
			continue
		}
		if ae, err := filepath.Abs(e); err == nil {
			w.exclude = append(w.exclude, filepath.Clean(ae))
		}
	}
	return w, nil
}

// Start records the current tree and returns the files already present,
// sorted. Changes after this point are reported by Run.
func (w *Watcher) Start() ([]string, error) {
	state, err := w.walk()
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	w.state = state
	w.mu.Unlock()

	existing := make([]string, 0, len(state))
	for p := range state {
		existing = append(existing, p)
	}
	sort.Strings(existing)
	return existing, nil
}

// Run polls until ctx is cancelled or Stop is called, passing each change
// to handle from the polling goroutine.
func (w *Watcher) Run(ctx context.Context, handle func(Event)) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, ev := range w.Poll() {
				handle(ev)
			}
		case <-w.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop ends Run.
func (w *Watcher) Stop() {
	w.once.Do(func() { close(w.done) })
}

// Poll compares the tree with the previous scan and returns the changes,
// creations and modifications sorted by path, then deletions.
func (w *Watcher) Poll() []Event {
	newState, err := w.walk()
	if err != nil {
		logging.Warn("watcher: scan failed", zap.String("root", w.root), zap.Error(err))
		return nil
	}
	now := time.Now()

	w.mu.Lock()
	defer w.mu.Unlock()

	var changed, deleted []Event
	for path, mtime := range newState {
		old, exists := w.state[path]
		switch {
		case !exists:
			changed = append(changed, Event{Type: EventCreate, Path: path, Time: now})
		case mtime != old:
			changed = append(changed, Event{Type: EventModify, Path: path, Time: now})
		}
	}
	for path := range w.state {
		if _, exists := newState[path]; !exists {
			deleted = append(deleted, Event{Type: EventDelete, Path: path, Time: now})
		}
	}
	w.state = newState

	byPath := func(evs []Event) {
		sort.Slice(evs, func(i, j int) bool { return evs[i].Path < evs[j].Path })
	}
	byPath(changed)
	byPath(deleted)
	return append(changed, deleted...)
}

func (w *Watcher) excluded(path string) bool {
	for _, e := range w.exclude {
		if path == e {
			return true
		}
	}
	return false
}

func (w *Watcher) walk() (map[string]int64, error) {
	state := make(map[string]int64)
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == w.root {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if path != w.root && (w.excluded(path) || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		// Hidden files include in-progress temp writes.
		if strings.HasPrefix(d.Name(), ".") || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		state[path] = info.ModTime().UnixNano()
		return nil
	})
	return state, err
}
