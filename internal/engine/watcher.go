package engine

import (
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/quickfind/go-fuzzy-engine/model"
)

const (
	// rescanDebounce is how long the watcher waits after the last filesystem
	// event before rescanning, so bursts of changes produce a single rescan.
	rescanDebounce = 2 * time.Second

	// maxWatchedDirsPerTree bounds the inotify watches a single worktree can
	// consume.
	maxWatchedDirsPerTree = 4096
)

// watcher triggers rescans of worktrees whose files change on disk.
type watcher struct {
	engine *Engine
	fsw    *fsnotify.Watcher

	mu    sync.Mutex
	roots map[string]string   // worktree name -> root path
	dirs  map[string][]string // worktree name -> watched directories
	dirty map[string]bool     // worktree names pending rescan
	timer *time.Timer

	done chan struct{}
}

func newWatcher(e *Engine) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &watcher{
		engine: e,
		fsw:    fsw,
		roots:  make(map[string]string),
		dirs:   make(map[string][]string),
		dirty:  make(map[string]bool),
		done:   make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Watch starts watching a worktree's root directory. Subdirectories are
// registered after each scan via WatchSubdirs.
func (w *watcher) Watch(name, root string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, watching := w.roots[name]; watching {
		return
	}
	if err := w.fsw.Add(root); err != nil {
		log.Printf("Warning: failed to watch %s for worktree '%s': %v", root, name, err)
		return
	}
	w.roots[name] = root
	w.dirs[name] = []string{root}
	log.Printf("Watching worktree '%s' at %s", name, root)
}

// WatchSubdirs registers watches for the directories found by a scan,
// replacing the worktree's previous directory watches.
func (w *watcher) WatchSubdirs(name, root string, entries []model.PathEntry) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, watching := w.roots[name]; !watching {
		return
	}

	for _, dir := range w.dirs[name] {
		if dir != root {
			_ = w.fsw.Remove(dir)
		}
	}

	dirs := []string{root}
	for _, entry := range entries {
		if !entry.IsDir {
			continue
		}
		if len(dirs) >= maxWatchedDirsPerTree {
			log.Printf("Warning: worktree '%s' exceeds %d directories; deeper changes will not trigger rescans", name, maxWatchedDirsPerTree)
			break
		}
		dir := filepath.Join(root, filepath.FromSlash(entry.Path))
		if err := w.fsw.Add(dir); err != nil {
			// Directories can vanish between scan and watch registration.
			continue
		}
		dirs = append(dirs, dir)
	}
	w.dirs[name] = dirs
}

// Unwatch removes all watches for a worktree.
func (w *watcher) Unwatch(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, dir := range w.dirs[name] {
		_ = w.fsw.Remove(dir)
	}
	delete(w.dirs, name)
	delete(w.roots, name)
	delete(w.dirty, name)
}

// Stop shuts the watcher down and waits for its event loop to exit.
func (w *watcher) Stop() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	_ = w.fsw.Close()
	<-w.done
}

func (w *watcher) run() {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("Warning: filesystem watcher error: %v", err)
		}
	}
}

// handleEvent maps an event to its worktree and schedules a debounced
// rescan.
func (w *watcher) handleEvent(event fsnotify.Event) {
	// Chmod-only events carry no content change worth rescanning for.
	if event.Op == fsnotify.Chmod {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for name, root := range w.roots {
		if event.Name == root || strings.HasPrefix(event.Name, root+string(filepath.Separator)) {
			w.dirty[name] = true
		}
	}
	if len(w.dirty) == 0 {
		return
	}

	if w.timer == nil {
		w.timer = time.AfterFunc(rescanDebounce, w.flush)
	} else {
		w.timer.Reset(rescanDebounce)
	}
}

// flush rescans every worktree marked dirty since the last flush.
func (w *watcher) flush() {
	w.mu.Lock()
	names := make([]string, 0, len(w.dirty))
	for name := range w.dirty {
		names = append(names, name)
	}
	w.dirty = make(map[string]bool)
	w.mu.Unlock()

	for _, name := range names {
		log.Printf("Filesystem changes detected in worktree '%s', rescanning", name)
		if _, err := w.engine.RescanWorktree(name); err != nil {
			log.Printf("Warning: failed to rescan worktree '%s': %v", name, err)
		}
	}
}
