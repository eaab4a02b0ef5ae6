package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces bursts of file events (editors often write,
// truncate, and rename in quick succession) into one cache flush.
const reloadDebounce = 500 * time.Millisecond

// Watcher invalidates the store cache when rule files change on disk,
// so edits made outside the running process take effect without a
// restart.
type Watcher struct {
	store    *Store
	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	wg       sync.WaitGroup
	onReload func()

	debounce     time.Duration
	pendingTimer *time.Timer
	timerMu      sync.Mutex
}

// NewWatcher creates a watcher for the store's rule files.
func NewWatcher(st *Store) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	return &Watcher{
		store:    st,
		watcher:  fsw,
		stopChan: make(chan struct{}),
		debounce: reloadDebounce,
	}, nil
}

// OnReload registers a callback invoked after each cache flush. Set it
// before Start.
func (w *Watcher) OnReload(fn func()) {
	w.onReload = fn
}

// Start begins watching the profile root, every existing profile
// directory, and the directory holding the global rule file. Missing
// directories are skipped with a warning; they are picked up once
// created under a watched parent.
func (w *Watcher) Start() error {
	w.addDir(w.store.profileRoot)
	for _, name := range w.store.Profiles() {
		w.addDir(filepath.Join(w.store.profileRoot, name))
	}
	globalDir := filepath.Dir(w.store.globalPath)
	if globalDir != w.store.profileRoot {
		w.addDir(globalDir)
	}

	w.wg.Add(1)
	go w.run()
	log.Debug("watching trust rule files under %s", w.store.profileRoot)
	return nil
}

func (w *Watcher) addDir(dir string) {
	if err := w.watcher.Add(dir); err != nil {
		log.Warn("cannot watch %s: %v", dir, err)
	}
}

// Stop halts the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	close(w.stopChan)
	w.wg.Wait()

	w.timerMu.Lock()
	if w.pendingTimer != nil {
		w.pendingTimer.Stop()
		w.pendingTimer = nil
	}
	w.timerMu.Unlock()

	return w.watcher.Close()
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("file watcher error: %v", err)
		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// A directory created under the profile root is a new profile;
	// watch it so its rule file is covered too.
	if event.Op.Has(fsnotify.Create) && filepath.Dir(event.Name) == w.store.profileRoot {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.addDir(event.Name)
			return
		}
	}

	if !w.isRuleFile(event.Name) {
		return
	}
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return
	}

	log.Trace("rule file event: %s %s", event.Op, event.Name)
	w.scheduleReload()
}

func (w *Watcher) isRuleFile(path string) bool {
	if path == w.store.globalPath {
		return true
	}
	return filepath.Base(path) == contextFile
}

// scheduleReload arms the debounce timer, replacing any pending one.
func (w *Watcher) scheduleReload() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.pendingTimer != nil {
		w.pendingTimer.Stop()
	}
	w.pendingTimer = time.AfterFunc(w.debounce, w.doReload)
}

func (w *Watcher) doReload() {
	w.store.InvalidateAll()
	log.Info("trust rules changed on disk, cache flushed")
	if w.onReload != nil {
		w.onReload()
	}
}
