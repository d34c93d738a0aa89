package tracker

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zjrosen/povtrack/internal/log"
	"github.com/zjrosen/povtrack/internal/workflow"
)

// StoreWatcher watches the slot store file for writes by other povtrack
// processes and signals on C after a debounce window, so a burst of writes
// collapses into one refresh.
type StoreWatcher struct {
	C chan struct{}

	store    workflow.SlotStore
	slotKey  string
	fw       *fsnotify.Watcher
	debounce time.Duration

	mu      sync.Mutex
	pending *time.Timer
	closed  bool
}

// NewStoreWatcher watches the database file at path. SQLite writes land in
// the WAL next to the main file, so the whole parent directory is watched
// and events are filtered by prefix.
func NewStoreWatcher(path string, store workflow.SlotStore, slotKey string, debounce time.Duration) (*StoreWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating store watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watching store directory: %w", err)
	}

	w := &StoreWatcher{
		C:        make(chan struct{}, 1),
		store:    store,
		slotKey:  slotKey,
		fw:       fw,
		debounce: debounce,
	}
	go w.loop(path)
	return w, nil
}

func (w *StoreWatcher) loop(path string) {
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			// Match the db file and its -wal/-shm companions.
			if filepath.Base(event.Name) == filepath.Base(path) ||
				filepath.Base(event.Name) == filepath.Base(path)+"-wal" {
				w.schedule()
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.ErrorErr(log.CatUI, "Store watcher error", err)
		}
	}
}

// schedule arms the debounce timer, replacing any pending one.
func (w *StoreWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(w.debounce, w.fire)
}

// fire sends on C while holding the mutex, so Close cannot close the channel
// between the closed check and the send.
func (w *StoreWatcher) fire() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.C <- struct{}{}:
	default:
	}
}

// LoadRecents reads the persisted snapshot and returns its recent-reports
// cache. Returns false when the slot is absent or unreadable.
func (w *StoreWatcher) LoadRecents() ([]workflow.RecentReport, bool) {
	payload, err := w.store.Load(w.slotKey)
	if err != nil {
		return nil, false
	}
	state := workflow.HydrateState(workflow.NewState(), payload)
	return state.RecentReports, true
}

// Close stops the watcher and closes C. C is closed under the same mutex
// that guards fire's send, so a late debounce timer can never hit a closed
// channel.
func (w *StoreWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.pending != nil {
		w.pending.Stop()
	}
	close(w.C)
	w.mu.Unlock()

	return w.fw.Close()
}
