package engine

import (
	"context"
	"sync"
	"time"

	"github.com/Weynie/van-construction-web-sub000/pkg/template"
	"github.com/Weynie/van-construction-web-sub000/pkg/types"
)

// tabWriter coalesces content fragments for one tab and writes them once
// the quiet window has passed without a new fragment.
type tabWriter struct {
	engine *Engine
	window time.Duration

	mu      sync.Mutex
	tabID   string
	pending types.Content
	timer   *time.Timer
	// epoch advances on cancel so a failed write is not requeued over
	// content that has since been replaced
	epoch uint64

	// sendMu keeps writes for the same tab strictly ordered
	sendMu sync.Mutex
}

func (w *tabWriter) add(fragment types.Content) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = template.MergeFragments(w.pending, fragment)
	if w.timer == nil {
		w.timer = time.AfterFunc(w.window, w.onTimer)
		return
	}
	w.timer.Reset(w.window)
}

func (w *tabWriter) onTimer() {
	_ = w.flush(context.Background())
}

// flush writes whatever is pending now
func (w *tabWriter) flush(ctx context.Context) error {
	w.sendMu.Lock()
	defer w.sendMu.Unlock()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	delta := w.pending
	tabID := w.tabID
	epoch := w.epoch
	w.pending = nil
	w.mu.Unlock()

	if len(delta) == 0 {
		return nil
	}
	err := w.engine.persist(ctx, tabID, delta, modeUpdate)
	if err != nil {
		w.requeue(delta, epoch)
	}
	return err
}

// requeue puts a failed delta back underneath fragments that arrived while
// it was in flight. The next flush sends both.
func (w *tabWriter) requeue(failed types.Content, epoch uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.epoch != epoch {
		return
	}
	w.pending = template.MergeFragments(failed, w.pending)
}

// cancel drops pending content without writing it
func (w *tabWriter) cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.pending = nil
	w.epoch++
}

func (w *tabWriter) hasPending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending) > 0
}

func (w *tabWriter) setTabID(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tabID = id
}

// writer returns the writer for a tab, creating it on first use
func (e *Engine) writer(tabID string) *tabWriter {
	e.writersMu.Lock()
	defer e.writersMu.Unlock()

	w, ok := e.writers[tabID]
	if !ok {
		w = &tabWriter{engine: e, window: e.debounce, tabID: tabID}
		e.writers[tabID] = w
	}
	return w
}

// renameWriter rekeys a writer created under a temporary id
func (e *Engine) renameWriter(tempID, realID string) {
	e.writersMu.Lock()
	defer e.writersMu.Unlock()

	w, ok := e.writers[tempID]
	if !ok {
		return
	}
	delete(e.writers, tempID)
	w.setTabID(realID)
	e.writers[realID] = w
}

// dropWriters cancels and forgets the writers of the given tabs
func (e *Engine) dropWriters(tabIDs ...string) {
	e.writersMu.Lock()
	defer e.writersMu.Unlock()

	for _, id := range tabIDs {
		if w, ok := e.writers[id]; ok {
			w.cancel()
			delete(e.writers, id)
		}
	}
}

// Flush writes all pending debounced content immediately. It returns the
// first error encountered; every tab is attempted.
func (e *Engine) Flush(ctx context.Context) error {
	e.writersMu.Lock()
	writers := make([]*tabWriter, 0, len(e.writers))
	for _, w := range e.writers {
		writers = append(writers, w)
	}
	e.writersMu.Unlock()

	var first error
	for _, w := range writers {
		if err := w.flush(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
