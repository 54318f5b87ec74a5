package grid

import (
	"sync"
	"time"

	"gridpreview/pkg/config"
	"gridpreview/pkg/logger"
)

// Timer is the part of *time.Timer the engine needs
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run once after d
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Options configures an Engine
type Options struct {
	Capacity      int
	QuotaLimit    int
	MaxPerCall    int
	DeletionDelay time.Duration

	// NewID generates uploaded cell ids; defaults to NewUploadID
	NewID IDFunc
	// AfterFunc schedules the deletion auto-clear; defaults to time.AfterFunc
	AfterFunc AfterFunc
	Logger    logger.Logger
}

// OptionsFromConfig maps the grid configuration onto engine options
func OptionsFromConfig(cfg config.GridConfig) Options {
	return Options{
		Capacity:      cfg.Capacity,
		QuotaLimit:    cfg.QuotaLimit,
		MaxPerCall:    cfg.MaxPerUpload,
		DeletionDelay: cfg.DeletionDelay,
	}
}

// Engine owns the current grid state. All methods are safe for concurrent
// use; each one runs a single transition to completion before the next.
type Engine struct {
	mu            sync.Mutex
	state         State
	maxPerCall    int
	deletionDelay time.Duration
	newID         IDFunc
	afterFunc     AfterFunc
	pendingClear  Timer
	generation    uint64

	// notifyMu keeps snapshot delivery in transition order
	notifyMu    sync.Mutex
	subscribers map[int]func(State)
	nextSub     int

	log logger.Logger
}

// NewEngine creates an engine with an empty grid
func NewEngine(opts Options) *Engine {
	if opts.MaxPerCall <= 0 {
		opts.MaxPerCall = DefaultMaxPerCall
	}
	if opts.DeletionDelay <= 0 {
		opts.DeletionDelay = 5 * time.Second
	}
	if opts.NewID == nil {
		opts.NewID = NewUploadID
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = realAfterFunc
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}

	return &Engine{
		state:         NewState(opts.Capacity, opts.QuotaLimit),
		maxPerCall:    opts.MaxPerCall,
		deletionDelay: opts.DeletionDelay,
		newID:         opts.NewID,
		afterFunc:     opts.AfterFunc,
		subscribers:   make(map[int]func(State)),
		log:           opts.Logger.WithField("component", "grid"),
	}
}

// State returns a copy of the current state
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// CanUpload reports whether AddUploads would currently be accepted
func (e *Engine) CanUpload() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.CanUpload()
}

// MaxPerCall is the most uploads a single AddUploads call admits
func (e *Engine) MaxPerCall() int {
	return e.maxPerCall
}

// Subscribe registers fn to receive a snapshot after every transition that
// changes the state. fn must not call back into the engine synchronously.
// The returned function removes the subscription.
func (e *Engine) Subscribe(fn func(State)) (unsubscribe func()) {
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()

	id := e.nextSub
	e.nextSub++
	e.subscribers[id] = fn

	return func() {
		e.notifyMu.Lock()
		defer e.notifyMu.Unlock()
		delete(e.subscribers, id)
	}
}

// MergeFetched replaces the fetched cells with records
func (e *Engine) MergeFetched(records []Record) State {
	return e.apply("merge_fetched", func(s State) State {
		return MergeFetched(s, records)
	}, map[string]interface{}{"records": len(records)})
}

// AddUploads prepends uploaded cells for up to MaxPerCall image references
func (e *Engine) AddUploads(imageURLs []string) (State, int, error) {
	var (
		admitted int
		err      error
	)
	snap := e.apply("add_uploads", func(s State) State {
		var next State
		next, admitted, err = AddUploads(s, imageURLs, e.maxPerCall, e.newID)
		return next
	}, map[string]interface{}{"requested": len(imageURLs)})
	return snap, admitted, err
}

// ReorderUploaded moves an uploaded cell within the uploaded cells
func (e *Engine) ReorderUploaded(source, dest int) State {
	return e.apply("reorder", func(s State) State {
		return ReorderUploaded(s, source, dest)
	}, map[string]interface{}{"source": source, "dest": dest})
}

// DeleteCell removes a cell. A pending auto-clear for that cell is cancelled.
func (e *Engine) DeleteCell(id string) State {
	return e.apply("delete", func(s State) State {
		next := DeleteCell(s, id)
		if s.SelectedForDeletion == id {
			e.cancelPendingLocked()
		}
		return next
	}, map[string]interface{}{"id": id})
}

// ToggleDeletion toggles the deletion affordance for id. Any previously
// scheduled clear is cancelled; a new one is scheduled when a cell is left
// selected.
func (e *Engine) ToggleDeletion(id string) State {
	return e.apply("toggle_deletion", func(s State) State {
		next := ToggleDeletion(s, id)
		e.cancelPendingLocked()
		if next.SelectedForDeletion != "" {
			e.scheduleClearLocked(next.SelectedForDeletion)
		}
		return next
	}, map[string]interface{}{"id": id})
}

// ResetQuota handles the quota unlocked event
func (e *Engine) ResetQuota() State {
	return e.apply("reset_quota", ResetQuota, nil)
}

// Restore replaces the grid with saved cells
func (e *Engine) Restore(cells []Cell) State {
	return e.apply("restore", func(s State) State {
		e.cancelPendingLocked()
		return Restore(s, cells)
	}, map[string]interface{}{"cells": len(cells)})
}

// Close cancels the pending auto-clear, if any
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelPendingLocked()
}

func (e *Engine) scheduleClearLocked(id string) {
	gen := e.generation
	e.pendingClear = e.afterFunc(e.deletionDelay, func() {
		e.apply("auto_clear", func(s State) State {
			// a later toggle or delete bumped the generation
			if e.generation != gen {
				return s
			}
			e.pendingClear = nil
			return ClearSelection(s, id)
		}, map[string]interface{}{"id": id})
	})
}

func (e *Engine) cancelPendingLocked() {
	e.generation++
	if e.pendingClear != nil {
		e.pendingClear.Stop()
		e.pendingClear = nil
	}
}

func (e *Engine) apply(event string, transition func(State) State, fields map[string]interface{}) State {
	e.mu.Lock()
	prev := e.state
	e.state = transition(e.state)
	snap := e.state.Clone()
	changed := !sameState(prev, e.state)

	e.notifyMu.Lock()
	e.mu.Unlock()
	defer e.notifyMu.Unlock()

	if !changed {
		return snap
	}

	logFields := map[string]interface{}{
		"cells":       len(snap.Cells),
		"quota_count": snap.Quota.Count,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	e.log.WithField("grid_event", event).DebugWithFields("Grid updated", logFields)

	for _, fn := range e.subscribers {
		fn(snap.Clone())
	}
	return snap
}

func sameState(a, b State) bool {
	if a.Capacity != b.Capacity || a.Quota != b.Quota || a.SelectedForDeletion != b.SelectedForDeletion {
		return false
	}
	if len(a.Cells) != len(b.Cells) {
		return false
	}
	for i := range a.Cells {
		if a.Cells[i] != b.Cells[i] {
			return false
		}
	}
	return true
}
