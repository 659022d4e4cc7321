package matching

import (
	"sync"
	"time"
)

// DefaultDebounceWindow is how long ledger writes wait for further changes.
const DefaultDebounceWindow = 2 * time.Second

// Timer is a pending scheduled call.
type Timer interface {
	// Stop prevents the call from running; it reports false if the call already
	// started or was stopped.
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SyncKey identifies one debounced ledger: a member within a group.
type SyncKey struct {
	GroupID  string
	MemberID string
}

type pendingSync struct {
	seq   uint64
	timer Timer
	run   func()
}

// Debouncer keeps at most one pending task per SyncKey. Scheduling a key that
// already has a pending task stops it and starts the window again.
type Debouncer struct {
	window time.Duration
	sched  Scheduler

	mu      sync.Mutex
	seq     uint64
	pending map[SyncKey]*pendingSync
}

// NewDebouncer creates a Debouncer. A nil scheduler uses real timers.
func NewDebouncer(window time.Duration, sched Scheduler) *Debouncer {
	if sched == nil {
		sched = wallClock{}
	}
	return &Debouncer{
		window:  window,
		sched:   sched,
		pending: make(map[SyncKey]*pendingSync),
	}
}

// Schedule replaces any pending task for key with run, due one window from now.
func (d *Debouncer) Schedule(key SyncKey, run func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.pending[key]; ok {
		prev.timer.Stop()
	}
	d.seq++
	task := &pendingSync{seq: d.seq, run: run}
	seq := task.seq
	task.timer = d.sched.AfterFunc(d.window, func() { d.fire(key, seq) })
	d.pending[key] = task
}

// fire runs the task if it is still the current one for key. A timer whose Stop
// came too late finds a newer sequence number and does nothing.
func (d *Debouncer) fire(key SyncKey, seq uint64) {
	d.mu.Lock()
	task, ok := d.pending[key]
	if !ok || task.seq != seq {
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.mu.Unlock()

	task.run()
}

// Cancel drops the pending task for key. It reports whether one was pending.
func (d *Debouncer) Cancel(key SyncKey) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	task, ok := d.pending[key]
	if !ok {
		return false
	}
	task.timer.Stop()
	delete(d.pending, key)
	return true
}

// Pending reports whether key has a task waiting.
func (d *Debouncer) Pending(key SyncKey) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// Flush runs every pending task now, in no particular order.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	tasks := make([]*pendingSync, 0, len(d.pending))
	for key, task := range d.pending {
		task.timer.Stop()
		tasks = append(tasks, task)
		delete(d.pending, key)
	}
	d.mu.Unlock()

	for _, task := range tasks {
		task.run()
	}
}
