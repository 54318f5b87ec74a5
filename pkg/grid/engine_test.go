package grid

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gridpreview/pkg/config"
	"gridpreview/pkg/logger"
)

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{delay: d, fn: f}
	s.timers = append(s.timers, t)
	return t
}

// fire runs timer i the way time.AfterFunc would, skipping stopped timers
func (s *fakeScheduler) fire(i int) {
	s.mu.Lock()
	t := s.timers[i]
	run := !t.stopped && !t.fired
	t.fired = true
	s.mu.Unlock()
	if run {
		t.fn()
	}
}

// fireRaced runs timer i even if it was stopped, as happens when Stop races
// with a timer that has already started
func (s *fakeScheduler) fireRaced(i int) {
	s.mu.Lock()
	t := s.timers[i]
	s.mu.Unlock()
	t.fn()
}

func (s *fakeScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func newTestEngine(t *testing.T) (*Engine, *fakeScheduler) {
	t.Helper()
	sched := &fakeScheduler{}
	e := NewEngine(Options{
		Capacity:      12,
		QuotaLimit:    3,
		MaxPerCall:    3,
		DeletionDelay: 5 * time.Second,
		NewID:         counterIDs(),
		AfterFunc:     sched.AfterFunc,
		Logger:        logger.NewTestLogger(),
	})
	t.Cleanup(e.Close)
	return e, sched
}

func TestEngineScenarios(t *testing.T) {
	e, _ := newTestEngine(t)

	s := e.MergeFetched(records(9))
	require.Len(t, s.Cells, 9)

	s, admitted, err := e.AddUploads([]string{"a", "b", "c", "d"})
	require.NoError(t, err)
	assert.Equal(t, 3, admitted)
	assert.Len(t, s.Cells, 12)
	assert.Equal(t, 3, s.Quota.Count)
	assert.False(t, e.CanUpload())

	_, _, err = e.AddUploads([]string{"e"})
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	e.ResetQuota()
	assert.True(t, e.CanUpload())

	s = e.DeleteCell("uploaded-2")
	assert.Equal(t, -1, s.Find("uploaded-2"))
	assert.Equal(t, 0, s.Quota.Count)
}

func TestEngineStateIsACopy(t *testing.T) {
	e, _ := newTestEngine(t)
	e.MergeFetched(records(2))

	s := e.State()
	s.Cells[0].ID = "mutated"
	assert.Equal(t, "post-1", e.State().Cells[0].ID)
}

func TestToggleSchedulesAutoClear(t *testing.T) {
	e, sched := newTestEngine(t)
	e.MergeFetched(records(3))

	s := e.ToggleDeletion("post-1")
	assert.Equal(t, "post-1", s.SelectedForDeletion)
	require.Equal(t, 1, sched.count())
	assert.Equal(t, 5*time.Second, sched.timers[0].delay)

	sched.fire(0)
	assert.Empty(t, e.State().SelectedForDeletion)
}

func TestToggleTwiceCancelsTimer(t *testing.T) {
	e, sched := newTestEngine(t)
	e.MergeFetched(records(3))

	e.ToggleDeletion("post-1")
	s := e.ToggleDeletion("post-1")

	assert.Empty(t, s.SelectedForDeletion)
	require.Equal(t, 1, sched.count(), "clearing does not schedule another timer")
	assert.True(t, sched.timers[0].stopped)
}

func TestStaleClearNeverClearsNewerSelection(t *testing.T) {
	e, sched := newTestEngine(t)
	e.MergeFetched(records(3))

	e.ToggleDeletion("post-1")
	e.ToggleDeletion("post-2")
	require.Equal(t, 2, sched.count())
	assert.True(t, sched.timers[0].stopped)

	// the first timer slipped past Stop
	sched.fireRaced(0)
	assert.Equal(t, "post-2", e.State().SelectedForDeletion)

	sched.fire(1)
	assert.Empty(t, e.State().SelectedForDeletion)
}

func TestReselectingSameCellAfterClearUsesFreshTimer(t *testing.T) {
	e, sched := newTestEngine(t)
	e.MergeFetched(records(1))

	e.ToggleDeletion("post-1")
	e.ToggleDeletion("post-1")
	e.ToggleDeletion("post-1")
	require.Equal(t, 2, sched.count())

	sched.fireRaced(0)
	assert.Equal(t, "post-1", e.State().SelectedForDeletion, "old timer belongs to an older selection")

	sched.fire(1)
	assert.Empty(t, e.State().SelectedForDeletion)
}

func TestDeleteCancelsPendingClear(t *testing.T) {
	e, sched := newTestEngine(t)
	e.MergeFetched(records(3))

	e.ToggleDeletion("post-2")
	s := e.DeleteCell("post-2")

	assert.Empty(t, s.SelectedForDeletion)
	assert.True(t, sched.timers[0].stopped)

	e.ToggleDeletion("post-3")
	sched.fireRaced(0)
	assert.Equal(t, "post-3", e.State().SelectedForDeletion)
}

func TestRestoreCancelsPendingClear(t *testing.T) {
	e, sched := newTestEngine(t)
	e.MergeFetched(records(2))
	e.AddUploads([]string{"a"})
	e.ToggleDeletion("post-1")

	s := e.Restore([]Cell{{ID: "post-9", Origin: Fetched}, {ID: "u", Origin: Uploaded}})

	assert.Equal(t, []string{"u", "post-9"}, ids(s.Cells))
	assert.Equal(t, 0, s.Quota.Count)
	assert.Empty(t, s.SelectedForDeletion)
	assert.True(t, sched.timers[0].stopped)
}

func TestSubscribersReceiveSnapshots(t *testing.T) {
	e, sched := newTestEngine(t)

	var (
		mu    sync.Mutex
		snaps []State
	)
	unsubscribe := e.Subscribe(func(s State) {
		mu.Lock()
		snaps = append(snaps, s)
		mu.Unlock()
	})

	e.MergeFetched(records(2))
	e.DeleteCell("missing")
	e.ToggleDeletion("post-1")
	sched.fire(0)

	mu.Lock()
	require.Len(t, snaps, 3, "no-op transitions are not published")
	assert.Len(t, snaps[0].Cells, 2)
	assert.Equal(t, "post-1", snaps[1].SelectedForDeletion)
	assert.Empty(t, snaps[2].SelectedForDeletion)
	mu.Unlock()

	unsubscribe()
	e.ResetQuota()
	e.MergeFetched(records(1))

	mu.Lock()
	assert.Len(t, snaps, 3)
	mu.Unlock()
}

func TestEngineLogsTransitions(t *testing.T) {
	tl := logger.NewTestLogger()
	e := NewEngine(Options{Logger: tl, AfterFunc: (&fakeScheduler{}).AfterFunc})

	e.MergeFetched(records(1))

	msgs := tl.GetMessagesByLevel("DEBUG")
	require.Len(t, msgs, 1)
	assert.Equal(t, "merge_fetched", msgs[0].Fields["grid_event"])
	assert.Equal(t, "grid", msgs[0].Fields["component"])
}

func TestNewEngineDefaults(t *testing.T) {
	e := NewEngine(OptionsFromConfig(config.GridConfig{Capacity: 9, QuotaLimit: 3, MaxPerUpload: 3, DeletionDelay: time.Second}))
	defer e.Close()

	s := e.State()
	assert.Equal(t, 9, s.Capacity)
	assert.Equal(t, 3, s.Quota.Limit)
	assert.NotNil(t, s.Cells)
}

func TestEngineRealTimerClearsSelection(t *testing.T) {
	e := NewEngine(Options{DeletionDelay: 10 * time.Millisecond})
	defer e.Close()
	e.MergeFetched(records(1))

	e.ToggleDeletion("post-1")
	assert.Eventually(t, func() bool {
		return e.State().SelectedForDeletion == ""
	}, time.Second, 5*time.Millisecond)
}

func TestEngineConcurrentUse(t *testing.T) {
	e := NewEngine(Options{Capacity: 12, QuotaLimit: 1000, DeletionDelay: time.Millisecond})
	defer e.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				switch j % 4 {
				case 0:
					e.MergeFetched(records(i + 3))
				case 1:
					e.AddUploads([]string{"x"})
				case 2:
					s := e.State()
					if len(s.Cells) > 0 {
						e.ToggleDeletion(s.Cells[0].ID)
					}
				case 3:
					e.ReorderUploaded(0, 1)
				}
			}
		}(i)
	}
	wg.Wait()

	s := e.State()
	assert.LessOrEqual(t, len(s.Cells), 12)
	assertUploadedFirst(t, s)
	assertUniqueIDs(t, s)
}
