package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
)

// StatusTracker keeps track of a batch of image fetches
type StatusTracker struct {
	mu        sync.Mutex
	Total     int
	Completed int
	Failed    int
	StartTime time.Time
}

// NewStatusTracker creates a tracker expecting total items
func NewStatusTracker(total int) *StatusTracker {
	return &StatusTracker{
		Total:     total,
		StartTime: time.Now(),
	}
}

// Record counts one finished item
func (st *StatusTracker) Record(err error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if err != nil {
		st.Failed++
		return
	}
	st.Completed++
}

// Done reports whether every expected item has finished
func (st *StatusTracker) Done() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.Completed+st.Failed >= st.Total
}

// GetProgress returns a formatted progress bar
func (st *StatusTracker) GetProgress() string {
	st.mu.Lock()
	defer st.mu.Unlock()

	const width = 20
	finished := st.Completed + st.Failed
	filled := width
	if st.Total > 0 {
		filled = finished * width / st.Total
	}
	if filled > width {
		filled = width
	}

	bar := strings.Repeat(ProgressBar, filled) +
		strings.Repeat(ProgressEmpty, width-filled)

	return fmt.Sprintf("[%s] %d/%d", bar, finished, st.Total)
}

// GetElapsedTime returns the elapsed time since tracking started
func (st *StatusTracker) GetElapsedTime() time.Duration {
	return time.Since(st.StartTime)
}

// PrintProgress prints the current progress on one line
func (st *StatusTracker) PrintProgress() {
	fmt.Printf("\r%s %s", Green("[WARMING]"), st.GetProgress())
}

// PrintSummary prints the final counts
func (st *StatusTracker) PrintSummary() {
	st.mu.Lock()
	completed, failed := st.Completed, st.Failed
	st.mu.Unlock()

	fmt.Printf("\n%s cached %d, failed %d in %s\n",
		Magenta("[DONE]"), completed, failed, st.GetElapsedTime().Round(time.Millisecond))
}
