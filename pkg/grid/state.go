package grid

import "errors"

const (
	DefaultCapacity   = 12
	DefaultQuotaLimit = 3
	DefaultMaxPerCall = 3

	// NoDestination marks a reorder gesture that was cancelled
	NoDestination = -1
)

// ErrQuotaExceeded is returned by AddUploads once the upload quota is used up
var ErrQuotaExceeded = errors.New("upload quota exceeded")

// State is an immutable-by-convention snapshot of the grid. Transitions
// return a new State and never modify the Cells slice they were given.
type State struct {
	Capacity            int    `json:"capacity"`
	Cells               []Cell `json:"cells"`
	Quota               Quota  `json:"quota"`
	SelectedForDeletion string `json:"selectedForDeletion,omitempty"`
}

// NewState returns an empty grid
func NewState(capacity, quotaLimit int) State {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if quotaLimit <= 0 {
		quotaLimit = DefaultQuotaLimit
	}
	return State{
		Capacity: capacity,
		Cells:    []Cell{},
		Quota:    Quota{Limit: quotaLimit},
	}
}

// Clone returns a deep copy of s
func (s State) Clone() State {
	out := s
	out.Cells = append([]Cell(nil), s.Cells...)
	if out.Cells == nil {
		out.Cells = []Cell{}
	}
	return out
}

// Uploaded returns the uploaded cells in grid order
func (s State) Uploaded() []Cell {
	return filter(s.Cells, Uploaded)
}

// Fetched returns the fetched cells in grid order
func (s State) Fetched() []Cell {
	return filter(s.Cells, Fetched)
}

// Find returns the index of the cell with id, or -1
func (s State) Find(id string) int {
	for i, c := range s.Cells {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// CanUpload reports whether the quota gate is open
func (s State) CanUpload() bool {
	return !s.Quota.Exhausted()
}

// MergeFetched replaces every fetched cell with one cell per record, keeping
// uploaded cells in front. Records whose id is already taken are skipped.
func MergeFetched(s State, records []Record) State {
	uploaded := s.Uploaded()

	seen := make(map[string]struct{}, len(uploaded)+len(records))
	for _, c := range uploaded {
		seen[c.ID] = struct{}{}
	}

	cells := make([]Cell, 0, len(uploaded)+len(records))
	cells = append(cells, uploaded...)
	for _, r := range records {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		cells = append(cells, Cell{
			ID:       r.ID,
			ImageURL: r.ImageURL,
			Origin:   Fetched,
			Caption:  r.Caption,
		})
	}

	out := s
	out.Cells = truncate(cells, s.Capacity)
	out.SelectedForDeletion = keepSelection(out.Cells, s.SelectedForDeletion)
	return out
}

// AddUploads prepends up to maxPerCall uploaded cells, one per image
// reference, and counts them against the quota. It returns the number of
// references admitted. When the quota is exhausted the state is returned
// unchanged together with ErrQuotaExceeded.
func AddUploads(s State, imageURLs []string, maxPerCall int, newID IDFunc) (State, int, error) {
	if s.Quota.Exhausted() {
		return s, 0, ErrQuotaExceeded
	}
	if maxPerCall <= 0 {
		maxPerCall = DefaultMaxPerCall
	}
	if newID == nil {
		newID = NewUploadID
	}

	admitted := imageURLs
	if len(admitted) > maxPerCall {
		admitted = admitted[:maxPerCall]
	}
	if len(admitted) == 0 {
		return s, 0, nil
	}

	taken := make(map[string]struct{}, len(s.Cells)+len(admitted))
	for _, c := range s.Cells {
		taken[c.ID] = struct{}{}
	}

	cells := make([]Cell, 0, len(admitted)+len(s.Cells))
	for _, url := range admitted {
		id := newID()
		for {
			if _, dup := taken[id]; !dup {
				break
			}
			id = newID()
		}
		taken[id] = struct{}{}
		cells = append(cells, Cell{ID: id, ImageURL: url, Origin: Uploaded})
	}
	cells = append(cells, s.Cells...)

	out := s
	out.Cells = truncate(cells, s.Capacity)
	out.Quota.Count += len(admitted)
	out.SelectedForDeletion = keepSelection(out.Cells, s.SelectedForDeletion)
	return out, len(admitted), nil
}

// ReorderUploaded moves the uploaded cell at source to dest, both indices into
// the uploaded cells only. A cancelled gesture or out-of-range index leaves the
// state unchanged.
func ReorderUploaded(s State, source, dest int) State {
	uploaded := s.Uploaded()
	if dest == NoDestination || source == dest {
		return s
	}
	if source < 0 || source >= len(uploaded) || dest < 0 || dest >= len(uploaded) {
		return s
	}

	moved := uploaded[source]
	reordered := make([]Cell, 0, len(uploaded))
	reordered = append(reordered, uploaded[:source]...)
	reordered = append(reordered, uploaded[source+1:]...)
	reordered = append(reordered[:dest], append([]Cell{moved}, reordered[dest:]...)...)

	out := s
	out.Cells = append(reordered, s.Fetched()...)
	return out
}

// DeleteCell removes the cell with id. Removing an uploaded cell gives one
// upload back to the quota. An unknown id is a no-op.
func DeleteCell(s State, id string) State {
	i := s.Find(id)
	if i < 0 {
		return s
	}

	removed := s.Cells[i]
	cells := make([]Cell, 0, len(s.Cells)-1)
	cells = append(cells, s.Cells[:i]...)
	cells = append(cells, s.Cells[i+1:]...)

	out := s
	out.Cells = cells
	if removed.Origin == Uploaded && out.Quota.Count > 0 {
		out.Quota.Count--
	}
	if out.SelectedForDeletion == id {
		out.SelectedForDeletion = ""
	}
	return out
}

// ToggleDeletion selects id for deletion, or clears the selection when id is
// already selected
func ToggleDeletion(s State, id string) State {
	out := s
	if s.SelectedForDeletion == id {
		out.SelectedForDeletion = ""
	} else {
		out.SelectedForDeletion = id
	}
	return out
}

// ClearSelection drops the deletion selection if it still equals id
func ClearSelection(s State, id string) State {
	if s.SelectedForDeletion != id {
		return s
	}
	out := s
	out.SelectedForDeletion = ""
	return out
}

// ResetQuota zeroes the upload count. Cells are untouched.
func ResetQuota(s State) State {
	out := s
	out.Quota.Count = 0
	return out
}

// Restore rebuilds a grid from saved cells: uploaded cells first, duplicates
// dropped, capacity enforced. Quota starts from zero and nothing is selected.
func Restore(s State, cells []Cell) State {
	seen := make(map[string]struct{}, len(cells))
	var uploaded, fetched []Cell
	for _, c := range cells {
		if _, dup := seen[c.ID]; dup || c.ID == "" {
			continue
		}
		seen[c.ID] = struct{}{}
		if c.Origin == Uploaded {
			uploaded = append(uploaded, c)
		} else {
			fetched = append(fetched, c)
		}
	}

	out := NewState(s.Capacity, s.Quota.Limit)
	out.Cells = truncate(append(uploaded, fetched...), s.Capacity)
	return out
}

func filter(cells []Cell, origin Origin) []Cell {
	out := make([]Cell, 0, len(cells))
	for _, c := range cells {
		if c.Origin == origin {
			out = append(out, c)
		}
	}
	return out
}

func truncate(cells []Cell, capacity int) []Cell {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if len(cells) > capacity {
		return cells[:capacity:capacity]
	}
	return cells
}

func keepSelection(cells []Cell, selected string) string {
	for _, c := range cells {
		if c.ID == selected {
			return selected
		}
	}
	return ""
}
