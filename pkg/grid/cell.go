package grid

import (
	"fmt"

	"github.com/google/uuid"
)

// Origin tells where a cell's image came from
type Origin int

const (
	Uploaded Origin = iota
	Fetched
)

func (o Origin) String() string {
	switch o {
	case Uploaded:
		return "uploaded"
	case Fetched:
		return "fetched"
	default:
		return fmt.Sprintf("origin(%d)", int(o))
	}
}

func (o Origin) MarshalText() ([]byte, error) {
	switch o {
	case Uploaded, Fetched:
		return []byte(o.String()), nil
	default:
		return nil, fmt.Errorf("unknown origin %d", int(o))
	}
}

func (o *Origin) UnmarshalText(text []byte) error {
	switch string(text) {
	case "uploaded":
		*o = Uploaded
	case "fetched":
		*o = Fetched
	default:
		return fmt.Errorf("unknown origin %q", text)
	}
	return nil
}

// Cell is one tile of the grid
type Cell struct {
	ID       string `json:"id"`
	ImageURL string `json:"imageUrl"`
	Origin   Origin `json:"origin"`
	Caption  string `json:"caption,omitempty"`
}

// Record is a normalized post as returned by the image source
type Record struct {
	ID       string `json:"id"`
	ImageURL string `json:"imageUrl"`
	Caption  string `json:"caption"`
}

// Quota counts uploads since the last reset
type Quota struct {
	Count int `json:"count"`
	Limit int `json:"limit"`
}

// Exhausted reports whether further uploads must be refused. A
// non-positive Limit means DefaultQuotaLimit.
func (q Quota) Exhausted() bool {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultQuotaLimit
	}
	return q.Count >= limit
}

// IDFunc returns a fresh identifier for an uploaded cell
type IDFunc func() string

// NewUploadID is the default IDFunc
func NewUploadID() string {
	return "uploaded-" + uuid.NewString()
}
