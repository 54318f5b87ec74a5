package imagesource

import (
	"bytes"
	"encoding/json"
	"strings"

	"gridpreview/pkg/grid"
)

// DefaultCaption is used when a post has no caption upstream
const DefaultCaption = "No caption"

// Post is a normalized post
type Post struct {
	ID       string `json:"id"`
	ImageURL string `json:"imageUrl"`
	Caption  string `json:"caption"`
}

// Image is a fetched image body
type Image struct {
	Data        []byte
	ContentType string
}

// ToRecords converts posts into grid records, keeping their order
func ToRecords(posts []Post) []grid.Record {
	records := make([]grid.Record, 0, len(posts))
	for _, p := range posts {
		records = append(records, grid.Record{ID: p.ID, ImageURL: p.ImageURL, Caption: p.Caption})
	}
	return records
}

// postsResponse is the envelope returned by the /v1/posts endpoint.
// Items is kept raw so a missing or non-array value can be told apart from an
// empty list.
type postsResponse struct {
	Data *struct {
		Items json.RawMessage `json:"items"`
	} `json:"data"`
}

type upstreamPost struct {
	ID            flexibleID `json:"id"`
	ImageVersions *struct {
		Items []struct {
			URL string `json:"url"`
		} `json:"items"`
	} `json:"image_versions"`
	Caption *struct {
		Text string `json:"text"`
	} `json:"caption"`
}

func (p upstreamPost) normalize() Post {
	out := Post{ID: string(p.ID), Caption: DefaultCaption}
	if p.ImageVersions != nil && len(p.ImageVersions.Items) > 0 {
		out.ImageURL = p.ImageVersions.Items[0].URL
	}
	if p.Caption != nil && p.Caption.Text != "" {
		out.Caption = p.Caption.Text
	}
	return out
}

// flexibleID accepts both string and numeric ids
type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return strings.HasPrefix(trimmed, "[")
}
