package history

import "time"

// MaxEntries bounds the history length.
const MaxEntries = 10

// Entry is one successful upload.
type Entry struct {
	Filename  string `json:"filename"`
	URL       string `json:"url"`
	Timestamp string `json:"timestamp"`
	IsImage   bool   `json:"is_image"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Time parses Timestamp. The zero time is returned when it is malformed.
func (e Entry) Time() time.Time {
	t, err := time.Parse(time.RFC3339, e.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}
