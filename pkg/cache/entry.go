package cache

import (
	"net/http"
	"time"
)

// Entry is a stored list page together with its validators.
type Entry struct {
	Body         []byte      `json:"body"`
	Status       int         `json:"status"`
	Header       http.Header `json:"header"`
	ETag         string      `json:"etag,omitempty"`
	LastModified time.Time   `json:"last_modified,omitempty"`
	StoredAt     time.Time   `json:"stored_at"`

	// RetainUntil is when Redis drops the entry, as of the last Save.
	RetainUntil time.Time `json:"retain_until"`
}

// Remaining returns how long the entry is kept, or 0 once it is due.
func (e *Entry) Remaining() time.Duration {
	if e == nil {
		return 0
	}
	if d := time.Until(e.RetainUntil); d > 0 {
		return d
	}
	return 0
}

// Revalidatable reports whether HubSpot can answer a request for this entry
// with 304 Not Modified.
func (e *Entry) Revalidatable() bool {
	return e != nil && (e.ETag != "" || !e.LastModified.IsZero())
}
