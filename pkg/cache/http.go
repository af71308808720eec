package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultRetention is how long a page is kept for revalidation when HubSpot
// sends no Expires header, or one that is earlier.
const DefaultRetention = 10 * time.Minute

// FromResponse builds an entry from resp. The body is read and put back so
// the caller can still consume it.
func FromResponse(resp *http.Response) (*Entry, error) {
	if resp == nil {
		return nil, errors.New("response is nil")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	entry := &Entry{
		Body:        body,
		Status:      resp.StatusCode,
		Header:      resp.Header.Clone(),
		ETag:        resp.Header.Get("ETag"),
		StoredAt:    time.Now(),
		RetainUntil: retainUntil(resp.Header),
	}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			entry.LastModified = t
		}
	}
	return entry, nil
}

// Response replays the entry as a response to req.
func (e *Entry) Response(req *http.Request) *http.Response {
	header := e.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	status := e.Status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}

// ApplyValidators makes req conditional on the entry. ETag wins over
// Last-Modified. It reports whether a header was set.
func (e *Entry) ApplyValidators(req *http.Request) bool {
	if req == nil || !e.Revalidatable() {
		return false
	}
	if e.ETag != "" {
		req.Header.Set("If-None-Match", e.ETag)
	} else {
		req.Header.Set("If-Modified-Since", e.LastModified.UTC().Format(http.TimeFormat))
	}
	conditionalRequests.Inc()
	return true
}

// Refresh records a 304 Not Modified for key and keeps the page for as long
// as the 304's headers allow.
func (s *Store) Refresh(ctx context.Context, key Key, header http.Header) error {
	NotModifiedResponses.Inc()
	return s.Extend(ctx, key, retainUntil(header))
}

// retainUntil returns the later of the Expires header and now plus
// DefaultRetention. Pages are only replayed after revalidation, so keeping
// them past Expires is safe.
func retainUntil(header http.Header) time.Time {
	fallback := time.Now().Add(DefaultRetention)

	raw := header.Get("Expires")
	if raw == "" {
		return fallback
	}
	expires, err := http.ParseTime(raw)
	if err != nil || expires.Before(fallback) {
		return fallback
	}
	return expires
}
