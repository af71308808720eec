// Package testutil provides testing utilities for the HubSpot lists client.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock HubSpot endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is a request received by MockHubSpot.
type RecordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Query    url.Values
	Header   http.Header
	Body     []byte
}

// MockHubSpot is a configurable mock HubSpot server for testing.
type MockHubSpot struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	members  map[int64][]int64
	versions map[int64]int
	requests []RecordedRequest

	conditionalCount int
}

// NewMockHubSpot creates a new mock HubSpot server.
func NewMockHubSpot() *MockHubSpot {
	mock := &MockHubSpot{
		handlers: make(map[string]http.HandlerFunc),
		members:  make(map[int64][]int64),
		versions: make(map[int64]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		mock.mu.Lock()
		mock.requests = append(mock.requests, RecordedRequest{
			Method:   r.Method,
			Path:     r.URL.Path,
			RawQuery: r.URL.RawQuery,
			Query:    r.URL.Query(),
			Header:   r.Header.Clone(),
			Body:     body,
		})
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.conditionalCount++
		}
		handler, exists := mock.handlers[r.Method+" "+r.URL.Path]
		if !exists {
			handler, exists = mock.handlers[r.URL.Path]
		}
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockHubSpot) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockHubSpot) Close() {
	m.server.Close()
}

// Reset clears the recorded requests.
func (m *MockHubSpot) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.conditionalCount = 0
}

// SetHandler sets a custom handler for a path. The path may be prefixed
// with a method ("POST /contacts/v1/lists/1/add") to match only that verb.
func (m *MockHubSpot) SetHandler(pattern string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[pattern] = handler
}

// SetResponse configures a fixed response for a path pattern.
func (m *MockHubSpot) SetResponse(pattern string, resp MockResponse) {
	m.SetHandler(pattern, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetListMembers makes the default handler serve the given contact ids for
// a list, paginated with count and vidOffset like HubSpot does. Pages carry
// an ETag that changes whenever the membership does.
func (m *MockHubSpot) SetListMembers(listID int64, vids []int64) {
	sorted := append([]int64(nil), vids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[listID] = sorted
	m.versions[listID]++
}

// Members returns the current contact ids of a list.
func (m *MockHubSpot) Members(listID int64) []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int64(nil), m.members[listID]...)
}

// Requests returns a copy of all recorded requests.
func (m *MockHubSpot) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RecordedRequest(nil), m.requests...)
}

// LastRequest returns the most recent request, or false if none was made.
func (m *MockHubSpot) LastRequest() (RecordedRequest, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.requests) == 0 {
		return RecordedRequest{}, false
	}
	return m.requests[len(m.requests)-1], true
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockHubSpot) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockHubSpot) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conditionalCount
}

type listRoute struct {
	listID int64
	action string // "contacts/all", "add" or "remove"
}

// parseListRoute matches /contacts/v1/lists/{id}/{action}.
func parseListRoute(path string) (listRoute, bool) {
	rest, ok := strings.CutPrefix(path, "/contacts/v1/lists/")
	if !ok {
		return listRoute{}, false
	}
	idStr, action, ok := strings.Cut(rest, "/")
	if !ok {
		return listRoute{}, false
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return listRoute{}, false
	}
	return listRoute{listID: id, action: action}, true
}

// defaultHandler provides HubSpot-like responses for the list endpoints.
func (m *MockHubSpot) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-HubSpot-RateLimit-Remaining", "99")
	w.Header().Set("X-HubSpot-RateLimit-Max", "100")
	w.Header().Set("X-HubSpot-RateLimit-Interval-Milliseconds", "10000")
	w.Header().Set("Content-Type", "application/json;charset=utf-8")

	route, ok := parseListRoute(r.URL.Path)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "message": "resource not found"})
		return
	}

	m.mu.Lock()
	members, known := m.members[route.listID]
	version := m.versions[route.listID]
	m.mu.Unlock()

	if !known {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "message": fmt.Sprintf("list %d does not exist", route.listID)})
		return
	}

	switch {
	case route.action == "contacts/all" && r.Method == http.MethodGet:
		etag := fmt.Sprintf(`"list-%d-v%d"`, route.listID, version)
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		m.servePage(w, r, members)
	case (route.action == "add" || route.action == "remove") && r.Method == http.MethodPost:
		m.serveBatch(w, r, route)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"status": "error", "message": "method not allowed"})
	}
}

func (m *MockHubSpot) servePage(w http.ResponseWriter, r *http.Request, members []int64) {
	count := 20
	if v := r.URL.Query().Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "invalid count"})
			return
		}
		count = n
	}

	var offset int64
	if v := r.URL.Query().Get("vidOffset"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "invalid vidOffset"})
			return
		}
		offset = n
	}

	start := sort.Search(len(members), func(i int) bool { return members[i] > offset })
	end := min(start+count, len(members))

	contacts := make([]map[string]any, 0, end-start)
	for _, vid := range members[start:end] {
		contacts = append(contacts, map[string]any{
			"vid":           vid,
			"canonical-vid": vid,
			"is-contact":    true,
			"properties": map[string]any{
				"email": map[string]string{"value": fmt.Sprintf("contact%d@example.com", vid)},
			},
		})
	}

	nextOffset := offset
	if end > start {
		nextOffset = members[end-1]
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"contacts":   contacts,
		"has-more":   end < len(members),
		"vid-offset": nextOffset,
	})
}

func (m *MockHubSpot) serveBatch(w http.ResponseWriter, r *http.Request, route listRoute) {
	var payload struct {
		Vids   []int64  `json:"vids"`
		Emails []string `json:"emails"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "invalid json"})
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current := make(map[int64]bool, len(m.members[route.listID]))
	for _, vid := range m.members[route.listID] {
		current[vid] = true
	}

	updated := []int64{}
	discarded := []int64{}
	for _, vid := range payload.Vids {
		switch {
		case route.action == "add" && !current[vid]:
			current[vid] = true
			updated = append(updated, vid)
		case route.action == "remove" && current[vid]:
			delete(current, vid)
			updated = append(updated, vid)
		default:
			discarded = append(discarded, vid)
		}
	}

	members := make([]int64, 0, len(current))
	for vid := range current {
		members = append(members, vid)
	}
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
	m.members[route.listID] = members
	if len(updated) > 0 {
		m.versions[route.listID]++
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"updated":       updated,
		"discarded":     discarded,
		"invalidVids":   []int64{},
		"invalidEmails": payload.Emails,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json;charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
