package cache

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestFromResponse(t *testing.T) {
	lastMod := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	const page = `{"contacts":[],"has-more":false,"vid-offset":0}`
	resp := &http.Response{
		StatusCode: http.StatusOK,
		Header: http.Header{
			"Etag":          {`"list-42-v3"`},
			"Last-Modified": {lastMod.Format(http.TimeFormat)},
			"Content-Type":  {"application/json"},
		},
		Body: io.NopCloser(strings.NewReader(page)),
	}

	entry, err := FromResponse(resp)
	if err != nil {
		t.Fatalf("FromResponse() error = %v", err)
	}
	if string(entry.Body) != page {
		t.Errorf("Body = %q", entry.Body)
	}
	if entry.ETag != `"list-42-v3"` {
		t.Errorf("ETag = %q", entry.ETag)
	}
	if !entry.LastModified.Equal(lastMod) {
		t.Errorf("LastModified = %v, want %v", entry.LastModified, lastMod)
	}
	if entry.Status != http.StatusOK {
		t.Errorf("Status = %d", entry.Status)
	}
	if d := entry.Remaining(); d < DefaultRetention-time.Second || d > DefaultRetention {
		t.Errorf("Remaining() = %v, want about %v", d, DefaultRetention)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read restored body: %v", err)
	}
	if string(body) != page {
		t.Errorf("restored body = %q", body)
	}
}

func TestFromResponse_Nil(t *testing.T) {
	if _, err := FromResponse(nil); err == nil {
		t.Error("expected error for nil response")
	}
}

func TestRetainUntil(t *testing.T) {
	tests := []struct {
		name    string
		expires string
		wantMin time.Duration
		wantMax time.Duration
	}{
		{"no header", "", DefaultRetention - time.Second, DefaultRetention},
		{"invalid header", "not-a-date", DefaultRetention - time.Second, DefaultRetention},
		{"past header", time.Now().Add(-time.Hour).Format(http.TimeFormat), DefaultRetention - time.Second, DefaultRetention},
		{"later header", time.Now().Add(time.Hour).Format(http.TimeFormat), 59 * time.Minute, 61 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.expires != "" {
				header.Set("Expires", tt.expires)
			}
			got := time.Until(retainUntil(header))
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("retainUntil() in %v, want between %v and %v", got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestEntry_Response(t *testing.T) {
	entry := &Entry{
		Body:   []byte(`{"has-more":true}`),
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": {"application/json"}},
	}
	req, _ := http.NewRequest(http.MethodGet, "http://example.com/contacts/v1/lists/1/contacts/all", nil)

	resp := entry.Response(req)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d", resp.StatusCode)
	}
	if resp.Request != req {
		t.Error("Request not set")
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"has-more":true}` {
		t.Errorf("Body = %q", body)
	}

	resp.Header.Set("X-Test", "1")
	if entry.Header.Get("X-Test") != "" {
		t.Error("Response must clone the stored header")
	}
}

func TestEntry_Response_DefaultsStatus(t *testing.T) {
	if resp := (&Entry{}).Response(nil); resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
}

func TestEntry_ApplyValidators(t *testing.T) {
	lastMod := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name            string
		entry           *Entry
		wantApplied     bool
		wantIfNoneMatch string
		wantIfModSince  string
	}{
		{
			name:            "etag preferred",
			entry:           &Entry{ETag: `"abc"`, LastModified: lastMod},
			wantApplied:     true,
			wantIfNoneMatch: `"abc"`,
		},
		{
			name:           "last modified only",
			entry:          &Entry{LastModified: lastMod},
			wantApplied:    true,
			wantIfModSince: lastMod.Format(http.TimeFormat),
		},
		{name: "no validators", entry: &Entry{}},
		{name: "nil entry", entry: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
			if got := tt.entry.ApplyValidators(req); got != tt.wantApplied {
				t.Errorf("ApplyValidators() = %v, want %v", got, tt.wantApplied)
			}
			if got := req.Header.Get("If-None-Match"); got != tt.wantIfNoneMatch {
				t.Errorf("If-None-Match = %q, want %q", got, tt.wantIfNoneMatch)
			}
			if got := req.Header.Get("If-Modified-Since"); got != tt.wantIfModSince {
				t.Errorf("If-Modified-Since = %q, want %q", got, tt.wantIfModSince)
			}
		})
	}
}

func TestEntry_ApplyValidators_NilRequest(t *testing.T) {
	if (&Entry{ETag: "x"}).ApplyValidators(nil) {
		t.Error("nil request must not be reported as conditional")
	}
}

func TestStore_Refresh(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	key := testKey()

	if err := store.Save(ctx, key, &Entry{Body: []byte(`{}`), ETag: `"v1"`, RetainUntil: time.Now().Add(time.Minute)}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	header := http.Header{}
	header.Set("Expires", time.Now().Add(time.Hour).Format(http.TimeFormat))
	if err := store.Refresh(ctx, key, header); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if ttl := mr.TTL(key.String()); ttl < 59*time.Minute {
		t.Errorf("TTL after refresh = %v, want about 1h", ttl)
	}

	if err := store.Refresh(ctx, Key{Path: "/gone"}, http.Header{}); !errors.Is(err, ErrMiss) {
		t.Errorf("Refresh() of missing page error = %v, want ErrMiss", err)
	}
}
