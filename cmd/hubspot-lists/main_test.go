package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/hubspot-lists-client/internal/testutil"
	hsclient "github.com/Sternrassler/hubspot-lists-client/pkg/client"
	"github.com/Sternrassler/hubspot-lists-client/pkg/lists"
)

// runCommand executes the CLI with args and returns its stdout.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func newProxy(t *testing.T, mock *testutil.MockHubSpot, redisClient *redis.Client) http.Handler {
	t.Helper()

	transport, err := hsclient.New(hsclient.DefaultConfig("pat-proxy"))
	if err != nil {
		t.Fatalf("create transport: %v", err)
	}
	c, err := lists.New(lists.Config{BaseURL: mock.URL(), Transport: transport})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return newProxyHandler(c, redisClient, zerolog.Nop())
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	healthHandler(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if string(body) != "OK" {
		t.Errorf("Expected body 'OK', got %s", string(body))
	}
}

func TestReadyEndpoint(t *testing.T) {
	mock := testutil.NewMockHubSpot()
	defer mock.Close()

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer redisClient.Close()

	handler := newProxy(t, mock, redisClient)

	t.Run("ready", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/ready", nil))
		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
	})

	t.Run("not_ready_redis_down", func(t *testing.T) {
		mr.Close()

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/ready", nil))
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", w.Code)
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	mock := testutil.NewMockHubSpot()
	defer mock.Close()
	mock.SetListMembers(1, []int64{1})

	handler := newProxy(t, mock, nil)

	// One operation so the labelled list metrics are populated
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/lists/1/contacts", nil))

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	body := w.Body.String()
	for _, name := range []string{"hubspot_list_operations_total", "hubspot_requests_total", "hubspot_rate_limit_remaining"} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}

func TestProxy_GetContacts(t *testing.T) {
	mock := testutil.NewMockHubSpot()
	defer mock.Close()
	mock.SetListMembers(42, []int64{1, 2, 3, 4, 5})

	handler := newProxy(t, mock, nil)

	tests := []struct {
		name          string
		path          string
		expectedCode  int
		expectedVids  int
		upstreamQuery string
	}{
		{name: "default page", path: "/lists/42/contacts", expectedCode: 200, expectedVids: 5, upstreamQuery: "count=20"},
		{name: "count and offset", path: "/lists/42/contacts?count=2&vidOffset=2", expectedCode: 200, expectedVids: 2, upstreamQuery: "count=2&vidOffset=2"},
		{name: "all pages", path: "/lists/42/contacts?count=2&all=true", expectedCode: 200, expectedVids: 5, upstreamQuery: "count=2&vidOffset=4"},
		{name: "bad id", path: "/lists/abc/contacts", expectedCode: 400},
		{name: "bad count", path: "/lists/42/contacts?count=-1", expectedCode: 400},
		{name: "unknown list", path: "/lists/7/contacts", expectedCode: 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock.Reset()

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest("GET", tt.path, nil))

			if w.Code != tt.expectedCode {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.expectedCode, w.Body.String())
			}
			if tt.expectedCode != http.StatusOK {
				return
			}

			var page lists.ContactListPage
			if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if len(page.Contacts) != tt.expectedVids {
				t.Errorf("contacts = %d, want %d", len(page.Contacts), tt.expectedVids)
			}
			if req, _ := mock.LastRequest(); req.RawQuery != tt.upstreamQuery {
				t.Errorf("upstream query = %q, want %q", req.RawQuery, tt.upstreamQuery)
			}
		})
	}
}

func TestProxy_Batch(t *testing.T) {
	mock := testutil.NewMockHubSpot()
	defer mock.Close()
	mock.SetListMembers(42, []int64{1})

	handler := newProxy(t, mock, nil)

	tests := []struct {
		name         string
		path         string
		body         string
		expectedCode int
		expectedOK   bool
	}{
		{name: "add", path: "/lists/42/add", body: `{"vids":[2,3]}`, expectedCode: 200, expectedOK: true},
		{name: "remove", path: "/lists/42/remove", body: `{"vids":[1]}`, expectedCode: 200, expectedOK: true},
		{name: "rejected", path: "/lists/404/add", body: `{"vids":[1]}`, expectedCode: 422, expectedOK: false},
		{name: "empty payload", path: "/lists/42/add", body: `{}`, expectedCode: 400},
		{name: "invalid json", path: "/lists/42/add", body: `{`, expectedCode: 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest("POST", tt.path, strings.NewReader(tt.body)))

			if w.Code != tt.expectedCode {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.expectedCode, w.Body.String())
			}
			if tt.expectedCode == http.StatusBadRequest {
				return
			}

			var out struct {
				OK bool `json:"ok"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if out.OK != tt.expectedOK {
				t.Errorf("ok = %v, want %v", out.OK, tt.expectedOK)
			}
		})
	}

	if got := mock.Members(42); len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Errorf("members = %v, want [2 3]", got)
	}
}

func TestCommand_Get(t *testing.T) {
	mock := testutil.NewMockHubSpot()
	defer mock.Close()
	mock.SetListMembers(42, []int64{10, 20, 30})

	out, err := runCommand(t, "get", "--api-key", "pat-cli", "--base-url", mock.URL(), "--list-id", "42", "--count", "2", "--offset", "0")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	var page lists.ContactListPage
	if err := json.Unmarshal([]byte(out), &page); err != nil {
		t.Fatalf("output is not a page: %v\n%s", err, out)
	}
	if len(page.Contacts) != 2 || !page.HasMore || page.VidOffset != 20 {
		t.Errorf("page = %+v", page)
	}
	if req, _ := mock.LastRequest(); req.RawQuery != "count=2&vidOffset=0" {
		t.Errorf("query = %q, want count=2&vidOffset=0", req.RawQuery)
	}
}

func TestCommand_GetAll(t *testing.T) {
	mock := testutil.NewMockHubSpot()
	defer mock.Close()
	mock.SetListMembers(42, []int64{10, 20, 30})

	out, err := runCommand(t, "get", "--api-key", "pat-cli", "--base-url", mock.URL(), "--list-id", "42", "--count", "1", "--all")
	if err != nil {
		t.Fatalf("get --all failed: %v", err)
	}

	var contacts []lists.Contact
	if err := json.Unmarshal([]byte(out), &contacts); err != nil {
		t.Fatalf("output is not a contact list: %v\n%s", err, out)
	}
	if len(contacts) != 3 {
		t.Errorf("contacts = %d, want 3", len(contacts))
	}
}

func TestCommand_AddAndRemove(t *testing.T) {
	mock := testutil.NewMockHubSpot()
	defer mock.Close()
	mock.SetListMembers(42, nil)

	out, err := runCommand(t, "add", "--api-key", "pat-cli", "--base-url", mock.URL(), "--list-id", "42", "--vid", "1", "--vid", "2")
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if !strings.Contains(out, `"ok": true`) {
		t.Errorf("add output = %s", out)
	}

	if _, err := runCommand(t, "remove", "--api-key", "pat-cli", "--base-url", mock.URL(), "--list-id", "42", "--vid", "1"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	if got := mock.Members(42); len(got) != 1 || got[0] != 2 {
		t.Errorf("members = %v, want [2]", got)
	}
}

func TestCommand_Errors(t *testing.T) {
	mock := testutil.NewMockHubSpot()
	defer mock.Close()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "missing api key", args: []string{"get", "--api-key", "", "--list-id", "1"}, want: "api key is required"},
		{name: "missing list id", args: []string{"get", "--api-key", "x"}, want: "list-id"},
		{name: "empty batch", args: []string{"add", "--api-key", "x", "--list-id", "1"}, want: "--vid or --email"},
		{name: "rejected batch", args: []string{"add", "--api-key", "x", "--base-url", mock.URL(), "--list-id", "404", "--vid", "1"}, want: "rejected"},
		{name: "bad version format", args: []string{"version", "-o", "yaml"}, want: "unsupported output format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCommand(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestCommand_Version(t *testing.T) {
	out, err := runCommand(t, "version", "-o", "json")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}

	var info map[string]string
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if info["version"] == "" {
		t.Errorf("version missing in %v", info)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("HUBSPOT_TEST_VALUE", "set")

	if got := getEnv("HUBSPOT_TEST_VALUE", "default"); got != "set" {
		t.Errorf("getEnv() = %q, want set", got)
	}
	if got := getEnv("HUBSPOT_TEST_UNSET", "default"); got != "default" {
		t.Errorf("getEnv() = %q, want default", got)
	}
}

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	for _, url := range []string{mr.Addr(), "redis://" + mr.Addr() + "/0"} {
		opts := &rootOptions{redisURL: url, logger: zerolog.Nop()}
		client, err := opts.connectRedis(context.Background())
		if err != nil {
			t.Fatalf("connectRedis(%q) error = %v", url, err)
		}
		client.Close()
	}

	opts := &rootOptions{logger: zerolog.Nop()}
	client, err := opts.connectRedis(context.Background())
	if err != nil || client != nil {
		t.Errorf("connectRedis without url = %v, %v; want nil, nil", client, err)
	}
}

func TestWriteListError(t *testing.T) {
	p := &proxy{logger: zerolog.Nop()}

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid list id", lists.ErrInvalidListID, http.StatusBadRequest},
		{"nil payload", lists.ErrNilPayload, http.StatusBadRequest},
		{"blocked by rate limit", &lists.TransportError{Method: http.MethodGet, Err: hsclient.ErrRateLimited}, http.StatusTooManyRequests},
		{"hubspot 404", &lists.APIError{StatusCode: http.StatusNotFound}, http.StatusNotFound},
		{"hubspot 500", &lists.APIError{StatusCode: http.StatusInternalServerError}, http.StatusBadGateway},
		{"network", &lists.TransportError{Err: &hsclient.HubSpotError{ErrorClass: hsclient.ErrorClassNetwork}}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			p.writeListError(rec, tt.err)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body["error"] == "" {
				t.Errorf("body should carry an error message, got %v (%v)", body, err)
			}
		})
	}
}
