package cache

import (
	"testing"
	"time"
)

func TestEntry_Remaining(t *testing.T) {
	tests := []struct {
		name    string
		entry   *Entry
		wantMin time.Duration
		wantMax time.Duration
	}{
		{"nil entry", nil, 0, 0},
		{"due", &Entry{RetainUntil: time.Now().Add(-time.Hour)}, 0, 0},
		{"zero time", &Entry{}, 0, 0},
		{"five minutes", &Entry{RetainUntil: time.Now().Add(5 * time.Minute)}, 4*time.Minute + 59*time.Second, 5 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.entry.Remaining()
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("Remaining() = %v, want between %v and %v", got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestEntry_Revalidatable(t *testing.T) {
	tests := []struct {
		name  string
		entry *Entry
		want  bool
	}{
		{"nil entry", nil, false},
		{"no validators", &Entry{Body: []byte(`{}`)}, false},
		{"etag", &Entry{ETag: `"list-42-v1"`}, true},
		{"last modified", &Entry{LastModified: time.Now()}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.Revalidatable(); got != tt.want {
				t.Errorf("Revalidatable() = %v, want %v", got, tt.want)
			}
		})
	}
}
