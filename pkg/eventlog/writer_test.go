package eventlog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type MessageEvent struct {
	ID   string `json:"id"`
	Body string `json:"body"`
}

func TestNewWriterDisabled(t *testing.T) {
	w := NewWriter("  ", nil)
	if w.Enabled() {
		t.Fatalf("blank dir must disable the writer")
	}
	path, err := w.Write("session", MessageEvent{ID: "1"})
	if err != nil || path != "" {
		t.Fatalf("disabled writer wrote %q, %v", path, err)
	}
}

func TestWriteLayout(t *testing.T) {
	base := t.TempDir()
	w := NewWriter(base, nil)
	w.now = func() time.Time { return time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC) }

	path, err := w.Write("main/phone", &MessageEvent{ID: "abc", Body: "hi"})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	wantDir := filepath.Join(base, "2024-06-15", "main_phone", "MessageEvent")
	if filepath.Dir(path) != wantDir {
		t.Fatalf("path %s not under %s", path, wantDir)
	}
	if !strings.HasPrefix(filepath.Base(path), "093000.000-") {
		t.Fatalf("unexpected file name %s", filepath.Base(path))
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var record struct {
		EventType string         `json:"eventType"`
		Source    string         `json:"source"`
		Payload   map[string]any `json:"payload"`
	}
	if err := json.Unmarshal(raw, &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record.EventType != "MessageEvent" || record.Source != "main/phone" || record.Payload["body"] != "hi" {
		t.Fatalf("unexpected record %+v", record)
	}
}

func TestEventTypeAndSegments(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, "Unknown"},
		{MessageEvent{}, "MessageEvent"},
		{&MessageEvent{}, "MessageEvent"},
		{"text", "string"},
	}
	for _, tc := range cases {
		if got := EventType(tc.in); got != tc.want {
			t.Fatalf("EventType(%T) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if got := sanitizeSegment("../.."); got != "unknown" {
		t.Fatalf("sanitizeSegment traversal = %q", got)
	}
}
