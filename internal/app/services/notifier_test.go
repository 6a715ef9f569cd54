package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/faeln1/second-brain/internal/domain/summary"
	"github.com/faeln1/second-brain/pkg/storage"
)

type fakeHub struct {
	events []string
	data   []any
}

func (h *fakeHub) Broadcast(eventType string, data any) error {
	h.events = append(h.events, eventType)
	h.data = append(h.data, data)
	return nil
}

func sampleRecord() summary.Record {
	return summary.Record{
		GroupID:  "g1@g.us",
		Date:     "2024-06-15",
		Timezone: "Asia/Jerusalem",
		Keywords: []string{"trail"},
		Data:     summary.GroupSummaryData{GroupID: "g1@g.us", TotalMessages: 3},
	}
}

func TestWebhookNotifier(t *testing.T) {
	var got struct {
		Event string         `json:"event"`
		Data  summary.Record `json:"data"`
	}
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(WebhookConfig{URL: srv.URL, Headers: map[string]string{"Authorization": "Bearer t"}}, srv.Client(), nil)
	if err := n.NotifySummary(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got.Event != EventSummaryCreated || got.Data.GroupID != "g1@g.us" || auth != "Bearer t" {
		t.Fatalf("unexpected delivery %+v auth=%q", got, auth)
	}
}

func TestWebhookNotifierStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	n := NewWebhookNotifier(WebhookConfig{URL: srv.URL}, srv.Client(), nil)
	if err := n.NotifySummary(context.Background(), sampleRecord()); err == nil {
		t.Fatalf("expected error on 502")
	}
	if NewWebhookNotifier(WebhookConfig{URL: " "}, nil, nil) != nil {
		t.Fatalf("blank url must disable the webhook")
	}
}

func TestStorageExporter(t *testing.T) {
	store := storage.NewMemory()
	n := NewStorageExporter(store, "/exports/", nil)
	if err := n.NotifySummary(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, ct, ok := store.Object("exports/g1@g.us/2024-06-15.json")
	if !ok || ct != "application/json" {
		t.Fatalf("object missing, keys=%v", store.Keys())
	}
	var rec summary.Record
	if err := json.Unmarshal(data, &rec); err != nil || rec.Data.TotalMessages != 3 {
		t.Fatalf("unexpected export %s: %v", data, err)
	}
}

func TestExportKeySanitizes(t *testing.T) {
	got := ExportKey("summaries", summary.Record{GroupID: "../evil/g", Date: ""})
	if got != "summaries/__evil_g/unknown.json" {
		t.Fatalf("ExportKey = %q", got)
	}
}

func TestNotifierChainSwallowsFailures(t *testing.T) {
	hub := &fakeHub{}
	failing := &recordingNotifier{err: errBoom}
	after := &recordingNotifier{}
	chain := NewNotifierChain(nil, failing, NewBroadcastNotifier(nil), NewBroadcastNotifier(hub), after)
	if chain.Len() != 3 {
		t.Fatalf("nil notifiers must be dropped, len=%d", chain.Len())
	}
	chain.Notify(context.Background(), sampleRecord())
	if failing.count() != 1 || after.count() != 1 {
		t.Fatalf("chain stopped after a failure")
	}
	if len(hub.events) != 1 || hub.events[0] != EventSummaryCreated {
		t.Fatalf("unexpected broadcasts %v", hub.events)
	}

	var nilChain *NotifierChain
	nilChain.Notify(context.Background(), sampleRecord())
}
