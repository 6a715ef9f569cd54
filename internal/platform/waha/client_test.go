package waha

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestListGroupsDecodesShapes(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Path != "/api/main/groups" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "secret" {
			t.Errorf("missing api key header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id": "111@g.us", "subject": "Hikers", "participants": [{"id": "a"}, {"id": "b"}]},
			{"id": {"_serialized": "222@g.us"}, "name": "Runners", "size": 7},
			{"id": {"_serialized": "333@g.us"}, "groupMetadata": {"subject": "Family", "participants": [{}, {}, {}]}},
			{"subject": "no id"}
		]`))
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL + "/", APIKey: "secret", Session: "main", CacheTTL: time.Minute}, srv.Client(), nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	groups, err := c.ListGroups(context.Background())
	if err != nil {
		t.Fatalf("list groups: %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d: %+v", len(groups), groups)
	}
	cases := []struct {
		id    string
		name  string
		count int
	}{
		{"111@g.us", "Hikers", 2},
		{"222@g.us", "Runners", 7},
		{"333@g.us", "Family", 3},
	}
	for i, tc := range cases {
		g := groups[i]
		if g.ID != tc.id || g.Name != tc.name || g.ParticipantCount != tc.count || g.Source != "waha" {
			t.Errorf("group %d: unexpected %+v", i, g)
		}
	}

	if _, err := c.ListGroups(context.Background()); err != nil {
		t.Fatalf("cached list: %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("expected cached second call, got %d requests", got)
	}
	c.Purge()
	if _, err := c.ListGroups(context.Background()); err != nil {
		t.Fatalf("list after purge: %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Fatalf("expected refetch after purge, got %d requests", got)
	}
}

func TestListGroupsKeyedObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"444@g.us": {"subject": "Book club", "participants": [{}]}}`))
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL}, srv.Client(), nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	groups, err := c.ListGroups(context.Background())
	if err != nil {
		t.Fatalf("list groups: %v", err)
	}
	if len(groups) != 1 || groups[0].ID != "444@g.us" || groups[0].Name != "Book club" {
		t.Fatalf("unexpected groups %+v", groups)
	}
}

func TestListGroupsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "session not started", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL}, srv.Client(), nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := c.ListGroups(context.Background()); err == nil {
		t.Fatalf("expected error for non-2xx response")
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(Config{}, nil, nil); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
