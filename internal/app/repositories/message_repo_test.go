package repositories

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/faeln1/second-brain/internal/domain/message"
	"github.com/faeln1/second-brain/internal/platform/database"
)

func messageRepos(t *testing.T) map[string]MessageRepository {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "messages.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return map[string]MessageRepository{
		"memory": NewInMemoryMessageRepo(),
		"sqlite": NewSQLiteMessageRepo(db),
	}
}

func seedMessages(t *testing.T, repo MessageRepository) time.Time {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC)
	contactID := "972501111111@c.us"
	if err := repo.SaveContact(ctx, &message.Contact{ID: contactID, Name: "Dana", Number: "+972501111111"}); err != nil {
		t.Fatalf("save contact: %v", err)
	}
	rows := []message.StoredMessage{
		{RecordID: "r1", MessageID: "m1", From: contactID, Body: "first", Timestamp: message.Time(base),
			Metadata: message.Metadata{IsGroup: message.Bool(true), GroupID: "g1@g.us", GroupName: "Hikers"}, ContactID: &contactID},
		{RecordID: "r2", MessageID: "m2", From: "972502222222@c.us", Body: "second", CreatedAt: message.Time(base.Add(time.Hour)),
			Metadata: message.Metadata{IsGroup: message.Bool(true), GroupID: "g1@g.us", GroupName: "Hikers"}},
		{RecordID: "r3", MessageID: "m3", From: "972503333333@c.us", To: "g1@g.us", Body: "legacy",
			Timestamp: message.Time(base.Add(2 * time.Hour))},
		{RecordID: "r4", MessageID: "m4", From: "972504444444@c.us", Body: "other group", Timestamp: message.Time(base.Add(3 * time.Hour)),
			Metadata: message.Metadata{IsGroup: message.Bool(true), GroupID: "g2@g.us", GroupName: "Runners"}},
	}
	for i := range rows {
		if err := repo.Save(ctx, &rows[i]); err != nil {
			t.Fatalf("save %s: %v", rows[i].RecordID, err)
		}
	}
	return base
}

func TestMessageRepoFindOrdersNewestFirst(t *testing.T) {
	for name, repo := range messageRepos(t) {
		t.Run(name, func(t *testing.T) {
			base := seedMessages(t, repo)
			q := MessageQuery{Where: Or(
				Within(FieldTimestamp, base, base.Add(24*time.Hour)),
				Within(FieldCreatedAt, base, base.Add(24*time.Hour)),
			)}
			rows, err := repo.Find(context.Background(), q)
			if err != nil {
				t.Fatalf("find: %v", err)
			}
			want := []string{"r4", "r3", "r2", "r1"}
			if len(rows) != len(want) {
				t.Fatalf("expected %d rows, got %d", len(want), len(rows))
			}
			for i, id := range want {
				if rows[i].RecordID != id {
					t.Fatalf("row %d: expected %s, got %s", i, id, rows[i].RecordID)
				}
			}

			q.Limit = 2
			rows, err = repo.Find(context.Background(), q)
			if err != nil {
				t.Fatalf("find limited: %v", err)
			}
			if len(rows) != 2 || rows[0].RecordID != "r4" {
				t.Fatalf("unexpected limited result %+v", rows)
			}
		})
	}
}

func TestMessageRepoFindGroupAndContact(t *testing.T) {
	for name, repo := range messageRepos(t) {
		t.Run(name, func(t *testing.T) {
			seedMessages(t, repo)
			rows, err := repo.Find(context.Background(), MessageQuery{
				Where: And(Eq(FieldIsGroup, true), Eq(FieldGroupID, "g1@g.us")),
			})
			if err != nil {
				t.Fatalf("find: %v", err)
			}
			if len(rows) != 2 {
				t.Fatalf("expected 2 rows, got %d", len(rows))
			}
			first := rows[1]
			if first.Contact == nil || first.Contact.Name != "Dana" {
				t.Fatalf("expected contact to be populated, got %+v", first.Contact)
			}
			if first.Timestamp == nil || !first.Timestamp.Equal(time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC)) {
				t.Fatalf("unexpected timestamp %v", first.Timestamp)
			}
			if rows[0].Timestamp != nil || rows[0].CreatedAt == nil {
				t.Fatalf("expected createdAt-only row to round trip, got %+v", rows[0])
			}

			legacy, err := repo.Find(context.Background(), MessageQuery{Where: Contains(FieldTo, "g1@")})
			if err != nil {
				t.Fatalf("find legacy: %v", err)
			}
			if len(legacy) != 1 || legacy[0].Metadata.IsGroup != nil {
				t.Fatalf("expected legacy row without group marker, got %+v", legacy)
			}
		})
	}
}

func TestMessageRepoSaveContactKeepsKnownFields(t *testing.T) {
	for name, repo := range messageRepos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := "972505555555@c.us"
			if err := repo.SaveContact(ctx, &message.Contact{ID: id, Name: "Noa"}); err != nil {
				t.Fatalf("save contact: %v", err)
			}
			if err := repo.SaveContact(ctx, &message.Contact{ID: id, PushName: "noa.k"}); err != nil {
				t.Fatalf("update contact: %v", err)
			}
			msg := &message.StoredMessage{From: id, ContactID: &id, Timestamp: message.Time(time.Now()),
				Metadata: message.Metadata{IsGroup: message.Bool(true), GroupID: "g9@g.us"}}
			if err := repo.Save(ctx, msg); err != nil {
				t.Fatalf("save: %v", err)
			}
			if msg.RecordID == "" {
				t.Fatalf("expected record id to be assigned")
			}
			rows, err := repo.Find(ctx, MessageQuery{Where: Eq(FieldGroupID, "g9@g.us")})
			if err != nil {
				t.Fatalf("find: %v", err)
			}
			if len(rows) != 1 || rows[0].Contact == nil {
				t.Fatalf("expected one row with contact, got %+v", rows)
			}
			if rows[0].Contact.Name != "Noa" || rows[0].Contact.PushName != "noa.k" {
				t.Fatalf("contact fields not merged: %+v", rows[0].Contact)
			}
		})
	}
}

func TestMessageRepoRejectsInvalidPredicate(t *testing.T) {
	for name, repo := range messageRepos(t) {
		if _, err := repo.Find(context.Background(), MessageQuery{Where: And()}); err == nil {
			t.Fatalf("%s: expected error for empty predicate", name)
		}
	}
}
