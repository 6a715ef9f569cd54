package repositories

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/faeln1/second-brain/internal/domain/summary"
	"github.com/faeln1/second-brain/internal/platform/database"
)

func summaryRepos(t *testing.T) map[string]SummaryRepository {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "summaries.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return map[string]SummaryRepository{
		"memory": NewInMemorySummaryRepo(),
		"sqlite": NewSQLiteSummaryRepo(db),
	}
}

func TestSummaryRepoUpsertAndGet(t *testing.T) {
	for name, repo := range summaryRepos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rec := &summary.Record{GroupID: "g1", Date: "2024-06-15", Timezone: "Asia/Jerusalem",
				Keywords: []string{" Hiking ", "Trail"}, Data: summary.GroupSummaryData{GroupID: "g1", TotalMessages: 3}}
			if err := repo.Save(ctx, rec); err != nil {
				t.Fatalf("save: %v", err)
			}
			firstID := rec.ID

			again := &summary.Record{GroupID: "g1", Date: "2024-06-15", Timezone: "Asia/Jerusalem",
				Data: summary.GroupSummaryData{GroupID: "g1", TotalMessages: 5}}
			if err := repo.Save(ctx, again); err != nil {
				t.Fatalf("save again: %v", err)
			}
			if again.ID != firstID {
				t.Fatalf("expected upsert to keep id %s, got %s", firstID, again.ID)
			}

			got, err := repo.Get(ctx, "g1", "2024-06-15", "Asia/Jerusalem")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Data.TotalMessages != 5 {
				t.Fatalf("expected replaced data, got %d", got.Data.TotalMessages)
			}

			if _, err := repo.Get(ctx, "g1", "2024-06-16", "Asia/Jerusalem"); !errors.Is(err, ErrSummaryNotFound) {
				t.Fatalf("expected ErrSummaryNotFound, got %v", err)
			}
		})
	}
}

func TestSummaryRepoListByKeyword(t *testing.T) {
	for name, repo := range summaryRepos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, rec := range []summary.Record{
				{GroupID: "g1", Date: "2024-06-13", Timezone: "UTC", Keywords: []string{"hiking"}},
				{GroupID: "g1", Date: "2024-06-14", Timezone: "UTC", Keywords: []string{"Dinner"}},
				{GroupID: "g1", Date: "2024-06-15", Timezone: "UTC", Keywords: []string{"hiking", "dinner"}},
				{GroupID: "g2", Date: "2024-06-15", Timezone: "UTC", Keywords: []string{"hiking"}},
			} {
				rec := rec
				if err := repo.Save(ctx, &rec); err != nil {
					t.Fatalf("save: %v", err)
				}
			}

			all, err := repo.ListByGroup(ctx, "g1", "", 0)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(all) != 3 || all[0].Date != "2024-06-15" || all[2].Date != "2024-06-13" {
				t.Fatalf("unexpected list order %+v", all)
			}

			dinner, err := repo.ListByGroup(ctx, "g1", "DINNER", 0)
			if err != nil {
				t.Fatalf("list keyword: %v", err)
			}
			if len(dinner) != 2 {
				t.Fatalf("expected 2 dinner summaries, got %d", len(dinner))
			}

			limited, err := repo.ListByGroup(ctx, "g1", "hiking", 1)
			if err != nil {
				t.Fatalf("list limited: %v", err)
			}
			if len(limited) != 1 || limited[0].Date != "2024-06-15" {
				t.Fatalf("unexpected limited result %+v", limited)
			}
		})
	}
}

func TestSummaryRepoRejectsIncompleteRecord(t *testing.T) {
	repo := NewInMemorySummaryRepo()
	if err := repo.Save(context.Background(), &summary.Record{GroupID: "g1"}); !errors.Is(err, ErrInvalidSummary) {
		t.Fatalf("expected ErrInvalidSummary, got %v", err)
	}
}
