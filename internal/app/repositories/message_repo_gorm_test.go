package repositories

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// dryRunDB renders postgres SQL without opening a connection.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DriverName: "postgres",
		DSN:        "host=127.0.0.1 port=1 user=test dbname=test sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	if err != nil {
		t.Fatalf("open gorm: %v", err)
	}
	return db
}

func TestGormFindQuery(t *testing.T) {
	start := time.Date(2024, 6, 14, 21, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	cascade := And(
		Eq(FieldIsGroup, true),
		Or(Eq(FieldGroupID, "g1@g.us"), ContainsFold(FieldGroupName, "hikers")),
		Within(FieldTimestamp, start, end),
	)

	tests := []struct {
		name     string
		query    MessageQuery
		contains []string
		absent   []string
		vars     []any
	}{
		{
			name:  "cascade with limit",
			query: MessageQuery{Where: cascade, Limit: 500},
			contains: []string{
				`FROM "messages"`,
				`is_group = $1`,
				`group_id = $2 OR LOWER(group_name) LIKE $3`,
				`ts >= $4 AND ts < $5`,
				`ORDER BY COALESCE(ts, created_at) DESC,record_id DESC`,
				`LIMIT $6`,
			},
			vars: []any{true, "g1@g.us", "%hikers%", start, end, 500},
		},
		{
			name:     "no limit",
			query:    MessageQuery{Where: Eq(FieldTo, "g1@g.us")},
			contains: []string{`to_jid = $1`, `ORDER BY COALESCE(ts, created_at) DESC`},
			absent:   []string{"LIMIT"},
			vars:     []any{"g1@g.us"},
		},
	}

	db := dryRunDB(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := findQuery(db.Session(&gorm.Session{}), tt.query)
			if err != nil {
				t.Fatalf("find query: %v", err)
			}
			var rows []messageModel
			stmt := tx.Find(&rows).Statement
			if stmt.Error != nil {
				t.Fatalf("render: %v", stmt.Error)
			}
			sql := stmt.SQL.String()
			for _, want := range tt.contains {
				if !strings.Contains(sql, want) {
					t.Fatalf("sql %q missing %q", sql, want)
				}
			}
			for _, bad := range tt.absent {
				if strings.Contains(sql, bad) {
					t.Fatalf("sql %q should not contain %q", sql, bad)
				}
			}
			if !reflect.DeepEqual(stmt.Vars, tt.vars) {
				t.Fatalf("unexpected vars: %#v", stmt.Vars)
			}
			if len(rows) != 0 {
				t.Fatalf("dry run returned rows: %d", len(rows))
			}
		})
	}

	if _, err := findQuery(db, MessageQuery{Where: Or()}); !errors.Is(err, ErrInvalidPredicate) {
		t.Fatalf("expected invalid predicate, got %v", err)
	}
}

func TestGormUpsertMessage(t *testing.T) {
	db := dryRunDB(t)
	contactID := "972501111111@c.us"
	model := messageModel{
		RecordID:  "r1",
		MessageID: "m1",
		Body:      "hello",
		GroupID:   "g1@g.us",
		ContactID: &contactID,
		Contact:   &contactModel{ID: contactID, Name: "Dana"},
	}

	stmt := upsertMessage(db.Session(&gorm.Session{}), &model).Statement
	if stmt.Error != nil {
		t.Fatalf("render: %v", stmt.Error)
	}
	sql := stmt.SQL.String()
	for _, want := range []string{
		`INSERT INTO "messages"`,
		`ON CONFLICT ("record_id") DO UPDATE SET`,
		`"body"="excluded"."body"`,
		`"group_id"="excluded"."group_id"`,
	} {
		if !strings.Contains(sql, want) {
			t.Fatalf("sql %q missing %q", sql, want)
		}
	}
	if strings.Contains(sql, `"contacts"`) {
		t.Fatalf("upsert should not touch contacts: %q", sql)
	}
	if strings.Contains(sql, `"record_id"="excluded"."record_id"`) {
		t.Fatalf("upsert should not rewrite the key: %q", sql)
	}
}
