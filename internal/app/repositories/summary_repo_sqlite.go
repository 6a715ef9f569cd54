package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/faeln1/second-brain/internal/domain/summary"
	"github.com/jmoiron/sqlx"
)

type sqliteSummaryRow struct {
	ID        string `db:"id"`
	GroupID   string `db:"group_id"`
	Date      string `db:"summary_date"`
	Timezone  string `db:"timezone"`
	Keywords  string `db:"keywords"`
	Data      string `db:"data"`
	CreatedAt int64  `db:"created_at"`
}

type sqliteSummaryRepo struct {
	db *sqlx.DB
}

func NewSQLiteSummaryRepo(db *sqlx.DB) SummaryRepository {
	return &sqliteSummaryRepo{db: db}
}

func (r *sqliteSummaryRepo) Save(ctx context.Context, rec *summary.Record) error {
	if err := prepareRecord(rec); err != nil {
		return err
	}
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return err
	}
	keywords, err := json.Marshal(rec.Keywords)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO group_summaries (id, group_id, summary_date, timezone, keywords, data, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (group_id, summary_date, timezone) DO UPDATE SET
            keywords = excluded.keywords,
            data = excluded.data,
            created_at = excluded.created_at
        RETURNING id`
	err = r.db.QueryRowxContext(ctx, query,
		rec.ID, rec.GroupID, rec.Date, rec.Timezone, string(keywords), string(data), rec.CreatedAt.UTC().UnixMilli(),
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

func (r *sqliteSummaryRepo) Get(ctx context.Context, groupID, date, timezone string) (*summary.Record, error) {
	var row sqliteSummaryRow
	err := r.db.GetContext(ctx, &row, `
        SELECT id, group_id, summary_date, timezone, keywords, data, created_at
        FROM group_summaries
        WHERE group_id = ? AND summary_date = ? AND timezone = ?`, groupID, date, timezone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSummaryNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain()
}

func (r *sqliteSummaryRepo) ListByGroup(ctx context.Context, groupID, keyword string, limit int) ([]summary.Record, error) {
	query := `
        SELECT id, group_id, summary_date, timezone, keywords, data, created_at
        FROM group_summaries
        WHERE group_id = ?`
	args := []any{groupID}
	if keyword = strings.ToLower(strings.TrimSpace(keyword)); keyword != "" {
		query += ` AND EXISTS (SELECT 1 FROM json_each(group_summaries.keywords) WHERE json_each.value = ?)`
		args = append(args, keyword)
	}
	query += ` ORDER BY summary_date DESC, created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	var rows []sqliteSummaryRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]summary.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (row sqliteSummaryRow) toDomain() (*summary.Record, error) {
	rec := summary.Record{
		ID:        row.ID,
		GroupID:   row.GroupID,
		Date:      row.Date,
		Timezone:  row.Timezone,
		CreatedAt: time.UnixMilli(row.CreatedAt).UTC(),
	}
	if err := json.Unmarshal([]byte(row.Keywords), &rec.Keywords); err != nil {
		return nil, fmt.Errorf("decode summary keywords %s: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.Data), &rec.Data); err != nil {
		return nil, fmt.Errorf("decode summary %s: %w", row.ID, err)
	}
	return &rec, nil
}
