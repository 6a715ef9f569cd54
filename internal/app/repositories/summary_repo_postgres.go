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
	"github.com/lib/pq"
)

type postgresSummaryRepo struct {
	db *sql.DB
}

func NewPostgresSummaryRepo(db *sql.DB) (SummaryRepository, error) {
	repo := &postgresSummaryRepo{db: db}
	if err := repo.ensureSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *postgresSummaryRepo) ensureSchema() error {
	const createTable = `
        CREATE TABLE IF NOT EXISTS group_summaries (
            id TEXT PRIMARY KEY,
            group_id TEXT NOT NULL,
            summary_date TEXT NOT NULL,
            timezone TEXT NOT NULL,
            keywords TEXT[] NOT NULL DEFAULT '{}',
            data JSONB NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            UNIQUE (group_id, summary_date, timezone)
        )`
	if _, err := r.db.Exec(createTable); err != nil {
		return err
	}
	if _, err := r.db.Exec(`CREATE INDEX IF NOT EXISTS idx_group_summaries_keywords ON group_summaries USING GIN (keywords)`); err != nil {
		return err
	}
	return nil
}

func (r *postgresSummaryRepo) Save(ctx context.Context, rec *summary.Record) error {
	if err := prepareRecord(rec); err != nil {
		return err
	}
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO group_summaries (id, group_id, summary_date, timezone, keywords, data, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (group_id, summary_date, timezone) DO UPDATE SET
            keywords = EXCLUDED.keywords,
            data = EXCLUDED.data,
            created_at = EXCLUDED.created_at
        RETURNING id`
	err = r.db.QueryRowContext(ctx, query,
		rec.ID,
		rec.GroupID,
		rec.Date,
		rec.Timezone,
		pq.StringArray(rec.Keywords),
		data,
		rec.CreatedAt.UTC(),
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

func (r *postgresSummaryRepo) Get(ctx context.Context, groupID, date, timezone string) (*summary.Record, error) {
	const query = `
        SELECT id, group_id, summary_date, timezone, keywords, data, created_at
        FROM group_summaries
        WHERE group_id = $1 AND summary_date = $2 AND timezone = $3`
	rec, err := scanSummary(r.db.QueryRowContext(ctx, query, groupID, date, timezone))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSummaryNotFound
	}
	return rec, err
}

func (r *postgresSummaryRepo) ListByGroup(ctx context.Context, groupID, keyword string, limit int) ([]summary.Record, error) {
	query := `
        SELECT id, group_id, summary_date, timezone, keywords, data, created_at
        FROM group_summaries
        WHERE group_id = $1`
	args := []any{groupID}
	if keyword = strings.ToLower(strings.TrimSpace(keyword)); keyword != "" {
		query += ` AND $2 = ANY(keywords)`
		args = append(args, keyword)
	}
	query += ` ORDER BY summary_date DESC, created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]summary.Record, 0)
	for rows.Next() {
		rec, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSummary(row rowScanner) (*summary.Record, error) {
	var (
		rec      summary.Record
		keywords pq.StringArray
		raw      []byte
		created  time.Time
	)
	if err := row.Scan(&rec.ID, &rec.GroupID, &rec.Date, &rec.Timezone, &keywords, &raw, &created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &rec.Data); err != nil {
		return nil, fmt.Errorf("decode summary %s: %w", rec.ID, err)
	}
	rec.Keywords = []string(keywords)
	rec.CreatedAt = created
	return &rec, nil
}
