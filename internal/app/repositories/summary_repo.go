package repositories

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/faeln1/second-brain/internal/domain/summary"
	"github.com/google/uuid"
)

var (
	ErrSummaryNotFound = errors.New("summary not found")
	ErrInvalidSummary  = errors.New("invalid summary record")
)

// SummaryRepository archives generated summaries, one per group, date and
// timezone. Saving the same key again replaces the previous record.
type SummaryRepository interface {
	Save(ctx context.Context, rec *summary.Record) error
	Get(ctx context.Context, groupID, date, timezone string) (*summary.Record, error)
	// ListByGroup returns records newest date first. A non-empty keyword keeps
	// only records whose keywords contain it, case-insensitively.
	ListByGroup(ctx context.Context, groupID, keyword string, limit int) ([]summary.Record, error)
}

func summaryKey(groupID, date, timezone string) string {
	return groupID + "|" + date + "|" + timezone
}

func prepareRecord(rec *summary.Record) error {
	if rec == nil || strings.TrimSpace(rec.GroupID) == "" || strings.TrimSpace(rec.Date) == "" {
		return ErrInvalidSummary
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	keywords := make([]string, 0, len(rec.Keywords))
	for _, k := range rec.Keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keywords = append(keywords, k)
		}
	}
	rec.Keywords = keywords
	return nil
}

type inMemorySummaryRepo struct {
	mu      sync.RWMutex
	records map[string]summary.Record
}

func NewInMemorySummaryRepo() SummaryRepository {
	return &inMemorySummaryRepo{records: make(map[string]summary.Record)}
}

func (r *inMemorySummaryRepo) Save(ctx context.Context, rec *summary.Record) error {
	if err := prepareRecord(rec); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := summaryKey(rec.GroupID, rec.Date, rec.Timezone)
	if existing, ok := r.records[key]; ok {
		rec.ID = existing.ID
	}
	r.records[key] = *rec
	return nil
}

func (r *inMemorySummaryRepo) Get(ctx context.Context, groupID, date, timezone string) (*summary.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[summaryKey(groupID, date, timezone)]
	if !ok {
		return nil, ErrSummaryNotFound
	}
	return &rec, nil
}

func (r *inMemorySummaryRepo) ListByGroup(ctx context.Context, groupID, keyword string, limit int) ([]summary.Record, error) {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]summary.Record, 0)
	for _, rec := range r.records {
		if rec.GroupID != groupID {
			continue
		}
		if keyword != "" && !containsString(rec.Keywords, keyword) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date == out[j].Date {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Date > out[j].Date
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
