package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/faeln1/second-brain/internal/app/repositories"
	"github.com/faeln1/second-brain/internal/domain/group"
	"github.com/faeln1/second-brain/internal/domain/message"
	"github.com/faeln1/second-brain/internal/domain/summary"
)

// countingRepo wraps a repository and counts Find calls. failOn makes the
// n-th call (1-based) fail.
type countingRepo struct {
	repositories.MessageRepository
	mu      sync.Mutex
	calls   int
	queries []repositories.MessageQuery
	failOn  map[int]error
}

func newCountingRepo() *countingRepo {
	return &countingRepo{MessageRepository: repositories.NewInMemoryMessageRepo()}
}

func (r *countingRepo) Find(ctx context.Context, q repositories.MessageQuery) ([]message.StoredMessage, error) {
	r.mu.Lock()
	r.calls++
	n := r.calls
	r.queries = append(r.queries, q)
	err := r.failOn[n]
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.MessageRepository.Find(ctx, q)
}

func (r *countingRepo) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func mustSave(t *testing.T, repo repositories.MessageRepository, msgs ...message.StoredMessage) {
	t.Helper()
	for i := range msgs {
		if err := repo.Save(context.Background(), &msgs[i]); err != nil {
			t.Fatalf("save message: %v", err)
		}
	}
}

type fakeDirectory struct {
	name   string
	groups []group.Info
	err    error
	calls  int
}

func (d *fakeDirectory) Name() string { return d.name }

func (d *fakeDirectory) ListGroups(ctx context.Context) ([]group.Info, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return d.groups, nil
}

type fakeEngine struct {
	calls int
	last  summary.EngineRequest
	err   error
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) GenerateGroupSummary(ctx context.Context, req summary.EngineRequest) (summary.GroupSummaryData, error) {
	e.calls++
	e.last = req
	if e.err != nil {
		return summary.GroupSummaryData{}, e.err
	}
	out := summary.Empty(req.GroupID, req.GroupName, req.Window)
	out.TotalMessages = len(req.Messages)
	out.OverallSummary = "summary"
	senders := map[string]struct{}{}
	for _, m := range req.Messages {
		senders[m.SenderPhone] = struct{}{}
	}
	out.ActiveParticipants = len(senders)
	out.TopKeywords = []summary.KeywordCount{{Keyword: "trail", Count: 2}}
	return out, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	records []summary.Record
	err     error
}

func (n *recordingNotifier) Name() string { return "recording" }

func (n *recordingNotifier) NotifySummary(ctx context.Context, rec summary.Record) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.records = append(n.records, rec)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.records)
}

var errBoom = errors.New("boom")

func at(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}
