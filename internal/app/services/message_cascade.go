package services

import (
	"context"
	"strings"

	"github.com/faeln1/second-brain/internal/app/repositories"
	"github.com/faeln1/second-brain/internal/domain/group"
	"github.com/faeln1/second-brain/internal/domain/message"
	"github.com/faeln1/second-brain/pkg/timewindow"
	waLog "go.mau.fi/whatsmeow/util/log"
)

const (
	StrategyGroupID     = "group_id"
	StrategyGroupName   = "group_name"
	StrategyLegacyTo    = "legacy_to"
	StrategyAnyIdentity = "any_identity"
	StrategyEmergency   = "emergency_recent"

	cascadeLimit   = 1000
	emergencyLimit = 100
)

// CascadeResult is the outcome of one Fetch. Messages are oldest first.
// Window is the period the messages actually belong to; it differs from the
// requested one only for the emergency fallback.
type CascadeResult struct {
	Messages []message.StoredMessage
	Strategy string
	Window   timewindow.TimeWindow
}

type cascadeStrategy struct {
	name  string
	build func(g group.Info, inWindow repositories.Predicate) (repositories.Predicate, bool)
}

// cascadeStrategies are tried in order; the first one returning rows wins.
var cascadeStrategies = []cascadeStrategy{
	{
		name: StrategyGroupID,
		build: func(g group.Info, inWindow repositories.Predicate) (repositories.Predicate, bool) {
			if g.ID == "" {
				return repositories.Predicate{}, false
			}
			return repositories.And(
				repositories.Eq(repositories.FieldIsGroup, true),
				repositories.Eq(repositories.FieldGroupID, g.ID),
				inWindow,
			), true
		},
	},
	{
		name: StrategyGroupName,
		build: func(g group.Info, inWindow repositories.Predicate) (repositories.Predicate, bool) {
			if g.Name == "" {
				return repositories.Predicate{}, false
			}
			return repositories.And(
				repositories.Eq(repositories.FieldIsGroup, true),
				repositories.Eq(repositories.FieldGroupName, g.Name),
				inWindow,
			), true
		},
	},
	{
		name: StrategyLegacyTo,
		build: func(g group.Info, inWindow repositories.Predicate) (repositories.Predicate, bool) {
			if g.ID == "" {
				return repositories.Predicate{}, false
			}
			return repositories.And(
				repositories.Contains(repositories.FieldTo, g.ID),
				inWindow,
			), true
		},
	},
	{
		name: StrategyAnyIdentity,
		build: func(g group.Info, inWindow repositories.Predicate) (repositories.Predicate, bool) {
			var alts []repositories.Predicate
			if g.ID != "" {
				alts = append(alts,
					repositories.Eq(repositories.FieldGroupID, g.ID),
					repositories.Contains(repositories.FieldTo, g.ID),
				)
			}
			if g.Name != "" {
				alts = append(alts, repositories.Eq(repositories.FieldGroupName, g.Name))
			}
			if len(alts) == 0 {
				return repositories.Predicate{}, false
			}
			return repositories.And(repositories.Or(alts...), inWindow), true
		},
	},
}

type strategyRecorder interface {
	IncStrategy(strategy string)
}

// MessageCascade finds the messages of a group inside a window, coping with
// rows written under several historical schemas.
type MessageCascade struct {
	repo    repositories.MessageRepository
	windows *timewindow.Resolver
	metrics strategyRecorder
	log     waLog.Logger
}

func NewMessageCascade(repo repositories.MessageRepository, windows *timewindow.Resolver, log waLog.Logger) *MessageCascade {
	if windows == nil {
		windows = timewindow.NewResolver()
	}
	if log == nil {
		log = waLog.Noop
	}
	return &MessageCascade{repo: repo, windows: windows, log: log}
}

func (c *MessageCascade) WithMetrics(m strategyRecorder) *MessageCascade {
	c.metrics = m
	return c
}

// Fetch runs the strategies one after another and stops at the first that
// returns anything. When all of them come back empty the emergency fallback
// looks at the last 24 hours instead of the requested window.
func (c *MessageCascade) Fetch(ctx context.Context, g group.Info, w timewindow.TimeWindow) (CascadeResult, error) {
	bounds := timewindow.QueryBounds(w)
	inWindow := repositories.Or(
		repositories.Within(repositories.FieldTimestamp, bounds.Start, bounds.End),
		repositories.Within(repositories.FieldCreatedAt, bounds.Start, bounds.End),
	)

	for _, s := range cascadeStrategies {
		where, ok := s.build(g, inWindow)
		if !ok {
			continue
		}
		rows, err := c.run(ctx, s.name, where, cascadeLimit)
		if err != nil {
			return CascadeResult{}, err
		}
		if len(rows) > 0 {
			c.log.Debugf("strategy %s found %d messages for %s", s.name, len(rows), g.ID)
			c.record(s.name)
			return CascadeResult{Messages: oldestFirst(rows), Strategy: s.name, Window: w}, nil
		}
	}

	return c.emergency(ctx, g, w)
}

func (c *MessageCascade) emergency(ctx context.Context, g group.Info, requested timewindow.TimeWindow) (CascadeResult, error) {
	var alts []repositories.Predicate
	if g.ID != "" {
		alts = append(alts,
			repositories.Eq(repositories.FieldGroupID, g.ID),
			repositories.Contains(repositories.FieldTo, g.ID),
			repositories.Contains(repositories.FieldFrom, g.ID),
		)
	}
	if name := strings.TrimSpace(g.Name); name != "" {
		alts = append(alts, repositories.ContainsFold(repositories.FieldGroupName, name))
	}
	if len(alts) == 0 {
		return CascadeResult{Messages: []message.StoredMessage{}, Window: requested}, nil
	}

	recent, err := c.windows.Last24Hours(requested.Timezone)
	if err != nil {
		return CascadeResult{}, err
	}

	rows, err := c.run(ctx, StrategyEmergency, repositories.Or(alts...), emergencyLimit)
	if err != nil {
		return CascadeResult{}, err
	}

	kept := make([]message.StoredMessage, 0, len(rows))
	for _, row := range rows {
		if t, ok := row.SortTime(); ok && recent.Contains(t) {
			kept = append(kept, row)
		}
	}
	if len(kept) == 0 {
		return CascadeResult{Messages: kept, Window: requested}, nil
	}
	c.log.Warnf("no messages for %s in %s, using %d messages from the last 24 hours", g.ID, requested.Label, len(kept))
	c.record(StrategyEmergency)
	return CascadeResult{Messages: oldestFirst(kept), Strategy: StrategyEmergency, Window: recent}, nil
}

// run executes one query. Store failures count as an empty result so the
// next strategy still gets its turn; only cancellation stops the cascade.
func (c *MessageCascade) run(ctx context.Context, name string, where repositories.Predicate, limit int) ([]message.StoredMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := c.repo.Find(ctx, repositories.MessageQuery{Where: where, Limit: limit})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.log.Warnf("message strategy %s failed: %v", name, err)
		return nil, nil
	}
	return rows, nil
}

func (c *MessageCascade) record(strategy string) {
	if c.metrics != nil {
		c.metrics.IncStrategy(strategy)
	}
}

// oldestFirst reverses the newest-first rows returned by the store.
func oldestFirst(rows []message.StoredMessage) []message.StoredMessage {
	out := make([]message.StoredMessage, len(rows))
	for i, row := range rows {
		out[len(rows)-1-i] = row
	}
	return out
}
