package repositories

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/faeln1/second-brain/internal/domain/message"
	"github.com/google/uuid"
)

var ErrInvalidMessage = errors.New("invalid message")

// MessageRepository is the message store the summary pipeline reads from and
// the ingesters write to.
type MessageRepository interface {
	// Find returns rows matching q.Where, newest first by timestamp falling
	// back to createdAt, with the linked contact populated.
	Find(ctx context.Context, q MessageQuery) ([]message.StoredMessage, error)
	Save(ctx context.Context, msg *message.StoredMessage) error
	SaveContact(ctx context.Context, c *message.Contact) error
}

type inMemoryMessageRepo struct {
	mu       sync.RWMutex
	messages map[string]message.StoredMessage
	contacts map[string]message.Contact
}

func NewInMemoryMessageRepo() MessageRepository {
	return &inMemoryMessageRepo{
		messages: make(map[string]message.StoredMessage),
		contacts: make(map[string]message.Contact),
	}
}

func (r *inMemoryMessageRepo) Find(ctx context.Context, q MessageQuery) ([]message.StoredMessage, error) {
	if err := q.Where.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]message.StoredMessage, 0)
	for _, m := range r.messages {
		if !q.Where.Matches(m) {
			continue
		}
		if m.ContactID != nil {
			if c, ok := r.contacts[*m.ContactID]; ok {
				c := c
				m.Contact = &c
			}
		}
		out = append(out, m)
	}
	sortNewestFirst(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *inMemoryMessageRepo) Save(ctx context.Context, msg *message.StoredMessage) error {
	if msg == nil {
		return ErrInvalidMessage
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if strings.TrimSpace(msg.RecordID) == "" {
		msg.RecordID = uuid.NewString()
	}
	cp := *msg
	cp.Contact = nil
	r.messages[msg.RecordID] = cp
	return nil
}

func (r *inMemoryMessageRepo) SaveContact(ctx context.Context, c *message.Contact) error {
	if c == nil || strings.TrimSpace(c.ID) == "" {
		return ErrInvalidMessage
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.contacts[c.ID]; ok {
		r.contacts[c.ID] = mergeContact(existing, *c)
		return nil
	}
	r.contacts[c.ID] = *c
	return nil
}

// mergeContact keeps known fields when an update carries blanks.
func mergeContact(existing, update message.Contact) message.Contact {
	if update.Name != "" {
		existing.Name = update.Name
	}
	if update.PushName != "" {
		existing.PushName = update.PushName
	}
	if update.Number != "" {
		existing.Number = update.Number
	}
	return existing
}

func sortNewestFirst(rows []message.StoredMessage) {
	sort.SliceStable(rows, func(i, j int) bool {
		ti, _ := rows[i].SortTime()
		tj, _ := rows[j].SortTime()
		if ti.Equal(tj) {
			return rows[i].RecordID > rows[j].RecordID
		}
		return ti.After(tj)
	})
}

func timePtr(t time.Time) *time.Time { return &t }
