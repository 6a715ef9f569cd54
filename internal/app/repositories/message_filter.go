package repositories

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/faeln1/second-brain/internal/domain/message"
)

var ErrInvalidPredicate = errors.New("invalid message predicate")

// Field names a queryable message attribute.
type Field string

const (
	FieldIsGroup   Field = "metadata.isGroup"
	FieldGroupID   Field = "metadata.groupId"
	FieldGroupName Field = "metadata.groupName"
	FieldTo        Field = "to"
	FieldFrom      Field = "from"
	FieldTimestamp Field = "timestamp"
	FieldCreatedAt Field = "createdAt"
)

type Op string

const (
	OpAnd          Op = "and"
	OpOr           Op = "or"
	OpEq           Op = "eq"
	OpContains     Op = "contains"
	OpContainsFold Op = "icontains"
	OpWithin       Op = "within"
)

// Predicate is a boolean filter tree over stored messages.
type Predicate struct {
	Op       Op
	Field    Field
	Value    any
	Start    time.Time
	End      time.Time
	Children []Predicate
}

func And(children ...Predicate) Predicate { return Predicate{Op: OpAnd, Children: children} }
func Or(children ...Predicate) Predicate  { return Predicate{Op: OpOr, Children: children} }
func Eq(f Field, v any) Predicate         { return Predicate{Op: OpEq, Field: f, Value: v} }

// Contains matches a case-sensitive substring.
func Contains(f Field, s string) Predicate { return Predicate{Op: OpContains, Field: f, Value: s} }

// ContainsFold matches a case-insensitive substring.
func ContainsFold(f Field, s string) Predicate {
	return Predicate{Op: OpContainsFold, Field: f, Value: s}
}

// Within matches a time field inside [start, end).
func Within(f Field, start, end time.Time) Predicate {
	return Predicate{Op: OpWithin, Field: f, Start: start, End: end}
}

// MessageQuery selects at most Limit rows, newest first. Limit <= 0 means no limit.
type MessageQuery struct {
	Where Predicate
	Limit int
}

func isTimeField(f Field) bool { return f == FieldTimestamp || f == FieldCreatedAt }

func isStringField(f Field) bool {
	switch f {
	case FieldGroupID, FieldGroupName, FieldTo, FieldFrom:
		return true
	}
	return false
}

// Validate checks the tree is well formed.
func (p Predicate) Validate() error {
	switch p.Op {
	case OpAnd, OpOr:
		if len(p.Children) == 0 {
			return fmt.Errorf("%w: empty %s", ErrInvalidPredicate, p.Op)
		}
		for _, c := range p.Children {
			if err := c.Validate(); err != nil {
				return err
			}
		}
		return nil
	case OpEq:
		switch {
		case p.Field == FieldIsGroup:
			if _, ok := p.Value.(bool); !ok {
				return fmt.Errorf("%w: %s expects bool", ErrInvalidPredicate, p.Field)
			}
		case isStringField(p.Field):
			if _, ok := p.Value.(string); !ok {
				return fmt.Errorf("%w: %s expects string", ErrInvalidPredicate, p.Field)
			}
		default:
			return fmt.Errorf("%w: eq on %q", ErrInvalidPredicate, p.Field)
		}
		return nil
	case OpContains, OpContainsFold:
		s, ok := p.Value.(string)
		if !isStringField(p.Field) || !ok {
			return fmt.Errorf("%w: %s on %q", ErrInvalidPredicate, p.Op, p.Field)
		}
		if s == "" {
			return fmt.Errorf("%w: empty substring on %q", ErrInvalidPredicate, p.Field)
		}
		return nil
	case OpWithin:
		if !isTimeField(p.Field) {
			return fmt.Errorf("%w: within on %q", ErrInvalidPredicate, p.Field)
		}
		if p.End.Before(p.Start) {
			return fmt.Errorf("%w: inverted range on %q", ErrInvalidPredicate, p.Field)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown op %q", ErrInvalidPredicate, p.Op)
	}
}

// Matches evaluates the predicate against a stored row. The tree is assumed
// valid.
func (p Predicate) Matches(m message.StoredMessage) bool {
	switch p.Op {
	case OpAnd:
		for _, c := range p.Children {
			if !c.Matches(m) {
				return false
			}
		}
		return true
	case OpOr:
		for _, c := range p.Children {
			if c.Matches(m) {
				return true
			}
		}
		return false
	case OpEq:
		if p.Field == FieldIsGroup {
			want, _ := p.Value.(bool)
			return m.Metadata.IsGroup != nil && *m.Metadata.IsGroup == want
		}
		want, _ := p.Value.(string)
		return stringField(m, p.Field) == want
	case OpContains:
		s, _ := p.Value.(string)
		return s != "" && strings.Contains(stringField(m, p.Field), s)
	case OpContainsFold:
		s, _ := p.Value.(string)
		return s != "" && strings.Contains(strings.ToLower(stringField(m, p.Field)), strings.ToLower(s))
	case OpWithin:
		t := timeField(m, p.Field)
		return t != nil && !t.Before(p.Start) && t.Before(p.End)
	}
	return false
}

func stringField(m message.StoredMessage, f Field) string {
	switch f {
	case FieldGroupID:
		return m.Metadata.GroupID
	case FieldGroupName:
		return m.Metadata.GroupName
	case FieldTo:
		return m.To
	case FieldFrom:
		return m.From
	}
	return ""
}

func timeField(m message.StoredMessage, f Field) *time.Time {
	switch f {
	case FieldTimestamp:
		return m.Timestamp
	case FieldCreatedAt:
		return m.CreatedAt
	}
	return nil
}
