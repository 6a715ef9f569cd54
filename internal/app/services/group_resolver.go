package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/faeln1/second-brain/internal/app/repositories"
	"github.com/faeln1/second-brain/internal/domain/group"
	waLog "go.mau.fi/whatsmeow/util/log"
)

var (
	ErrGroupNotFound     = errors.New("group not found")
	ErrGroupInvalidInput = errors.New("invalid group id")
)

// GroupDirectory is a live source of joined groups.
type GroupDirectory interface {
	Name() string
	ListGroups(ctx context.Context) ([]group.Info, error)
}

type resolutionRecorder interface {
	IncGroupResolution(source string)
}

// GroupResolver maps a group id to its identity. Live directories are asked
// in order; the message store is the last resort.
type GroupResolver struct {
	directories []GroupDirectory
	messages    repositories.MessageRepository
	metrics     resolutionRecorder
	log         waLog.Logger
}

// NewGroupResolver skips nil directories, so an unconfigured source can be
// passed as is.
func NewGroupResolver(messages repositories.MessageRepository, log waLog.Logger, directories ...GroupDirectory) *GroupResolver {
	if log == nil {
		log = waLog.Noop
	}
	r := &GroupResolver{messages: messages, log: log}
	for _, d := range directories {
		if isNilDirectory(d) {
			continue
		}
		r.directories = append(r.directories, d)
	}
	return r
}

// WithMetrics records which source resolved each group.
func (r *GroupResolver) WithMetrics(m resolutionRecorder) *GroupResolver {
	r.metrics = m
	return r
}

// Resolve returns the identity of groupID. Directory failures are logged and
// skipped; only a group unknown to every source yields ErrGroupNotFound.
func (r *GroupResolver) Resolve(ctx context.Context, groupID string) (group.Info, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return group.Info{}, ErrGroupInvalidInput
	}

	for _, dir := range r.directories {
		groups, err := dir.ListGroups(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return group.Info{}, ctxErr
			}
			r.log.Warnf("group lookup in %s failed for %s: %v", dir.Name(), groupID, err)
			continue
		}
		for _, g := range groups {
			if g.ID == groupID {
				if g.Source == "" {
					g.Source = dir.Name()
				}
				r.record(g.Source)
				return g, nil
			}
		}
	}

	info, err := r.fromMessages(ctx, groupID)
	if err != nil {
		return group.Info{}, err
	}
	r.record(group.SourceDatabase)
	return info, nil
}

func (r *GroupResolver) fromMessages(ctx context.Context, groupID string) (group.Info, error) {
	if r.messages == nil {
		return group.Info{}, fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
	}
	rows, err := r.messages.Find(ctx, repositories.MessageQuery{
		Where: repositories.And(
			repositories.Eq(repositories.FieldIsGroup, true),
			repositories.Or(
				repositories.Eq(repositories.FieldGroupID, groupID),
				repositories.Eq(repositories.FieldGroupName, groupID),
			),
		),
		Limit: 1,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return group.Info{}, ctxErr
		}
		r.log.Errorf("group lookup in message store failed for %s: %v", groupID, err)
		return group.Info{}, fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
	}
	if len(rows) == 0 {
		return group.Info{}, fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
	}
	// the requested id is kept even when the row matched by name
	info := group.Info{ID: groupID, Name: groupID, Source: group.SourceDatabase}
	if name := rows[0].Metadata.GroupName; name != "" {
		info.Name = name
	}
	return info, nil
}

func (r *GroupResolver) record(source string) {
	if r.metrics != nil {
		r.metrics.IncGroupResolution(source)
	}
}
