package whatsapp

import (
	"context"
	"strings"

	"github.com/faeln1/second-brain/internal/domain/group"
	"go.mau.fi/whatsmeow/types"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// GroupLister is the part of a whatsmeow client the directory needs.
type GroupLister interface {
	GetJoinedGroups() ([]*types.GroupInfo, error)
}

// Directory lists the groups joined by every connected session.
type Directory struct {
	clients func() []GroupLister
	log     waLog.Logger
}

func NewDirectory(mgr *Manager, log waLog.Logger) *Directory {
	return NewDirectoryFunc(func() []GroupLister {
		var out []GroupLister
		for _, s := range mgr.List() {
			if s.Connected() {
				out = append(out, s.Client)
			}
		}
		return out
	}, log)
}

// NewDirectoryFunc builds a directory over an arbitrary set of clients.
func NewDirectoryFunc(clients func() []GroupLister, log waLog.Logger) *Directory {
	if log == nil {
		log = waLog.Noop
	}
	return &Directory{clients: clients, log: log}
}

func (d *Directory) Name() string { return group.SourceWhatsmeow }

// ListGroups merges the joined groups of all connected sessions. It returns
// an empty list when nothing is connected; a failing session is skipped
// unless every session fails.
func (d *Directory) ListGroups(ctx context.Context) ([]group.Info, error) {
	clients := d.clients()
	seen := make(map[string]struct{})
	out := make([]group.Info, 0)
	var lastErr error
	failures := 0
	for _, c := range clients {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		joined, err := c.GetJoinedGroups()
		if err != nil {
			d.log.Warnf("get joined groups: %v", err)
			lastErr = err
			failures++
			continue
		}
		for _, g := range joined {
			if g == nil {
				continue
			}
			id := g.JID.String()
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, group.Info{
				ID:               id,
				Name:             strings.TrimSpace(g.GroupName.Name),
				ParticipantCount: len(g.Participants),
				Source:           group.SourceWhatsmeow,
			})
		}
	}
	if failures > 0 && failures == len(clients) {
		return nil, lastErr
	}
	return out, nil
}
