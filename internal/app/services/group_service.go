package services

import (
	"context"
	"reflect"
	"sort"

	"github.com/faeln1/second-brain/internal/domain/group"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// GroupService lists the groups known to the live directories.
type GroupService interface {
	ListGroups(ctx context.Context) ([]group.Info, error)
}

type groupService struct {
	directories []GroupDirectory
	log         waLog.Logger
}

func NewGroupService(log waLog.Logger, directories ...GroupDirectory) GroupService {
	if log == nil {
		log = waLog.Noop
	}
	s := &groupService{log: log}
	for _, d := range directories {
		if !isNilDirectory(d) {
			s.directories = append(s.directories, d)
		}
	}
	return s
}

// ListGroups merges every directory. The first directory to report a group
// wins; failing directories are logged and skipped.
func (s *groupService) ListGroups(ctx context.Context) ([]group.Info, error) {
	seen := make(map[string]struct{})
	out := make([]group.Info, 0)
	for _, dir := range s.directories {
		groups, err := dir.ListGroups(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.log.Warnf("list groups from %s failed: %v", dir.Name(), err)
			continue
		}
		for _, g := range groups {
			if _, dup := seen[g.ID]; dup {
				continue
			}
			seen[g.ID] = struct{}{}
			if g.Source == "" {
				g.Source = dir.Name()
			}
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func isNilDirectory(d GroupDirectory) bool {
	if d == nil {
		return true
	}
	v := reflect.ValueOf(d)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
