package whatsapp

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"go.mau.fi/whatsmeow/types"
)

type fakeLister struct {
	groups []*types.GroupInfo
	err    error
}

func (f fakeLister) GetJoinedGroups() ([]*types.GroupInfo, error) { return f.groups, f.err }

func groupInfo(user, name string, participants int) *types.GroupInfo {
	g := &types.GroupInfo{JID: types.NewJID(user, types.GroupServer)}
	g.GroupName.Name = name
	g.Participants = make([]types.GroupParticipant, participants)
	return g
}

func TestDirectoryMergesSessions(t *testing.T) {
	dir := NewDirectoryFunc(func() []GroupLister {
		return []GroupLister{
			fakeLister{groups: []*types.GroupInfo{groupInfo("111", "Hikers", 4), nil}},
			fakeLister{err: errors.New("not logged in")},
			fakeLister{groups: []*types.GroupInfo{groupInfo("111", "Hikers", 4), groupInfo("222", " Runners ", 2)}},
		}
	}, nil)

	groups, err := dir.ListGroups(context.Background())
	if err != nil {
		t.Fatalf("list groups: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 unique groups, got %+v", groups)
	}
	if groups[0].ID != "111@g.us" || groups[0].ParticipantCount != 4 || groups[0].Source != "whatsmeow" {
		t.Fatalf("unexpected first group %+v", groups[0])
	}
	if groups[1].Name != "Runners" {
		t.Fatalf("expected trimmed name, got %q", groups[1].Name)
	}
}

func TestDirectoryEmptyWhenDisconnected(t *testing.T) {
	dir := NewDirectory(NewManager(nil), nil)
	groups, err := dir.ListGroups(context.Background())
	if err != nil || len(groups) != 0 {
		t.Fatalf("expected empty list, got %v %v", groups, err)
	}
}

func TestDirectoryFailsWhenAllSessionsFail(t *testing.T) {
	boom := errors.New("boom")
	dir := NewDirectoryFunc(func() []GroupLister { return []GroupLister{fakeLister{err: boom}} }, nil)
	if _, err := dir.ListGroups(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestManagerRegisterAndQR(t *testing.T) {
	m := NewManager(nil)
	if _, err := m.Register("main"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := m.Register("main"); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if err := m.SetLastQR("other", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := m.SetLastQR("main", "2@abc"); err != nil {
		t.Fatalf("set qr: %v", err)
	}
	if code, ok := m.GetLastQR("main"); !ok || code != "2@abc" {
		t.Fatalf("unexpected qr %q %v", code, ok)
	}
	m.Remove("main")
	if _, ok := m.Get("main"); ok {
		t.Fatalf("expected session to be removed")
	}
}

func TestWriteQRASCII(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteQRASCII(&buf, "2@pairing-code"); err != nil {
		t.Fatalf("write qr: %v", err)
	}
	if !strings.Contains(buf.String(), "█") {
		t.Fatalf("expected block characters in output")
	}
	url, err := PNGDataURL("2@pairing-code", 128)
	if err != nil || !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Fatalf("unexpected data url %q %v", url, err)
	}
}
