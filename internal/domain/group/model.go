package group

import "strings"

// Source values identify which lookup produced an Info.
const (
	SourceWAHA      = "waha"
	SourceWhatsmeow = "whatsmeow"
	SourceDatabase  = "database"
)

// Info is the canonical identity of a WhatsApp group for one request.
// It is rebuilt on every lookup and never stored.
type Info struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	ParticipantCount int    `json:"participantCount"`
	Source           string `json:"source,omitempty"`
}

// IsGroupJID reports whether jid uses the group server suffix.
func IsGroupJID(jid string) bool {
	return strings.HasSuffix(strings.TrimSpace(jid), "@g.us")
}
