package message

import "time"

// Source values for StoredMessage.Source.
const (
	SourceWAHA      = "waha"
	SourceWhatsmeow = "whatsmeow"
	SourceImport    = "import"
)

// Metadata carries the group markers written by the ingesters. Older rows
// may have none of them set.
type Metadata struct {
	IsGroup   *bool  `json:"isGroup,omitempty"`
	GroupID   string `json:"groupId,omitempty"`
	GroupName string `json:"groupName,omitempty"`
}

// Contact is the address-book record a stored message may link to.
type Contact struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	PushName string `json:"pushName,omitempty"`
	Number   string `json:"number,omitempty"`
}

// StoredMessage is a message row exactly as the store holds it. No field is
// guaranteed: time may live in Timestamp or CreatedAt, the group may be
// identified by Metadata or only by the legacy To field.
type StoredMessage struct {
	RecordID  string     `json:"recordId"`
	MessageID string     `json:"messageId,omitempty"`
	From      string     `json:"from,omitempty"`
	To        string     `json:"to,omitempty"`
	Body      string     `json:"body,omitempty"`
	Caption   string     `json:"caption,omitempty"`
	Type      string     `json:"type,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	Metadata  Metadata   `json:"metadata"`
	Source    string     `json:"source,omitempty"`
	ContactID *string    `json:"contactId,omitempty"`
	Contact   *Contact   `json:"contact,omitempty"`
}

// SortTime is the instant used to order rows: Timestamp when present,
// otherwise CreatedAt. ok is false when neither is set.
func (m StoredMessage) SortTime() (t time.Time, ok bool) {
	if m.Timestamp != nil && !m.Timestamp.IsZero() {
		return *m.Timestamp, true
	}
	if m.CreatedAt != nil && !m.CreatedAt.IsZero() {
		return *m.CreatedAt, true
	}
	return time.Time{}, false
}

// MessageData is the normalized message handed to summarization engines.
type MessageData struct {
	ID          string    `json:"id"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	Type        string    `json:"type"`
	SenderName  string    `json:"senderName"`
	SenderPhone string    `json:"senderPhone"`
}

// Bool returns a pointer to v, for Metadata.IsGroup.
func Bool(v bool) *bool { return &v }

// Time returns a pointer to t.
func Time(t time.Time) *time.Time { return &t }
