package services

import (
	"strings"

	"github.com/faeln1/second-brain/internal/domain/message"
)

const (
	unknownSenderName  = "Unknown"
	unknownSenderPhone = "unknown"
	defaultMessageType = "text"
)

// NormalizeMessage maps a stored row of any vintage onto MessageData. Every
// field has a fallback, so it never fails.
func NormalizeMessage(raw message.StoredMessage) message.MessageData {
	out := message.MessageData{
		ID:          firstNonEmpty(raw.MessageID, raw.RecordID),
		Message:     firstNonEmpty(raw.Body, raw.Caption),
		Type:        firstNonEmpty(strings.TrimSpace(raw.Type), defaultMessageType),
		SenderName:  senderName(raw),
		SenderPhone: firstNonEmpty(raw.From, unknownSenderPhone),
	}
	if t, ok := raw.SortTime(); ok {
		out.Timestamp = t.UTC()
	}
	return out
}

// NormalizeMessages keeps the input order.
func NormalizeMessages(raw []message.StoredMessage) []message.MessageData {
	out := make([]message.MessageData, 0, len(raw))
	for _, m := range raw {
		out = append(out, NormalizeMessage(m))
	}
	return out
}

func senderName(raw message.StoredMessage) string {
	if c := raw.Contact; c != nil {
		if name := firstNonEmpty(strings.TrimSpace(c.Name), strings.TrimSpace(c.PushName), strings.TrimSpace(c.Number)); name != "" {
			return name
		}
	}
	if local, _, _ := strings.Cut(raw.From, "@"); strings.TrimSpace(local) != "" {
		return local
	}
	return unknownSenderName
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
