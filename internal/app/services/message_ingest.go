package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"

	"github.com/faeln1/second-brain/internal/app/repositories"
	"github.com/faeln1/second-brain/internal/domain/group"
	"github.com/faeln1/second-brain/internal/domain/message"
	"github.com/faeln1/second-brain/pkg/eventlog"
)

var ErrUnsupportedEvent = errors.New("unsupported event")

const (
	groupNameCacheSize = 512
	groupNameCacheTTL  = 10 * time.Minute
)

// MessageEventListener receives messages from a whatsmeow session.
type MessageEventListener interface {
	HandleMessage(ctx context.Context, sessionName string, evt *events.Message)
}

type ingestRecorder interface {
	IncIngested(source string)
}

// MessageIngestor writes inbound WhatsApp messages to the message store,
// tagging group messages with the group id and name.
type MessageIngestor struct {
	repo    repositories.MessageRepository
	groups  groupLookup
	events  *eventlog.Writer
	metrics ingestRecorder
	names   *expirable.LRU[string, string]
	log     waLog.Logger
	now     func() time.Time
}

// NewMessageIngestor accepts a nil group lookup; group names are then left
// empty. events may be nil.
func NewMessageIngestor(repo repositories.MessageRepository, groups groupLookup, events *eventlog.Writer, log waLog.Logger) *MessageIngestor {
	if log == nil {
		log = waLog.Noop
	}
	return &MessageIngestor{
		repo:   repo,
		groups: groups,
		events: events,
		names:  expirable.NewLRU[string, string](groupNameCacheSize, nil, groupNameCacheTTL),
		log:    log,
		now:    time.Now,
	}
}

func (h *MessageIngestor) WithMetrics(m ingestRecorder) *MessageIngestor {
	h.metrics = m
	return h
}

// HandleMessage stores a whatsmeow message. Errors are logged.
func (h *MessageIngestor) HandleMessage(ctx context.Context, sessionName string, evt *events.Message) {
	if h == nil || evt == nil {
		return
	}
	if _, err := h.events.Write(sessionName, evt); err != nil {
		h.log.Warnf("archive event from %s failed: %v", sessionName, err)
	}
	stored, contact, ok := StoredFromEvent(evt)
	if !ok {
		return
	}
	if err := h.store(ctx, &stored, contact); err != nil {
		h.log.Errorf("store message %s from %s failed: %v", stored.MessageID, sessionName, err)
	}
}

// IngestWAHA stores a WAHA webhook delivery. Events other than messages are
// archived and reported as ErrUnsupportedEvent.
func (h *MessageIngestor) IngestWAHA(ctx context.Context, raw []byte) error {
	var evt WAHAEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if _, err := h.events.Write("waha-"+evt.Session, json.RawMessage(raw)); err != nil {
		h.log.Warnf("archive waha event failed: %v", err)
	}
	if evt.Event != "message" && evt.Event != "message.any" {
		return fmt.Errorf("%w: %s", ErrUnsupportedEvent, evt.Event)
	}
	stored, contact, ok := StoredFromWAHA(evt.Payload)
	if !ok {
		return fmt.Errorf("%w: message without id", ErrInvalidInput)
	}
	return h.store(ctx, &stored, contact)
}

func (h *MessageIngestor) store(ctx context.Context, stored *message.StoredMessage, contact *message.Contact) error {
	if stored.CreatedAt == nil {
		stored.CreatedAt = message.Time(h.now().UTC())
	}
	if stored.Metadata.GroupID != "" && stored.Metadata.GroupName == "" {
		stored.Metadata.GroupName = h.groupName(ctx, stored.Metadata.GroupID)
	}
	if contact != nil {
		if err := h.repo.SaveContact(ctx, contact); err != nil {
			h.log.Warnf("save contact %s failed: %v", contact.ID, err)
		} else {
			stored.ContactID = &contact.ID
		}
	}
	if err := h.repo.Save(ctx, stored); err != nil {
		return err
	}
	if h.metrics != nil {
		h.metrics.IncIngested(stored.Source)
	}
	h.log.Debugf("stored %s message %s chat=%s group=%q", stored.Source, stored.MessageID, stored.To, stored.Metadata.GroupName)
	return nil
}

func (h *MessageIngestor) groupName(ctx context.Context, groupID string) string {
	if name, ok := h.names.Get(groupID); ok {
		return name
	}
	if h.groups == nil {
		return ""
	}
	info, err := h.groups.Resolve(ctx, groupID)
	if err != nil {
		h.log.Debugf("group name of %s unknown: %v", groupID, err)
		return ""
	}
	if info.Name == groupID {
		return ""
	}
	h.names.Add(groupID, info.Name)
	return info.Name
}

// StoredFromEvent converts a whatsmeow message. ok is false for protocol
// messages and events without content.
func StoredFromEvent(evt *events.Message) (stored message.StoredMessage, contact *message.Contact, ok bool) {
	if evt == nil {
		return stored, nil, false
	}
	msg := evt.Message
	if msg == nil {
		msg = evt.RawMessage
	}
	if msg == nil || msg.GetProtocolMessage() != nil || evt.Info.ID == "" {
		return stored, nil, false
	}

	info := evt.Info
	chat := info.Chat.String()
	sender := info.Sender.ToNonAD().String()
	if info.Sender.IsEmpty() {
		sender = chat
	}

	stored = message.StoredMessage{
		RecordID:  message.SourceWhatsmeow + ":" + string(info.ID),
		MessageID: string(info.ID),
		From:      sender,
		To:        chat,
		Body:      messageBody(msg),
		Caption:   messageCaption(msg),
		Type:      messageKind(msg),
		Source:    message.SourceWhatsmeow,
		Metadata:  message.Metadata{IsGroup: message.Bool(info.IsGroup)},
	}
	if !info.Timestamp.IsZero() {
		stored.Timestamp = message.Time(info.Timestamp.UTC())
	}
	if info.IsGroup {
		stored.Metadata.GroupID = chat
	}
	if !info.Sender.IsEmpty() {
		contact = &message.Contact{ID: sender, PushName: strings.TrimSpace(info.PushName), Number: info.Sender.User}
	}
	return stored, contact, true
}

func messageBody(msg *waE2E.Message) string {
	if text := msg.GetConversation(); text != "" {
		return text
	}
	return msg.GetExtendedTextMessage().GetText()
}

func messageCaption(msg *waE2E.Message) string {
	switch {
	case msg.GetImageMessage() != nil:
		return msg.GetImageMessage().GetCaption()
	case msg.GetVideoMessage() != nil:
		return msg.GetVideoMessage().GetCaption()
	case msg.GetDocumentMessage() != nil:
		return msg.GetDocumentMessage().GetCaption()
	}
	return ""
}

func messageKind(msg *waE2E.Message) string {
	switch {
	case msg.GetConversation() != "", msg.GetExtendedTextMessage() != nil:
		return "text"
	case msg.GetImageMessage() != nil:
		return "image"
	case msg.GetVideoMessage() != nil:
		if msg.GetVideoMessage().GetGifPlayback() {
			return "gif"
		}
		return "video"
	case msg.GetAudioMessage() != nil:
		if msg.GetAudioMessage().GetPTT() {
			return "ptt"
		}
		return "audio"
	case msg.GetDocumentMessage() != nil:
		return "document"
	case msg.GetStickerMessage() != nil:
		return "sticker"
	case msg.GetContactMessage() != nil:
		return "contact"
	case msg.GetLocationMessage() != nil, msg.GetLiveLocationMessage() != nil:
		return "location"
	case msg.GetReactionMessage() != nil:
		return "reaction"
	case msg.GetPollCreationMessage() != nil:
		return "poll"
	default:
		return "unknown"
	}
}

// WAHAEvent is a webhook delivery from the WAHA gateway.
type WAHAEvent struct {
	Event   string      `json:"event"`
	Session string      `json:"session"`
	Payload WAHAMessage `json:"payload"`
}

// WAHAMessage is the message payload of a WAHA "message" event. In groups
// From is the group id and Participant the author.
type WAHAMessage struct {
	ID          string `json:"id"`
	Timestamp   int64  `json:"timestamp"`
	From        string `json:"from"`
	To          string `json:"to"`
	FromMe      bool   `json:"fromMe"`
	Participant string `json:"participant"`
	Body        string `json:"body"`
	HasMedia    bool   `json:"hasMedia"`
	Media       *struct {
		MimeType string `json:"mimetype"`
	} `json:"media"`
	Data struct {
		Type       string `json:"type"`
		NotifyName string `json:"notifyName"`
		Caption    string `json:"caption"`
	} `json:"_data"`
}

// StoredFromWAHA converts a WAHA message payload. The chat id lands in To as
// older rows expect.
func StoredFromWAHA(p WAHAMessage) (stored message.StoredMessage, contact *message.Contact, ok bool) {
	if strings.TrimSpace(p.ID) == "" {
		return stored, nil, false
	}
	chat := p.From
	if p.FromMe {
		chat = p.To
	}
	isGroup := group.IsGroupJID(chat)
	sender := p.From
	if isGroup {
		sender = p.Participant
	}

	stored = message.StoredMessage{
		RecordID:  message.SourceWAHA + ":" + p.ID,
		MessageID: p.ID,
		From:      sender,
		To:        chat,
		Body:      p.Body,
		Caption:   p.Data.Caption,
		Type:      wahaKind(p),
		Source:    message.SourceWAHA,
		Metadata:  message.Metadata{IsGroup: message.Bool(isGroup)},
	}
	if p.Timestamp > 0 {
		stored.Timestamp = message.Time(time.Unix(p.Timestamp, 0).UTC())
	}
	if isGroup {
		stored.Metadata.GroupID = chat
	}
	if sender != "" {
		number, _, _ := strings.Cut(sender, "@")
		contact = &message.Contact{ID: sender, PushName: strings.TrimSpace(p.Data.NotifyName), Number: number}
	}
	return stored, contact, true
}

func wahaKind(p WAHAMessage) string {
	if t := strings.TrimSpace(p.Data.Type); t != "" {
		return t
	}
	if p.HasMedia && p.Media != nil {
		kind, _, _ := strings.Cut(p.Media.MimeType, "/")
		if kind == "application" {
			return "document"
		}
		if kind != "" {
			return kind
		}
	}
	return "text"
}

var _ MessageEventListener = (*MessageIngestor)(nil)
