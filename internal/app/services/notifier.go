package services

import (
	"bytes"
	"context"
	"encoding/json"
	"path"
	"strings"

	"github.com/faeln1/second-brain/internal/domain/summary"
	"github.com/faeln1/second-brain/pkg/storage"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// SummaryNotifier is told about every summary the pipeline produces.
type SummaryNotifier interface {
	Name() string
	NotifySummary(ctx context.Context, rec summary.Record) error
}

// Broadcaster pushes an event to live subscribers.
type Broadcaster interface {
	Broadcast(eventType string, data any) error
}

type broadcastNotifier struct {
	hub Broadcaster
}

// NewBroadcastNotifier returns nil for a nil hub.
func NewBroadcastNotifier(hub Broadcaster) SummaryNotifier {
	if hub == nil {
		return nil
	}
	return &broadcastNotifier{hub: hub}
}

func (n *broadcastNotifier) Name() string { return "realtime" }

func (n *broadcastNotifier) NotifySummary(_ context.Context, rec summary.Record) error {
	return n.hub.Broadcast(EventSummaryCreated, rec)
}

type storageExporter struct {
	store  storage.Service
	prefix string
	log    waLog.Logger
}

// NewStorageExporter writes each summary as JSON to
// <prefix>/<groupId>/<date>.json. It returns nil for a nil store.
func NewStorageExporter(store storage.Service, prefix string, log waLog.Logger) SummaryNotifier {
	if store == nil {
		return nil
	}
	if log == nil {
		log = waLog.Noop
	}
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "summaries"
	}
	return &storageExporter{store: store, prefix: prefix, log: log}
}

func (e *storageExporter) Name() string { return "storage" }

func (e *storageExporter) NotifySummary(ctx context.Context, rec summary.Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	key := ExportKey(e.prefix, rec)
	url, err := e.store.PutObject(ctx, storage.UploadInput{
		Key:         key,
		ContentType: "application/json",
		Body:        bytes.NewReader(data),
		Size:        int64(len(data)),
	})
	if err != nil {
		return err
	}
	e.log.Infof("exported summary of %s for %s to %s", rec.GroupID, rec.Date, url)
	return nil
}

// ExportKey is the object key of an exported summary.
func ExportKey(prefix string, rec summary.Record) string {
	return path.Join(prefix, sanitizeKey(rec.GroupID), sanitizeKey(rec.Date)+".json")
}

var keyReplacer = strings.NewReplacer("/", "_", "\\", "_", "..", "_", " ", "_")

func sanitizeKey(s string) string {
	s = keyReplacer.Replace(strings.TrimSpace(s))
	if s == "" {
		return "unknown"
	}
	return s
}

// NotifierChain fans a summary out to every notifier. Failures are logged
// and never returned to the caller.
type NotifierChain struct {
	notifiers []SummaryNotifier
	log       waLog.Logger
}

func NewNotifierChain(log waLog.Logger, notifiers ...SummaryNotifier) *NotifierChain {
	if log == nil {
		log = waLog.Noop
	}
	c := &NotifierChain{log: log}
	for _, n := range notifiers {
		if n != nil {
			c.notifiers = append(c.notifiers, n)
		}
	}
	return c
}

func (c *NotifierChain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.notifiers)
}

func (c *NotifierChain) Notify(ctx context.Context, rec summary.Record) {
	if c == nil {
		return
	}
	for _, n := range c.notifiers {
		if err := n.NotifySummary(ctx, rec); err != nil {
			c.log.Warnf("notify %s failed for %s: %v", n.Name(), rec.GroupID, err)
		}
	}
}
