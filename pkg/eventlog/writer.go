// Package eventlog archives raw inbound events as JSON files, one file per
// event, under baseDir/<yyyy-mm-dd>/<source>/<type>/.
package eventlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	waLog "go.mau.fi/whatsmeow/util/log"
)

var invalidSegment = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// Writer is safe for concurrent use. A nil Writer discards everything.
type Writer struct {
	baseDir string
	log     waLog.Logger
	now     func() time.Time
}

// NewWriter returns nil when baseDir is blank, which disables archiving.
func NewWriter(baseDir string, log waLog.Logger) *Writer {
	base := strings.TrimSpace(baseDir)
	if base == "" {
		return nil
	}
	if log == nil {
		log = waLog.Noop
	}
	return &Writer{baseDir: filepath.Clean(base), log: log, now: time.Now}
}

func (w *Writer) Enabled() bool {
	return w != nil && w.baseDir != ""
}

// Write stores evt and returns the file path. source is the session or
// gateway the event came from.
func (w *Writer) Write(source string, evt any) (string, error) {
	if !w.Enabled() || evt == nil {
		return "", nil
	}

	ts := w.now().UTC()
	eventType := EventType(evt)
	dir := filepath.Join(w.baseDir, ts.Format("2006-01-02"), sanitizeSegment(source), sanitizeSegment(eventType))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	record := struct {
		EventType  string `json:"eventType"`
		Source     string `json:"source"`
		ReceivedAt string `json:"receivedAt"`
		Payload    any    `json:"payload"`
	}{eventType, source, ts.Format(time.RFC3339Nano), payload(evt)}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s-%s.json", ts.Format("150405.000"), uuid.NewString()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	w.log.Debugf("archived %s event from %s to %s", eventType, source, path)
	return path, nil
}

// EventType is the unqualified Go type name of evt, without pointer marks.
func EventType(evt any) string {
	if evt == nil {
		return "Unknown"
	}
	t := strings.TrimLeft(fmt.Sprintf("%T", evt), "*")
	if idx := strings.LastIndex(t, "."); idx >= 0 && idx < len(t)-1 {
		t = t[idx+1:]
	}
	if t == "" {
		return "Unknown"
	}
	return t
}

func sanitizeSegment(raw string) string {
	sanitized := invalidSegment.ReplaceAllString(strings.TrimSpace(raw), "_")
	sanitized = strings.Trim(sanitized, "._-")
	if sanitized == "" {
		return "unknown"
	}
	return sanitized
}

// payload round-trips evt through JSON so the archived form is plain data.
// Values that cannot be marshalled are kept as their %+v text.
func payload(evt any) any {
	if raw, ok := evt.(json.RawMessage); ok {
		return raw
	}
	raw, err := json.Marshal(evt)
	if err != nil {
		return map[string]any{
			"marshalError": err.Error(),
			"text":         fmt.Sprintf("%+v", evt),
		}
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{"text": string(raw)}
	}
	return out
}
