package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/faeln1/second-brain/internal/domain/summary"
	"github.com/kaptinlin/jsonrepair"
	waLog "go.mau.fi/whatsmeow/util/log"
)

var ErrEmptyCompletion = errors.New("llm returned an empty completion")

// maxTranscriptMessages bounds the prompt; older messages are dropped first.
const maxTranscriptMessages = 400

// Completer is a single-turn chat completion.
type Completer interface {
	Provider() string
	Complete(ctx context.Context, system, user string) (string, error)
}

// AIEngine computes the analytics locally and asks an LLM for the narrative.
type AIEngine struct {
	completer Completer
	log       waLog.Logger
}

func NewAIEngine(c Completer, log waLog.Logger) *AIEngine {
	if log == nil {
		log = waLog.Noop
	}
	return &AIEngine{completer: c, log: log}
}

func (e *AIEngine) Name() string { return EngineAI }

type aiInsights struct {
	OverallSummary string `json:"overallSummary"`
	Senders        []struct {
		SenderPhone string `json:"senderPhone"`
		Summary     string `json:"summary"`
	} `json:"senders"`
}

const aiSystemPrompt = `You summarize one day of a WhatsApp group chat for a personal knowledge base.
Write in the requested language. Be factual and concise. Mention decisions, plans, open questions and links shared.
Return ONLY a JSON object of the form:
{"overallSummary": "...", "senders": [{"senderPhone": "...", "summary": "..."}]}`

func (e *AIEngine) GenerateGroupSummary(ctx context.Context, req summary.EngineRequest) (summary.GroupSummaryData, error) {
	out := Analyze(req)
	out.ProcessingStats.Engine = EngineAI + ":" + e.completer.Provider()

	raw, err := e.completer.Complete(ctx, aiSystemPrompt, buildPrompt(req, out))
	if err != nil {
		return summary.GroupSummaryData{}, fmt.Errorf("%s completion: %w", e.completer.Provider(), err)
	}
	if strings.TrimSpace(raw) == "" {
		return summary.GroupSummaryData{}, ErrEmptyCompletion
	}

	insights, err := decodeInsights(raw)
	if err != nil {
		e.log.Warnf("could not decode completion for %s, using raw text: %v", req.GroupID, err)
		out.OverallSummary = strings.TrimSpace(raw)
		return out, nil
	}
	out.OverallSummary = strings.TrimSpace(insights.OverallSummary)
	if out.OverallSummary == "" {
		out.OverallSummary = describeGroup(req, out)
	}
	bySender := make(map[string]string, len(insights.Senders))
	for _, s := range insights.Senders {
		bySender[strings.TrimSpace(s.SenderPhone)] = strings.TrimSpace(s.Summary)
	}
	for i := range out.SenderInsights {
		if s := bySender[out.SenderInsights[i].SenderPhone]; s != "" {
			out.SenderInsights[i].Summary = s
		} else {
			out.SenderInsights[i].Summary = describeSender(out.SenderInsights[i])
		}
	}
	return out, nil
}

func buildPrompt(req summary.EngineRequest, data summary.GroupSummaryData) string {
	loc := analysisLocation(req.Options.Timezone)
	lang := req.Options.Language
	if lang == "" {
		lang = "the predominant language of the conversation"
	}
	name := req.GroupName
	if name == "" {
		name = req.GroupID
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Group: %s\nPeriod: %s to %s (%s)\nLanguage: %s\n",
		name,
		req.Window.Start.In(loc).Format("2006-01-02 15:04"),
		req.Window.End.In(loc).Format("2006-01-02 15:04"),
		loc.String(), lang)
	fmt.Fprintf(&b, "Messages: %d from %d participants\n", data.TotalMessages, data.ActiveParticipants)
	if len(data.TopKeywords) > 0 {
		fmt.Fprintf(&b, "Frequent words: %s\n", keywordList(data.TopKeywords, 10))
	}
	b.WriteString("\nParticipants (senderPhone: name):\n")
	for _, in := range data.SenderInsights {
		fmt.Fprintf(&b, "- %s: %s\n", in.SenderPhone, senderLabel(in))
	}
	b.WriteString("\nTranscript:\n")
	msgs := req.Messages
	if len(msgs) > maxTranscriptMessages {
		msgs = msgs[len(msgs)-maxTranscriptMessages:]
	}
	for _, m := range msgs {
		text := strings.TrimSpace(m.Message)
		if text == "" {
			text = "<" + m.Type + ">"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", m.Timestamp.In(loc).Format("15:04"), m.SenderName, text)
	}
	return b.String()
}

func decodeInsights(raw string) (aiInsights, error) {
	var out aiInsights
	candidate := extractJSON(raw)
	if candidate == "" {
		return out, errors.New("no json object in completion")
	}
	if err := json.Unmarshal([]byte(candidate), &out); err == nil {
		return out, nil
	}
	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		return out, fmt.Errorf("repair json: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		return out, fmt.Errorf("decode repaired json: %w", err)
	}
	return out, nil
}

// extractJSON strips code fences and surrounding prose from a completion.
func extractJSON(s string) string {
	raw := strings.TrimSpace(s)
	if strings.HasPrefix(raw, "```") {
		rest := strings.TrimSpace(strings.TrimPrefix(raw, "```"))
		if i := strings.Index(rest, "\n"); i >= 0 {
			rest = rest[i+1:]
		}
		if j := strings.LastIndex(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		raw = strings.TrimSpace(rest)
	}
	if strings.HasPrefix(raw, "{") {
		return raw
	}
	i := strings.Index(raw, "{")
	if i < 0 {
		return ""
	}
	if j := strings.LastIndex(raw, "}"); j > i {
		return raw[i : j+1]
	}
	return raw[i:]
}
