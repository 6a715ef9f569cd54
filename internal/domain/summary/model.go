package summary

import (
	"time"

	"github.com/faeln1/second-brain/internal/domain/message"
)

// NoMessagesSummary is the overall summary of an empty period.
const NoMessagesSummary = "No messages found for this period."

// Request is the input of a group daily summary.
type Request struct {
	GroupID  string  `json:"groupId" validate:"required"`
	Date     string  `json:"date" validate:"required,datetime=2006-01-02"`
	Timezone string  `json:"timezone,omitempty"`
	Options  Options `json:"options,omitempty"`
}

// Options are passed through to the engine. Refresh bypasses the summary cache.
type Options struct {
	Timezone    string `json:"timezone,omitempty"`
	Language    string `json:"language,omitempty"`
	MaxKeywords int    `json:"maxKeywords,omitempty" validate:"omitempty,min=1,max=50"`
	Refresh     bool   `json:"refresh,omitempty"`
	Notify      *bool  `json:"notify,omitempty"`
}

// Window describes the analysed period to an engine.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label"`
	Type  string    `json:"type"`
}

// EngineRequest is what the orchestrator hands to a summarization engine.
type EngineRequest struct {
	GroupID   string
	GroupName string
	Messages  []message.MessageData
	Window    Window
	Options   Options
}

type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type SenderInsight struct {
	SenderName     string         `json:"senderName"`
	SenderPhone    string         `json:"senderPhone"`
	MessageCount   int            `json:"messageCount"`
	Percentage     float64        `json:"percentage"`
	FirstMessageAt time.Time      `json:"firstMessageAt"`
	LastMessageAt  time.Time      `json:"lastMessageAt"`
	TopKeywords    []KeywordCount `json:"topKeywords"`
	Summary        string         `json:"summary,omitempty"`
}

type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

type EmojiCount struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
}

// ActivityPeak is an hour of the local day with its message count.
type ActivityPeak struct {
	Hour  int    `json:"hour"`
	Count int    `json:"count"`
	Label string `json:"label"`
}

type MessageTypes struct {
	Text     int `json:"text"`
	Image    int `json:"image"`
	Video    int `json:"video"`
	Audio    int `json:"audio"`
	Document int `json:"document"`
	Other    int `json:"other"`
}

type ProcessingStats struct {
	ProcessingTimeMs  int64  `json:"processingTimeMs"`
	MessagesAnalyzed  int    `json:"messagesAnalyzed"`
	ParticipantsFound int    `json:"participantsFound"`
	QueryStrategy     string `json:"queryStrategy,omitempty"`
	Engine            string `json:"engine,omitempty"`
}

// GroupSummaryData is the result of one summary request.
type GroupSummaryData struct {
	GroupID            string          `json:"groupId"`
	GroupName          string          `json:"groupName"`
	TimeRange          TimeRange       `json:"timeRange"`
	TotalMessages      int             `json:"totalMessages"`
	ActiveParticipants int             `json:"activeParticipants"`
	SenderInsights     []SenderInsight `json:"senderInsights"`
	OverallSummary     string          `json:"overallSummary"`
	TopKeywords        []KeywordCount  `json:"topKeywords"`
	TopEmojis          []EmojiCount    `json:"topEmojis"`
	ActivityPeaks      []ActivityPeak  `json:"activityPeaks"`
	MessageTypes       MessageTypes    `json:"messageTypes"`
	ProcessingStats    ProcessingStats `json:"processingStats"`
}

// Record is an archived summary.
type Record struct {
	ID        string           `json:"id"`
	GroupID   string           `json:"groupId"`
	Date      string           `json:"date"`
	Timezone  string           `json:"timezone"`
	Keywords  []string         `json:"keywords,omitempty"`
	Data      GroupSummaryData `json:"data"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Empty builds the summary of a period with no messages.
func Empty(groupID, groupName string, w Window) GroupSummaryData {
	return GroupSummaryData{
		GroupID:        groupID,
		GroupName:      groupName,
		TimeRange:      TimeRange{Start: w.Start, End: w.End},
		SenderInsights: []SenderInsight{},
		OverallSummary: NoMessagesSummary,
		TopKeywords:    []KeywordCount{},
		TopEmojis:      []EmojiCount{},
		ActivityPeaks:  []ActivityPeak{},
	}
}
