package summarizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/faeln1/second-brain/internal/domain/summary"
)

// BasicEngine summarizes without any external service.
type BasicEngine struct{}

func NewBasicEngine() *BasicEngine { return &BasicEngine{} }

func (BasicEngine) Name() string { return EngineBasic }

func (BasicEngine) GenerateGroupSummary(ctx context.Context, req summary.EngineRequest) (summary.GroupSummaryData, error) {
	if err := ctx.Err(); err != nil {
		return summary.GroupSummaryData{}, err
	}
	out := Analyze(req)
	for i := range out.SenderInsights {
		out.SenderInsights[i].Summary = describeSender(out.SenderInsights[i])
	}
	out.OverallSummary = describeGroup(req, out)
	out.ProcessingStats.Engine = EngineBasic
	return out, nil
}

func describeGroup(req summary.EngineRequest, data summary.GroupSummaryData) string {
	if data.TotalMessages == 0 {
		return summary.NoMessagesSummary
	}
	name := req.GroupName
	if name == "" {
		name = req.GroupID
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s had %d %s from %d %s",
		name, data.TotalMessages, plural(data.TotalMessages, "message", "messages"),
		data.ActiveParticipants, plural(data.ActiveParticipants, "participant", "participants"))
	if req.Window.Label != "" {
		fmt.Fprintf(&b, " (%s)", req.Window.Label)
	}
	b.WriteString(".")
	if len(data.SenderInsights) > 0 {
		top := data.SenderInsights[0]
		fmt.Fprintf(&b, " Most active: %s with %d (%.1f%%).", senderLabel(top), top.MessageCount, top.Percentage)
	}
	if len(data.TopKeywords) > 0 {
		fmt.Fprintf(&b, " Main topics: %s.", keywordList(data.TopKeywords, 5))
	}
	if len(data.ActivityPeaks) > 0 {
		fmt.Fprintf(&b, " Busiest hour: %s.", data.ActivityPeaks[0].Label)
	}
	return b.String()
}

func describeSender(in summary.SenderInsight) string {
	s := fmt.Sprintf("%d %s", in.MessageCount, plural(in.MessageCount, "message", "messages"))
	if len(in.TopKeywords) > 0 {
		s += ", mostly about " + keywordList(in.TopKeywords, 3)
	}
	return s
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
