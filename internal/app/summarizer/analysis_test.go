package summarizer

import (
	"reflect"
	"testing"
	"time"

	"github.com/faeln1/second-brain/internal/domain/message"
	"github.com/faeln1/second-brain/internal/domain/summary"
)

func sampleRequest() summary.EngineRequest {
	start := time.Date(2024, 6, 14, 21, 0, 0, 0, time.UTC)
	at := func(h, m int) time.Time { return start.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }
	return summary.EngineRequest{
		GroupID:   "120363@g.us",
		GroupName: "Hikers",
		Window:    summary.Window{Start: start, End: start.Add(24 * time.Hour), Label: "2024-06-15", Type: "custom"},
		Options:   summary.Options{Timezone: "Asia/Jerusalem"},
		Messages: []message.MessageData{
			{ID: "1", Message: "Trail meeting tomorrow at the north trail 🥾", Timestamp: at(12, 5), Type: "text", SenderName: "Dana", SenderPhone: "111@c.us"},
			{ID: "2", Message: "Who brings water? 💧💧", Timestamp: at(12, 30), Type: "text", SenderName: "Avi", SenderPhone: "222@c.us"},
			{ID: "3", Message: "", Timestamp: at(13, 0), Type: "image", SenderName: "Dana", SenderPhone: "111@c.us"},
			{ID: "4", Message: "trail map https://maps.example.com/x?y=1", Timestamp: at(18, 45), Type: "ptt", SenderName: "Dana", SenderPhone: "111@c.us"},
		},
	}
}

func TestAnalyzeCountsAndInsights(t *testing.T) {
	out := Analyze(sampleRequest())

	if out.TotalMessages != 4 || out.ActiveParticipants != 2 {
		t.Fatalf("unexpected totals: %d messages, %d participants", out.TotalMessages, out.ActiveParticipants)
	}
	if out.ProcessingStats.MessagesAnalyzed != 4 || out.ProcessingStats.ParticipantsFound != 2 {
		t.Fatalf("unexpected processing stats %+v", out.ProcessingStats)
	}
	want := summary.MessageTypes{Text: 2, Image: 1, Audio: 1}
	if out.MessageTypes != want {
		t.Fatalf("unexpected message types %+v", out.MessageTypes)
	}
	if len(out.SenderInsights) != 2 {
		t.Fatalf("expected 2 sender insights, got %d", len(out.SenderInsights))
	}
	dana := out.SenderInsights[0]
	if dana.SenderPhone != "111@c.us" || dana.MessageCount != 3 || dana.Percentage != 75 {
		t.Fatalf("unexpected top sender %+v", dana)
	}
	if !dana.FirstMessageAt.Before(dana.LastMessageAt) {
		t.Fatalf("first message should precede last message")
	}
	if len(out.TopKeywords) == 0 || out.TopKeywords[0].Keyword != "trail" || out.TopKeywords[0].Count != 3 {
		t.Fatalf("unexpected keywords %+v", out.TopKeywords)
	}
	if len(out.TopEmojis) != 2 || out.TopEmojis[0].Emoji != "💧" || out.TopEmojis[0].Count != 2 {
		t.Fatalf("unexpected emojis %+v", out.TopEmojis)
	}
}

func TestAnalyzeActivityPeaksUseTimezone(t *testing.T) {
	out := Analyze(sampleRequest())
	// 21:00Z + 12h = 09:00Z = 12:00 in Jerusalem during DST.
	if len(out.ActivityPeaks) == 0 {
		t.Fatalf("expected activity peaks")
	}
	top := out.ActivityPeaks[0]
	if top.Hour != 12 || top.Count != 2 || top.Label != "12:00-13:00" {
		t.Fatalf("unexpected top peak %+v", top)
	}
}

func TestAnalyzeRespectsMaxKeywords(t *testing.T) {
	req := sampleRequest()
	req.Options.MaxKeywords = 1
	if got := Analyze(req).TopKeywords; len(got) != 1 {
		t.Fatalf("expected one keyword, got %+v", got)
	}
}

func TestKeywords(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"The meeting is at 2024 with you", []string{"meeting"}},
		{"check https://example.com/path now", []string{"check"}},
		{"Don't forget the BBQ!!", []string{"forget", "bbq"}},
		{"ארוחת ערב של המשפחה", []string{"ארוחת", "ערב", "המשפחה"}},
	}
	for _, tc := range cases {
		if got := Keywords(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Keywords(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestEmojisIgnoreModifiers(t *testing.T) {
	got := Emojis("👍🏽 great ❤️ 🎉🎉")
	want := []string{"👍", "❤", "🎉", "🎉"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Emojis = %q, want %q", got, want)
	}
}
