package summarizer

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/faeln1/second-brain/internal/domain/summary"
)

const (
	defaultMaxKeywords   = 10
	senderKeywordLimit   = 5
	emojiLimit           = 10
	activityPeakLimit    = 3
	minKeywordRuneLength = 3
)

var urlPattern = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`)

var stopwords = toSet(
	// english
	"the", "and", "for", "are", "but", "not", "you", "all", "any", "can", "had", "her", "was", "one",
	"our", "out", "has", "have", "him", "his", "how", "its", "may", "new", "now", "old", "see", "two",
	"who", "did", "get", "let", "say", "she", "too", "use", "that", "with", "this", "from", "they",
	"will", "would", "there", "their", "what", "about", "which", "when", "make", "like", "time", "just",
	"know", "take", "into", "your", "some", "could", "them", "than", "then", "also", "been", "were",
	"here", "okay", "yes", "yeah", "lol", "thanks", "thank", "please", "going", "want", "need", "dont",
	"im", "ill", "youre", "thats", "omitted", "media", "image", "sticker",
	// hebrew
	"של", "את", "על", "עם", "זה", "לא", "כן", "גם", "אני", "אתה", "הוא", "היא", "אנחנו", "הם", "מה",
	"יש", "אין", "כל", "אבל", "או", "רק", "עוד", "כמו", "היה", "להיות", "אם", "כי", "אז", "שלי", "שלך",
	"טוב", "תודה", "בסדר", "אחרי", "לפני", "מאוד",
)

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Analyze computes every deterministic field of a summary. OverallSummary and
// the per-sender Summary are left for the engine.
func Analyze(req summary.EngineRequest) summary.GroupSummaryData {
	out := summary.Empty(req.GroupID, req.GroupName, req.Window)
	out.OverallSummary = ""
	msgs := req.Messages
	if len(msgs) == 0 {
		return out
	}

	maxKeywords := req.Options.MaxKeywords
	if maxKeywords <= 0 {
		maxKeywords = defaultMaxKeywords
	}
	loc := analysisLocation(req.Options.Timezone)

	type senderAcc struct {
		insight  summary.SenderInsight
		keywords map[string]int
	}
	senders := make(map[string]*senderAcc)
	var order []string
	groupKeywords := make(map[string]int)
	emojis := make(map[string]int)
	hours := make(map[int]int)

	for _, m := range msgs {
		key := m.SenderPhone
		acc, ok := senders[key]
		if !ok {
			acc = &senderAcc{
				insight: summary.SenderInsight{
					SenderName:     m.SenderName,
					SenderPhone:    m.SenderPhone,
					FirstMessageAt: m.Timestamp,
					LastMessageAt:  m.Timestamp,
				},
				keywords: make(map[string]int),
			}
			senders[key] = acc
			order = append(order, key)
		}
		acc.insight.MessageCount++
		if m.Timestamp.Before(acc.insight.FirstMessageAt) {
			acc.insight.FirstMessageAt = m.Timestamp
		}
		if m.Timestamp.After(acc.insight.LastMessageAt) {
			acc.insight.LastMessageAt = m.Timestamp
		}
		if acc.insight.SenderName == "Unknown" && m.SenderName != "Unknown" {
			acc.insight.SenderName = m.SenderName
		}

		for _, kw := range Keywords(m.Message) {
			groupKeywords[kw]++
			acc.keywords[kw]++
		}
		for _, e := range Emojis(m.Message) {
			emojis[e]++
		}
		countType(&out.MessageTypes, m.Type)
		if !m.Timestamp.IsZero() {
			hours[m.Timestamp.In(loc).Hour()]++
		}
	}

	total := len(msgs)
	insights := make([]summary.SenderInsight, 0, len(order))
	for _, key := range order {
		acc := senders[key]
		acc.insight.Percentage = roundTo(float64(acc.insight.MessageCount)*100/float64(total), 1)
		acc.insight.TopKeywords = topKeywords(acc.keywords, senderKeywordLimit)
		insights = append(insights, acc.insight)
	}
	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].MessageCount > insights[j].MessageCount
	})

	out.TotalMessages = total
	out.ActiveParticipants = len(senders)
	out.SenderInsights = insights
	out.TopKeywords = topKeywords(groupKeywords, maxKeywords)
	out.TopEmojis = topEmojis(emojis, emojiLimit)
	out.ActivityPeaks = activityPeaks(hours, activityPeakLimit)
	out.ProcessingStats.MessagesAnalyzed = total
	out.ProcessingStats.ParticipantsFound = len(senders)
	return out
}

// Keywords tokenizes text into lowercase candidate keywords. URLs, numbers,
// short tokens and stopwords are dropped.
func Keywords(text string) []string {
	text = urlPattern.ReplaceAllString(text, " ")
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.ReplaceAll(tok, "'", "")
		if utf8.RuneCountInString(tok) < minKeywordRuneLength || isNumeric(tok) {
			continue
		}
		if _, skip := stopwords[tok]; skip {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// Emojis returns every emoji in text in order of appearance. Skin tone
// modifiers, variation selectors and joiners are not counted on their own.
func Emojis(text string) []string {
	var out []string
	for _, r := range text {
		if isEmoji(r) {
			out = append(out, string(r))
		}
	}
	return out
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F3FB && r <= 0x1F3FF: // skin tones
		return false
	case r >= 0x1F300 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	case r >= 0x1F000 && r <= 0x1F2FF:
		return true
	}
	return false
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsNumber(r) {
			return false
		}
	}
	return true
}

func countType(t *summary.MessageTypes, kind string) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "text", "chat", "conversation", "extendedtext":
		t.Text++
	case "image", "sticker":
		t.Image++
	case "video", "gif":
		t.Video++
	case "audio", "ptt", "voice":
		t.Audio++
	case "document", "file":
		t.Document++
	default:
		t.Other++
	}
}

func topKeywords(counts map[string]int, limit int) []summary.KeywordCount {
	out := make([]summary.KeywordCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, summary.KeywordCount{Keyword: k, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Keyword < out[j].Keyword
		}
		return out[i].Count > out[j].Count
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func topEmojis(counts map[string]int, limit int) []summary.EmojiCount {
	out := make([]summary.EmojiCount, 0, len(counts))
	for e, c := range counts {
		out = append(out, summary.EmojiCount{Emoji: e, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Emoji < out[j].Emoji
		}
		return out[i].Count > out[j].Count
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func activityPeaks(hours map[int]int, limit int) []summary.ActivityPeak {
	out := make([]summary.ActivityPeak, 0, len(hours))
	for h, c := range hours {
		out = append(out, summary.ActivityPeak{Hour: h, Count: c, Label: hourLabel(h)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Hour < out[j].Hour
		}
		return out[i].Count > out[j].Count
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func hourLabel(h int) string {
	return fmt.Sprintf("%02d:00-%02d:00", h, (h+1)%24)
}

func analysisLocation(tz string) *time.Location {
	if tz = strings.TrimSpace(tz); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
	}
	return time.UTC
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// senderLabel is how a participant is referred to in generated text.
func senderLabel(in summary.SenderInsight) string {
	if in.SenderName != "" && in.SenderName != "Unknown" {
		return in.SenderName
	}
	return in.SenderPhone
}

func keywordList(kws []summary.KeywordCount, n int) string {
	parts := make([]string, 0, n)
	for i, kw := range kws {
		if i == n {
			break
		}
		parts = append(parts, kw.Keyword)
	}
	return strings.Join(parts, ", ")
}
