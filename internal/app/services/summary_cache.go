package services

import (
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/faeln1/second-brain/internal/domain/summary"
)

const defaultSummaryCacheSize = 256

type cacheRecorder interface {
	IncCache(hit bool)
}

// summaryCache keeps finished summaries keyed by group, date, timezone and
// engine options. Entries are copied in and out so callers never share
// slices with the cache.
type summaryCache struct {
	entries *lru.Cache[string, summary.GroupSummaryData]
	metrics cacheRecorder
}

// newSummaryCache returns nil when size is negative, which disables caching.
func newSummaryCache(size int, metrics cacheRecorder) *summaryCache {
	if size < 0 {
		return nil
	}
	if size == 0 {
		size = defaultSummaryCacheSize
	}
	entries, err := lru.New[string, summary.GroupSummaryData](size)
	if err != nil {
		return nil
	}
	return &summaryCache{entries: entries, metrics: metrics}
}

func (c *summaryCache) get(key string) (summary.GroupSummaryData, bool) {
	if c == nil {
		return summary.GroupSummaryData{}, false
	}
	v, ok := c.entries.Get(key)
	if c.metrics != nil {
		c.metrics.IncCache(ok)
	}
	if !ok {
		return summary.GroupSummaryData{}, false
	}
	return cloneSummary(v), true
}

func (c *summaryCache) add(key string, v summary.GroupSummaryData) {
	if c == nil {
		return
	}
	c.entries.Add(key, cloneSummary(v))
}

func (c *summaryCache) len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}

func cloneSummary(v summary.GroupSummaryData) summary.GroupSummaryData {
	out := v
	out.TopKeywords = slices.Clone(v.TopKeywords)
	out.TopEmojis = slices.Clone(v.TopEmojis)
	out.ActivityPeaks = slices.Clone(v.ActivityPeaks)
	if v.SenderInsights != nil {
		out.SenderInsights = make([]summary.SenderInsight, len(v.SenderInsights))
		for i, in := range v.SenderInsights {
			in.TopKeywords = slices.Clone(in.TopKeywords)
			out.SenderInsights[i] = in
		}
	}
	return out
}
