// Package summarizer turns a group's normalized messages into a
// GroupSummaryData. Two engines exist: a deterministic basic engine and an
// AI engine that adds an LLM-written narrative on top of the same analytics.
package summarizer

import (
	"context"

	"github.com/faeln1/second-brain/internal/domain/summary"
)

const (
	EngineBasic = "basic"
	EngineAI    = "ai"
)

// Engine produces the analytical fields of a group summary.
type Engine interface {
	Name() string
	GenerateGroupSummary(ctx context.Context, req summary.EngineRequest) (summary.GroupSummaryData, error)
}
