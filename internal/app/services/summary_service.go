package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/faeln1/second-brain/internal/app/summarizer"
	"github.com/faeln1/second-brain/internal/domain/group"
	"github.com/faeln1/second-brain/internal/domain/message"
	"github.com/faeln1/second-brain/internal/domain/summary"
	"github.com/faeln1/second-brain/pkg/timewindow"
	waLog "go.mau.fi/whatsmeow/util/log"
)

var ErrEngineFailure = errors.New("summary engine failed")

const windowTypeCustom = "custom"

// SummaryService hands normalized messages to the configured engine.
type SummaryService struct {
	engine summarizer.Engine
	log    waLog.Logger
	now    func() time.Time
}

func NewSummaryService(engine summarizer.Engine, log waLog.Logger) *SummaryService {
	if log == nil {
		log = waLog.Noop
	}
	return &SummaryService{engine: engine, log: log, now: time.Now}
}

// EngineName reports the configured engine, or "none".
func (s *SummaryService) EngineName() string {
	if s.engine == nil {
		return "none"
	}
	return s.engine.Name()
}

// Generate summarizes msgs. An empty slice yields the empty summary without
// calling the engine.
func (s *SummaryService) Generate(ctx context.Context, g group.Info, msgs []message.MessageData, w timewindow.TimeWindow, opts summary.Options) (summary.GroupSummaryData, error) {
	started := s.now()
	window := summary.Window{
		Start: w.UTCStart,
		End:   w.UTCEnd,
		Label: w.Label,
		Type:  windowTypeCustom,
	}

	if len(msgs) == 0 {
		out := summary.Empty(g.ID, g.Name, window)
		out.ProcessingStats.ProcessingTimeMs = s.now().Sub(started).Milliseconds()
		return out, nil
	}
	if s.engine == nil {
		return summary.GroupSummaryData{}, fmt.Errorf("%w: no engine configured", ErrEngineFailure)
	}
	if opts.Timezone == "" {
		opts.Timezone = w.Timezone
	}

	out, err := s.engine.GenerateGroupSummary(ctx, summary.EngineRequest{
		GroupID:   g.ID,
		GroupName: g.Name,
		Messages:  msgs,
		Window:    window,
		Options:   opts,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return summary.GroupSummaryData{}, ctxErr
		}
		s.log.Errorf("engine %s failed for %s: %v", s.engine.Name(), g.ID, err)
		return summary.GroupSummaryData{}, fmt.Errorf("%w: %v", ErrEngineFailure, err)
	}
	if out.GroupID == "" {
		out.GroupID = g.ID
	}
	if out.GroupName == "" {
		out.GroupName = g.Name
	}
	out.ProcessingStats.ProcessingTimeMs = s.now().Sub(started).Milliseconds()
	return out, nil
}
