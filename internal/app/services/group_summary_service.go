package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/faeln1/second-brain/internal/app/repositories"
	"github.com/faeln1/second-brain/internal/domain/group"
	"github.com/faeln1/second-brain/internal/domain/message"
	"github.com/faeln1/second-brain/internal/domain/summary"
	"github.com/faeln1/second-brain/pkg/timewindow"
	waLog "go.mau.fi/whatsmeow/util/log"
)

var ErrInvalidInput = errors.New("invalid input")

const (
	tracerName = "github.com/faeln1/second-brain/summaries"

	outcomeOK       = "ok"
	outcomeEmpty    = "empty"
	outcomeCached   = "cached"
	outcomeInvalid  = "invalid"
	outcomeNotFound = "not_found"
	outcomeError    = "error"

	strategyNone        = "none"
	defaultHistoryLimit = 30
)

type groupLookup interface {
	Resolve(ctx context.Context, groupID string) (group.Info, error)
}

type messageFetcher interface {
	Fetch(ctx context.Context, g group.Info, w timewindow.TimeWindow) (CascadeResult, error)
}

type summaryGenerator interface {
	EngineName() string
	Generate(ctx context.Context, g group.Info, msgs []message.MessageData, w timewindow.TimeWindow, opts summary.Options) (summary.GroupSummaryData, error)
}

type pipelineMetrics interface {
	cacheRecorder
	ObserveSummary(outcome, engine string, d time.Duration)
}

// GroupSummaryDeps wires a GroupSummaryService. Archive, Notifier and Metrics
// are optional.
type GroupSummaryDeps struct {
	Groups          groupLookup
	Messages        messageFetcher
	Summaries       summaryGenerator
	Archive         repositories.SummaryRepository
	Notifier        *NotifierChain
	Metrics         pipelineMetrics
	Windows         *timewindow.Resolver
	Log             waLog.Logger
	DefaultTimezone string
	// CacheSize < 0 disables the cache, 0 uses the default size.
	CacheSize int
}

// GroupSummaryService runs the whole daily summary pipeline for one group.
type GroupSummaryService struct {
	groups    groupLookup
	messages  messageFetcher
	summaries summaryGenerator
	archive   repositories.SummaryRepository
	notifier  *NotifierChain
	metrics   pipelineMetrics
	windows   *timewindow.Resolver
	cache     *summaryCache
	validate  *validator.Validate
	tracer    trace.Tracer
	log       waLog.Logger
	defaultTZ string
}

func NewGroupSummaryService(deps GroupSummaryDeps) *GroupSummaryService {
	log := deps.Log
	if log == nil {
		log = waLog.Noop
	}
	windows := deps.Windows
	if windows == nil {
		windows = timewindow.NewResolver()
	}
	defaultTZ := strings.TrimSpace(deps.DefaultTimezone)
	if defaultTZ == "" {
		defaultTZ = "UTC"
	}
	return &GroupSummaryService{
		groups:    deps.Groups,
		messages:  deps.Messages,
		summaries: deps.Summaries,
		archive:   deps.Archive,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		windows:   windows,
		cache:     newSummaryCache(deps.CacheSize, deps.Metrics),
		validate:  validator.New(),
		tracer:    otel.Tracer(tracerName),
		log:       log,
		defaultTZ: defaultTZ,
	}
}

// Generate produces the summary of req.GroupID for the local calendar day
// req.Date. Errors wrap ErrInvalidInput, ErrGroupNotFound or ErrEngineFailure.
func (s *GroupSummaryService) Generate(ctx context.Context, req summary.Request) (out *summary.GroupSummaryData, err error) {
	started := time.Now()
	outcome := outcomeError
	ctx, span := s.tracer.Start(ctx, "summary.generate", trace.WithAttributes(
		attribute.String("group.id", req.GroupID),
		attribute.String("summary.date", req.Date),
	))
	defer func() {
		endSpan(span, err)
		if s.metrics != nil {
			s.metrics.ObserveSummary(outcome, s.summaries.EngineName(), time.Since(started))
		}
	}()

	req.GroupID = strings.TrimSpace(req.GroupID)
	req.Date = strings.TrimSpace(req.Date)
	if err := s.validate.Struct(req); err != nil {
		outcome = outcomeInvalid
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	timezone := s.timezone(req)
	req.Options.Timezone = timezone

	w, err := s.window(ctx, timezone, req.Date)
	if err != nil {
		outcome = outcomeInvalid
		return nil, err
	}

	cacheKey := summaryCacheKey(req.GroupID, req.Date, timezone, req.Options)
	cacheable := !s.windows.Current().Before(w.UTCEnd)
	if cacheable && !req.Options.Refresh {
		if cached, ok := s.cache.get(cacheKey); ok {
			outcome = outcomeCached
			return &cached, nil
		}
	}

	g, err := s.resolve(ctx, req.GroupID)
	if err != nil {
		switch {
		case errors.Is(err, ErrGroupNotFound):
			outcome = outcomeNotFound
		case errors.Is(err, ErrInvalidInput):
			outcome = outcomeInvalid
		}
		return nil, err
	}

	res, err := s.fetch(ctx, g, w)
	if err != nil {
		return nil, err
	}

	data, err := s.summarize(ctx, g, res, req.Options)
	if err != nil {
		return nil, err
	}

	outcome = outcomeOK
	if data.TotalMessages == 0 {
		outcome = outcomeEmpty
	}
	if cacheable && res.Strategy != StrategyEmergency {
		s.cache.add(cacheKey, data)
	}
	if data.TotalMessages > 0 {
		s.publish(ctx, req, data)
	}
	return &data, nil
}

// History lists archived summaries of a group, newest first.
func (s *GroupSummaryService) History(ctx context.Context, groupID, keyword string, limit int) ([]summary.Record, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return nil, fmt.Errorf("%w: groupId is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if s.archive == nil {
		return []summary.Record{}, nil
	}
	return s.archive.ListByGroup(ctx, groupID, strings.ToLower(strings.TrimSpace(keyword)), limit)
}

func (s *GroupSummaryService) timezone(req summary.Request) string {
	if tz := strings.TrimSpace(req.Timezone); tz != "" {
		return tz
	}
	if tz := strings.TrimSpace(req.Options.Timezone); tz != "" {
		return tz
	}
	return s.defaultTZ
}

func (s *GroupSummaryService) window(ctx context.Context, timezone, date string) (w timewindow.TimeWindow, err error) {
	_, span := s.tracer.Start(ctx, "summary.window", trace.WithAttributes(attribute.String("timezone", timezone)))
	defer func() { endSpan(span, err) }()

	w, err = s.windows.Day(timezone, date)
	if err != nil {
		return timewindow.TimeWindow{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return w, nil
}

func (s *GroupSummaryService) resolve(ctx context.Context, groupID string) (g group.Info, err error) {
	ctx, span := s.tracer.Start(ctx, "summary.resolve_group")
	defer func() {
		span.SetAttributes(attribute.String("group.source", g.Source))
		endSpan(span, err)
	}()

	g, err = s.groups.Resolve(ctx, groupID)
	if errors.Is(err, ErrGroupInvalidInput) {
		return group.Info{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return g, err
}

func (s *GroupSummaryService) fetch(ctx context.Context, g group.Info, w timewindow.TimeWindow) (res CascadeResult, err error) {
	ctx, span := s.tracer.Start(ctx, "summary.fetch_messages")
	defer func() {
		span.SetAttributes(
			attribute.String("cascade.strategy", res.Strategy),
			attribute.Int("messages.count", len(res.Messages)),
		)
		endSpan(span, err)
	}()
	return s.messages.Fetch(ctx, g, w)
}

func (s *GroupSummaryService) summarize(ctx context.Context, g group.Info, res CascadeResult, opts summary.Options) (data summary.GroupSummaryData, err error) {
	ctx, span := s.tracer.Start(ctx, "summary.engine", trace.WithAttributes(attribute.String("engine", s.summaries.EngineName())))
	defer func() { endSpan(span, err) }()

	msgs := NormalizeMessages(res.Messages)
	data, err = s.summaries.Generate(ctx, g, msgs, res.Window, opts)
	if err != nil {
		return summary.GroupSummaryData{}, err
	}
	data.ProcessingStats.QueryStrategy = res.Strategy
	if data.ProcessingStats.QueryStrategy == "" {
		data.ProcessingStats.QueryStrategy = strategyNone
	}
	return data, nil
}

// publish archives and announces a summary. Failures never reach the caller.
func (s *GroupSummaryService) publish(ctx context.Context, req summary.Request, data summary.GroupSummaryData) {
	rec := summary.Record{
		GroupID:  req.GroupID,
		Date:     req.Date,
		Timezone: req.Options.Timezone,
		Keywords: keywordsOf(data),
		Data:     data,
	}
	if s.archive != nil {
		if err := s.archive.Save(ctx, &rec); err != nil {
			s.log.Warnf("archive summary of %s for %s failed: %v", req.GroupID, req.Date, err)
		}
	}
	if req.Options.Notify != nil && !*req.Options.Notify {
		return
	}
	s.notifier.Notify(ctx, rec)
}

func keywordsOf(data summary.GroupSummaryData) []string {
	out := make([]string, 0, len(data.TopKeywords))
	for _, k := range data.TopKeywords {
		out = append(out, k.Keyword)
	}
	return out
}

// summaryCacheKey includes every option the engine sees besides the timezone.
func summaryCacheKey(groupID, date, timezone string, opts summary.Options) string {
	lang := strings.ToLower(strings.TrimSpace(opts.Language))
	return fmt.Sprintf("%s|%s|%s|%s|%d", groupID, date, timezone, lang, opts.MaxKeywords)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
