// Package scheduler runs the daily digest: yesterday's summary for a fixed
// list of groups, on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	waLog "go.mau.fi/whatsmeow/util/log"
	"golang.org/x/sync/errgroup"

	"github.com/faeln1/second-brain/internal/domain/summary"
	"github.com/faeln1/second-brain/internal/platform/logging"
	"github.com/faeln1/second-brain/pkg/timewindow"
)

const (
	jobName            = "daily-digest"
	defaultConcurrency = 2
	defaultTimeout     = 5 * time.Minute
)

// Generator produces one group summary.
type Generator interface {
	Generate(ctx context.Context, req summary.Request) (*summary.GroupSummaryData, error)
}

type Config struct {
	Cron        string
	Timezone    string
	Groups      []string
	Concurrency int
	Timeout     time.Duration
}

// Report is the outcome of one digest run.
type Report struct {
	Date      string
	Succeeded []string
	Failed    map[string]error
}

type Digest struct {
	cfg     Config
	gen     Generator
	windows *timewindow.Resolver
	sched   gocron.Scheduler
	log     waLog.Logger
}

// New validates cfg and creates a scheduler running in cfg.Timezone. The job
// is registered by Start.
func New(cfg Config, gen Generator, windows *timewindow.Resolver, log waLog.Logger) (*Digest, error) {
	if log == nil {
		log = waLog.Noop
	}
	if windows == nil {
		windows = timewindow.NewResolver()
	}
	loc, err := timewindow.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("digest timezone: %w", err)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.Groups = cleanGroups(cfg.Groups)

	s, err := gocron.NewScheduler(
		gocron.WithLocation(loc),
		gocron.WithLogger(logging.Gocron(log)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Digest{cfg: cfg, gen: gen, windows: windows, sched: s, log: log}, nil
}

// Start schedules the digest job. With no groups configured nothing is
// scheduled.
func (d *Digest) Start() error {
	if len(d.cfg.Groups) == 0 {
		d.log.Infof("daily digest disabled: no groups configured")
		return nil
	}
	_, err := d.sched.NewJob(
		gocron.CronJob(d.cfg.Cron, false),
		gocron.NewTask(func() {
			report := d.RunOnce(context.Background())
			d.log.Infof("daily digest for %s: %d ok, %d failed", report.Date, len(report.Succeeded), len(report.Failed))
		}),
		gocron.WithName(jobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule job %q: %w", jobName, err)
	}
	d.sched.Start()
	d.log.Infof("daily digest scheduled cron=%q timezone=%s groups=%d", d.cfg.Cron, d.cfg.Timezone, len(d.cfg.Groups))
	return nil
}

// RunOnce summarizes yesterday for every configured group, at most
// Concurrency at a time. A failing group does not stop the others.
func (d *Digest) RunOnce(ctx context.Context) Report {
	report := Report{Failed: map[string]error{}}
	date, err := d.windows.LocalDate(d.cfg.Timezone, -1)
	if err != nil {
		for _, id := range d.cfg.Groups {
			report.Failed[id] = err
		}
		return report
	}
	report.Date = date

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Concurrency)
	for _, id := range d.cfg.Groups {
		g.Go(func() error {
			runCtx, cancel := context.WithTimeout(gctx, d.cfg.Timeout)
			defer cancel()
			_, err := d.gen.Generate(runCtx, summary.Request{GroupID: id, Date: date, Timezone: d.cfg.Timezone})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				d.log.Warnf("daily digest for %s on %s failed: %v", id, date, err)
				report.Failed[id] = err
				return nil
			}
			report.Succeeded = append(report.Succeeded, id)
			return nil
		})
	}
	_ = g.Wait()
	sort.Strings(report.Succeeded)
	return report
}

// Stop shuts the scheduler down, waiting for a running digest.
func (d *Digest) Stop() error {
	if err := d.sched.Shutdown(); err != nil && !errors.Is(err, gocron.ErrStopSchedulerTimedOut) {
		return fmt.Errorf("failed to shutdown scheduler: %w", err)
	}
	return nil
}

func cleanGroups(groups []string) []string {
	seen := make(map[string]struct{}, len(groups))
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}
