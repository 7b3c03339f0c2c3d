package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amaumene/streamscout/internal/config"
	"github.com/amaumene/streamscout/internal/domain"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

type scanFunc func(context.Context) (domain.RunReport, error)

type orchestratorTask struct {
	name     string
	schedule string
	run      scanFunc
}

// Orchestrator triggers the scheduled scans. An empty schedule disables
// the corresponding scan.
type Orchestrator struct {
	cron  *cron.Cron
	tasks []orchestratorTask
}

func NewOrchestrator(cfg *config.Config, jobs *Jobs) (*Orchestrator, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	logger := cron.PrintfLogger(log.StandardLogger())
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(cfg.Location()),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	o := &Orchestrator{
		cron: c,
		tasks: []orchestratorTask{
			{name: domain.JobEpisodeScan, schedule: cfg.EpisodeSchedule, run: jobs.EpisodeScan},
			{name: domain.JobStalenessScan, schedule: cfg.StalenessSchedule, run: jobs.StalenessScan},
		},
	}

	for _, task := range o.tasks {
		if task.schedule == "" {
			continue
		}
		if _, err := parser.Parse(task.schedule); err != nil {
			return nil, fmt.Errorf("parsing %s schedule %q: %w", task.name, task.schedule, err)
		}
	}
	return o, nil
}

// Start registers every enabled task and starts the scheduler. Runs use
// ctx as their parent.
func (o *Orchestrator) Start(ctx context.Context) error {
	for _, task := range o.tasks {
		if task.schedule == "" {
			log.WithFields(log.Fields{
				"component": "orchestrator",
				"task":      task.name,
			}).Info("schedule disabled")
			continue
		}

		if _, err := o.cron.AddFunc(task.schedule, func() { runTask(ctx, task) }); err != nil {
			return fmt.Errorf("scheduling %s with %q: %w", task.name, task.schedule, err)
		}
		log.WithFields(log.Fields{
			"component": "orchestrator",
			"task":      task.name,
			"schedule":  task.schedule,
		}).Info("task scheduled")
	}

	o.cron.Start()
	return nil
}

// Stop halts the scheduler and waits up to timeout for running tasks.
func (o *Orchestrator) Stop(timeout time.Duration) {
	done := o.cron.Stop()
	select {
	case <-done.Done():
		log.WithField("component", "orchestrator").Info("scheduler stopped")
	case <-time.After(timeout):
		log.WithField("component", "orchestrator").Warn("scheduler stop timed out with tasks still running")
	}
}

func runTask(ctx context.Context, task orchestratorTask) {
	if ctx.Err() != nil {
		return
	}
	if _, err := task.run(ctx); err != nil {
		entry := log.WithFields(log.Fields{
			"component": "orchestrator",
			"task":      task.name,
			"error":     err,
		})
		if errors.Is(err, domain.ErrJobRunning) {
			entry.Warn("skipping scheduled run, previous run still in progress")
			return
		}
		entry.Error("scheduled task failed")
	}
}
