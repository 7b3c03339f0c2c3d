package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amaumene/streamscout/internal/domain"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type runFunc func(ctx context.Context, report *domain.RunReport) error

// Runner executes job runs and tracks their state:
// Idle -> Running -> Completed | CompletedWithPartialErrors | Aborted.
// A run is aborted when its body returns an error or panics.
type Runner struct {
	timeout time.Duration
	now     func() time.Time

	mu       sync.Mutex
	inflight map[string]int
	last     map[string]domain.RunReport
}

func NewRunner(timeout time.Duration) *Runner {
	return &Runner{
		timeout:  timeout,
		now:      time.Now,
		inflight: make(map[string]int),
		last:     make(map[string]domain.RunReport),
	}
}

// Run executes fn as one run of job. Runs of the same job may overlap.
func (r *Runner) Run(ctx context.Context, job string, fn runFunc) domain.RunReport {
	r.mu.Lock()
	r.inflight[job]++
	r.mu.Unlock()
	return r.execute(ctx, job, fn)
}

// RunExclusive is Run, except it refuses to start while another run of the
// same job is in flight.
func (r *Runner) RunExclusive(ctx context.Context, job string, fn runFunc) (domain.RunReport, error) {
	r.mu.Lock()
	if r.inflight[job] > 0 {
		r.mu.Unlock()
		return domain.RunReport{}, fmt.Errorf("%s: %w", job, domain.ErrJobRunning)
	}
	r.inflight[job]++
	r.mu.Unlock()
	return r.execute(ctx, job, fn), nil
}

func (r *Runner) execute(ctx context.Context, job string, fn runFunc) domain.RunReport {
	report := domain.RunReport{
		RunID:     uuid.NewString(),
		Job:       job,
		State:     domain.RunRunning,
		StartedAt: r.now().UTC(),
	}
	logger := log.WithFields(log.Fields{
		"component": "runner",
		"job":       job,
		"run_id":    report.RunID,
	})
	logger.Info("run started")

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	err := invoke(ctx, fn, &report)
	report.FinishedAt = r.now().UTC()
	switch {
	case err != nil:
		report.State = domain.RunAborted
		report.Error = err.Error()
	case report.Partial():
		report.State = domain.RunCompletedWithPartialErrors
	default:
		report.State = domain.RunCompleted
	}

	r.finish(report)
	logSummary(logger, report)
	return report
}

func invoke(ctx context.Context, fn runFunc, report *domain.RunReport) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("run panicked: %v", p)
		}
	}()
	return fn(ctx, report)
}

func (r *Runner) finish(report domain.RunReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inflight[report.Job]--
	r.last[report.Job] = report
}

// State returns Running while a run of job is in flight, the state of its
// last run otherwise, and Idle when it never ran.
func (r *Runner) State(job string) domain.RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inflight[job] > 0 {
		return domain.RunRunning
	}
	if last, ok := r.last[job]; ok {
		return last.State
	}
	return domain.RunIdle
}

func logSummary(logger *log.Entry, report domain.RunReport) {
	entry := logger.WithFields(log.Fields{
		"state":      report.State,
		"subjects":   report.Subjects,
		"ineligible": report.Ineligible,
		"skipped":    report.SkippedSubjects,
		"dispatched": report.Dispatched,
		"malformed":  report.MalformedRecords,
		"userErrors": report.UserErrors,
		"sent":       report.Sent,
		"failed":     report.Failed,
		"duration":   report.FinishedAt.Sub(report.StartedAt).String(),
	})

	switch report.State {
	case domain.RunAborted:
		entry.WithField("error", report.Error).Error("run aborted")
	case domain.RunCompletedWithPartialErrors:
		entry.Warn("run completed with partial errors")
	default:
		entry.Info("run completed")
	}
}
