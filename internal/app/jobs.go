package app

import (
	"context"
	"fmt"
	"time"

	"github.com/amaumene/streamscout/internal/domain"
	"github.com/amaumene/streamscout/internal/service"
	log "github.com/sirupsen/logrus"
)

const (
	TriggerEpisodes  = "episodes"
	TriggerStaleness = "staleness"
)

// Jobs holds the three job drivers. Each driver is a linear pipeline over
// the service components; only a resolver failure aborts a run.
type Jobs struct {
	runner     *Runner
	resolver   *service.AudienceResolver
	metadata   domain.MetadataProvider
	tokens     *service.TokenCollector
	dispatcher *service.Dispatcher
	now        func() time.Time
}

func NewJobs(runner *Runner, resolver *service.AudienceResolver, metadata domain.MetadataProvider, tokens *service.TokenCollector, dispatcher *service.Dispatcher) *Jobs {
	return &Jobs{
		runner:     runner,
		resolver:   resolver,
		metadata:   metadata,
		tokens:     tokens,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// Trigger starts a scan by its public name.
func (j *Jobs) Trigger(ctx context.Context, name string) (domain.RunReport, error) {
	switch name {
	case TriggerEpisodes:
		return j.EpisodeScan(ctx)
	case TriggerStaleness:
		return j.StalenessScan(ctx)
	default:
		return domain.RunReport{}, fmt.Errorf("%q: %w", name, domain.ErrUnknownJob)
	}
}

// States reports the current run state of every job.
func (j *Jobs) States() map[string]domain.RunState {
	return map[string]domain.RunState{
		domain.JobEpisodeScan:   j.runner.State(domain.JobEpisodeScan),
		domain.JobStalenessScan: j.runner.State(domain.JobStalenessScan),
		domain.JobReleaseMatch:  j.runner.State(domain.JobReleaseMatch),
	}
}

func (j *Jobs) EpisodeScan(ctx context.Context) (domain.RunReport, error) {
	return j.runner.RunExclusive(ctx, domain.JobEpisodeScan, j.episodeScan)
}

func (j *Jobs) StalenessScan(ctx context.Context) (domain.RunReport, error) {
	return j.runner.RunExclusive(ctx, domain.JobStalenessScan, j.stalenessScan)
}

// ReleaseMatch handles one change-feed event. Release runs may overlap.
func (j *Jobs) ReleaseMatch(ctx context.Context, change domain.ReleaseChange) domain.RunReport {
	return j.runner.Run(ctx, domain.JobReleaseMatch, func(ctx context.Context, report *domain.RunReport) error {
		return j.releaseMatch(ctx, report, change)
	})
}

func (j *Jobs) episodeScan(ctx context.Context, report *domain.RunReport) error {
	audience, err := j.resolver.ResolveEpisodeAudience(ctx)
	if err != nil {
		return err
	}
	report.Subjects = len(audience.Subjects)
	report.MalformedRecords = audience.Malformed
	if audience.Malformed > 0 {
		log.WithField("count", audience.Malformed).Debug("skipped malformed tracking records")
	}

	fetcher := service.NewMetadataFetcher(j.metadata)
	now := j.now()
	for _, subjectID := range audience.SubjectIDs() {
		if err := ctx.Err(); err != nil {
			return err
		}
		users := audience.Subjects[subjectID]
		logger := log.WithFields(log.Fields{
			"job":       domain.JobEpisodeScan,
			"subjectID": subjectID,
			"users":     len(users),
		})
		j.guard(report, logger, func() {
			j.episodeSubject(ctx, report, logger, fetcher, now, subjectID, users)
		})
	}

	log.WithFields(log.Fields{
		"job":           domain.JobEpisodeScan,
		"metadataCalls": fetcher.Calls(),
	}).Debug("episode subjects processed")
	return nil
}

func (j *Jobs) episodeSubject(ctx context.Context, report *domain.RunReport, logger *log.Entry, fetcher *service.MetadataFetcher, now time.Time, subjectID int64, users domain.UserSet) {
	fact, err := fetcher.Fetch(ctx, subjectID)
	if err != nil {
		logger.WithField("error", err).Warn("skipping subject, metadata unavailable")
		report.SkippedSubjects++
		return
	}
	if !service.EpisodeAirsToday(fact, now) {
		report.Ineligible++
		return
	}

	msg := service.ComposeEpisodeAlert(subjectID, fact)
	j.deliver(ctx, report, logger.WithField("show", fact.ShowName), msg, users)
}

func (j *Jobs) stalenessScan(ctx context.Context, report *domain.RunReport) error {
	scan, err := j.resolver.ResolveStaleCandidates(ctx, j.now())
	if err != nil {
		return err
	}
	report.Subjects = len(scan.Candidates)
	report.Ineligible = scan.UsersScanned - scan.FailedUsers - len(scan.Candidates)
	report.MalformedRecords = scan.Malformed
	report.UserErrors = scan.FailedUsers
	log.WithFields(log.Fields{
		"job":           domain.JobStalenessScan,
		"usersScanned":  scan.UsersScanned,
		"usersNoTokens": scan.UsersNoTokens,
	}).Debug("stale candidates resolved")

	for _, candidate := range scan.Candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		logger := log.WithFields(log.Fields{
			"job":     domain.JobStalenessScan,
			"userID":  candidate.UserID,
			"mediaID": candidate.Item.MediaID,
		})
		j.guard(report, logger, func() {
			msg := service.ComposeStaleReminder(candidate.Item)
			j.dispatch(ctx, report, logger, msg, candidate.Tokens)
		})
	}
	return nil
}

func (j *Jobs) releaseMatch(ctx context.Context, report *domain.RunReport, change domain.ReleaseChange) error {
	event, ok := change.Event()
	if !ok {
		report.Note = "skipped: change carries no usable release"
		log.WithFields(log.Fields{
			"job":  domain.JobReleaseMatch,
			"kind": change.Kind,
		}).Info("ignoring release change")
		return nil
	}

	logger := log.WithFields(log.Fields{
		"job":     domain.JobReleaseMatch,
		"mediaID": event.MediaID,
		"title":   event.Title,
	})
	report.Subjects = 1

	users, err := j.resolver.ResolveReleaseAudience(ctx, event.MediaID)
	if err != nil {
		return err
	}
	if !service.ReleaseMatches(users) {
		report.Ineligible++
		report.Note = "no matching watchlist entries"
		logger.Info("no users waiting for release")
		return nil
	}

	j.guard(report, logger, func() {
		j.deliver(ctx, report, logger.WithField("users", len(users)), service.ComposeReleaseAlert(event), users)
	})
	return nil
}

func (j *Jobs) deliver(ctx context.Context, report *domain.RunReport, logger *log.Entry, msg *domain.Message, users domain.UserSet) {
	collected, err := j.tokens.Collect(ctx, users)
	if err != nil {
		logger.WithField("error", err).Warn("skipping subject, token collection interrupted")
		report.SkippedSubjects++
		return
	}
	report.UserErrors += collected.FailedUsers
	logger = logger.WithFields(log.Fields{
		"audience":      collected.Users,
		"usersNoTokens": collected.NoTokens,
		"userErrors":    collected.FailedUsers,
	})
	j.dispatch(ctx, report, logger, msg, collected.Tokens)
}

func (j *Jobs) dispatch(ctx context.Context, report *domain.RunReport, logger *log.Entry, msg *domain.Message, tokens []string) {
	if len(tokens) == 0 {
		logger.Info("no delivery tokens, skipping dispatch")
		return
	}

	result := j.dispatcher.Dispatch(ctx, msg, tokens)
	report.AddDispatch(result)

	entry := logger.WithFields(log.Fields{
		"sent":   result.Sent,
		"failed": result.Failed,
	})
	if err := result.Err(); err != nil {
		entry.WithFields(log.Fields{
			"error":        err,
			"failedTokens": result.FailedTokens,
		}).Warn("dispatch completed with failures")
		return
	}
	entry.Info("dispatch completed")
}

// guard confines a panic to the subject being processed.
func (j *Jobs) guard(report *domain.RunReport, logger *log.Entry, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			logger.WithField("panic", p).Error("recovered panic while processing subject")
			report.SkippedSubjects++
		}
	}()
	fn()
}
