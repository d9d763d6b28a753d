package reminder

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/todoapp/core"
)

const (
	jobIDPrefix     = "reminder_for_"
	fallbackTZ      = "UTC"
	defaultRunLimit = 5 * time.Minute
)

// JobID names the reminder job of a timezone.
func JobID(tz string) string { return jobIDPrefix + tz }

// Scheduler keeps one daily reminder job per timezone having users with reminders on.
// Jobs fire at the configured local hour of their timezone.
// Add and Remove are idempotent and safe for concurrent use.
type Scheduler struct {
	mu        sync.Mutex
	cron      *cron.Cron
	jobs      map[string]cron.EntryID // {tz: entry}
	refreshID cron.EntryID

	svc     ServiceInterface
	repo    Repository
	logger  core.Logger
	metrics Metrics

	hour         int
	minute       int
	refreshEvery time.Duration
	runLimit     time.Duration
}

func NewScheduler(svc ServiceInterface, repo Repository, logger core.Logger, conf *core.Config, metrics ...Metrics) *Scheduler {
	vala.BeginValidation().Validate(
		vala.IsNotNil(svc, "svc"),
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(logger, "logger"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron:         cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		jobs:         make(map[string]cron.EntryID),
		svc:          svc,
		repo:         repo,
		logger:       logger,
		metrics:      nopMetrics{},
		hour:         conf.Reminder.Hour,
		minute:       conf.Reminder.Minute,
		refreshEvery: conf.Reminder.RefreshInterval,
		runLimit:     defaultRunLimit,
	}
	if len(metrics) > 0 && metrics[0] != nil {
		s.metrics = metrics[0]
	}
	if s.refreshEvery <= 0 {
		s.refreshEvery = 24 * time.Hour
	}
	return s
}

// Add registers the reminder job of tz. It returns false if the job already exists.
func (s *Scheduler) Add(tz string) (bool, error) {
	if !core.ValidTimezone(tz) {
		return false, errors.Wrapf(errInvalidTimezone, "adding job %s", JobID(tz))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[tz]; ok {
		return false, nil
	}
	spec := fmt.Sprintf("CRON_TZ=%s %d %d * * *", tz, s.minute, s.hour)
	id, err := s.cron.AddFunc(spec, func() { s.run(tz) })
	if err != nil {
		return false, errors.Wrapf(err, "adding job %s", JobID(tz))
	}
	s.jobs[tz] = id
	s.metrics.SetActiveJobs(len(s.jobs))
	s.logger.Info(fmt.Sprintf("added job %s", JobID(tz)))
	return true, nil
}

// Remove unregisters the reminder job of tz. It returns false if there was none.
func (s *Scheduler) Remove(tz string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.jobs[tz]
	if !ok {
		return false
	}
	s.cron.Remove(id)
	delete(s.jobs, tz)
	s.metrics.SetActiveJobs(len(s.jobs))
	s.logger.Info(fmt.Sprintf("removed job %s", JobID(tz)))
	return true
}

func (s *Scheduler) Has(tz string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[tz]
	return ok
}

// Jobs returns the sorted timezones having a job.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	tzs := make([]string, 0, len(s.jobs))
	for tz := range s.jobs {
		tzs = append(tzs, tz)
	}
	sort.Strings(tzs)
	return tzs
}

// NextRun returns the first activation of the job of tz after `from`.
func (s *Scheduler) NextRun(tz string, from time.Time) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.jobs[tz]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	entry := s.cron.Entry(id)
	if !entry.Valid() {
		return time.Time{}, false
	}
	return entry.Schedule.Next(from), true
}

// Refresh reconciles the jobs with the users' timezones:
// timezones without any user having reminders on lose their job, the others get one.
// If the timezones cannot be loaded, only UTC is refreshed.
func (s *Scheduler) Refresh(ctx context.Context) {
	tzs, err := s.repo.QueryTimezones(ctx)
	queried := err == nil
	if err != nil {
		s.logger.Error(fmt.Sprintf("querying timezones: %v", err), err)
		tzs = []string{fallbackTZ}
	}

	known := make(map[string]struct{}, len(tzs))
	for _, tz := range tzs {
		known[tz] = struct{}{}

		n, err := s.repo.CountEnabled(ctx, tz)
		if err != nil {
			s.logger.Error(fmt.Sprintf("counting users with reminders in %s: %v", tz, err), err)
			continue
		}
		if n == 0 {
			s.Remove(tz)
			continue
		}
		if _, err = s.Add(tz); err != nil {
			s.logger.Error(err.Error(), err)
		}
	}

	// timezones nobody lives in anymore
	if queried {
		for _, tz := range s.Jobs() {
			if _, ok := known[tz]; !ok {
				s.Remove(tz)
			}
		}
	}
}

// Start refreshes the jobs, schedules the periodic refresh and starts the scheduler in its own goroutine.
func (s *Scheduler) Start(ctx context.Context) error {
	s.Refresh(ctx)

	id, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.refreshEvery), func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.runLimit)
		defer cancel()
		s.Refresh(ctx)
	})
	if err != nil {
		return errors.Wrap(err, "scheduling refresh")
	}
	s.mu.Lock()
	s.refreshID = id
	s.mu.Unlock()

	s.cron.Start()
	s.logNextRuns(time.Now())
	return nil
}

func (s *Scheduler) logNextRuns(from time.Time) {
	for _, tz := range s.Jobs() {
		if next, ok := s.NextRun(tz, from); ok {
			s.logger.Info(fmt.Sprintf("%s: next run at %s", JobID(tz), next.Format(time.RFC3339)))
		}
	}
}

// Stop stops the scheduler. The returned context is done once running jobs have completed.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	if s.refreshID != 0 {
		s.cron.Remove(s.refreshID)
		s.refreshID = 0
	}
	s.mu.Unlock()
	return s.cron.Stop()
}

func (s *Scheduler) run(tz string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.runLimit)
	defer cancel()

	emails, err := s.svc.Send(ctx, tz)
	if err != nil {
		s.logger.Error(fmt.Sprintf("sending reminders for %s: %v", tz, err), err)
		return
	}
	s.logger.Info(fmt.Sprintf("%s: reminders sent to %d users", JobID(tz), len(emails)))
}

// cronLogger adapts core.Logger to cron.Logger.
type cronLogger struct {
	logger core.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{err}, keysAndValues...)...)
}
