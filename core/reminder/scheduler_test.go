package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/todoapp/core"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

// infoRecorder keeps the info messages.
type infoRecorder struct {
	nopLogger
	mu    sync.Mutex
	infos []string
}

func (l *infoRecorder) Info(msg string, _ ...interface{}) {
	l.mu.Lock()
	l.infos = append(l.infos, msg)
	l.mu.Unlock()
}

// stubRepo knows how many users of each timezone have reminders on.
type stubRepo struct {
	enabled   map[string]int
	queryErr  error
	countErrs map[string]error
}

func (r stubRepo) QueryTimezones(context.Context) ([]string, error) {
	if r.queryErr != nil {
		return nil, r.queryErr
	}
	tzs := make([]string, 0, len(r.enabled))
	for tz := range r.enabled {
		tzs = append(tzs, tz)
	}
	return tzs, nil
}

func (r stubRepo) CountEnabled(_ context.Context, tz string) (int, error) {
	if err := r.countErrs[tz]; err != nil {
		return 0, err
	}
	return r.enabled[tz], nil
}

func (r stubRepo) QueryDigests(context.Context, string) ([]Digest, error) { return nil, nil }

func (r stubRepo) QueryEmailsByTimezone(context.Context) (map[string][]string, error) {
	return nil, nil
}

type stubService struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (s *stubService) Send(_ context.Context, tz string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.sent = append(s.sent, tz)
	return []string{"bob@test.cd"}, nil
}

func (s *stubService) TimezoneEmails(context.Context) (map[string][]string, error) { return nil, nil }

type stubMetrics struct {
	activeJobs int
}

func (m *stubMetrics) SetActiveJobs(n int)   { m.activeJobs = n }
func (m *stubMetrics) AddSent(string, int) {}

func newTestScheduler(repo Repository, svc ServiceInterface, metrics ...Metrics) *Scheduler {
	conf := &core.Config{}
	conf.Reminder.Hour = 9
	return NewScheduler(svc, repo, nopLogger{}, conf, metrics...)
}

func TestNewScheduler(t *testing.T) {
	assert.Panics(t, func() { NewScheduler(nil, stubRepo{}, nopLogger{}, &core.Config{}) })
	assert.Panics(t, func() { NewScheduler(&stubService{}, stubRepo{}, nil, &core.Config{}) })

	s := newTestScheduler(stubRepo{}, &stubService{})
	assert.Equal(t, 24*time.Hour, s.refreshEvery, "default refresh interval")
	assert.Empty(t, s.Jobs())
}

func TestScheduler_AddRemove(t *testing.T) {
	metrics := new(stubMetrics)
	s := newTestScheduler(stubRepo{}, &stubService{}, metrics)

	_, err := s.Add("Nowhere")
	assert.Error(t, err)
	_, err = s.Add("Local")
	assert.Error(t, err)

	added, err := s.Add("Europe/Paris")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.Add("Europe/Paris")
	require.NoError(t, err)
	assert.False(t, added, "jobs are unique per timezone")

	_, err = s.Add("Africa/Kinshasa")
	require.NoError(t, err)

	assert.Equal(t, []string{"Africa/Kinshasa", "Europe/Paris"}, s.Jobs())
	assert.True(t, s.Has("Europe/Paris"))
	assert.Equal(t, 2, metrics.activeJobs)
	assert.Len(t, s.cron.Entries(), 2)

	assert.True(t, s.Remove("Europe/Paris"))
	assert.False(t, s.Remove("Europe/Paris"))
	assert.False(t, s.Has("Europe/Paris"))
	assert.Equal(t, 1, metrics.activeJobs)
	assert.Len(t, s.cron.Entries(), 1)
}

func TestScheduler_NextRun(t *testing.T) {
	s := newTestScheduler(stubRepo{}, &stubService{})

	_, ok := s.NextRun("Asia/Tokyo", time.Now())
	assert.False(t, ok)

	_, err := s.Add("Asia/Tokyo")
	require.NoError(t, err)
	_, err = s.Add("America/New_York")
	require.NoError(t, err)

	tokyo, _ := time.LoadLocation("Asia/Tokyo")
	newYork, _ := time.LoadLocation("America/New_York")

	tests := []struct {
		name string
		tz   string
		from time.Time
		want time.Time
	}{
		{
			name: "later today",
			tz:   "Asia/Tokyo",
			from: time.Date(2024, 3, 1, 7, 30, 0, 0, tokyo),
			want: time.Date(2024, 3, 1, 9, 0, 0, 0, tokyo),
		},
		{
			name: "tomorrow",
			tz:   "Asia/Tokyo",
			from: time.Date(2024, 3, 1, 9, 0, 0, 0, tokyo),
			want: time.Date(2024, 3, 2, 9, 0, 0, 0, tokyo),
		},
		{
			name: "from UTC",
			tz:   "America/New_York",
			from: time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC), // 08:00 in New York
			want: time.Date(2024, 7, 1, 9, 0, 0, 0, newYork),
		},
		{
			name: "across DST",
			tz:   "America/New_York",
			from: time.Date(2024, 3, 9, 10, 0, 0, 0, newYork),
			want: time.Date(2024, 3, 10, 9, 0, 0, 0, newYork),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := s.NextRun(tt.tz, tt.from)
			require.True(t, ok)
			assert.True(t, tt.want.Equal(got), "NextRun() = %v, want %v", got, tt.want)
		})
	}
}

func TestScheduler_Refresh(t *testing.T) {
	repo := stubRepo{enabled: map[string]int{
		"UTC":          2,
		"Asia/Tokyo":   1,
		"Europe/Paris": 0,
	}}
	s := newTestScheduler(repo, &stubService{})

	// stale jobs
	_, _ = s.Add("Europe/Paris")
	_, _ = s.Add("America/New_York")

	s.Refresh(context.Background())
	assert.Equal(t, []string{"Asia/Tokyo", "UTC"}, s.Jobs())

	// idempotent
	s.Refresh(context.Background())
	assert.Equal(t, []string{"Asia/Tokyo", "UTC"}, s.Jobs())
	assert.Len(t, s.cron.Entries(), 2)
}

func TestScheduler_RefreshFallback(t *testing.T) {
	repo := stubRepo{
		enabled:  map[string]int{"UTC": 1, "Asia/Tokyo": 1},
		queryErr: errors.New("connection refused"),
	}
	s := newTestScheduler(repo, &stubService{})
	_, _ = s.Add("Europe/Paris")

	s.Refresh(context.Background())
	// only UTC is known, nothing else is removed
	assert.Equal(t, []string{"Europe/Paris", "UTC"}, s.Jobs())
}

func TestScheduler_RefreshCountError(t *testing.T) {
	repo := stubRepo{
		enabled:   map[string]int{"UTC": 1, "Asia/Tokyo": 0},
		countErrs: map[string]error{"Asia/Tokyo": errors.New("statement timeout")},
	}
	s := newTestScheduler(repo, &stubService{})
	_, _ = s.Add("Asia/Tokyo")

	s.Refresh(context.Background())
	// the failing timezone is skipped, neither removed nor swept as stale
	assert.Equal(t, []string{"Asia/Tokyo", "UTC"}, s.Jobs())
	assert.Len(t, s.cron.Entries(), 2)
}

func TestScheduler_StartStop(t *testing.T) {
	svc := &stubService{}
	s := newTestScheduler(stubRepo{enabled: map[string]int{"UTC": 1}}, svc)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"UTC"}, s.Jobs())
	assert.Len(t, s.cron.Entries(), 2, "reminder job and refresh job")

	select {
	case <-s.Stop().Done():
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Len(t, s.cron.Entries(), 1, "refresh job removed")
}

func TestScheduler_logNextRuns(t *testing.T) {
	logger := new(infoRecorder)
	conf := &core.Config{}
	conf.Reminder.Hour = 9
	s := NewScheduler(&stubService{}, stubRepo{}, logger, conf)
	_, err := s.Add("Asia/Tokyo")
	require.NoError(t, err)
	logger.infos = nil

	tokyo, _ := time.LoadLocation("Asia/Tokyo")
	s.logNextRuns(time.Date(2024, 3, 1, 10, 0, 0, 0, tokyo))
	assert.Equal(t, []string{"reminder_for_Asia/Tokyo: next run at 2024-03-02T09:00:00+09:00"}, logger.infos)
}

func TestScheduler_run(t *testing.T) {
	svc := &stubService{}
	s := newTestScheduler(stubRepo{}, svc)

	s.run("UTC")
	s.run("Asia/Tokyo")
	assert.Equal(t, []string{"UTC", "Asia/Tokyo"}, svc.sent)

	// errors are logged only
	svc.err = errors.New("smtp down")
	assert.NotPanics(t, func() { s.run("UTC") })
}
