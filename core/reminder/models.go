package reminder

import "context"

const (
	EmailSubject  = "Daily Reminder"
	EmailTemplate = "daily_reminder"
)

type (
	// Task is an incomplete todo listed in a Digest.
	Task struct {
		ID          int    `db:"id"`
		Title       string `db:"title"`
		Description string `db:"description"`
	}

	// Digest is the reminder payload of one user.
	Digest struct {
		UserID   int
		Username string
		Email    string
		Tasks    []Task
	}

	Repository interface {
		// QueryTimezones returns the distinct timezones of all users.
		QueryTimezones(ctx context.Context) ([]string, error)
		// CountEnabled counts users of tz who opted into daily reminders.
		CountEnabled(ctx context.Context, tz string) (int, error)
		// QueryDigests returns, ordered by email, the users of tz who opted into daily reminders
		// and still have incomplete todos. Tasks are ordered by ID.
		QueryDigests(ctx context.Context, tz string) ([]Digest, error)
		// QueryEmailsByTimezone maps timezones to the emails of users who opted into daily reminders.
		QueryEmailsByTimezone(ctx context.Context) (map[string][]string, error)
	}

	// Metrics receives the scheduler and delivery counters.
	Metrics interface {
		SetActiveJobs(n int)
		AddSent(tz string, n int)
	}

	taskLine struct {
		Title       string
		Description string
		Link        string
	}

	emailData struct {
		AppName  string
		Username string
		Tasks    []taskLine
	}
)

type nopMetrics struct{}

func (nopMetrics) SetActiveJobs(int)   {}
func (nopMetrics) AddSent(string, int) {}
