package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/todoapp/core/reminder"
)

type reminderRepository struct {
	db *sqlx.DB
}

var _ reminder.Repository = (*reminderRepository)(nil) // interface compliance check

func NewReminderRepository(db *sqlx.DB) reminder.Repository {
	return &reminderRepository{db: db}
}

func (repo *reminderRepository) QueryTimezones(ctx context.Context) ([]string, error) {
	tzs := make([]string, 0)
	if err := repo.db.SelectContext(ctx, &tzs, "SELECT DISTINCT timezone FROM users ORDER BY timezone"); err != nil {
		return nil, errors.Wrap(err, "selecting timezones")
	}
	return tzs, nil
}

func (repo *reminderRepository) CountEnabled(ctx context.Context, tz string) (int, error) {
	var n int
	err := repo.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM users WHERE timezone = $1 AND daily_reminder", tz)
	return n, errors.Wrap(err, "counting reminder users")
}

func (repo *reminderRepository) QueryDigests(ctx context.Context, tz string) ([]reminder.Digest, error) {
	q := `SELECT u.id AS user_id, u.username, u.email, t.id, t.title, t.description
		FROM users u
		JOIN todos t ON t.user_id = u.id AND NOT t.is_finished
		WHERE u.timezone = $1 AND u.daily_reminder
		ORDER BY u.email, t.id`

	rows, err := repo.db.QueryxContext(ctx, q, tz)
	if err != nil {
		return nil, errors.Wrap(err, "selecting digests")
	}
	defer func() { _ = rows.Close() }()

	var row struct {
		UserID   int    `db:"user_id"`
		Username string `db:"username"`
		Email    string `db:"email"`
		reminder.Task
	}
	digests := make([]reminder.Digest, 0)
	for rows.Next() {
		if err = rows.StructScan(&row); err != nil {
			return nil, errors.Wrap(err, "scanning digest")
		}
		if n := len(digests); n == 0 || digests[n-1].UserID != row.UserID {
			digests = append(digests, reminder.Digest{UserID: row.UserID, Username: row.Username, Email: row.Email})
		}
		last := &digests[len(digests)-1]
		last.Tasks = append(last.Tasks, row.Task)
	}
	return digests, errors.Wrap(rows.Err(), "iterating digests")
}

func (repo *reminderRepository) QueryEmailsByTimezone(ctx context.Context) (map[string][]string, error) {
	var rows []struct {
		Timezone string `db:"timezone"`
		Email    string `db:"email"`
	}
	q := "SELECT timezone, email FROM users WHERE daily_reminder ORDER BY timezone, email"
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting reminder emails")
	}
	emails := make(map[string][]string)
	for _, r := range rows {
		emails[r.Timezone] = append(emails[r.Timezone], r.Email)
	}
	return emails, nil
}
