package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/todoapp/core"
	"github.com/trezcool/todoapp/core/user"
)

const uniqueViolation = "23505"

type userRow struct {
	ID            int       `db:"id"`
	Username      string    `db:"username"`
	Email         string    `db:"email"`
	Password      string    `db:"password"`
	Timezone      string    `db:"timezone"`
	Role          string    `db:"role"`
	DailyReminder bool      `db:"daily_reminder"`
	CreatedAt     time.Time `db:"creation_date"`
	LastLogin     null.Time `db:"last_login"`
}

func (r userRow) toUser() user.User {
	return user.User{
		ID:            r.ID,
		Username:      r.Username,
		Email:         r.Email,
		PasswordHash:  []byte(r.Password),
		Timezone:      r.Timezone,
		Role:          r.Role,
		DailyReminder: r.DailyReminder,
		CreatedAt:     r.CreatedAt.UTC(),
		LastLogin:     utcTime(r.LastLogin),
	}
}

func newUserRow(usr user.User) userRow {
	return userRow{
		ID:            usr.ID,
		Username:      usr.Username,
		Email:         usr.Email,
		Password:      string(usr.PasswordHash),
		Timezone:      usr.Timezone,
		Role:          usr.Role,
		DailyReminder: usr.DailyReminder,
		CreatedAt:     usr.CreatedAt,
		LastLogin:     usr.LastLogin,
	}
}

const userColumns = "id, username, email, password, timezone, role, daily_reminder, creation_date, last_login"

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedIDs ...int) error {
	q := "SELECT username, email FROM users WHERE (username = ? OR email = ?)"
	args := []interface{}{username, email}
	if len(excludedIDs) > 0 {
		q += " AND id NOT IN (?)"
		args = append(args, excludedIDs)
	}
	q += " LIMIT 1"

	q, args, err := sqlx.In(q, args...)
	if err != nil {
		return errors.Wrap(err, "building uniqueness query")
	}

	var found struct {
		Username string `db:"username"`
		Email    string `db:"email"`
	}
	err = repo.db.GetContext(ctx, &found, repo.db.Rebind(q), args...)
	switch {
	case err == sql.ErrNoRows:
		return nil
	case err != nil:
		return errors.Wrap(err, "checking uniqueness")
	case found.Username == username:
		return user.ErrUsernameExists
	default:
		return user.ErrEmailExists
	}
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `INSERT INTO users (username, email, password, timezone, role, daily_reminder, creation_date, last_login)
		VALUES (:username, :email, :password, :timezone, :role, :daily_reminder, :creation_date, :last_login)
		RETURNING id`

	rows, err := repo.db.NamedQueryContext(ctx, q, newUserRow(usr))
	if err != nil {
		return user.User{}, userError(err, "inserting user")
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		// constraint violations surface here with lib/pq
		err = rows.Err()
		if err == nil {
			err = sql.ErrNoRows
		}
		return user.User{}, userError(err, "inserting user")
	}
	if err = rows.Scan(&usr.ID); err != nil {
		return user.User{}, errors.Wrap(err, "scanning user id")
	}
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, ordering ...core.DBOrdering) ([]user.User, error) {
	var rows []userRow
	q := "SELECT " + userColumns + " FROM users" + orderBy(ordering, "id ASC")
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users, nil
}

func (repo *userRepository) getBy(ctx context.Context, where string, args ...interface{}) (user.User, error) {
	var r userRow
	q := "SELECT " + userColumns + " FROM users WHERE " + where + " LIMIT 1"
	if err := repo.db.GetContext(ctx, &r, q, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting user")
	}
	return r.toUser(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	return repo.getBy(ctx, "id = $1", id)
}

func (repo *userRepository) GetUserByUsernameOrEmail(ctx context.Context, uname string) (user.User, error) {
	return repo.getBy(ctx, "username = $1 OR email = $1", uname)
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `UPDATE users SET username = :username, email = :email, password = :password, timezone = :timezone,
		role = :role, daily_reminder = :daily_reminder, last_login = :last_login
		WHERE id = :id`

	res, err := repo.db.NamedExecContext(ctx, q, newUserRow(usr))
	if err != nil {
		return user.User{}, userError(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) DeleteUser(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.ErrNotFound
	}
	return nil
}

// userError maps unique constraint violations to user errors.
func userError(err error, msg string) error {
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
		switch {
		case strings.Contains(pqErr.Constraint, "username"):
			return user.ErrUsernameExists
		case strings.Contains(pqErr.Constraint, "email"):
			return user.ErrEmailExists
		}
	}
	return errors.Wrap(err, msg)
}

// orderBy renders an ORDER BY clause. Orderings must already be filtered by the services.
func orderBy(ordering []core.DBOrdering, fallback string) string {
	if len(ordering) == 0 {
		return " ORDER BY " + fallback
	}
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		parts = append(parts, ord.String())
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

func utcTime(t null.Time) null.Time {
	if t.Valid {
		t.Time = t.Time.UTC()
	}
	return t
}
