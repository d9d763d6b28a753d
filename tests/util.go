package testutil

import (
	"context"
	"os"
	"os/exec"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/trezcool/todoapp/core"
	"github.com/trezcool/todoapp/core/todo"
	"github.com/trezcool/todoapp/core/user"
	"github.com/trezcool/todoapp/storage/database"
)

const DefaultPassword = "Sup3r-s3cret"

// NewConfig returns the TEST configuration. Login rate limiting is disabled.
func NewConfig() *core.Config {
	_ = os.Setenv("ENV", "TEST")
	conf := core.NewConfig()
	conf.TestMode = true
	conf.Debug = false
	conf.SecretKey = "test-secret"
	conf.AppURL = "http://todo.test"
	conf.Server.LoginRateLimit = 0
	return conf
}

// NewValidator returns a validator with every app validator registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

// CreateUser inserts a user with the DefaultPassword unless pwd is set.
func CreateUser(t *testing.T, repo user.Repository, uname, role, tz string, reminder bool, pwd ...string) user.User {
	t.Helper()

	if role == "" {
		role = user.RoleUser
	}
	if tz == "" {
		tz = user.DefaultTimezone
	}
	usr := user.User{
		Username:      uname,
		Email:         uname + "@test.cd",
		Timezone:      tz,
		Role:          role,
		DailyReminder: reminder,
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
	}
	password := DefaultPassword
	if len(pwd) > 0 {
		password = pwd[0]
	}
	require.NoError(t, usr.SetPassword(password), "SetPassword()")

	usr, err := repo.CreateUser(context.Background(), usr)
	require.NoError(t, err, "CreateUser()")
	return usr
}

func CreateTodo(t *testing.T, repo todo.Repository, owner user.User, title string, finished bool) todo.Todo {
	t.Helper()

	td, err := repo.CreateTodo(context.Background(), todo.Todo{
		Title:       title,
		Description: title + " description",
		IsFinished:  finished,
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
		UserID:      owner.ID,
	})
	require.NoError(t, err, "CreateTodo()")
	return td
}

// PrepareDB starts a PostgreSQL container, migrates it and returns a connection to it.
// The test is skipped when docker is not available.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}
	if err := exec.Command("docker", "info").Run(); err != nil {
		t.Skip("docker is not available")
	}

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("todoapp_test"),
		postgres.WithUsername("todoapp"),
		postgres.WithPassword("todoapp"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "starting postgres container")

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable", "timezone=utc")
	require.NoError(t, err, "getting connection string")

	db, err := database.OpenDSN("postgres", dsn)
	require.NoError(t, err, "opening database")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(ctx, db.DB), "migrating database")
	return db
}

// ResetDB empties all tables.
func ResetDB(t *testing.T, db *sqlx.DB) {
	t.Helper()
	_, err := db.Exec("TRUNCATE users, todos RESTART IDENTITY CASCADE")
	require.NoError(t, err, "truncating tables")
}
