package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/todoapp/core"
	"github.com/trezcool/todoapp/core/reminder"
	"github.com/trezcool/todoapp/core/todo"
	"github.com/trezcool/todoapp/core/user"
	"github.com/trezcool/todoapp/storage/database"
	sqlxrepos "github.com/trezcool/todoapp/storage/database/sqlx"
	testutil "github.com/trezcool/todoapp/tests"
)

// all subtests share one container
func TestRepositories(t *testing.T) {
	db := testutil.PrepareDB(t)

	v, err := database.SchemaVersion(context.Background(), db.DB)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	t.Run("users", func(t *testing.T) {
		testutil.ResetDB(t, db)
		testUserRepository(t, db)
	})
	t.Run("todos", func(t *testing.T) {
		testutil.ResetDB(t, db)
		testTodoRepository(t, db)
	})
	t.Run("reminders", func(t *testing.T) {
		testutil.ResetDB(t, db)
		testReminderRepository(t, db)
	})
}

func testUserRepository(t *testing.T, db *sqlx.DB) {
	repo := sqlxrepos.NewUserRepository(db)
	todoRepo := sqlxrepos.NewTodoRepository(db)
	ctx := context.Background()

	bob := testutil.CreateUser(t, repo, "bob", user.RoleUser, "Europe/Paris", false)
	alice := testutil.CreateUser(t, repo, "alice", user.RoleAdmin, "", true)
	assert.Equal(t, 1, bob.ID)

	got, err := repo.GetUserByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, bob, got)

	got, err = repo.GetUserByUsernameOrEmail(ctx, "alice@test.cd")
	require.NoError(t, err)
	assert.Equal(t, alice, got)

	_, err = repo.GetUserByID(ctx, 42)
	assert.Equal(t, user.ErrNotFound, err)

	// unique constraints
	_, err = repo.CreateUser(ctx, user.User{Username: "bob", Email: "new@test.cd", Timezone: "UTC", Role: user.RoleUser, CreatedAt: time.Now()})
	assert.Equal(t, user.ErrUsernameExists, err)
	_, err = repo.CreateUser(ctx, user.User{Username: "new", Email: "bob@test.cd", Timezone: "UTC", Role: user.RoleUser, CreatedAt: time.Now()})
	assert.Equal(t, user.ErrEmailExists, err)

	assert.NoError(t, repo.CheckUniqueness(ctx, "bob", "bob@test.cd", bob.ID))
	assert.Equal(t, user.ErrUsernameExists, repo.CheckUniqueness(ctx, "bob", "other@test.cd"))
	assert.Equal(t, user.ErrEmailExists, repo.CheckUniqueness(ctx, "other", "alice@test.cd", bob.ID))
	assert.NoError(t, repo.CheckUniqueness(ctx, "other", "other@test.cd"))

	// update
	bob.Username = "robert"
	bob.DailyReminder = true
	bob.LastLogin = null.TimeFrom(time.Now().UTC().Truncate(time.Microsecond))
	_, err = repo.UpdateUser(ctx, bob)
	require.NoError(t, err)
	got, err = repo.GetUserByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, bob, got)

	bob.Email = "alice@test.cd"
	_, err = repo.UpdateUser(ctx, bob)
	assert.Equal(t, user.ErrEmailExists, err)
	_, err = repo.UpdateUser(ctx, user.User{ID: 42, Username: "ghost", Email: "ghost@test.cd"})
	assert.Equal(t, user.ErrNotFound, err)

	// ordering
	users, err := repo.QueryUsers(ctx, core.DBOrdering{Field: "username", Ascending: true})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "robert", users[1].Username)

	// delete cascades to todos
	testutil.CreateTodo(t, todoRepo, bob, "groceries", false)
	require.NoError(t, repo.DeleteUser(ctx, bob.ID))
	assert.Equal(t, user.ErrNotFound, repo.DeleteUser(ctx, bob.ID))
	todos, err := todoRepo.QueryTodos(ctx, todo.QueryFilter{})
	require.NoError(t, err)
	assert.Empty(t, todos)
}

func testTodoRepository(t *testing.T, db *sqlx.DB) {
	usrRepo := sqlxrepos.NewUserRepository(db)
	repo := sqlxrepos.NewTodoRepository(db)
	ctx := context.Background()

	bob := testutil.CreateUser(t, usrRepo, "bob", user.RoleUser, "", false)
	alice := testutil.CreateUser(t, usrRepo, "alice", user.RoleUser, "", false)

	groceries := testutil.CreateTodo(t, repo, bob, "groceries", false)
	laundry := testutil.CreateTodo(t, repo, bob, "laundry", true)
	dishes := testutil.CreateTodo(t, repo, alice, "dishes", false)

	got, err := repo.GetTodoByID(ctx, groceries.ID)
	require.NoError(t, err)
	assert.Equal(t, groceries, got)

	no := false
	tests := []struct {
		name     string
		filter   todo.QueryFilter
		ordering []core.DBOrdering
		want     []todo.Todo
	}{
		{name: "all", want: []todo.Todo{groceries, laundry, dishes}},
		{name: "by user", filter: todo.QueryFilter{UserID: bob.ID}, want: []todo.Todo{groceries, laundry}},
		{name: "by user unfinished", filter: todo.QueryFilter{UserID: bob.ID, IsFinished: &no}, want: []todo.Todo{groceries}},
		{
			name:     "ordered",
			ordering: []core.DBOrdering{{Field: "is_finished"}, {Field: "title", Ascending: true}},
			want:     []todo.Todo{laundry, dishes, groceries},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			todos, err := repo.QueryTodos(ctx, tt.filter, tt.ordering...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, todos)
		})
	}

	groceries.IsFinished = true
	groceries.UpdatedAt = null.TimeFrom(time.Now().UTC().Truncate(time.Microsecond))
	_, err = repo.UpdateTodo(ctx, groceries)
	require.NoError(t, err)
	got, err = repo.GetTodoByID(ctx, groceries.ID)
	require.NoError(t, err)
	assert.Equal(t, groceries, got)

	_, err = repo.UpdateTodo(ctx, todo.Todo{ID: 42})
	assert.Equal(t, todo.ErrNotFound, err)

	require.NoError(t, repo.DeleteTodo(ctx, groceries.ID))
	assert.Equal(t, todo.ErrNotFound, repo.DeleteTodo(ctx, groceries.ID))
	_, err = repo.GetTodoByID(ctx, groceries.ID)
	assert.Equal(t, todo.ErrNotFound, err)
}

func testReminderRepository(t *testing.T, db *sqlx.DB) {
	usrRepo := sqlxrepos.NewUserRepository(db)
	todoRepo := sqlxrepos.NewTodoRepository(db)
	repo := sqlxrepos.NewReminderRepository(db)
	ctx := context.Background()

	bob := testutil.CreateUser(t, usrRepo, "bob", user.RoleUser, "Africa/Kinshasa", true)
	alice := testutil.CreateUser(t, usrRepo, "alice", user.RoleUser, "Africa/Kinshasa", true)
	carl := testutil.CreateUser(t, usrRepo, "carl", user.RoleUser, "Africa/Kinshasa", false)
	testutil.CreateUser(t, usrRepo, "eve", user.RoleUser, "UTC", false)

	groceries := testutil.CreateTodo(t, todoRepo, bob, "groceries", false)
	testutil.CreateTodo(t, todoRepo, bob, "done", true)
	homework := testutil.CreateTodo(t, todoRepo, alice, "homework", false)
	laundry := testutil.CreateTodo(t, todoRepo, bob, "laundry", false)
	testutil.CreateTodo(t, todoRepo, carl, "opted out", false)

	tzs, err := repo.QueryTimezones(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Africa/Kinshasa", "UTC"}, tzs)

	n, err := repo.CountEnabled(ctx, "Africa/Kinshasa")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = repo.CountEnabled(ctx, "UTC")
	require.NoError(t, err)
	assert.Zero(t, n)

	digests, err := repo.QueryDigests(ctx, "Africa/Kinshasa")
	require.NoError(t, err)
	require.Len(t, digests, 2)
	assert.Equal(t, "alice@test.cd", digests[0].Email)
	assert.Equal(t, []int{homework.ID}, taskIDs(digests[0].Tasks))
	assert.Equal(t, "bob@test.cd", digests[1].Email)
	assert.Equal(t, "bob", digests[1].Username)
	assert.Equal(t, []int{groceries.ID, laundry.ID}, taskIDs(digests[1].Tasks))

	digests, err = repo.QueryDigests(ctx, "UTC")
	require.NoError(t, err)
	assert.Empty(t, digests)

	emails, err := repo.QueryEmailsByTimezone(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"Africa/Kinshasa": {"alice@test.cd", "bob@test.cd"}}, emails)
}

func taskIDs(tasks []reminder.Task) []int {
	ids := make([]int, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	return ids
}
