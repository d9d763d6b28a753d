package tests

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/todoapp/apps/api/echo"
	"github.com/trezcool/todoapp/core"
	"github.com/trezcool/todoapp/core/todo"
	"github.com/trezcool/todoapp/core/user"
	testutil "github.com/trezcool/todoapp/tests"
)

func taskPath(id interface{}) string { return fmt.Sprintf("/api/v1/tasks/%v", id) }

func Test_todoApi_query(t *testing.T) {
	db.Reset()

	bob := testutil.CreateUser(t, usrRepo, "bob", user.RoleUser, "", false)
	alice := testutil.CreateUser(t, usrRepo, "alice", user.RoleUser, "", false)
	carol := testutil.CreateUser(t, usrRepo, "carol", user.RoleUser, "", false)
	admin := testutil.CreateUser(t, usrRepo, "admin", user.RoleAdmin, "", false)

	groceries := testutil.CreateTodo(t, todoRepo, bob, "groceries", false)
	laundry := testutil.CreateTodo(t, todoRepo, bob, "laundry", true)
	dishes := testutil.CreateTodo(t, todoRepo, alice, "dishes", false)

	bobToken := getToken(t, bob)
	adminToken := getToken(t, admin)

	tests := []httpTest{
		{name: "auth required", path: "/api/v1/tasks", wantCode: http.StatusUnauthorized, wantData: errMissingToken},
		{name: "empty list", path: "/api/v1/tasks", token: getToken(t, carol), wantCode: http.StatusOK, wantData: []byte(`[]`)},
		{name: "own tasks", path: "/api/v1/tasks", token: bobToken, wantCode: http.StatusOK, wantData: marshalList(t, groceries, laundry)},
		{
			name: "user filter ignored for users", path: fmt.Sprintf("/api/v1/tasks?user_id=%d", alice.ID), token: bobToken,
			wantCode: http.StatusOK, wantData: marshalList(t, groceries, laundry),
		},
		{
			name: "is_finished=false", path: "/api/v1/tasks?is_finished=false", token: bobToken,
			wantCode: http.StatusOK, wantData: marshalList(t, groceries),
		},
		{
			name: "ordering=-id", path: "/api/v1/tasks?ordering=-id", token: bobToken,
			wantCode: http.StatusOK, wantData: marshalList(t, laundry, groceries),
		},
		{name: "admin sees all", path: "/api/v1/tasks", token: adminToken, wantCode: http.StatusOK, wantData: marshalList(t, groceries, laundry, dishes)},
		{
			name: "admin user filter", path: fmt.Sprintf("/api/v1/tasks?user_id=%d", alice.ID), token: adminToken,
			wantCode: http.StatusOK, wantData: marshalList(t, dishes),
		},
		{
			name: "admin is_finished=true", path: "/api/v1/tasks?is_finished=true", token: adminToken,
			wantCode: http.StatusOK, wantData: marshalList(t, laundry),
		},
		{
			name: "ordering=title", path: "/api/v1/tasks?ordering=title", token: adminToken,
			wantCode: http.StatusOK, wantData: marshalList(t, dishes, groceries, laundry),
		},
		{
			name: "invalid filters ignored", path: "/api/v1/tasks?user_id=abc&is_finished=maybe", token: adminToken,
			wantCode: http.StatusOK, wantData: marshalList(t, groceries, laundry, dishes),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run(t, tt)
		})
	}
}

func Test_todoApi_create(t *testing.T) {
	db.Reset()

	bob := testutil.CreateUser(t, usrRepo, "bob", user.RoleUser, "", false)
	bobToken := getToken(t, bob)

	tests := []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/api/v1/tasks", body: []byte(`{}`), wantCode: http.StatusUnauthorized},
		{
			name: "required fields", method: http.MethodPost, path: "/api/v1/tasks", token: bobToken, body: []byte(`{"title":"  "}`),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"title": "this field is required", "description": "this field is required"}),
		},
		{
			name: "title too long", method: http.MethodPost, path: "/api/v1/tasks", token: bobToken,
			body:     []byte(`{"title":"this title is way too long to be accepted","description":"desc"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"title": "title must be a maximum of 30 characters in length"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run(t, tt)
		})
	}

	t.Run("created", func(t *testing.T) {
		rec := run(t, httpTest{
			method: http.MethodPost, path: "/api/v1/tasks", token: bobToken,
			body:     []byte(`{"title":" Groceries ","description":"milk & eggs"}`),
			wantCode: http.StatusCreated,
		})

		var resp echoapi.TodoResponse
		decode(t, rec, &resp)
		assert.Equal(t, "success", resp.Status)
		assert.Equal(t, fmt.Sprintf("Task %d added successfully.", resp.ID), resp.Message)

		created, err := todoRepo.GetTodoByID(context.Background(), resp.ID)
		require.NoError(t, err)
		assert.Equal(t, "Groceries", created.Title)
		assert.Equal(t, "milk & eggs", created.Description)
		assert.False(t, created.IsFinished)
		assert.Equal(t, bob.ID, created.UserID)
		assert.False(t, created.UpdatedAt.Valid)
	})
}

func Test_todoApi_retrieve(t *testing.T) {
	db.Reset()

	bob := testutil.CreateUser(t, usrRepo, "bob", user.RoleUser, "", false)
	alice := testutil.CreateUser(t, usrRepo, "alice", user.RoleUser, "", false)
	admin := testutil.CreateUser(t, usrRepo, "admin", user.RoleAdmin, "", false)
	task := testutil.CreateTodo(t, todoRepo, bob, "groceries", false)

	tests := []httpTest{
		{name: "auth required", path: taskPath(task.ID), wantCode: http.StatusUnauthorized, wantData: errMissingToken},
		{name: "owner", path: taskPath(task.ID), token: getToken(t, bob), wantCode: http.StatusOK, wantData: marshalObj(t, task)},
		{name: "admin", path: taskPath(task.ID), token: getToken(t, admin), wantCode: http.StatusOK, wantData: marshalObj(t, task)},
		{
			name: "someone else", path: taskPath(task.ID), token: getToken(t, alice),
			wantCode: http.StatusForbidden, wantData: errorBody(core.ErrPermissionDenied.Error()),
		},
		{name: "not found", path: taskPath(999), token: getToken(t, bob), wantCode: http.StatusNotFound, wantData: errorBody("Task with ID 999 not found.")},
		{name: "invalid id", path: taskPath("lol"), token: getToken(t, bob), wantCode: http.StatusNotFound, wantData: errorBody("Task with ID lol not found.")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run(t, tt)
		})
	}
}

func Test_todoApi_update(t *testing.T) {
	db.Reset()

	bob := testutil.CreateUser(t, usrRepo, "bob", user.RoleUser, "", false)
	alice := testutil.CreateUser(t, usrRepo, "alice", user.RoleUser, "", false)
	admin := testutil.CreateUser(t, usrRepo, "admin", user.RoleAdmin, "", false)
	task := testutil.CreateTodo(t, todoRepo, bob, "groceries", false)

	body := []byte(`{"title":"shopping","description":"bread","is_finished":true}`)

	tests := []httpTest{
		{
			name: "someone else", method: http.MethodPut, path: taskPath(task.ID), token: getToken(t, alice), body: body,
			wantCode: http.StatusForbidden, wantData: errorBody(core.ErrPermissionDenied.Error()),
		},
		{
			name: "not found", method: http.MethodPut, path: taskPath(999), token: getToken(t, bob), body: body,
			wantCode: http.StatusNotFound, wantData: errorBody("Task with ID 999 not found."),
		},
		{
			name: "required fields", method: http.MethodPut, path: taskPath(task.ID), token: getToken(t, bob), body: []byte(`{"title":"shopping"}`),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"description": "this field is required"}),
		},
		{
			name: "owner", method: http.MethodPut, path: taskPath(task.ID), token: getToken(t, bob), body: body,
			wantCode: http.StatusOK, wantData: marshalObj(t, echoapi.TodoResponse{
				StatusResponse: echoapi.StatusResponse{Status: "success", Message: "Task updated successfully."},
				ID:             task.ID,
			}),
		},
		{
			name: "admin", method: http.MethodPut, path: taskPath(task.ID), token: getToken(t, admin),
			body:     []byte(`{"title":"shopping","description":"bread & butter"}`),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run(t, tt)
		})
	}

	updated, err := todoRepo.GetTodoByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, "shopping", updated.Title)
	assert.Equal(t, "bread & butter", updated.Description)
	assert.False(t, updated.IsFinished)
	assert.Equal(t, bob.ID, updated.UserID)
	assert.True(t, updated.UpdatedAt.Valid)
}

func Test_todoApi_destroy(t *testing.T) {
	db.Reset()

	bob := testutil.CreateUser(t, usrRepo, "bob", user.RoleUser, "", false)
	alice := testutil.CreateUser(t, usrRepo, "alice", user.RoleUser, "", false)
	admin := testutil.CreateUser(t, usrRepo, "admin", user.RoleAdmin, "", false)
	task := testutil.CreateTodo(t, todoRepo, bob, "groceries", false)

	tests := []httpTest{
		{
			name: "someone else", method: http.MethodDelete, path: taskPath(task.ID), token: getToken(t, alice),
			wantCode: http.StatusForbidden, wantData: errorBody(core.ErrPermissionDenied.Error()),
		},
		{
			name: "admin cannot delete others' tasks", method: http.MethodDelete, path: taskPath(task.ID), token: getToken(t, admin),
			wantCode: http.StatusForbidden, wantData: errorBody(core.ErrPermissionDenied.Error()),
		},
		{
			name: "owner", method: http.MethodDelete, path: taskPath(task.ID), token: getToken(t, bob),
			wantCode: http.StatusOK, wantData: marshalObj(t, echoapi.TodoResponse{
				StatusResponse: echoapi.StatusResponse{Status: "success", Message: "Task deleted successfully."},
				ID:             task.ID,
			}),
		},
		{
			name: "already deleted", method: http.MethodDelete, path: taskPath(task.ID), token: getToken(t, bob),
			wantCode: http.StatusNotFound, wantData: errorBody(fmt.Sprintf("Task with ID %d not found.", task.ID)),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run(t, tt)
		})
	}

	_, err := todoRepo.GetTodoByID(context.Background(), task.ID)
	assert.Equal(t, todo.ErrNotFound, err)
}

func Test_todoApi_setFinished(t *testing.T) {
	db.Reset()

	bob := testutil.CreateUser(t, usrRepo, "bob", user.RoleUser, "", false)
	alice := testutil.CreateUser(t, usrRepo, "alice", user.RoleUser, "", false)
	admin := testutil.CreateUser(t, usrRepo, "admin", user.RoleAdmin, "", false)
	task := testutil.CreateTodo(t, todoRepo, bob, "groceries", false)

	path := taskPath(task.ID) + "/finish"
	set := marshalObj(t, echoapi.TodoResponse{
		StatusResponse: echoapi.StatusResponse{Status: "success", Message: fmt.Sprintf("Task %d successfully set.", task.ID)},
		ID:             task.ID,
	})

	tests := []httpTest{
		{
			name: "someone else", method: http.MethodPut, path: path, token: getToken(t, alice), body: []byte(`{"is_finished":true}`),
			wantCode: http.StatusForbidden, wantData: errorBody(core.ErrPermissionDenied.Error()),
		},
		{
			name: "required", method: http.MethodPut, path: path, token: getToken(t, bob), body: []byte(`{}`),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"is_finished": "this field is required"}),
		},
		{
			name: "no change", method: http.MethodPut, path: path, token: getToken(t, bob), body: []byte(`{"is_finished":false}`),
			wantCode: http.StatusUnprocessableEntity, wantData: errorBody("Task already set to pending. No changes made."),
		},
		{
			name: "completed", method: http.MethodPut, path: path, token: getToken(t, bob), body: []byte(`{"is_finished":true}`),
			wantCode: http.StatusOK, wantData: set,
		},
		{
			name: "completed again", method: http.MethodPut, path: path, token: getToken(t, bob), body: []byte(`{"is_finished":true}`),
			wantCode: http.StatusUnprocessableEntity, wantData: errorBody("Task already set to completed. No changes made."),
		},
		{
			name: "admin reopens", method: http.MethodPut, path: path, token: getToken(t, admin), body: []byte(`{"is_finished":false}`),
			wantCode: http.StatusOK, wantData: set,
		},
		{
			name: "not found", method: http.MethodPut, path: taskPath(999) + "/finish", token: getToken(t, bob), body: []byte(`{"is_finished":true}`),
			wantCode: http.StatusNotFound, wantData: errorBody("Task with ID 999 not found."),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run(t, tt)
		})
	}
}
