package todo

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/todoapp/core"
	"github.com/trezcool/todoapp/core/user"
)

var ErrNotFound = errors.New("todo not found")

// OrderingFields are the fields todos can be ordered by.
var OrderingFields = []string{"id", "title", "is_finished", "creation_date", "updated_at", "user_id"}

type (
	Repository interface {
		CreateTodo(ctx context.Context, t Todo) (Todo, error)
		// QueryTodos returns all todos matching every set field of filter.
		QueryTodos(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Todo, error)
		GetTodoByID(ctx context.Context, id int) (Todo, error)
		UpdateTodo(ctx context.Context, t Todo) (Todo, error)
		DeleteTodo(ctx context.Context, id int) error
	}

	// ServiceInterface applies the ownership rules: users only see and change their own todos,
	// admins see and change everybody's, but only owners may delete.
	ServiceInterface interface {
		Query(ctx context.Context, requester user.User, filter QueryFilter, ordering ...core.DBOrdering) ([]Todo, error)
		Get(ctx context.Context, requester user.User, id int) (Todo, error)
		Create(ctx context.Context, requester user.User, nt NewTodo) (Todo, error)
		Update(ctx context.Context, requester user.User, id int, ut UpdateTodo) (Todo, error)
		Delete(ctx context.Context, requester user.User, id int) error
		SetFinished(ctx context.Context, requester user.User, id int, finished bool) (Todo, error)
	}

	service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository) ServiceInterface {
	return &service{repo: repo}
}

func (svc *service) Query(ctx context.Context, requester user.User, filter QueryFilter, ordering ...core.DBOrdering) ([]Todo, error) {
	if !requester.IsAdmin() {
		filter.UserID = requester.ID
	}
	return svc.repo.QueryTodos(ctx, filter, core.FilterOrderings(ordering, OrderingFields...)...)
}

func (svc *service) Get(ctx context.Context, requester user.User, id int) (Todo, error) {
	t, err := svc.repo.GetTodoByID(ctx, id)
	if err != nil {
		return Todo{}, err
	}
	if !requester.CanAccess(t.UserID) {
		return Todo{}, core.ErrPermissionDenied
	}
	return t, nil
}

func (svc *service) Create(ctx context.Context, requester user.User, nt NewTodo) (Todo, error) {
	t := Todo{
		Title:       nt.Title,
		Description: nt.Description,
		IsFinished:  nt.IsFinished,
		CreatedAt:   time.Now().UTC(),
		UserID:      requester.ID,
	}
	return svc.repo.CreateTodo(ctx, t)
}

func (svc *service) Update(ctx context.Context, requester user.User, id int, ut UpdateTodo) (Todo, error) {
	t, err := svc.Get(ctx, requester, id)
	if err != nil {
		return Todo{}, err
	}
	t.Title = ut.Title
	t.Description = ut.Description
	t.IsFinished = ut.IsFinished
	t.UpdatedAt = null.TimeFrom(time.Now().UTC())
	return svc.repo.UpdateTodo(ctx, t)
}

func (svc *service) Delete(ctx context.Context, requester user.User, id int) error {
	t, err := svc.repo.GetTodoByID(ctx, id)
	if err != nil {
		return err
	}
	if t.UserID != requester.ID {
		return core.ErrPermissionDenied
	}
	return svc.repo.DeleteTodo(ctx, id)
}

func (svc *service) SetFinished(ctx context.Context, requester user.User, id int, finished bool) (Todo, error) {
	t, err := svc.Get(ctx, requester, id)
	if err != nil {
		return Todo{}, err
	}
	if t.IsFinished == finished {
		status := "pending"
		if finished {
			status = "completed"
		}
		return Todo{}, core.NewNoChangeError(fmt.Sprintf("Task already set to %s. No changes made.", status))
	}
	t.IsFinished = finished
	t.UpdatedAt = null.TimeFrom(time.Now().UTC())
	return svc.repo.UpdateTodo(ctx, t)
}
