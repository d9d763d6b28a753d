package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/todoapp/core"
	"github.com/trezcool/todoapp/core/todo"
)

type todoRepository struct {
	db *todoTable
}

var _ todo.Repository = (*todoRepository)(nil) // interface compliance check

func NewTodoRepository(db *DB) todo.Repository {
	return &todoRepository{db: db.todo}
}

func (repo *todoRepository) CreateTodo(_ context.Context, t todo.Todo) (todo.Todo, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.pkCount++
	t.ID = repo.db.pkCount
	repo.db.table[t.ID] = &t
	return t, nil
}

func (repo *todoRepository) QueryTodos(_ context.Context, filter todo.QueryFilter, ordering ...core.DBOrdering) ([]todo.Todo, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	todos := make([]todo.Todo, 0)
	for _, t := range repo.db.table {
		if filter.UserID != 0 && t.UserID != filter.UserID {
			continue
		}
		if filter.IsFinished != nil && t.IsFinished != *filter.IsFinished {
			continue
		}
		todos = append(todos, *t)
	}
	sort.Slice(todos, func(i, j int) bool { return todos[i].ID < todos[j].ID })
	if len(ordering) > 0 {
		sort.SliceStable(todos, func(i, j int) bool { return lessTodo(todos[i], todos[j], ordering) })
	}
	return todos, nil
}

func (repo *todoRepository) GetTodoByID(_ context.Context, id int) (todo.Todo, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.table[id]; ok {
		return *t, nil
	}
	return todo.Todo{}, todo.ErrNotFound
}

func (repo *todoRepository) UpdateTodo(_ context.Context, t todo.Todo) (todo.Todo, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[t.ID]; !ok {
		return todo.Todo{}, todo.ErrNotFound
	}
	repo.db.table[t.ID] = &t
	return t, nil
}

func (repo *todoRepository) DeleteTodo(_ context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return todo.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func lessTodo(a, b todo.Todo, ordering []core.DBOrdering) bool {
	for _, ord := range ordering {
		var cmp int
		switch ord.Field {
		case "id":
			cmp = compareInt(a.ID, b.ID)
		case "title":
			cmp = strings.Compare(a.Title, b.Title)
		case "is_finished":
			cmp = compareInt(boolInt(a.IsFinished), boolInt(b.IsFinished))
		case "creation_date":
			cmp = a.CreatedAt.Compare(b.CreatedAt)
		case "updated_at":
			cmp = a.UpdatedAt.Time.Compare(b.UpdatedAt.Time)
		case "user_id":
			cmp = compareInt(a.UserID, b.UserID)
		}
		if cmp != 0 {
			return (cmp < 0) == ord.Ascending
		}
	}
	return false
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
