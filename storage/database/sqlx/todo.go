package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/todoapp/core"
	"github.com/trezcool/todoapp/core/todo"
)

type todoRow struct {
	ID          int       `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	IsFinished  bool      `db:"is_finished"`
	CreatedAt   time.Time `db:"creation_date"`
	UpdatedAt   null.Time `db:"updated_at"`
	UserID      int       `db:"user_id"`
}

func (r todoRow) toTodo() todo.Todo {
	return todo.Todo{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		IsFinished:  r.IsFinished,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   utcTime(r.UpdatedAt),
		UserID:      r.UserID,
	}
}

const todoColumns = "id, title, description, is_finished, creation_date, updated_at, user_id"

type todoRepository struct {
	db *sqlx.DB
}

var _ todo.Repository = (*todoRepository)(nil) // interface compliance check

func NewTodoRepository(db *sqlx.DB) todo.Repository {
	return &todoRepository{db: db}
}

func (repo *todoRepository) CreateTodo(ctx context.Context, t todo.Todo) (todo.Todo, error) {
	q := `INSERT INTO todos (title, description, is_finished, creation_date, updated_at, user_id)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`

	err := repo.db.QueryRowxContext(ctx, q, t.Title, t.Description, t.IsFinished, t.CreatedAt, t.UpdatedAt, t.UserID).Scan(&t.ID)
	if err != nil {
		return todo.Todo{}, errors.Wrap(err, "inserting todo")
	}
	return t, nil
}

func (repo *todoRepository) QueryTodos(ctx context.Context, filter todo.QueryFilter, ordering ...core.DBOrdering) ([]todo.Todo, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.UserID != 0 {
		args = append(args, filter.UserID)
		conds = append(conds, "user_id = $"+strconv.Itoa(len(args)))
	}
	if filter.IsFinished != nil {
		args = append(args, *filter.IsFinished)
		conds = append(conds, "is_finished = $"+strconv.Itoa(len(args)))
	}

	q := "SELECT " + todoColumns + " FROM todos"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += orderBy(ordering, "id ASC")

	var rows []todoRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting todos")
	}
	todos := make([]todo.Todo, 0, len(rows))
	for _, r := range rows {
		todos = append(todos, r.toTodo())
	}
	return todos, nil
}

func (repo *todoRepository) GetTodoByID(ctx context.Context, id int) (todo.Todo, error) {
	var r todoRow
	if err := repo.db.GetContext(ctx, &r, "SELECT "+todoColumns+" FROM todos WHERE id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return todo.Todo{}, todo.ErrNotFound
		}
		return todo.Todo{}, errors.Wrap(err, "selecting todo")
	}
	return r.toTodo(), nil
}

func (repo *todoRepository) UpdateTodo(ctx context.Context, t todo.Todo) (todo.Todo, error) {
	q := `UPDATE todos SET title = $1, description = $2, is_finished = $3, updated_at = $4 WHERE id = $5`

	res, err := repo.db.ExecContext(ctx, q, t.Title, t.Description, t.IsFinished, t.UpdatedAt, t.ID)
	if err != nil {
		return todo.Todo{}, errors.Wrap(err, "updating todo")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return todo.Todo{}, todo.ErrNotFound
	}
	return t, nil
}

func (repo *todoRepository) DeleteTodo(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM todos WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting todo")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return todo.ErrNotFound
	}
	return nil
}
