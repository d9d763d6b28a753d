package todo

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/todoapp/core"
)

type Todo struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IsFinished  bool      `json:"is_finished"`
	CreatedAt   time.Time `json:"creation_date"` // UTC
	UpdatedAt   null.Time `json:"updated_at"`    // UTC
	UserID      int       `json:"user_id"`
}

// NewTodo contains information needed to create a new Todo.
type NewTodo struct {
	Title       string `json:"title" validate:"required,max=30"`
	Description string `json:"description" validate:"required,max=100"`
	IsFinished  bool   `json:"is_finished"`
}

func (nt *NewTodo) Validate(validate *validator.Validate) error {
	nt.Title = core.CleanString(nt.Title)
	nt.Description = core.CleanString(nt.Description)
	return validate.Struct(nt)
}

// UpdateTodo replaces the editable fields of a Todo.
type UpdateTodo NewTodo

func (ut *UpdateTodo) Validate(validate *validator.Validate) error {
	return (*NewTodo)(ut).Validate(validate)
}

type SetFinished struct {
	IsFinished *bool `json:"is_finished" validate:"required"`
}

func (sf SetFinished) Validate(validate *validator.Validate) error { return validate.Struct(sf) }

type QueryFilter struct {
	UserID     int   `query:"user_id"`
	IsFinished *bool `query:"is_finished"`
}
