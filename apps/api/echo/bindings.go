package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/todoapp/core"
	"github.com/trezcool/todoapp/core/todo"
)

const orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind parses `?ordering=field1,-field2`; a leading "-" sorts descending.
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field != "" {
			ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
		}
	}
}

// bindTaskFilter parses `?user_id=&is_finished=`. Invalid values are ignored.
func bindTaskFilter(ctx echo.Context) todo.QueryFilter {
	var filter todo.QueryFilter
	if id, ok := core.ParseID(ctx.QueryParam("user_id")); ok {
		filter.UserID = id
	}
	if v := ctx.QueryParam("is_finished"); v != "" {
		if finished, err := strconv.ParseBool(v); err == nil {
			filter.IsFinished = &finished
		}
	}
	return filter
}
