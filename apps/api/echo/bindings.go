package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/karo/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// paramID reads the integer ID path param. Anything else is a 404.
func paramID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}

// queryInt reads an optional integer query param; a malformed value is reported on name.
func queryInt(ctx echo.Context, name string) (int, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, core.NewValidationError(nil, core.FieldError{Field: name, Error: "must be a number"})
	}
	return n, nil
}
