package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/karo/core/class"
	"github.com/trezcool/karo/core/user"
)

type classApi struct {
	svc      class.Service
	validate *validator.Validate
}

func registerClassAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := classApi{svc: deps.ClassSvc, validate: deps.Validate}

	cg := g.Group("/classes", jwt, requireCapability(deps.UserSvc, user.CapManageClasses))
	cg.GET("", api.query)
	cg.POST("", api.create)
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update)
	cg.DELETE("/:id", api.destroy)
}

func (api *classApi) query(ctx echo.Context) error {
	classes, err := api.svc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []class.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) create(ctx echo.Context) error {
	var data class.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cls, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *classApi) retrieve(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	cls, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding class by ID")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) update(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}

	var data class.UpdateClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cls, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) destroy(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}
