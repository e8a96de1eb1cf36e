package echoapi

import (
	"net/http"
	"strconv"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/karo/core"
	"github.com/trezcool/karo/core/user"
)

var errUsrNotFoundInCtx = errors.New("user object not found in echo.Context")

type staffApi struct {
	svc        user.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerStaffAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := staffApi{
		svc:        deps.UserSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	sg := g.Group("/staff", jwt, requireCapability(api.svc, user.CapManageStaff))
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.DELETE("", api.destroyMultiple)
	sg.GET("/roles", api.queryRoles)

	// detail endpoints
	dg := sg.Group("/:id", staffObjectMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.PUT("/role", api.setRole)
}

// Handlers

func (api *staffApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *staffApi) query(ctx echo.Context) error {
	filter := user.QueryFilter{
		Search: ctx.QueryParam("search"),
		Roles:  ctx.QueryParams()["role"],
	}
	if val := ctx.QueryParam("is_active"); val != "" {
		isActive, err := strconv.ParseBool(val)
		if err != nil {
			return ctx.JSON(http.StatusOK, []user.User{})
		}
		filter.IsActive = &isActive
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *staffApi) retrieve(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *staffApi) update(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}

	var data user.UpdateUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}

	// ctxUser cannot lock themselves out
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if usr.ID == ctxUsr.ID && data.IsActive != nil && !*data.IsActive {
		return errHttpForbidden
	}

	if err := data.Validate(ctx.Request().Context(), usr, api.validate, api.svc); err != nil {
		return err
	}

	usr, err = api.svc.Update(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *staffApi) setRole(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}

	var data user.SetUserRole
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetUserRole")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	// an admin cannot demote themselves
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if usr.ID == ctxUsr.ID && data.Role != usr.Role {
		return errHttpForbidden
	}

	usr, err = api.svc.SetRole(ctx.Request().Context(), usr.ID, data.Role)
	if err != nil {
		return errors.Wrap(err, "setting role")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *staffApi) destroy(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}

	// Say No to Suicide! ctxUser cannot delete themselves
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if usr.ID == ctxUsr.ID {
		return errHttpForbidden
	}

	if err := api.svc.Delete(ctx.Request().Context(), usr.ID); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *staffApi) destroyMultiple(ctx echo.Context) error {
	ids := ctx.QueryParams()["id"]
	if len(ids) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}

	// Say No to Suicide! ctxUser cannot delete themselves
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	for _, id := range ids {
		if id == ctxUsr.ID {
			return errHttpForbidden
		}
	}

	if err := api.svc.Delete(ctx.Request().Context(), ids...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *staffApi) queryRoles(ctx echo.Context) error {
	type roleInfo struct {
		Role         user.Role         `json:"role"`
		Capabilities []user.Capability `json:"capabilities"`
	}
	roles := make([]roleInfo, 0, len(user.AllRoles))
	for _, r := range user.AllRoles {
		roles = append(roles, roleInfo{Role: r, Capabilities: r.Capabilities()})
	}
	return ctx.JSON(http.StatusOK, roles)
}

func staffObjectMiddleware(svc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if core.IsNotFound(err) {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding user by ID")
			}
			ctx.Set("object", usr)
			return next(ctx)
		}
	}
}
