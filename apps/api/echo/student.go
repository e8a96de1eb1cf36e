package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/karo/core/student"
	"github.com/trezcool/karo/core/user"
)

type studentApi struct {
	svc      student.Service
	validate *validator.Validate
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := studentApi{svc: deps.StudentSvc, validate: deps.Validate}

	sg := g.Group("/students", jwt, requireCapability(deps.UserSvc, user.CapManageStudents))
	sg.GET("", api.query)
	sg.POST("", api.create)

	// detail endpoints
	dg := sg.Group("/:id", studentObjectMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.GET("/qrcode", api.qrcode)
}

func (api *studentApi) query(ctx echo.Context) error {
	classID, err := queryInt(ctx, "class_id")
	if err != nil {
		return err
	}
	filter := student.QueryFilter{Search: ctx.QueryParam("search"), ClassID: classID}

	students, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	stu, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, stu)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ctx.Get("object"))
}

func (api *studentApi) update(ctx echo.Context) error {
	stu, ok := ctx.Get("object").(student.Student)
	if !ok {
		return errors.New("student object not found in echo.Context")
	}

	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(ctx.Request().Context(), stu, api.validate, api.svc); err != nil {
		return err
	}

	stu, err := api.svc.Update(ctx.Request().Context(), stu.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, stu)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	stu, ok := ctx.Get("object").(student.Student)
	if !ok {
		return errors.New("student object not found in echo.Context")
	}
	if err := api.svc.Delete(ctx.Request().Context(), stu.ID); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// qrcode serves the PNG printed on the student's card.
func (api *studentApi) qrcode(ctx echo.Context) error {
	stu, ok := ctx.Get("object").(student.Student)
	if !ok {
		return errors.New("student object not found in echo.Context")
	}

	size := student.DefaultQRSize
	if val := ctx.QueryParam("size"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			size = n
		}
	}
	png, err := stu.QRCode(size)
	if err != nil {
		return errors.Wrap(err, "encoding QR code")
	}
	return ctx.Blob(http.StatusOK, "image/png", png)
}

func studentObjectMiddleware(svc student.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			id, err := paramID(ctx)
			if err != nil {
				return err
			}
			stu, err := svc.GetByID(ctx.Request().Context(), id)
			if err != nil {
				return errors.Wrap(err, "finding student by ID")
			}
			ctx.Set("object", stu)
			return next(ctx)
		}
	}
}
