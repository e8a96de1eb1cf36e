package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/karo/core/payment"
	"github.com/trezcool/karo/core/report"
	"github.com/trezcool/karo/core/user"
)

type paymentApi struct {
	userSvc  user.Service
	ledger   *payment.Ledger
	reports  *report.Service
	validate *validator.Validate
}

func registerPaymentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := paymentApi{
		userSvc:  deps.UserSvc,
		ledger:   deps.Ledger,
		reports:  deps.Reports,
		validate: deps.Validate,
	}

	pg := g.Group("/payments", jwt, requireCapability(api.userSvc, user.CapViewOwnRecords))
	pg.GET("/mine", api.mine)
	pg.POST("", api.create, requireCapability(api.userSvc, user.CapEditPayments))
	pg.GET("/:id", api.retrieve)
	pg.PUT("/:id", api.update)
}

// mine lists the feeding and transport payments recorded by the current user.
func (api *paymentApi) mine(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	rows, err := api.reports.StaffRecords(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying staff records")
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *paymentApi) create(ctx echo.Context) error {
	var data payment.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	rec, err := api.ledger.Add(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "adding payment")
	}
	return ctx.JSON(http.StatusCreated, rec)
}

// retrieve is limited to the user's own records, unless they can view the reports.
func (api *paymentApi) retrieve(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	rec, err := api.ledger.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding payment by ID")
	}
	if rec.StaffID != usr.ID && !usr.Can(user.CapViewReports) {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *paymentApi) update(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}

	var data payment.UpdateAmount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAmount")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	rec, err := api.ledger.UpdateAmount(ctx.Request().Context(), usr, id, data.Amount)
	if err != nil {
		return errors.Wrap(err, "updating payment amount")
	}
	return ctx.JSON(http.StatusOK, rec)
}
