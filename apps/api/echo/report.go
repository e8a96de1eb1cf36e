package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/karo/core/payment"
	"github.com/trezcool/karo/core/report"
	"github.com/trezcool/karo/core/user"
)

type reportApi struct {
	svc *report.Service
}

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := reportApi{svc: deps.Reports}

	rg := g.Group("/reports", jwt, requireCapability(deps.UserSvc, user.CapViewReports))
	rg.GET("/feeding", api.ledger(payment.Feeding))
	rg.GET("/transport", api.ledger(payment.Transport))
	rg.GET("/school", api.school)
}

func bindReportFilter(ctx echo.Context) (report.Filter, error) {
	classID, err := queryInt(ctx, "class_id")
	if err != nil {
		return report.Filter{}, err
	}
	filter := report.Filter{
		ClassID: classID,
		From:    ctx.QueryParam("from"),
		To:      ctx.QueryParam("to"),
		Status:  ctx.QueryParam("status"),
	}
	return filter, filter.Validate()
}

func (api *reportApi) ledger(cat payment.Category) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		filter, err := bindReportFilter(ctx)
		if err != nil {
			return err
		}
		rows, err := api.svc.Ledger(ctx.Request().Context(), cat, filter)
		if err != nil {
			return errors.Wrapf(err, "building %s ledger", cat)
		}
		return ctx.JSON(http.StatusOK, rows)
	}
}

func (api *reportApi) school(ctx echo.Context) error {
	filter, err := bindReportFilter(ctx)
	if err != nil {
		return err
	}
	rows, err := api.svc.Summary(ctx.Request().Context(), payment.School, filter)
	if err != nil {
		return errors.Wrap(err, "building school fees summary")
	}
	return ctx.JSON(http.StatusOK, rows)
}
