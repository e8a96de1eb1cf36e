package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/karo/core/payment"
	"github.com/trezcool/karo/core/user"
	metricsvc "github.com/trezcool/karo/services/metrics"
)

type scanApi struct {
	userSvc  user.Service
	recorder *payment.Recorder
	sessions *payment.Sessions
	metrics  *metricsvc.Collector
}

func registerScanAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := scanApi{
		userSvc:  deps.UserSvc,
		recorder: deps.Recorder,
		sessions: deps.Sessions,
		metrics:  deps.Metrics,
	}

	sg := g.Group("/scans", jwt, requireCapability(api.userSvc, user.CapScanPayments))
	sg.POST("", api.open)
	sg.GET("/:id", api.retrieve)
	sg.DELETE("/:id", api.close)
	sg.POST("/:id/start", api.start)
	sg.POST("/:id/decode", api.decode)
	sg.POST("/:id/pay", api.pay)
}

type (
	DecodeRequest struct {
		Code string `json:"code"`
	}

	DecodeResponse struct {
		Accepted bool                `json:"accepted"`
		Session  payment.SessionView `json:"session"`
	}

	PayRequest struct {
		Category payment.Category `json:"category"`
	}
)

// session returns the scan session of the path, if it belongs to the current user.
func (api *scanApi) session(ctx echo.Context) (*payment.ScanSession, user.User, error) {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return nil, user.User{}, errors.Wrap(err, "getting context user")
	}
	sess, err := api.sessions.Get(ctx.Param("id"), usr.ID)
	if err != nil {
		return nil, user.User{}, err
	}
	return sess, usr, nil
}

func (api *scanApi) open(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	sess := api.sessions.Open(usr.ID)
	return ctx.JSON(http.StatusCreated, sess.View())
}

func (api *scanApi) retrieve(ctx echo.Context) error {
	sess, _, err := api.session(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess.View())
}

func (api *scanApi) start(ctx echo.Context) error {
	sess, _, err := api.session(ctx)
	if err != nil {
		return err
	}
	sess.Start()
	return ctx.JSON(http.StatusOK, sess.View())
}

func (api *scanApi) close(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.sessions.Close(ctx.Param("id"), usr.ID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *scanApi) decode(ctx echo.Context) error {
	sess, _, err := api.session(ctx)
	if err != nil {
		return err
	}

	var data DecodeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DecodeRequest")
	}

	accepted, err := api.recorder.Decode(ctx.Request().Context(), sess, data.Code)
	view := sess.View()
	api.countDecode(accepted, err, view)
	if err != nil {
		return errors.Wrap(err, "decoding scanned code")
	}
	return ctx.JSON(http.StatusOK, DecodeResponse{Accepted: accepted, Session: view})
}

func (api *scanApi) pay(ctx echo.Context) error {
	sess, usr, err := api.session(ctx)
	if err != nil {
		return err
	}

	var data PayRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PayRequest")
	}

	outcome, err := api.recorder.PaySession(ctx.Request().Context(), usr, sess, data.Category)
	if err != nil {
		return errors.Wrap(err, "paying")
	}
	if api.metrics != nil {
		api.metrics.Paid(data.Category, outcome.Status)
	}
	return ctx.JSON(http.StatusOK, sess.View())
}

func (api *scanApi) countDecode(accepted bool, err error, view payment.SessionView) {
	if api.metrics == nil {
		return
	}
	switch {
	case err != nil:
		api.metrics.Decoded("error")
	case !accepted:
		api.metrics.Decoded("ignored")
	case view.State == payment.StateStudentNotFound:
		api.metrics.Decoded("not_found")
	default:
		api.metrics.Decoded("accepted")
	}
}
