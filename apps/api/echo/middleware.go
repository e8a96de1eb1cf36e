package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/karo/core"
	"github.com/trezcool/karo/core/user"
)

const (
	loginPath  = "/login"
	authScheme = "Bearer"
)

// requireCapability lets the request through only if the authenticated user holds capability.
func requireCapability(svc user.Service, capability user.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if usr.Can(capability) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// tokenFromCookie lets browser clients authenticate API calls with the session cookie.
func tokenFromCookie(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		req := ctx.Request()
		if req.Header.Get(echo.HeaderAuthorization) == "" {
			if cookie, err := ctx.Cookie(tokenCookie); err == nil && cookie.Value != "" {
				req.Header.Set(echo.HeaderAuthorization, authScheme+" "+cookie.Value)
			}
		}
		return next(ctx)
	}
}

// sessionGuard redirects page requests: to the login page without a valid session,
// away from it with one.
func sessionGuard(conf *core.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			var claims *Claims
			if cookie, err := ctx.Cookie(tokenCookie); err == nil && cookie.Value != "" {
				if claims, err = parseToken(conf, cookie.Value); err != nil {
					claims = nil
				}
			}

			onLogin := ctx.Path() == loginPath
			switch {
			case claims == nil && !onLogin:
				return ctx.Redirect(http.StatusFound, loginPath)
			case claims != nil && onLogin:
				return ctx.Redirect(http.StatusFound, dashboardPath)
			}
			if claims != nil {
				ctx.Set(claimsCtxKey, claims)
			}
			return next(ctx)
		}
	}
}
