package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/karo/core"
	"github.com/trezcool/karo/core/user"
	metricsvc "github.com/trezcool/karo/services/metrics"
)

const (
	tokenCookie    = "token"
	claimsCtxKey   = "userToken"
	contextUserKey = "user"
	tokenAudience  = "staff"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64     `json:"oriat,omitempty"`
	Email        string    `json:"email,omitempty"`
	FullName     string    `json:"full_name,omitempty"`
	Role         user.Role `json:"role,omitempty"`
}

func GetUserClaims(conf *core.Config, usr user.User, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Email:        usr.Email,
		FullName:     usr.FullName,
		Role:         usr.Role,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// parseToken returns the claims of a valid, unexpired token.
func parseToken(conf *core.Config, tokenStr string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != middleware.AlgorithmHS256 {
			return nil, errors.Errorf("unexpected jwt signing method=%v", t.Header["alg"])
		}
		return []byte(conf.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// newJWTConfig returns the JWT auth middleware config.
func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    claimsCtxKey,
		Claims:        new(Claims),
	}
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(claimsCtxKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	if claims, ok := ctx.Get(claimsCtxKey).(*Claims); ok { // set by the session guard
		return *claims, nil
	}
	return Claims{}, errUnauthorized
}

// getContextUser loads the authenticated user once per request.
func getContextUser(ctx echo.Context, svc user.Service) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.User{}, err
	}
	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, errUnauthorized
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

func setTokenCookie(ctx echo.Context, conf *core.Config, token string) {
	ctx.SetCookie(&http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(conf.Server.JWTExpirationDelta),
		HttpOnly: true,
		Secure:   !(conf.Debug || conf.TestMode),
		SameSite: http.SameSiteLaxMode,
	})
}

func clearTokenCookie(ctx echo.Context, conf *core.Config) {
	ctx.SetCookie(&http.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   !(conf.Debug || conf.TestMode),
		SameSite: http.SameSiteLaxMode,
	})
}

// signIn checks the credentials and returns a signed token for the user.
func signIn(ctx echo.Context, conf *core.Config, svc user.Service, email, pwd string) (user.User, string, error) {
	usr, err := svc.Authenticate(ctx.Request().Context(), email, pwd)
	if err != nil {
		switch errors.Cause(err) {
		case user.ErrInvalidCredentials:
			return user.User{}, "", errAuthenticationFailed
		case user.ErrAccountDeactivated:
			return user.User{}, "", errAccountDeactivated
		}
		return user.User{}, "", errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(conf, GetUserClaims(conf, usr))
	if err != nil {
		return user.User{}, "", err
	}
	return usr, token, nil
}

type authApi struct {
	conf       *core.Config
	svc        user.Service
	validate   *validator.Validate
	translator ut.Translator
	metrics    *metricsvc.Collector
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := authApi{
		conf:       deps.Conf,
		svc:        deps.UserSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
		metrics:    deps.Metrics,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/login", api.login)
	ag.POST("/logout", api.logout)
	ag.POST("/password-reset", api.resetPassword)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	ag.GET("/me", api.me, jwt)
	ag.POST("/token-refresh", api.refreshToken, jwt)
}

// Handlers

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	_, token, err := signIn(ctx, api.conf, api.svc, data.Email, data.Password)
	if api.metrics != nil {
		api.metrics.LoggedIn(err == nil)
	}
	if err != nil {
		return err
	}

	setTokenCookie(ctx, api.conf, token)
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

// logout always succeeds: tokens are stateless, dropping the cookie ends the browser session.
func (api *authApi) logout(ctx echo.Context) error {
	clearTokenCookie(ctx, api.conf)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *authApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *authApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); !(err == nil || core.IsNotFound(err)) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *authApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}

	// check if user is still active
	if !usr.IsActive {
		return errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(api.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return errRefreshExpired
	}

	token, err := GenerateToken(api.conf, GetUserClaims(api.conf, usr, claims.OrigIssuedAt))
	if err != nil {
		return err
	}
	setTokenCookie(ctx, api.conf, token)
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

type (
	LoginRequest struct {
		Email    string `json:"email" form:"email" validate:"required"`
		Password string `json:"password" form:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
