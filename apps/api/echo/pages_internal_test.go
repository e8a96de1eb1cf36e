package echoapi

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func Test_loginErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		herr *echo.HTTPError
		want string
	}{
		{name: "string", herr: echo.NewHTTPError(http.StatusBadRequest, "invalid credentials"), want: "Invalid credentials."},
		{name: "map", herr: echo.NewHTTPError(http.StatusBadRequest, map[string]string{"email": "required"}), want: "Bad Request."},
		{name: "default", herr: echo.NewHTTPError(http.StatusForbidden), want: "Forbidden."},
		{name: "unknown code", herr: &echo.HTTPError{Code: 599, Message: 42}, want: "Unable to sign in."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, loginErrorMessage(tt.herr))
		})
	}
}
