package echoapi_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/karo/core/user"
)

func Test_staffApi_access(t *testing.T) {
	app := setup(t)
	admin := app.createUser(t, "Admin", "admin@test.gh", user.RoleAdmin, true)
	staff := app.createUser(t, "Ama Staff", "ama@test.gh", user.RoleStaff, true)

	forbidden := marchallObj(t, httpErr{Error: "permission denied"})
	tests := []httpTest{
		{name: "no token", method: http.MethodGet, path: "/v1/staff", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "staff list", method: http.MethodGet, path: "/v1/staff", token: app.getToken(t, staff), wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "staff detail", method: http.MethodGet, path: "/v1/staff/" + admin.ID, token: app.getToken(t, staff), wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "unknown id", method: http.MethodGet, path: "/v1/staff/lol", token: app.getToken(t, admin), wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})},
		{name: "admin detail", method: http.MethodGet, path: "/v1/staff/" + staff.ID, token: app.getToken(t, admin), wantCode: http.StatusOK, wantData: marchallObj(t, staff)},
	}
	runHTTPTests(t, app, tests)
}

func Test_staffApi_query(t *testing.T) {
	app := setup(t)
	admin := app.createUser(t, "Admin", "admin@test.gh", user.RoleAdmin, true)
	ama := app.createUser(t, "Ama Mensah", "ama@test.gh", user.RoleStaff, true)
	kofi := app.createUser(t, "Kofi Boateng", "kofi@test.gh", user.RoleStaff, true)
	yaw := app.createUser(t, "Yaw Gone", "yaw@test.gh", user.RoleStaff, false)
	token := app.getToken(t, admin)

	path := func(params url.Values) string {
		if len(params) == 0 {
			return "/v1/staff"
		}
		return "/v1/staff?" + params.Encode()
	}

	tests := []httpTest{
		{name: "all", path: path(nil), wantData: marchallList(t, admin, ama, kofi, yaw)},
		{name: "search (unknown)", path: path(url.Values{"search": {"lol"}}), wantData: marchallList(t)},
		{name: "search", path: path(url.Values{"search": {"BOA"}}), wantData: marchallList(t, kofi)},
		{name: "search email", path: path(url.Values{"search": {"yaw@"}}), wantData: marchallList(t, yaw)},
		{name: "role=admin", path: path(url.Values{"role": {"admin"}}), wantData: marchallList(t, admin)},
		{name: "role=staff", path: path(url.Values{"role": {"staff"}}), wantData: marchallList(t, ama, kofi, yaw)},
		{name: "is_active=false", path: path(url.Values{"is_active": {"false"}}), wantData: marchallList(t, yaw)},
		{name: "is_active (invalid)", path: path(url.Values{"is_active": {"lol"}}), wantData: marchallList(t)},
		{name: "combo", path: path(url.Values{"role": {"staff"}, "is_active": {"true"}, "search": {"a"}}), wantData: marchallList(t, ama, kofi)},
		{name: "ordering", path: path(url.Values{"ordering": {"-full_name"}}), wantData: marchallList(t, yaw, kofi, ama, admin)},
	}
	for i := range tests {
		tests[i].method = http.MethodGet
		tests[i].token = token
		tests[i].wantCode = http.StatusOK
	}
	runHTTPTests(t, app, tests)
}

func Test_staffApi_create(t *testing.T) {
	app := setup(t)
	admin := app.createUser(t, "Admin", "admin@test.gh", user.RoleAdmin, true)
	token := app.getToken(t, admin)

	body := func(nu user.NewUser) []byte { return marchallObj(t, nu) }
	required := "this field is required"

	tests := []httpTest{
		{
			name:     "no data",
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"full_name": required, "email": required}),
		},
		{
			name:     "duplicate email",
			body:     body(user.NewUser{FullName: "Other", Email: "ADMIN@test.gh"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		},
		{
			name:     "invalid role",
			body:     body(user.NewUser{FullName: "Esi", Email: "esi@test.gh", Role: "teacher"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"role": "invalid role"}),
		},
		{
			name:     "weak password",
			body:     body(user.NewUser{FullName: "Esi", Email: "esi@test.gh", Password: "short", PasswordConfirm: "short"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"password": "password must contain at least 8 characters"}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/staff"
		tests[i].token = token
	}
	runHTTPTests(t, app, tests)

	t.Run("invite without password", func(t *testing.T) {
		app.mailSvc.Reset()
		rec := app.do(newAuthRequest(http.MethodPost, "/v1/staff", token, body(user.NewUser{FullName: " Esi Owusu ", Email: "ESI@test.gh"})))
		require.Equal(t, http.StatusCreated, rec.Code)

		usr, err := app.userRepo.GetUser(context.Background(), user.GetFilter{Email: "esi@test.gh"})
		require.NoError(t, err)
		assert.Equal(t, "Esi Owusu", usr.FullName)
		assert.Equal(t, user.RoleStaff, usr.Role)
		assert.True(t, usr.IsActive)
		assert.False(t, usr.HasPassword())
		checkCodeAndData(t, httpTest{wantCode: http.StatusCreated, wantData: marchallObj(t, usr)}, rec)

		sent := app.mailSvc.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, "esi@test.gh", sent[0].To[0].Address)
		assert.Equal(t, "staff_invite", sent[0].TemplateName)
	})

	t.Run("admin with password", func(t *testing.T) {
		app.mailSvc.Reset()
		pwd := "Str0ng.Pass!"
		nu := user.NewUser{FullName: "Kwame", Email: "kwame@test.gh", Role: user.RoleAdmin, Password: pwd, PasswordConfirm: pwd}
		rec := app.do(newAuthRequest(http.MethodPost, "/v1/staff", token, body(nu)))
		require.Equal(t, http.StatusCreated, rec.Code)

		usr, err := app.userRepo.GetUser(context.Background(), user.GetFilter{Email: "kwame@test.gh"})
		require.NoError(t, err)
		assert.Equal(t, user.RoleAdmin, usr.Role)
		assert.NoError(t, usr.CheckPassword(pwd))
		assert.Empty(t, app.mailSvc.SentMessages())
	})
}

func Test_staffApi_updateAndRole(t *testing.T) {
	app := setup(t)
	admin := app.createUser(t, "Admin", "admin@test.gh", user.RoleAdmin, true)
	ama := app.createUser(t, "Ama Staff", "ama@test.gh", user.RoleStaff, true)
	token := app.getToken(t, admin)
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})

	tests := []httpTest{
		{
			name:     "deactivate self",
			method:   http.MethodPut,
			path:     "/v1/staff/" + admin.ID,
			body:     []byte(`{"is_active": false}`),
			wantCode: http.StatusForbidden,
			wantData: forbidden,
		},
		{
			name:     "demote self",
			method:   http.MethodPut,
			path:     "/v1/staff/" + admin.ID + "/role",
			body:     []byte(`{"role": "staff"}`),
			wantCode: http.StatusForbidden,
			wantData: forbidden,
		},
		{
			name:     "invalid role",
			method:   http.MethodPut,
			path:     "/v1/staff/" + ama.ID + "/role",
			body:     []byte(`{"role": "boss"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"role": "invalid role"}),
		},
		{
			name:     "email taken",
			method:   http.MethodPut,
			path:     "/v1/staff/" + ama.ID,
			body:     []byte(`{"email": "admin@test.gh"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		},
	}
	for i := range tests {
		tests[i].token = token
	}
	runHTTPTests(t, app, tests)

	t.Run("promote", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodPut, "/v1/staff/"+ama.ID+"/role", token, []byte(`{"role": "admin"}`)))
		require.Equal(t, http.StatusOK, rec.Code)

		usr, err := app.userRepo.GetUser(context.Background(), user.GetFilter{ID: ama.ID})
		require.NoError(t, err)
		assert.Equal(t, user.RoleAdmin, usr.Role)
	})

	t.Run("update", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodPut, "/v1/staff/"+ama.ID, token, []byte(`{"full_name": "Ama Mensah", "is_active": false}`)))
		require.Equal(t, http.StatusOK, rec.Code)

		usr, err := app.userRepo.GetUser(context.Background(), user.GetFilter{ID: ama.ID})
		require.NoError(t, err)
		assert.Equal(t, "Ama Mensah", usr.FullName)
		assert.Equal(t, "ama@test.gh", usr.Email)
		assert.False(t, usr.IsActive)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, usr)}, rec)
	})
}

func Test_staffApi_destroy(t *testing.T) {
	app := setup(t)
	admin := app.createUser(t, "Admin", "admin@test.gh", user.RoleAdmin, true)
	ama := app.createUser(t, "Ama Staff", "ama@test.gh", user.RoleStaff, true)
	kofi := app.createUser(t, "Kofi Staff", "kofi@test.gh", user.RoleStaff, true)
	token := app.getToken(t, admin)
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})

	tests := []httpTest{
		{name: "self", path: "/v1/staff/" + admin.ID, wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "multiple with self", path: "/v1/staff?id=" + ama.ID + "&id=" + admin.ID, wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "one", path: "/v1/staff/" + ama.ID, wantCode: http.StatusNoContent},
		{name: "multiple", path: "/v1/staff?id=" + kofi.ID, wantCode: http.StatusNoContent},
	}
	for i := range tests {
		tests[i].method = http.MethodDelete
		tests[i].token = token
	}
	runHTTPTests(t, app, tests)

	users, err := app.userRepo.QueryUsers(context.Background(), user.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
