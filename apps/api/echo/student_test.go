package echoapi_test

import (
	"bytes"
	"context"
	"image/png"
	"net/http"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/karo/core/student"
	"github.com/trezcool/karo/core/user"
	"github.com/trezcool/karo/testutil"
)

func Test_studentApi(t *testing.T) {
	app := setup(t)
	admin := app.createUser(t, "Admin", "admin@test.gh", user.RoleAdmin, true)
	staff := app.createUser(t, "Ama Staff", "ama@test.gh", user.RoleStaff, true)
	token := app.getToken(t, admin)

	jhs := testutil.CreateClass(t, app.classRepo, "JHS 1")
	basic := testutil.CreateClass(t, app.classRepo, "Basic 4")
	kwesi := testutil.CreateStudent(t, app.studentRepo, "STU-1001", "Kwesi Appiah", jhs)
	efua := testutil.CreateStudent(t, app.studentRepo, "STU-1002", "Efua Mensah", basic)
	kojo := testutil.CreateStudent(t, app.studentRepo, "STU-1003", "Kojo Mensah", jhs)

	list := func(params url.Values) string {
		if len(params) == 0 {
			return "/v1/students"
		}
		return "/v1/students?" + params.Encode()
	}
	detail := func(id int) string { return "/v1/students/" + strconv.Itoa(id) }

	tests := []httpTest{
		{
			name:     "staff forbidden",
			method:   http.MethodGet,
			path:     list(nil),
			token:    app.getToken(t, staff),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "list", method: http.MethodGet, path: list(nil), token: token, wantCode: http.StatusOK, wantData: marchallList(t, kojo, efua, kwesi)},
		{
			name:     "search",
			method:   http.MethodGet,
			path:     list(url.Values{"search": {"mensah"}}),
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallList(t, kojo, efua),
		},
		{
			name:     "search code",
			method:   http.MethodGet,
			path:     list(url.Values{"search": {"stu-1001"}}),
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallList(t, kwesi),
		},
		{
			name:     "class",
			method:   http.MethodGet,
			path:     list(url.Values{"class_id": {strconv.Itoa(jhs.ID)}, "search": {"mensah"}}),
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallList(t, kojo),
		},
		{
			name:     "class malformed",
			method:   http.MethodGet,
			path:     list(url.Values{"class_id": {"lol"}}),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"class_id": "must be a number"}),
		},
		{name: "get", method: http.MethodGet, path: detail(kwesi.ID), token: token, wantCode: http.StatusOK, wantData: marchallObj(t, kwesi)},
		{
			name:     "get unknown",
			method:   http.MethodGet,
			path:     detail(999),
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "student not found"}),
		},
		{
			name:     "create duplicate code and unknown class",
			method:   http.MethodPost,
			path:     list(nil),
			token:    token,
			body:     marchallObj(t, student.NewStudent{Code: " STU-1001 ", Name: "Abena", ClassID: 999}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"code": student.ErrCodeExists.Error(), "class_id": "class does not exist"}),
		},
		{
			name:     "update duplicate code",
			method:   http.MethodPut,
			path:     detail(efua.ID),
			token:    token,
			body:     []byte(`{"code": "STU-1003"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"code": student.ErrCodeExists.Error()}),
		},
		{name: "delete", method: http.MethodDelete, path: detail(kojo.ID), token: token, wantCode: http.StatusNoContent},
		{
			name:     "deleted",
			method:   http.MethodGet,
			path:     detail(kojo.ID),
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "student not found"}),
		},
	}
	runHTTPTests(t, app, tests)

	t.Run("create", func(t *testing.T) {
		ns := student.NewStudent{Code: "STU-2001", Name: " Abena Owusu ", ClassID: basic.ID, ParentContact: "0244 000 000"}
		rec := app.do(newAuthRequest(http.MethodPost, list(nil), token, marchallObj(t, ns)))
		require.Equal(t, http.StatusCreated, rec.Code)

		stu, err := app.studentRepo.GetStudent(context.Background(), student.GetFilter{Code: "STU-2001"})
		require.NoError(t, err)
		assert.Equal(t, "Abena Owusu", stu.Name)
		assert.Equal(t, "Basic 4", stu.ClassName)
		checkCodeAndData(t, httpTest{wantCode: http.StatusCreated, wantData: marchallObj(t, stu)}, rec)
	})

	t.Run("update class", func(t *testing.T) {
		body := []byte(`{"class_id": ` + strconv.Itoa(basic.ID) + `}`)
		rec := app.do(newAuthRequest(http.MethodPut, detail(kwesi.ID), token, body))
		require.Equal(t, http.StatusOK, rec.Code)

		stu, err := app.studentRepo.GetStudent(context.Background(), student.GetFilter{ID: kwesi.ID})
		require.NoError(t, err)
		assert.Equal(t, basic.ID, stu.ClassID)
		assert.Equal(t, "Basic 4", stu.ClassName)
		assert.Equal(t, "STU-1001", stu.Code)
	})

	t.Run("qrcode", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodGet, detail(kwesi.ID)+"/qrcode?size=128", token))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

		img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, 128, img.Bounds().Dx())
	})
}
