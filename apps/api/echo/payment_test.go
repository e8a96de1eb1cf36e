package echoapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/karo/core/payment"
	"github.com/trezcool/karo/core/report"
	"github.com/trezcool/karo/core/user"
	"github.com/trezcool/karo/testutil"
)

func Test_paymentApi(t *testing.T) {
	testutil.FreezeTime(t, time.Date(2024, 3, 15, 10, 30, 0, 0, time.Local))
	today, yesterday := "2024-03-15", "2024-03-14"

	app := setup(t)
	admin := app.createUser(t, "Admin", "admin@test.gh", user.RoleAdmin, true)
	ama := app.createUser(t, "Ama Staff", "ama@test.gh", user.RoleStaff, true)
	kofi := app.createUser(t, "Kofi Staff", "kofi@test.gh", user.RoleStaff, true)
	adminToken, amaToken := app.getToken(t, admin), app.getToken(t, ama)

	jhs := testutil.CreateClass(t, app.classRepo, "JHS 1")
	kwesi := testutil.CreateStudent(t, app.studentRepo, "STU-1001", "Kwesi Appiah", jhs)
	efua := testutil.CreateStudent(t, app.studentRepo, "STU-1002", "Efua Mensah", jhs)

	own := testutil.CreateRecord(t, app.paymentRepo, kwesi, ama, payment.Feeding, 6, today)
	old := testutil.CreateRecord(t, app.paymentRepo, kwesi, ama, payment.Transport, 6, yesterday)
	others := testutil.CreateRecord(t, app.paymentRepo, efua, kofi, payment.Feeding, 6, today)
	testutil.CreateRecord(t, app.paymentRepo, efua, ama, payment.School, 100, today)

	detail := func(id int) string { return "/v1/payments/" + strconv.Itoa(id) }

	t.Run("mine", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodGet, "/v1/payments/mine", amaToken))
		require.Equal(t, http.StatusOK, rec.Code)

		var rows []report.LedgerRow
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
		require.Len(t, rows, 2)

		assert.Equal(t, own.ID, rows[0].ID)
		assert.True(t, rows[0].Editable)
		assert.Equal(t, "Kwesi Appiah", rows[0].StudentName)
		assert.Equal(t, "JHS 1", rows[0].ClassName)
		assert.Equal(t, "Ama Staff", rows[0].StaffName)
		assert.True(t, rows[0].Balance.IsZero())

		assert.Equal(t, old.ID, rows[1].ID)
		assert.False(t, rows[1].Editable)
	})

	tests := []httpTest{
		{name: "get own", method: http.MethodGet, path: detail(own.ID), token: amaToken, wantCode: http.StatusOK, wantData: marchallObj(t, own)},
		{
			name:     "get other staff's",
			method:   http.MethodGet,
			path:     detail(others.ID),
			token:    amaToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{name: "admin gets any", method: http.MethodGet, path: detail(others.ID), token: adminToken, wantCode: http.StatusOK, wantData: marchallObj(t, others)},
		{
			name:     "get unknown",
			method:   http.MethodGet,
			path:     detail(999),
			token:    adminToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "payment not found"}),
		},
		{
			name:     "update yesterday's",
			method:   http.MethodPut,
			path:     detail(old.ID),
			token:    amaToken,
			body:     []byte(`{"amount": "5"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "only payments recorded today can be edited"}),
		},
		{
			name:     "update other staff's",
			method:   http.MethodPut,
			path:     detail(others.ID),
			token:    amaToken,
			body:     []byte(`{"amount": "5"}`),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: payment.ErrForbidden.Error()}),
		},
		{
			name:     "update negative",
			method:   http.MethodPut,
			path:     detail(own.ID),
			token:    amaToken,
			body:     []byte(`{"amount": -1}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "staff cannot add",
			method:   http.MethodPost,
			path:     "/v1/payments",
			token:    amaToken,
			body:     []byte(`{"student_id": 1, "category": "school", "amount": "50"}`),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "add unknown student",
			method:   http.MethodPost,
			path:     "/v1/payments",
			token:    adminToken,
			body:     []byte(`{"student_id": 999, "category": "school", "amount": "50"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"student_id": "student does not exist"}),
		},
		{
			name:     "add invalid category",
			method:   http.MethodPost,
			path:     "/v1/payments",
			token:    adminToken,
			body:     []byte(`{"student_id": 1, "category": "books", "amount": "50"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "add duplicate daily fee",
			method:   http.MethodPost,
			path:     "/v1/payments",
			token:    adminToken,
			body:     []byte(`{"student_id": ` + strconv.Itoa(kwesi.ID) + `, "category": "feeding", "amount": "6"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "Kwesi Appiah already paid feeding fees today."}),
		},
	}
	runHTTPTests(t, app, tests)

	t.Run("update own", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodPut, detail(own.ID), amaToken, []byte(`{"amount": "5.5"}`)))
		require.Equal(t, http.StatusOK, rec.Code)

		got, err := app.paymentRepo.GetRecord(context.Background(), own.ID)
		require.NoError(t, err)
		assert.True(t, got.Amount.Equal(decimal.RequireFromString("5.5")))
		assert.Equal(t, today, got.Date)
		assert.Equal(t, ama.ID, got.StaffID)
	})

	t.Run("admin updates any", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodPut, detail(others.ID), adminToken, []byte(`{"amount": "0"}`)))
		require.Equal(t, http.StatusOK, rec.Code)

		got, err := app.paymentRepo.GetRecord(context.Background(), others.ID)
		require.NoError(t, err)
		assert.True(t, got.Amount.IsZero())
		assert.Equal(t, kofi.ID, got.StaffID)
	})

	t.Run("add school instalment", func(t *testing.T) {
		body := []byte(`{"student_id": ` + strconv.Itoa(efua.ID) + `, "category": "school", "amount": "150.50"}`)
		rec := app.do(newAuthRequest(http.MethodPost, "/v1/payments", adminToken, body))
		require.Equal(t, http.StatusCreated, rec.Code)

		var got payment.Record
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, efua.ID, got.StudentID)
		assert.Equal(t, admin.ID, got.StaffID)
		assert.Equal(t, payment.School, got.Category)
		assert.Equal(t, today, got.Date)
		assert.True(t, got.Amount.Equal(decimal.RequireFromString("150.5")))
	})
}
