package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/karo/apps/api/echo"
	"github.com/trezcool/karo/core"
	"github.com/trezcool/karo/core/class"
	"github.com/trezcool/karo/core/payment"
	"github.com/trezcool/karo/core/report"
	"github.com/trezcool/karo/core/student"
	"github.com/trezcool/karo/core/user"
	emailsvc "github.com/trezcool/karo/services/email"
	metricsvc "github.com/trezcool/karo/services/metrics"
	dummydb "github.com/trezcool/karo/storage/database/dummy"
	"github.com/trezcool/karo/testutil"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

type testApp struct {
	conf        *core.Config
	server      *echoapi.Server
	db          *dummydb.DB
	userRepo    user.Repository
	classRepo   class.Repository
	studentRepo student.Repository
	paymentRepo payment.Repository
	sessions    *payment.Sessions
	mailSvc     *emailsvc.ServiceMock
	metrics     *metricsvc.Collector
}

func setup(t *testing.T) *testApp {
	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)
	validate, translator := testutil.NewValidator()
	core.ParseEmailTemplates(logger)

	db := dummydb.Open()
	app := &testApp{
		conf:        conf,
		db:          db,
		userRepo:    dummydb.NewUserRepository(db),
		classRepo:   dummydb.NewClassRepository(db),
		studentRepo: dummydb.NewStudentRepository(db),
		paymentRepo: dummydb.NewPaymentRepository(db),
		sessions:    payment.NewSessions(conf),
		mailSvc:     emailsvc.NewServiceMock(conf, logger),
	}
	app.metrics = metricsvc.NewCollector(app.sessions.Len)

	userSvc := user.NewService(conf, app.userRepo, app.mailSvc)
	studentSvc := student.NewService(app.studentRepo, app.classRepo)

	srv, err := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		UserSvc:    userSvc,
		ClassSvc:   class.NewService(app.classRepo),
		StudentSvc: studentSvc,
		Recorder:   payment.NewRecorder(conf, logger, studentSvc, app.paymentRepo),
		Sessions:   app.sessions,
		Ledger:     payment.NewLedger(conf, app.paymentRepo, studentSvc),
		Reports:    report.NewService(conf, app.classRepo, app.studentRepo, app.userRepo, app.paymentRepo),
		Metrics:    app.metrics,
	})
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	app.server = srv
	return app
}

func (app *testApp) createUser(t *testing.T, name, email string, role user.Role, isActive bool) user.User {
	return testutil.CreateUser(t, app.userRepo, name, email, testutil.Password, role, isActive)
}

func (app *testApp) getToken(t *testing.T, usr user.User) string {
	token, err := echoapi.GenerateToken(app.conf, echoapi.GetUserClaims(app.conf, usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

// do serves the request and returns the recorder.
func (app *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	return rec
}

func newAuthRequest(method, path, token string, data ...[]byte) *http.Request {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func newRequest(method, path string, data ...[]byte) *http.Request {
	return newAuthRequest(method, path, "", data...)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app *testApp, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(newAuthRequest(tt.method, tt.path, tt.token, tt.body))
			checkCodeAndData(t, tt, rec)
		})
	}
}
