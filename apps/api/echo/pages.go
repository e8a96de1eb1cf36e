package echoapi

import (
	"html/template"
	"io"
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/karo/core"
	"github.com/trezcool/karo/core/payment"
	"github.com/trezcool/karo/core/user"
	appfs "github.com/trezcool/karo/fs"
	metricsvc "github.com/trezcool/karo/services/metrics"
)

const dashboardPath = "/dashboard"

var pageNames = []string{"login", "dashboard"}

type pageRenderer struct {
	pages map[string]*template.Template
}

var _ echo.Renderer = (*pageRenderer)(nil)

func newPageRenderer() (*pageRenderer, error) {
	r := &pageRenderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		tmpl, err := template.ParseFS(appfs.FS, "templates/pages/_base.gohtml", "templates/pages/"+name+".gohtml")
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s page", name)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

func (r *pageRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return errors.Errorf("unknown page %q", name)
	}
	return tmpl.ExecuteTemplate(w, "base", data)
}

// Tool is a dashboard entry.
type Tool struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// dashboardTools lists the tools the role has the capabilities for.
func dashboardTools(role user.Role, today string) []Tool {
	sameDay := url.Values{"from": {today}, "to": {today}}.Encode()
	catalog := []struct {
		capability user.Capability
		tool       Tool
	}{
		{user.CapViewReports, Tool{Name: "School Fees Report", Path: "/v1/reports/school"}},
		{user.CapViewReports, Tool{Name: "Feeding Fees Report", Path: "/v1/reports/feeding"}},
		{user.CapViewReports, Tool{Name: "Transport Fees Report", Path: "/v1/reports/transport"}},
		{user.CapViewReports, Tool{Name: "Attendance", Path: "/v1/reports/feeding?" + sameDay}},
		{user.CapManageStudents, Tool{Name: "Manage Students", Path: "/v1/students"}},
		{user.CapManageClasses, Tool{Name: "Manage Classes", Path: "/v1/classes"}},
		{user.CapManageStaff, Tool{Name: "Manage Staff", Path: "/v1/staff"}},
		{user.CapScanPayments, Tool{Name: "Scan Student QR", Path: "/v1/scans"}},
		{user.CapViewOwnRecords, Tool{Name: "View Records", Path: "/v1/payments/mine"}},
	}

	tools := make([]Tool, 0, len(catalog))
	for _, entry := range catalog {
		if role.Can(entry.capability) {
			tools = append(tools, entry.tool)
		}
	}
	return tools
}

type pageData struct {
	AppName string
	Title   string
	User    *Claims
	Tools   []Tool
	Error   string
	Email   string
}

type pagesApp struct {
	conf     *core.Config
	svc      user.Service
	validate *validator.Validate
	metrics  *metricsvc.Collector
}

func registerPages(app *echo.Echo, deps ServerDeps) {
	p := pagesApp{
		conf:     deps.Conf,
		svc:      deps.UserSvc,
		validate: deps.Validate,
		metrics:  deps.Metrics,
	}
	guard := sessionGuard(p.conf)

	app.GET("/", p.home, guard)
	app.GET(loginPath, p.loginForm, guard)
	app.POST(loginPath, p.login, guard)
	app.GET(dashboardPath, p.dashboard, guard)
	app.POST("/logout", p.logout)
}

func (p *pagesApp) home(ctx echo.Context) error {
	return ctx.Redirect(http.StatusFound, dashboardPath)
}

func (p *pagesApp) loginForm(ctx echo.Context) error {
	return ctx.Render(http.StatusOK, "login", pageData{AppName: p.conf.AppName, Title: "Sign in"})
}

func (p *pagesApp) login(ctx echo.Context) error {
	data := pageData{AppName: p.conf.AppName, Title: "Sign in"}

	var form LoginRequest
	if err := ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	data.Email = form.Email
	if err := form.Validate(p.validate); err != nil {
		data.Error = "Email and password are required."
		return ctx.Render(http.StatusBadRequest, "login", data)
	}

	_, token, err := signIn(ctx, p.conf, p.svc, form.Email, form.Password)
	if p.metrics != nil {
		p.metrics.LoggedIn(err == nil)
	}
	if err != nil {
		if herr, ok := err.(*echo.HTTPError); ok {
			data.Error = loginErrorMessage(herr)
			return ctx.Render(herr.Code, "login", data)
		}
		return err
	}

	setTokenCookie(ctx, p.conf, token)
	return ctx.Redirect(http.StatusFound, dashboardPath)
}

// loginErrorMessage turns a sign-in failure into the sentence shown on the login form.
func loginErrorMessage(herr *echo.HTTPError) string {
	msg, ok := herr.Message.(string)
	if !ok || msg == "" {
		msg = http.StatusText(herr.Code)
	}
	if msg == "" {
		msg = "unable to sign in"
	}
	return core.Capitalize(msg) + "."
}

func (p *pagesApp) dashboard(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return ctx.Redirect(http.StatusFound, loginPath)
	}
	return ctx.Render(http.StatusOK, "dashboard", pageData{
		AppName: p.conf.AppName,
		Title:   "Dashboard",
		User:    &claims,
		Tools:   dashboardTools(claims.Role, payment.Today(p.conf.Location())),
	})
}

func (p *pagesApp) logout(ctx echo.Context) error {
	clearTokenCookie(ctx, p.conf)
	return ctx.Redirect(http.StatusFound, loginPath)
}

type DashboardResponse struct {
	User  user.User `json:"user"`
	Tools []Tool    `json:"tools"`
}

func registerDashboardAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	conf, svc := deps.Conf, deps.UserSvc
	g.GET("/dashboard", func(ctx echo.Context) error {
		usr, err := getContextUser(ctx, svc)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, DashboardResponse{
			User:  usr,
			Tools: dashboardTools(usr.Role, payment.Today(conf.Location())),
		})
	}, jwt)
}
