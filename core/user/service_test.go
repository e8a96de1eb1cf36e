package user_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/karo/core"
	"github.com/trezcool/karo/core/user"
	emailsvc "github.com/trezcool/karo/services/email"
	dummydb "github.com/trezcool/karo/storage/database/dummy"
	"github.com/trezcool/karo/testutil"
)

type testService struct {
	svc     user.Service
	repo    user.Repository
	mailSvc *emailsvc.ServiceMock
}

func setup(t *testing.T) testService {
	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)
	core.ParseEmailTemplates(logger)

	repo := dummydb.NewUserRepository(dummydb.Open())
	mailSvc := emailsvc.NewServiceMock(conf, logger)
	return testService{
		svc:     user.NewService(conf, repo, mailSvc),
		repo:    repo,
		mailSvc: mailSvc,
	}
}

func TestService_Authenticate(t *testing.T) {
	ts := setup(t)
	ctx := context.Background()
	testutil.CreateUser(t, ts.repo, "Ama", "ama@test.gh", testutil.Password, user.RoleStaff, true)
	testutil.CreateUser(t, ts.repo, "Kofi", "kofi@test.gh", testutil.Password, user.RoleStaff, false)
	testutil.CreateUser(t, ts.repo, "Esi", "esi@test.gh", "", user.RoleStaff, true)

	tests := []struct {
		name    string
		email   string
		pwd     string
		wantErr error
	}{
		{name: "unknown", email: "nobody@test.gh", pwd: testutil.Password, wantErr: user.ErrInvalidCredentials},
		{name: "wrong password", email: "ama@test.gh", pwd: "lol", wantErr: user.ErrInvalidCredentials},
		{name: "invited without password", email: "esi@test.gh", pwd: "", wantErr: user.ErrInvalidCredentials},
		{name: "deactivated", email: "kofi@test.gh", pwd: testutil.Password, wantErr: user.ErrAccountDeactivated},
		{name: "ok", email: " AMA@test.gh", pwd: testutil.Password},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := ts.svc.Authenticate(ctx, tt.email, tt.pwd)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ama@test.gh", usr.Email)
			assert.False(t, usr.LastLogin.IsZero())
		})
	}
}

func TestService_Create(t *testing.T) {
	ts := setup(t)
	ctx := context.Background()

	t.Run("invite", func(t *testing.T) {
		usr, err := ts.svc.Create(ctx, user.NewUser{FullName: "Esi", Email: "esi@test.gh", Role: user.RoleStaff})
		require.NoError(t, err)
		assert.NotEmpty(t, usr.ID)
		assert.True(t, usr.IsActive)
		assert.False(t, usr.HasPassword())

		sent := ts.mailSvc.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, "staff_invite", sent[0].TemplateName)
		assert.Equal(t, "esi@test.gh", sent[0].To[0].Address)
	})

	t.Run("with password", func(t *testing.T) {
		ts.mailSvc.Reset()
		usr, err := ts.svc.Create(ctx, user.NewUser{FullName: "Kwame", Email: "kwame@test.gh", Role: user.RoleAdmin, Password: "Str0ng.Pass!"})
		require.NoError(t, err)
		assert.NoError(t, usr.CheckPassword("Str0ng.Pass!"))
		assert.Empty(t, ts.mailSvc.SentMessages())
	})

	t.Run("email uniqueness", func(t *testing.T) {
		err := ts.svc.CheckEmailUniqueness(ctx, "esi@test.gh")
		vErr, ok := errors.Cause(err).(*core.ValidationError)
		require.True(t, ok, "unexpected error: %v", err)
		assert.Equal(t, []core.FieldError{{Field: "email", Error: user.ErrEmailExists.Error()}}, vErr.Fields)
	})
}

func TestNewUser_Validate(t *testing.T) {
	ts := setup(t)
	validate, _ := testutil.NewValidator()

	nu := user.NewUser{FullName: "  Esi Owusu ", Email: " ESI@Test.gh "}
	require.NoError(t, nu.Validate(context.Background(), validate, ts.svc))
	assert.Equal(t, "Esi Owusu", nu.FullName)
	assert.Equal(t, "esi@test.gh", nu.Email)
	assert.Equal(t, user.RoleStaff, nu.Role)
}

func TestService_UpdateAndRole(t *testing.T) {
	ts := setup(t)
	ctx := context.Background()
	ama := testutil.CreateUser(t, ts.repo, "Ama", "ama@test.gh", testutil.Password, user.RoleStaff, true)

	inactive := false
	usr, err := ts.svc.Update(ctx, ama.ID, user.UpdateUser{FullName: "Ama Mensah", Email: ama.Email, IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "Ama Mensah", usr.FullName)
	assert.False(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword(testutil.Password), "password is kept")

	usr, err = ts.svc.SetRole(ctx, ama.ID, user.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, usr.Role)

	_, err = ts.svc.SetRole(ctx, "unknown", user.RoleAdmin)
	assert.True(t, core.IsNotFound(err))
}

func TestService_PasswordReset(t *testing.T) {
	ts := setup(t)
	ctx := context.Background()
	ama := testutil.CreateUser(t, ts.repo, "Ama", "ama@test.gh", testutil.Password, user.RoleStaff, true)
	testutil.CreateUser(t, ts.repo, "Kofi", "kofi@test.gh", testutil.Password, user.RoleStaff, false)

	assert.True(t, core.IsNotFound(ts.svc.RequestPasswordReset(ctx, "nobody@test.gh")))
	assert.Equal(t, user.ErrNotFound, ts.svc.RequestPasswordReset(ctx, "kofi@test.gh"))
	assert.Empty(t, ts.mailSvc.SentMessages())

	require.NoError(t, ts.svc.RequestPasswordReset(ctx, "ama@test.gh"))
	sent := ts.mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "password_reset", sent[0].TemplateName)
	data := sent[0].TemplateData.(map[string]string)

	newPwd := "N3w.Secret!"
	reset := func(uid, token string) error {
		return ts.svc.ResetPassword(ctx, user.ResetUserPassword{UID: uid, Token: token, Password: newPwd, PasswordConfirm: newPwd})
	}

	assert.Error(t, reset("lol", data["Token"]), "invalid uid")
	assert.Error(t, reset(data["UID"], "lol"), "invalid token")
	require.NoError(t, reset(data["UID"], data["Token"]))

	usr, err := ts.repo.GetUser(ctx, user.GetFilter{ID: ama.ID})
	require.NoError(t, err)
	assert.NoError(t, usr.CheckPassword(newPwd))

	// the token dies with the password it was made for
	assert.Error(t, reset(data["UID"], data["Token"]))
}
