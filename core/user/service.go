package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/karo/core"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDeactivated = errors.New("account deactivated")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.FullName or User.Email.
		QueryUsers(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsers(ctx context.Context, ids ...string) error
	}

	Service interface {
		CheckEmailUniqueness(ctx context.Context, email string, exclUsers ...User) error
		// Authenticate is the sign in operation: it checks the credentials and stamps the last login.
		Authenticate(ctx context.Context, email, pwd string) (User, error)
		Create(ctx context.Context, nu NewUser) (User, error)
		Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		Update(ctx context.Context, id string, uu UpdateUser) (User, error)
		SetRole(ctx context.Context, id string, role Role) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		Delete(ctx context.Context, ids ...string) error
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, data ResetUserPassword) error
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		tokens  *tokenGenerator
	}
)

var _ Service = (*service)(nil)

func NewService(conf *core.Config, repo Repository, mailSvc core.EmailService) Service {
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		tokens:  newTokenGenerator(conf.SecretKey, conf.PasswordResetTimeoutDelta),
	}
}

func (svc *service) CheckEmailUniqueness(ctx context.Context, email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, exclUsers...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return errors.Wrap(err, "checking email uniqueness")
	}
	return nil
}

func (svc *service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}
	usr, err = svc.SetLastLogin(ctx, usr)
	return usr, errors.Wrap(err, "setting last login")
}

func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		ID:        uuid.New().String(),
		FullName:  nu.FullName,
		Email:     nu.Email,
		Role:      nu.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if nu.Password != "" {
		if err := usr.SetPassword(nu.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}

	if !usr.HasPassword() {
		if err = svc.sendTokenEmail(usr, "staff_invite", "You have been invited"); err != nil {
			return usr, errors.Wrap(err, "sending invitation")
		}
	}
	return usr, nil
}

func (svc *service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]User, error) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "full_name", Ascending: true}}
	}
	return svc.repo.QueryUsers(ctx, filter, ordering...)
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	usr.FullName = uu.FullName
	usr.Email = uu.Email
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	if uu.Password != "" {
		if err = usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) SetRole(ctx context.Context, id string, role Role) (User, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	usr.Role = role
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteUsers(ctx, ids...)
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return errors.Wrap(err, "finding user by email")
	}
	if !usr.IsActive {
		return ErrNotFound
	}
	return svc.sendTokenEmail(usr, "password_reset", "Password reset")
}

func (svc *service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	invalidErr := core.NewValidationError(errInvalidToken)

	id, err := decodeUID(data.UID)
	if err != nil {
		return invalidErr
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return invalidErr
		}
		return errors.Wrap(err, "finding user by id")
	}
	if err = svc.tokens.verify(usr, data.Token); err != nil {
		return core.NewValidationError(err)
	}

	if err = usr.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return errors.Wrap(err, "updating user")
}

func (svc *service) sendTokenEmail(usr User, template, subject string) error {
	token, err := svc.tokens.make(usr)
	if err != nil {
		return errors.Wrap(err, "making token")
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName, Address: usr.Email}},
		Subject:      subject,
		TemplateName: template,
		TemplateData: map[string]string{
			"Name":  usr.FullName,
			"Role":  string(usr.Role),
			"UID":   EncodeUID(usr),
			"Token": token,
		},
	})
	return nil
}
