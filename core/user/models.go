package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/karo/core"
)

// Role is the typed role of a staff member, resolved once at authentication.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// Capability is a named permission checked at each capability boundary.
type Capability string

const (
	CapScanPayments   Capability = "scan_payments"
	CapViewOwnRecords Capability = "view_own_records"
	CapEditPayments   Capability = "edit_payments"
	CapManageClasses  Capability = "manage_classes"
	CapManageStudents Capability = "manage_students"
	CapManageStaff    Capability = "manage_staff"
	CapViewReports    Capability = "view_reports"
)

var (
	AllRoles = []Role{RoleStaff, RoleAdmin}

	roleCapabilities = map[Role][]Capability{
		RoleStaff: {CapScanPayments, CapViewOwnRecords},
		RoleAdmin: {
			CapScanPayments, CapViewOwnRecords, CapEditPayments,
			CapManageClasses, CapManageStudents, CapManageStaff, CapViewReports,
		},
	}
)

func (r Role) IsValid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

// Can reports whether the role holds the capability.
func (r Role) Can(capability Capability) bool {
	for _, c := range roleCapabilities[r] {
		if c == capability {
			return true
		}
	}
	return false
}

func (r Role) Capabilities() []Capability {
	return roleCapabilities[r]
}

type User struct {
	ID           string    `json:"id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	if !u.HasPassword() {
		return bcrypt.ErrMismatchedHashAndPassword
	}
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// HasPassword is false for invited staff who have not chosen a password yet.
func (u *User) HasPassword() bool { return len(u.PasswordHash) > 0 }

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

func (u *User) Can(capability Capability) bool { return u.IsActive && u.Role.Can(capability) }

// NewUser contains information needed to invite a new staff member.
// Password is optional: without it an invitation to set one is emailed.
type NewUser struct {
	FullName        string `json:"full_name" validate:"required,max=255"`
	Email           string `json:"email" validate:"required,email,max=255"`
	Role            Role   `json:"role" validate:"required,role"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nu.FullName = core.CleanString(nu.FullName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	if nu.Role == "" {
		nu.Role = RoleStaff
	}

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	FullName        string `json:"full_name" validate:"omitempty,max=255"`
	Email           string `json:"email" validate:"omitempty,email,max=255"`
	IsActive        *bool  `json:"is_active"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc Service) error {
	if name := core.CleanString(uu.FullName); name != "" {
		uu.FullName = name
	} else {
		uu.FullName = origUsr.FullName
	}
	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, uu.Email, origUsr)
}

// SetUserRole promotes or demotes a staff member.
type SetUserRole struct {
	Role Role `json:"role" validate:"required,role"`
}

func (sr SetUserRole) Validate(validate *validator.Validate) error { return validate.Struct(sr) }

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type QueryFilter struct {
	Search   string   `query:"search"`
	Roles    []string `query:"role"`
	IsActive *bool    `query:"is_active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && len(qf.Roles) == 0 && qf.IsActive == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// GetFilter selects a single User. Only the first non-empty field is used.
type GetFilter struct {
	ID    string
	Email string
}
