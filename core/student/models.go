package student

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/karo/core"
)

// Student is identified on the field by Code, the value printed in their QR code.
type Student struct {
	ID            int       `json:"id"`
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	ClassID       int       `json:"class_id"`
	ClassName     string    `json:"class_name"`
	ParentContact string    `json:"parent_contact"`
	CreatedAt     time.Time `json:"created_at"` // UTC
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	Code          string `json:"code" validate:"required,max=64"`
	Name          string `json:"name" validate:"required,max=255"`
	ClassID       int    `json:"class_id" validate:"required,gt=0"`
	ParentContact string `json:"parent_contact" validate:"omitempty,max=64"`
}

func (ns *NewStudent) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	ns.Code = core.CleanString(ns.Code)
	ns.Name = core.CleanString(ns.Name)
	ns.ParentContact = core.CleanString(ns.ParentContact)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckReferences(ctx, ns.Code, ns.ClassID)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
type UpdateStudent struct {
	Code          *string `json:"code" validate:"omitempty,min=1,max=64"`
	Name          *string `json:"name" validate:"omitempty,min=1,max=255"`
	ClassID       *int    `json:"class_id" validate:"omitempty,gt=0"`
	ParentContact *string `json:"parent_contact" validate:"omitempty,max=64"`
}

func (us *UpdateStudent) Validate(ctx context.Context, origStu Student, validate *validator.Validate, svc Service) error {
	for _, fld := range []*string{us.Code, us.Name, us.ParentContact} {
		if fld != nil {
			*fld = core.CleanString(*fld)
		}
	}
	if err := validate.Struct(us); err != nil {
		return err
	}

	code, classID := "", 0
	if us.Code != nil && *us.Code != origStu.Code {
		code = *us.Code
	}
	if us.ClassID != nil && *us.ClassID != origStu.ClassID {
		classID = *us.ClassID
	}
	return svc.CheckReferences(ctx, code, classID)
}

// Apply returns stu with the provided fields changed.
func (us UpdateStudent) Apply(stu Student) Student {
	if us.Code != nil {
		stu.Code = *us.Code
	}
	if us.Name != nil {
		stu.Name = *us.Name
	}
	if us.ClassID != nil {
		stu.ClassID = *us.ClassID
	}
	if us.ParentContact != nil {
		stu.ParentContact = *us.ParentContact
	}
	return stu
}

type QueryFilter struct {
	// Search does a case-insensitive match on one of Student.Name, Student.ParentContact or Student.Code.
	Search  string `query:"search"`
	ClassID int    `query:"class_id"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// GetFilter selects a single Student. Only the first non-empty field is used.
type GetFilter struct {
	ID   int
	Code string
}
