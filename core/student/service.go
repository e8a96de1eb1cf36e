package student

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/karo/core"
	"github.com/trezcool/karo/core/class"
)

var (
	// errors
	ErrNotFound   = core.NewNotFoundError("student not found")
	ErrCodeExists = errors.New("a student with this code already exists")
	errNoClass    = "class does not exist"
)

type (
	Repository interface {
		CheckCodeUniqueness(ctx context.Context, code string) error
		CreateStudent(ctx context.Context, stu Student) (Student, error)
		// GetStudent returns the Student with its ClassName set.
		GetStudent(ctx context.Context, filter GetFilter) (Student, error)
		// QueryStudents returns the filtered students, most recent (highest ID) first.
		QueryStudents(ctx context.Context, filter QueryFilter) ([]Student, error)
		UpdateStudent(ctx context.Context, stu Student) (Student, error)
		DeleteStudent(ctx context.Context, id int) error
	}

	Service interface {
		// CheckReferences validates that code is unused and classID exists; zero values are skipped.
		CheckReferences(ctx context.Context, code string, classID int) error
		Create(ctx context.Context, ns NewStudent) (Student, error)
		GetByID(ctx context.Context, id int) (Student, error)
		GetByCode(ctx context.Context, code string) (Student, error)
		Query(ctx context.Context, filter QueryFilter) ([]Student, error)
		Update(ctx context.Context, id int, us UpdateStudent) (Student, error)
		Delete(ctx context.Context, id int) error
	}

	service struct {
		repo      Repository
		classRepo class.Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, classRepo class.Repository) Service {
	return &service{repo: repo, classRepo: classRepo}
}

func (svc *service) CheckReferences(ctx context.Context, code string, classID int) error {
	var fldErrs []core.FieldError
	if code != "" {
		if err := svc.repo.CheckCodeUniqueness(ctx, code); err != nil {
			if err != ErrCodeExists {
				return errors.Wrap(err, "checking code uniqueness")
			}
			fldErrs = append(fldErrs, core.FieldError{Field: "code", Error: err.Error()})
		}
	}
	if classID != 0 {
		if _, err := svc.classRepo.GetClass(ctx, classID); err != nil {
			if errors.Cause(err) != class.ErrNotFound {
				return errors.Wrap(err, "finding class")
			}
			fldErrs = append(fldErrs, core.FieldError{Field: "class_id", Error: errNoClass})
		}
	}
	if len(fldErrs) > 0 {
		return core.NewValidationError(nil, fldErrs...)
	}
	return nil
}

func (svc *service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	stu := Student{
		Code:          ns.Code,
		Name:          ns.Name,
		ClassID:       ns.ClassID,
		ParentContact: ns.ParentContact,
		CreatedAt:     time.Now().UTC(),
	}
	stu, err := svc.repo.CreateStudent(ctx, stu)
	if err != nil {
		return Student{}, errors.Wrap(err, "creating student")
	}
	return svc.GetByID(ctx, stu.ID)
}

func (svc *service) GetByID(ctx context.Context, id int) (Student, error) {
	return svc.repo.GetStudent(ctx, GetFilter{ID: id})
}

func (svc *service) GetByCode(ctx context.Context, code string) (Student, error) {
	code = core.CleanString(code)
	if code == "" {
		return Student{}, ErrNotFound
	}
	return svc.repo.GetStudent(ctx, GetFilter{Code: code})
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]Student, error) {
	filter.Clean()
	return svc.repo.QueryStudents(ctx, filter)
}

func (svc *service) Update(ctx context.Context, id int, us UpdateStudent) (Student, error) {
	stu, err := svc.GetByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if _, err = svc.repo.UpdateStudent(ctx, us.Apply(stu)); err != nil {
		return Student{}, errors.Wrap(err, "updating student")
	}
	return svc.GetByID(ctx, id)
}

func (svc *service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteStudent(ctx, id)
}
