package class

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/karo/core"
)

var (
	// errors
	ErrNotFound    = core.NewNotFoundError("class not found")
	ErrHasStudents = errors.New("class still has students")
)

type (
	Repository interface {
		CreateClass(ctx context.Context, cls Class) (Class, error)
		GetClass(ctx context.Context, id int) (Class, error)
		// QueryClasses returns all classes ordered by name.
		QueryClasses(ctx context.Context) ([]Class, error)
		UpdateClass(ctx context.Context, cls Class) (Class, error)
		// DeleteClass fails with ErrHasStudents while students still reference the class.
		DeleteClass(ctx context.Context, id int) error
	}

	Service interface {
		Create(ctx context.Context, nc NewClass) (Class, error)
		GetByID(ctx context.Context, id int) (Class, error)
		Query(ctx context.Context) ([]Class, error)
		Update(ctx context.Context, id int, uc UpdateClass) (Class, error)
		Delete(ctx context.Context, id int) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, nc NewClass) (Class, error) {
	cls := Class{
		Name:         nc.Name,
		FeedingFee:   DefaultFeedingFee,
		TransportFee: DefaultTransportFee,
		SchoolFee:    DefaultSchoolFee,
		CreatedAt:    time.Now().UTC(),
	}
	cls = UpdateClass{
		FeedingFee:   nc.FeedingFee,
		TransportFee: nc.TransportFee,
		SchoolFee:    nc.SchoolFee,
	}.Apply(cls)

	cls, err := svc.repo.CreateClass(ctx, cls)
	return cls, errors.Wrap(err, "creating class")
}

func (svc *service) GetByID(ctx context.Context, id int) (Class, error) {
	return svc.repo.GetClass(ctx, id)
}

func (svc *service) Query(ctx context.Context) ([]Class, error) {
	return svc.repo.QueryClasses(ctx)
}

func (svc *service) Update(ctx context.Context, id int, uc UpdateClass) (Class, error) {
	cls, err := svc.repo.GetClass(ctx, id)
	if err != nil {
		return Class{}, err
	}
	return svc.repo.UpdateClass(ctx, uc.Apply(cls))
}

func (svc *service) Delete(ctx context.Context, id int) error {
	if err := svc.repo.DeleteClass(ctx, id); err != nil {
		if errors.Cause(err) == ErrHasStudents {
			return core.NewValidationError(ErrHasStudents)
		}
		return err
	}
	return nil
}
