package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/karo/core"
	"github.com/trezcool/karo/core/student"
	"github.com/trezcool/karo/core/user"
)

var (
	ErrNotEditable = core.NewValidationError(errors.New("only payments recorded today can be edited"))
	ErrForbidden   = errors.New("payment was recorded by another staff member")
)

// UpdateAmount is the correction of a payment amount.
type UpdateAmount struct {
	Amount decimal.Decimal `json:"amount" validate:"gte=0"`
}

func (ua UpdateAmount) Validate(validate *validator.Validate) error {
	return validate.Struct(ua)
}

// NewPayment is a payment entered by hand, typically a school fee instalment.
type NewPayment struct {
	StudentID int             `json:"student_id" validate:"required,gt=0"`
	Category  Category        `json:"category" validate:"required,feecategory"`
	Amount    decimal.Decimal `json:"amount" validate:"gt=0"`
}

func (np NewPayment) Validate(validate *validator.Validate) error {
	return validate.Struct(np)
}

// Ledger edits the payment records outside of scanning.
type Ledger struct {
	repo     Repository
	students student.Service
	loc      *time.Location
}

func NewLedger(conf *core.Config, repo Repository, students student.Service) *Ledger {
	return &Ledger{repo: repo, students: students, loc: conf.Location()}
}

func (l *Ledger) Today() string { return Today(l.loc) }

// Editable reports whether rec may still be edited: only the current day's records are.
func (l *Ledger) Editable(rec Record) bool { return rec.Date == l.Today() }

func (l *Ledger) GetByID(ctx context.Context, id int) (Record, error) {
	return l.repo.GetRecord(ctx, id)
}

// Query returns the filtered records, most recent first.
func (l *Ledger) Query(ctx context.Context, filter QueryFilter) ([]Record, error) {
	return l.repo.QueryRecords(ctx, filter)
}

// UpdateAmount corrects the amount of one of today's records.
// Staff may only correct their own records, admins any record.
func (l *Ledger) UpdateAmount(ctx context.Context, actor user.User, id int, amount decimal.Decimal) (Record, error) {
	rec, err := l.repo.GetRecord(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if !actor.Can(user.CapEditPayments) && rec.StaffID != actor.ID {
		return Record{}, ErrForbidden
	}
	if !l.Editable(rec) {
		return Record{}, ErrNotEditable
	}

	rec.Amount = amount
	rec.UpdatedAt = NowFunc().UTC()
	return l.repo.UpdateRecord(ctx, rec)
}

// Add records a payment dated today. Feeding and transport keep at most one payment
// per student and day.
func (l *Ledger) Add(ctx context.Context, actor user.User, np NewPayment) (Record, error) {
	stu, err := l.students.GetByID(ctx, np.StudentID)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return Record{}, core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "student does not exist"})
		}
		return Record{}, err
	}

	today := l.Today()
	dupErr := core.NewValidationError(errors.New(duplicateOutcome(stu, np.Category).Message))
	if np.Category.Daily() {
		exists, err := l.repo.RecordExists(ctx, stu.ID, np.Category, today)
		if err != nil {
			return Record{}, errors.Wrap(err, fmt.Sprintf("checking %s payment", np.Category))
		}
		if exists {
			return Record{}, dupErr
		}
	}

	now := NowFunc().UTC()
	rec, err := l.repo.CreateRecord(ctx, Record{
		StudentID: stu.ID,
		StaffID:   actor.ID,
		Category:  np.Category,
		Amount:    np.Amount,
		Date:      today,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		if errors.Cause(err) == ErrDuplicate {
			return Record{}, dupErr
		}
		return Record{}, err
	}
	return rec, nil
}
