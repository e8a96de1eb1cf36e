package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/karo/core"
	"github.com/trezcool/karo/core/student"
	"github.com/trezcool/karo/core/user"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("payment not found")
	ErrDuplicate       = errors.New("payment already recorded for this day")
	ErrStudentNotFound = core.NewNotFoundError("Student not found")
	ErrMissingActor    = core.NewValidationError(errors.New("Staff not authenticated or student missing"))
	ErrInvalidCategory = core.NewValidationError(errors.New("only feeding and transport fees can be paid by scan"))
	ErrRecordFailed    = errors.New("Failed to record payment")
)

type Repository interface {
	RecordExists(ctx context.Context, studentID int, cat Category, date string) (bool, error)
	// CreateRecord fails with ErrDuplicate when a daily category already has a record
	// for the student on that date.
	CreateRecord(ctx context.Context, rec Record) (Record, error)
	GetRecord(ctx context.Context, id int) (Record, error)
	// QueryRecords returns the filtered records, most recent date first.
	QueryRecords(ctx context.Context, filter QueryFilter) ([]Record, error)
	UpdateRecord(ctx context.Context, rec Record) (Record, error)
}

// Recorder turns scanned codes into feeding and transport payments.
type Recorder struct {
	students student.Service
	repo     Repository
	logger   core.Logger
	loc      *time.Location
}

func NewRecorder(conf *core.Config, logger core.Logger, students student.Service, repo Repository) *Recorder {
	return &Recorder{
		students: students,
		repo:     repo,
		logger:   logger,
		loc:      conf.Location(),
	}
}

// Today is the calendar date payments are recorded on.
func (r *Recorder) Today() string { return Today(r.loc) }

// ResolveStudent looks up the student a scanned code belongs to.
func (r *Recorder) ResolveStudent(ctx context.Context, code string) (student.Student, error) {
	stu, err := r.students.GetByCode(ctx, code)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return student.Student{}, ErrStudentNotFound
		}
		return student.Student{}, errors.Wrap(err, "finding student by code")
	}
	return stu, nil
}

// Pay records today's fixed-amount payment of cat for stu, unless one already exists.
// The existence check and the insert are not atomic: a concurrent insert is caught by
// the storage uniqueness guarantee and reported as a duplicate as well.
func (r *Recorder) Pay(ctx context.Context, staff user.User, stu student.Student, cat Category) (Outcome, error) {
	if staff.ID == "" || stu.ID == 0 {
		return Outcome{}, ErrMissingActor
	}
	if !cat.Daily() {
		return Outcome{}, ErrInvalidCategory
	}

	today := r.Today()
	exists, err := r.repo.RecordExists(ctx, stu.ID, cat, today)
	if err != nil {
		r.logger.Error(fmt.Sprintf("checking %s payment: %v", cat, err), err, staff)
		return Outcome{}, ErrRecordFailed
	}
	if exists {
		return duplicateOutcome(stu, cat), nil
	}

	now := NowFunc().UTC()
	rec, err := r.repo.CreateRecord(ctx, Record{
		StudentID: stu.ID,
		StaffID:   staff.ID,
		Category:  cat,
		Amount:    ScanAmount,
		Date:      today,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		if errors.Cause(err) == ErrDuplicate {
			return duplicateOutcome(stu, cat), nil
		}
		r.logger.Error(fmt.Sprintf("recording %s payment: %v", cat, err), err, staff)
		return Outcome{}, ErrRecordFailed
	}

	return Outcome{
		Status:  StatusRecorded,
		Message: fmt.Sprintf("%s fee of %s %s recorded successfully!", cat.Label(), Currency, rec.Amount),
		Record:  &rec,
	}, nil
}

// Decode feeds a decoded QR payload to the session and resolves the student on acceptance.
// It reports whether the payload was accepted.
func (r *Recorder) Decode(ctx context.Context, sess *ScanSession, code string) (bool, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	defer sess.touch()

	accepted, err := sess.accept(code)
	if err != nil || !accepted {
		return accepted, err
	}

	stu, err := r.ResolveStudent(ctx, sess.lastCode)
	if err != nil {
		if err == ErrStudentNotFound {
			sess.state = StateStudentNotFound
			sess.message = err.Error()
			return true, nil
		}
		// let the operator scan again
		sess.start()
		return true, err
	}
	sess.student = &stu
	sess.state = StateStudentResolved
	return true, nil
}

// PaySession pays cat for the student resolved in sess. The student stays selected
// whatever the outcome, so that the other category can be paid next.
func (r *Recorder) PaySession(ctx context.Context, staff user.User, sess *ScanSession, cat Category) (Outcome, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	defer sess.touch()

	if sess.student == nil {
		return Outcome{}, ErrMissingActor
	}

	outcome, err := r.Pay(ctx, staff, *sess.student, cat)
	switch {
	case err == ErrRecordFailed:
		outcome = Outcome{Status: StatusFailed, Message: err.Error()}
		sess.state = StatePaymentFailed
	case err != nil:
		return Outcome{}, err
	case outcome.Status == StatusDuplicate:
		sess.state = StatePaymentDuplicate
	default:
		sess.state = StatePaymentRecorded
	}
	sess.outcome = &outcome
	sess.message = outcome.Message
	return outcome, nil
}

func duplicateOutcome(stu student.Student, cat Category) Outcome {
	return Outcome{
		Status:  StatusDuplicate,
		Message: fmt.Sprintf("%s already paid %s fees today.", stu.Name, cat),
	}
}
