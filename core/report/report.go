package report

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/karo/core"
	"github.com/trezcool/karo/core/class"
	"github.com/trezcool/karo/core/payment"
	"github.com/trezcool/karo/core/student"
	"github.com/trezcool/karo/core/user"
)

// PaymentStatus of a student in a fee category.
type PaymentStatus string

const (
	StatusPaid  PaymentStatus = "paid"
	StatusOwing PaymentStatus = "owing"
)

// Filter narrows a report. Dates are inclusive YYYY-MM-DD bounds.
type Filter struct {
	ClassID int    `query:"class_id"`
	From    string `query:"from"`
	To      string `query:"to"`
	Status  string `query:"status"` // all, paid or owing; Summary only
}

func (f *Filter) Validate() error {
	var fldErrs []core.FieldError
	var from, to time.Time
	var err error

	if f.From != "" {
		if from, err = payment.ParseDate(f.From); err != nil {
			fldErrs = append(fldErrs, core.FieldError{Field: "from", Error: "must be a YYYY-MM-DD date"})
		}
	}
	if f.To != "" {
		if to, err = payment.ParseDate(f.To); err != nil {
			fldErrs = append(fldErrs, core.FieldError{Field: "to", Error: "must be a YYYY-MM-DD date"})
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		fldErrs = append(fldErrs, core.FieldError{Field: "to", Error: "must not be before from"})
	}
	switch PaymentStatus(f.Status) {
	case "", "all", StatusPaid, StatusOwing:
	default:
		fldErrs = append(fldErrs, core.FieldError{Field: "status", Error: "must be one of: all, paid, owing"})
	}

	if len(fldErrs) > 0 {
		return core.NewValidationError(nil, fldErrs...)
	}
	return nil
}

// Balance is what remains owed on fee after the given records.
func Balance(fee decimal.Decimal, records []payment.Record) decimal.Decimal {
	paid := decimal.Zero
	for _, rec := range records {
		paid = paid.Add(rec.Amount)
	}
	return fee.Sub(paid)
}

// Fee returns the class fee for cat.
func Fee(cls class.Class, cat payment.Category) decimal.Decimal {
	switch cat {
	case payment.Feeding:
		return cls.FeedingFee
	case payment.Transport:
		return cls.TransportFee
	default:
		return cls.SchoolFee
	}
}

// LedgerRow is one payment record with its student, class and staff member.
type LedgerRow struct {
	ID          int              `json:"id"`
	StudentID   int              `json:"student_id"`
	StudentName string           `json:"student_name"`
	StudentCode string           `json:"student_code"`
	ClassID     int              `json:"class_id"`
	ClassName   string           `json:"class_name"`
	Category    payment.Category `json:"category"`
	Amount      decimal.Decimal  `json:"amount"`
	ClassFee    decimal.Decimal  `json:"class_fee"`
	Balance     decimal.Decimal  `json:"balance"`
	Date        string           `json:"date"`
	StaffID     string           `json:"staff_id"`
	StaffName   string           `json:"staff_name"`
	StaffRole   user.Role        `json:"staff_role"`
	Editable    bool             `json:"editable"`
}

// StudentSummary aggregates a student's payments in one category.
type StudentSummary struct {
	StudentID   int              `json:"student_id"`
	StudentName string           `json:"student_name"`
	StudentCode string           `json:"student_code"`
	ClassID     int              `json:"class_id"`
	ClassName   string           `json:"class_name"`
	Category    payment.Category `json:"category"`
	ClassFee    decimal.Decimal  `json:"class_fee"`
	Paid        decimal.Decimal  `json:"paid"`
	Balance     decimal.Decimal  `json:"balance"`
	Status      PaymentStatus    `json:"status"`
	Payments    int              `json:"payments"`
}

// Service builds the reports. Rows are fetched through the repositories then joined in memory.
type Service struct {
	classes  class.Repository
	students student.Repository
	users    user.Repository
	payments payment.Repository
	loc      *time.Location
}

func NewService(
	conf *core.Config,
	classes class.Repository,
	students student.Repository,
	users user.Repository,
	payments payment.Repository,
) *Service {
	return &Service{
		classes:  classes,
		students: students,
		users:    users,
		payments: payments,
		loc:      conf.Location(),
	}
}

// Ledger lists the records of cat, most recent first.
func (svc *Service) Ledger(ctx context.Context, cat payment.Category, filter Filter) ([]LedgerRow, error) {
	return svc.ledger(ctx, payment.QueryFilter{
		Categories: []payment.Category{cat},
		DateFrom:   filter.From,
		DateTo:     filter.To,
	}, filter.ClassID)
}

// StaffRecords lists the feeding and transport records of a staff member, most recent first.
func (svc *Service) StaffRecords(ctx context.Context, staffID string) ([]LedgerRow, error) {
	return svc.ledger(ctx, payment.QueryFilter{
		StaffID:    staffID,
		Categories: []payment.Category{payment.Feeding, payment.Transport},
	}, 0)
}

// Summary lists every student with what they paid in cat.
// A student without records owes the full class fee.
func (svc *Service) Summary(ctx context.Context, cat payment.Category, filter Filter) ([]StudentSummary, error) {
	classes, err := svc.classIndex(ctx)
	if err != nil {
		return nil, err
	}
	students, err := svc.students.QueryStudents(ctx, student.QueryFilter{ClassID: filter.ClassID})
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	records, err := svc.payments.QueryRecords(ctx, payment.QueryFilter{
		Categories: []payment.Category{cat},
		DateFrom:   filter.From,
		DateTo:     filter.To,
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}

	byStudent := make(map[int][]payment.Record)
	for _, rec := range records {
		byStudent[rec.StudentID] = append(byStudent[rec.StudentID], rec)
	}

	rows := make([]StudentSummary, 0, len(students))
	for _, stu := range students {
		cls := classes[stu.ClassID]
		fee := Fee(cls, cat)
		recs := byStudent[stu.ID]
		balance := Balance(fee, recs)

		status := StatusOwing
		if !balance.IsPositive() {
			status = StatusPaid
		}
		if filter.Status != "" && filter.Status != "all" && PaymentStatus(filter.Status) != status {
			continue
		}

		rows = append(rows, StudentSummary{
			StudentID:   stu.ID,
			StudentName: stu.Name,
			StudentCode: stu.Code,
			ClassID:     stu.ClassID,
			ClassName:   cls.Name,
			Category:    cat,
			ClassFee:    fee,
			Paid:        fee.Sub(balance),
			Balance:     balance,
			Status:      status,
			Payments:    len(recs),
		})
	}
	return rows, nil
}

func (svc *Service) ledger(ctx context.Context, qf payment.QueryFilter, classID int) ([]LedgerRow, error) {
	records, err := svc.payments.QueryRecords(ctx, qf)
	if err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	if len(records) == 0 {
		return []LedgerRow{}, nil
	}

	classes, err := svc.classIndex(ctx)
	if err != nil {
		return nil, err
	}
	students, err := svc.students.QueryStudents(ctx, student.QueryFilter{ClassID: classID})
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	stuIdx := make(map[int]student.Student, len(students))
	for _, stu := range students {
		stuIdx[stu.ID] = stu
	}
	users, err := svc.users.QueryUsers(ctx, user.QueryFilter{})
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	usrIdx := make(map[string]user.User, len(users))
	for _, usr := range users {
		usrIdx[usr.ID] = usr
	}

	today := payment.Today(svc.loc)
	rows := make([]LedgerRow, 0, len(records))
	for _, rec := range records {
		stu, ok := stuIdx[rec.StudentID]
		if !ok {
			// filtered out by class
			continue
		}
		cls := classes[stu.ClassID]
		fee := Fee(cls, rec.Category)
		staff := usrIdx[rec.StaffID]

		rows = append(rows, LedgerRow{
			ID:          rec.ID,
			StudentID:   stu.ID,
			StudentName: stu.Name,
			StudentCode: stu.Code,
			ClassID:     cls.ID,
			ClassName:   cls.Name,
			Category:    rec.Category,
			Amount:      rec.Amount,
			ClassFee:    fee,
			Balance:     Balance(fee, []payment.Record{rec}),
			Date:        rec.Date,
			StaffID:     rec.StaffID,
			StaffName:   staff.FullName,
			StaffRole:   staff.Role,
			Editable:    rec.Date == today,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date > rows[j].Date
		}
		return rows[i].ID > rows[j].ID
	})
	return rows, nil
}

func (svc *Service) classIndex(ctx context.Context) (map[int]class.Class, error) {
	classes, err := svc.classes.QueryClasses(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	idx := make(map[int]class.Class, len(classes))
	for _, cls := range classes {
		idx[cls.ID] = cls
	}
	return idx, nil
}
