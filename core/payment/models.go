package payment

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/karo/core"
)

// Category is a fee ledger. Feeding and transport are paid daily by scan, school fees in instalments.
type Category string

const (
	Feeding   Category = "feeding"
	Transport Category = "transport"
	School    Category = "school"
)

const (
	// DateLayout is the layout of calendar dates: payments carry no time of day.
	DateLayout = "2006-01-02"
	Currency   = "GHS"
)

var (
	// ScanAmount is the amount recorded by a scan, whatever the class fees are.
	ScanAmount = decimal.NewFromInt(6)

	NowFunc = time.Now // mockable

	Categories = []Category{Feeding, Transport, School}

	categoryTag  = "feecategory"
	categoryText = "must be one of: feeding, transport, school"
)

func (c Category) IsValid() bool {
	switch c {
	case Feeding, Transport, School:
		return true
	}
	return false
}

// Daily reports whether at most one payment per student and day may exist in this category.
func (c Category) Daily() bool { return c == Feeding || c == Transport }

func (c Category) Label() string { return core.Capitalize(string(c)) }

// Today returns the current calendar date in loc.
func Today(loc *time.Location) string {
	return NowFunc().In(loc).Format(DateLayout)
}

// ParseDate checks that s is a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	return t, errors.Wrapf(err, "invalid date %q", s)
}

// Record is a single payment by one student, in one category, on one calendar date,
// recorded by one staff member.
type Record struct {
	ID        int             `json:"id"`
	StudentID int             `json:"student_id"`
	StaffID   string          `json:"staff_id"`
	Category  Category        `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
	Date      string          `json:"date"`       // YYYY-MM-DD
	CreatedAt time.Time       `json:"created_at"` // UTC
	UpdatedAt time.Time       `json:"updated_at"` // UTC
}

// QueryFilter applies AND operation on its non-empty fields. Dates are inclusive.
type QueryFilter struct {
	StudentID  int
	StaffID    string
	Categories []Category
	DateFrom   string
	DateTo     string
}

// Status is the outcome of a payment attempt.
type Status string

const (
	StatusRecorded  Status = "recorded"
	StatusDuplicate Status = "duplicate"
	StatusFailed    Status = "failed"
)

type Outcome struct {
	Status  Status  `json:"status"`
	Message string  `json:"message"`
	Record  *Record `json:"record,omitempty"`
}

// InitValidators registers the payment validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(categoryTag, func(fl validator.FieldLevel) bool {
		return Category(fl.Field().String()).IsValid()
	})
	core.RegisterCustomTranslation(validate, translator, categoryTag, categoryText)
}
