package class

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/karo/core"
)

var (
	DefaultFeedingFee   = decimal.NewFromInt(6)
	DefaultTransportFee = decimal.NewFromInt(6)
	DefaultSchoolFee    = decimal.Zero
)

// Class groups students and fixes the fee amounts they owe per category.
type Class struct {
	ID           int             `json:"id"`
	Name         string          `json:"class_name"`
	FeedingFee   decimal.Decimal `json:"set_feeding_fees"`
	TransportFee decimal.Decimal `json:"set_transport_fees"`
	SchoolFee    decimal.Decimal `json:"set_school_fees"`
	CreatedAt    time.Time       `json:"created_at"` // UTC
}

// NewClass contains information needed to create a new Class. Missing fees take their defaults.
type NewClass struct {
	Name         string           `json:"class_name" validate:"required,max=128"`
	FeedingFee   *decimal.Decimal `json:"set_feeding_fees" validate:"omitempty,gte=0"`
	TransportFee *decimal.Decimal `json:"set_transport_fees" validate:"omitempty,gte=0"`
	SchoolFee    *decimal.Decimal `json:"set_school_fees" validate:"omitempty,gte=0"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

// UpdateClass defines what information may be provided to modify an existing Class.
type UpdateClass struct {
	Name         *string          `json:"class_name" validate:"omitempty,min=1,max=128"`
	FeedingFee   *decimal.Decimal `json:"set_feeding_fees" validate:"omitempty,gte=0"`
	TransportFee *decimal.Decimal `json:"set_transport_fees" validate:"omitempty,gte=0"`
	SchoolFee    *decimal.Decimal `json:"set_school_fees" validate:"omitempty,gte=0"`
}

func (uc *UpdateClass) Validate(validate *validator.Validate) error {
	if uc.Name != nil {
		name := core.CleanString(*uc.Name)
		uc.Name = &name
	}
	return validate.Struct(uc)
}

// Apply returns cls with the provided fields changed.
func (uc UpdateClass) Apply(cls Class) Class {
	if uc.Name != nil {
		cls.Name = *uc.Name
	}
	if uc.FeedingFee != nil {
		cls.FeedingFee = *uc.FeedingFee
	}
	if uc.TransportFee != nil {
		cls.TransportFee = *uc.TransportFee
	}
	if uc.SchoolFee != nil {
		cls.SchoolFee = *uc.SchoolFee
	}
	return cls
}
