// Package testutil holds the fixtures shared by the package tests.
package testutil

import (
	"context"
	"io"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/karo/core"
	"github.com/trezcool/karo/core/class"
	"github.com/trezcool/karo/core/payment"
	"github.com/trezcool/karo/core/student"
	"github.com/trezcool/karo/core/user"
	logsvc "github.com/trezcool/karo/services/logger"
)

const Password = "Pwd.123!"

// NewConfig returns the configuration of the TEST env.
func NewConfig() *core.Config {
	return &core.Config{
		Env:                       "TEST",
		TestMode:                  true,
		AppName:                   "Karo",
		SecretKey:                 "secret",
		FrontendBaseURL:           "http://localhost:3000",
		DefaultFromEmailName:      "Karo",
		DefaultFromEmailAddress:   "noreply@localhost",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: core.ServerConfig{
			Host:                      "localhost",
			Port:                      "8000",
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			DisableReqLogs:            true,
		},
		Scan: core.ScanConfig{SessionTTL: 15 * time.Minute},
	}
}

func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(io.Discard, conf)
}

// NewValidator returns a validator with every domain validator registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	payment.InitValidators(validate, translator)
	return validate, translator
}

func CreateUser(t *testing.T, repo user.Repository, name, email, pwd string, role user.Role, isActive bool) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		FullName:  name,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateClass creates a class with the given feeding, transport and school fees.
func CreateClass(t *testing.T, repo class.Repository, name string, fees ...int64) class.Class {
	t.Helper()
	cls := class.Class{
		Name:         name,
		FeedingFee:   class.DefaultFeedingFee,
		TransportFee: class.DefaultTransportFee,
		SchoolFee:    class.DefaultSchoolFee,
		CreatedAt:    time.Now().UTC(),
	}
	for i, fee := range fees {
		switch i {
		case 0:
			cls.FeedingFee = decimal.NewFromInt(fee)
		case 1:
			cls.TransportFee = decimal.NewFromInt(fee)
		case 2:
			cls.SchoolFee = decimal.NewFromInt(fee)
		}
	}
	cls, err := repo.CreateClass(context.Background(), cls)
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return cls
}

func CreateStudent(t *testing.T, repo student.Repository, code, name string, cls class.Class) student.Student {
	t.Helper()
	stu, err := repo.CreateStudent(context.Background(), student.Student{
		Code:      code,
		Name:      name,
		ClassID:   cls.ID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	stu, err = repo.GetStudent(context.Background(), student.GetFilter{ID: stu.ID})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return stu
}

func CreateRecord(
	t *testing.T,
	repo payment.Repository,
	stu student.Student,
	staff user.User,
	cat payment.Category,
	amount int64,
	date string,
) payment.Record {
	t.Helper()
	now := time.Now().UTC()
	rec, err := repo.CreateRecord(context.Background(), payment.Record{
		StudentID: stu.ID,
		StaffID:   staff.ID,
		Category:  cat,
		Amount:    decimal.NewFromInt(amount),
		Date:      date,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateRecord() failed: %v", err)
	}
	return rec
}

// FreezeTime makes payment.NowFunc return now until the test ends.
func FreezeTime(t *testing.T, now time.Time) {
	t.Helper()
	orig := payment.NowFunc
	payment.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { payment.NowFunc = orig })
}
