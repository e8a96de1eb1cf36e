package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/karo/core/payment"
)

type paymentRepository struct {
	db *DB
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *DB) payment.Repository {
	return &paymentRepository{db: db}
}

func (repo *paymentRepository) exists(studentID int, cat payment.Category, date string) bool {
	for _, rec := range repo.db.payments {
		if rec.StudentID == studentID && rec.Category == cat && rec.Date == date {
			return true
		}
	}
	return false
}

func (repo *paymentRepository) RecordExists(_ context.Context, studentID int, cat payment.Category, date string) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.exists(studentID, cat, date), nil
}

func (repo *paymentRepository) CreateRecord(_ context.Context, rec payment.Record) (payment.Record, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	// partial unique index on (student_id, category, date)
	if rec.Category.Daily() && repo.exists(rec.StudentID, rec.Category, rec.Date) {
		return payment.Record{}, payment.ErrDuplicate
	}
	repo.db.paymentSeq++
	rec.ID = repo.db.paymentSeq
	repo.db.payments[rec.ID] = &rec
	return rec, nil
}

func (repo *paymentRepository) GetRecord(_ context.Context, id int) (payment.Record, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if rec, ok := repo.db.payments[id]; ok {
		return *rec, nil
	}
	return payment.Record{}, payment.ErrNotFound
}

func (repo *paymentRepository) QueryRecords(_ context.Context, filter payment.QueryFilter) ([]payment.Record, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	records := make([]payment.Record, 0)
	for _, rec := range repo.db.payments {
		if filter.StudentID != 0 && rec.StudentID != filter.StudentID {
			continue
		}
		if filter.StaffID != "" && rec.StaffID != filter.StaffID {
			continue
		}
		if len(filter.Categories) > 0 && !hasCategory(rec.Category, filter.Categories) {
			continue
		}
		// YYYY-MM-DD dates compare lexically
		if filter.DateFrom != "" && rec.Date < filter.DateFrom {
			continue
		}
		if filter.DateTo != "" && rec.Date > filter.DateTo {
			continue
		}
		records = append(records, *rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Date != records[j].Date {
			return records[i].Date > records[j].Date
		}
		return records[i].ID > records[j].ID
	})
	return records, nil
}

func (repo *paymentRepository) UpdateRecord(_ context.Context, rec payment.Record) (payment.Record, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.payments[rec.ID]
	if !ok {
		return payment.Record{}, payment.ErrNotFound
	}
	// only the amount may change
	orig.Amount = rec.Amount
	orig.UpdatedAt = rec.UpdatedAt
	return *orig, nil
}

func hasCategory(cat payment.Category, cats []payment.Category) bool {
	for _, c := range cats {
		if c == cat {
			return true
		}
	}
	return false
}
