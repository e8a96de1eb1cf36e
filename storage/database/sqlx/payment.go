package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/karo/core/payment"
	"github.com/trezcool/karo/storage/database"
)

const (
	paymentColumns  = "id, student_id, staff_id, category, amount, date, created_at, updated_at"
	paymentDailyIdx = "payments_daily_uniq"
)

type paymentRow struct {
	ID        int             `db:"id"`
	StudentID int             `db:"student_id"`
	StaffID   null.String     `db:"staff_id"`
	Category  string          `db:"category"`
	Amount    decimal.Decimal `db:"amount"`
	Date      time.Time       `db:"date"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

func (row paymentRow) record() payment.Record {
	return payment.Record{
		ID:        row.ID,
		StudentID: row.StudentID,
		StaffID:   row.StaffID.String,
		Category:  payment.Category(row.Category),
		Amount:    row.Amount,
		Date:      row.Date.Format(payment.DateLayout),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

type paymentRepository struct {
	db sqlx.ExtContext
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db sqlx.ExtContext) payment.Repository {
	return &paymentRepository{db: db}
}

func (repo paymentRepository) RecordExists(ctx context.Context, studentID int, cat payment.Category, date string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM payments WHERE student_id = $1 AND category = $2 AND date = $3)`

	var exists bool
	if err := sqlx.GetContext(ctx, repo.db, &exists, q, studentID, string(cat), date); err != nil {
		return false, errors.Wrap(err, "checking payment existence")
	}
	return exists, nil
}

func (repo paymentRepository) CreateRecord(ctx context.Context, rec payment.Record) (payment.Record, error) {
	const q = `INSERT INTO payments (student_id, staff_id, category, amount, date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`

	staffID := null.NewString(rec.StaffID, rec.StaffID != "")
	err := sqlx.GetContext(ctx, repo.db, &rec.ID, q,
		rec.StudentID, staffID, string(rec.Category), rec.Amount, rec.Date, rec.CreatedAt.UTC(), rec.UpdatedAt.UTC())
	if err != nil {
		if database.IsUniqueViolation(err, paymentDailyIdx) {
			return payment.Record{}, payment.ErrDuplicate
		}
		return payment.Record{}, errors.Wrap(err, "inserting payment")
	}
	return rec, nil
}

func (repo paymentRepository) GetRecord(ctx context.Context, id int) (payment.Record, error) {
	var row paymentRow
	if err := sqlx.GetContext(ctx, repo.db, &row, "SELECT "+paymentColumns+" FROM payments WHERE id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return payment.Record{}, payment.ErrNotFound
		}
		return payment.Record{}, errors.Wrap(err, "finding payment")
	}
	return row.record(), nil
}

func (repo paymentRepository) QueryRecords(ctx context.Context, filter payment.QueryFilter) ([]payment.Record, error) {
	var (
		where []string
		args  []interface{}
	)

	if filter.StudentID != 0 {
		where = append(where, "student_id = ?")
		args = append(args, filter.StudentID)
	}
	if filter.StaffID != "" {
		where = append(where, "staff_id = ?")
		args = append(args, filter.StaffID)
	}
	if len(filter.Categories) > 0 {
		cats := make([]string, 0, len(filter.Categories))
		for _, cat := range filter.Categories {
			cats = append(cats, string(cat))
		}
		where = append(where, "category IN (?)")
		args = append(args, cats)
	}
	if filter.DateFrom != "" {
		where = append(where, "date >= ?")
		args = append(args, filter.DateFrom)
	}
	if filter.DateTo != "" {
		where = append(where, "date <= ?")
		args = append(args, filter.DateTo)
	}

	query := "SELECT " + paymentColumns + " FROM payments"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date DESC, id DESC"

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "building payments query")
	}
	var rows []paymentRow
	if err = sqlx.SelectContext(ctx, repo.db, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	records := make([]payment.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.record())
	}
	return records, nil
}

func (repo paymentRepository) UpdateRecord(ctx context.Context, rec payment.Record) (payment.Record, error) {
	const q = `UPDATE payments SET amount = $2, updated_at = $3 WHERE id = $1`

	res, err := repo.db.ExecContext(ctx, q, rec.ID, rec.Amount, rec.UpdatedAt.UTC())
	if err != nil {
		return payment.Record{}, errors.Wrap(err, "updating payment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return payment.Record{}, payment.ErrNotFound
	}
	return rec, nil
}
