package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/karo/core/class"
	"github.com/trezcool/karo/storage/database"
)

const classColumns = "id, class_name, set_feeding_fees, set_transport_fees, set_school_fees, created_at"

type classRow struct {
	ID           int             `db:"id"`
	Name         string          `db:"class_name"`
	FeedingFee   decimal.Decimal `db:"set_feeding_fees"`
	TransportFee decimal.Decimal `db:"set_transport_fees"`
	SchoolFee    decimal.Decimal `db:"set_school_fees"`
	CreatedAt    time.Time       `db:"created_at"`
}

func (row classRow) class() class.Class {
	return class.Class{
		ID:           row.ID,
		Name:         row.Name,
		FeedingFee:   row.FeedingFee,
		TransportFee: row.TransportFee,
		SchoolFee:    row.SchoolFee,
		CreatedAt:    row.CreatedAt,
	}
}

type classRepository struct {
	db sqlx.ExtContext
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db sqlx.ExtContext) class.Repository {
	return &classRepository{db: db}
}

func (repo classRepository) CreateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	const q = `INSERT INTO classes (class_name, set_feeding_fees, set_transport_fees, set_school_fees, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`

	err := sqlx.GetContext(ctx, repo.db, &cls.ID, q,
		cls.Name, cls.FeedingFee, cls.TransportFee, cls.SchoolFee, cls.CreatedAt.UTC())
	if err != nil {
		return class.Class{}, errors.Wrap(err, "inserting class")
	}
	return cls, nil
}

func (repo classRepository) GetClass(ctx context.Context, id int) (class.Class, error) {
	var row classRow
	if err := sqlx.GetContext(ctx, repo.db, &row, "SELECT "+classColumns+" FROM classes WHERE id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return class.Class{}, class.ErrNotFound
		}
		return class.Class{}, errors.Wrap(err, "finding class")
	}
	return row.class(), nil
}

func (repo classRepository) QueryClasses(ctx context.Context) ([]class.Class, error) {
	var rows []classRow
	if err := sqlx.SelectContext(ctx, repo.db, &rows, "SELECT "+classColumns+" FROM classes ORDER BY class_name, id"); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	classes := make([]class.Class, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, row.class())
	}
	return classes, nil
}

func (repo classRepository) UpdateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	const q = `UPDATE classes SET
		class_name = $2, set_feeding_fees = $3, set_transport_fees = $4, set_school_fees = $5
		WHERE id = $1`

	res, err := repo.db.ExecContext(ctx, q, cls.ID, cls.Name, cls.FeedingFee, cls.TransportFee, cls.SchoolFee)
	if err != nil {
		return class.Class{}, errors.Wrap(err, "updating class")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return class.Class{}, class.ErrNotFound
	}
	return cls, nil
}

func (repo classRepository) DeleteClass(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM classes WHERE id = $1", id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return class.ErrHasStudents
		}
		return errors.Wrap(err, "deleting class")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return class.ErrNotFound
	}
	return nil
}
