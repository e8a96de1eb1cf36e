package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/karo/core/student"
	"github.com/trezcool/karo/storage/database"
)

const studentSelect = `SELECT s.id, s.code, s.name, s.class_id, c.class_name, s.parent_contact, s.created_at
	FROM students s JOIN classes c ON c.id = s.class_id`

type studentRow struct {
	ID            int         `db:"id"`
	Code          string      `db:"code"`
	Name          string      `db:"name"`
	ClassID       int         `db:"class_id"`
	ClassName     string      `db:"class_name"`
	ParentContact null.String `db:"parent_contact"`
	CreatedAt     time.Time   `db:"created_at"`
}

func (row studentRow) student() student.Student {
	return student.Student{
		ID:            row.ID,
		Code:          row.Code,
		Name:          row.Name,
		ClassID:       row.ClassID,
		ClassName:     row.ClassName,
		ParentContact: row.ParentContact.String,
		CreatedAt:     row.CreatedAt,
	}
}

type studentRepository struct {
	db sqlx.ExtContext
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db sqlx.ExtContext) student.Repository {
	return &studentRepository{db: db}
}

func (repo studentRepository) CheckCodeUniqueness(ctx context.Context, code string) error {
	var exists bool
	if err := sqlx.GetContext(ctx, repo.db, &exists, "SELECT EXISTS (SELECT 1 FROM students WHERE code = $1)", code); err != nil {
		return errors.Wrap(err, "checking code uniqueness")
	}
	if exists {
		return student.ErrCodeExists
	}
	return nil
}

func (repo studentRepository) CreateStudent(ctx context.Context, stu student.Student) (student.Student, error) {
	const q = `INSERT INTO students (code, name, class_id, parent_contact, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`

	contact := null.NewString(stu.ParentContact, stu.ParentContact != "")
	if err := sqlx.GetContext(ctx, repo.db, &stu.ID, q, stu.Code, stu.Name, stu.ClassID, contact, stu.CreatedAt.UTC()); err != nil {
		if database.IsUniqueViolation(err) {
			return student.Student{}, student.ErrCodeExists
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return stu, nil
}

func (repo studentRepository) GetStudent(ctx context.Context, filter student.GetFilter) (student.Student, error) {
	var row studentRow
	var err error

	switch {
	case filter.ID != 0:
		err = sqlx.GetContext(ctx, repo.db, &row, studentSelect+" WHERE s.id = $1", filter.ID)
	case filter.Code != "":
		err = sqlx.GetContext(ctx, repo.db, &row, studentSelect+" WHERE s.code = $1", filter.Code)
	default:
		return student.Student{}, student.ErrNotFound
	}
	if err != nil {
		if err == sql.ErrNoRows {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "finding student")
	}
	return row.student(), nil
}

func (repo studentRepository) QueryStudents(ctx context.Context, filter student.QueryFilter) ([]student.Student, error) {
	var (
		where []string
		args  []interface{}
	)

	// students with Name, ParentContact or Code matching the search keyword
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		where = append(where, "(s.name ILIKE ? OR s.parent_contact ILIKE ? OR s.code ILIKE ?)")
		args = append(args, val, val, val)
	}
	if filter.ClassID != 0 {
		where = append(where, "s.class_id = ?")
		args = append(args, filter.ClassID)
	}

	query := studentSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY s.id DESC"

	var rows []studentRow
	if err := sqlx.SelectContext(ctx, repo.db, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.student())
	}
	return students, nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, stu student.Student) (student.Student, error) {
	const q = `UPDATE students SET code = $2, name = $3, class_id = $4, parent_contact = $5 WHERE id = $1`

	contact := null.NewString(stu.ParentContact, stu.ParentContact != "")
	res, err := repo.db.ExecContext(ctx, q, stu.ID, stu.Code, stu.Name, stu.ClassID, contact)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return student.Student{}, student.ErrCodeExists
		}
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return stu, nil
}

func (repo studentRepository) DeleteStudent(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM students WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return student.ErrNotFound
	}
	return nil
}
