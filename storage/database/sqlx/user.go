package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/karo/core"
	"github.com/trezcool/karo/core/user"
	"github.com/trezcool/karo/storage/database"
)

const userColumns = "id, full_name, email, role, is_active, password_hash, created_at, updated_at, last_login"

var userOrderings = map[string]string{
	"full_name":  "full_name",
	"email":      "email",
	"role":       "role",
	"created_at": "created_at",
	"last_login": "last_login",
}

type userRow struct {
	ID           string     `db:"id"`
	FullName     string     `db:"full_name"`
	Email        string     `db:"email"`
	Role         string     `db:"role"`
	IsActive     bool       `db:"is_active"`
	PasswordHash null.Bytes `db:"password_hash"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	LastLogin    null.Time  `db:"last_login"`
}

type userRepository struct {
	db sqlx.ExtContext
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db sqlx.ExtContext) user.Repository {
	return &userRepository{db: db}
}

func (repo userRepository) toRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		FullName:     usr.FullName,
		Email:        usr.Email,
		Role:         string(usr.Role),
		IsActive:     usr.IsActive,
		PasswordHash: null.NewBytes(usr.PasswordHash, len(usr.PasswordHash) > 0),
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (repo userRepository) fromRow(row userRow) user.User {
	usr := user.User{
		ID:        row.ID,
		FullName:  row.FullName,
		Email:     row.Email,
		Role:      user.Role(row.Role),
		IsActive:  row.IsActive,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if row.PasswordHash.Valid {
		usr.PasswordHash = row.PasswordHash.Bytes
	}
	if row.LastLogin.Valid {
		usr.LastLogin = row.LastLogin.Time
	}
	return usr
}

// trapNoRowsErr maps "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	query := "SELECT EXISTS (SELECT 1 FROM users WHERE email = ?"
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		query += " AND id NOT IN (?)"
		args = append(args, ids)
	}
	query += ")"

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return errors.Wrap(err, "building uniqueness query")
	}
	var exists bool
	if err = sqlx.GetContext(ctx, repo.db, &exists, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	const q = `INSERT INTO users (` + userColumns + `)
		VALUES (:id, :full_name, :email, :role, :is_active, :password_hash, :created_at, :updated_at, :last_login)`

	if _, err := sqlx.NamedExecContext(ctx, repo.db, q, repo.toRow(usr)); err != nil {
		if database.IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var row userRow
	var err error

	switch {
	case filter.ID != "":
		if _, err = uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		err = sqlx.GetContext(ctx, repo.db, &row, "SELECT "+userColumns+" FROM users WHERE id = $1", filter.ID)
	case filter.Email != "":
		err = sqlx.GetContext(ctx, repo.db, &row, "SELECT "+userColumns+" FROM users WHERE email = $1", filter.Email)
	default:
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user")
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	var (
		where []string
		args  []interface{}
	)

	// users with FullName or Email matching the search keyword
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		where = append(where, "(full_name ILIKE ? OR email ILIKE ?)")
		args = append(args, val, val)
	}
	if len(filter.Roles) > 0 {
		where = append(where, "role IN (?)")
		args = append(args, filter.Roles)
	}
	if filter.IsActive != nil {
		where = append(where, "is_active = ?")
		args = append(args, *filter.IsActive)
	}

	query := "SELECT " + userColumns + " FROM users"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if ords := core.SafeOrderings(ordering, userOrderings); len(ords) > 0 {
		orderList := make([]string, 0, len(ords))
		for _, ord := range ords {
			orderList = append(orderList, ord.String())
		}
		query += " ORDER BY " + strings.Join(orderList, ", ")
	}

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "building users query")
	}
	var rows []userRow
	if err = sqlx.SelectContext(ctx, repo.db, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}

	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, repo.fromRow(row))
	}
	return users, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	const q = `UPDATE users SET
		full_name = :full_name, email = :email, role = :role, is_active = :is_active,
		password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`

	res, err := sqlx.NamedExecContext(ctx, repo.db, q, repo.toRow(usr))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo userRepository) DeleteUsers(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In("DELETE FROM users WHERE id IN (?)", ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
