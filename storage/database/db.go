package database

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/trezcool/goose"

	"github.com/trezcool/karo/core"
	appfs "github.com/trezcool/karo/fs"
)

const (
	migrationsDir = "migrations"

	// postgres error codes
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

func open(dbName string, admin bool, conf *core.Config) (*sqlx.DB, error) {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   conf.Database.Engine,
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return sqlx.Open(conf.Database.Engine, u.String())
}

// Open opens the application database and waits for it to be reachable.
func Open(conf *core.Config) (*sqlx.DB, error) {
	db, err := open(conf.Database.Name, false, conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

// StatusCheck returns nil if it can successfully talk to the database.
func StatusCheck(ctx context.Context, db *sqlx.DB) error {
	var ok bool
	return db.QueryRowContext(ctx, "SELECT true").Scan(&ok)
}

func exists(db *sqlx.DB, query string, args ...interface{}) (bool, error) {
	var found bool
	err := db.Get(&found, fmt.Sprintf("SELECT EXISTS (%s)", query), args...)
	return found, err
}

func createAppUser(db *sqlx.DB, conf *core.Config) error {
	if conf.Database.User == "" {
		return nil
	}

	found, err := exists(db, "SELECT 1 FROM pg_roles WHERE rolname = $1", conf.Database.User)
	if err != nil {
		return errors.Wrap(err, "checking app user")
	}
	if !found {
		q := fmt.Sprintf(
			"CREATE USER %s CREATEDB ENCRYPTED PASSWORD %s",
			pq.QuoteIdentifier(conf.Database.User),
			pq.QuoteLiteral(conf.Database.Password),
		)
		if _, err = db.Exec(q); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	return nil
}

func createDB(db *sqlx.DB, conf *core.Config) error {
	found, err := exists(db, "SELECT 1 FROM pg_database WHERE datname = $1", conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if !found {
		if _, err = db.Exec("CREATE DATABASE " + pq.QuoteIdentifier(conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// CreateIfNotExist creates the application role and database, connecting as the admin user.
func CreateIfNotExist(conf *core.Config) error {
	adminDB, err := open("postgres", true, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = adminDB.Close() }()

	if err = ping(adminDB); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	if err = createAppUser(adminDB, conf); err != nil {
		return err
	}

	// create DB as app user
	db, err := open("postgres", false, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()
	return createDB(db, conf)
}

// Migrate runs the embedded migrations up to the latest version.
func Migrate(db *sqlx.DB) error {
	if err := goose.RunFS("up", db.DB, appfs.FS, migrationsDir); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}

// IsUniqueViolation reports whether err is a postgres unique constraint violation,
// on constraint when given.
func IsUniqueViolation(err error, constraint ...string) bool {
	return isPQError(err, uniqueViolation, constraint...)
}

// IsForeignKeyViolation reports whether err is a postgres foreign key violation,
// on constraint when given.
func IsForeignKeyViolation(err error, constraint ...string) bool {
	return isPQError(err, foreignKeyViolation, constraint...)
}

func isPQError(err error, code string, constraint ...string) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	if !ok || string(pqErr.Code) != code {
		return false
	}
	return len(constraint) == 0 || pqErr.Constraint == constraint[0]
}
