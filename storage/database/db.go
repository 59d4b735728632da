package database

import (
	"context"
	"database/sql"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/trezcool/goose"

	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/fs"
)

// maintenanceDB is the database every postgres server has; roles & databases are created from it.
const maintenanceDB = "postgres"

var (
	pingAttempts = 30
	pingBackoff  = 100 * time.Millisecond
)

// dataSourceName returns the url of database `name`, for the admin user when `admin` is set and configured.
func dataSourceName(conf *core.Config, name string, admin bool) string {
	dbc := conf.Database
	user := url.UserPassword(dbc.User, dbc.Password)
	if admin && dbc.AdminUser != "" {
		user = url.UserPassword(dbc.AdminUser, dbc.AdminPassword)
	}

	q := make(url.Values)
	q.Set("sslmode", "require")
	if dbc.DisableTLS {
		q.Set("sslmode", "disable")
	}
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   dbc.Engine,
		User:     user,
		Host:     dbc.Address(),
		Path:     name,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// connect opens database `name` and waits for it to answer. Waits 100ms longer between each attempt.
func connect(ctx context.Context, conf *core.Config, name string, admin bool) (*sqlx.DB, error) {
	db, err := sqlx.Open(conf.Database.Engine, dataSourceName(conf, name, admin))
	if err != nil {
		return nil, errors.Wrapf(err, "opening %q", name)
	}

ping:
	for attempt := 1; ; attempt++ {
		if err = db.PingContext(ctx); err == nil {
			return db, nil
		}
		if attempt >= pingAttempts {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break ping
		case <-time.After(time.Duration(attempt) * pingBackoff):
		}
	}

	_ = db.Close()
	return nil, errors.Wrapf(err, "pinging %q", name)
}

// Connect opens the app database, ready for the sqlx repositories.
func Connect(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	return connect(ctx, conf, conf.Database.Name, false)
}

// Prepare makes sure the app role & database exist, connects to it and applies pending migrations.
func Prepare(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	if err := CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}
	db, err := Connect(ctx, conf)
	if err != nil {
		return nil, err
	}
	if err = Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// CreateIfNotExist creates the app role (as the admin user) and then the app database (as the app role).
func CreateIfNotExist(ctx context.Context, conf *core.Config) error {
	if conf.Database.User != "" {
		admin, err := connect(ctx, conf, maintenanceDB, true)
		if err != nil {
			return err
		}
		err = ensureRole(ctx, admin, conf.Database.User, conf.Database.Password)
		_ = admin.Close()
		if err != nil {
			return err
		}
	}

	db, err := connect(ctx, conf, maintenanceDB, false)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return ensureDatabase(ctx, db, conf.Database.Name)
}

func ensureRole(ctx context.Context, db *sqlx.DB, name, password string) error {
	var exists bool
	if err := db.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM pg_roles WHERE rolname = $1)", name); err != nil {
		return errors.Wrapf(err, "checking role %q", name)
	}
	if exists {
		return nil
	}

	// DDL takes no bind parameters
	q := "CREATE ROLE " + pq.QuoteIdentifier(name) + " LOGIN CREATEDB ENCRYPTED PASSWORD " + pq.QuoteLiteral(password)
	if _, err := db.ExecContext(ctx, q); err != nil {
		return errors.Wrapf(err, "creating role %q", name)
	}
	return nil
}

func ensureDatabase(ctx context.Context, db *sqlx.DB, name string) error {
	var exists bool
	if err := db.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", name); err != nil {
		return errors.Wrapf(err, "checking database %q", name)
	}
	if exists {
		return nil
	}

	if _, err := db.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(name)); err != nil {
		return errors.Wrapf(err, "creating database %q", name)
	}
	return nil
}

// Migrate applies the embedded migrations that are not applied yet.
func Migrate(db *sql.DB) error {
	if err := goose.RunFS("up", db, appfs.FS, "migrations"); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}
