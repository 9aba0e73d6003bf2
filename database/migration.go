package database

import (
	"database/sql"
	"embed"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/mbolis/vsaq/log"
	"github.com/pkg/errors"
)

//go:embed migrations
var schema embed.FS

// migrateDB applies the embedded migrations and returns the schema version
// the database ends up at.
func migrateDB(db *sql.DB) (uint, error) {
	src, err := iofs.New(schema, "migrations")
	if err != nil {
		return 0, errors.Wrap(err, "migrations source")
	}

	dst, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return 0, errors.Wrap(err, "migrations target")
	}

	migrator, err := migrate.NewWithInstance("iofs", src, "sqlite3", dst)
	if err != nil {
		return 0, err
	}

	from, _, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, errors.Wrap(err, "schema version")
	}

	err = migrator.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, errors.Wrapf(err, "migrate from version %d", from)
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		return 0, errors.Wrap(err, "schema version")
	}
	if dirty {
		return version, errors.Errorf("schema version %d is dirty", version)
	}

	if version != from {
		log.WithFields(log.Fields{"from": from, "to": version}).Info("database schema migrated")
	} else {
		log.Debugf("database schema at version %d", version)
	}
	return version, nil
}
