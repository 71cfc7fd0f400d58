package migration

import (
	"database/sql"
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

const pgDriverName = "postgres"

//go:embed sql/*.sql
var embedded embed.FS

// Migrate brings the schema up to date. Migrations are read from folderPath, or
// from the set built into the binary when folderPath is empty.
func Migrate(dsn, folderPath string) error {
	db, err := sql.Open(pgDriverName, dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}

	var m *migrate.Migrate
	if folderPath != "" {
		m, err = migrate.NewWithDatabaseInstance("file://"+folderPath, pgDriverName, driver)
	} else {
		src, srcErr := iofs.New(embedded, "sql")
		if srcErr != nil {
			return srcErr
		}
		m, err = migrate.NewWithInstance("iofs", src, pgDriverName, driver)
	}
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
