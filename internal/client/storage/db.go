// Package storage opens the on-device SQLite database and wires up the
// repositories backed by it.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/zeroeau/washpro-technician/internal/client/repositories/bookings"
	"github.com/zeroeau/washpro-technician/internal/client/repositories/syncstate"
	"github.com/zeroeau/washpro-technician/internal/client/storage/migrations"
)

// Repositories groups the repositories sharing one database handle.
type Repositories struct {
	Bookings  bookings.Repository
	SyncState syncstate.Repository
	DB        *sql.DB
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens (creating if necessary) the local database at dsn,
// applies pending migrations and returns the repository set.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening local db: %w", err)
	}

	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Repositories{
		Bookings:  bookings.NewSQLiteRepository(db),
		SyncState: syncstate.NewSQLiteRepository(db),
		DB:        db,
	}, nil
}
