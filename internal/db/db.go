package db

import (
	"context"
	"database/sql"
	"fmt"

	"resume-matcher/internal/config"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
)

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func ConnectDB(dsn string) *sql.DB {
	return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
}

// Open connects, checks the connection and creates the schema for vectors of dim
func Open(ctx context.Context, cfg config.DatabaseConfig, dim int) (*bun.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	db := NewDB(ConnectDB(cfg.DSN), cfg.Debug)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := InitDB(ctx, db, dim); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// InitDB creates the pgvector extension and both tables
func InitDB(ctx context.Context, db *bun.DB, dim int) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to enable pgvector: %w", err)
	}
	// the vector column type carries the dimension, so this table is created by hand
	_, err := db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS index_records (
	id bigserial PRIMARY KEY,
	collection text NOT NULL,
	position integer NOT NULL,
	entry jsonb NOT NULL,
	embedding vector(%d) NOT NULL,
	UNIQUE (collection, position)
)`, dim))
	if err != nil {
		return fmt.Errorf("failed to create index_records: %w", err)
	}
	if _, err := db.NewCreateTable().Model((*Candidate)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create candidates: %w", err)
	}
	return nil
}

// DropTables removes everything InitDB created except the extension
func DropTables(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewDropTable().Model((*IndexRecord)(nil)).IfExists().Exec(ctx); err != nil {
		return err
	}
	_, err := db.NewDropTable().Model((*Candidate)(nil)).IfExists().Exec(ctx)
	return err
}
