package storage

import (
	"context"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	apperrors "github.com/rohankatakam/changerisk/internal/errors"
)

// PostgresStore implements storage using PostgreSQL
type PostgresStore struct {
	*sqlStore
}

// NewPostgresStore connects to dsn and ensures the schema exists
func NewPostgresStore(ctx context.Context, dsn string, logger *logrus.Logger) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, apperrors.StorageError(err, "connect to postgres")
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// pgx runs one statement per Exec in the extended protocol
	for _, stmt := range strings.Split(schemaFor("TIMESTAMPTZ", "DOUBLE PRECISION", "BOOLEAN"), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, apperrors.StorageError(err, "init schema")
		}
	}

	return &PostgresStore{sqlStore: newSQLStore(db, logger)}, nil
}
