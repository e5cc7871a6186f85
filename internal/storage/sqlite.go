package storage

import (
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	apperrors "github.com/rohankatakam/changerisk/internal/errors"
)

// SQLiteStore implements storage using SQLite (for local use)
type SQLiteStore struct {
	*sqlStore
}

// NewSQLiteStore opens or creates the database at path
func NewSQLiteStore(path string, logger *logrus.Logger) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, apperrors.StorageError(err, "create database directory")
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, apperrors.StorageError(err, "connect to sqlite")
	}

	// one writer at a time; WAL lets readers proceed
	db.SetMaxOpenConns(1)
	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	if _, err := db.Exec(schemaFor("TIMESTAMP", "REAL", "BOOLEAN")); err != nil {
		db.Close()
		return nil, apperrors.StorageError(err, "init schema")
	}

	return &SQLiteStore{sqlStore: newSQLStore(db, logger)}, nil
}
