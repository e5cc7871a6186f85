// Package storage persists history snapshots and analysis runs in SQLite or
// PostgreSQL through sqlx.
package storage

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/rohankatakam/changerisk/internal/errors"
	"github.com/rohankatakam/changerisk/internal/history"
	"github.com/rohankatakam/changerisk/internal/risk"
	"github.com/sirupsen/logrus"
)

// Common errors
var (
	ErrNotFound = errors.New("not found")
)

// RunScheme prefixes output refs that point at stored runs
const RunScheme = "run"

// RunRef returns the output ref of a stored run
func RunRef(id string) string {
	return RunScheme + ":" + id
}

// ParseRunRef extracts the run id from a "run:<id>" ref
func ParseRunRef(ref string) (string, bool) {
	id, ok := strings.CutPrefix(ref, RunScheme+":")
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// Store defines the storage interface
type Store interface {
	// Snapshot operations
	SaveSnapshot(ctx context.Context, snap *history.Snapshot) (string, error)
	LoadSnapshot(ctx context.Context, id string) (*history.Snapshot, error)
	LatestSnapshotID(ctx context.Context, source history.SourceID) (string, error)

	// Run operations. SaveRun returns a "run:<id>" output ref.
	SaveRun(ctx context.Context, source history.SourceID, snapshotHash string, report *risk.Report) (string, error)
	LoadRun(ctx context.Context, ref string) (*risk.Report, error)

	// Exists reports whether a run ref resolves, so a Store can serve as a
	// cache locator for the "run" scheme.
	Exists(ctx context.Context, ref string) (bool, error)

	// Close connection
	Close() error
}

// Drivers accepted by Open
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to the configured backend. For sqlite dsn is a file path.
func Open(ctx context.Context, driver, dsn string, logger *logrus.Logger) (Store, error) {
	switch driver {
	case DriverSQLite:
		s, err := NewSQLiteStore(dsn, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverPostgres:
		s, err := NewPostgresStore(ctx, dsn, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, apperrors.ConfigErrorf("unknown storage driver %q", driver)
	}
}
