package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rohankatakam/changerisk/internal/content"
	apperrors "github.com/rohankatakam/changerisk/internal/errors"
	"github.com/rohankatakam/changerisk/internal/history"
	"github.com/rohankatakam/changerisk/internal/risk"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "db", "changerisk.db"), logger)
	if err != nil && strings.Contains(err.Error(), "CGO_ENABLED") {
		t.Skip("sqlite requires cgo")
	}
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

var (
	t0 = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	t1 = time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
)

func sampleSnapshot() *history.Snapshot {
	return &history.Snapshot{
		Source: history.SourceID{Platform: "github", Organization: "acme", Repository: "api"},
		Window: history.Window{From: t0.AddDate(0, -1, 0), To: t1},
		Commits: []history.CommitChanges{
			{
				Commit: history.Commit{ID: "c1", Author: history.Author{Name: "Alice", Email: "alice@example.com"}, Timestamp: t0, Message: "first"},
				Changes: []history.FileChange{
					{Path: "src/shared.cs", Kind: history.KindAdd, CommitID: "c1"},
					{Path: "src/a_only.cs", Kind: history.KindAdd, CommitID: "c1"},
					{Path: "src", Kind: history.KindAdd, IsFolder: true, CommitID: "c1"},
				},
			},
			{
				Commit:  history.Commit{ID: "c2", Author: history.Author{Name: "Bob", Email: "bob@example.com"}, Timestamp: t1, Message: "second"},
				Changes: []history.FileChange{{Path: "src/shared.cs", Kind: history.KindEdit, CommitID: "c2"}},
			},
			{
				Commit: history.Commit{ID: "c3", Author: history.Author{Email: "bob@example.com"}, Timestamp: t1},
			},
		},
		PullRequestCount: 3,
	}
}

func TestSQLiteStore_SnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	snap := sampleSnapshot()

	id, err := store.SaveSnapshot(ctx, snap)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	loaded, err := store.LoadSnapshot(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, snap.Source, loaded.Source)
	assert.True(t, snap.Window.From.Equal(loaded.Window.From))
	assert.True(t, snap.Window.To.Equal(loaded.Window.To))
	assert.Equal(t, 3, loaded.PullRequestCount)
	require.Len(t, loaded.Commits, 3)

	for i, want := range snap.Commits {
		got := loaded.Commits[i]
		assert.Equal(t, want.Commit.ID, got.Commit.ID)
		assert.Equal(t, want.Commit.Author, got.Commit.Author)
		assert.Equal(t, want.Commit.Message, got.Commit.Message)
		assert.True(t, want.Commit.Timestamp.Equal(got.Commit.Timestamp))
		assert.Equal(t, want.Changes, got.Changes)
	}

	// the snapshot hashes identically after a round trip
	assert.ElementsMatch(t, snap.DetailedKeys(), loaded.DetailedKeys())

	latest, err := store.LatestSnapshotID(ctx, snap.Source)
	require.NoError(t, err)
	assert.Equal(t, id, latest)

	_, err = store.LatestSnapshotID(ctx, history.SourceID{Platform: "git", Repository: "other"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.LoadSnapshot(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_RunRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	snap := sampleSnapshot()

	report := risk.Aggregate(snap.Commits, risk.DefaultOptions(t1), map[string]content.Metrics{
		"src/shared.cs": {LOC: 40, Complexity: 3, Method: content.MethodTreeSitter},
	})

	ref, err := store.SaveRun(ctx, snap.Source, "abc123", report)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "run:"))

	ok, err := store.Exists(ctx, ref)
	require.NoError(t, err)
	assert.True(t, ok)

	loaded, err := store.LoadRun(ctx, ref)
	require.NoError(t, err)

	assert.True(t, report.GeneratedAt.Equal(loaded.GeneratedAt))
	assert.Equal(t, report.Summary, loaded.Summary)
	assert.Equal(t, report.Languages, loaded.Languages)

	require.Len(t, loaded.Files, len(report.Files))
	for i, want := range report.Files {
		got := loaded.Files[i]
		assert.True(t, want.LastModified.Equal(got.LastModified))
		got.LastModified = want.LastModified
		assert.Equal(t, want, got)
	}
	assert.Equal(t, report.Developers, loaded.Developers)
}

func TestSQLiteStore_Exists(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	ok, err := store.Exists(ctx, RunRef("00000000-0000-0000-0000-000000000000"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Exists(ctx, "/tmp/file_hotspots.json")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.LoadRun(ctx, RunRef("missing"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.LoadRun(ctx, "not-a-ref")
	assert.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.GetType(err))
}

func TestSQLiteStore_ClosedDatabaseIsStorageError(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Close())

	_, err := store.LoadSnapshot(context.Background(), "any")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, apperrors.ErrorTypeStorage, apperrors.GetType(err))
	assert.False(t, apperrors.IsFatal(err))
}

func TestNewSQLiteStore_UnwritableDirectory(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, err := NewSQLiteStore(filepath.Join(blocker, "db", "changerisk.db"), nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeStorage, apperrors.GetType(err))
	assert.Contains(t, err.Error(), "create database directory")
}

func TestParseRunRef(t *testing.T) {
	id, ok := ParseRunRef("run:abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", id)

	_, ok = ParseRunRef("run:")
	assert.False(t, ok)
	_, ok = ParseRunRef("file.json")
	assert.False(t, ok)
	assert.Equal(t, "run:abc", RunRef("abc"))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "", nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeConfig, apperrors.GetType(err))
	assert.True(t, apperrors.IsFatal(err))
}
