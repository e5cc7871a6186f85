package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/changerisk/internal/classify"
	apperrors "github.com/rohankatakam/changerisk/internal/errors"
	"github.com/rohankatakam/changerisk/internal/content"
	"github.com/rohankatakam/changerisk/internal/history"
	"github.com/rohankatakam/changerisk/internal/risk"
)

// sqlStore implements Store over any sqlx driver. Queries use ? placeholders
// and are rebound for the driver.
type sqlStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
	now    func() time.Time
}

func newSQLStore(db *sqlx.DB, logger *logrus.Logger) *sqlStore {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &sqlStore{db: db, logger: logger, now: time.Now}
}

// Close closes the database connection
func (s *sqlStore) Close() error {
	return s.db.Close()
}

type snapshotRecord struct {
	ID               string    `db:"id"`
	Source           string    `db:"source"`
	Platform         string    `db:"platform"`
	Organization     string    `db:"organization"`
	Project          string    `db:"project"`
	Repository       string    `db:"repository"`
	WindowFrom       time.Time `db:"window_from"`
	WindowTo         time.Time `db:"window_to"`
	PullRequestCount int       `db:"pull_request_count"`
	CreatedAt        time.Time `db:"created_at"`
}

type commitRecord struct {
	SnapshotID  string    `db:"snapshot_id"`
	Seq         int       `db:"seq"`
	CommitID    string    `db:"commit_id"`
	AuthorName  string    `db:"author_name"`
	AuthorEmail string    `db:"author_email"`
	Timestamp   time.Time `db:"committed_at"`
	Message     string    `db:"message"`
}

type changeRecord struct {
	SnapshotID string `db:"snapshot_id"`
	Seq        int    `db:"seq"`
	Idx        int    `db:"idx"`
	Path       string `db:"path"`
	Kind       string `db:"kind"`
	IsFolder   bool   `db:"is_folder"`
}

// Snapshot operations

func (s *sqlStore) SaveSnapshot(ctx context.Context, snap *history.Snapshot) (string, error) {
	if snap == nil {
		return "", apperrors.ValidationError("save snapshot: nil snapshot")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", apperrors.StorageError(err, "save snapshot")
	}
	defer tx.Rollback()

	rec := snapshotRecord{
		ID:               uuid.NewString(),
		Source:           snap.Source.String(),
		Platform:         snap.Source.Platform,
		Organization:     snap.Source.Organization,
		Project:          snap.Source.Project,
		Repository:       snap.Source.Repository,
		WindowFrom:       snap.Window.From.UTC(),
		WindowTo:         snap.Window.To.UTC(),
		PullRequestCount: snap.PullRequestCount,
		CreatedAt:        s.now().UTC(),
	}
	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO snapshots
		(id, source, platform, organization, project, repository,
		 window_from, window_to, pull_request_count, created_at)
		VALUES (:id, :source, :platform, :organization, :project, :repository,
		 :window_from, :window_to, :pull_request_count, :created_at)
	`, rec)
	if err != nil {
		return "", apperrors.StorageError(err, "save snapshot")
	}

	for seq, cc := range snap.Commits {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO snapshot_commits
			(snapshot_id, seq, commit_id, author_name, author_email, committed_at, message)
			VALUES (:snapshot_id, :seq, :commit_id, :author_name, :author_email, :committed_at, :message)
		`, commitRecord{
			SnapshotID:  rec.ID,
			Seq:         seq,
			CommitID:    cc.Commit.ID,
			AuthorName:  cc.Commit.Author.Name,
			AuthorEmail: cc.Commit.Author.Email,
			Timestamp:   cc.Commit.Timestamp.UTC(),
			Message:     cc.Commit.Message,
		})
		if err != nil {
			return "", apperrors.StorageErrorf(err, "save commit %s", cc.Commit.ID)
		}

		for idx, ch := range cc.Changes {
			_, err := tx.NamedExecContext(ctx, `
				INSERT INTO snapshot_changes
				(snapshot_id, seq, idx, path, kind, is_folder)
				VALUES (:snapshot_id, :seq, :idx, :path, :kind, :is_folder)
			`, changeRecord{
				SnapshotID: rec.ID,
				Seq:        seq,
				Idx:        idx,
				Path:       ch.Path,
				Kind:       string(ch.Kind),
				IsFolder:   ch.IsFolder,
			})
			if err != nil {
				return "", apperrors.StorageErrorf(err, "save change %s", ch.Path)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", apperrors.StorageError(err, "save snapshot")
	}

	s.logger.WithFields(logrus.Fields{
		"snapshot": rec.ID,
		"source":   rec.Source,
		"commits":  len(snap.Commits),
	}).Debug("Saved snapshot")
	return rec.ID, nil
}

func (s *sqlStore) LoadSnapshot(ctx context.Context, id string) (*history.Snapshot, error) {
	var rec snapshotRecord
	err := s.db.GetContext(ctx, &rec, s.db.Rebind(`SELECT * FROM snapshots WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, apperrors.StorageError(err, "load snapshot")
	}

	var commits []commitRecord
	err = s.db.SelectContext(ctx, &commits,
		s.db.Rebind(`SELECT * FROM snapshot_commits WHERE snapshot_id = ? ORDER BY seq`), id)
	if err != nil {
		return nil, apperrors.StorageError(err, "load snapshot commits")
	}

	var changes []changeRecord
	err = s.db.SelectContext(ctx, &changes,
		s.db.Rebind(`SELECT * FROM snapshot_changes WHERE snapshot_id = ? ORDER BY seq, idx`), id)
	if err != nil {
		return nil, apperrors.StorageError(err, "load snapshot changes")
	}

	snap := &history.Snapshot{
		Source: history.SourceID{
			Platform:     rec.Platform,
			Organization: rec.Organization,
			Project:      rec.Project,
			Repository:   rec.Repository,
		},
		Window:           history.Window{From: rec.WindowFrom, To: rec.WindowTo},
		PullRequestCount: rec.PullRequestCount,
		Commits:          make([]history.CommitChanges, len(commits)),
	}
	bySeq := make(map[int]int, len(commits))
	for i, c := range commits {
		bySeq[c.Seq] = i
		snap.Commits[i] = history.CommitChanges{
			Commit: history.Commit{
				ID:        c.CommitID,
				Author:    history.Author{Name: c.AuthorName, Email: c.AuthorEmail},
				Timestamp: c.Timestamp,
				Message:   c.Message,
			},
		}
	}
	for _, ch := range changes {
		i, ok := bySeq[ch.Seq]
		if !ok {
			continue
		}
		cc := &snap.Commits[i]
		cc.Changes = append(cc.Changes, history.FileChange{
			Path:     ch.Path,
			Kind:     history.ChangeKind(ch.Kind),
			IsFolder: ch.IsFolder,
			CommitID: cc.Commit.ID,
		})
	}
	return snap, nil
}

func (s *sqlStore) LatestSnapshotID(ctx context.Context, source history.SourceID) (string, error) {
	var id string
	err := s.db.GetContext(ctx, &id, s.db.Rebind(`
		SELECT id FROM snapshots WHERE source = ?
		ORDER BY created_at DESC LIMIT 1
	`), source.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", apperrors.StorageError(err, "latest snapshot")
	}
	return id, nil
}

// Run operations

type runRecord struct {
	ID           string    `db:"id"`
	Source       string    `db:"source"`
	SnapshotHash string    `db:"snapshot_hash"`
	GeneratedAt  time.Time `db:"generated_at"`
	CreatedAt    time.Time `db:"created_at"`
	Summary      string    `db:"summary"`
	Languages    string    `db:"languages"`
}

type fileRiskRecord struct {
	RunID                  string    `db:"run_id"`
	Ordinal                int       `db:"ordinal"`
	Path                   string    `db:"path"`
	Name                   string    `db:"name"`
	Category               string    `db:"category"`
	Area                   string    `db:"area"`
	TotalCommits           int       `db:"total_commits"`
	RecentCommits          int       `db:"recent_commits"`
	DeveloperCount         int       `db:"developer_count"`
	DeveloperList          string    `db:"developer_list"`
	SizeEstimate           int       `db:"size_estimate"`
	LinesAddedEstimate     int       `db:"lines_added_estimate"`
	LinesDeletedEstimate   int       `db:"lines_deleted_estimate"`
	LastModified           time.Time `db:"last_modified"`
	ChangeFrequencyPerWeek float64   `db:"change_frequency_per_week"`
	LOC                    int       `db:"loc"`
	Complexity             float64   `db:"complexity"`
	ContentMethod          string    `db:"content_method"`
	BusFactorRisk          float64   `db:"bus_factor_risk"`
	HotspotScore           float64   `db:"hotspot_score"`
	IsCritical             bool      `db:"is_critical"`
	CriticalComponent      bool      `db:"critical_component"`
	RiskCategory           string    `db:"risk_category"`
}

type developerRiskRecord struct {
	RunID               string  `db:"run_id"`
	Ordinal             int     `db:"ordinal"`
	Identity            string  `db:"identity"`
	DisplayName         string  `db:"display_name"`
	FilesOwned          int     `db:"files_owned"`
	ExclusiveFiles      int     `db:"exclusive_files"`
	ExclusiveFilesList  string  `db:"exclusive_files_list"`
	TotalCommits        int     `db:"total_commits"`
	TotalFileChanges    int     `db:"total_file_changes"`
	OwnershipPercentage float64 `db:"ownership_percentage"`
	BusFactorRisk       float64 `db:"bus_factor_risk"`
	RiskLevel           string  `db:"risk_level"`
}

const listSep = ";"

func joinList(items []string) string {
	return strings.Join(items, listSep)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, listSep)
}

func (s *sqlStore) SaveRun(ctx context.Context, source history.SourceID, snapshotHash string, report *risk.Report) (string, error) {
	if report == nil {
		return "", apperrors.ValidationError("save run: nil report")
	}

	summary, err := json.Marshal(report.Summary)
	if err != nil {
		return "", apperrors.StorageError(err, "save run")
	}
	languages, err := json.Marshal(report.Languages)
	if err != nil {
		return "", apperrors.StorageError(err, "save run")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", apperrors.StorageError(err, "save run")
	}
	defer tx.Rollback()

	run := runRecord{
		ID:           uuid.NewString(),
		Source:       source.String(),
		SnapshotHash: snapshotHash,
		GeneratedAt:  report.GeneratedAt.UTC(),
		CreatedAt:    s.now().UTC(),
		Summary:      string(summary),
		Languages:    string(languages),
	}
	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO runs (id, source, snapshot_hash, generated_at, created_at, summary, languages)
		VALUES (:id, :source, :snapshot_hash, :generated_at, :created_at, :summary, :languages)
	`, run)
	if err != nil {
		return "", apperrors.StorageError(err, "save run")
	}

	for i, f := range report.Files {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO file_risk
			(run_id, ordinal, path, name, category, area, total_commits, recent_commits,
			 developer_count, developer_list, size_estimate, lines_added_estimate,
			 lines_deleted_estimate, last_modified, change_frequency_per_week, loc,
			 complexity, content_method, bus_factor_risk, hotspot_score, is_critical,
			 critical_component, risk_category)
			VALUES
			(:run_id, :ordinal, :path, :name, :category, :area, :total_commits, :recent_commits,
			 :developer_count, :developer_list, :size_estimate, :lines_added_estimate,
			 :lines_deleted_estimate, :last_modified, :change_frequency_per_week, :loc,
			 :complexity, :content_method, :bus_factor_risk, :hotspot_score, :is_critical,
			 :critical_component, :risk_category)
		`, fileRiskRecord{
			RunID:                  run.ID,
			Ordinal:                i,
			Path:                   f.Path,
			Name:                   f.Name,
			Category:               string(f.Category),
			Area:                   string(f.Area),
			TotalCommits:           f.TotalCommits,
			RecentCommits:          f.RecentCommits,
			DeveloperCount:         f.DeveloperCount,
			DeveloperList:          joinList(f.Developers),
			SizeEstimate:           f.SizeEstimate,
			LinesAddedEstimate:     f.LinesAddedEstimate,
			LinesDeletedEstimate:   f.LinesDeletedEstimate,
			LastModified:           f.LastModified.UTC(),
			ChangeFrequencyPerWeek: f.ChangeFrequencyPerWeek,
			LOC:                    f.LOC,
			Complexity:             f.Complexity,
			ContentMethod:          string(f.ContentMethod),
			BusFactorRisk:          f.BusFactorRisk,
			HotspotScore:           f.HotspotScore,
			IsCritical:             f.IsCritical,
			CriticalComponent:      f.CriticalComponent,
			RiskCategory:           f.RiskCategory,
		})
		if err != nil {
			return "", apperrors.StorageErrorf(err, "save file risk %s", f.Path)
		}
	}

	for i, d := range report.Developers {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO developer_risk
			(run_id, ordinal, identity, display_name, files_owned, exclusive_files,
			 exclusive_files_list, total_commits, total_file_changes, ownership_percentage,
			 bus_factor_risk, risk_level)
			VALUES
			(:run_id, :ordinal, :identity, :display_name, :files_owned, :exclusive_files,
			 :exclusive_files_list, :total_commits, :total_file_changes, :ownership_percentage,
			 :bus_factor_risk, :risk_level)
		`, developerRiskRecord{
			RunID:               run.ID,
			Ordinal:             i,
			Identity:            d.Identity,
			DisplayName:         d.DisplayName,
			FilesOwned:          d.FilesOwned,
			ExclusiveFiles:      d.ExclusiveFiles,
			ExclusiveFilesList:  joinList(d.ExclusiveFilesList),
			TotalCommits:        d.TotalCommits,
			TotalFileChanges:    d.TotalFileChanges,
			OwnershipPercentage: d.OwnershipPercentage,
			BusFactorRisk:       d.BusFactorRisk,
			RiskLevel:           d.RiskLevel,
		})
		if err != nil {
			return "", apperrors.StorageErrorf(err, "save developer risk %s", d.Identity)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", apperrors.StorageError(err, "save run")
	}

	s.logger.WithFields(logrus.Fields{
		"run":        run.ID,
		"files":      len(report.Files),
		"developers": len(report.Developers),
	}).Info("Saved analysis run")
	return RunRef(run.ID), nil
}

func (s *sqlStore) LoadRun(ctx context.Context, ref string) (*risk.Report, error) {
	id, ok := ParseRunRef(ref)
	if !ok {
		return nil, apperrors.ValidationErrorf("load run: invalid ref %q", ref)
	}

	var run runRecord
	err := s.db.GetContext(ctx, &run, s.db.Rebind(`SELECT * FROM runs WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, apperrors.StorageError(err, "load run")
	}

	report := &risk.Report{GeneratedAt: run.GeneratedAt}
	if err := json.Unmarshal([]byte(run.Summary), &report.Summary); err != nil {
		return nil, apperrors.StorageError(err, "load run summary")
	}
	if err := json.Unmarshal([]byte(run.Languages), &report.Languages); err != nil {
		return nil, apperrors.StorageError(err, "load run languages")
	}

	var files []fileRiskRecord
	err = s.db.SelectContext(ctx, &files,
		s.db.Rebind(`SELECT * FROM file_risk WHERE run_id = ? ORDER BY ordinal`), id)
	if err != nil {
		return nil, apperrors.StorageError(err, "load file risk")
	}
	report.Files = make([]risk.FileRow, 0, len(files))
	for _, f := range files {
		report.Files = append(report.Files, risk.FileRow{
			Path:                   f.Path,
			Name:                   f.Name,
			Category:               classify.Category(f.Category),
			Area:                   classify.Area(f.Area),
			TotalCommits:           f.TotalCommits,
			RecentCommits:          f.RecentCommits,
			DeveloperCount:         f.DeveloperCount,
			Developers:             splitList(f.DeveloperList),
			SizeEstimate:           f.SizeEstimate,
			LinesAddedEstimate:     f.LinesAddedEstimate,
			LinesDeletedEstimate:   f.LinesDeletedEstimate,
			LastModified:           f.LastModified,
			ChangeFrequencyPerWeek: f.ChangeFrequencyPerWeek,
			LOC:                    f.LOC,
			Complexity:             f.Complexity,
			ContentMethod:          content.Method(f.ContentMethod),
			BusFactorRisk:          f.BusFactorRisk,
			HotspotScore:           f.HotspotScore,
			IsCritical:             f.IsCritical,
			CriticalComponent:      f.CriticalComponent,
			RiskCategory:           f.RiskCategory,
		})
	}

	var devs []developerRiskRecord
	err = s.db.SelectContext(ctx, &devs,
		s.db.Rebind(`SELECT * FROM developer_risk WHERE run_id = ? ORDER BY ordinal`), id)
	if err != nil {
		return nil, apperrors.StorageError(err, "load developer risk")
	}
	report.Developers = make([]risk.DeveloperRow, 0, len(devs))
	for _, d := range devs {
		report.Developers = append(report.Developers, risk.DeveloperRow{
			Identity:            d.Identity,
			DisplayName:         d.DisplayName,
			FilesOwned:          d.FilesOwned,
			ExclusiveFiles:      d.ExclusiveFiles,
			ExclusiveFilesList:  splitList(d.ExclusiveFilesList),
			TotalCommits:        d.TotalCommits,
			TotalFileChanges:    d.TotalFileChanges,
			OwnershipPercentage: d.OwnershipPercentage,
			BusFactorRisk:       d.BusFactorRisk,
			RiskLevel:           d.RiskLevel,
		})
	}
	return report, nil
}

func (s *sqlStore) Exists(ctx context.Context, ref string) (bool, error) {
	id, ok := ParseRunRef(ref)
	if !ok {
		return false, nil
	}
	var n int
	err := s.db.GetContext(ctx, &n, s.db.Rebind(`SELECT COUNT(1) FROM runs WHERE id = ?`), id)
	if err != nil {
		return false, apperrors.StorageErrorf(err, "check run %s", id)
	}
	return n > 0, nil
}
