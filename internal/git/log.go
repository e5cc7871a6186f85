package git

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rohankatakam/changerisk/internal/history"
)

const (
	recordSep = "\x1e"
	fieldSep  = "\x1f"
)

// logFormat emits one header line per commit: id, author name, author email,
// strict ISO author date and subject.
var logFormat = "--pretty=format:" + recordSep + "%H" + fieldSep + "%an" + fieldSep + "%ae" + fieldSep + "%aI" + fieldSep + "%s"

// LoadHistory reads the commits inside window with their file changes.
// Merge commits contribute no changes. Commits come back oldest first.
func (r *Repo) LoadHistory(ctx context.Context, window history.Window) (*history.Snapshot, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}

	args := []string{"log", "--name-status", "-M", "--no-color", "--reverse", logFormat}
	if !window.From.IsZero() {
		args = append(args, "--since="+window.From.Format(time.RFC3339))
	}
	if !window.To.IsZero() {
		args = append(args, "--until="+window.To.Format(time.RFC3339))
	}

	out, err := r.run(ctx, args...)
	if err != nil {
		// an empty repository has no HEAD to log from
		if strings.Contains(err.Error(), "does not have any commits") {
			return &history.Snapshot{Source: r.Source(ctx), Window: window}, nil
		}
		return nil, err
	}

	commits, err := ParseLog(out)
	if err != nil {
		return nil, err
	}

	snap := &history.Snapshot{
		Source:  r.Source(ctx),
		Window:  window,
		Commits: commits,
	}
	slog.Default().With("component", "git").Debug("loaded history",
		"repo", r.path,
		"commits", len(commits),
		"changes", snap.ChangeCount())
	return snap, nil
}

// ParseLog parses `git log --name-status` output produced with logFormat.
// A header whose date does not parse yields a commit with a zero timestamp,
// which the aggregator skips and counts.
func ParseLog(output string) ([]history.CommitChanges, error) {
	var (
		commits []history.CommitChanges
		current *history.CommitChanges
	)

	flush := func() {
		if current != nil {
			commits = append(commits, *current)
			current = nil
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, recordSep) {
			flush()
			current = parseHeader(strings.TrimPrefix(line, recordSep))
			continue
		}

		if current == nil || strings.TrimSpace(line) == "" {
			continue
		}

		if ch, ok := parseStatusLine(line); ok {
			ch.CommitID = current.Commit.ID
			current.Changes = append(current.Changes, ch)
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning git log output: %w", err)
	}
	return commits, nil
}

func parseHeader(line string) *history.CommitChanges {
	parts := strings.SplitN(line, fieldSep, 5)
	for len(parts) < 5 {
		parts = append(parts, "")
	}

	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(parts[3]))
	if err != nil {
		ts = time.Time{}
	}

	return &history.CommitChanges{
		Commit: history.Commit{
			ID:        strings.TrimSpace(parts[0]),
			Author:    history.Author{Name: parts[1], Email: parts[2]},
			Timestamp: ts,
			Message:   parts[4],
		},
	}
}

// parseStatusLine handles "M\tpath", "R087\told\tnew" and "C100\tsrc\tdst".
// Renames and copies are edits of the destination path.
func parseStatusLine(line string) (history.FileChange, bool) {
	fields := strings.Split(line, "\t")
	if len(fields) < 2 || fields[0] == "" {
		return history.FileChange{}, false
	}

	kind, ok := history.ParseChangeKind(fields[0][:1])
	if !ok {
		return history.FileChange{}, false
	}

	return history.FileChange{
		Path: fields[len(fields)-1],
		Kind: kind,
	}, true
}
