package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/rohankatakam/changerisk/internal/history"
)

// SnapshotState is the fingerprint of an analysis input
type SnapshotState struct {
	CommitIDs        []string
	DetailedKeys     []string
	PullRequestCount int
	DateFrom         time.Time
	DateTo           time.Time
	Source           history.SourceID
}

// StateFromSnapshot derives the cache fingerprint of a snapshot
func StateFromSnapshot(s *history.Snapshot) SnapshotState {
	if s == nil {
		return SnapshotState{}
	}
	return SnapshotState{
		CommitIDs:        s.CommitIDs(),
		DetailedKeys:     s.DetailedKeys(),
		PullRequestCount: s.PullRequestCount,
		DateFrom:         s.Window.From,
		DateTo:           s.Window.To,
		Source:           s.Source,
	}
}

// canonicalState has a fixed field order so its JSON encoding is stable
type canonicalState struct {
	CommitCount      int    `json:"commit_count"`
	DetailedCount    int    `json:"detailed_count"`
	PullRequestCount int    `json:"pull_request_count"`
	DateFrom         string `json:"date_from"`
	DateTo           string `json:"date_to"`
	Platform         string `json:"platform"`
	Organization     string `json:"organization"`
	Project          string `json:"project"`
	Repository       string `json:"repository"`
	CommitsHash      string `json:"commits_hash"`
	DetailsHash      string `json:"details_hash"`
}

// SnapshotHash returns a hex SHA-256 of the state. Input order of the id and
// key lists does not affect the result.
func SnapshotHash(state SnapshotState) string {
	c := canonicalState{
		CommitCount:      len(state.CommitIDs),
		DetailedCount:    len(state.DetailedKeys),
		PullRequestCount: state.PullRequestCount,
		DateFrom:         formatTime(state.DateFrom),
		DateTo:           formatTime(state.DateTo),
		Platform:         state.Source.Platform,
		Organization:     state.Source.Organization,
		Project:          state.Source.Project,
		Repository:       state.Source.Repository,
		CommitsHash:      hashSorted(state.CommitIDs),
		DetailsHash:      hashSorted(state.DetailedKeys),
	}

	// marshalling a struct of strings and ints cannot fail
	data, _ := json.Marshal(c)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func hashSorted(values []string) string {
	sorted := make([]string, len(values))
	copy(sorted, values)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "\n")))
	return hex.EncodeToString(sum[:])
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
