// Package history holds the commit and file-change model consumed by the
// risk aggregator. Values are immutable once produced by a source.
package history

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrContentUnavailable is returned by content sources when a file's content
// at a ref cannot be retrieved. Callers degrade to estimate-only metrics.
var ErrContentUnavailable = errors.New("content unavailable")

// UnknownIdentity is the developer identity used when a commit has no email.
const UnknownIdentity = "unknown@unknown.com"

// ChangeKind is the kind of modification a commit made to a path
type ChangeKind string

const (
	KindAdd    ChangeKind = "add"
	KindEdit   ChangeKind = "edit"
	KindDelete ChangeKind = "delete"
)

// ParseChangeKind maps platform change types to a ChangeKind.
// Renames are edits of the new path.
func ParseChangeKind(s string) (ChangeKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "add", "added", "a":
		return KindAdd, true
	case "edit", "modified", "changed", "m", "t", "rename", "renamed", "r", "copied", "c":
		return KindEdit, true
	case "delete", "removed", "deleted", "d":
		return KindDelete, true
	}
	return "", false
}

// Author identifies the author of a commit
type Author struct {
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
}

// Identity returns the normalized developer key for this author
func (a Author) Identity() string {
	return NormalizeIdentity(a.Email)
}

// Commit represents a single commit in the analysis window
type Commit struct {
	ID        string    `json:"id" yaml:"id"`
	Author    Author    `json:"author" yaml:"author"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Message   string    `json:"message,omitempty" yaml:"message,omitempty"`
}

// FileChange is one path touched by a commit
type FileChange struct {
	Path     string     `json:"path" yaml:"path"`
	Kind     ChangeKind `json:"kind" yaml:"kind"`
	IsFolder bool       `json:"is_folder,omitempty" yaml:"is_folder,omitempty"`
	CommitID string     `json:"commit_id" yaml:"commit_id"`
}

// CommitChanges pairs a commit with the changes it made
type CommitChanges struct {
	Commit  Commit       `json:"commit" yaml:"commit"`
	Changes []FileChange `json:"changes" yaml:"changes"`
}

// Window is the inclusive date range of an analysis pass
type Window struct {
	From time.Time `json:"from" yaml:"from"`
	To   time.Time `json:"to" yaml:"to"`
}

// Contains reports whether t falls inside the window
func (w Window) Contains(t time.Time) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && t.After(w.To) {
		return false
	}
	return true
}

// Validate rejects inverted windows
func (w Window) Validate() error {
	if !w.From.IsZero() && !w.To.IsZero() && w.To.Before(w.From) {
		return fmt.Errorf("window end %s is before start %s",
			w.To.Format(time.RFC3339), w.From.Format(time.RFC3339))
	}
	return nil
}

// SourceID names the repository a snapshot came from
type SourceID struct {
	Platform     string `json:"platform" yaml:"platform"`
	Organization string `json:"organization" yaml:"organization"`
	Project      string `json:"project" yaml:"project"`
	Repository   string `json:"repository" yaml:"repository"`
}

func (s SourceID) String() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{s.Organization, s.Project, s.Repository} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return s.Platform + ":" + strings.Join(parts, "/")
}

// Snapshot is the complete input to one analysis pass
type Snapshot struct {
	Source           SourceID        `json:"source" yaml:"source"`
	Window           Window          `json:"window" yaml:"window"`
	Commits          []CommitChanges `json:"commits" yaml:"commits"`
	PullRequestCount int             `json:"pull_request_count" yaml:"pull_request_count"`
}

// CommitIDs returns the commit ids in stream order
func (s *Snapshot) CommitIDs() []string {
	ids := make([]string, 0, len(s.Commits))
	for _, cc := range s.Commits {
		ids = append(ids, cc.Commit.ID)
	}
	return ids
}

// DetailedKeys returns one "commit:path" key per change
func (s *Snapshot) DetailedKeys() []string {
	var keys []string
	for _, cc := range s.Commits {
		for _, ch := range cc.Changes {
			keys = append(keys, cc.Commit.ID+":"+ch.Path)
		}
	}
	return keys
}

// ChangeCount returns the total number of file changes
func (s *Snapshot) ChangeCount() int {
	n := 0
	for _, cc := range s.Commits {
		n += len(cc.Changes)
	}
	return n
}

// LatestRefs maps each path to the most recent commit that did not delete
// it. Content for a path is fetched at that ref.
func (s *Snapshot) LatestRefs() map[string]string {
	type seen struct {
		ref string
		at  time.Time
	}
	latest := make(map[string]seen)
	for _, cc := range s.Commits {
		for _, ch := range cc.Changes {
			if ch.IsFolder || ch.Path == "" {
				continue
			}
			prev, ok := latest[ch.Path]
			if ok && cc.Commit.Timestamp.Before(prev.at) {
				continue
			}
			if ch.Kind == KindDelete {
				delete(latest, ch.Path)
				continue
			}
			latest[ch.Path] = seen{ref: cc.Commit.ID, at: cc.Commit.Timestamp}
		}
	}

	refs := make(map[string]string, len(latest))
	for path, s := range latest {
		refs[path] = s.ref
	}
	return refs
}

// SortedPaths returns map keys in lexical order
func SortedPaths(m map[string]string) []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// NormalizeIdentity lower-cases and trims an email; empty becomes
// UnknownIdentity.
func NormalizeIdentity(email string) string {
	id := strings.ToLower(strings.TrimSpace(email))
	if id == "" {
		return UnknownIdentity
	}
	return id
}
