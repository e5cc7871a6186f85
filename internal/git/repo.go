// Package git reads commit history and file content from a local repository
// by shelling out to the git binary.
package git

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rohankatakam/changerisk/internal/history"
)

// Repo is a local git working tree
type Repo struct {
	path string
}

// Open verifies that path is inside a git working tree and returns the repo
// rooted at its top level.
func Open(ctx context.Context, path string) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	r := &Repo{path: abs}
	root, err := r.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}
	r.path = strings.TrimSpace(root)
	return r, nil
}

// Path returns the repository root
func (r *Repo) Path() string {
	return r.path
}

// run executes git in the repository and returns stdout. Paths in the
// output are never C-quoted, so non-ASCII names match what `git show` takes.
func (r *Repo) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-c", "core.quotePath=false"}, args...)...)
	cmd.Dir = r.path
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s failed: %w (stderr: %s)", args[0], err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s failed: %w", args[0], err)
	}
	return string(output), nil
}

// RemoteURL returns the URL of the origin remote
func (r *Repo) RemoteURL(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "config", "--get", "remote.origin.url")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// HeadSHA returns the SHA of the current commit
func (r *Repo) HeadSHA(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Source identifies the repository. The origin remote supplies organization
// and name when it parses; otherwise the directory name is used.
func (r *Repo) Source(ctx context.Context) history.SourceID {
	src := history.SourceID{Platform: "git", Repository: filepath.Base(r.path)}
	remote, err := r.RemoteURL(ctx)
	if err != nil || remote == "" {
		return src
	}
	if org, repo, err := ParseRepoURL(remote); err == nil {
		src.Organization = org
		src.Repository = repo
	}
	return src
}

var (
	httpsRemote = regexp.MustCompile(`https?://[^/]+/([^/]+)/([^/]+)`)
	sshRemote   = regexp.MustCompile(`git@[^:]+:([^/]+)/([^/]+)`)
	gitRemote   = regexp.MustCompile(`git://[^/]+/([^/]+)/([^/]+)`)
)

// ParseRepoURL extracts org and repo name from a remote URL.
// Supports https://host/owner/repo, git@host:owner/repo and
// git://host/owner/repo, each with an optional .git suffix.
func ParseRepoURL(remoteURL string) (org, repo string, err error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(remoteURL), ".git")
	for _, re := range []*regexp.Regexp{httpsRemote, sshRemote, gitRemote} {
		if m := re.FindStringSubmatch(trimmed); len(m) == 3 {
			return m[1], m[2], nil
		}
	}
	return "", "", fmt.Errorf("unrecognized git URL format: %s", remoteURL)
}
