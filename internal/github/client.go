// Package github loads commit history and file content from the GitHub API.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/rohankatakam/changerisk/internal/history"
)

// Defaults for Options
const (
	DefaultRequestsPerSecond = 1.0
	DefaultMaxWorkers        = 8
	perPage                  = 100
)

// Options configures a Client
type Options struct {
	Token string
	// RequestsPerSecond bounds API calls; GitHub allows 5,000 per hour
	RequestsPerSecond float64
	MaxWorkers        int
	// CountPullRequests adds the number of pull requests opened in the
	// window to each snapshot
	CountPullRequests bool
	// BaseURL overrides the API endpoint (GitHub Enterprise or tests)
	BaseURL    string
	HTTPClient *http.Client
}

// Client wraps the GitHub API client with rate limiting and concurrency
type Client struct {
	client      *github.Client
	rateLimiter *rate.Limiter
	maxWorkers  int
	countPRs    bool
	owner       string
	repo        string
	logger      *slog.Logger
}

// NewClient creates a client for one repository
func NewClient(owner, repo string, opts Options) (*Client, error) {
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("github repository must be owner/name, got %q/%q", owner, repo)
	}

	client := github.NewClient(opts.HTTPClient)
	if opts.Token != "" {
		client = client.WithAuthToken(opts.Token)
	}
	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid github base url: %w", err)
		}
		client.BaseURL = u
	}

	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = DefaultMaxWorkers
	}

	return &Client{
		client:      client,
		rateLimiter: rate.NewLimiter(rate.Limit(rps), 1),
		maxWorkers:  workers,
		countPRs:    opts.CountPullRequests,
		owner:       owner,
		repo:        repo,
		logger:      slog.Default().With("component", "github", "repo", owner+"/"+repo),
	}, nil
}

// Source identifies the repository
func (c *Client) Source() history.SourceID {
	return history.SourceID{Platform: "github", Organization: c.owner, Repository: c.repo}
}

func (c *Client) wait(ctx context.Context) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// LoadHistory lists the commits in window, then fetches each commit's file
// list with bounded concurrency. Commits come back oldest first.
func (c *Client) LoadHistory(ctx context.Context, window history.Window) (*history.Snapshot, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}

	listed, err := c.listCommits(ctx, window)
	if err != nil {
		return nil, err
	}

	commits := make([]history.CommitChanges, len(listed))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxWorkers)
	for i, rc := range listed {
		i, sha := i, rc.GetSHA()
		g.Go(func() error {
			detail, err := c.fetchCommit(gctx, sha)
			if err != nil {
				return err
			}
			commits[i] = convertCommit(detail)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// the API lists newest first
	for l, r := 0, len(commits)-1; l < r; l, r = l+1, r-1 {
		commits[l], commits[r] = commits[r], commits[l]
	}

	snap := &history.Snapshot{
		Source:  c.Source(),
		Window:  window,
		Commits: commits,
	}
	if c.countPRs {
		n, err := c.countPullRequests(ctx, window)
		if err != nil {
			return nil, err
		}
		snap.PullRequestCount = n
	}

	c.logger.Info("loaded history", "commits", len(commits), "changes", snap.ChangeCount())
	return snap, nil
}

func (c *Client) listCommits(ctx context.Context, window history.Window) ([]*github.RepositoryCommit, error) {
	opts := &github.CommitsListOptions{
		Since:       window.From,
		Until:       window.To,
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var all []*github.RepositoryCommit
	for {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		page, resp, err := c.client.Repositories.ListCommits(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("fetch commits: %w", err)
		}
		all = append(all, page...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

func (c *Client) fetchCommit(ctx context.Context, sha string) (*github.RepositoryCommit, error) {
	var all *github.RepositoryCommit
	opts := &github.ListOptions{PerPage: perPage}
	for {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		rc, resp, err := c.client.Repositories.GetCommit(ctx, c.owner, c.repo, sha, opts)
		if err != nil {
			return nil, fmt.Errorf("fetch commit %s: %w", sha, err)
		}
		if all == nil {
			all = rc
		} else {
			all.Files = append(all.Files, rc.Files...)
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

func convertCommit(rc *github.RepositoryCommit) history.CommitChanges {
	author := rc.GetCommit().GetAuthor()
	var ts time.Time
	if author != nil && author.Date != nil {
		ts = author.GetDate().Time
	}

	cc := history.CommitChanges{
		Commit: history.Commit{
			ID:        rc.GetSHA(),
			Author:    history.Author{Name: author.GetName(), Email: author.GetEmail()},
			Timestamp: ts,
			Message:   rc.GetCommit().GetMessage(),
		},
	}
	for _, f := range rc.Files {
		kind, ok := history.ParseChangeKind(f.GetStatus())
		if !ok {
			continue
		}
		cc.Changes = append(cc.Changes, history.FileChange{
			Path:     f.GetFilename(),
			Kind:     kind,
			CommitID: cc.Commit.ID,
		})
	}
	return cc
}

// countPullRequests counts pull requests created inside window. Results are
// sorted newest first so paging stops at the window start.
func (c *Client) countPullRequests(ctx context.Context, window history.Window) (int, error) {
	opts := &github.PullRequestListOptions{
		State:       "all",
		Sort:        "created",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	count := 0
	for {
		if err := c.wait(ctx); err != nil {
			return 0, err
		}
		prs, resp, err := c.client.PullRequests.List(ctx, c.owner, c.repo, opts)
		if err != nil {
			return 0, fmt.Errorf("fetch pull requests: %w", err)
		}
		for _, pr := range prs {
			created := pr.GetCreatedAt().Time
			if !window.From.IsZero() && created.Before(window.From) {
				return count, nil
			}
			if window.Contains(created) {
				count++
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return count, nil
}

// FetchContent returns the decoded content of path at ref. Missing files,
// forbidden paths, directories and files too large for the contents API
// map to history.ErrContentUnavailable.
func (c *Client) FetchContent(ctx context.Context, ref, path string) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	file, _, _, err := c.client.Repositories.GetContents(ctx, c.owner, c.repo, path,
		&github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		var ghErr *github.ErrorResponse
		if errors.As(err, &ghErr) && ghErr.Response != nil {
			return "", fmt.Errorf("%w: %s@%s: status %d", history.ErrContentUnavailable, path, ref, ghErr.Response.StatusCode)
		}
		return "", fmt.Errorf("%w: %s@%s: %v", history.ErrContentUnavailable, path, ref, err)
	}
	if file == nil {
		return "", fmt.Errorf("%w: %s@%s is a directory", history.ErrContentUnavailable, path, ref)
	}

	text, err := file.GetContent()
	if err != nil {
		return "", fmt.Errorf("%w: %s@%s: %v", history.ErrContentUnavailable, path, ref, err)
	}
	return text, nil
}
