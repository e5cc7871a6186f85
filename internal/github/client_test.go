package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rohankatakam/changerisk/internal/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commitJSON(sha, email, date string, files ...string) string {
	body := fmt.Sprintf(`{"sha":%q,"commit":{"author":{"name":"Dev","email":%q,"date":%q},"message":"msg %s"}`, sha, email, date, sha)
	if len(files) == 0 {
		return body + "}"
	}
	list := ""
	for i := 0; i < len(files); i += 2 {
		if list != "" {
			list += ","
		}
		list += fmt.Sprintf(`{"filename":%q,"status":%q}`, files[i], files[i+1])
	}
	return body + `,"files":[` + list + `]}`
}

func newTestClient(t *testing.T, mux *http.ServeMux, countPRs bool) *Client {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	c, err := NewClient("acme", "api", Options{
		RequestsPerSecond: 1000,
		MaxWorkers:        4,
		CountPullRequests: countPRs,
		BaseURL:           server.URL,
	})
	require.NoError(t, err)
	return c
}

func TestClient_LoadHistory(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/api/commits", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("since"))
		fmt.Fprintf(w, "[%s,%s]",
			commitJSON("s2", "bob@example.com", "2024-02-01T00:00:00Z"),
			commitJSON("s1", "alice@example.com", "2024-01-01T00:00:00Z"))
	})
	mux.HandleFunc("/repos/acme/api/commits/s1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, commitJSON("s1", "alice@example.com", "2024-01-01T00:00:00Z",
			"a.go", "added", "b.go", "modified"))
	})
	mux.HandleFunc("/repos/acme/api/commits/s2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, commitJSON("s2", "bob@example.com", "2024-02-01T00:00:00Z",
			"a.go", "removed", "c.go", "renamed", "d.go", "unchanged"))
	})
	mux.HandleFunc("/repos/acme/api/pulls", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "all", r.URL.Query().Get("state"))
		fmt.Fprint(w, `[
			{"number":3,"created_at":"2024-02-10T00:00:00Z"},
			{"number":2,"created_at":"2024-01-10T00:00:00Z"},
			{"number":1,"created_at":"2023-06-01T00:00:00Z"}
		]`)
	})

	c := newTestClient(t, mux, true)
	window := history.Window{
		From: time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	snap, err := c.LoadHistory(context.Background(), window)
	require.NoError(t, err)

	assert.Equal(t, history.SourceID{Platform: "github", Organization: "acme", Repository: "api"}, snap.Source)
	assert.Equal(t, 2, snap.PullRequestCount)
	require.Len(t, snap.Commits, 2)

	first := snap.Commits[0]
	assert.Equal(t, "s1", first.Commit.ID)
	assert.Equal(t, "alice@example.com", first.Commit.Author.Email)
	assert.True(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Equal(first.Commit.Timestamp))
	assert.Equal(t, []history.FileChange{
		{Path: "a.go", Kind: history.KindAdd, CommitID: "s1"},
		{Path: "b.go", Kind: history.KindEdit, CommitID: "s1"},
	}, first.Changes)

	second := snap.Commits[1]
	assert.Equal(t, []history.FileChange{
		{Path: "a.go", Kind: history.KindDelete, CommitID: "s2"},
		{Path: "c.go", Kind: history.KindEdit, CommitID: "s2"},
	}, second.Changes)
}

func TestClient_LoadHistoryPropagatesDetailFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/api/commits", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "[%s]", commitJSON("s1", "a@example.com", "2024-01-01T00:00:00Z"))
	})
	mux.HandleFunc("/repos/acme/api/commits/s1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"message":"boom"}`)
	})

	c := newTestClient(t, mux, false)
	_, err := c.LoadHistory(context.Background(), history.Window{})
	assert.Error(t, err)
}

func TestClient_FetchContent(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/api/contents/src/a.go", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "s1", r.URL.Query().Get("ref"))
		enc := base64.StdEncoding.EncodeToString([]byte("package a\n"))
		fmt.Fprintf(w, `{"type":"file","encoding":"base64","path":"src/a.go","content":%q}`, enc)
	})
	mux.HandleFunc("/repos/acme/api/contents/src/missing.go", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	})
	mux.HandleFunc("/repos/acme/api/contents/src/huge.bin", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"type":"file","encoding":"none","path":"src/huge.bin","content":""}`)
	})
	mux.HandleFunc("/repos/acme/api/contents/src", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"type":"file","path":"src/a.go"}]`)
	})

	c := newTestClient(t, mux, false)
	ctx := context.Background()

	text, err := c.FetchContent(ctx, "s1", "src/a.go")
	require.NoError(t, err)
	assert.Equal(t, "package a\n", text)
	assert.Equal(t, int32(1), calls.Load())

	for _, path := range []string{"src/missing.go", "src/huge.bin", "src"} {
		_, err := c.FetchContent(ctx, "s1", path)
		assert.ErrorIs(t, err, history.ErrContentUnavailable, path)
	}
}

func TestNewClient_RequiresRepository(t *testing.T) {
	_, err := NewClient("", "api", Options{})
	assert.Error(t, err)
}
