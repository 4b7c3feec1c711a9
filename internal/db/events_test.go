package db_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dan-online/autopulse-sub000/internal/db"
	"github.com/dan-online/autopulse-sub000/internal/domain"
)

func newRepo(t *testing.T) *db.Repository {
	t.Helper()
	repo, err := db.NewRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestAdd_InsertsFreshEvent(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	now := time.Now()

	ev, err := repo.Add(ctx, domain.NewEvent{
		EventSource:    "my_sonarr",
		EventTimestamp: now,
		FilePath:       "/TV/Show/Season 1/Show.S01E01.mkv",
		FoundStatus:    domain.FoundNotFound,
		CanProcess:     now,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, domain.StatusPending, ev.ProcessStatus)
	assert.Equal(t, domain.FoundNotFound, ev.FoundStatus)
	assert.Empty(t, ev.TargetsHit)
}

func TestAdd_DedupsPendingEventBumpsCanProcess(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	now := time.Now()

	first, err := repo.Add(ctx, domain.NewEvent{
		EventSource: "my_sonarr",
		FilePath:    "/TV/Show/a.mkv",
		FoundStatus: domain.FoundNotFound,
		CanProcess:  now,
	})
	require.NoError(t, err)

	later := now.Add(30 * time.Second)
	second, err := repo.Add(ctx, domain.NewEvent{
		EventSource: "my_sonarr",
		FilePath:    "/TV/Show/a.mkv",
		FoundStatus: domain.FoundNotFound,
		CanProcess:  later,
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "dedup should reuse the same row")
	assert.WithinDuration(t, later, second.CanProcess, time.Second)
}

func TestAdd_DoesNotDedupAcrossFoundStatusWhenOfferedFound(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	now := time.Now()

	first, err := repo.Add(ctx, domain.NewEvent{
		EventSource: "my_sonarr",
		FilePath:    "/TV/Show/b.mkv",
		FoundStatus: domain.FoundNotFound,
		CanProcess:  now,
	})
	require.NoError(t, err)

	second, err := repo.Add(ctx, domain.NewEvent{
		EventSource: "my_sonarr",
		FilePath:    "/TV/Show/b.mkv",
		FoundStatus: domain.FoundFound,
		CanProcess:  now,
	})
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
}

func TestAdd_DoesNotDedupRetryEvents(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	now := time.Now()

	ev, err := repo.Add(ctx, domain.NewEvent{
		EventSource: "my_sonarr",
		FilePath:    "/TV/Show/c.mkv",
		FoundStatus: domain.FoundFound,
		CanProcess:  now,
	})
	require.NoError(t, err)

	retryAt := now.Add(4 * time.Second)
	ev.ProcessStatus = domain.StatusRetry
	ev.NextRetryAt = &retryAt
	ev.FailedTimes = 1
	require.NoError(t, repo.Save(ctx, ev))

	fresh, err := repo.Add(ctx, domain.NewEvent{
		EventSource: "my_sonarr",
		FilePath:    "/TV/Show/c.mkv",
		FoundStatus: domain.FoundFound,
		CanProcess:  now,
	})
	require.NoError(t, err)

	assert.NotEqual(t, ev.ID, fresh.ID, "a Retry event must not absorb a fresh Pending event")
}

func TestSave_RoundTripsAllFields(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	now := time.Now()

	ev, err := repo.Add(ctx, domain.NewEvent{
		EventSource: "my_sonarr",
		FilePath:    "/TV/Show/d.mkv",
		FileHash:    "deadbeef",
		FoundStatus: domain.FoundNotFound,
		CanProcess:  now,
	})
	require.NoError(t, err)

	foundAt := now
	ev.FoundStatus = domain.FoundFound
	ev.FoundAt = &foundAt
	ev.AddTargetHit("plex")
	ev.AddTargetHit("tdarr")
	require.NoError(t, repo.Save(ctx, ev))

	reloaded, err := repo.Get(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FoundFound, reloaded.FoundStatus)
	assert.ElementsMatch(t, []string{"plex", "tdarr"}, reloaded.TargetsHit)
	require.NotNil(t, reloaded.FoundAt)
}

func TestGet_NotFound(t *testing.T) {
	repo := newRepo(t)
	_, err := repo.Get(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestQueryPendingNotFound(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	now := time.Now()

	notFound, err := repo.Add(ctx, domain.NewEvent{EventSource: "s", FilePath: "/a", FoundStatus: domain.FoundNotFound, CanProcess: now})
	require.NoError(t, err)

	found, err := repo.Add(ctx, domain.NewEvent{EventSource: "s", FilePath: "/b", FoundStatus: domain.FoundFound, CanProcess: now})
	require.NoError(t, err)

	results, err := repo.QueryPendingNotFound(ctx)
	require.NoError(t, err)

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	assert.Contains(t, ids, notFound.ID)
	assert.NotContains(t, ids, found.ID)
}

func TestQueryProcessable_RespectsNextRetryAtAndCanProcess(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	now := time.Now()

	ready, err := repo.Add(ctx, domain.NewEvent{EventSource: "s", FilePath: "/ready", FoundStatus: domain.FoundFound, CanProcess: now.Add(-time.Minute)})
	require.NoError(t, err)

	notYet, err := repo.Add(ctx, domain.NewEvent{EventSource: "s", FilePath: "/future", FoundStatus: domain.FoundFound, CanProcess: now.Add(time.Hour)})
	require.NoError(t, err)

	retryFuture := now.Add(time.Hour)
	retrying, err := repo.Add(ctx, domain.NewEvent{EventSource: "s", FilePath: "/retry", FoundStatus: domain.FoundFound, CanProcess: now.Add(-time.Minute)})
	require.NoError(t, err)
	retrying.ProcessStatus = domain.StatusRetry
	retrying.NextRetryAt = &retryFuture
	require.NoError(t, repo.Save(ctx, retrying))

	results, err := repo.QueryProcessable(ctx, now, false)
	require.NoError(t, err)

	ids := make(map[string]bool)
	for _, r := range results {
		ids[r.ID] = true
	}
	assert.True(t, ids[ready.ID])
	assert.False(t, ids[notYet.ID])
	assert.False(t, ids[retrying.ID])
}

func TestQueryProcessable_RequiresFoundWhenCheckPathEnabled(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	now := time.Now()

	notFound, err := repo.Add(ctx, domain.NewEvent{EventSource: "s", FilePath: "/nf", FoundStatus: domain.FoundNotFound, CanProcess: now.Add(-time.Minute)})
	require.NoError(t, err)
	found, err := repo.Add(ctx, domain.NewEvent{EventSource: "s", FilePath: "/f", FoundStatus: domain.FoundFound, CanProcess: now.Add(-time.Minute)})
	require.NoError(t, err)

	results, err := repo.QueryProcessable(ctx, now, true)
	require.NoError(t, err)

	ids := make(map[string]bool)
	for _, r := range results {
		ids[r.ID] = true
	}
	assert.False(t, ids[notFound.ID])
	assert.True(t, ids[found.ID])
}

func TestCleanup_DeletesAgedNotFoundAndOldFailed(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	now := time.Now()

	// Fresh NotFound event, just ingested and still awaiting its file:
	// must survive cleanup regardless of found_status, or the "wait for
	// the file to appear" lifecycle (§4.4) could never complete.
	recentNotFound, err := repo.Add(ctx, domain.NewEvent{EventSource: "s", FilePath: "/nf-recent", FoundStatus: domain.FoundNotFound, CanProcess: now})
	require.NoError(t, err)

	// Aged NotFound event: found_at is old enough to clear the cutoff.
	oldNotFoundAt := now.Add(-30 * 24 * time.Hour)
	oldNotFound, err := repo.Add(ctx, domain.NewEvent{EventSource: "s", FilePath: "/nf-old", FoundStatus: domain.FoundNotFound, CanProcess: now})
	require.NoError(t, err)
	oldNotFound.FoundAt = &oldNotFoundAt
	require.NoError(t, repo.Save(ctx, oldNotFound))

	oldFailedAt := now.Add(-30 * 24 * time.Hour)
	oldFailed, err := repo.Add(ctx, domain.NewEvent{EventSource: "s", FilePath: "/old-failed", FoundStatus: domain.FoundFound, CanProcess: now})
	require.NoError(t, err)
	oldFailed.ProcessStatus = domain.StatusFailed
	oldFailed.FoundStatus = domain.FoundFound
	oldFailed.FoundAt = &oldFailedAt
	require.NoError(t, repo.Save(ctx, oldFailed))

	recentFailed, err := repo.Add(ctx, domain.NewEvent{EventSource: "s", FilePath: "/recent-failed", FoundStatus: domain.FoundFound, CanProcess: now})
	require.NoError(t, err)
	recentFailedAt := now
	recentFailed.ProcessStatus = domain.StatusFailed
	recentFailed.FoundStatus = domain.FoundFound
	recentFailed.FoundAt = &recentFailedAt
	require.NoError(t, repo.Save(ctx, recentFailed))

	deleted, err := repo.Cleanup(ctx, now.Add(-10*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = repo.Get(ctx, recentNotFound.ID)
	assert.NoError(t, err)
	_, err = repo.Get(ctx, oldNotFound.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)
	_, err = repo.Get(ctx, oldFailed.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)
	_, err = repo.Get(ctx, recentFailed.ID)
	assert.NoError(t, err)
}

func TestStats(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	now := time.Now()

	_, err := repo.Add(ctx, domain.NewEvent{EventSource: "s", FilePath: "/p1", FoundStatus: domain.FoundNotFound, CanProcess: now})
	require.NoError(t, err)

	completed, err := repo.Add(ctx, domain.NewEvent{EventSource: "s", FilePath: "/p2", FoundStatus: domain.FoundFound, CanProcess: now})
	require.NoError(t, err)
	completed.ProcessStatus = domain.StatusComplete
	require.NoError(t, repo.Save(ctx, completed))

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Processed)
}

func TestList_FiltersSortsAndPaginates(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	now := time.Now()

	for i, path := range []string{"/TV/a.mkv", "/TV/b.mkv", "/Movies/c.mkv"} {
		_, err := repo.Add(ctx, domain.NewEvent{
			EventSource: "s", FilePath: path, FoundStatus: domain.FoundNotFound,
			CanProcess: now.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	results, err := repo.List(ctx, db.ListOptions{Search: "/TV/", Sort: "file_path"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "/TV/a.mkv", results[0].FilePath)
	assert.Equal(t, "/TV/b.mkv", results[1].FilePath)

	page1, err := repo.List(ctx, db.ListOptions{Limit: 1, Page: 1, Sort: "file_path"})
	require.NoError(t, err)
	require.Len(t, page1, 1)

	page2, err := repo.List(ctx, db.ListOptions{Limit: 1, Page: 2, Sort: "file_path"})
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.NotEqual(t, page1[0].ID, page2[0].ID)
}
