package database

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/F3Joule/subsocial-v2/internal/social"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	testContent    = "QmRAQB6YaCyidP37UdDnjFY5vQuiBrcqdyoW1CuDgwxkD4"
	testUpdated    = strings.Repeat("u", 46)
	testComment    = strings.Repeat("c", 46)
	testStartClock = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

func newTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"), zap.NewNop())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	store, err := NewSnapshotStore(StoreConfig{Database: db})
	require.NoError(t, err)
	return store
}

func testLedgerConfig() social.Config {
	now := testStartClock
	return social.Config{Clock: func() time.Time {
		now = now.Add(1500 * time.Millisecond)
		return now
	}}
}

func populatedLedger(t *testing.T) *social.Ledger {
	t.Helper()
	ledger := social.NewLedger(testLedgerConfig())

	require.NoError(t, ledger.CreateProfile("alice", "alice_handle", testContent))
	require.NoError(t, ledger.CreateProfile("bobby", "bobby_handle", ""))
	require.NoError(t, ledger.UpdateProfile("alice", social.ProfileUpdate{Content: &testUpdated}))

	handle := "alices_space"
	spaceID, err := ledger.CreateSpace("alice", &handle, testContent)
	require.NoError(t, err)
	writers := []social.AccountID{"bobby"}
	require.NoError(t, ledger.UpdateSpace("alice", spaceID, social.SpaceUpdate{Writers: &writers}))
	otherSpace, err := ledger.CreateSpace("bobby", nil, "")
	require.NoError(t, err)

	postID, err := ledger.CreatePost("alice", &spaceID, social.RegularPost{}, testContent)
	require.NoError(t, err)
	commentID, err := ledger.CreatePost("bobby", nil, social.Comment{RootPostID: postID}, testComment)
	require.NoError(t, err)
	_, err = ledger.CreatePost("carol", nil, social.Comment{RootPostID: postID, ParentID: &commentID}, testComment)
	require.NoError(t, err)
	_, err = ledger.CreatePost("bobby", &otherSpace, social.SharedPost{OriginalPostID: postID}, "")
	require.NoError(t, err)
	require.NoError(t, ledger.UpdatePost("alice", postID, social.PostUpdate{Content: &testUpdated}))

	_, err = ledger.CreatePostReaction("bobby", postID, social.Upvote)
	require.NoError(t, err)
	_, err = ledger.CreatePostReaction("carol", commentID, social.Downvote)
	require.NoError(t, err)

	require.NoError(t, ledger.FollowAccount("bobby", "alice"))
	require.NoError(t, ledger.FollowSpace("carol", spaceID))
	return ledger
}

func TestSnapshotStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ledger := populatedLedger(t)
	ctx := context.Background()

	run := ApplyRun{RunID: "run-1", Script: "seed.yaml", StartedAtNanos: 10, FinishedAtNanos: 20, Operations: 14}
	require.NoError(t, store.Save(ctx, ledger.Snapshot(), run))

	restored, err := store.LoadLedger(ctx, testLedgerConfig())
	require.NoError(t, err)
	require.Equal(t, ledger.Snapshot(), restored.Snapshot())

	owner, ok := restored.AccountByHandle("ALICE_HANDLE")
	require.True(t, ok)
	require.Equal(t, social.AccountID("alice"), owner)
	require.Len(t, restored.ProfileHistory("alice"), 1)
	require.Len(t, restored.CommentIDsByRoot(1), 2)

	runs, err := store.ListRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, run, runs[0])
}

func TestSnapshotStoreSaveReplacesState(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, populatedLedger(t).Snapshot(), ApplyRun{RunID: "run-1", StartedAtNanos: 1}))
	empty := social.NewLedger(testLedgerConfig())
	require.NoError(t, store.Save(ctx, empty.Snapshot(), ApplyRun{RunID: "run-2", StartedAtNanos: 2}))

	snapshot, err := store.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, snapshot.Accounts)
	require.Empty(t, snapshot.Posts)
	require.Equal(t, social.PostID(1), snapshot.NextPostID)

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "run-2", runs[0].RunID)
}

func TestSnapshotStoreLoadsEmptyDatabase(t *testing.T) {
	store := newTestStore(t)

	ledger, err := store.LoadLedger(context.Background(), testLedgerConfig())
	require.NoError(t, err)
	require.Equal(t, social.SpaceID(1), ledger.NextSpaceID())
	require.Empty(t, ledger.Snapshot().Accounts)
}

func TestSnapshotStoreErrors(t *testing.T) {
	_, err := NewSnapshotStore(StoreConfig{})
	var serviceErr *ServiceError
	require.True(t, errors.As(err, &serviceErr))
	require.Equal(t, "database.snapshot_store.new.missing_database", serviceErr.Code())

	store := newTestStore(t)
	err = store.Save(context.Background(), social.Snapshot{}, ApplyRun{})
	require.True(t, errors.As(err, &serviceErr))
	require.Equal(t, "database.save_snapshot.missing_run_id", serviceErr.Code())

	require.NoError(t, store.Save(context.Background(), social.Snapshot{}, ApplyRun{RunID: "dup"}))
	err = store.Save(context.Background(), populatedLedger(t).Snapshot(), ApplyRun{RunID: "dup"})
	require.True(t, errors.As(err, &serviceErr))
	require.Equal(t, "database.save_snapshot.run_insert_failed", serviceErr.Code())

	snapshot, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, snapshot.Accounts, "failed save must not leave partial state")
}

func TestUUIDProviderIssuesSortableIDs(t *testing.T) {
	provider := NewUUIDProvider()
	first, err := provider.NewID()
	require.NoError(t, err)
	second, err := provider.NewID()
	require.NoError(t, err)
	require.Len(t, first, 36)
	require.NotEqual(t, first, second)
	require.LessOrEqual(t, first[:13], second[:13])
}
