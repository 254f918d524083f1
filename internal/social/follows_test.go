package social

import (
	"testing"

	"github.com/F3Joule/subsocial-v2/internal/scoring"
	"github.com/stretchr/testify/require"
)

func TestFollowAccount(t *testing.T) {
	ledger := newTestLedger(t)

	require.NoError(t, ledger.FollowAccount(account2, account1))

	require.Equal(t, []AccountID{account1}, ledger.AccountsFollowedBy(account2))
	require.Equal(t, []AccountID{account2}, ledger.AccountFollowers(account1))
	require.True(t, ledger.IsAccountFollower(account2, account1))
	require.False(t, ledger.IsAccountFollower(account1, account2))

	follower := ledger.GetOrCreateAccount(account2)
	followed := ledger.GetOrCreateAccount(account1)
	require.Equal(t, uint16(1), follower.FollowingAccountsCount)
	require.Equal(t, uint32(1), followed.FollowersCount)
	require.Equal(t, uint32(1+3), followed.Reputation)
	require.Equal(t, uint32(1), follower.Reputation)

	entry, ok := ledger.ReputationEntry(account1, account2, scoring.FollowAccount)
	require.True(t, ok)
	require.Equal(t, ReputationEntry{Applied: 3, Count: 1}, entry)
}

func TestFollowAccountFailures(t *testing.T) {
	ledger := newTestLedger(t)

	require.ErrorIs(t, ledger.FollowAccount(account2, account2), ErrCannotFollowSelf)
	require.NoError(t, ledger.FollowAccount(account2, account1))
	require.ErrorIs(t, ledger.FollowAccount(account2, account1), ErrAlreadyFollowingAccount)
	require.Equal(t, uint32(1), ledger.GetOrCreateAccount(account1).FollowersCount)
}

func TestUnfollowAccountRestoresReputation(t *testing.T) {
	ledger := newTestLedger(t)
	require.NoError(t, ledger.FollowAccount(account2, account1))

	require.NoError(t, ledger.UnfollowAccount(account2, account1))

	require.Empty(t, ledger.AccountsFollowedBy(account2))
	require.Empty(t, ledger.AccountFollowers(account1))
	require.False(t, ledger.IsAccountFollower(account2, account1))
	require.Zero(t, ledger.GetOrCreateAccount(account1).FollowersCount)
	require.Zero(t, ledger.GetOrCreateAccount(account2).FollowingAccountsCount)
	require.Equal(t, uint32(1), reputationOf(ledger, account1))
	_, ok := ledger.ReputationEntry(account1, account2, scoring.FollowAccount)
	require.False(t, ok)
}

func TestUnfollowAccountFailures(t *testing.T) {
	ledger := newTestLedger(t)

	require.ErrorIs(t, ledger.UnfollowAccount(account2, account2), ErrCannotUnfollowSelf)
	require.ErrorIs(t, ledger.UnfollowAccount(account2, account1), ErrNotFollowingAccount)

	require.NoError(t, ledger.FollowAccount(account2, account1))
	require.NoError(t, ledger.UnfollowAccount(account2, account1))
	require.ErrorIs(t, ledger.UnfollowAccount(account2, account1), ErrNotFollowingAccount)
}

func TestFollowSpaceScoresSpaceAndOwner(t *testing.T) {
	ledger := newTestLedger(t)
	space := mustCreateSpace(t, ledger, account1, "blog_handle")

	require.NoError(t, ledger.FollowSpace(account2, space))

	stored := mustSpace(t, ledger, space)
	require.Equal(t, uint32(2), stored.FollowersCount)
	require.Equal(t, int32(7), stored.Score)
	require.Equal(t, []AccountID{account1, account2}, ledger.SpaceFollowers(space))
	require.Equal(t, []SpaceID{space}, ledger.SpacesFollowedBy(account2))
	require.Equal(t, uint32(8), reputationOf(ledger, account1))
	require.Equal(t, uint32(1), reputationOf(ledger, account2))
	require.Equal(t, uint16(1), ledger.GetOrCreateAccount(account2).FollowingSpacesCount)

	diff, ok := ledger.SpaceScoreEntry(account2, space, scoring.FollowSpace)
	require.True(t, ok)
	require.Equal(t, int16(7), diff)
}

func TestUnfollowSpaceRevertsScore(t *testing.T) {
	ledger := newTestLedger(t)
	space := mustCreateSpace(t, ledger, account1, "blog_handle")
	require.NoError(t, ledger.FollowSpace(account2, space))

	require.NoError(t, ledger.UnfollowSpace(account2, space))

	stored := mustSpace(t, ledger, space)
	require.Equal(t, uint32(1), stored.FollowersCount)
	require.Zero(t, stored.Score)
	require.Equal(t, []AccountID{account1}, ledger.SpaceFollowers(space))
	require.Empty(t, ledger.SpacesFollowedBy(account2))
	require.Equal(t, uint32(1), reputationOf(ledger, account1))
	require.Equal(t, uint32(1), reputationOf(ledger, account2))
	_, ok := ledger.SpaceScoreEntry(account2, space, scoring.FollowSpace)
	require.False(t, ok)
}

func TestFollowSpaceFailures(t *testing.T) {
	ledger := newTestLedger(t)
	space := mustCreateSpace(t, ledger, account1, "blog_handle")

	require.ErrorIs(t, ledger.FollowSpace(account2, 99), ErrSpaceNotFound)
	require.ErrorIs(t, ledger.FollowSpace(account1, space), ErrAlreadyFollowingSpace)
	require.ErrorIs(t, ledger.UnfollowSpace(account2, space), ErrNotFollowingSpace)
	require.ErrorIs(t, ledger.UnfollowSpace(account1, space), ErrCannotUnfollowOwnSpace)
	require.ErrorIs(t, ledger.UnfollowSpace(account2, 99), ErrSpaceNotFound)

	require.NoError(t, ledger.FollowSpace(account2, space))
	require.ErrorIs(t, ledger.FollowSpace(account2, space), ErrAlreadyFollowingSpace)
	require.Equal(t, uint32(2), mustSpace(t, ledger, space).FollowersCount)
}

func TestReversalUsesRecordedDelta(t *testing.T) {
	ledger := newTestLedger(t)
	space := mustCreateSpace(t, ledger, account1, "blog_handle")
	require.NoError(t, ledger.FollowSpace(account2, space))

	// Raise the owner's reputation so a fresh computation would differ.
	require.NoError(t, ledger.FollowAccount(account3, account1))
	require.Equal(t, uint32(1+7+12), reputationOf(ledger, account1))

	require.NoError(t, ledger.UnfollowSpace(account2, space))

	require.Zero(t, mustSpace(t, ledger, space).Score)
	require.Equal(t, uint32(1+12), reputationOf(ledger, account1))
}
