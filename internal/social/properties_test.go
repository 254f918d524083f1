package social

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCountersStayConsistentUnderRandomOperations(t *testing.T) {
	ledger := newTestLedger(t)
	actors := []AccountID{account1, account2, account3, "account4"}
	random := rand.New(rand.NewPCG(7, 11))

	pickActor := func() AccountID { return actors[random.IntN(len(actors))] }
	pickSpace := func() SpaceID { return SpaceID(random.Uint64N(uint64(ledger.NextSpaceID())) + 1) }
	pickPost := func() PostID { return PostID(random.Uint64N(uint64(ledger.NextPostID())) + 1) }
	pickKind := func() ReactionKind { return ReactionKind(random.IntN(2) + 1) }

	for step := range 600 {
		actor := pickActor()
		before := ledger.Snapshot()
		var downvote bool
		var err error

		switch random.IntN(10) {
		case 0:
			_, err = ledger.CreateSpace(actor, nil, spaceContent)
		case 1:
			space := pickSpace()
			_, err = ledger.CreatePost(actor, &space, RegularPost{}, postContent)
		case 2:
			root := pickPost()
			var parent *PostID
			if random.IntN(2) == 0 {
				candidate := pickPost()
				parent = &candidate
			}
			_, err = ledger.CreatePost(actor, nil, Comment{RootPostID: root, ParentID: parent}, commentContent)
		case 3:
			_, err = ledger.CreatePost(actor, nil, SharedPost{OriginalPostID: pickPost()}, "")
		case 4:
			kind := pickKind()
			downvote = kind == Downvote
			_, err = ledger.CreatePostReaction(actor, pickPost(), kind)
		case 5:
			post := pickPost()
			if reaction, ok := ledger.ReactionByAccount(actor, post); ok {
				kind := pickKind()
				downvote = kind == Downvote
				err = ledger.UpdatePostReaction(actor, post, reaction, kind)
			}
		case 6:
			post := pickPost()
			if reaction, ok := ledger.ReactionByAccount(actor, post); ok {
				err = ledger.DeletePostReaction(actor, post, reaction)
			}
		case 7:
			if random.IntN(2) == 0 {
				err = ledger.FollowSpace(actor, pickSpace())
			} else {
				err = ledger.UnfollowSpace(actor, pickSpace())
			}
		case 8:
			if random.IntN(2) == 0 {
				err = ledger.FollowAccount(actor, pickActor())
			} else {
				err = ledger.UnfollowAccount(actor, pickActor())
			}
		case 9:
			space := pickSpace()
			err = ledger.UpdatePost(actor, pickPost(), PostUpdate{SpaceID: &space})
		}

		after := ledger.Snapshot()
		if err != nil {
			require.Equal(t, before, after, "step %d: failed operation changed state: %v", step, err)
			continue
		}
		if downvote {
			requireNoReputationDecrease(t, before, after)
		}
		requireConsistentCounters(t, ledger, after)
	}
}

func requireNoReputationDecrease(t *testing.T, before, after Snapshot) {
	t.Helper()
	previous := make(map[AccountID]uint32, len(before.Accounts))
	for _, account := range before.Accounts {
		previous[account.ID] = account.Reputation
	}
	for _, account := range after.Accounts {
		if old, ok := previous[account.ID]; ok {
			require.GreaterOrEqual(t, account.Reputation, old, "downvote lowered reputation of %s", account.ID)
		}
	}
}

func requireConsistentCounters(t *testing.T, ledger *Ledger, snapshot Snapshot) {
	t.Helper()

	upvotes := map[PostID]uint32{}
	downvotes := map[PostID]uint32{}
	for _, reaction := range snapshot.Reactions {
		if reaction.Kind == Upvote {
			upvotes[reaction.PostID]++
		} else {
			downvotes[reaction.PostID]++
		}
	}

	for _, post := range snapshot.Posts {
		require.Equal(t, upvotes[post.ID], post.UpvotesCount, "post %d upvotes", post.ID)
		require.Equal(t, downvotes[post.ID], post.DownvotesCount, "post %d downvotes", post.ID)
		require.Equal(t, len(ledger.SharedPostIDs(post.ID)), int(post.SharesCount), "post %d shares", post.ID)
		if !post.IsComment() {
			require.Equal(t, len(ledger.CommentIDsByRoot(post.ID)), int(post.TotalRepliesCount), "post %d replies", post.ID)
		}
		if shared, ok := post.AsShared(); ok {
			original, found := ledger.Post(shared.OriginalPostID)
			require.True(t, found)
			_, doubleShare := original.AsShared()
			require.False(t, doubleShare)
		}
	}

	postScores := map[PostID]int32{}
	for _, entry := range snapshot.PostScores {
		postScores[entry.PostID] += int32(entry.Diff)
	}
	spaceScores := map[SpaceID]int32{}
	for _, entry := range snapshot.SpaceScores {
		spaceScores[entry.SpaceID] += int32(entry.Diff)
	}
	for _, post := range snapshot.Posts {
		require.Equal(t, postScores[post.ID], post.Score, "post %d score", post.ID)
		if !post.IsComment() && post.SpaceID != nil {
			spaceScores[*post.SpaceID] += post.Score
		}
	}

	for _, space := range snapshot.Spaces {
		require.Equal(t, spaceScores[space.ID], space.Score, "space %d score", space.ID)
		require.GreaterOrEqual(t, space.FollowersCount, uint32(1))
		require.Equal(t, len(ledger.SpaceFollowers(space.ID)), int(space.FollowersCount), "space %d followers", space.ID)
		require.Equal(t, len(ledger.PostIDsBySpace(space.ID)), int(space.PostsCount), "space %d posts", space.ID)
	}

	for _, account := range snapshot.Accounts {
		require.GreaterOrEqual(t, account.Reputation, uint32(1))
		require.Equal(t, len(ledger.AccountFollowers(account.ID)), int(account.FollowersCount), "%s followers", account.ID)
		require.Equal(t, len(ledger.AccountsFollowedBy(account.ID)), int(account.FollowingAccountsCount), "%s following", account.ID)
		require.Equal(t, len(ledger.SpacesFollowedBy(account.ID)), int(account.FollowingSpacesCount), "%s spaces", account.ID)
	}
}
