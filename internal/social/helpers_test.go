package social

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	account1 AccountID = "account1"
	account2 AccountID = "account2"
	account3 AccountID = "account3"
)

var (
	spaceContent   = "QmRAQB6YaCyidP37UdDnjFY5vQuiBrcqdyoW1CuDgwxkD4"
	postContent    = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"
	commentContent = strings.Repeat("c", 46)
	profileContent = strings.Repeat("p", 46)
	updatedContent = strings.Repeat("u", 46)
)

type steppingClock struct {
	now time.Time
}

func (c *steppingClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestLedger(t *testing.T, mutate ...func(*Config)) *Ledger {
	t.Helper()
	clock := &steppingClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cfg := Config{Clock: clock.Now}
	for _, apply := range mutate {
		apply(&cfg)
	}
	return NewLedger(cfg)
}

func mustCreateSpace(t *testing.T, ledger *Ledger, owner AccountID, handle string) SpaceID {
	t.Helper()
	var handlePtr *string
	if handle != "" {
		handlePtr = &handle
	}
	id, err := ledger.CreateSpace(owner, handlePtr, spaceContent)
	require.NoError(t, err)
	return id
}

func mustCreatePost(t *testing.T, ledger *Ledger, author AccountID, space SpaceID) PostID {
	t.Helper()
	id, err := ledger.CreatePost(author, &space, RegularPost{}, postContent)
	require.NoError(t, err)
	return id
}

func mustCreateComment(t *testing.T, ledger *Ledger, author AccountID, root PostID, parent *PostID) PostID {
	t.Helper()
	id, err := ledger.CreatePost(author, nil, Comment{RootPostID: root, ParentID: parent}, commentContent)
	require.NoError(t, err)
	return id
}

func mustReact(t *testing.T, ledger *Ledger, actor AccountID, post PostID, kind ReactionKind) ReactionID {
	t.Helper()
	id, err := ledger.CreatePostReaction(actor, post, kind)
	require.NoError(t, err)
	return id
}

func mustPost(t *testing.T, ledger *Ledger, id PostID) Post {
	t.Helper()
	post, ok := ledger.Post(id)
	require.True(t, ok, "post %d not found", id)
	return post
}

func mustSpace(t *testing.T, ledger *Ledger, id SpaceID) Space {
	t.Helper()
	space, ok := ledger.Space(id)
	require.True(t, ok, "space %d not found", id)
	return space
}

func reputationOf(ledger *Ledger, id AccountID) uint32 {
	return ledger.GetOrCreateAccount(id).Reputation
}

func ptr[T any](value T) *T {
	return &value
}
