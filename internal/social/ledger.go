// Package social is the state-transition core of the social graph: accounts and
// profiles, spaces, posts with threaded comments and shares, reactions, follow
// graphs, and the reputation-weighted scoring that ties them together.
//
// Every exported mutation runs as one transaction against the in-memory state:
// it either commits all of its writes or none. The package performs no I/O and
// no logging; callers serialize access.
package social

import (
	"slices"
	"strings"
	"time"

	"github.com/F3Joule/subsocial-v2/internal/scoring"
	"github.com/F3Joule/subsocial-v2/internal/validation"
	"github.com/samber/lo"
)

const DefaultMaxCommentDepth = 10

// Config wires the ledger to its collaborators. Zero values select defaults.
type Config struct {
	Limits          validation.Limits
	Weights         scoring.Weights
	MaxCommentDepth int
	Clock           func() time.Time
	// Scoring replaces the built-in scoring engine as the capability invoked by
	// follows, comments, shares and reactions.
	Scoring   ScoreKeeper
	Observers []UpdateObserver
	Events    EventSink
}

type accountPair struct {
	Follower AccountID
	Target   AccountID
}

type spaceFollowKey struct {
	Follower AccountID
	SpaceID  SpaceID
}

type accountPostKey struct {
	Account AccountID
	PostID  PostID
}

type postScoreKey struct {
	Account AccountID
	PostID  PostID
	Action  scoring.Action
}

type spaceScoreKey struct {
	Account AccountID
	SpaceID SpaceID
	Action  scoring.Action
}

type reputationKey struct {
	Target AccountID
	Actor  AccountID
	Action scoring.Action
}

// ReputationEntry is the reputation actually applied to a target account by one
// actor for one action, summed over the events that are still in effect.
type ReputationEntry struct {
	Applied int32
	Count   uint32
}

// Ledger owns the whole social state. It is not safe for concurrent use.
type Ledger struct {
	validator       validation.Validator
	weights         scoring.Weights
	maxCommentDepth int
	clock           func() time.Time
	engine          *scoringEngine
	scorer          ScoreKeeper
	history         *historyRecorder
	observers       []UpdateObserver
	events          EventSink
	journal         *journal
	pending         []Event

	accounts       *table[AccountID, SocialAccount]
	profileHandles *table[string, AccountID]
	profileHistory *table[AccountID, []ProfileHistoryEntry]

	spaces          *table[SpaceID, Space]
	spaceHandles    *table[string, SpaceID]
	spaceIDsByOwner *table[AccountID, []SpaceID]

	posts                   *table[PostID, Post]
	postIDsBySpace          *table[SpaceID, []PostID]
	replyIDsByParent        *table[PostID, []PostID]
	sharedPostIDsByOriginal *table[PostID, []PostID]
	postSharesByAccount     *table[accountPostKey, uint16]

	reactions             *table[ReactionID, Reaction]
	reactionIDsByPost     *table[PostID, []ReactionID]
	reactionByAccountPost *table[accountPostKey, ReactionID]

	accountFollowers          *table[AccountID, []AccountID]
	accountsFollowedByAccount *table[AccountID, []AccountID]
	accountFollowEdges        *table[accountPair, uint64]
	spaceFollowers            *table[SpaceID, []AccountID]
	spacesFollowedByAccount   *table[AccountID, []SpaceID]
	spaceFollowEdges          *table[spaceFollowKey, uint64]

	postScores       *table[postScoreKey, int16]
	spaceScores      *table[spaceScoreKey, int16]
	reputationLedger *table[reputationKey, ReputationEntry]

	nextSpaceID    *cell[uint64]
	nextPostID     *cell[uint64]
	nextReactionID *cell[uint64]
	followSequence *cell[uint64]
}

// NewLedger constructs an empty ledger.
func NewLedger(cfg Config) *Ledger {
	weights := cfg.Weights
	if weights == (scoring.Weights{}) {
		weights = scoring.DefaultWeights()
	}
	maxDepth := cfg.MaxCommentDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxCommentDepth
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	j := &journal{}
	ledger := &Ledger{
		validator:       validation.NewValidator(cfg.Limits),
		weights:         weights,
		maxCommentDepth: maxDepth,
		clock:           clock,
		observers:       slices.Clone(cfg.Observers),
		events:          cfg.Events,
		journal:         j,

		accounts:       newTable[AccountID, SocialAccount](j),
		profileHandles: newTable[string, AccountID](j),
		profileHistory: newTable[AccountID, []ProfileHistoryEntry](j),

		spaces:          newTable[SpaceID, Space](j),
		spaceHandles:    newTable[string, SpaceID](j),
		spaceIDsByOwner: newTable[AccountID, []SpaceID](j),

		posts:                   newTable[PostID, Post](j),
		postIDsBySpace:          newTable[SpaceID, []PostID](j),
		replyIDsByParent:        newTable[PostID, []PostID](j),
		sharedPostIDsByOriginal: newTable[PostID, []PostID](j),
		postSharesByAccount:     newTable[accountPostKey, uint16](j),

		reactions:             newTable[ReactionID, Reaction](j),
		reactionIDsByPost:     newTable[PostID, []ReactionID](j),
		reactionByAccountPost: newTable[accountPostKey, ReactionID](j),

		accountFollowers:          newTable[AccountID, []AccountID](j),
		accountsFollowedByAccount: newTable[AccountID, []AccountID](j),
		accountFollowEdges:        newTable[accountPair, uint64](j),
		spaceFollowers:            newTable[SpaceID, []AccountID](j),
		spacesFollowedByAccount:   newTable[AccountID, []SpaceID](j),
		spaceFollowEdges:          newTable[spaceFollowKey, uint64](j),

		postScores:       newTable[postScoreKey, int16](j),
		spaceScores:      newTable[spaceScoreKey, int16](j),
		reputationLedger: newTable[reputationKey, ReputationEntry](j),

		nextSpaceID:    &cell[uint64]{value: 1, journal: j},
		nextPostID:     &cell[uint64]{value: 1, journal: j},
		nextReactionID: &cell[uint64]{value: 1, journal: j},
		followSequence: &cell[uint64]{value: 0, journal: j},
	}
	ledger.engine = &scoringEngine{ledger: ledger}
	ledger.history = &historyRecorder{ledger: ledger}
	ledger.scorer = cfg.Scoring
	if ledger.scorer == nil {
		ledger.scorer = ledger.engine
	}
	return ledger
}

// atomically runs mutate as one transaction. On error or panic every write made
// by mutate is undone; on success the buffered events are published.
func (l *Ledger) atomically(mutate func() error) (err error) {
	l.journal.begin()
	l.pending = l.pending[:0]
	committed := false
	defer func() {
		if !committed {
			l.journal.rollback()
			l.pending = l.pending[:0]
		}
	}()

	if err = mutate(); err != nil {
		return err
	}
	l.journal.commit()
	committed = true

	events := slices.Clone(l.pending)
	l.pending = l.pending[:0]
	if l.events != nil {
		for _, event := range events {
			l.events.Publish(event)
		}
	}
	return nil
}

func (l *Ledger) stamp(actor AccountID) WhoAndWhen {
	return WhoAndWhen{Account: actor, At: l.clock().UTC()}
}

func (l *Ledger) emit(event Event) {
	l.pending = append(l.pending, event)
}

// account returns the stored record or a fresh one with reputation 1. A fresh
// record is only kept once the caller writes it back.
func (l *Ledger) account(id AccountID) SocialAccount {
	if account, ok := l.accounts.get(id); ok {
		account.Profile = cloneProfile(account.Profile)
		return account
	}
	return SocialAccount{ID: id, Reputation: 1}
}

func requireAccountID(id AccountID) error {
	if strings.TrimSpace(string(id)) == "" {
		return ErrMissingAccountID
	}
	return nil
}

func appendIndex[K comparable, V any](index *table[K, []V], key K, value V) {
	current, _ := index.get(key)
	next := make([]V, 0, len(current)+1)
	next = append(next, current...)
	index.put(key, append(next, value))
}

func removeIndex[K comparable, V comparable](index *table[K, []V], key K, value V) {
	current, ok := index.get(key)
	if !ok {
		return
	}
	remaining := lo.Without(current, value)
	if len(remaining) == 0 {
		index.remove(key)
		return
	}
	index.put(key, remaining)
}
