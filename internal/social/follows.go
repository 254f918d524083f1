package social

import (
	"fmt"

	"github.com/F3Joule/subsocial-v2/internal/scoring"
)

// FollowAccount makes actor follow target.
func (l *Ledger) FollowAccount(actor, target AccountID) error {
	if err := requireAccountID(actor); err != nil {
		return err
	}
	if err := requireAccountID(target); err != nil {
		return err
	}
	if actor == target {
		return ErrCannotFollowSelf
	}
	return l.atomically(func() error {
		edge := accountPair{Follower: actor, Target: target}
		if l.accountFollowEdges.has(edge) {
			return ErrAlreadyFollowingAccount
		}

		follower := l.account(actor)
		follower.FollowingAccountsCount = scoring.AddUint16(follower.FollowingAccountsCount, 1)
		l.accounts.put(actor, follower)

		followed := l.account(target)
		followed.FollowersCount = scoring.AddUint32(followed.FollowersCount, 1)
		l.accounts.put(target, followed)

		l.accountFollowEdges.put(edge, l.nextFollowSequence())
		appendIndex(l.accountFollowers, target, actor)
		appendIndex(l.accountsFollowedByAccount, actor, target)

		if err := l.scorer.AccountFollowed(actor, target); err != nil {
			return err
		}
		l.emit(Event{Name: EventAccountFollowed, Actor: actor, Account: target})
		return nil
	})
}

// UnfollowAccount removes the follow edge and reverses the reputation it added.
func (l *Ledger) UnfollowAccount(actor, target AccountID) error {
	if actor == target {
		return ErrCannotUnfollowSelf
	}
	return l.atomically(func() error {
		edge := accountPair{Follower: actor, Target: target}
		if !l.accountFollowEdges.has(edge) {
			return ErrNotFollowingAccount
		}

		follower := l.account(actor)
		follower.FollowingAccountsCount = scoring.AddUint16(follower.FollowingAccountsCount, -1)
		l.accounts.put(actor, follower)

		followed := l.account(target)
		followed.FollowersCount = scoring.AddUint32(followed.FollowersCount, -1)
		l.accounts.put(target, followed)

		l.accountFollowEdges.remove(edge)
		removeIndex(l.accountFollowers, target, actor)
		removeIndex(l.accountsFollowedByAccount, actor, target)

		if err := l.scorer.AccountUnfollowed(actor, target); err != nil {
			return err
		}
		l.emit(Event{Name: EventAccountUnfollowed, Actor: actor, Account: target})
		return nil
	})
}

// FollowSpace makes actor follow the space.
func (l *Ledger) FollowSpace(actor AccountID, id SpaceID) error {
	if err := requireAccountID(actor); err != nil {
		return err
	}
	return l.atomically(func() error {
		space, ok := l.spaces.get(id)
		if !ok {
			return fmt.Errorf("%w: %d", ErrSpaceNotFound, id)
		}
		if l.spaceFollowEdges.has(spaceFollowKey{Follower: actor, SpaceID: id}) {
			return ErrAlreadyFollowingSpace
		}

		follower := l.account(actor)
		follower.FollowingSpacesCount = scoring.AddUint16(follower.FollowingSpacesCount, 1)
		l.accounts.put(actor, follower)

		space.FollowersCount = scoring.AddUint32(space.FollowersCount, 1)
		l.spaces.put(id, space)
		l.linkSpaceFollower(actor, id)

		if err := l.scorer.SpaceFollowed(actor, id); err != nil {
			return err
		}
		l.emit(Event{Name: EventSpaceFollowed, Actor: actor, SpaceID: id})
		return nil
	})
}

// UnfollowSpace removes the follow edge and reverses the score it added. The
// owner's own follow cannot be removed.
func (l *Ledger) UnfollowSpace(actor AccountID, id SpaceID) error {
	return l.atomically(func() error {
		space, ok := l.spaces.get(id)
		if !ok {
			return fmt.Errorf("%w: %d", ErrSpaceNotFound, id)
		}
		if space.Owner() == actor {
			return ErrCannotUnfollowOwnSpace
		}
		edge := spaceFollowKey{Follower: actor, SpaceID: id}
		if !l.spaceFollowEdges.has(edge) {
			return ErrNotFollowingSpace
		}

		follower := l.account(actor)
		follower.FollowingSpacesCount = scoring.AddUint16(follower.FollowingSpacesCount, -1)
		l.accounts.put(actor, follower)

		space.FollowersCount = scoring.AddUint32(space.FollowersCount, -1)
		l.spaces.put(id, space)

		l.spaceFollowEdges.remove(edge)
		removeIndex(l.spaceFollowers, id, actor)
		removeIndex(l.spacesFollowedByAccount, actor, id)

		if err := l.scorer.SpaceUnfollowed(actor, id); err != nil {
			return err
		}
		l.emit(Event{Name: EventSpaceUnfollowed, Actor: actor, SpaceID: id})
		return nil
	})
}

func (l *Ledger) linkSpaceFollower(actor AccountID, id SpaceID) {
	l.spaceFollowEdges.put(spaceFollowKey{Follower: actor, SpaceID: id}, l.nextFollowSequence())
	appendIndex(l.spaceFollowers, id, actor)
	appendIndex(l.spacesFollowedByAccount, actor, id)
}

func (l *Ledger) nextFollowSequence() uint64 {
	next := l.followSequence.get() + 1
	l.followSequence.set(next)
	return next
}
