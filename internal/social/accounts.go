package social

import (
	"fmt"
	"strings"
)

// GetOrCreateAccount returns the stored account or a fresh one with reputation
// 1. The fresh record is not stored.
func (l *Ledger) GetOrCreateAccount(id AccountID) SocialAccount {
	return l.account(id)
}

// CreateProfile attaches a profile to the actor's account.
func (l *Ledger) CreateProfile(actor AccountID, handle, content string) error {
	if err := requireAccountID(actor); err != nil {
		return err
	}
	return l.atomically(func() error {
		account := l.account(actor)
		if account.Profile != nil {
			return ErrProfileAlreadyExists
		}
		key, err := l.validator.Handle(handle)
		if err != nil {
			return err
		}
		if l.profileHandles.has(key) {
			return fmt.Errorf("%w: %s", ErrHandleNotUnique, handle)
		}
		if err := l.validator.Content(content); err != nil {
			return err
		}

		account.Profile = &Profile{
			Created: l.stamp(actor),
			Handle:  handle,
			Content: content,
		}
		l.accounts.put(actor, account)
		l.profileHandles.put(key, actor)
		l.emit(Event{Name: EventProfileCreated, Actor: actor, Account: actor})
		return nil
	})
}

// UpdateProfile changes the handle and/or content of the actor's profile.
// Fields equal to the stored value are ignored; if nothing differs the update
// fails with ErrNoUpdatesInProfile.
func (l *Ledger) UpdateProfile(actor AccountID, update ProfileUpdate) error {
	return l.atomically(func() error {
		account, ok := l.accounts.get(actor)
		if !ok {
			return ErrSocialAccountNotFound
		}
		if account.Profile == nil {
			return ErrProfileNotFound
		}
		if update.isEmpty() {
			return ErrNoUpdatesInProfile
		}

		before := *account.Profile
		after := before
		var old ProfileUpdate

		if update.Handle != nil && *update.Handle != before.Handle {
			newKey, err := l.validator.Handle(*update.Handle)
			if err != nil {
				return err
			}
			oldKey := strings.ToLower(before.Handle)
			if newKey != oldKey && l.profileHandles.has(newKey) {
				return fmt.Errorf("%w: %s", ErrHandleNotUnique, *update.Handle)
			}
			l.profileHandles.remove(oldKey)
			l.profileHandles.put(newKey, actor)
			old.Handle = stringPtr(before.Handle)
			after.Handle = *update.Handle
		}

		if update.Content != nil && *update.Content != before.Content {
			if err := l.validator.Content(*update.Content); err != nil {
				return err
			}
			old.Content = stringPtr(before.Content)
			after.Content = *update.Content
		}

		if old.isEmpty() {
			return ErrNoUpdatesInProfile
		}

		edited := l.stamp(actor)
		after.Updated = &edited
		account.Profile = &after
		l.accounts.put(actor, account)

		l.notifyProfileUpdated(ProfileChange{
			Account: actor,
			Edited:  edited,
			Before:  before,
			After:   after,
			Old:     old,
		})
		l.emit(Event{Name: EventProfileUpdated, Actor: actor, Account: actor})
		return nil
	})
}
