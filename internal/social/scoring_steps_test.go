package social

import (
	"github.com/F3Joule/subsocial-v2/internal/scoring"
)

// changePostScore drives the engine's content scoring step directly with
// toggle semantics: repeating an action undoes it, and an opposite vote is
// undone before the new one is applied.
func (l *Ledger) changePostScore(actor AccountID, postID PostID, action scoring.Action) error {
	if err := requireAccountID(actor); err != nil {
		return err
	}
	return l.atomically(func() error {
		engine := l.engine
		if engine.ledger.postScores.has(postScoreKey{Account: actor, PostID: postID, Action: action}) {
			return engine.revertPostScore(actor, postID, action)
		}
		if opposite, ok := oppositeVote(action); ok {
			if err := engine.revertPostScore(actor, postID, opposite); err != nil {
				return err
			}
		}
		return engine.applyPostScore(actor, postID, action)
	})
}

// changeAccountReputation drives the engine's reputation step directly.
func (l *Ledger) changeAccountReputation(target, actor AccountID, diff int16, action scoring.Action) error {
	if err := requireAccountID(target); err != nil {
		return err
	}
	if err := requireAccountID(actor); err != nil {
		return err
	}
	return l.atomically(func() error {
		l.engine.changeAccountReputation(target, actor, diff, action)
		return nil
	})
}
