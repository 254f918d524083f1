package social

// EventName names a committed state change.
type EventName string

const (
	EventProfileCreated           EventName = "ProfileCreated"
	EventProfileUpdated           EventName = "ProfileUpdated"
	EventSpaceCreated             EventName = "SpaceCreated"
	EventSpaceUpdated             EventName = "SpaceUpdated"
	EventSpaceFollowed            EventName = "SpaceFollowed"
	EventSpaceUnfollowed          EventName = "SpaceUnfollowed"
	EventAccountFollowed          EventName = "AccountFollowed"
	EventAccountUnfollowed        EventName = "AccountUnfollowed"
	EventPostCreated              EventName = "PostCreated"
	EventPostUpdated              EventName = "PostUpdated"
	EventPostShared               EventName = "PostShared"
	EventPostReactionCreated      EventName = "PostReactionCreated"
	EventPostReactionUpdated      EventName = "PostReactionUpdated"
	EventPostReactionDeleted      EventName = "PostReactionDeleted"
	EventAccountReputationChanged EventName = "AccountReputationChanged"
)

// Event is published after the operation that produced it commits. Only the
// identifiers relevant to Name are set.
type Event struct {
	Name       EventName
	Actor      AccountID
	Account    AccountID
	SpaceID    SpaceID
	PostID     PostID
	ReactionID ReactionID
	Delta      int32
}

type EventSink interface {
	Publish(Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event)

func (f EventSinkFunc) Publish(event Event) {
	f(event)
}
