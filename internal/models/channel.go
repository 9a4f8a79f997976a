package models

import (
	"time"

	"github.com/google/uuid"
)

// ChannelProfile is the public view of a user's channel with
// subscription counters aggregated for a particular viewer.
type ChannelProfile struct {
	UserID            uuid.UUID
	Username          string
	FullName          string
	Email             string
	AvatarRef         string
	CoverRef          string
	SubscriberCount   int64
	SubscribedToCount int64
	IsSubscribed      bool
}

type Subscription struct {
	SubscriberID uuid.UUID
	ChannelID    uuid.UUID
	CreatedAt    time.Time
}
