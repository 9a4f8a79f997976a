package models

import (
	"time"

	"github.com/google/uuid"
)

type Video struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	CreatedAt time.Time
	Title     string
	FileRef   string
}

// WatchedVideo is a watch history row joined with the video and its owner
type WatchedVideo struct {
	Video         Video
	WatchedAt     time.Time
	OwnerUsername string
	OwnerFullName string
	OwnerAvatar   string
}
