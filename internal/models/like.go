package models

import "time"

// Like records that a user liked a post. Uniqueness of (UserID, PostID) is
// enforced by the database.
type Like struct {
	ID        int64
	UserID    int64
	PostID    int64
	CreatedAt time.Time
}
