package models

import "time"

// Comment is a user comment on a post.
type Comment struct {
	ID        int64
	Content   string
	PostID    int64
	UserID    int64
	CreatedAt time.Time
	UpdatedAt time.Time

	AuthorUsername          string
	AuthorProfilePictureRef *string
}
