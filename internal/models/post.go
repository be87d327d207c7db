package models

import "time"

// Post is a published text post with an optional image stored in the object
// store. ImageRef holds the object key, not a URL.
type Post struct {
	ID        int64
	Title     string
	Content   string
	UserID    int64
	ImageRef  *string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Author fields joined from the users table for read paths.
	AuthorUsername          string
	AuthorProfilePictureRef *string
}
