package models

import "time"

type Post struct {
	ID      string
	Title   string
	Summary string
	Content string
	// Cover is the blob key of the cover image, empty when none.
	Cover string
	// CoverURL is a presigned URL derived from Cover at read time.
	CoverURL     string
	AuthorID     string
	Author       string
	Likes        []string
	CommentCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PostPage is one page of a post listing.
type PostPage struct {
	Posts   []*Post
	Total   int
	HasMore bool
}
