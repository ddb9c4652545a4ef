package models

import "time"

type Comment struct {
	ID        string
	PostID    string
	Content   string
	AuthorID  string
	Author    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
