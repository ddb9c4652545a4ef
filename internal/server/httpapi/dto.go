package httpapi

import (
	"time"

	"github.com/dmitrijs2005/quillpost/internal/server/auth"
	"github.com/dmitrijs2005/quillpost/internal/server/models"
)

type credentialsRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

type commentRequest struct {
	PostID  string `json:"postId"`
	Content string `json:"content"`
}

type postRequest struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Content string `json:"content"`
}

type loginResponse struct {
	UserID string `json:"userId"`
}

type profileResponse struct {
	UserID string `json:"userId"`
	ID     string `json:"id"`
	Iat    int64  `json:"iat"`
	Exp    int64  `json:"exp"`
}

func toProfile(c *auth.Claims) profileResponse {
	p := profileResponse{UserID: c.UserID, ID: c.LoginID}
	if c.IssuedAt != nil {
		p.Iat = c.IssuedAt.Unix()
	}
	if c.ExpiresAt != nil {
		p.Exp = c.ExpiresAt.Unix()
	}
	return p
}

type userResponse struct {
	UserID    string    `json:"userId"`
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUser(u *models.User) userResponse {
	return userResponse{UserID: u.ID, ID: u.LoginID, CreatedAt: u.CreatedAt}
}

type postResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	Content      string    `json:"content"`
	Cover        string    `json:"cover,omitempty"`
	AuthorID     string    `json:"authorId"`
	Author       string    `json:"author"`
	Likes        []string  `json:"likes"`
	CommentCount int       `json:"commentCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func toPost(p *models.Post) postResponse {
	likes := p.Likes
	if likes == nil {
		likes = []string{}
	}
	return postResponse{
		ID:           p.ID,
		Title:        p.Title,
		Summary:      p.Summary,
		Content:      p.Content,
		Cover:        p.CoverURL,
		AuthorID:     p.AuthorID,
		Author:       p.Author,
		Likes:        likes,
		CommentCount: p.CommentCount,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func toPosts(ps []*models.Post) []postResponse {
	out := make([]postResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPost(p))
	}
	return out
}

type postPageResponse struct {
	Posts   []postResponse `json:"posts"`
	HasMore bool           `json:"hasMore"`
	Total   int            `json:"total"`
}

type commentResponse struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"authorId"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toComment(c *models.Comment) commentResponse {
	return commentResponse{
		ID:        c.ID,
		PostID:    c.PostID,
		Content:   c.Content,
		AuthorID:  c.AuthorID,
		Author:    c.Author,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toComments(cs []*models.Comment) []commentResponse {
	out := make([]commentResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, toComment(c))
	}
	return out
}
