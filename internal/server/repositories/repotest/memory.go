// Package repotest provides in-memory repositories and a blob store for
// tests of the layers above the database.
package repotest

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/quillpost/internal/common"
	"github.com/dmitrijs2005/quillpost/internal/dbx"
	"github.com/dmitrijs2005/quillpost/internal/server/blobstore"
	"github.com/dmitrijs2005/quillpost/internal/server/models"
	"github.com/dmitrijs2005/quillpost/internal/server/repositories/comments"
	"github.com/dmitrijs2005/quillpost/internal/server/repositories/posts"
	"github.com/dmitrijs2005/quillpost/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/quillpost/internal/server/repositories/users"
	"github.com/google/uuid"
)

var (
	_ repomanager.RepositoryManager = (*Manager)(nil)
	_ blobstore.Store               = (*Blobs)(nil)
)

// Store is an in-memory stand-in for the database behind the repositories.
// FailOn maps "repo.Method" to an error returned instead of doing the work.
// Exported maps may be inspected by tests but are guarded by the store's
// lock while a request is in flight.
type Store struct {
	mu       sync.Mutex
	seq      int
	Users    map[string]*models.User
	Posts    map[string]*models.Post
	Comments map[string]*models.Comment
	Likes    map[string][]string
	FailOn   map[string]error
}

func NewStore() *Store {
	return &Store{
		Users:    map[string]*models.User{},
		Posts:    map[string]*models.Post{},
		Comments: map[string]*models.Comment{},
		Likes:    map[string][]string{},
		FailOn:   map[string]error{},
	}
}

// next returns a fresh id and a creation time that grows with every call,
// so newest-first ordering is deterministic.
func (m *Store) next() (string, time.Time) {
	m.seq++
	return uuid.NewString(), time.Unix(int64(m.seq), 0)
}

func (m *Store) fail(op string) error {
	return m.FailOn[op]
}

func (m *Store) loginOf(id string) string {
	if u, ok := m.Users[id]; ok {
		return u.LoginID
	}
	return ""
}

type usersRepo struct{ s *Store }

func (r *usersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("users.Create"); err != nil {
		return nil, err
	}
	for _, existing := range r.s.Users {
		if existing.LoginID == u.LoginID {
			return nil, common.ErrorConflict
		}
		if u.ExternalID != nil && existing.ExternalID != nil && *existing.ExternalID == *u.ExternalID {
			return nil, common.ErrorConflict
		}
	}
	u.ID, u.CreatedAt = r.s.next()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	r.s.Users[u.ID] = &cp
	return u, nil
}

func (r *usersRepo) find(op string, match func(*models.User) bool) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(op); err != nil {
		return nil, err
	}
	for _, u := range r.s.Users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *usersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.find("users.GetByID", func(u *models.User) bool { return u.ID == id })
}

func (r *usersRepo) GetByLoginID(ctx context.Context, loginID string) (*models.User, error) {
	return r.find("users.GetByLoginID", func(u *models.User) bool { return u.LoginID == loginID })
}

func (r *usersRepo) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	return r.find("users.GetByExternalID", func(u *models.User) bool {
		return u.ExternalID != nil && *u.ExternalID == externalID
	})
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, id string, hash []byte) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.Users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *usersRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("users.Delete"); err != nil {
		return err
	}
	delete(r.s.Users, id)
	return nil
}

type postsRepo struct{ s *Store }

func (r *postsRepo) view(p *models.Post) *models.Post {
	cp := *p
	cp.Author = r.s.loginOf(p.AuthorID)
	cp.Likes = append([]string{}, r.s.Likes[p.ID]...)
	cp.CommentCount = 0
	for _, c := range r.s.Comments {
		if c.PostID == p.ID {
			cp.CommentCount++
		}
	}
	return &cp
}

func (r *postsRepo) sorted(match func(*models.Post) bool) []*models.Post {
	out := []*models.Post{}
	for _, p := range r.s.Posts {
		if match(p) {
			out = append(out, r.view(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *postsRepo) Create(ctx context.Context, p *models.Post) (*models.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("posts.Create"); err != nil {
		return nil, err
	}
	p.ID, p.CreatedAt = r.s.next()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	r.s.Posts[p.ID] = &cp
	return r.view(p), nil
}

func (r *postsRepo) GetByID(ctx context.Context, id string) (*models.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("posts.GetByID"); err != nil {
		return nil, err
	}
	p, ok := r.s.Posts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return r.view(p), nil
}

func (r *postsRepo) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := r.sorted(func(*models.Post) bool { return true })
	if offset >= len(all) {
		return []*models.Post{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *postsRepo) Count(ctx context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.Posts), nil
}

func (r *postsRepo) ListByAuthorLogin(ctx context.Context, loginID string) ([]*models.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.sorted(func(p *models.Post) bool { return r.s.loginOf(p.AuthorID) == loginID }), nil
}

func (r *postsRepo) ListLikedBy(ctx context.Context, loginID string) ([]*models.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.sorted(func(p *models.Post) bool {
		for _, uid := range r.s.Likes[p.ID] {
			if r.s.loginOf(uid) == loginID {
				return true
			}
		}
		return false
	}), nil
}

func (r *postsRepo) Update(ctx context.Context, p *models.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("posts.Update"); err != nil {
		return err
	}
	existing, ok := r.s.Posts[p.ID]
	if !ok {
		return common.ErrorNotFound
	}
	existing.Title, existing.Summary, existing.Content, existing.Cover = p.Title, p.Summary, p.Content, p.Cover
	return nil
}

func (r *postsRepo) removePost(id string) {
	delete(r.s.Posts, id)
	delete(r.s.Likes, id)
	for cid, c := range r.s.Comments {
		if c.PostID == id {
			delete(r.s.Comments, cid)
		}
	}
}

func (r *postsRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.Posts[id]; !ok {
		return common.ErrorNotFound
	}
	r.removePost(id)
	return nil
}

func (r *postsRepo) ToggleLike(ctx context.Context, postID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("posts.ToggleLike"); err != nil {
		return err
	}
	set := r.s.Likes[postID]
	for i, id := range set {
		if id == userID {
			r.s.Likes[postID] = append(set[:i:i], set[i+1:]...)
			return nil
		}
	}
	r.s.Likes[postID] = append(set, userID)
	return nil
}

func (r *postsRepo) CoversByAuthor(ctx context.Context, authorID string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("posts.CoversByAuthor"); err != nil {
		return nil, err
	}
	var keys []string
	for _, p := range r.s.Posts {
		if p.AuthorID == authorID && p.Cover != "" {
			keys = append(keys, p.Cover)
		}
	}
	return keys, nil
}

func (r *postsRepo) DeleteByAuthor(ctx context.Context, authorID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("posts.DeleteByAuthor"); err != nil {
		return err
	}
	for id, p := range r.s.Posts {
		if p.AuthorID == authorID {
			r.removePost(id)
		}
	}
	return nil
}

func (r *postsRepo) RemoveLikesByUser(ctx context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for postID, set := range r.s.Likes {
		kept := []string{}
		for _, id := range set {
			if id != userID {
				kept = append(kept, id)
			}
		}
		r.s.Likes[postID] = kept
	}
	return nil
}

type commentsRepo struct{ s *Store }

func (r *commentsRepo) view(c *models.Comment) *models.Comment {
	cp := *c
	cp.Author = r.s.loginOf(c.AuthorID)
	return &cp
}

func (r *commentsRepo) Create(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("comments.Create"); err != nil {
		return nil, err
	}
	c.ID, c.CreatedAt = r.s.next()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	r.s.Comments[c.ID] = &cp
	return r.view(c), nil
}

func (r *commentsRepo) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.Comments[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return r.view(c), nil
}

func (r *commentsRepo) list(match func(*models.Comment) bool) []*models.Comment {
	out := []*models.Comment{}
	for _, c := range r.s.Comments {
		if match(c) {
			out = append(out, r.view(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *commentsRepo) ListByPost(ctx context.Context, postID string) ([]*models.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.list(func(c *models.Comment) bool { return c.PostID == postID }), nil
}

func (r *commentsRepo) ListByAuthorLogin(ctx context.Context, loginID string) ([]*models.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.list(func(c *models.Comment) bool { return r.s.loginOf(c.AuthorID) == loginID }), nil
}

func (r *commentsRepo) Update(ctx context.Context, id, content string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.Comments[id]
	if !ok {
		return common.ErrorNotFound
	}
	c.Content = content
	return nil
}

func (r *commentsRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.Comments[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.Comments, id)
	return nil
}

func (r *commentsRepo) DeleteByAuthor(ctx context.Context, authorID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("comments.DeleteByAuthor"); err != nil {
		return err
	}
	for id, c := range r.s.Comments {
		if c.AuthorID == authorID {
			delete(r.s.Comments, id)
		}
	}
	return nil
}

// Manager hands out repositories backed by one Store. The db argument is
// ignored, so transactions are not isolated.
type Manager struct{ s *Store }

func NewManager(s *Store) *Manager { return &Manager{s: s} }

func (m *Manager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *Manager) Users(dbx.DBTX) users.Repository              { return &usersRepo{m.s} }
func (m *Manager) Posts(dbx.DBTX) posts.Repository              { return &postsRepo{m.s} }
func (m *Manager) Comments(dbx.DBTX) comments.Repository        { return &commentsRepo{m.s} }

// Blobs is an in-memory blobstore.Store. Deleted records every key passed
// to Delete, including failed attempts.
type Blobs struct {
	mu      sync.Mutex
	seq     int
	Objects map[string]string
	Deleted []string
	SaveErr error
	DelErr  error
}

func NewBlobs() *Blobs {
	return &Blobs{Objects: map[string]string{}}
}

func (b *Blobs) Save(ctx context.Context, body io.Reader, size int64, contentType, ext string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.SaveErr != nil {
		return "", b.SaveErr
	}
	data, _ := io.ReadAll(body)
	b.seq++
	key := fmt.Sprintf("covers/test/%d%s", b.seq, ext)
	b.Objects[key] = string(data)
	return key, nil
}

func (b *Blobs) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Deleted = append(b.Deleted, key)
	if b.DelErr != nil {
		return b.DelErr
	}
	delete(b.Objects, key)
	return nil
}

func (b *Blobs) URL(ctx context.Context, key string) (string, error) {
	return "https://blobs.test/" + key, nil
}
