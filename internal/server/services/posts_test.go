package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/dmitrijs2005/quillpost/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signUpAndLogin(t, "alice")

	post, err := f.posts.Create(ctx, alice, PostInput{Title: "Hello", Summary: "s", Content: "body"},
		&CoverUpload{Body: strings.NewReader("png-bytes"), Size: 9, ContentType: "image/png", Ext: ".png"})
	require.NoError(t, err)

	assert.Equal(t, alice.UserID, post.AuthorID)
	assert.Equal(t, "alice", post.Author)
	assert.NotEmpty(t, post.Cover)
	assert.Equal(t, "https://blobs.test/"+post.Cover, post.CoverURL)
	assert.Equal(t, "png-bytes", f.blobs.Objects[post.Cover])
	assert.Empty(t, post.Likes)
}

func TestPostCreate_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signUpAndLogin(t, "alice")

	_, err := f.posts.Create(ctx, nil, PostInput{Title: "t", Content: "c"}, nil)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	_, err = f.posts.Create(ctx, alice, PostInput{Content: "c"}, nil)
	assert.ErrorIs(t, err, common.ErrorValidation)

	f.blobs.SaveErr = errors.New("s3 down")
	_, err = f.posts.Create(ctx, alice, PostInput{Title: "t", Content: "c"}, &CoverUpload{Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, common.ErrorInternal)
	f.blobs.SaveErr = nil

	f.store.FailOn["posts.Create"] = errors.New("db error: down")
	_, err = f.posts.Create(ctx, alice, PostInput{Title: "t", Content: "c"}, &CoverUpload{Body: strings.NewReader("x"), Ext: ".png"})
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.Len(t, f.blobs.Deleted, 1)
	assert.Empty(t, f.blobs.Objects)
}

func TestPostCreate_AuthorDeletedMidRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signUpAndLogin(t, "alice")

	f.store.FailOn["posts.Create"] = common.ErrorUnauthorized
	_, err := f.posts.Create(ctx, alice, PostInput{Title: "t", Content: "c"}, &CoverUpload{Body: strings.NewReader("x"), Ext: ".png"})
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	assert.Len(t, f.blobs.Deleted, 1)
	assert.Empty(t, f.blobs.Objects)
}

func TestPostList_Paging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signUpAndLogin(t, "alice")

	var ids []string
	for i := 0; i < 5; i++ {
		p, err := f.posts.Create(ctx, alice, PostInput{Title: "t", Content: "c"}, nil)
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}

	first, err := f.posts.List(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, first.Total)
	assert.True(t, first.HasMore)
	require.Len(t, first.Posts, 2)
	assert.Equal(t, ids[4], first.Posts[0].ID)

	last, err := f.posts.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, last.Posts, 1)
	assert.False(t, last.HasMore)
	assert.Equal(t, ids[0], last.Posts[0].ID)

	def, err := f.posts.List(ctx, -1, 0)
	require.NoError(t, err)
	assert.Len(t, def.Posts, DefaultPageLimit)
}

func TestPostList_HugePage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signUpAndLogin(t, "alice")
	_, err := f.posts.Create(ctx, alice, PostInput{Title: "t", Content: "c"}, nil)
	require.NoError(t, err)

	tests := []struct {
		name        string
		page, limit int
	}{
		{name: "max int page", page: math.MaxInt, limit: 3},
		{name: "overflows default limit", page: math.MaxInt/3 + 1, limit: 0},
		{name: "overflows max limit", page: math.MaxInt / 50, limit: MaxPageLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.posts.List(ctx, tt.page, tt.limit)
			require.NoError(t, err)
			assert.Empty(t, got.Posts)
			assert.False(t, got.HasMore)
			assert.Equal(t, 1, got.Total)
		})
	}
}

func TestPostGet_CommentCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signUpAndLogin(t, "alice")

	p, err := f.posts.Create(ctx, alice, PostInput{Title: "t", Content: "c"}, nil)
	require.NoError(t, err)
	_, err = f.comments.Create(ctx, alice, p.ID, "first")
	require.NoError(t, err)

	got, err := f.posts.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CommentCount)

	_, err = f.posts.Get(ctx, "post-missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPostUpdate_Ownership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signUpAndLogin(t, "alice")
	bob := f.signUpAndLogin(t, "bob")

	p, err := f.posts.Create(ctx, alice, PostInput{Title: "t", Summary: "s", Content: "c"}, nil)
	require.NoError(t, err)

	_, err = f.posts.Update(ctx, bob, p.ID, PostInput{Title: "hijack"}, nil)
	assert.ErrorIs(t, err, common.ErrorForbidden)

	_, err = f.posts.Update(ctx, bob, "post-missing", PostInput{Title: "x"}, nil)
	assert.ErrorIs(t, err, common.ErrorNotFound, "existence is checked before ownership")

	updated, err := f.posts.Update(ctx, alice, p.ID, PostInput{Title: "new"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Title)
	assert.Equal(t, "s", updated.Summary)
	assert.Equal(t, "c", updated.Content)
}

func TestPostUpdate_ReplacesCover(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signUpAndLogin(t, "alice")

	p, err := f.posts.Create(ctx, alice, PostInput{Title: "t", Content: "c"},
		&CoverUpload{Body: strings.NewReader("old"), Ext: ".png"})
	require.NoError(t, err)
	oldCover := p.Cover

	updated, err := f.posts.Update(ctx, alice, p.ID, PostInput{},
		&CoverUpload{Body: strings.NewReader("new"), Ext: ".jpg"})
	require.NoError(t, err)

	assert.NotEqual(t, oldCover, updated.Cover)
	assert.Equal(t, []string{oldCover}, f.blobs.Deleted)
	assert.Equal(t, "new", f.blobs.Objects[updated.Cover])
}

func TestPostDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signUpAndLogin(t, "alice")
	bob := f.signUpAndLogin(t, "bob")

	p, err := f.posts.Create(ctx, alice, PostInput{Title: "t", Content: "c"},
		&CoverUpload{Body: strings.NewReader("img"), Ext: ".png"})
	require.NoError(t, err)

	assert.ErrorIs(t, f.posts.Delete(ctx, bob, p.ID), common.ErrorForbidden)
	assert.ErrorIs(t, f.posts.Delete(ctx, nil, p.ID), common.ErrorForbidden)

	require.NoError(t, f.posts.Delete(ctx, alice, p.ID))
	assert.Equal(t, []string{p.Cover}, f.blobs.Deleted)

	assert.ErrorIs(t, f.posts.Delete(ctx, alice, p.ID), common.ErrorNotFound)
}

func TestToggleLike(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signUpAndLogin(t, "alice")
	bob := f.signUpAndLogin(t, "bob")

	p, err := f.posts.Create(ctx, alice, PostInput{Title: "t", Content: "c"}, nil)
	require.NoError(t, err)

	liked, err := f.posts.ToggleLike(ctx, bob, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{bob.UserID}, liked.Likes)

	both, err := f.posts.ToggleLike(ctx, alice, p.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{bob.UserID, alice.UserID}, both.Likes)

	unliked, err := f.posts.ToggleLike(ctx, bob, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{alice.UserID}, unliked.Likes)

	restored, err := f.posts.ToggleLike(ctx, alice, p.ID)
	require.NoError(t, err)
	assert.Empty(t, restored.Likes)
}

func TestToggleLike_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signUpAndLogin(t, "alice")

	_, err := f.posts.ToggleLike(ctx, alice, "post-missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = f.posts.ToggleLike(ctx, nil, "post-missing")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	p, err := f.posts.Create(ctx, alice, PostInput{Title: "t", Content: "c"}, nil)
	require.NoError(t, err)
	f.store.FailOn["posts.ToggleLike"] = errors.New("db error: deadlock")

	_, err = f.posts.ToggleLike(ctx, alice, p.ID)
	assert.ErrorIs(t, err, common.ErrorInternal)

	f.store.FailOn["posts.ToggleLike"] = common.ErrorUnauthorized
	_, err = f.posts.ToggleLike(ctx, alice, p.ID)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestListByAuthorAndLikedBy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signUpAndLogin(t, "alice")
	bob := f.signUpAndLogin(t, "bob")

	p, err := f.posts.Create(ctx, alice, PostInput{Title: "t", Content: "c"}, nil)
	require.NoError(t, err)
	_, err = f.posts.Create(ctx, bob, PostInput{Title: "t", Content: "c"}, nil)
	require.NoError(t, err)
	_, err = f.posts.ToggleLike(ctx, bob, p.ID)
	require.NoError(t, err)

	byAlice, err := f.posts.ListByAuthor(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, byAlice, 1)
	assert.Equal(t, p.ID, byAlice[0].ID)

	likedByBob, err := f.posts.ListLikedBy(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, likedByBob, 1)
	assert.Equal(t, p.ID, likedByBob[0].ID)

	_, err = f.posts.ListLikedBy(ctx, "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
