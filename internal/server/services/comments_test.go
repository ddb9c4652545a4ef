package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/quillpost/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signUpAndLogin(t, "alice")

	_, err := f.comments.Create(ctx, alice, "post-missing", "hi")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	p, err := f.posts.Create(ctx, alice, PostInput{Title: "t", Content: "c"}, nil)
	require.NoError(t, err)

	_, err = f.comments.Create(ctx, alice, p.ID, "")
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = f.comments.Create(ctx, nil, p.ID, "hi")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	c, err := f.comments.Create(ctx, alice, p.ID, "hi")
	require.NoError(t, err)
	assert.Equal(t, alice.UserID, c.AuthorID)
	assert.Equal(t, "alice", c.Author)
}

func TestCommentCreate_ForeignKeyGone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signUpAndLogin(t, "alice")

	p, err := f.posts.Create(ctx, alice, PostInput{Title: "t", Content: "c"}, nil)
	require.NoError(t, err)

	tests := []struct {
		name    string
		repoErr error
		want    error
	}{
		{"author deleted", common.ErrorUnauthorized, common.ErrorUnauthorized},
		{"post deleted", common.ErrorNotFound, common.ErrorNotFound},
		{"other failure", errors.New("db error: down"), common.ErrorInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.store.FailOn["comments.Create"] = tt.repoErr
			t.Cleanup(func() { delete(f.store.FailOn, "comments.Create") })

			_, err := f.comments.Create(ctx, alice, p.ID, "hi")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCommentUpdateDelete_Ownership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signUpAndLogin(t, "alice")
	bob := f.signUpAndLogin(t, "bob")

	p, err := f.posts.Create(ctx, alice, PostInput{Title: "t", Content: "c"}, nil)
	require.NoError(t, err)
	c, err := f.comments.Create(ctx, alice, p.ID, "hi")
	require.NoError(t, err)

	_, err = f.comments.Update(ctx, bob, c.ID, "edited")
	assert.ErrorIs(t, err, common.ErrorForbidden)
	assert.ErrorIs(t, f.comments.Delete(ctx, bob, c.ID), common.ErrorForbidden)

	_, err = f.comments.Update(ctx, bob, "comment-missing", "edited")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.ErrorIs(t, f.comments.Delete(ctx, bob, "comment-missing"), common.ErrorNotFound)

	updated, err := f.comments.Update(ctx, alice, c.ID, "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Content)

	_, err = f.comments.Update(ctx, alice, c.ID, "")
	assert.ErrorIs(t, err, common.ErrorValidation)

	require.NoError(t, f.comments.Delete(ctx, alice, c.ID))
	list, err := f.comments.ListByPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCommentListing_NewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signUpAndLogin(t, "alice")
	bob := f.signUpAndLogin(t, "bob")

	p, err := f.posts.Create(ctx, alice, PostInput{Title: "t", Content: "c"}, nil)
	require.NoError(t, err)
	first, err := f.comments.Create(ctx, bob, p.ID, "first")
	require.NoError(t, err)
	second, err := f.comments.Create(ctx, alice, p.ID, "second")
	require.NoError(t, err)

	list, err := f.comments.ListByPost(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	byBob, err := f.comments.ListByAuthor(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, byBob, 1)
	assert.Equal(t, first.ID, byBob[0].ID)
}
