package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	jsonpath "github.com/steinfletcher/apitest-jsonpath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserPages(t *testing.T) {
	ts := newTestServer(t)
	alice, _ := ts.login(t, "alice")
	bob, _ := ts.login(t, "bob")
	p := ts.post(t, alice, "by alice")
	ts.post(t, bob, "by bob")

	ctx := context.Background()
	_, err := ts.posts.ToggleLike(ctx, bob, p.ID)
	require.NoError(t, err)
	_, err = ts.srv.comments.Create(ctx, bob, p.ID, "nice")
	require.NoError(t, err)

	ts.api().
		Get("/users/alice").
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.id", "alice")).
		Assert(jsonpath.Equal("$.userId", alice.UserID)).
		Assert(jsonpath.NotPresent("$.passwordHash")).
		End()

	ts.api().
		Get("/users/alice/posts").
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Len("$", 1)).
		Assert(jsonpath.Equal("$[0].title", "by alice")).
		End()

	ts.api().
		Get("/users/bob/comments").
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Len("$", 1)).
		Assert(jsonpath.Equal("$[0].content", "nice")).
		End()

	ts.api().
		Get("/users/bob/likes").
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Len("$", 1)).
		Assert(jsonpath.Equal("$[0].id", p.ID)).
		End()

	ts.api().Get("/users/nobody").Expect(t).Status(http.StatusNotFound).End()
	ts.api().Get("/users/nobody/likes").Expect(t).Status(http.StatusNotFound).End()
}

func TestUpdateUser_ChangesOwnPassword(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.login(t, "alice")

	ts.api().
		Put("/users/update").
		Cookie(sessionCookieName, token).
		JSON(`{"password":"fresh"}`).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.id", "alice")).
		End()

	ts.api().
		Post("/auth/login").
		JSON(`{"id":"alice","password":"pw-alice"}`).
		Expect(t).
		Status(http.StatusUnauthorized).
		End()

	ts.api().
		Post("/auth/login").
		JSON(fmt.Sprintf(`{"id":%q,"password":%q}`, "alice", "fresh")).
		Expect(t).
		Status(http.StatusOK).
		End()

	ts.api().
		Put("/users/update").
		Cookie(sessionCookieName, token).
		JSON(`{"password":""}`).
		Expect(t).
		Status(http.StatusBadRequest).
		End()
	assert.Len(t, ts.store.Users, 1)
}
