package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/quillpost/internal/server/auth"
)

// The :id segment of /users routes is the public login id.

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.GetUser(r.Context(), param(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUser(u))
}

func (s *Server) handleUserPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.posts.ListByAuthor(r.Context(), param(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPosts(posts))
}

func (s *Server) handleUserComments(w http.ResponseWriter, r *http.Request) {
	cs, err := s.comments.ListByAuthor(r.Context(), param(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toComments(cs))
}

func (s *Server) handleUserLikes(w http.ResponseWriter, r *http.Request) {
	posts, err := s.posts.ListLikedBy(r.Context(), param(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPosts(posts))
}

// handleUpdateUser changes the caller's own password.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	claims, _ := auth.ClaimsFromContext(r.Context())
	u, err := s.users.ChangePassword(r.Context(), claims, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUser(u))
}
