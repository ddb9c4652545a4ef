package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/quillpost/internal/common"
	"github.com/dmitrijs2005/quillpost/internal/server/auth"
	"github.com/google/uuid"
)

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if _, err := uuid.Parse(req.PostID); err != nil {
		writeError(w, common.ErrorNotFound)
		return
	}

	claims, _ := auth.ClaimsFromContext(r.Context())
	c, err := s.comments.Create(r.Context(), claims, req.PostID, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toComment(c))
}

// handleListComments lists the comments of the post named by :id.
func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(r)
	if !ok {
		writeError(w, common.ErrorNotFound)
		return
	}
	cs, err := s.comments.ListByPost(r.Context(), postID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toComments(cs))
}

func (s *Server) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, common.ErrorNotFound)
		return
	}

	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	claims, _ := auth.ClaimsFromContext(r.Context())
	c, err := s.comments.Update(r.Context(), claims, id, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toComment(c))
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, common.ErrorNotFound)
		return
	}

	claims, _ := auth.ClaimsFromContext(r.Context())
	if err := s.comments.Delete(r.Context(), claims, id); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "comment deleted")
}
