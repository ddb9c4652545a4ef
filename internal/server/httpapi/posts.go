package httpapi

import (
	"errors"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/quillpost/internal/common"
	"github.com/dmitrijs2005/quillpost/internal/server/auth"
	"github.com/dmitrijs2005/quillpost/internal/server/services"
	"github.com/google/uuid"
)

const coverField = "files"

// pathID returns the :id parameter when it is a well formed uuid.
func pathID(r *http.Request) (string, bool) {
	id := param(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// readPost accepts either a multipart form with an optional cover image or
// a plain JSON body.
func readPost(w http.ResponseWriter, r *http.Request) (services.PostInput, *services.CoverUpload, func(), error) {
	noop := func() {}

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var req postRequest
		if err := decodeJSON(w, r, &req); err != nil {
			return services.PostInput{}, nil, noop, err
		}
		return services.PostInput{Title: req.Title, Summary: req.Summary, Content: req.Content}, nil, noop, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxCoverBytes+maxJSONBody)
	if err := r.ParseMultipartForm(maxCoverBytes); err != nil {
		return services.PostInput{}, nil, noop, common.ErrorValidation
	}
	cleanup := func() { _ = r.MultipartForm.RemoveAll() }

	in := services.PostInput{
		Title:   r.FormValue("title"),
		Summary: r.FormValue("summary"),
		Content: r.FormValue("content"),
	}

	file, header, err := r.FormFile(coverField)
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil, cleanup, nil
	}
	if err != nil {
		return in, nil, cleanup, common.ErrorValidation
	}

	return in, coverFrom(file, header), func() { _ = file.Close(); cleanup() }, nil
}

func coverFrom(f multipart.File, h *multipart.FileHeader) *services.CoverUpload {
	ct := h.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	return &services.CoverUpload{
		Body:        f,
		Size:        h.Size,
		ContentType: ct,
		Ext:         filepath.Ext(h.Filename),
	}
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	in, cover, done, err := readPost(w, r)
	defer done()
	if err != nil {
		writeError(w, err)
		return
	}

	claims, _ := auth.ClaimsFromContext(r.Context())
	post, err := s.posts.Create(r.Context(), claims, in, cover)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPost(post))
}

func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	page, err := s.posts.List(r.Context(), queryInt(r, "page"), queryInt(r, "limit"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, postPageResponse{
		Posts:   toPosts(page.Posts),
		HasMore: page.HasMore,
		Total:   page.Total,
	})
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, common.ErrorNotFound)
		return
	}
	post, err := s.posts.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPost(post))
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, common.ErrorNotFound)
		return
	}

	in, cover, done, err := readPost(w, r)
	defer done()
	if err != nil {
		writeError(w, err)
		return
	}

	claims, _ := auth.ClaimsFromContext(r.Context())
	post, err := s.posts.Update(r.Context(), claims, id, in, cover)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPost(post))
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, common.ErrorNotFound)
		return
	}

	claims, _ := auth.ClaimsFromContext(r.Context())
	if err := s.posts.Delete(r.Context(), claims, id); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "post deleted")
}

func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, common.ErrorNotFound)
		return
	}

	claims, _ := auth.ClaimsFromContext(r.Context())
	post, err := s.posts.ToggleLike(r.Context(), claims, id)
	if err != nil {
		writeError(w, err)
		return
	}
	s.metrics.LikeTogglesTotal.Inc()
	writeJSON(w, http.StatusOK, toPost(post))
}
