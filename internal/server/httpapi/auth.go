package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/quillpost/internal/common"
	"github.com/dmitrijs2005/quillpost/internal/randx"
	"github.com/dmitrijs2005/quillpost/internal/server/auth"
)

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	_, err := s.users.SignUp(r.Context(), req.ID, req.Password)
	s.metrics.RecordAuth("signup", err == nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusCreated, "user created")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	session, err := s.users.Login(r.Context(), req.ID, req.Password)
	s.metrics.RecordAuth("login", err == nil)
	if err != nil {
		// unknown id and wrong password look the same
		if errors.Is(err, common.ErrorUnauthorized) {
			writeErrorMessage(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, err)
		return
	}

	s.setSessionCookie(w, session.Token, s.codec.TTL())
	writeJSON(w, http.StatusOK, loginResponse{UserID: session.Claims.UserID})
}

// handleProfile answers 200 when there is no session; the body carries the error.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	profile, err := s.users.Profile(r.Context(), claims)
	if errors.Is(err, common.ErrorUnauthorized) {
		writeErrorMessage(w, http.StatusOK, "not logged in")
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfile(profile))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearSessionCookie(w)
	writeMessage(w, http.StatusOK, "logged out")
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	if err := s.users.DeleteAccount(r.Context(), claims); err != nil {
		writeError(w, err)
		return
	}
	s.clearSessionCookie(w)
	writeMessage(w, http.StatusOK, "account deleted")
}

func (s *Server) handleKakaoLogin(w http.ResponseWriter, r *http.Request) {
	state, err := randx.MakeRandHexString(16)
	if err != nil {
		s.logger.Error(r.Context(), "generating oauth state", "error", err)
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth/kakao",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.oauth.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleKakaoCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	stored, err := r.Cookie(stateCookieName)
	if err != nil || stored.Value == "" || q.Get("state") != stored.Value {
		writeErrorMessage(w, http.StatusBadRequest, "invalid oauth state")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Path: "/auth/kakao", MaxAge: -1})

	code := q.Get("code")
	if code == "" {
		writeErrorMessage(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	externalID, err := s.oauth.ExchangeCode(r.Context(), code)
	if err != nil {
		s.logger.Warn(r.Context(), "oauth exchange failed", "error", err)
		s.metrics.RecordAuth("kakao", false)
		writeErrorMessage(w, http.StatusUnauthorized, "external login failed")
		return
	}

	session, err := s.users.LoginExternal(r.Context(), externalID)
	s.metrics.RecordAuth("kakao", err == nil)
	if err != nil {
		writeError(w, err)
		return
	}

	s.setSessionCookie(w, session.Token, s.codec.TTL())
	http.Redirect(w, r, s.frontendURL, http.StatusFound)
}
