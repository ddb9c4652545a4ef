package httpapi

import (
	"net/http"
	"time"
)

const (
	sessionCookieName = "token"
	stateCookieName   = "oauth_state"
)

func (s *Server) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, s.sessionCookie(token, int(ttl/time.Second)))
}

// clearSessionCookie reissues the session cookie already expired.
func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	// MaxAge < 0 is sent as Max-Age=0
	http.SetCookie(w, s.sessionCookie("", -1))
}

func sessionToken(r *http.Request) string {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
