// Package oauth exchanges external authorization codes for provider user ids.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// Exchanger turns an authorization code into the provider's user id.
type Exchanger interface {
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (string, error)
}

var kakaoEndpoint = oauth2.Endpoint{
	AuthURL:   "https://kauth.kakao.com/oauth/authorize",
	TokenURL:  "https://kauth.kakao.com/oauth/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

const kakaoUserInfoURL = "https://kapi.kakao.com/v2/user/me"

var ErrNoExternalID = errors.New("provider returned no user id")

type KakaoProvider struct {
	oauth2      oauth2.Config
	userInfoURL string
}

func NewKakaoProvider(clientID, clientSecret, redirectURL string) *KakaoProvider {
	return &KakaoProvider{
		oauth2: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     kakaoEndpoint,
			RedirectURL:  redirectURL,
		},
		userInfoURL: kakaoUserInfoURL,
	}
}

func (p *KakaoProvider) AuthCodeURL(state string) string {
	return p.oauth2.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

type kakaoUser struct {
	ID json.Number `json:"id"`
}

// ExchangeCode redeems code for an access token and reads the numeric user id.
func (p *KakaoProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", errors.New("missing authorization code")
	}

	tok, err := p.oauth2.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := p.oauth2.Client(ctx, tok).Do(req)
	if err != nil {
		return "", fmt.Errorf("user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("user info: unexpected status %d", resp.StatusCode)
	}

	var u kakaoUser
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&u); err != nil {
		return "", fmt.Errorf("user info: %w", err)
	}
	if u.ID == "" {
		return "", ErrNoExternalID
	}

	return u.ID.String(), nil
}
