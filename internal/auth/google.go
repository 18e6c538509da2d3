// Package auth implements Google sign-in. A successful login redirects to the
// UI with a signed bearer token.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	sharedauth "resumind/internal/shared/auth"
	"resumind/internal/shared/server/respond"
	"resumind/internal/shared/telemetry"
)

const (
	defaultStateTTL    = 5 * time.Minute
	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// GoogleOptions configures the OAuth client.
type GoogleOptions struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	UIRedirect   string
	// Endpoint and UserInfoURL default to Google's.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
	StateTTL    time.Duration
}

// GoogleService handles Google OAuth flows.
type GoogleService struct {
	oauthConfig *oauth2.Config
	uiRedirect  string
	userInfoURL string
	states      *cache.Cache
	stateTTL    time.Duration
}

// NewGoogleService builds a GoogleService.
func NewGoogleService(opts GoogleOptions) *GoogleService {
	endpoint := opts.Endpoint
	if endpoint.AuthURL == "" && endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}
	userInfoURL := opts.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = defaultUserInfoURL
	}
	ttl := opts.StateTTL
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	return &GoogleService{
		oauthConfig: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: endpoint,
		},
		uiRedirect:  opts.UIRedirect,
		userInfoURL: userInfoURL,
		states:      cache.New(ttl, 2*ttl),
		stateTTL:    ttl,
	}
}

// Configured reports whether client credentials are present.
func (s *GoogleService) Configured() bool {
	return s.oauthConfig.ClientID != "" && s.oauthConfig.ClientSecret != "" && s.oauthConfig.RedirectURL != ""
}

// RegisterRoutes attaches Google auth routes.
func (s *GoogleService) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/google/start", s.start)
	rg.GET("/auth/google/callback", s.callback)
}

func (s *GoogleService) start(c *gin.Context) {
	if !s.Configured() {
		respond.Error(c, http.StatusInternalServerError, "auth_not_configured", "Google auth not configured", nil)
		return
	}

	state := uuid.NewString()
	s.states.Set(state, struct{}{}, s.stateTTL)

	c.Redirect(http.StatusFound, s.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline))
}

func (s *GoogleService) callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "missing state or code", nil)
		return
	}
	if !s.consumeState(state) {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid or expired state", nil)
		return
	}

	ctx := c.Request.Context()
	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		telemetry.Warn("auth.google.exchange_failed", map[string]any{"error": err})
		respond.Error(c, http.StatusBadRequest, "invalid_request", "failed to exchange code", nil)
		return
	}

	info, err := s.fetchUserInfo(ctx, token)
	if err != nil {
		telemetry.Warn("auth.google.userinfo_failed", map[string]any{"error": err})
		respond.Error(c, http.StatusBadGateway, "auth_failed", "failed to fetch user profile", nil)
		return
	}
	if info.Sub == "" {
		respond.Error(c, http.StatusBadGateway, "auth_failed", "invalid user profile", nil)
		return
	}

	claims := sharedauth.Claims{Email: info.Email, Name: info.Name, Picture: info.Picture}
	claims.Subject = "google:" + info.Sub
	signed, err := sharedauth.SignJWT(claims)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to issue token", nil)
		return
	}

	redirectURL, err := appendToken(s.uiRedirect, signed)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to redirect", nil)
		return
	}
	telemetry.Info("auth.google.login", map[string]any{"user_id": claims.Subject})
	c.Redirect(http.StatusFound, redirectURL)
}

// consumeState accepts each issued state once.
func (s *GoogleService) consumeState(state string) bool {
	if _, ok := s.states.Get(state); !ok {
		return false
	}
	s.states.Delete(state)
	return true
}

type googleUserInfo struct {
	Sub     string `json:"sub"`
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (s *GoogleService) fetchUserInfo(ctx context.Context, token *oauth2.Token) (googleUserInfo, error) {
	client := s.oauthConfig.Client(ctx, token)
	resp, err := client.Get(s.userInfoURL)
	if err != nil {
		return googleUserInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return googleUserInfo{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return googleUserInfo{}, err
	}
	// v2 userinfo returns "id".
	if info.Sub == "" {
		info.Sub = info.ID
	}
	return info, nil
}

func appendToken(rawURL, token string) (string, error) {
	if rawURL == "" {
		return "", errors.New("redirect url required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
