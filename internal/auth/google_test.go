package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	sharedauth "resumind/internal/shared/auth"
)

func newGoogleRouter(svc *GoogleService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	svc.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestStartRequiresConfiguration(t *testing.T) {
	r := newGoogleRouter(NewGoogleService(GoogleOptions{}))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/start", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
}

func TestCallbackRejectsUnknownState(t *testing.T) {
	r := newGoogleRouter(NewGoogleService(GoogleOptions{ClientID: "id", ClientSecret: "s", RedirectURL: "http://x/cb"}))
	for _, target := range []string{
		"/api/v1/auth/google/callback",
		"/api/v1/auth/google/callback?state=nope&code=c",
	} {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, target, nil))
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, resp.Code)
		}
	}
}

func TestLoginFlowIssuesToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ENV", "dev")

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "at", "token_type": "Bearer", "expires_in": 3600})
		case "/userinfo":
			if r.Header.Get("Authorization") != "Bearer at" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "42", "email": "a@b.c", "name": "Ada"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer provider.Close()

	svc := NewGoogleService(GoogleOptions{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  "http://api/cb",
		UIRedirect:   "http://ui/login",
		Endpoint:     oauth2.Endpoint{AuthURL: provider.URL + "/auth", TokenURL: provider.URL + "/token", AuthStyle: oauth2.AuthStyleInParams},
		UserInfoURL:  provider.URL + "/userinfo",
	})
	r := newGoogleRouter(svc)

	start := httptest.NewRecorder()
	r.ServeHTTP(start, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/start", nil))
	if start.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", start.Code)
	}
	loc, err := url.Parse(start.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	state := loc.Query().Get("state")
	if state == "" || !strings.HasPrefix(loc.String(), provider.URL+"/auth") {
		t.Fatalf("unexpected redirect %s", loc)
	}

	cb := httptest.NewRecorder()
	r.ServeHTTP(cb, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?state="+state+"&code=abc", nil))
	if cb.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d: %s", cb.Code, cb.Body.String())
	}
	back, err := url.Parse(cb.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse callback location: %v", err)
	}
	claims, err := sharedauth.VerifyJWT(back.Query().Get("token"))
	if err != nil {
		t.Fatalf("VerifyJWT: %v", err)
	}
	if claims.Subject != "google:42" || claims.Email != "a@b.c" || claims.Name != "Ada" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	replay := httptest.NewRecorder()
	r.ServeHTTP(replay, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?state="+state+"&code=abc", nil))
	if replay.Code != http.StatusBadRequest {
		t.Fatalf("expected state to be single-use, got %d", replay.Code)
	}
}

func TestAppendToken(t *testing.T) {
	got, err := appendToken("http://ui/login?next=%2Fhome", "tok")
	if err != nil {
		t.Fatalf("appendToken: %v", err)
	}
	u, _ := url.Parse(got)
	if u.Query().Get("token") != "tok" || u.Query().Get("next") != "/home" {
		t.Fatalf("unexpected url %s", got)
	}
	if _, err := appendToken("", "tok"); err == nil {
		t.Fatalf("expected error for empty redirect")
	}
}
