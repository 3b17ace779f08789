package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func newStubTokenServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("token endpoint method = %s, want POST", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func newCallbackRouter(exchanger *GitHubExchanger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(nil, nil, exchanger, zap.NewNop())
	r := gin.New()
	r.POST("/api/oauth/callback", h.OAuthCallback)
	return r
}

func TestOAuthCallbackSuccess(t *testing.T) {
	srv := newStubTokenServer(t, http.StatusOK,
		`{"access_token":"gho_testtoken","token_type":"bearer","scope":"read:user"}`)
	defer srv.Close()

	router := newCallbackRouter(NewGitHubExchanger("id", "secret", srv.URL+"/authorize", srv.URL+"/token", zap.NewNop()))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/oauth/callback", strings.NewReader(`{"code":"abc123"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	var tok ExchangedToken
	if err := json.Unmarshal(w.Body.Bytes(), &tok); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if tok.AccessToken != "gho_testtoken" {
		t.Fatalf("access_token = %q, want gho_testtoken", tok.AccessToken)
	}
	if tok.TokenType != "bearer" || tok.Scope != "read:user" {
		t.Fatalf("token = %+v, want bearer/read:user", tok)
	}
}

func TestOAuthCallbackMissingCode(t *testing.T) {
	router := newCallbackRouter(NewGitHubExchanger("id", "secret", "", "", zap.NewNop()))

	for _, body := range []string{`{}`, `{"code":""}`, `not json`} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/oauth/callback", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, w.Code)
		}
	}
}

func TestOAuthCallbackUpstreamFailure(t *testing.T) {
	srv := newStubTokenServer(t, http.StatusBadGateway, `{"error":"bad_gateway"}`)
	defer srv.Close()

	router := newCallbackRouter(NewGitHubExchanger("id", "secret", srv.URL+"/authorize", srv.URL+"/token", zap.NewNop()))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/oauth/callback", strings.NewReader(`{"code":"abc123"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500; body: %s", w.Code, w.Body.String())
	}
}
