package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"
)

// GitHubExchanger exchanges OAuth authorization codes for GitHub access
// tokens. The endpoint URLs are overridable so tests can point at a stub.
type GitHubExchanger struct {
	cfg    *oauth2.Config
	logger *zap.Logger
}

// NewGitHubExchanger creates a GitHub code exchanger. Empty authURL/tokenURL
// fall back to GitHub's public endpoints.
func NewGitHubExchanger(clientID, clientSecret, authURL, tokenURL string, logger *zap.Logger) *GitHubExchanger {
	endpoint := githuboauth.Endpoint
	if authURL != "" {
		endpoint.AuthURL = authURL
	}
	if tokenURL != "" {
		endpoint.TokenURL = tokenURL
	}
	return &GitHubExchanger{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     endpoint,
		},
		logger: logger,
	}
}

// ExchangedToken is the result of a code exchange, mirrored back to the SPA.
type ExchangedToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
}

// Exchange trades an authorization code for an access token.
func (g *GitHubExchanger) Exchange(ctx context.Context, code string) (*ExchangedToken, error) {
	tok, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	scope, _ := tok.Extra("scope").(string)
	return &ExchangedToken{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		Scope:       scope,
	}, nil
}

type oauthCallbackRequest struct {
	Code string `json:"code"`
}

// OAuthCallback handles POST /api/oauth/callback. The response body is the
// raw token shape the SPA expects, not the standard envelope.
func (h *Handler) OAuthCallback(c *gin.Context) {
	var req oauthCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}

	tok, err := h.github.Exchange(c.Request.Context(), req.Code)
	if err != nil {
		h.logger.Error("github token exchange", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token exchange failed"})
		return
	}

	c.JSON(http.StatusOK, tok)
}
