package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bilda/backend/internal/models"
	"github.com/bilda/backend/pkg/response"
	"github.com/bilda/backend/pkg/utils"
)

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	Handle      string `json:"handle" binding:"required,min=3,max=32"`
	DisplayName string `json:"display_name" binding:"required"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo   *Repository
	jwt    *JWTService
	github *GitHubExchanger
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo *Repository, jwt *JWTService, github *GitHubExchanger, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, jwt: jwt, github: github, logger: logger}
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	existing, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Internal(c, "failed to check email")
		return
	}
	if existing != nil {
		response.BadRequest(c, "email already registered")
		return
	}
	taken, err := h.repo.GetByHandle(c.Request.Context(), req.Handle)
	if err != nil {
		response.Internal(c, "failed to check handle")
		return
	}
	if taken != nil {
		response.Conflict(c, "handle already taken")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	user, err := h.repo.Create(c.Request.Context(), req.Email, hash, req.Handle, req.DisplayName, models.RoleUser)
	if err != nil {
		h.logger.Error("create user", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.Created(c, TokenResponse{Token: token, User: *user})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil || user == nil {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.OK(c, TokenResponse{Token: token, User: *user})
}

// Me handles GET /me.
func (h *Handler) Me(c *gin.Context) {
	// Same key as middleware.ContextUserID; middleware imports this package.
	userID := c.MustGet("user_id").(uuid.UUID)
	user, err := h.repo.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to load user")
		return
	}
	response.OK(c, user)
}
