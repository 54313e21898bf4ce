package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/zora/internal/domain/user"
	"github.com/geocoder89/zora/internal/http/middlewares"
	"github.com/geocoder89/zora/internal/security"
	"github.com/gin-gonic/gin"
)

type UserStore interface {
	Create(ctx context.Context, email, passwordHash string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id int64) (user.User, error)
}

type TokenIssuer interface {
	GenerateAccessToken(userID int64, email string) (string, error)
}

type AuthHandler struct {
	users  UserStore
	tokens TokenIssuer
}

// NewAuthHandler wires registration and login. tokens may be nil, in which
// case responses carry no access token.
func NewAuthHandler(users UserStore, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

type CredentialsRequest struct {
	Email    string `json:"email" binding:"required,max=254"`
	Password string `json:"password" binding:"required,max=1024"`
}

type authResponse struct {
	User        user.User `json:"user"`
	AccessToken string    `json:"accessToken,omitempty"`
}

func (h *AuthHandler) respondWithUser(ctx *gin.Context, status int, u user.User) {
	resp := authResponse{User: u}

	if h.tokens != nil {
		tok, err := h.tokens.GenerateAccessToken(u.ID, u.Email)
		if err != nil {
			RespondInternal(ctx, err)
			return
		}
		resp.AccessToken = tok
	}

	ctx.JSON(status, resp)
}

// checkCredentials normalises the email and applies the shape rules shared by
// registration and login, answering 400 when they fail.
func checkCredentials(ctx *gin.Context, req CredentialsRequest) (string, bool) {
	email := user.NormalizeEmail(req.Email)
	if !user.ValidEmail(email) {
		RespondBadRequest(ctx, "Invalid email address", gin.H{"fields": []FieldError{
			{Field: "email", Rule: "email", Message: validationMessage("email", "")},
		}})
		return "", false
	}

	if len([]rune(req.Password)) < user.MinPasswordLength {
		RespondBadRequest(ctx, "Password is too short", gin.H{"fields": []FieldError{
			{Field: "password", Rule: "min", Param: "8", Message: validationMessage("min", "8")},
		}})
		return "", false
	}

	return email, true
}

// Register handles POST /api/users.
func (h *AuthHandler) Register(ctx *gin.Context) {
	var req CredentialsRequest
	if !BindJSON(ctx, &req) {
		return
	}

	email, ok := checkCredentials(ctx, req)
	if !ok {
		return
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		RespondInternal(ctx, err)
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	u, err := h.users.Create(cctx, email, hash)
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondConflict(ctx, "email_taken", "Email is already in use.")
			return
		}
		RespondInternal(ctx, err)
		return
	}

	h.respondWithUser(ctx, http.StatusCreated, u)
}

// Login handles POST /api/login. Malformed credentials are a 400; unknown
// emails and wrong passwords get the same 401.
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req CredentialsRequest
	if !BindJSON(ctx, &req) {
		return
	}

	email, ok := checkCredentials(ctx, req)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	u, err := h.users.GetByEmail(cctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
			return
		}
		RespondInternal(ctx, err)
		return
	}

	if !security.VerifyPassword(req.Password, u.PasswordHash) {
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	h.respondWithUser(ctx, http.StatusOK, u)
}

// Me handles GET /api/me behind RequireAuth.
func (h *AuthHandler) Me(ctx *gin.Context) {
	id, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondUnAuthorized(ctx, "unauthorized", "Account no longer exists")
			return
		}
		RespondInternal(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": u})
}
