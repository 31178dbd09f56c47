package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gopherai-docchat/internal/app"
	"gopherai-docchat/internal/model"
	"gopherai-docchat/internal/transport/http/middleware"
	"gopherai-docchat/internal/transport/http/response"
)

type AuthHandler struct {
	authService *app.AuthService
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,notblank,min=3,max=64"`
	Email    string `json:"email" binding:"required,email,max=128"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required,notblank,max=64"`
	Password string `json:"password" binding:"required,max=128"`
}

type userView struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type sessionView struct {
	Token           string   `json:"token"`
	TokenIdentifier string   `json:"token_identifier"`
	User            userView `json:"user"`
}

func NewAuthHandler(authService *app.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates an account and signs the caller in.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.authService.Register(app.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	h.respondSession(c, result, err, "register failed")
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.authService.Login(app.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	h.respondSession(c, result, err, "login failed")
}

// Me echoes the account behind the bearer token along with its identifier.
func (h *AuthHandler) Me(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == 0 {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	user, err := h.authService.GetUserByID(userID)
	if err != nil {
		writeError(c, err, "fetch current user failed")
		return
	}
	if user == nil {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "user not found")
		return
	}

	response.OK(c, gin.H{
		"user":             toUserView(user),
		"token_identifier": middleware.TokenIdentifier(c),
	})
}

func (h *AuthHandler) respondSession(c *gin.Context, result *app.AuthResult, err error, fallback string) {
	if err != nil {
		writeError(c, err, fallback)
		return
	}
	response.OK(c, sessionView{
		Token:           result.Token,
		TokenIdentifier: result.TokenIdentifier,
		User:            toUserView(result.User),
	})
}

func toUserView(u *model.User) userView {
	return userView{ID: u.ID, Username: u.Username, Email: u.Email}
}
