package handler

import (
	"github.com/gin-gonic/gin"

	"mastersrl/carnivalhub/internal/handler/middleware"
	"mastersrl/carnivalhub/internal/service"
	"mastersrl/carnivalhub/pkg/response"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterInput
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Created(c, user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	tokenSet, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if service.KindOf(err) == service.KindForbidden {
			response.Unauthorized(c, service.MessageOf(err))
			return
		}
		writeError(c, err)
		return
	}

	response.Success(c, tokenSet)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	response.Success(c, middleware.Actor(c))
}
