package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dispatch/internal/auth"
)

// AuthHandler exchanges the admin password for a bearer token.
type AuthHandler struct {
	authz  auth.Authorizer
	logger *zap.Logger
}

// NewAuthHandler constructs the login handler.
func NewAuthHandler(authz auth.Authorizer, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{authz: authz, logger: logger}
}

type loginRequest struct {
	Password string `json:"password"`
}

// Login answers {token} or 401.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	token, err := h.authz.Login(req.Password)
	if err != nil {
		h.logger.Warn("admin login rejected", zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid administrator password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
