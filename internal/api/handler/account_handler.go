package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/video-gateway/internal/api/dto"
	"github.com/cuongbtq/video-gateway/internal/api/upstream"
)

const (
	loginPath    = "/api/accounts/login/"
	registerPath = "/api/accounts/register/"
)

// Login handles POST /login
// Forwards the credentials to the accounts service and mirrors its answer
func (h *AccountHandler) Login(c *gin.Context) {
	body, ok := bindBody(c, "email", "password")
	if !ok {
		return
	}

	h.logger.Debug("Forwarding login", slog.String("path", loginPath))

	proxyJSON(c, h.accounts, upstream.RoleAuth, http.MethodPost, loginPath, nil, dto.LoginRequest{
		Email:    body["email"],
		Password: body["password"],
	})
}

// Signup handles POST /signup
// Registers a new account with the accounts service
func (h *AccountHandler) Signup(c *gin.Context) {
	body, ok := bindBody(c, "email", "password", "first_name", "last_name")
	if !ok {
		return
	}

	h.logger.Debug("Forwarding signup", slog.String("path", registerPath))

	proxyJSON(c, h.accounts, upstream.RoleAuth, http.MethodPost, registerPath, nil, dto.RegisterRequest{
		Email:     body["email"],
		Password:  body["password"],
		FirstName: body["first_name"],
		LastName:  body["last_name"],
	})
}
