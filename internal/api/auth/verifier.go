package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/video-gateway/internal/api/dto"
	"github.com/cuongbtq/video-gateway/internal/api/upstream"
)

// VerifyPath is the accounts service token verification endpoint.
const VerifyPath = "/api/accounts/token/verify/"

// Verifier delegates token validity to the accounts service.
type Verifier struct {
	accounts *upstream.Service
	logger   *slog.Logger
}

// NewVerifier creates a Verifier backed by the accounts service.
func NewVerifier(accounts *upstream.Service, logger *slog.Logger) *Verifier {
	return &Verifier{accounts: accounts, logger: logger}
}

// Verify reports whether the accounts service accepts token. It fails
// closed: an unreachable service or any status other than 200 means false.
func (v *Verifier) Verify(ctx context.Context, token string) bool {
	reply, err := v.accounts.Forward(ctx, upstream.RoleAuth, http.MethodPost, VerifyPath, nil,
		dto.VerifyTokenRequest{Token: token})
	if err != nil {
		v.logger.Warn("Token verification unavailable, rejecting request",
			slog.Any("error", err),
		)
		return false
	}

	if reply.StatusCode != http.StatusOK {
		v.logger.Debug("Token rejected by accounts service",
			slog.Int("status", reply.StatusCode),
		)
		return false
	}

	return true
}
