package httptransport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	jwttoken "staffops/internal/jwt_token"
	"staffops/internal/transport/http/shared"
	id "staffops/pkg/domain"
	dErrors "staffops/pkg/domain-errors"
	"staffops/pkg/secrets"
)

// TokenIssuer mints access tokens for callers holding the admin bootstrap
// key. The real workforce IdP issues production tokens; this surface exists
// for provisioning and local setups, and is disabled when no key hash is
// configured.
type TokenIssuer struct {
	jwt          *jwttoken.JWTService
	adminKeyHash string
	tokenTTL     time.Duration
	logger       *slog.Logger
}

func NewTokenIssuer(jwt *jwttoken.JWTService, adminKeyHash string, tokenTTL time.Duration, logger *slog.Logger) *TokenIssuer {
	return &TokenIssuer{
		jwt:          jwt,
		adminKeyHash: adminKeyHash,
		tokenTTL:     tokenTTL,
		logger:       logger,
	}
}

type tokenRequest struct {
	AdminKey string `json:"admin_key"`
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (t *TokenIssuer) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if t.adminKeyHash == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "token issuance is not enabled"))
		return
	}

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if err := secrets.Verify(req.AdminKey, t.adminKeyHash); err != nil {
		t.logger.WarnContext(ctx, "token issuance rejected", "error", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid admin key"))
		return
	}
	userID, err := id.ParseUserID(req.UserID)
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid user id"))
		return
	}

	token, err := t.jwt.GenerateAccessToken(userID, id.ParseRole(req.Role), t.tokenTTL)
	if err != nil {
		t.logger.ErrorContext(ctx, "token generation failed", "error", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "could not issue token"))
		return
	}

	shared.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(t.tokenTTL.Seconds()),
	})
}
