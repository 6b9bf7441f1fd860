package auth

import (
	"log/slog"

	"github.com/golang-jwt/jwt/v5"

	"filespace/internal/domain"
	"filespace/internal/domain/models"
)

// checkClaims applies the checks shared by every verifier once the
// signature and registered claims have been validated.
func checkClaims(token *jwt.Token, logger *slog.Logger) (*models.Claims, error) {
	claims, ok := token.Claims.(*models.Claims)
	if !ok {
		logger.Error("failed to extract claims from token")
		return nil, &domain.UnauthorizedError{Message: "invalid token"}
	}

	if claims.Subject == "" {
		logger.Debug("token missing subject claim")
		return nil, &domain.UnauthorizedError{Message: "token has no subject"}
	}

	// Anonymous sessions have no namespace of their own
	if claims.Role == "anon" {
		logger.Debug("anonymous token rejected", "user_id", claims.Subject)
		return nil, &domain.UnauthorizedError{Message: "anonymous tokens are not accepted"}
	}

	return claims, nil
}
