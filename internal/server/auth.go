package server

import (
	"context"
	"time"

	"bbs/internal/middleware"
	"bbs/internal/models"

	"github.com/gofiber/fiber/v2"
)

const revokedTokenPrefix = "blacklist:"

// AuthRequired returns the authentication middleware. Tokens come from the
// Authorization header or the access token cookie.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := middleware.ParseToken(middleware.TokenFromRequest(c), s.config.JWTSecret)
		if err != nil {
			msg := "Invalid or expired token"
			if err == middleware.ErrMissingToken {
				msg = "Authorization required"
			}
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError(msg))
		}

		if s.isRevoked(c.UserContext(), claims.JTI) {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Token has been revoked"))
		}

		// Store user ID in context
		c.Locals("userID", claims.UserID)
		// Sync to UserContext for logging and downstream services
		ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, claims.UserID)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// optionalUserID resolves the current identity on public routes without enforcing it.
func (s *Server) optionalUserID(c *fiber.Ctx) (uint, bool) {
	claims, err := middleware.ParseToken(middleware.TokenFromRequest(c), s.config.JWTSecret)
	if err != nil || s.isRevoked(c.UserContext(), claims.JTI) {
		return 0, false
	}
	return claims.UserID, true
}

// currentUserID returns the identity stored by AuthRequired.
func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}

func (s *Server) isRevoked(ctx context.Context, jti string) bool {
	if jti == "" || s.redis == nil {
		return false
	}
	n, err := s.redis.Exists(ctx, revokedTokenPrefix+jti).Result()
	return err == nil && n > 0
}

// revoke blacklists a token until it would have expired anyway.
func (s *Server) revoke(ctx context.Context, claims middleware.AccessClaims) error {
	if claims.JTI == "" || s.redis == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.redis.Set(ctx, revokedTokenPrefix+claims.JTI, 1, ttl).Err()
}

// setSessionCookie hands the access token to browser clients.
func (s *Server) setSessionCookie(c *fiber.Ctx, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
