package middleware

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token claims shared by issuers and validators.
const (
	TokenIssuer   = "bbs-api"
	TokenAudience = "bbs-client"
	TokenTTL      = 7 * 24 * time.Hour

	// AccessTokenCookie carries the JWT for browser clients.
	AccessTokenCookie = "access_token"
)

var (
	ErrMissingToken = errors.New("authorization required")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// AccessClaims is the validated content of an access token.
type AccessClaims struct {
	UserID    uint
	Username  string
	JTI       string
	ExpiresAt time.Time
}

// IssueToken signs an HS256 access token for the given user.
func IssueToken(secret string, userID uint, username string, now time.Time) (string, AccessClaims, error) {
	jti := fmt.Sprintf("%d-%s", now.Unix(), uuid.NewString()[:8])
	exp := now.Add(TokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(userID), 10),
		"username": username,
		"iss":      TokenIssuer,
		"aud":      TokenAudience,
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      jti,
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", AccessClaims{}, err
	}
	return signed, AccessClaims{UserID: userID, Username: username, JTI: jti, ExpiresAt: exp}, nil
}

// TokenFromRequest reads a bearer token from the Authorization header, falling
// back to the access token cookie.
func TokenFromRequest(c *fiber.Ctx) string {
	if authHeader := c.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	return c.Cookies(AccessTokenCookie)
}

// ParseToken validates signature, issuer, audience and subject.
func ParseToken(tokenString, secret string) (AccessClaims, error) {
	if tokenString == "" {
		return AccessClaims{}, ErrMissingToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return AccessClaims{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return AccessClaims{}, ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return AccessClaims{}, ErrInvalidToken
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return AccessClaims{}, ErrInvalidToken
	}

	out := AccessClaims{UserID: uint(userID)}
	out.Username, _ = claims["username"].(string)
	out.JTI, _ = claims["jti"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}
