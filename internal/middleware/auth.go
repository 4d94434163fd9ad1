// Package middleware provides authentication, logging, rate limiting and tracing middleware for the application.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	TokenIssuer   = "inkwell-api"
	TokenAudience = "inkwell-client"
	// SessionCookie carries the signed token for browser sessions.
	SessionCookie = "inkwell_session"
	// BlacklistPrefix marks revoked tokens by JTI in Redis.
	BlacklistPrefix = "blacklist:"

	userIDLocal = "userID"
	claimsLocal = "tokenClaims"
)

var errInvalidToken = errors.New("invalid or expired token")

// TokenClaims is the subset of JWT claims the application relies on.
type TokenClaims struct {
	UserID    uint
	Username  string
	JTI       string
	ExpiresAt time.Time
}

// GenerateToken signs an HS256 session token for the user.
func GenerateToken(secret string, userID uint, username string, ttl time.Duration) (string, TokenClaims, error) {
	now := time.Now()
	claims := TokenClaims{
		UserID:    userID,
		Username:  username,
		JTI:       uuid.NewString(),
		ExpiresAt: now.Add(ttl),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(userID), 10),
		"username": username,
		"iss":      TokenIssuer,
		"aud":      TokenAudience,
		"jti":      claims.JTI,
		"iat":      now.Unix(),
		"exp":      claims.ExpiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", TokenClaims{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// ParseToken validates signature, expiry, issuer and audience.
func ParseToken(secret, tokenString string) (TokenClaims, error) {
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
		return TokenClaims{}, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return TokenClaims{}, errInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return TokenClaims{}, errInvalidToken
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return TokenClaims{}, errInvalidToken
	}

	out := TokenClaims{UserID: uint(userID)}
	out.Username, _ = claims["username"].(string)
	out.JTI, _ = claims["jti"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

func tokenFromRequest(c *fiber.Ctx) string {
	if authHeader := c.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}
	return c.Cookies(SessionCookie)
}

// UserExistsFunc reports whether the account behind a token still exists.
type UserExistsFunc func(ctx context.Context, userID uint) (bool, error)

// OptionalAuth identifies the caller from a Bearer header or the session cookie.
// It never rejects; invalid, expired or revoked tokens leave the request anonymous,
// as do tokens of deleted accounts when userExists is set.
func OptionalAuth(secret string, rdb *redis.Client, userExists UserExistsFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := tokenFromRequest(c)
		if tokenString == "" {
			return c.Next()
		}

		claims, err := ParseToken(secret, tokenString)
		if err != nil {
			return c.Next()
		}

		if claims.JTI != "" && rdb != nil {
			revoked, err := rdb.Exists(c.UserContext(), BlacklistPrefix+claims.JTI).Result()
			if err == nil && revoked > 0 {
				return c.Next()
			}
		}

		if userExists != nil {
			ok, err := userExists(c.UserContext(), claims.UserID)
			if err != nil {
				Logger.WarnContext(c.UserContext(), "session user lookup failed",
					slog.Uint64("user_id", uint64(claims.UserID)),
					slog.String("error", err.Error()),
				)
			}
			if !ok {
				return c.Next()
			}
		}

		c.Locals(userIDLocal, claims.UserID)
		c.Locals(claimsLocal, claims)
		ctx := context.WithValue(c.UserContext(), UserIDKey, claims.UserID)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// RevokeToken blacklists the token's JTI until it would have expired anyway.
func RevokeToken(ctx context.Context, rdb *redis.Client, claims TokenClaims) error {
	if rdb == nil || claims.JTI == "" {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return rdb.Set(ctx, BlacklistPrefix+claims.JTI, "1", ttl).Err()
}

// CurrentUserID returns the authenticated user's ID, or 0 for anonymous requests.
func CurrentUserID(c *fiber.Ctx) uint {
	if uid, ok := c.Locals(userIDLocal).(uint); ok {
		return uid
	}
	return 0
}

// CurrentClaims returns the claims of the token that authenticated the request.
func CurrentClaims(c *fiber.Ctx) (TokenClaims, bool) {
	claims, ok := c.Locals(claimsLocal).(TokenClaims)
	return claims, ok
}

// LoginRequired redirects anonymous requests to loginPath with the original path in ?next=.
func LoginRequired(loginPath string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CurrentUserID(c) != 0 {
			return c.Next()
		}
		return c.Redirect(LoginRedirectURL(loginPath, c.OriginalURL()), fiber.StatusFound)
	}
}

// LoginRedirectURL builds loginPath?next=<next>, keeping slashes readable.
func LoginRedirectURL(loginPath, next string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
	return loginPath + "?next=" + escaped
}

// APIAuthRequired rejects anonymous requests with a JSON 401.
func APIAuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CurrentUserID(c) == 0 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization required",
				"code":  "UNAUTHORIZED",
			})
		}
		return c.Next()
	}
}
