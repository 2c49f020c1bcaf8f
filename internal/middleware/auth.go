package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	TokenIssuer   = "foodgram-api"
	TokenAudience = "foodgram-client"

	blacklistPrefix = "blacklist:"
)

var (
	ErrMissingToken = errors.New("authentication credentials were not provided")
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrRevokedToken = errors.New("token has been revoked")
)

// TokenClaims is the subset of JWT claims the API relies on.
type TokenClaims struct {
	UserID    uint
	JTI       string
	ExpiresAt time.Time
}

// IssueToken signs an HS256 token for userID valid for ttl.
func IssueToken(secret string, userID uint, ttl time.Duration) (string, *TokenClaims, error) {
	if secret == "" {
		return "", nil, fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	out := &TokenClaims{
		UserID:    userID,
		JTI:       fmt.Sprintf("%d-%s", now.Unix(), uuid.New().String()[:8]),
		ExpiresAt: now.Add(ttl),
	}
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": TokenIssuer,
		"aud": TokenAudience,
		"exp": out.ExpiresAt.Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": out.JTI,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", nil, err
	}
	return signed, out, nil
}

// ParseToken validates signature, issuer, audience and expiry.
func ParseToken(secret, raw string) (*TokenClaims, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
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
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, ErrInvalidToken
	}

	out := &TokenClaims{UserID: uint(userID)}
	out.JTI, _ = claims["jti"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

// ExtractToken reads "Authorization: Token <jwt>" or "Authorization: Bearer <jwt>".
func ExtractToken(c *fiber.Ctx) string {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	switch strings.ToLower(parts[0]) {
	case "token", "bearer":
		return parts[1]
	default:
		return ""
	}
}

// Authenticate resolves the request's token to claims, consulting the
// revocation list when Redis is available.
func Authenticate(c *fiber.Ctx, secret string, rdb *redis.Client) (*TokenClaims, error) {
	raw := ExtractToken(c)
	if raw == "" {
		return nil, ErrMissingToken
	}
	claims, err := ParseToken(secret, raw)
	if err != nil {
		return nil, err
	}
	if IsRevoked(c.UserContext(), rdb, claims.JTI) {
		return nil, ErrRevokedToken
	}
	return claims, nil
}

// RevokeToken blacklists the token's jti until it would have expired anyway.
func RevokeToken(ctx context.Context, rdb *redis.Client, claims *TokenClaims) error {
	if rdb == nil || claims == nil || claims.JTI == "" {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return rdb.Set(ctx, blacklistPrefix+claims.JTI, claims.UserID, ttl).Err()
}

// IsRevoked reports whether jti is blacklisted. Redis errors fail open.
func IsRevoked(ctx context.Context, rdb *redis.Client, jti string) bool {
	if rdb == nil || jti == "" {
		return false
	}
	n, err := rdb.Exists(ctx, blacklistPrefix+jti).Result()
	return err == nil && n > 0
}

// SetUser stores the authenticated user in locals and in the user context.
func SetUser(c *fiber.Ctx, userID uint) {
	c.Locals("userID", userID)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))
}
