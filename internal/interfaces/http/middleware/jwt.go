package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/almi/backend/internal/domain/treasury"
	"github.com/almi/backend/internal/infrastructure/auth"
	"github.com/almi/backend/internal/interfaces/http/dto"
)

// Context keys set by the JWT middleware
const (
	ContextKeyClaims   = "jwt_claims"
	ContextKeyTenantID = "jwt_tenant_id"
	ContextKeyUserID   = "jwt_user_id"
	ContextKeyUsername = "jwt_username"
)

// JWTMiddlewareConfig configures the JWT authentication middleware
type JWTMiddlewareConfig struct {
	JWTService *auth.JWTService
	// SkipPaths are exact paths that bypass authentication
	SkipPaths []string
	// SkipPathPrefixes are path prefixes that bypass authentication
	SkipPathPrefixes []string
	Logger           *zap.Logger
}

// JWTAuth validates the Bearer token and injects the caller's identity
// into the request context.
func JWTAuth(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, ok := skip[path]; ok {
			c.Next()
			return
		}
		for _, prefix := range cfg.SkipPathPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		tokenString, err := extractBearerToken(c)
		if err != nil {
			abortUnauthorized(c, cfg.Logger, "missing or malformed authorization header", err)
			return
		}

		claims, err := cfg.JWTService.ValidateAccessToken(tokenString)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				abortUnauthorized(c, cfg.Logger, "token expired", err)
				return
			}
			abortUnauthorized(c, cfg.Logger, "invalid token", err)
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Set(ContextKeyTenantID, claims.TenantID)
		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyUsername, claims.Username)
		c.Next()
	}
}

func extractBearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", errors.New("authorization header missing")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errors.New("authorization header is not a bearer token")
	}
	return parts[1], nil
}

func abortUnauthorized(c *gin.Context, logger *zap.Logger, message string, err error) {
	if logger != nil {
		logger.Debug("request rejected",
			zap.String("path", c.Request.URL.Path),
			zap.String("reason", message),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(dto.ErrCodeUnauthorized, message))
}

// ClaimsFromContext returns the validated claims set by JWTAuth
func ClaimsFromContext(c *gin.Context) (*auth.Claims, bool) {
	value, ok := c.Get(ContextKeyClaims)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*auth.Claims)
	return claims, ok
}

// TenantIDFromContext returns the authenticated tenant ID
func TenantIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	claims, ok := ClaimsFromContext(c)
	if !ok {
		return uuid.Nil, false
	}
	id, err := claims.GetTenantUUID()
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// ActorFromContext builds the workflow actor for the authenticated user
func ActorFromContext(c *gin.Context) (treasury.Actor, bool) {
	claims, ok := ClaimsFromContext(c)
	if !ok {
		return treasury.Actor{}, false
	}
	userID, err := claims.GetUserUUID()
	if err != nil {
		return treasury.Actor{}, false
	}
	return treasury.Actor{
		ID:       userID,
		Name:     claims.Username,
		Reviewer: claims.IsReviewer(),
	}, true
}
