package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"proposal-management-api/models"
	"proposal-management-api/policy"
)

const (
	ctxUserID = "userID"
	ctxEmail  = "email"
	ctxRoleID = "roleID"
	ctxActor  = "actor"
)

type Claims struct {
	UserID uint          `json:"user_id"`
	Email  string        `json:"email"`
	RoleID models.RoleID `json:"role_id"`
	jwt.RegisteredClaims
}

// UserLookup loads the account behind a token. repositories.Store satisfies it.
type UserLookup interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
}

// SignToken issues an HS256 token for user valid for ttl.
func SignToken(secret string, ttl time.Duration, user models.User) (string, time.Time, error) {
	if secret == "" {
		return "", time.Time{}, errors.New("jwt secret is empty")
	}
	now := time.Now()
	expires := now.Add(ttl)
	claims := Claims{
		UserID: user.UserID,
		Email:  user.Email,
		RoleID: user.RoleID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   msg,
		"code":    "UNAUTHENTICATED",
	})
}

// AuthMiddleware validates the bearer token and checks that the user still
// exists and is active. The role is taken from the user row, not the token.
func AuthMiddleware(secret string, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Authorization header is required")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			abortUnauthorized(c, "Invalid authorization header format")
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid || claims.UserID == 0 {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		user, err := users.GetUser(c.Request.Context(), claims.UserID)
		if err != nil || !user.IsActive || user.DeleteAt != nil {
			abortUnauthorized(c, "User not found")
			return
		}

		c.Set(ctxUserID, user.UserID)
		c.Set(ctxEmail, user.Email)
		c.Set(ctxRoleID, user.RoleID)
		c.Set(ctxActor, policy.Actor{ID: user.UserID, Role: user.RoleID})

		c.Next()
	}
}

// ActorFromContext returns the authenticated caller; the zero Actor is denied
// by every policy predicate.
func ActorFromContext(c *gin.Context) policy.Actor {
	if v, ok := c.Get(ctxActor); ok {
		if a, ok := v.(policy.Actor); ok {
			return a
		}
	}
	return policy.Actor{}
}

// RequireRole checks if user has specific role
func RequireRole(roles ...models.RoleID) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFromContext(c)
		if actor.ID == 0 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "Role not found", "code": "FORBIDDEN"})
			return
		}

		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   "Insufficient permissions",
			"code":    "FORBIDDEN",
			"reason":  string(policy.ReasonRoleNotPermitted),
		})
	}
}
