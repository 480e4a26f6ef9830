package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"proposal-management-api/middleware"
	"proposal-management-api/models"
	"proposal-management-api/services"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success   bool        `json:"success"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
	Message   string      `json:"message"`
}

// Login handles user authentication
func Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	d := current()
	user, err := d.Auth.Authenticate(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid email or password", "code": "UNAUTHENTICATED"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	token, expires, err := generateToken(d, *user)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Success:   true,
		Token:     token,
		ExpiresAt: expires,
		User:      *user,
		Message:   "Login successful",
	})
}

// GetProfile returns current user profile
func GetProfile(c *gin.Context) {
	user, err := current().Auth.Profile(c.Request.Context(), actor(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"user": user})
}

func generateToken(d *Dependencies, user models.User) (string, time.Time, error) {
	ttl := d.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return middleware.SignToken(d.JWTSecret, ttl, user)
}
