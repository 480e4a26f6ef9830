package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"proposal-management-api/apperrors"
	"proposal-management-api/models"
	"proposal-management-api/repositories"
	"proposal-management-api/utils"
)

// ErrInvalidCredentials hides whether the e-mail or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid email or password")

type AuthService struct {
	store  repositories.Store
	logger *zap.Logger
}

func NewAuthService(store repositories.Store, logger *zap.Logger) *AuthService {
	return &AuthService{store: defaultStore(store), logger: defaultLogger(logger, "auth")}
}

// Authenticate checks an e-mail/password pair against the user directory.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(utils.SanitizeInput(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := s.store.GetUserByEmail(ctx, email)
	if apperrors.KindOf(err) == apperrors.KindNotFound {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, logUnexpected(s.logger, err, "failed to load user", zap.String("email", email))
	}
	if !u.IsActive || !utils.IsBcryptHash(u.Password) || !utils.CheckPassword(u.Password, password) {
		s.logger.Info("login rejected", zap.Uint("user_id", u.UserID))
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *AuthService) Profile(ctx context.Context, userID uint) (*models.User, error) {
	u, err := s.store.GetUser(ctx, userID)
	return u, logUnexpected(s.logger, err, "failed to load profile", zap.Uint("user_id", userID))
}
