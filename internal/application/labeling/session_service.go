package labeling

import (
	"context"

	"github.com/erp/labelstation/internal/infrastructure/auth"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Authenticator logs operators in and out of the inventory backend
type Authenticator interface {
	Login(ctx context.Context, username, password string) error
	Logout(ctx context.Context)
	Session() *auth.Session
}

// SessionService handles operator login and logout
type SessionService struct {
	auth     Authenticator
	validate *validator.Validate
	logger   *zap.Logger
}

// NewSessionService creates a new SessionService
func NewSessionService(authenticator Authenticator, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		auth:     authenticator,
		validate: NewValidator(),
		logger:   logger,
	}
}

// Login authenticates the operator and starts a session
func (s *SessionService) Login(ctx context.Context, req LoginRequest) (auth.SessionInfo, error) {
	req.Normalize()
	if err := s.validate.Struct(req); err != nil {
		return auth.SessionInfo{}, validationError(err)
	}
	if err := s.auth.Login(ctx, req.Username, req.Password); err != nil {
		s.logger.Warn("login failed", zap.String("user", req.Username), zap.Error(err))
		return auth.SessionInfo{}, err
	}
	s.logger.Info("operator logged in", zap.String("user", req.Username))
	return s.auth.Session().Info(), nil
}

// Logout ends the session. The local session is always cleared.
func (s *SessionService) Logout(ctx context.Context) {
	user := s.auth.Session().User()
	s.auth.Logout(ctx)
	s.logger.Info("operator logged out", zap.String("user", user))
}

// Current returns the session state
func (s *SessionService) Current() auth.SessionInfo {
	return s.auth.Session().Info()
}

// IsActive reports whether an operator is logged in
func (s *SessionService) IsActive() bool {
	return s.auth.Session().IsActive()
}

// User returns the logged in operator, or "" when logged out
func (s *SessionService) User() string {
	return s.auth.Session().User()
}
