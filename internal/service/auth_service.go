package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const invalidCredentials = "Invalid credentials"

// AuthService coordinates registration, login and token authentication.
type AuthService struct {
	users           repository.UserRepository
	policy          *policy.Policy
	tokenMgr        *auth.TokenManager
	bcryptCost      int
	allowSelfEnroll bool
	logger          *zap.Logger
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	Policy   *policy.Policy
	Logger   *zap.Logger
}

// LoginResult is a successful login.
type LoginResult struct {
	User      *domain.User
	Role      domain.Role
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:           deps.UserRepo,
		policy:          deps.Policy,
		tokenMgr:        auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost:      cfg.BcryptCost,
		allowSelfEnroll: cfg.AllowRoleSelfEnroll,
		logger:          logger,
	}
}

// Register creates a customer account.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	missing := []string{}
	if name == "" {
		missing = append(missing, "name")
	}
	if email == "" {
		missing = append(missing, "email")
	}
	if password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("Please provide all required fields", map[string]any{"missing": missing})
	}
	if !emailPattern.MatchString(email) {
		return nil, apperrors.NewValidationError("Please provide a valid email address", map[string]any{"field": "email"})
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("User already exists", map[string]any{"email": email})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Roles:        []domain.Role{domain.RoleCustomer},
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("User already exists", map[string]any{"email": email})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// Login verifies credentials and issues a token for selectedRole. An empty
// selectedRole means the user's first role.
func (s *AuthService) Login(ctx context.Context, email, password string, selectedRole domain.Role) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("Please provide email and password", nil)
	}
	if selectedRole != "" && !selectedRole.Valid() {
		return nil, apperrors.NewValidationError("Invalid role", map[string]any{"role": selectedRole})
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized(invalidCredentials)
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized(invalidCredentials)
	}

	role := selectedRole
	if role == "" {
		if len(user.Roles) == 0 {
			return nil, apperrors.NewForbidden("User has no roles")
		}
		role = user.Roles[0]
	}
	if !user.HasRole(role) {
		if !s.allowSelfEnroll {
			return nil, apperrors.NewForbidden("User does not hold role " + string(role))
		}
		user.AddRole(role)
		if err := s.users.Update(ctx, user); err != nil {
			return nil, apperrors.MapError(err)
		}
		s.logger.Info("role self-enrolled at login", zap.String("user_id", user.ID), zap.String("role", string(role)))
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{User: user, Role: role, Token: token, ExpiresAt: exp}, nil
}

// GrantRoles replaces userID's role set. Only admins may call it.
func (s *AuthService) GrantRoles(ctx context.Context, actor *domain.Actor, userID string, roles []domain.Role) (*domain.User, error) {
	if decision := s.policy.Decide(actor, policy.OpManageRoles, nil); !decision.Allowed {
		return nil, decision.Err()
	}
	for _, r := range roles {
		if !r.Valid() {
			return nil, apperrors.NewValidationError("Invalid role", map[string]any{"role": r})
		}
	}
	normalized := domain.NormalizeRoles(roles)
	if len(normalized) == 0 {
		return nil, apperrors.NewValidationError("At least one role is required", nil)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": userID})
		}
		return nil, apperrors.MapError(err)
	}
	user.Roles = normalized
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// Authenticate implements auth.Authenticator.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.Actor, error) {
	claims, err := s.tokenMgr.ParseToken(token)
	if err != nil {
		return nil, apperrors.NewUnauthorized("Not authorized to access this route")
	}
	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("User not found")
		}
		return nil, apperrors.MapError(err)
	}
	actor, err := domain.NewActor(user, claims.Role)
	if err != nil {
		return nil, apperrors.NewUnauthorized("Session role is no longer held")
	}
	return actor, nil
}
