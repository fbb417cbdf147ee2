package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bookshelf/bookshelf/internal/models"
	"github.com/bookshelf/bookshelf/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	List(ctx context.Context) ([]models.User, error)
}

type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	Claim(ctx context.Context, jti string, ttl time.Duration) (bool, error)
}

// SessionService owns login, refresh and logout. It is the only caller of the
// token encode path.
type SessionService struct {
	users       UserStore
	hasher      *PasswordHasher
	tokens      *JWTService
	revocations TokenRevoker
	logger      *logrus.Logger

	// dummyHash keeps login timing similar for unknown emails.
	dummyHash string
}

func NewSessionService(
	users UserStore,
	hasher *PasswordHasher,
	tokens *JWTService,
	revocations TokenRevoker,
	logger *logrus.Logger,
) (*SessionService, error) {
	dummyHash, err := hasher.Hash(uuid.New().String())
	if err != nil {
		return nil, err
	}

	return &SessionService{
		users:       users,
		hasher:      hasher,
		tokens:      tokens,
		revocations: revocations,
		logger:      logger,
		dummyHash:   dummyHash,
	}, nil
}

type LoginResult struct {
	Tokens    *models.TokenPair
	Principal models.Principal
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *SessionService) Signup(ctx context.Context, req models.SignupRequest) (*models.User, error) {
	email := normalizeEmail(req.Email)

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		UID:          uuid.New().String(),
		Username:     req.Username,
		Email:        email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         models.RoleUser,
		PasswordHash: passwordHash,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_uid": user.UID,
		"email":    user.Email,
	}).Info("User signed up")

	return user, nil
}

// Login verifies the credential and issues an access and refresh token pair.
// Unknown emails and wrong passwords both fail with ErrInvalidCredentials.
func (s *SessionService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if user == nil {
		s.hasher.Verify(password, s.dummyHash)
		s.logger.WithField("email", email).Info("Login failed: unknown email")
		return nil, ErrInvalidCredentials
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.logger.WithField("user_uid", user.UID).Info("Login failed: wrong password")
		return nil, ErrInvalidCredentials
	}

	principal := user.Principal()
	pair, err := s.tokens.IssuePair(principal)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Tokens: pair, Principal: principal}, nil
}

// Refresh mints a new pair from an already verified refresh token. The
// embedded principal is trusted as-is. The consumed refresh token is claimed
// on the denylist before anything is issued, so concurrent refreshes with the
// same token yield at most one pair.
func (s *SessionService) Refresh(ctx context.Context, refresh *Claims) (*models.TokenPair, error) {
	if refresh.Kind() != RefreshToken {
		return nil, ErrWrongTokenKind
	}

	claimed, err := s.revocations.Claim(ctx, refresh.ID, refresh.Remaining(s.tokens.Now()))
	if err != nil {
		s.logger.WithError(err).WithField("jti", refresh.ID).Warn("Revocation store unavailable, refreshing without rotation")
	} else if !claimed {
		return nil, ErrTokenRevoked
	}

	return s.tokens.IssuePair(refresh.User)
}

// Logout revokes the access token and, when given, the caller's refresh token.
// Store failures are logged and not returned.
func (s *SessionService) Logout(ctx context.Context, access *Claims, refreshToken string) {
	s.revoke(ctx, access)

	if refreshToken == "" {
		return
	}

	refresh, err := s.tokens.Decode(refreshToken)
	if err != nil {
		s.logger.WithError(err).Debug("Ignoring undecodable refresh token on logout")
		return
	}

	if refresh.Kind() != RefreshToken || refresh.User.UserID != access.User.UserID {
		s.logger.WithField("jti", refresh.ID).Warn("Ignoring foreign refresh token on logout")
		return
	}

	s.revoke(ctx, refresh)
}

func (s *SessionService) revoke(ctx context.Context, claims *Claims) {
	ttl := claims.Remaining(s.tokens.Now())
	if err := s.revocations.Revoke(ctx, claims.ID, ttl); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"jti":  claims.ID,
			"kind": claims.Kind().String(),
		}).Error("Token revocation failed")
	}
}

func (s *SessionService) CurrentUser(ctx context.Context, principal models.Principal) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, principal.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *SessionService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
