package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/bazario/internal/apperrors"
	"github.com/nkiryanov/bazario/internal/logger"
	"github.com/nkiryanov/bazario/internal/metrics"
	"github.com/nkiryanov/bazario/internal/models"
	"github.com/nkiryanov/bazario/internal/repository"
	"github.com/nkiryanov/bazario/internal/service/auth/opaque"
	"github.com/nkiryanov/bazario/internal/service/auth/tokenmanager"
)

const defaultVerificationTTL = 24 * time.Hour

// Flow names for metrics
const (
	flowRegister            = "register"
	flowLogin               = "login"
	flowRefresh             = "refresh"
	flowLogout              = "logout"
	flowVerifyEmail         = "verify_email"
	flowSendVerifyEmail     = "send_verify_email"
	flowRestorePassword     = "restore_password"
	flowSendRestorePassword = "send_restore_password"
)

// Mail collaborator. Failures are logged and never fail the flow
type Mailer interface {
	SendEmailVerification(ctx context.Context, user models.User, token string) error
	SendPasswordRestore(ctx context.Context, user models.User, token string) error
}

type tokenManager interface {
	GeneratePair(ctx context.Context, user models.User) (models.TokenPair, error)
	IssueAccess(subject string) (models.IssuedToken, error)
	ParseAccess(access string) (string, error)

	FindRefresh(ctx context.Context, refresh string) (models.RefreshToken, error)
	VerifyExpiration(ctx context.Context, token models.RefreshToken) error
	RotateRefresh(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error)
	DeleteRefreshByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type userService interface {
	FindByHandle(ctx context.Context, handle string) (models.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	VerifyCredential(user models.User, password string) bool
	HashPassword(password string) (string, error)
}

type Config struct {
	// Lifetime of email verification and password restore tokens
	VerificationTTL time.Duration

	// Required
	Mailer Mailer

	// Optional: no-op implementations used if not set
	Logger  logger.Logger
	Metrics metrics.Recorder

	// Clock, time.Now if not set
	Now func() time.Time
}

type RegisterParams struct {
	FirstName string
	LastName  string
	Email     string
	Phone     *string
	Password  string
}

// Auth service
type AuthService struct {
	verificationTTL time.Duration

	tokens    tokenManager
	users     userService
	storage   repository.Storage
	generator *opaque.Generator
	mailer    Mailer

	logger  logger.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

func NewService(cfg Config, tokens tokenManager, users userService, storage repository.Storage) (*AuthService, error) {
	if cfg.Mailer == nil {
		return nil, errors.New("mailer must not be nil")
	}
	if cfg.VerificationTTL == 0 {
		cfg.VerificationTTL = defaultVerificationTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Nop{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &AuthService{
		verificationTTL: cfg.VerificationTTL,
		tokens:          tokens,
		users:           users,
		storage:         storage,
		generator:       opaque.NewGenerator(cfg.Now),
		mailer:          cfg.Mailer,
		logger:          cfg.Logger.With("component", "auth"),
		metrics:         cfg.Metrics,
		now:             cfg.Now,
	}, nil
}

// Create not verified user and send him email verification token
// User has to verify email before login, so no tokens issued here
func (s *AuthService) Register(ctx context.Context, p RegisterParams) (user models.User, err error) {
	defer s.record(flowRegister, &err)

	hash, err := s.users.HashPassword(p.Password)
	if err != nil {
		return user, err
	}

	var token models.VerificationToken
	err = s.storage.InTx(ctx, func(tx repository.Storage) error {
		user, err = tx.User().CreateUser(ctx, repository.CreateUserParams{
			FirstName:      p.FirstName,
			LastName:       p.LastName,
			Email:          strings.ToLower(strings.TrimSpace(p.Email)),
			Phone:          p.Phone,
			HashedPassword: hash,
		})
		if err != nil {
			return err
		}

		token, err = s.generator.Issue(user.ID, models.PurposeEmailVerification, s.verificationTTL)
		if err != nil {
			return err
		}

		return tx.Verification().Save(ctx, token)
	})
	if err != nil {
		return models.User{}, fmt.Errorf("can't register user. Err: %w", err)
	}

	s.sendMail(ctx, user, token)
	return user, nil
}

// Unknown handle and wrong password both reported as apperrors.ErrInvalidCredentials
func (s *AuthService) Login(ctx context.Context, handle string, password string) (pair models.TokenPair, err error) {
	defer s.record(flowLogin, &err)

	user, err := s.users.FindByHandle(ctx, handle)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return pair, apperrors.ErrInvalidCredentials
	case err != nil:
		return pair, err
	}

	if !s.users.VerifyCredential(user, password) {
		return pair, apperrors.ErrInvalidCredentials
	}

	if !user.Verified {
		return pair, apperrors.ErrUserNotVerified
	}

	pair, err = s.tokens.GeneratePair(ctx, user)
	if err != nil {
		return pair, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	return pair, nil
}

// Exchange refresh token for new access token
// Refresh token rotated: the old one can't be used anymore
func (s *AuthService) Refresh(ctx context.Context, refresh string) (pair models.TokenPair, err error) {
	defer s.record(flowRefresh, &err)

	token, err := s.tokens.FindRefresh(ctx, refresh)
	if err != nil {
		return pair, err
	}

	// Expired token deleted here
	if err = s.tokens.VerifyExpiration(ctx, token); err != nil {
		return pair, err
	}

	user, err := s.users.GetUserByID(ctx, token.UserID)
	if err != nil {
		return pair, err
	}

	rotated, err := s.tokens.RotateRefresh(ctx, token)
	if err != nil {
		return pair, err
	}

	access, err := s.tokens.IssueAccess(user.Email)
	if err != nil {
		return pair, err
	}

	return models.TokenPair{
		Access:  access,
		Refresh: models.IssuedToken{Value: rotated.Token, ExpiresAt: rotated.ExpiresAt},
	}, nil
}

// Delete user refresh tokens. Idempotent
func (s *AuthService) Logout(ctx context.Context, user models.User) (err error) {
	defer s.record(flowLogout, &err)

	count, err := s.tokens.DeleteRefreshByUser(ctx, user.ID)
	if err != nil {
		return err
	}

	s.logger.Debug("User logged out", "user_id", user.ID, "deleted_tokens", count)
	return nil
}

// Redeem email verification token and mark the user verified
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (err error) {
	defer s.record(flowVerifyEmail, &err)

	// Any error rolls back consumption, so token stays as it was
	return s.storage.InTx(ctx, func(tx repository.Storage) error {
		t, err := tx.Verification().Consume(ctx, models.PurposeEmailVerification, token)
		if err != nil {
			return err
		}

		user, err := tx.User().GetUserByID(ctx, t.UserID)
		if err != nil {
			return err
		}

		switch {
		case user.Verified:
			return apperrors.ErrUserAlreadyVerified
		case t.IsExpired(s.now()):
			return apperrors.ErrVerificationTokenExpired
		}

		return tx.User().SetVerified(ctx, user.ID)
	})
}

// Issue new email verification token if previous one expired
func (s *AuthService) SendVerifyEmail(ctx context.Context, handle string) (err error) {
	defer s.record(flowSendVerifyEmail, &err)

	user, err := s.users.FindByHandle(ctx, handle)
	if err != nil {
		return err
	}

	if user.Verified {
		return apperrors.ErrUserAlreadyVerified
	}

	return s.issueAndSend(ctx, user, models.PurposeEmailVerification)
}

// Redeem password restore token and replace the user password
// All user refresh tokens revoked
func (s *AuthService) RestorePassword(ctx context.Context, token string, password string) (err error) {
	defer s.record(flowRestorePassword, &err)

	hash, err := s.users.HashPassword(password)
	if err != nil {
		return err
	}

	return s.storage.InTx(ctx, func(tx repository.Storage) error {
		t, err := tx.Verification().Consume(ctx, models.PurposePasswordRestore, token)
		if err != nil {
			return err
		}

		user, err := tx.User().GetUserByID(ctx, t.UserID)
		if err != nil {
			return err
		}

		switch {
		case t.IsExpired(s.now()):
			return apperrors.ErrVerificationTokenExpired
		case !user.Verified:
			return apperrors.ErrUserNotVerified
		}

		if err := tx.User().UpdatePassword(ctx, user.ID, hash); err != nil {
			return err
		}

		_, err = tx.Refresh().DeleteByUser(ctx, user.ID)
		return err
	})
}

// Issue password restore token if previous one expired
func (s *AuthService) SendRestorePassword(ctx context.Context, handle string) (err error) {
	defer s.record(flowSendRestorePassword, &err)

	user, err := s.users.FindByHandle(ctx, handle)
	if err != nil {
		return err
	}

	if !user.Verified {
		return apperrors.ErrUserNotVerified
	}

	return s.issueAndSend(ctx, user, models.PurposePasswordRestore)
}

// Resolve user by access token
func (s *AuthService) Authenticate(ctx context.Context, access string) (models.User, error) {
	subject, err := s.tokens.ParseAccess(access)
	s.metrics.AccessToken(tokenmanager.AccessStatus(err))
	if err != nil {
		return models.User{}, err
	}

	return s.users.FindByHandle(ctx, subject)
}

func (s *AuthService) issueAndSend(ctx context.Context, user models.User, purpose models.Purpose) error {
	token, err := s.generator.Issue(user.ID, purpose, s.verificationTTL)
	if err != nil {
		return err
	}

	// Check and update in one statement: concurrent resends can't both pass
	if err := s.storage.Verification().IssueIfExpired(ctx, token); err != nil {
		return err
	}

	s.sendMail(ctx, user, token)
	return nil
}

func (s *AuthService) sendMail(ctx context.Context, user models.User, token models.VerificationToken) {
	var err error
	switch token.Purpose {
	case models.PurposeEmailVerification:
		err = s.mailer.SendEmailVerification(ctx, user, token.Token)
	case models.PurposePasswordRestore:
		err = s.mailer.SendPasswordRestore(ctx, user, token.Token)
	}

	if err != nil {
		s.metrics.MailFailure(string(token.Purpose))
		s.logger.Error("Failed to send mail", "purpose", token.Purpose, "user_id", user.ID, "error", err)
	}
}

func (s *AuthService) record(flow string, err *error) {
	outcome := metrics.OutcomeOK
	if *err != nil {
		outcome = metrics.OutcomeError
	}
	s.metrics.AuthFlow(flow, outcome)
}
