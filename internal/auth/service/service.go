package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"leadflow_backend/internal/auth/password"
	"leadflow_backend/internal/auth/repository"
	"leadflow_backend/internal/auth/token"
	"leadflow_backend/internal/shared/actor"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	accessTokenType = "access"

	msgInvalidCredentials = "invalid credentials"
	msgUserNotFound       = "user not found"
	msgWorkerNotFound     = "Worker not found"
	msgPasswordTooShort   = "password must be at least 8 characters"
	msgResetTokenInvalid  = "invalid or expired reset token"
	msgResetTokenExpired  = "reset token has expired"

	resetTokenBytes = 32
	resetPath       = "/reset-password"
)

// Users is the subset of the repository the service depends on.
type Users interface {
	CreateUser(ctx context.Context, params repository.CreateUserParams) (repository.User, error)
	GetUserByEmail(ctx context.Context, email string) (repository.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (repository.User, error)
	ListUsersByRole(ctx context.Context, role string) ([]repository.User, error)
	GetUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]repository.User, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
	CreateResetToken(ctx context.Context, userID uuid.UUID, digest string, expiresAt time.Time) error
	ConsumeResetToken(ctx context.Context, digest string) (uuid.UUID, time.Time, error)
}

// Mailer sends the reset link.
type Mailer interface {
	SendPasswordResetEmail(ctx context.Context, toEmail, name, resetURL string) error
}

type Service struct {
	repo Users
	cfg  config.AuthServiceConfig
	mail Mailer
	log  *logger.Logger
	now  func() time.Time
}

func New(repo Users, cfg config.AuthServiceConfig, mail Mailer, log *logger.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, mail: mail, log: log, now: time.Now}
}

type Profile struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Role      actor.Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

type SignInResult struct {
	AccessToken string
	ExpiresAt   time.Time
	User        Profile
}

type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     actor.Role
}

func toProfile(u repository.User) Profile {
	return Profile{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      actor.Role(u.Role),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (s *Service) SignIn(ctx context.Context, email, plainPassword string) (SignInResult, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.AuthEvent("sign_in", email, false, "unknown email")
			return SignInResult{}, apperr.Unauthorized(msgInvalidCredentials)
		}
		return SignInResult{}, err
	}

	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		s.log.AuthEvent("sign_in", user.Email, false, "password mismatch")
		return SignInResult{}, apperr.Unauthorized(msgInvalidCredentials)
	}

	token, expiresAt, err := s.signJWT(user.ID, user.Role)
	if err != nil {
		return SignInResult{}, apperr.Internalf("auth.service.sign_in", err, "sign token failed")
	}

	s.log.AuthEvent("sign_in", user.Email, true, "")
	return SignInResult{AccessToken: token, ExpiresAt: expiresAt, User: toProfile(user)}, nil
}

// ForgotPassword mails a single-use reset link. Unknown addresses succeed
// silently so the endpoint does not reveal which emails are registered.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.AuthEvent("forgot_password", email, false, "unknown email")
			return nil
		}
		return err
	}

	raw, digest, err := token.Generate(resetTokenBytes)
	if err != nil {
		return apperr.Internalf("auth.service.forgot_password", err, "generate reset token failed")
	}
	if err := s.repo.CreateResetToken(ctx, user.ID, digest, s.now().Add(s.cfg.GetResetTokenTTL())); err != nil {
		return err
	}

	if err := s.mail.SendPasswordResetEmail(ctx, user.Email, user.Name, s.buildURL(resetPath, raw)); err != nil {
		return apperr.Internalf("auth.service.forgot_password", err, "send reset email failed")
	}

	s.log.AuthEvent("forgot_password", user.Email, true, "")
	return nil
}

// ResetPassword spends a reset token and sets the new password. A token is
// consumed by its first use, even when it turns out to be expired.
func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	if len(newPassword) < password.MinLength {
		return apperr.Validation(msgPasswordTooShort)
	}

	userID, expiresAt, err := s.repo.ConsumeResetToken(ctx, token.Digest(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.BadRequest(msgResetTokenInvalid)
		}
		return err
	}
	if s.now().After(expiresAt) {
		return apperr.Gone(msgResetTokenExpired)
	}

	hash, err := password.Hash(newPassword)
	if err != nil {
		return apperr.Internalf("auth.service.reset_password", err, "hash password failed")
	}
	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.BadRequest(msgResetTokenInvalid)
		}
		return err
	}

	s.log.AuthEvent("reset_password", userID.String(), true, "")
	return nil
}

func (s *Service) CreateUser(ctx context.Context, input CreateUserInput) (Profile, error) {
	if !input.Role.Valid() {
		return Profile{}, apperr.Validation("role must be manager or worker")
	}
	if len(input.Password) < password.MinLength {
		return Profile{}, apperr.Validation(msgPasswordTooShort)
	}

	hash, err := password.Hash(input.Password)
	if err != nil {
		return Profile{}, apperr.Internalf("auth.service.create_user", err, "hash password failed")
	}

	user, err := s.repo.CreateUser(ctx, repository.CreateUserParams{
		Name:         strings.TrimSpace(input.Name),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: hash,
		Role:         string(input.Role),
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return Profile{}, apperr.Conflict("a user with this email already exists")
		}
		return Profile{}, err
	}
	return toProfile(user), nil
}

func (s *Service) GetMe(ctx context.Context, userID uuid.UUID) (Profile, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Profile{}, apperr.NotFound(msgUserNotFound)
		}
		return Profile{}, err
	}
	return toProfile(user), nil
}

func (s *Service) ListWorkers(ctx context.Context) ([]Profile, error) {
	users, err := s.repo.ListUsersByRole(ctx, string(actor.RoleWorker))
	if err != nil {
		return nil, err
	}
	out := make([]Profile, 0, len(users))
	for _, u := range users {
		out = append(out, toProfile(u))
	}
	return out, nil
}

// ListManagers returns every manager as a notification recipient.
func (s *Service) ListManagers(ctx context.Context) ([]actor.Actor, error) {
	users, err := s.repo.ListUsersByRole(ctx, string(actor.RoleManager))
	if err != nil {
		return nil, err
	}
	out := make([]actor.Actor, 0, len(users))
	for _, u := range users {
		out = append(out, actor.New(u.ID, actor.RoleManager))
	}
	return out, nil
}

// ResolveUser returns the id and role stored for a user. Assignment
// targets go through here so the role travels with the id.
func (s *Service) ResolveUser(ctx context.Context, userID uuid.UUID) (actor.Actor, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return actor.Actor{}, apperr.NotFound(msgWorkerNotFound)
		}
		return actor.Actor{}, err
	}
	return actor.New(user.ID, actor.Role(user.Role)), nil
}

// UserNames maps user ids to display names. Unknown ids are omitted.
func (s *Service) UserNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	users, err := s.repo.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}
	return names, nil
}

// buildURL links into the frontend. Tokens are URL-safe base64 and need no
// escaping.
func (s *Service) buildURL(path, tokenValue string) string {
	return s.cfg.GetAppBaseURL() + path + "?token=" + tokenValue
}

func (s *Service) signJWT(userID uuid.UUID, role string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.GetAccessTokenTTL())
	claims := jwt.MapClaims{
		"sub":   userID.String(),
		"type":  accessTokenType,
		"roles": []string{role},
		"exp":   expiresAt.Unix(),
		"iat":   now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.GetJWTAccessSecret()))
	return signed, expiresAt, err
}
