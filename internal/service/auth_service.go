package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"mastersrl/carnivalhub/internal/model"
	"mastersrl/carnivalhub/internal/repository"
	"mastersrl/carnivalhub/pkg/crypto"
	jwtpkg "mastersrl/carnivalhub/pkg/jwt"
)

// TokenSet is returned after a successful login.
type TokenSet struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type RegisterInput struct {
	Email       string  `json:"email" validate:"required,email,max=320"`
	DisplayName string  `json:"display_name" validate:"required,min=2,max=100"`
	Password    string  `json:"password" validate:"required,min=8,max=72"`
	Phone       *string `json:"phone" validate:"omitempty,max=20"`
}

// AuthService is a thin password login in front of the core; the acting user
// it resolves is what every other service receives.
type AuthService struct {
	runtime
	jwtManager *jwtpkg.Manager
}

func NewAuthService(d Deps, jwtManager *jwtpkg.Manager) *AuthService {
	return &AuthService{runtime: newRuntime(d, "auth"), jwtManager: jwtManager}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Email = normalizeEmail(in.Email)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.Phone = nonEmpty(trimPtr(in.Phone))
	if err := check(&in); err != nil {
		return nil, err
	}
	hash, err := crypto.HashPassword(in.Password)
	if err != nil {
		return nil, internalError("hash password", err)
	}

	var user *model.User
	err = s.execute(ctx, "auth.register", 0, func(ctx context.Context, tx repository.Repositories, _ emitFunc) error {
		if _, err := tx.Users().GetByEmail(ctx, in.Email); err == nil {
			return ErrEmailTaken
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		u := &model.User{
			Email:        in.Email,
			DisplayName:  in.DisplayName,
			Phone:        in.Phone,
			PasswordHash: hash,
			IsActive:     true,
		}
		if err := tx.Users().Create(ctx, u); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrEmailTaken
			}
			return err
		}
		user = u
		return nil
	})
	return user, err
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenSet, error) {
	var user *model.User
	err := s.view(ctx, "auth.login", func(ctx context.Context, v repository.Repositories) error {
		u, err := v.Users().GetByEmail(ctx, normalizeEmail(email))
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidCredentials
		}
		if err != nil {
			return err
		}
		if !u.IsActive || u.PasswordHash == "" || !crypto.CheckPassword(password, u.PasswordHash) {
			return ErrInvalidCredentials
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	signed, expires, err := s.jwtManager.GenerateAccessToken(user.ID, user.IsAdmin)
	if err != nil {
		return nil, internalError("sign access token", err)
	}
	return &TokenSet{AccessToken: signed, TokenType: "Bearer", ExpiresAt: expires}, nil
}

// Authenticate resolves a bearer token to an active user.
func (s *AuthService) Authenticate(ctx context.Context, bearer string) (*model.User, error) {
	claims, err := s.jwtManager.Validate(bearer)
	if err != nil {
		return nil, ErrNotAuthenticated
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, ErrNotAuthenticated
	}

	var user *model.User
	err = s.view(ctx, "auth.authenticate", func(ctx context.Context, v repository.Repositories) error {
		user, err = loadActor(ctx, v, id)
		return err
	})
	return user, err
}

// EnsureAdmin creates or promotes the configured administrator account.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" {
		return nil
	}
	return s.execute(ctx, "auth.ensure_admin", 0, func(ctx context.Context, tx repository.Repositories, _ emitFunc) error {
		u, err := tx.Users().GetByEmail(ctx, email)
		if err == nil {
			if u.IsAdmin && u.IsActive {
				return nil
			}
			u.IsAdmin = true
			u.IsActive = true
			return tx.Users().Update(ctx, u)
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if len(password) < 8 {
			return invalidField("admin.password", "must be at least 8 characters")
		}
		hash, err := crypto.HashPassword(password)
		if err != nil {
			return err
		}
		return tx.Users().Create(ctx, &model.User{
			Email:        email,
			DisplayName:  "Administrator",
			PasswordHash: hash,
			IsAdmin:      true,
			IsActive:     true,
		})
	})
}
