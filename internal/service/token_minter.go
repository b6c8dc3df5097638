package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mastersrl/carnivalhub/internal/config"
	"mastersrl/carnivalhub/internal/model"
	"mastersrl/carnivalhub/internal/repository"
	"mastersrl/carnivalhub/pkg/crypto"
)

// TokenMinter issues single-use invitation tokens with per-subject lifetimes.
type TokenMinter struct {
	delegateTTL time.Duration
	proxyTTL    time.Duration
	generate    func() (string, error)
}

func NewTokenMinter(cfg config.InviteConfig) *TokenMinter {
	return &TokenMinter{
		delegateTTL: cfg.DelegateTTL,
		proxyTTL:    cfg.ProxyTTL,
		generate:    crypto.NewInvitationToken,
	}
}

func (m *TokenMinter) ttl(subject model.TokenSubject) time.Duration {
	if subject == model.TokenSubjectProxyClub {
		return m.proxyTTL
	}
	return m.delegateTTL
}

type mintRequest struct {
	Subject   model.TokenSubject
	ClubID    uint
	Email     string
	InvitedBy uint
	Now       time.Time
}

// invite records a token inside the caller's transaction. Expiry is stored at
// whole-second resolution. A value collision is not retried: a unique
// violation aborts the surrounding Postgres transaction.
func (m *TokenMinter) invite(ctx context.Context, tokens repository.InvitationTokenRepository, req mintRequest) (*model.InvitationToken, error) {
	value, err := m.generate()
	if err != nil {
		return nil, fmt.Errorf("generate invitation token: %w", err)
	}
	token := &model.InvitationToken{
		Value:           value,
		SubjectKind:     req.Subject,
		SubjectID:       req.ClubID,
		InviteEmail:     normalizeEmail(req.Email),
		InvitedByUserID: req.InvitedBy,
		ExpiresAt:       req.Now.Add(m.ttl(req.Subject)).Truncate(time.Second),
		CreatedAt:       req.Now,
	}
	if err := tokens.Create(ctx, token); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, internalError("invitation token collision", err)
		}
		return nil, err
	}
	return token, nil
}

// usableToken loads a token and checks its subject kind and expiry.
func usableToken(ctx context.Context, tokens repository.InvitationTokenRepository, value string, subject model.TokenSubject, now time.Time) (*model.InvitationToken, error) {
	token, err := tokens.GetByValue(ctx, value)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	if token.SubjectKind != subject {
		return nil, ErrTokenMismatch
	}
	if !token.Usable(now) {
		return nil, ErrTokenGone
	}
	return token, nil
}

func consume(ctx context.Context, tokens repository.InvitationTokenRepository, value string, now time.Time) error {
	err := tokens.Consume(ctx, value, now)
	if errors.Is(err, repository.ErrStale) {
		return ErrTokenGone
	}
	return err
}
