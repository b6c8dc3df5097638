package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mastersrl/carnivalhub/internal/config"
	"mastersrl/carnivalhub/internal/model"
	"mastersrl/carnivalhub/internal/repository"
)

func TestTokenMinter_CollisionFailsWithoutRetry(t *testing.T) {
	h := newHarness(t)
	calls := 0
	m := NewTokenMinter(config.InviteConfig{DelegateTTL: time.Hour, ProxyTTL: time.Hour})
	m.generate = func() (string, error) {
		calls++
		return "same-value", nil
	}
	req := mintRequest{Subject: model.TokenSubjectDelegate, ClubID: 1, Email: "A@Example.com", InvitedBy: 1, Now: h.clock.Now()}

	var first *model.InvitationToken
	h.tx(func(ctx context.Context, tx repository.Repositories) error {
		var err error
		first, err = m.invite(ctx, tx.Tokens(), req)
		return err
	})
	assert.Equal(t, "a@example.com", first.InviteEmail)
	assert.Equal(t, h.clock.Now().Add(time.Hour), first.ExpiresAt)

	err := h.store.Transaction(h.ctx, func(ctx context.Context, tx repository.Repositories) error {
		_, err := m.invite(ctx, tx.Tokens(), req)
		return err
	})
	require.Error(t, err)
	assert.Equal(t, KindInternal, KindOf(err))
	assert.ErrorIs(t, err, repository.ErrDuplicate)
	assert.Equal(t, 2, calls)
}
