package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mastersrl/carnivalhub/internal/event"
	"mastersrl/carnivalhub/internal/repository"
)

type failingPublisher struct{ calls int }

func (p *failingPublisher) Publish(context.Context, ...event.Event) error {
	p.calls++
	return errors.New("bus closed")
}

func TestRuntime_PublishFailureDoesNotFailCommand(t *testing.T) {
	h := newHarness(t)
	_, primary := h.clubWithPrimary("Redcliffe Masters")
	pub := &failingPublisher{}
	deps := h.deps
	deps.Publisher = pub

	c, err := NewCarnivalService(deps).Create(h.ctx, primary.ID, carnivalInput())
	require.NoError(t, err)
	assert.Equal(t, 1, pub.calls)
	assert.True(t, h.carnival(c.ID).IsActive)
}

func TestRuntime_RolledBackCommandPublishesNothing(t *testing.T) {
	h := newHarness(t)
	rt := newRuntime(h.deps, "test")
	h.events.Reset()

	err := rt.execute(h.ctx, "test.op", 0, func(ctx context.Context, tx repository.Repositories, emit emitFunc) error {
		emit(event.New(event.ClubCreated, h.clock.Now()))
		return ErrNotPermitted
	})
	assert.ErrorIs(t, err, ErrNotPermitted)
	assert.Empty(t, h.events.Events())
}

func TestClassify(t *testing.T) {
	assert.Nil(t, classify("op", nil))
	assert.Equal(t, KindNotFound, KindOf(classify("op", fmt.Errorf("wrapped: %w", repository.ErrNotFound))))
	assert.Equal(t, KindConflict, KindOf(classify("op", repository.ErrDuplicate)))
	assert.Equal(t, KindForbidden, KindOf(classify("op", ErrNotPermitted)))

	internal := classify("op", errors.New("connection reset"))
	assert.Equal(t, KindInternal, KindOf(internal))
	assert.Equal(t, "internal error", MessageOf(internal))
}

func TestErrorString(t *testing.T) {
	err := &Error{Kind: KindInvalid, Message: "invalid input", Fields: []FieldError{
		{Field: "title", Message: "is required"},
		{Field: "state", Message: "must be an Australian state or territory code"},
	}}
	assert.Equal(t, "invalid input: title is required; state must be an Australian state or territory code", err.Error())
	assert.Equal(t, "gone", KindGone.String())
}
