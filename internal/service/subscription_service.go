package service

import (
	"context"
	"errors"
	"slices"

	"github.com/google/uuid"

	"mastersrl/carnivalhub/internal/model"
	"mastersrl/carnivalhub/internal/repository"
)

type SubscribeInput struct {
	Email             string                   `json:"email" validate:"required,email,max=320"`
	States            []model.State            `json:"states" validate:"required,min=1,max=8,dive,state"`
	NotificationTypes []model.NotificationType `json:"notification_types" validate:"max=6,dive,notification_type"`
}

// SubscriptionService manages public email subscriptions.
type SubscriptionService struct {
	runtime
}

func NewSubscriptionService(d Deps) *SubscriptionService {
	return &SubscriptionService{runtime: newRuntime(d, "subscription")}
}

// Subscribe upserts by email, reactivating an address that unsubscribed earlier.
func (s *SubscriptionService) Subscribe(ctx context.Context, in SubscribeInput) (*model.EmailSubscription, error) {
	in.Email = normalizeEmail(in.Email)
	if err := check(&in); err != nil {
		return nil, err
	}
	if len(in.NotificationTypes) == 0 {
		in.NotificationTypes = []model.NotificationType{model.NotifyCarnivals}
	}
	states := dedupe(in.States)
	kinds := dedupe(in.NotificationTypes)

	var sub *model.EmailSubscription
	err := s.execute(ctx, "subscription.subscribe", 0, func(ctx context.Context, tx repository.Repositories, _ emitFunc) error {
		existing, err := tx.Subscriptions().GetByEmail(ctx, in.Email)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			sub = &model.EmailSubscription{
				Email:             in.Email,
				States:            states,
				NotificationTypes: kinds,
				UnsubscribeToken:  uuid.NewString(),
				IsActive:          true,
			}
			return tx.Subscriptions().Create(ctx, sub)
		case err != nil:
			return err
		}
		existing.States = states
		existing.NotificationTypes = kinds
		existing.IsActive = true
		sub = existing
		return tx.Subscriptions().Update(ctx, existing)
	})
	return sub, err
}

// Unsubscribe deactivates the subscription owning token. Repeating it is harmless.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, token string) error {
	return s.execute(ctx, "subscription.unsubscribe", 0, func(ctx context.Context, tx repository.Repositories, _ emitFunc) error {
		sub, err := tx.Subscriptions().GetByUnsubscribeToken(ctx, token)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSubscriptionNotFound
		}
		if err != nil {
			return err
		}
		if !sub.IsActive {
			return nil
		}
		sub.IsActive = false
		return tx.Subscriptions().Update(ctx, sub)
	})
}

func dedupe[T ~string](in []T) model.StringSlice {
	out := make(model.StringSlice, 0, len(in))
	for _, v := range in {
		if !slices.Contains(out, string(v)) {
			out = append(out, string(v))
		}
	}
	return out
}
