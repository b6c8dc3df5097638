// Package notify turns committed domain events into mail: subscriber fan-out
// for carnival listings and single mails for invitations and claims.
package notify

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"mastersrl/carnivalhub/internal/event"
	"mastersrl/carnivalhub/internal/metrics"
	"mastersrl/carnivalhub/internal/model"
	"mastersrl/carnivalhub/internal/repository"
)

type Dispatcher struct {
	store   repository.Store
	sender  MailSender
	baseURL string
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewDispatcher(store repository.Store, sender MailSender, baseURL string, logger *zap.Logger, m *metrics.Metrics) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		store:   store,
		sender:  sender,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.Named("notify"),
		metrics: m,
	}
}

type mailData struct {
	Event            event.Event
	BaseURL          string
	New              bool
	UnsubscribeToken string
}

// Handle is an event.Handler. Delivery failures are logged per recipient and
// never returned: the state change they describe has already committed.
func (d *Dispatcher) Handle(ctx context.Context, e event.Event) error {
	switch e.Kind {
	case event.CarnivalCreated, event.CarnivalImported, event.CarnivalUpdated:
		return d.fanOut(ctx, e)
	case event.DelegateInvitationIssued:
		d.send(ctx, e, e.InviteEmail, "delegate_invite", d.data(e))
	case event.ProxyInvitationIssued:
		d.send(ctx, e, e.InviteEmail, "proxy_invite", d.data(e))
	case event.CarnivalClaimed:
		d.send(ctx, e, e.UserEmail, "carnival_claimed", d.data(e))
	case event.ProxyClubClaimed:
		d.send(ctx, e, e.UserEmail, "club_claimed", d.data(e))
	}
	return nil
}

func (d *Dispatcher) data(e event.Event) mailData {
	return mailData{Event: e, BaseURL: d.baseURL}
}

func (d *Dispatcher) fanOut(ctx context.Context, e event.Event) error {
	if !e.State.Valid() {
		return nil
	}
	var subs []model.EmailSubscription
	err := d.store.View(ctx, func(ctx context.Context, r repository.Repositories) error {
		var err error
		subs, err = r.Subscriptions().ListActiveFor(ctx, e.State, model.NotifyCarnivals)
		return err
	})
	if err != nil {
		d.logger.Error("load subscribers failed", zap.String("kind", string(e.Kind)), zap.Error(err))
		return err
	}

	isNew := e.Kind != event.CarnivalUpdated
	for _, sub := range subs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		d.send(ctx, e, sub.Email, "carnival", mailData{
			Event:            e,
			BaseURL:          d.baseURL,
			New:              isNew,
			UnsubscribeToken: sub.UnsubscribeToken,
		})
	}
	return nil
}

func (d *Dispatcher) send(ctx context.Context, e event.Event, to, template string, data mailData) {
	kind := string(e.Kind)
	if to == "" {
		return
	}
	subject, body, err := render(template, data)
	if err == nil {
		err = d.sender.Send(ctx, to, subject, body)
	}
	if err != nil {
		d.metrics.Notification(kind, "failed")
		d.logger.Error("mail delivery failed",
			zap.String("kind", kind), zap.String("event_id", e.ID), zap.String("to", to), zap.Error(err))
		return
	}
	d.metrics.Notification(kind, "sent")
}
