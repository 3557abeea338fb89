package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/frahmantamala/gym-membership/internal"
	"github.com/frahmantamala/gym-membership/internal/core/events"
)

type AdminLister interface {
	AdminIDs(ctx context.Context) ([]int64, error)
}

type Dispatcher struct {
	admins    AdminLister
	publisher Publisher
	now       internal.Clock
	logger    *slog.Logger
}

func NewDispatcher(admins AdminLister, publisher Publisher, now internal.Clock, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		admins:    admins,
		publisher: publisher,
		now:       now,
		logger:    logger,
	}
}

func (d *Dispatcher) RegisterEventHandlers(bus *events.EventBus) {
	types := []string{
		events.EventTypeSubscriptionPurchased,
		events.EventTypePaymentFailed,
		events.EventTypeSubscriptionExpired,
		events.EventTypeSettlementAlert,
	}
	for _, t := range types {
		bus.Subscribe(t, d.Handle)
	}
	d.logger.Info("notification handlers registered", "handlers", types)
}

// Handle sends one message per distinct recipient of event. Delivery keeps
// going past a failing recipient; the joined error is returned to the bus.
func (d *Dispatcher) Handle(ctx context.Context, event events.Event) error {
	recipients, err := d.recipients(ctx, event)
	if err != nil {
		d.logger.Error("failed to resolve notification recipients", "event_type", event.EventType(), "event_id", event.EventID(), "error", err)
		return err
	}

	payload, err := json.Marshal(event.Payload())
	if err != nil {
		return fmt.Errorf("marshal payload for %s: %w", event.EventID(), err)
	}

	var errs []error
	for _, id := range recipients {
		msg := &Message{
			ID:          uuid.NewString(),
			RecipientID: id,
			EventType:   event.EventType(),
			EventID:     event.EventID(),
			Payload:     payload,
			CreatedAt:   d.now().UTC(),
		}
		if err := d.publisher.Deliver(ctx, msg); err != nil {
			d.logger.Warn("notification delivery failed", "recipient_id", id, "event_type", msg.EventType, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) recipients(ctx context.Context, event events.Event) ([]int64, error) {
	var (
		member   int64
		toAdmins bool
	)
	toMember := true
	switch e := event.(type) {
	case *events.SubscriptionPurchasedEvent:
		member, toAdmins = e.MemberID, true
	case *events.PaymentFailedEvent:
		member = e.MemberID
	case *events.SubscriptionExpiredEvent:
		member = e.MemberID
	case *events.SettlementAlertEvent:
		toMember, toAdmins = false, true
	default:
		return nil, fmt.Errorf("no recipients for event type %s", event.EventType())
	}

	var ids []int64
	seen := make(map[int64]bool)
	add := func(id int64) {
		if id > 0 && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	if toMember {
		add(member)
	}
	if toAdmins {
		admins, err := d.admins.AdminIDs(ctx)
		if err != nil {
			return nil, err
		}
		for _, id := range admins {
			add(id)
		}
	}
	return ids, nil
}
