package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ManuelReschke/edupay/app/models"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// CallbackOutcome describes what a single provider notification changed.
type CallbackOutcome struct {
	KnownOrder     bool
	PreviousStatus models.OrderStatus
	Status         models.OrderStatus
	StatusChanged  bool
	Ignored        bool
	SubscriptionID uint
	Created        bool
	Extended       bool
}

// Reconciler applies provider payment notifications to orders and
// subscriptions.
type Reconciler struct {
	repo      Repository
	publisher Publisher
	period    time.Duration
	now       func() time.Time
}

func NewReconciler(repo Repository, publisher Publisher, period time.Duration) *Reconciler {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if period <= 0 {
		period = 30 * 24 * time.Hour
	}
	return &Reconciler{
		repo:      repo,
		publisher: publisher,
		period:    period,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// HandleCallback maps statusKey onto the order identified by providerOrderID
// and, on success, creates or extends the subscription it funds. The order
// row stays locked for the whole update so deliveries for one order are
// applied one at a time.
//
// An unknown order is not an error: it is logged and reported through
// CallbackOutcome.KnownOrder. A SUCCESS or FAILED order never moves to a
// different status; a repeated SUCCESS extends the subscription again.
func (r *Reconciler) HandleCallback(ctx context.Context, providerOrderID, statusKey string) (*CallbackOutcome, error) {
	providerOrderID = strings.TrimSpace(providerOrderID)
	if providerOrderID == "" {
		return nil, &ValidationError{Field: "order_id", Message: "is required"}
	}
	if strings.TrimSpace(statusKey) == "" {
		return nil, &ValidationError{Field: "order_status.key", Message: "is required"}
	}
	next := MapProviderStatus(statusKey)

	outcome := &CallbackOutcome{Status: next}
	var events []Event

	err := r.repo.Transaction(ctx, func(repo Repository) error {
		order, err := repo.LockOrderByProviderID(ctx, providerOrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		outcome.KnownOrder = true
		outcome.PreviousStatus = order.Status

		if order.Status.IsTerminal() && order.Status != next {
			outcome.Ignored = true
			outcome.Status = order.Status
			return nil
		}

		if order.Status != next {
			if err := repo.UpdateOrderStatus(ctx, order.ID, next); err != nil {
				return fmt.Errorf("update order status: %w", err)
			}
			order.Status = next
			outcome.StatusChanged = true
			events = append(events, Event{
				Type:       EventOrderStatusChanged,
				OccurredAt: r.now(),
				OrderID:    order.ID,
				ProviderID: order.ProviderID,
				ParentID:   order.ParentID,
				SubjectID:  order.SubjectID,
				Status:     string(next),
			})
		}

		if next != models.OrderStatusSuccess {
			return nil
		}

		sub, created, err := r.grantSubscription(ctx, repo, order)
		if err != nil {
			return err
		}
		outcome.SubscriptionID = sub.ID
		outcome.Created = created
		outcome.Extended = !created

		eventType := EventSubscriptionExtended
		if created {
			eventType = EventSubscriptionActivated
		}
		end := sub.EndDate
		events = append(events, Event{
			Type:           eventType,
			OccurredAt:     r.now(),
			OrderID:        order.ID,
			ProviderID:     order.ProviderID,
			SubscriptionID: sub.ID,
			ParentID:       sub.ParentID,
			SubjectID:      sub.SubjectID,
			EndDate:        &end,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !outcome.KnownOrder {
		log.Warnf("[Webhook] Callback for unknown order_id=%s status=%s", providerOrderID, statusKey)
		return outcome, nil
	}
	if outcome.Ignored {
		log.Warnf("[Webhook] Ignoring status %s for order %s already in %s", next, providerOrderID, outcome.PreviousStatus)
		return outcome, nil
	}

	log.Infof("[Webhook] Order %s %s -> %s (subscription=%d created=%v extended=%v)",
		providerOrderID, outcome.PreviousStatus, outcome.Status, outcome.SubscriptionID, outcome.Created, outcome.Extended)
	publishAll(ctx, r.publisher, events)
	return outcome, nil
}

// grantSubscription creates the subscription funded by order or, if one
// exists already, extends it by one period.
func (r *Reconciler) grantSubscription(ctx context.Context, repo Repository, order *models.Order) (*models.Subscription, bool, error) {
	existing, err := repo.FindSubscriptionByOrder(ctx, order.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	if existing == nil {
		now := r.now()
		sub := &models.Subscription{
			ParentID:  order.ParentID,
			SubjectID: order.SubjectID,
			OrderID:   order.ID,
			StartDate: now,
			EndDate:   now.Add(r.period),
			Active:    true,
		}
		created, err := repo.CreateSubscriptionIfNotExists(ctx, sub)
		if err != nil {
			return nil, false, fmt.Errorf("create subscription: %w", err)
		}
		if created {
			return sub, true, nil
		}
		if existing, err = repo.FindSubscriptionByOrder(ctx, order.ID); err != nil {
			return nil, false, err
		}
	}

	existing.EndDate = existing.EndDate.Add(r.period)
	if err := repo.ExtendSubscription(ctx, existing.ID, existing.EndDate); err != nil {
		return nil, false, fmt.Errorf("extend subscription: %w", err)
	}
	return existing, false, nil
}

func publishAll(ctx context.Context, publisher Publisher, events []Event) {
	for _, ev := range events {
		if err := publisher.Publish(ctx, ev); err != nil {
			log.Warnf("[Payments] Failed to publish %s event: %v", ev.Type, err)
		}
	}
}
