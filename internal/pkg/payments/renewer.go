package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ManuelReschke/edupay/app/models"
	"github.com/ManuelReschke/edupay/internal/pkg/bog"
	"github.com/ManuelReschke/edupay/internal/pkg/config"
	"github.com/ManuelReschke/edupay/internal/pkg/metrics"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RenewalStatusSuccess = "SUCCESS"
	RenewalStatusFailed  = "FAILED"
)

type RenewalResult struct {
	SubscriptionID uint       `json:"subscription_id"`
	Status         string     `json:"status"`
	Error          string     `json:"error,omitempty"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	Deactivated    bool       `json:"deactivated,omitempty"`
}

type RenewalSummary struct {
	Processed int             `json:"processed"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Skipped   int             `json:"skipped"`
	Results   []RenewalResult `json:"results"`
}

// Renewer charges the saved card behind every expired, active subscription.
type Renewer struct {
	repo      Repository
	gateway   bog.Gateway
	publisher Publisher
	cfg       config.PaymentsConfig
}

func NewRenewer(repo Repository, gateway bog.Gateway, publisher Publisher, cfg config.PaymentsConfig) *Renewer {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Renewer{repo: repo, gateway: gateway, publisher: publisher, cfg: cfg}
}

func (r *Renewer) period() time.Duration {
	if r.cfg.SubscriptionPeriod > 0 {
		return r.cfg.SubscriptionPeriod
	}
	return 30 * 24 * time.Hour
}

// RunRenewalPass processes every subscription with active = true and
// end_date <= now, one at a time. A successful charge moves end_date forward
// by one period; a failed charge deactivates the subscription and leaves
// end_date alone. Each subscription is reloaded before it is charged and
// skipped if it is no longer due. Failures of one subscription never stop the
// pass.
//
// The pass is not safe to run twice at the same time; callers serialize it
// (see scheduler.Locker).
func (r *Renewer) RunRenewalPass(ctx context.Context, now time.Time) (*RenewalSummary, error) {
	due, err := r.repo.ListDueSubscriptions(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list due subscriptions: %w", err)
	}

	summary := &RenewalSummary{Results: make([]RenewalResult, 0, len(due))}
	for i := range due {
		if err := ctx.Err(); err != nil {
			log.Warnf("[Renewal] Pass interrupted after %d of %d subscriptions: %v", summary.Processed, len(due), err)
			return summary, err
		}

		sub, err := r.repo.FindSubscription(ctx, due[i].ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				summary.Skipped++
				continue
			}
			log.Errorf("[Renewal] Reloading subscription %d failed: %v", due[i].ID, err)
			summary.Processed++
			summary.Failed++
			summary.Results = append(summary.Results, RenewalResult{SubscriptionID: due[i].ID, Status: RenewalStatusFailed, Error: err.Error()})
			continue
		}
		// renewed or cancelled since the list was read
		if !sub.IsDue(now) {
			log.Infof("[Renewal] Subscription %d is no longer due, skipping", sub.ID)
			summary.Skipped++
			continue
		}

		res := r.renew(ctx, sub)
		summary.Processed++
		if res.Status == RenewalStatusSuccess {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
		summary.Results = append(summary.Results, res)
	}

	log.Infof("[Renewal] Processed %d subscriptions (%d renewed, %d failed, %d skipped)", summary.Processed, summary.Succeeded, summary.Failed, summary.Skipped)
	return summary, nil
}

func (r *Renewer) renew(ctx context.Context, sub *models.Subscription) RenewalResult {
	res := RenewalResult{SubscriptionID: sub.ID}

	chargeErr := r.charge(ctx, sub)
	if chargeErr != nil {
		res.Status = RenewalStatusFailed
		res.Error = chargeErr.Error()
		if err := r.repo.DeactivateSubscription(ctx, sub.ID); err != nil {
			log.Errorf("[Renewal] Subscription %d charge failed and could not be deactivated: %v", sub.ID, err)
			res.Error = fmt.Sprintf("%s; deactivate: %v", res.Error, err)
			metrics.IncRenewal("error")
			return res
		}
		res.Deactivated = true
		log.Warnf("[Renewal] Subscription %d deactivated: %v", sub.ID, chargeErr)
		metrics.IncRenewal("deactivated")
		publishAll(ctx, r.publisher, []Event{{
			Type:           EventSubscriptionDeactivated,
			OccurredAt:     time.Now().UTC(),
			OrderID:        sub.OrderID,
			SubscriptionID: sub.ID,
			ParentID:       sub.ParentID,
			SubjectID:      sub.SubjectID,
		}})
		return res
	}

	newEnd := sub.EndDate.Add(r.period())
	if err := r.repo.ExtendSubscription(ctx, sub.ID, newEnd); err != nil {
		// the card was charged; keep the subscription active for manual follow-up
		log.Errorf("[Renewal] Subscription %d charged but end_date not extended: %v", sub.ID, err)
		res.Status = RenewalStatusFailed
		res.Error = fmt.Sprintf("charged but not extended: %v", err)
		metrics.IncRenewal("error")
		return res
	}

	res.Status = RenewalStatusSuccess
	res.EndDate = &newEnd
	log.Infof("[Renewal] Subscription %d renewed until %s", sub.ID, newEnd.Format(time.RFC3339))
	metrics.IncRenewal("charged")
	publishAll(ctx, r.publisher, []Event{{
		Type:           EventSubscriptionExtended,
		OccurredAt:     time.Now().UTC(),
		OrderID:        sub.OrderID,
		SubscriptionID: sub.ID,
		ParentID:       sub.ParentID,
		SubjectID:      sub.SubjectID,
		EndDate:        &newEnd,
	}})
	return res
}

func (r *Renewer) charge(ctx context.Context, sub *models.Subscription) error {
	if r.gateway == nil {
		return errors.New("payment gateway is not configured")
	}
	if sub.Order == nil {
		return fmt.Errorf("subscription %d has no funding order", sub.ID)
	}
	ref := sub.Order.ChargeReference()
	if ref == "" {
		return fmt.Errorf("order %d has no parent order id", sub.Order.ID)
	}

	_, err := r.gateway.RecurrentCharge(ctx, bog.RecurrentChargeRequest{
		ParentOrderID:   ref,
		Amount:          sub.Order.TotalAmount,
		Currency:        strings.ToUpper(strings.TrimSpace(r.cfg.Currency)),
		CallbackURL:     r.cfg.CallbackURL,
		ExternalOrderID: fmt.Sprintf("renew_%d_%s", sub.ID, strings.ReplaceAll(uuid.NewString(), "-", "")),
	})
	return err
}
