package payments

import (
	"context"
	"strings"

	"github.com/ManuelReschke/edupay/app/models"
)

// CallbackInput is the normalized input for callback audit records.
type CallbackInput struct {
	ProviderOrderID string
	EventType       string
	StatusKey       string
	PayloadJSON     string
	SignatureValid  bool
}

// RecordCallback stores a provider delivery before it is processed.
func (r *Reconciler) RecordCallback(ctx context.Context, in CallbackInput) (*models.PaymentCallback, error) {
	payload := strings.TrimSpace(in.PayloadJSON)
	if payload == "" {
		payload = "{}"
	}
	cb := &models.PaymentCallback{
		Provider:        models.PaymentProviderBOG,
		ProviderOrderID: strings.TrimSpace(in.ProviderOrderID),
		EventType:       strings.TrimSpace(in.EventType),
		StatusKey:       strings.TrimSpace(in.StatusKey),
		PayloadJSON:     payload,
		SignatureValid:  in.SignatureValid,
	}
	if err := r.repo.CreateCallback(ctx, cb); err != nil {
		return nil, err
	}
	return cb, nil
}

// MarkCallbackProcessed marks a stored delivery processed, with an optional
// processing error.
func (r *Reconciler) MarkCallbackProcessed(ctx context.Context, callbackID uint, processingError string) error {
	if callbackID == 0 {
		return nil
	}
	return r.repo.MarkCallbackProcessed(ctx, callbackID, strings.TrimSpace(processingError))
}
