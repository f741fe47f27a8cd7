package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/edupay/internal/pkg/metrics"
	"github.com/ManuelReschke/edupay/internal/pkg/payments"
	"github.com/ManuelReschke/edupay/internal/pkg/scheduler"
	"github.com/ManuelReschke/edupay/internal/pkg/usercontext"
)

const orderPaymentEvent = "order_payment"

// PaymentController serves order creation, provider callbacks and the manual
// renewal trigger.
type PaymentController struct {
	orders        *payments.Service
	reconciler    *payments.Reconciler
	renewals      *scheduler.Manager
	webhookSecret string
}

func NewPaymentController(orders *payments.Service, reconciler *payments.Reconciler, renewals *scheduler.Manager, webhookSecret string) *PaymentController {
	return &PaymentController{
		orders:        orders,
		reconciler:    reconciler,
		renewals:      renewals,
		webhookSecret: strings.TrimSpace(webhookSecret),
	}
}

// HandleCreateOrder creates a payment order for the authenticated parent.
func (pc *PaymentController) HandleCreateOrder(c *fiber.Ctx) error {
	if !usercontext.IsAuthenticated(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}
	parentID := usercontext.GetParentID(c)
	if parentID == 0 {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Parent account required"})
	}

	var in payments.CreateOrderInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload", "message": "Request body must be JSON"})
	}
	if err := validate.Struct(in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": validationMessage(err)})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	res, err := pc.orders.CreateOrder(ctx, parentID, in)
	if err != nil {
		return writePaymentError(c, err)
	}
	return c.JSON(res)
}

type callbackPayload struct {
	Event       string         `json:"event"`
	Body        *callbackBody  `json:"body"`
	OrderID     string         `json:"order_id"`
	OrderStatus *callbackState `json:"order_status"`
}

type callbackBody struct {
	OrderID     string         `json:"order_id"`
	OrderStatus *callbackState `json:"order_status"`
}

type callbackState struct {
	Key string `json:"key"`
}

// orderAndStatus reads the provider envelope ({"event", "body": {...}}) and
// falls back to top-level fields.
func (p *callbackPayload) orderAndStatus() (string, string) {
	orderID, status := strings.TrimSpace(p.OrderID), ""
	if p.OrderStatus != nil {
		status = strings.TrimSpace(p.OrderStatus.Key)
	}
	if p.Body != nil {
		if id := strings.TrimSpace(p.Body.OrderID); id != "" {
			orderID = id
		}
		if p.Body.OrderStatus != nil && strings.TrimSpace(p.Body.OrderStatus.Key) != "" {
			status = strings.TrimSpace(p.Body.OrderStatus.Key)
		}
	}
	return orderID, status
}

// HandleCallback receives provider payment notifications. Every delivery is
// stored first. Business outcomes are always acknowledged with 200 so the
// provider does not retry; only malformed or wrongly signed payloads are
// rejected.
func (pc *PaymentController) HandleCallback(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	signatureValid := false
	if pc.webhookSecret != "" {
		signatureValid = payments.VerifyCallbackSignature(rawBody, c.Get(payments.SignatureHeader), pc.webhookSecret)
	}

	var payload callbackPayload
	parseErr := json.Unmarshal(rawBody, &payload)
	orderID, statusKey := payload.orderAndStatus()

	stored, err := pc.reconciler.RecordCallback(ctx, payments.CallbackInput{
		ProviderOrderID: orderID,
		EventType:       payload.Event,
		StatusKey:       statusKey,
		PayloadJSON:     string(rawBody),
		SignatureValid:  signatureValid,
	})
	var callbackID uint
	if err != nil {
		log.Errorf("[Webhook] Failed to store callback for order_id=%s: %v", orderID, err)
	} else {
		callbackID = stored.ID
	}
	finish := func(processingError string) {
		if err := pc.reconciler.MarkCallbackProcessed(ctx, callbackID, processingError); err != nil {
			log.Warnf("[Webhook] Failed to mark callback %d processed: %v", callbackID, err)
		}
	}

	if pc.webhookSecret != "" && !signatureValid {
		finish("invalid callback signature")
		metrics.IncWebhookCallback("invalid_signature")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}
	if parseErr != nil || orderID == "" || statusKey == "" {
		finish("malformed payload")
		metrics.IncWebhookCallback("malformed")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload", "message": "order_id and order_status.key are required"})
	}
	if ev := strings.TrimSpace(payload.Event); ev != "" && ev != orderPaymentEvent {
		finish("ignored event " + ev)
		metrics.IncWebhookCallback("ignored_event")
		return c.JSON(fiber.Map{"received": true})
	}

	outcome, err := pc.reconciler.HandleCallback(ctx, orderID, statusKey)
	switch {
	case err != nil:
		log.Errorf("[Webhook] Failed to apply callback for order_id=%s: %v", orderID, err)
		finish(err.Error())
		metrics.IncWebhookCallback("error")
	case !outcome.KnownOrder:
		finish("unknown order")
		metrics.IncWebhookCallback("unknown_order")
	case outcome.Ignored:
		finish("order already " + string(outcome.PreviousStatus))
		metrics.IncWebhookCallback("ignored_transition")
	default:
		finish("")
		metrics.IncWebhookCallback("applied")
	}

	return c.JSON(fiber.Map{"received": true})
}

// HandleSimulateRenew runs one renewal pass right away. It is only routed in
// the dev environment.
func (pc *PaymentController) HandleSimulateRenew(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	summary, err := pc.renewals.RunOnce(ctx)
	if err != nil {
		if errors.Is(err, scheduler.ErrLocked) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "renewal_in_progress"})
		}
		log.Errorf("[Renewal] Manual renewal pass failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "renewal_failed", "message": err.Error()})
	}
	return c.JSON(summary)
}
