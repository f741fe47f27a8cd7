package controllers

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/edupay/app/models"
	"github.com/ManuelReschke/edupay/internal/pkg/payments"
)

func callbackBodyFor(orderID, status string) map[string]interface{} {
	return map[string]interface{}{
		"event": "order_payment",
		"body": map[string]interface{}{
			"order_id":     orderID,
			"order_status": map[string]string{"key": status},
		},
	}
}

func createOrder(t *testing.T, env *testEnv, parentID uint, body map[string]interface{}) (int, map[string]interface{}) {
	t.Helper()
	return env.do(t, "POST", "/payments/create-order/", mustJSON(t, body), map[string]string{
		testParentHeader: strconv.FormatUint(uint64(parentID), 10),
	})
}

func TestHandleCreateOrder(t *testing.T) {
	env := newTestEnv(t, "")
	parent := env.seedParent(t, "+995555000111", "secret-pass")
	env.seedSubject(t, 7, "Math", "50.00")

	status, body := createOrder(t, env, parent.ID, map[string]interface{}{"subject_id": 7, "external_order_id": "ext-1"})
	require.Equal(t, 200, status, body)
	assert.Equal(t, "PENDING", body["status"])
	assert.Equal(t, "https://edu.example/success", body["redirect_url"])
	assert.True(t, strings.HasPrefix(body["order_id"].(string), "TEST_ORDER_7_"))

	var order models.Order
	require.NoError(t, env.db.Where("external_id = ?", "ext-1").First(&order).Error)
	assert.Equal(t, body["order_id"], order.ProviderID)
}

func TestHandleCreateOrderErrors(t *testing.T) {
	env := newTestEnv(t, "")
	parent := env.seedParent(t, "+995555000111", "secret-pass")
	env.seedSubject(t, 7, "Math", "50.00")
	env.seedSubject(t, 8, "Free", "0")

	tests := []struct {
		name   string
		body   map[string]interface{}
		status int
		code   string
	}{
		{name: "missing subject", body: map[string]interface{}{"external_order_id": "ext-1"}, status: 400, code: "validation_error"},
		{name: "missing external id", body: map[string]interface{}{"subject_id": 7}, status: 400, code: "validation_error"},
		{name: "unknown subject", body: map[string]interface{}{"subject_id": 99, "external_order_id": "ext-1"}, status: 404, code: "not_found"},
		{name: "free subject", body: map[string]interface{}{"subject_id": 8, "external_order_id": "ext-2"}, status: 400, code: "validation_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := createOrder(t, env, parent.ID, tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body["error"])
		})
	}
}

func TestHandleCreateOrderRequiresParent(t *testing.T) {
	env := newTestEnv(t, "")
	status, body := env.do(t, "POST", "/payments/create-order/", mustJSON(t, map[string]interface{}{"subject_id": 7, "external_order_id": "ext-1"}), nil)
	assert.Equal(t, 401, status)
	assert.Equal(t, "unauthorized", body["error"])
}

func TestHandleCreateOrderRejectsChild(t *testing.T) {
	env := newTestEnv(t, "")
	env.seedSubject(t, 7, "Math", "50.00")
	status, body := env.do(t, "POST", "/payments/create-order/", mustJSON(t, map[string]interface{}{"subject_id": 7, "external_order_id": "ext-1"}), map[string]string{
		testChildHeader: "3",
	})
	assert.Equal(t, 403, status)
	assert.Equal(t, "forbidden", body["error"])
}

func TestHandleCreateOrderFallsBackToDefaultTTL(t *testing.T) {
	gateway := &recordingGateway{}
	env := newTestEnvWith(t, envOptions{gateway: gateway})
	parent := env.seedParent(t, "+995555000111", "secret-pass")
	env.seedSubject(t, 7, "Math", "50.00")

	for i, ttl := range []int{-1, 0, 1, 30} {
		status, body := createOrder(t, env, parent.ID, map[string]interface{}{
			"subject_id":        7,
			"external_order_id": "ext-ttl-" + strconv.Itoa(i),
			"ttl":               ttl,
		})
		require.Equal(t, 200, status, body)
	}

	reqs := gateway.requests()
	require.Len(t, reqs, 4)
	assert.Equal(t, 15, reqs[0].TTL)
	assert.Equal(t, 15, reqs[1].TTL)
	assert.Equal(t, 15, reqs[2].TTL)
	assert.Equal(t, 30, reqs[3].TTL)
}

func TestHandleCreateOrderMalformedBody(t *testing.T) {
	env := newTestEnv(t, "")
	parent := env.seedParent(t, "+995555000111", "secret-pass")
	status, body := env.do(t, "POST", "/payments/create-order/", []byte("{"), map[string]string{
		testParentHeader: strconv.FormatUint(uint64(parent.ID), 10),
	})
	assert.Equal(t, 400, status)
	assert.Equal(t, "invalid_payload", body["error"])
}

func TestHandleCallbackGrantsSubscription(t *testing.T) {
	env := newTestEnv(t, "")
	parent := env.seedParent(t, "+995555000111", "secret-pass")
	env.seedSubject(t, 7, "Math", "50.00")

	_, created := createOrder(t, env, parent.ID, map[string]interface{}{"subject_id": 7, "external_order_id": "ext-1"})
	orderID := created["order_id"].(string)

	status, body := env.do(t, "POST", "/payments/callback/", mustJSON(t, callbackBodyFor(orderID, "completed")), nil)
	require.Equal(t, 200, status)
	assert.Equal(t, true, body["received"])

	var order models.Order
	require.NoError(t, env.db.Where("provider_id = ?", orderID).First(&order).Error)
	assert.Equal(t, models.OrderStatusSuccess, order.Status)

	var subs []models.Subscription
	require.NoError(t, env.db.Where("order_id = ?", order.ID).Find(&subs).Error)
	require.Len(t, subs, 1)
	assert.True(t, subs[0].Active)

	var cb models.PaymentCallback
	require.NoError(t, env.db.Where("provider_order_id = ?", orderID).First(&cb).Error)
	assert.NotNil(t, cb.ProcessedAt)
	assert.Empty(t, cb.ProcessingError)
	assert.Equal(t, "COMPLETED", strings.ToUpper(cb.StatusKey))
}

func TestHandleCallbackAcknowledgesUnknownOrder(t *testing.T) {
	env := newTestEnv(t, "")
	status, body := env.do(t, "POST", "/payments/callback/", mustJSON(t, callbackBodyFor("missing", "completed")), nil)
	assert.Equal(t, 200, status)
	assert.Equal(t, true, body["received"])

	var cb models.PaymentCallback
	require.NoError(t, env.db.Where("provider_order_id = ?", "missing").First(&cb).Error)
	assert.Equal(t, "unknown order", cb.ProcessingError)
}

func TestHandleCallbackTopLevelFields(t *testing.T) {
	env := newTestEnv(t, "")
	parent := env.seedParent(t, "+995555000111", "secret-pass")
	env.seedSubject(t, 7, "Math", "50.00")
	_, created := createOrder(t, env, parent.ID, map[string]interface{}{"subject_id": 7, "external_order_id": "ext-1"})
	orderID := created["order_id"].(string)

	payload := map[string]interface{}{"order_id": orderID, "order_status": map[string]string{"key": "rejected"}}
	status, _ := env.do(t, "POST", "/payments/callback/", mustJSON(t, payload), nil)
	require.Equal(t, 200, status)

	var order models.Order
	require.NoError(t, env.db.Where("provider_id = ?", orderID).First(&order).Error)
	assert.Equal(t, models.OrderStatusFailed, order.Status)
}

func TestHandleCallbackRejectsMalformedPayload(t *testing.T) {
	env := newTestEnv(t, "")
	for name, raw := range map[string]string{
		"not json":       "{",
		"missing status": `{"event":"order_payment","body":{"order_id":"bog-1"}}`,
		"missing order":  `{"event":"order_payment","body":{"order_status":{"key":"completed"}}}`,
	} {
		t.Run(name, func(t *testing.T) {
			status, body := env.do(t, "POST", "/payments/callback/", []byte(raw), nil)
			assert.Equal(t, 400, status)
			assert.Equal(t, "invalid_payload", body["error"])
		})
	}
}

func TestHandleCallbackIgnoresOtherEvents(t *testing.T) {
	env := newTestEnv(t, "")
	payload := callbackBodyFor("bog-1", "completed")
	payload["event"] = "order_refund"

	status, body := env.do(t, "POST", "/payments/callback/", mustJSON(t, payload), nil)
	assert.Equal(t, 200, status)
	assert.Equal(t, true, body["received"])
}

func TestHandleCallbackSignature(t *testing.T) {
	env := newTestEnv(t, "hook-secret")
	parent := env.seedParent(t, "+995555000111", "secret-pass")
	env.seedSubject(t, 7, "Math", "50.00")
	_, created := createOrder(t, env, parent.ID, map[string]interface{}{"subject_id": 7, "external_order_id": "ext-1"})
	orderID := created["order_id"].(string)
	raw := mustJSON(t, callbackBodyFor(orderID, "completed"))

	status, body := env.do(t, "POST", "/payments/callback/", raw, map[string]string{payments.SignatureHeader: "deadbeef"})
	assert.Equal(t, 401, status)
	assert.Equal(t, "invalid_signature", body["error"])

	var order models.Order
	require.NoError(t, env.db.Where("provider_id = ?", orderID).First(&order).Error)
	assert.Equal(t, models.OrderStatusPending, order.Status)

	status, _ = env.do(t, "POST", "/payments/callback/", raw, map[string]string{
		payments.SignatureHeader: payments.SignCallback(raw, "hook-secret"),
	})
	assert.Equal(t, 200, status)
	require.NoError(t, env.db.Where("provider_id = ?", orderID).First(&order).Error)
	assert.Equal(t, models.OrderStatusSuccess, order.Status)

	var valid int64
	require.NoError(t, env.db.Model(&models.PaymentCallback{}).Where("signature_valid = ?", true).Count(&valid).Error)
	assert.Equal(t, int64(1), valid)
}

func TestHandleSimulateRenew(t *testing.T) {
	env := newTestEnv(t, "")
	parent := env.seedParent(t, "+995555000111", "secret-pass")
	subject := env.seedSubject(t, 7, "Math", "50.00")

	order := &models.Order{
		ParentID:      &parent.ID,
		SubjectID:     &subject.ID,
		ExternalID:    "ext-1",
		ProviderID:    "bog-1",
		ParentOrderID: "bog-1",
		TotalAmount:   subject.Price,
		Status:        models.OrderStatusSuccess,
	}
	require.NoError(t, env.db.Create(order).Error)
	end := time.Now().UTC().Add(-time.Hour)
	sub := &models.Subscription{
		ParentID:  order.ParentID,
		SubjectID: order.SubjectID,
		OrderID:   order.ID,
		StartDate: end.Add(-30 * 24 * time.Hour),
		EndDate:   end,
		Active:    true,
	}
	require.NoError(t, env.db.Create(sub).Error)

	status, body := env.do(t, "POST", "/payments/simulate-renew/", nil, nil)
	require.Equal(t, 200, status, body)
	assert.EqualValues(t, 1, body["processed"])
	assert.EqualValues(t, 1, body["succeeded"])
	assert.Len(t, env.mock.Charges(), 1)
}
