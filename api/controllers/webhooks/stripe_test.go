package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	stripewebhook "github.com/angelmondragon/assignmentpoint-backend/internal/webhooks/stripe"
	pkgerrors "github.com/angelmondragon/assignmentpoint-backend/pkg/errors"
)

const testSecret = "whsec_test"

type webhookHarness struct {
	handler http.HandlerFunc
	service *recordingService
	store   *dedupeStore
}

func newHarness(t *testing.T, failures ...error) webhookHarness {
	t.Helper()
	store := &dedupeStore{data: map[string]string{}}
	guard, err := stripewebhook.NewIdempotencyGuard(store, time.Minute, "stripe-webhook")
	require.NoError(t, err)
	service := &recordingService{failures: failures}
	return webhookHarness{
		handler: StripeWebhook(service, secretClient(testSecret), guard, nil),
		service: service,
		store:   store,
	}
}

func (h webhookHarness) deliver(payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func TestStripeWebhookHandlesEventOnce(t *testing.T) {
	h := newHarness(t)
	payload := depositSucceededEvent(t)
	signature := sign(payload, testSecret, time.Now())

	first := h.deliver(payload, signature)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())

	redelivery := h.deliver(payload, signature)
	require.Equal(t, http.StatusOK, redelivery.Code, redelivery.Body.String())

	assert.Equal(t, 1, h.service.calls)
	assert.Len(t, h.store.data, 1)
}

func TestStripeWebhookReleasesMarkerOnFailure(t *testing.T) {
	h := newHarness(t, pkgerrors.New(pkgerrors.CodeDependency, "database unavailable"))
	payload := depositSucceededEvent(t)
	signature := sign(payload, testSecret, time.Now())

	failed := h.deliver(payload, signature)
	assert.Equal(t, http.StatusServiceUnavailable, failed.Code)
	assert.Empty(t, h.store.data, "marker should be released for Stripe's retry")

	retry := h.deliver(payload, signature)
	assert.Equal(t, http.StatusOK, retry.Code, retry.Body.String())
	assert.Equal(t, 2, h.service.calls)
}

func TestStripeWebhookRejectsBadDeliveries(t *testing.T) {
	payload := depositSucceededEvent(t)
	oversized := bytes.Repeat([]byte("a"), maxPayloadBytes+1)

	cases := []struct {
		name      string
		payload   []byte
		signature string
		want      int
	}{
		{"missing signature", payload, "", http.StatusBadRequest},
		{"forged signature", payload, "t=1,v1=deadbeef", http.StatusUnauthorized},
		{"wrong secret", payload, sign(payload, "whsec_other", time.Now()), http.StatusUnauthorized},
		{"stale timestamp", payload, sign(payload, testSecret, time.Now().Add(-time.Hour)), http.StatusUnauthorized},
		{"oversized payload", oversized, sign(oversized, testSecret, time.Now()), http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			rec := h.deliver(tc.payload, tc.signature)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
			assert.Zero(t, h.service.calls)
			assert.Empty(t, h.store.data)
		})
	}
}

func TestStripeWebhookNotConfigured(t *testing.T) {
	handler := StripeWebhook(nil, secretClient(testSecret), nil, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func depositSucceededEvent(t *testing.T) []byte {
	t.Helper()
	intent, err := json.Marshal(&stripe.PaymentIntent{
		ID:             "pi_" + uuid.NewString(),
		Amount:         5000,
		AmountReceived: 5000,
		Currency:       stripe.CurrencyUSD,
		Metadata:       map[string]string{"customer_id": uuid.NewString(), "payment_id": uuid.NewString()},
	})
	require.NoError(t, err)
	payload, err := json.Marshal(&stripe.Event{
		ID:         "evt_" + uuid.NewString(),
		Object:     "event",
		Type:       stripe.EventTypePaymentIntentSucceeded,
		APIVersion: stripe.APIVersion,
		Data:       &stripe.EventData{Raw: intent},
	})
	require.NoError(t, err)
	return payload
}

// sign builds a Stripe-Signature header the way Stripe does: HMAC-SHA256 over "t.payload".
func sign(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

type secretClient string

func (s secretClient) SigningSecret() string { return string(s) }

type recordingService struct {
	calls    int
	failures []error
}

func (r *recordingService) HandleEvent(context.Context, *stripe.Event) error {
	r.calls++
	if len(r.failures) == 0 {
		return nil
	}
	err := r.failures[0]
	r.failures = r.failures[1:]
	return err
}

type dedupeStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (s *dedupeStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (s *dedupeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key] = fmt.Sprint(value)
	return true, nil
}

func (s *dedupeStore) IdempotencyKey(scope, id string) string {
	return "ap:idempotency:" + scope + ":" + id
}

func (s *dedupeStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}
