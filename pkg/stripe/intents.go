package stripe

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v84"
)

// Metadata keys stamped on deposit intents and read back from webhooks.
const (
	MetadataCustomerID = "customer_id"
	MetadataPaymentID  = "payment_id"
)

// DepositIntentParams describes a wallet top-up charge.
type DepositIntentParams struct {
	AmountCents    int64
	Currency       string
	CustomerID     string
	PaymentID      string
	Description    string
	IdempotencyKey string
}

// DepositIntent is the subset of a PaymentIntent the wallet flow needs.
type DepositIntent struct {
	ID           string
	ClientSecret string
	Status       string
}

// CreateDepositIntent opens a PaymentIntent for a customer deposit.
func (c *Client) CreateDepositIntent(ctx context.Context, in DepositIntentParams) (*DepositIntent, error) {
	if c == nil || c.api == nil {
		return nil, errNotInitialized
	}
	if in.AmountCents <= 0 {
		return nil, errors.New("deposit amount must be positive")
	}

	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(in.AmountCents),
		Currency: stripe.String(strings.ToLower(in.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if in.Description != "" {
		params.Description = stripe.String(in.Description)
	}
	params.AddMetadata(MetadataCustomerID, in.CustomerID)
	params.AddMetadata(MetadataPaymentID, in.PaymentID)
	if in.IdempotencyKey != "" {
		params.SetIdempotencyKey(in.IdempotencyKey)
	}

	intent, err := c.api.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return nil, err
	}
	return &DepositIntent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       string(intent.Status),
	}, nil
}
