package stripewebhook

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/angelmondragon/assignmentpoint-backend/internal/payments"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/db/models"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assignmentpoint-backend/pkg/errors"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/logger"
	pkgstripe "github.com/angelmondragon/assignmentpoint-backend/pkg/stripe"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
)

// depositRecorder is the slice of payments.Service the webhook drives.
type depositRecorder interface {
	DepositConfirmed(ctx context.Context, input payments.DepositConfirmation) (*models.Payment, error)
	DepositFailed(ctx context.Context, input payments.DepositFailure) (*models.Payment, error)
}

type ServiceParams struct {
	Deposits depositRecorder
	Logger   *logger.Logger
}

// Service translates verified Stripe events into wallet deposit outcomes.
type Service struct {
	deposits depositRecorder
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Deposits == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "deposit recorder required")
	}
	return &Service{deposits: params.Deposits, logg: params.Logger}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		amount := intent.AmountReceived
		if amount == 0 {
			amount = intent.Amount
		}
		_, err = s.deposits.DepositConfirmed(ctx, payments.DepositConfirmation{
			CustomerID:  customerFromMetadata(intent.Metadata),
			AmountCents: amount,
			Currency:    intentCurrency(intent),
			ExternalRef: intent.ID,
		})
		return err
	case stripe.EventTypePaymentIntentPaymentFailed:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		_, err = s.deposits.DepositFailed(ctx, payments.DepositFailure{
			CustomerID:  customerFromMetadata(intent.Metadata),
			AmountCents: intent.Amount,
			ExternalRef: intent.ID,
			Reason:      failureReason(intent),
		})
		return err
	default:
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{"event_id": event.ID, "event_type": string(event.Type)})
			s.logg.Info(logCtx, "stripe event ignored")
		}
		return nil
	}
}

func decodeIntent(event *stripe.Event) (*stripe.PaymentIntent, error) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
	}
	if intent.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}
	return &intent, nil
}

// customerFromMetadata returns uuid.Nil when the intent was not created by this service;
// the payments service then only accepts it for a reference it already knows.
func customerFromMetadata(metadata map[string]string) uuid.UUID {
	raw := strings.TrimSpace(metadata[pkgstripe.MetadataCustomerID])
	if raw == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func failureReason(intent *stripe.PaymentIntent) string {
	if intent.LastPaymentError == nil {
		return ""
	}
	if intent.LastPaymentError.Msg != "" {
		return intent.LastPaymentError.Msg
	}
	return string(intent.LastPaymentError.Code)
}

// intentCurrency is empty for a currency the wallets do not hold, which lets the deposit
// fall back to the pending payment's own currency.
func intentCurrency(intent *stripe.PaymentIntent) enums.Currency {
	currency, err := enums.ParseCurrency(string(intent.Currency))
	if err != nil {
		return ""
	}
	return currency
}
