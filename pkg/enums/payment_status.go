package enums

// PaymentStatus tracks a gateway deposit from intent to settlement.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// paymentTransitions lists the moves a webhook may make. A failed intent can still
// succeed when the customer retries the card on the same intent.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {PaymentStatusCompleted, PaymentStatusFailed},
	PaymentStatusFailed:  {PaymentStatusCompleted},
}

func (p PaymentStatus) String() string {
	return string(p)
}

func (p PaymentStatus) IsValid() bool {
	switch p {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed:
		return true
	}
	return false
}

// CanBecome reports whether a payment in p may move to next.
func (p PaymentStatus) CanBecome(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[p] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentProvider names the gateway that processed a payment.
type PaymentProvider string

const (
	PaymentProviderStripe PaymentProvider = "stripe"
	PaymentProviderManual PaymentProvider = "manual"
)

func (p PaymentProvider) IsValid() bool {
	return p == PaymentProviderStripe || p == PaymentProviderManual
}

// OrderPaymentStatus records whether the customer has funded an order.
type OrderPaymentStatus string

const (
	OrderPaymentNotPaid  OrderPaymentStatus = "NOT_PAID"
	OrderPaymentPaid     OrderPaymentStatus = "PAID"
	OrderPaymentRefunded OrderPaymentStatus = "REFUNDED"
)

func (p OrderPaymentStatus) IsValid() bool {
	return p == OrderPaymentNotPaid || p == OrderPaymentPaid || p == OrderPaymentRefunded
}
