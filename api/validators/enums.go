package validators

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assignmentpoint-backend/pkg/errors"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/money"
)

// Enum inputs are accepted in any letter case; statuses and currencies are stored upper case,
// roles, file kinds and availability lower case.

func ParseOrderStatus(raw string) (enums.OrderStatus, error) {
	status, err := enums.ParseOrderStatus(upper(raw))
	if err != nil {
		return "", invalid("status", err)
	}
	return status, nil
}

func ParseBidStatus(raw string) (enums.BidStatus, error) {
	status, err := enums.ParseBidStatus(upper(raw))
	if err != nil {
		return "", invalid("status", err)
	}
	return status, nil
}

func ParseFileKind(raw string) (enums.OrderFileKind, error) {
	kind, err := enums.ParseOrderFileKind(lower(raw))
	if err != nil {
		return "", invalid("kind", err)
	}
	return kind, nil
}

func ParseRevenueRole(raw string) (enums.RevenueRole, error) {
	role, err := enums.ParseRevenueRole(lower(raw))
	if err != nil {
		return "", invalid("role", err)
	}
	return role, nil
}

// ParseCurrency returns the empty currency for blank input so services apply their default.
func ParseCurrency(raw string) (enums.Currency, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	currency, err := enums.ParseCurrency(upper(raw))
	if err != nil {
		return "", invalid("currency", err)
	}
	return currency, nil
}

func ParseAvailability(raw string) (enums.WriterAvailability, error) {
	availability := enums.WriterAvailability(lower(raw))
	if !availability.IsValid() {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "invalid availability %q", raw).
			WithDetails(map[string]any{"field": "availability"})
	}
	return availability, nil
}

var domainTags = map[string]validator.Func{
	"order_status": stringTag(func(v string) bool { _, err := ParseOrderStatus(v); return err == nil }),
	"bid_status":   stringTag(func(v string) bool { _, err := ParseBidStatus(v); return err == nil }),
	"file_kind":    stringTag(func(v string) bool { _, err := ParseFileKind(v); return err == nil }),
	"revenue_role": stringTag(func(v string) bool { _, err := ParseRevenueRole(v); return err == nil }),
	"currency":     stringTag(func(v string) bool { _, err := ParseCurrency(v); return err == nil }),
	"availability": stringTag(func(v string) bool { _, err := ParseAvailability(v); return err == nil }),
	"percent": stringTag(func(v string) bool {
		_, err := money.ParsePercent(strings.TrimSpace(v))
		return err == nil
	}),
}

var domainMessages = map[string]string{
	"order_status": "must be an order status",
	"bid_status":   "must be a bid status",
	"file_kind":    "must be instructions, submission or revision",
	"revenue_role": "must be writer, sales_agent, editor or manager",
	"currency":     "must be a supported currency code",
	"availability": "must be available, busy or away",
	"percent":      "must be a percentage between 0 and 100",
}

func stringTag(ok func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value, isString := fl.Field().Interface().(string)
		return isString && ok(value)
	}
}

func invalid(field string, err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field).
		WithDetails(map[string]any{"field": field})
}

func upper(raw string) string { return strings.ToUpper(strings.TrimSpace(raw)) }

func lower(raw string) string { return strings.ToLower(strings.TrimSpace(raw)) }
