package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assignmentpoint-backend/pkg/errors"
)

type ruleBody struct {
	Role       string `json:"role" validate:"required,revenue_role"`
	Percentage string `json:"percentage" validate:"required,percent"`
	Currency   string `json:"currency" validate:"omitempty,currency"`
}

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestDecodeJSONBodyAcceptsDomainValues(t *testing.T) {
	var dest ruleBody
	err := DecodeJSONBody(post(`{"role":"Sales_Agent","percentage":"12.5","currency":"usd"}`), &dest)
	require.NoError(t, err)
	assert.Equal(t, "Sales_Agent", dest.Role)
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	var dest ruleBody
	err := DecodeJSONBody(post(`{"role":"janitor","percentage":"140"}`), &dest)
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, domainMessages["revenue_role"], details["role"])
	assert.Equal(t, domainMessages["percent"], details["percentage"])
}

func TestDecodeJSONBodyRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"empty":         ``,
		"unknown field": `{"role":"writer","percentage":"40","bonus":true}`,
		"two objects":   `{"role":"writer","percentage":"40"}{"role":"editor"}`,
		"not json":      `role=writer`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			var dest ruleBody
			err := DecodeJSONBody(post(body), &dest)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		})
	}
}

func TestDecodeJSONBodyCapsSize(t *testing.T) {
	big := `{"role":"writer","percentage":"` + strings.Repeat("1", MaxBodyBytes) + `"}`
	var dest ruleBody
	err := DecodeJSONBody(post(big), &dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestEnumParsersNormalizeCase(t *testing.T) {
	status, err := ParseOrderStatus(" in_review ")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusInReview, status)

	kind, err := ParseFileKind("SUBMISSION")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderFileSubmission, kind)

	currency, err := ParseCurrency("")
	require.NoError(t, err)
	assert.Empty(t, currency)

	_, err = ParseAvailability("asleep")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSanitizeStringKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "héllo", SanitizeString("  héllo wörld ", 5))
	assert.Equal(t, "essay", SanitizeString(" essay ", 0))
}
