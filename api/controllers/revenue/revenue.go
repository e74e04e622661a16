package revenue

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/assignmentpoint-backend/api/responses"
	"github.com/angelmondragon/assignmentpoint-backend/api/validators"
	"github.com/angelmondragon/assignmentpoint-backend/internal/settlement"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/db/models"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/logger"
)

// RuleService manages the revenue split table and reports on settled money.
type RuleService interface {
	ListRules(ctx context.Context) ([]models.RevenueRule, error)
	CreateRule(ctx context.Context, input settlement.CreateRuleInput) (*models.RevenueRule, error)
	DeactivateRule(ctx context.Context, id uuid.UUID) error
	RevenueSummary(ctx context.Context) (*settlement.RevenueSummary, error)
}

type createRuleRequest struct {
	Name                string `json:"name" validate:"required,max=128"`
	Role                string `json:"role" validate:"required,revenue_role"`
	Percentage          string `json:"percentage" validate:"required,percent"`
	IsReturningCustomer bool   `json:"is_returning_customer"`
}

func ListRules(svc RuleService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rules, err := svc.ListRules(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rules)
	}
}

func CreateRule(svc RuleService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRuleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role, err := validators.ParseRevenueRole(req.Role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rule, err := svc.CreateRule(r.Context(), settlement.CreateRuleInput{
			Name:                validators.SanitizeString(req.Name, 128),
			Role:                role,
			Percentage:          strings.TrimSpace(req.Percentage),
			IsReturningCustomer: req.IsReturningCustomer,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, rule)
	}
}

// DeactivateRule retires a rule. Rules are never hard deleted so settled splits stay explainable.
func DeactivateRule(svc RuleService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ruleID, err := validators.ParseUUIDParam(r, "ruleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeactivateRule(r.Context(), ruleID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": ruleID, "active": false})
	}
}

func Summary(svc RuleService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := svc.RevenueSummary(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
