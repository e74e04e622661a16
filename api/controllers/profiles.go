package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/assignmentpoint-backend/api/middleware"
	"github.com/angelmondragon/assignmentpoint-backend/api/responses"
	"github.com/angelmondragon/assignmentpoint-backend/api/validators"
	"github.com/angelmondragon/assignmentpoint-backend/internal/users"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/db/models"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assignmentpoint-backend/pkg/errors"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/logger"
)

// ProfileService is the profile surface the HTTP layer exposes.
type ProfileService interface {
	RegisterCustomer(ctx context.Context, input users.RegisterCustomerInput) (*models.Customer, error)
	RegisterWriter(ctx context.Context, input users.RegisterWriterInput) (*models.Writer, error)
	RegisterSalesAgent(ctx context.Context, input users.RegisterSalesAgentInput) (*models.SalesAgent, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	GetWriter(ctx context.Context, id uuid.UUID) (*models.Writer, error)
	SetWriterAvailability(ctx context.Context, id uuid.UUID, availability enums.WriterAvailability) error
}

type registerCustomerRequest struct {
	ReferralCode string `json:"referral_code" validate:"omitempty,max=64"`
}

type registerWriterRequest struct {
	ManagerID *uuid.UUID `json:"manager_id"`
}

type writerAvailabilityRequest struct {
	Availability string `json:"availability" validate:"required,availability"`
}

type registerSalesAgentRequest struct {
	UserID       uuid.UUID `json:"user_id" validate:"required"`
	ReferralCode string    `json:"referral_code" validate:"required,max=64"`
}

// CustomerRegister creates the caller's customer profile and wallet.
func CustomerRegister(svc ProfileService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		var req registerCustomerRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customer, err := svc.RegisterCustomer(r.Context(), users.RegisterCustomerInput{
			UserID:       actorID,
			ReferralCode: validators.SanitizeString(req.ReferralCode, 64),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, customer)
	}
}

func CustomerProfile(svc ProfileService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		customer, err := svc.GetCustomer(r.Context(), actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customer)
	}
}

// WriterRegister creates the caller's writer profile and wallet.
func WriterRegister(svc ProfileService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		var req registerWriterRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writer, err := svc.RegisterWriter(r.Context(), users.RegisterWriterInput{UserID: actorID, ManagerID: req.ManagerID})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, writer)
	}
}

func WriterProfile(svc ProfileService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		writer, err := svc.GetWriter(r.Context(), actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, writer)
	}
}

func WriterAvailability(svc ProfileService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		var req writerAvailabilityRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		availability, err := validators.ParseAvailability(req.Availability)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.SetWriterAvailability(r.Context(), actorID, availability); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writer, err := svc.GetWriter(r.Context(), actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, writer)
	}
}

// AdminCreateSalesAgent registers a sales agent profile for an existing identity user.
func AdminCreateSalesAgent(svc ProfileService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerSalesAgentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		agent, err := svc.RegisterSalesAgent(r.Context(), users.RegisterSalesAgentInput{
			UserID:       req.UserID,
			ReferralCode: validators.SanitizeString(req.ReferralCode, 64),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, agent)
	}
}

// requireActor writes 401 and returns false when the request carries no authenticated actor.
func requireActor(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, bool) {
	actorID, _, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return uuid.Nil, false
	}
	return actorID, true
}
