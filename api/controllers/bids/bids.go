package bids

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/assignmentpoint-backend/api/middleware"
	"github.com/angelmondragon/assignmentpoint-backend/api/responses"
	"github.com/angelmondragon/assignmentpoint-backend/api/validators"
	"github.com/angelmondragon/assignmentpoint-backend/internal/marketplace"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assignmentpoint-backend/pkg/errors"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/logger"
)

type submitBidRequest struct {
	AmountCents   *int64 `json:"amount_cents" validate:"omitempty,min=1"`
	DeliveryHours *int   `json:"delivery_hours" validate:"omitempty,min=1"`
	Proposal      string `json:"proposal" validate:"max=5000"`
}

type decisionRequest struct {
	Reason string `json:"reason" validate:"max=2000"`
}

// Submit places the calling writer's bid on an AVAILABLE order.
func Submit(svc marketplace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, _, ok := actor(w, r, logg)
		if !ok {
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req submitBidRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bid, err := svc.SubmitBid(r.Context(), marketplace.SubmitBidInput{
			OrderID:       orderID,
			WriterID:      actorID,
			AmountCents:   req.AmountCents,
			DeliveryHours: req.DeliveryHours,
			Proposal:      strings.TrimSpace(req.Proposal),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, bid)
	}
}

func ListForOrder(svc marketplace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, role, ok := actor(w, r, logg)
		if !ok {
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bids, err := svc.ListBidsForOrder(r.Context(), marketplace.ListOrderBidsInput{
			OrderID:     orderID,
			ActorUserID: actorID,
			ActorRole:   role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bids)
	}
}

// ListMine returns the calling writer's bids, optionally filtered by ?status=.
func ListMine(svc marketplace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, _, ok := actor(w, r, logg)
		if !ok {
			return
		}
		var status *enums.BidStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := validators.ParseBidStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			status = &parsed
		}
		bids, err := svc.ListBidsForWriter(r.Context(), actorID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bids)
	}
}

func Accept(svc marketplace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, ok := decisionInput(w, r, logg)
		if !ok {
			return
		}
		result, err := svc.AcceptBid(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func Reject(svc marketplace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, ok := decisionInput(w, r, logg)
		if !ok {
			return
		}
		bid, err := svc.RejectBid(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bid)
	}
}

func Withdraw(svc marketplace.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, ok := decisionInput(w, r, logg)
		if !ok {
			return
		}
		bid, err := svc.WithdrawBid(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bid)
	}
}

// decisionInput reads the bid id and an optional reason body. An empty body is allowed.
func decisionInput(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (marketplace.DecideBidInput, bool) {
	actorID, role, ok := actor(w, r, logg)
	if !ok {
		return marketplace.DecideBidInput{}, false
	}
	bidID, err := validators.ParseUUIDParam(r, "bidId")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return marketplace.DecideBidInput{}, false
	}
	var req decisionRequest
	if r.ContentLength != 0 {
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return marketplace.DecideBidInput{}, false
		}
	}
	return marketplace.DecideBidInput{
		BidID:       bidID,
		ActorUserID: actorID,
		ActorRole:   role,
		Reason:      strings.TrimSpace(req.Reason),
	}, true
}

func actor(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, enums.Role, bool) {
	actorID, role, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return uuid.Nil, "", false
	}
	return actorID, role, true
}
