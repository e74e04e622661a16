package orders

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/assignmentpoint-backend/api/middleware"
	"github.com/angelmondragon/assignmentpoint-backend/api/responses"
	"github.com/angelmondragon/assignmentpoint-backend/api/validators"
	internalorders "github.com/angelmondragon/assignmentpoint-backend/internal/orders"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assignmentpoint-backend/pkg/errors"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/logger"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/pagination"
)

type createOrderRequest struct {
	Title           string    `json:"title" validate:"required,max=255"`
	Description     string    `json:"description" validate:"max=20000"`
	Type            string    `json:"type" validate:"max=64"`
	EducationLevel  string    `json:"education_level" validate:"max=64"`
	Subject         string    `json:"subject" validate:"max=128"`
	Pages           int       `json:"pages" validate:"min=0"`
	Words           int       `json:"words" validate:"min=0"`
	SourcesRequired int       `json:"sources_required" validate:"min=0"`
	CitationStyle   string    `json:"citation_style" validate:"max=32"`
	Language        string    `json:"language" validate:"max=32"`
	Spacing         string    `json:"spacing" validate:"max=16"`
	Deadline        time.Time `json:"deadline" validate:"required"`
	DeliveryHours   int       `json:"delivery_hours" validate:"min=0"`
	TotalCents      int64     `json:"total_cents" validate:"required,min=1"`
	Currency        string    `json:"currency" validate:"omitempty,currency"`
	PayFromWallet   bool      `json:"pay_from_wallet"`
}

type transitionRequest struct {
	Status string `json:"status" validate:"required,order_status"`
	Reason string `json:"reason" validate:"max=2000"`
}

type attachFileRequest struct {
	Kind      string `json:"kind" validate:"required,file_kind"`
	Reference string `json:"reference" validate:"required,max=1024"`
}

type assignRequest struct {
	WriterID uuid.UUID  `json:"writer_id" validate:"required"`
	EditorID *uuid.UUID `json:"editor_id"`
}

// Create places a new order for the calling customer.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, _, ok := actor(w, r, logg)
		if !ok {
			return
		}
		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		currency, err := validators.ParseCurrency(req.Currency)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CreateOrder(r.Context(), internalorders.CreateOrderInput{
			CustomerID:      actorID,
			Title:           validators.SanitizeString(req.Title, 255),
			Description:     strings.TrimSpace(req.Description),
			Type:            validators.SanitizeString(req.Type, 64),
			EducationLevel:  validators.SanitizeString(req.EducationLevel, 64),
			Subject:         validators.SanitizeString(req.Subject, 128),
			Pages:           req.Pages,
			Words:           req.Words,
			SourcesRequired: req.SourcesRequired,
			CitationStyle:   validators.SanitizeString(req.CitationStyle, 32),
			Language:        validators.SanitizeString(req.Language, 32),
			Spacing:         validators.SanitizeString(req.Spacing, 16),
			Deadline:        req.Deadline,
			DeliveryHours:   req.DeliveryHours,
			TotalCents:      req.TotalCents,
			Currency:        currency,
			PayFromWallet:   req.PayFromWallet,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// List returns the caller's orders: placed orders for customers, assigned orders for
// writers and an optional status filter for admins.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, role, ok := actor(w, r, logg)
		if !ok {
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var list *internalorders.OrderList
		switch role {
		case enums.RoleCustomer:
			list, err = svc.ListForCustomer(r.Context(), actorID, params)
		case enums.RoleWriter:
			list, err = svc.ListForWriter(r.Context(), actorID, params)
		case enums.RoleAdmin:
			raw := strings.TrimSpace(r.URL.Query().Get("status"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "status filter is required").WithDetails(map[string]any{"field": "status"}))
				return
			}
			status, parseErr := validators.ParseOrderStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, parseErr)
				return
			}
			list, err = svc.ListByStatus(r.Context(), status, params)
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot list orders"))
			return
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ListAvailable is the writer marketplace feed.
func ListAvailable(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListAvailable(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Detail returns one order when the caller may see it. Hidden orders answer 404.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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
		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !internalorders.CanView(order, actorID, role) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ChangeStatus moves an order through its lifecycle on behalf of the caller.
func ChangeStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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
		var req transitionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseOrderStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.TransitionStatus(r.Context(), internalorders.TransitionInput{
			OrderID:     orderID,
			To:          to,
			ActorUserID: actorID,
			ActorRole:   role,
			Reason:      strings.TrimSpace(req.Reason),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func AttachFile(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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
		var req attachFileRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		kind, err := validators.ParseFileKind(req.Kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		file, err := svc.AttachFile(r.Context(), internalorders.AttachFileInput{
			OrderID:      orderID,
			UploaderID:   actorID,
			UploaderRole: role,
			Kind:         kind,
			Reference:    strings.TrimSpace(req.Reference),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, file)
	}
}

func ListFiles(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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
		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !internalorders.CanView(order, actorID, role) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}
		files, err := svc.ListFiles(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, files)
	}
}

// AdminAssign puts a writer (and optionally an editor) on an order directly.
func AdminAssign(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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
		var req assignRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.AssignWriter(r.Context(), internalorders.AssignInput{
			OrderID:     orderID,
			WriterID:    req.WriterID,
			EditorID:    req.EditorID,
			ActorUserID: actorID,
			ActorRole:   role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AdminDisputes lists orders waiting on dispute resolution.
func AdminDisputes(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListByStatus(r.Context(), enums.OrderStatusDisputed, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func actor(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, enums.Role, bool) {
	actorID, role, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return uuid.Nil, "", false
	}
	return actorID, role, true
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Limit: limit, Cursor: strings.TrimSpace(r.URL.Query().Get("cursor"))}, nil
}
