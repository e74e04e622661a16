package wallet

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/assignmentpoint-backend/api/middleware"
	"github.com/angelmondragon/assignmentpoint-backend/api/responses"
	"github.com/angelmondragon/assignmentpoint-backend/api/validators"
	"github.com/angelmondragon/assignmentpoint-backend/internal/ledger"
	"github.com/angelmondragon/assignmentpoint-backend/internal/payments"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/db/models"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assignmentpoint-backend/pkg/errors"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/logger"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/pagination"
)

// Accounts is the read side of the ledger exposed over HTTP.
type Accounts interface {
	GetAccountByOwner(ctx context.Context, ownerType enums.AccountOwnerType, ownerID uuid.UUID) (*models.WalletAccount, error)
	ListEntries(ctx context.Context, accountID uuid.UUID, params pagination.Params) (*ledger.EntryList, error)
	Audit(ctx context.Context, accountID uuid.UUID) (*ledger.AuditReport, error)
}

// Payments is the money-in and money-out surface exposed over HTTP.
type Payments interface {
	CreateDeposit(ctx context.Context, input payments.CreateDepositInput) (*payments.DepositResult, error)
	ListDeposits(ctx context.Context, customerID uuid.UUID) ([]models.Payment, error)
	Withdraw(ctx context.Context, input payments.WithdrawInput) (*ledger.PostResult, error)
}

type depositRequest struct {
	AmountCents int64  `json:"amount_cents" validate:"required,min=1"`
	Description string `json:"description" validate:"max=255"`
}

type withdrawRequest struct {
	AmountCents int64  `json:"amount_cents" validate:"required,min=1"`
	Description string `json:"description" validate:"max=255"`
}

var ownerByRole = map[enums.Role]enums.AccountOwnerType{
	enums.RoleCustomer:      enums.AccountOwnerCustomer,
	enums.RoleWriter:        enums.AccountOwnerWriter,
	enums.RoleSalesAgent:    enums.AccountOwnerSalesAgent,
	enums.RoleWriterManager: enums.AccountOwnerManager,
	enums.RoleEditor:        enums.AccountOwnerEditor,
}

// Balance returns the caller's wallet account.
func Balance(accounts Accounts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := callerAccount(w, r, accounts, logg)
		if !ok {
			return
		}
		responses.WriteSuccess(w, account)
	}
}

// Entries pages through the caller's ledger history, newest first.
func Entries(accounts Accounts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := callerAccount(w, r, accounts, logg)
		if !ok {
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := accounts.ListEntries(r.Context(), account.ID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Deposit opens a card payment that credits the customer's wallet once confirmed.
func Deposit(svc Payments, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, _, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		var req depositRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.CreateDeposit(r.Context(), payments.CreateDepositInput{
			CustomerID:     actorID,
			AmountCents:    req.AmountCents,
			Description:    validators.SanitizeString(req.Description, 255),
			IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func ListDeposits(svc Payments, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, _, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		deposits, err := svc.ListDeposits(r.Context(), actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, deposits)
	}
}

// Withdraw requests a payout from the caller's earning wallet.
func Withdraw(svc Payments, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ownerType, ok := callerOwner(w, r, logg)
		if !ok {
			return
		}
		var req withdrawRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Withdraw(r.Context(), payments.WithdrawInput{
			OwnerType:   ownerType,
			OwnerID:     actorID,
			AmountCents: req.AmountCents,
			Description: validators.SanitizeString(req.Description, 255),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// AdminAudit replays an account's entries against its cached balance.
func AdminAudit(accounts Accounts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := validators.ParseUUIDParam(r, "accountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		report, err := accounts.Audit(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

func callerOwner(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, enums.AccountOwnerType, bool) {
	actorID, role, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return uuid.Nil, "", false
	}
	ownerType, ok := ownerByRole[role]
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Newf(pkgerrors.CodeForbidden, "role %s has no wallet", role))
		return uuid.Nil, "", false
	}
	return actorID, ownerType, true
}

func callerAccount(w http.ResponseWriter, r *http.Request, accounts Accounts, logg *logger.Logger) (*models.WalletAccount, bool) {
	actorID, ownerType, ok := callerOwner(w, r, logg)
	if !ok {
		return nil, false
	}
	account, err := accounts.GetAccountByOwner(r.Context(), ownerType, actorID)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return nil, false
	}
	return account, true
}
