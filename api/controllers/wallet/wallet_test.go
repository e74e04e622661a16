package wallet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/assignmentpoint-backend/api/middleware"
	"github.com/angelmondragon/assignmentpoint-backend/internal/ledger"
	"github.com/angelmondragon/assignmentpoint-backend/internal/payments"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/db/models"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assignmentpoint-backend/pkg/errors"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/pagination"
)

type stubAccounts struct {
	byOwner func(ctx context.Context, ownerType enums.AccountOwnerType, ownerID uuid.UUID) (*models.WalletAccount, error)
	entries func(ctx context.Context, accountID uuid.UUID, params pagination.Params) (*ledger.EntryList, error)
	audit   func(ctx context.Context, accountID uuid.UUID) (*ledger.AuditReport, error)
}

func (s *stubAccounts) GetAccountByOwner(ctx context.Context, ownerType enums.AccountOwnerType, ownerID uuid.UUID) (*models.WalletAccount, error) {
	if s.byOwner != nil {
		return s.byOwner(ctx, ownerType, ownerID)
	}
	return &models.WalletAccount{ID: uuid.New(), OwnerType: ownerType, OwnerID: ownerID}, nil
}

func (s *stubAccounts) ListEntries(ctx context.Context, accountID uuid.UUID, params pagination.Params) (*ledger.EntryList, error) {
	if s.entries != nil {
		return s.entries(ctx, accountID, params)
	}
	return &ledger.EntryList{}, nil
}

func (s *stubAccounts) Audit(ctx context.Context, accountID uuid.UUID) (*ledger.AuditReport, error) {
	if s.audit != nil {
		return s.audit(ctx, accountID)
	}
	return &ledger.AuditReport{AccountID: accountID, Consistent: true}, nil
}

type stubPayments struct {
	create   func(ctx context.Context, input payments.CreateDepositInput) (*payments.DepositResult, error)
	list     func(ctx context.Context, customerID uuid.UUID) ([]models.Payment, error)
	withdraw func(ctx context.Context, input payments.WithdrawInput) (*ledger.PostResult, error)
}

func (s *stubPayments) CreateDeposit(ctx context.Context, input payments.CreateDepositInput) (*payments.DepositResult, error) {
	if s.create != nil {
		return s.create(ctx, input)
	}
	return &payments.DepositResult{}, nil
}

func (s *stubPayments) ListDeposits(ctx context.Context, customerID uuid.UUID) ([]models.Payment, error) {
	if s.list != nil {
		return s.list(ctx, customerID)
	}
	return nil, nil
}

func (s *stubPayments) Withdraw(ctx context.Context, input payments.WithdrawInput) (*ledger.PostResult, error) {
	if s.withdraw != nil {
		return s.withdraw(ctx, input)
	}
	return &ledger.PostResult{}, nil
}

func authed(req *http.Request, id uuid.UUID, role enums.Role) *http.Request {
	return req.WithContext(middleware.WithActor(req.Context(), id, role))
}

func TestBalanceResolvesOwnerByRole(t *testing.T) {
	cases := []struct {
		role enums.Role
		want enums.AccountOwnerType
	}{
		{role: enums.RoleCustomer, want: enums.AccountOwnerCustomer},
		{role: enums.RoleWriter, want: enums.AccountOwnerWriter},
		{role: enums.RoleSalesAgent, want: enums.AccountOwnerSalesAgent},
		{role: enums.RoleWriterManager, want: enums.AccountOwnerManager},
		{role: enums.RoleEditor, want: enums.AccountOwnerEditor},
	}
	for _, tc := range cases {
		t.Run(string(tc.role), func(t *testing.T) {
			userID := uuid.New()
			var gotType enums.AccountOwnerType
			var gotID uuid.UUID
			accounts := &stubAccounts{
				byOwner: func(ctx context.Context, ownerType enums.AccountOwnerType, ownerID uuid.UUID) (*models.WalletAccount, error) {
					gotType, gotID = ownerType, ownerID
					return &models.WalletAccount{ID: uuid.New(), OwnerType: ownerType, OwnerID: ownerID, BalanceCents: 1200}, nil
				},
			}
			req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil), userID, tc.role)
			resp := httptest.NewRecorder()
			Balance(accounts, nil).ServeHTTP(resp, req)
			if resp.Code != http.StatusOK {
				t.Fatalf("expected 200 got %d", resp.Code)
			}
			if gotType != tc.want || gotID != userID {
				t.Fatalf("expected %s/%s got %s/%s", tc.want, userID, gotType, gotID)
			}
		})
	}
}

func TestBalanceAdminHasNoWallet(t *testing.T) {
	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil), uuid.New(), enums.RoleAdmin)
	resp := httptest.NewRecorder()
	Balance(&stubAccounts{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestEntriesPagination(t *testing.T) {
	accountID := uuid.New()
	accounts := &stubAccounts{
		byOwner: func(ctx context.Context, ownerType enums.AccountOwnerType, ownerID uuid.UUID) (*models.WalletAccount, error) {
			return &models.WalletAccount{ID: accountID}, nil
		},
		entries: func(ctx context.Context, id uuid.UUID, params pagination.Params) (*ledger.EntryList, error) {
			if id != accountID {
				t.Fatalf("unexpected account %s", id)
			}
			if params.Limit != 10 || params.Cursor != "abc" {
				t.Fatalf("unexpected params %+v", params)
			}
			return &ledger.EntryList{Items: []models.LedgerEntry{{ID: uuid.New()}}, Cursor: "next"}, nil
		},
	}
	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/wallet/entries?limit=10&cursor=abc", nil), uuid.New(), enums.RoleWriter)
	resp := httptest.NewRecorder()
	Entries(accounts, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data ledger.EntryList `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Cursor != "next" || len(envelope.Data.Items) != 1 {
		t.Fatalf("unexpected page %+v", envelope.Data)
	}
}

func TestDepositForwardsIdempotencyKey(t *testing.T) {
	customerID := uuid.New()
	var captured payments.CreateDepositInput
	svc := &stubPayments{
		create: func(ctx context.Context, input payments.CreateDepositInput) (*payments.DepositResult, error) {
			captured = input
			return &payments.DepositResult{
				Payment:      models.Payment{ID: uuid.New(), CustomerID: input.CustomerID, AmountCents: input.AmountCents, Status: enums.PaymentStatusPending},
				ClientSecret: "pi_secret",
			}, nil
		},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/wallet/deposits", strings.NewReader(`{"amount_cents":5000,"description":"top up"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", " dep-1 ")
	req = authed(req, customerID, enums.RoleCustomer)

	resp := httptest.NewRecorder()
	Deposit(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", resp.Code, resp.Body.String())
	}
	if captured.CustomerID != customerID || captured.AmountCents != 5000 {
		t.Fatalf("unexpected input %+v", captured)
	}
	if captured.IdempotencyKey != "dep-1" {
		t.Fatalf("unexpected idempotency key %q", captured.IdempotencyKey)
	}
	if !strings.Contains(resp.Body.String(), "pi_secret") {
		t.Fatalf("client secret missing from response")
	}
}

func TestDepositValidation(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/wallet/deposits", strings.NewReader(`{"amount_cents":0}`))
	req.Header.Set("Content-Type", "application/json")
	req = authed(req, uuid.New(), enums.RoleCustomer)
	resp := httptest.NewRecorder()
	Deposit(&stubPayments{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestListDeposits(t *testing.T) {
	customerID := uuid.New()
	svc := &stubPayments{
		list: func(ctx context.Context, id uuid.UUID) ([]models.Payment, error) {
			if id != customerID {
				t.Fatalf("unexpected customer %s", id)
			}
			return []models.Payment{{ID: uuid.New()}}, nil
		},
	}
	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/wallet/deposits", nil), customerID, enums.RoleCustomer)
	resp := httptest.NewRecorder()
	ListDeposits(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	writerID := uuid.New()
	svc := &stubPayments{
		withdraw: func(ctx context.Context, input payments.WithdrawInput) (*ledger.PostResult, error) {
			if input.OwnerType != enums.AccountOwnerWriter || input.OwnerID != writerID {
				t.Fatalf("unexpected owner %+v", input)
			}
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "balance below withdrawal")
		},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/wallet/withdrawals", strings.NewReader(`{"amount_cents":9000}`))
	req.Header.Set("Content-Type", "application/json")
	req = authed(req, writerID, enums.RoleWriter)
	resp := httptest.NewRecorder()
	Withdraw(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402 got %d", resp.Code)
	}
}

func TestAdminAudit(t *testing.T) {
	accountID := uuid.New()
	accounts := &stubAccounts{
		audit: func(ctx context.Context, id uuid.UUID) (*ledger.AuditReport, error) {
			return &ledger.AuditReport{AccountID: id, CachedBalanceCents: 100, EntrySumCents: 100, EntryCount: 1, Consistent: true}, nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/accounts/"+accountID.String()+"/audit", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("accountId", accountID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	resp := httptest.NewRecorder()
	AdminAudit(accounts, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data ledger.AuditReport `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.AccountID != accountID || !envelope.Data.Consistent {
		t.Fatalf("unexpected report %+v", envelope.Data)
	}
}
