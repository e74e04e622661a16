package bids

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
	"github.com/angelmondragon/assignmentpoint-backend/internal/marketplace"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/db/models"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assignmentpoint-backend/pkg/errors"
)

type stubMarketplace struct {
	submit     func(ctx context.Context, input marketplace.SubmitBidInput) (*models.Bid, error)
	accept     func(ctx context.Context, input marketplace.DecideBidInput) (*marketplace.AcceptResult, error)
	reject     func(ctx context.Context, input marketplace.DecideBidInput) (*models.Bid, error)
	withdraw   func(ctx context.Context, input marketplace.DecideBidInput) (*models.Bid, error)
	listOrder  func(ctx context.Context, input marketplace.ListOrderBidsInput) ([]models.Bid, error)
	listWriter func(ctx context.Context, writerID uuid.UUID, status *enums.BidStatus) ([]models.Bid, error)
}

func (s *stubMarketplace) SubmitBid(ctx context.Context, input marketplace.SubmitBidInput) (*models.Bid, error) {
	if s.submit != nil {
		return s.submit(ctx, input)
	}
	return &models.Bid{ID: uuid.New(), OrderID: input.OrderID, WriterID: input.WriterID}, nil
}

func (s *stubMarketplace) AcceptBid(ctx context.Context, input marketplace.DecideBidInput) (*marketplace.AcceptResult, error) {
	if s.accept != nil {
		return s.accept(ctx, input)
	}
	return &marketplace.AcceptResult{}, nil
}

func (s *stubMarketplace) RejectBid(ctx context.Context, input marketplace.DecideBidInput) (*models.Bid, error) {
	if s.reject != nil {
		return s.reject(ctx, input)
	}
	return &models.Bid{ID: input.BidID, Status: enums.BidStatusRejected}, nil
}

func (s *stubMarketplace) WithdrawBid(ctx context.Context, input marketplace.DecideBidInput) (*models.Bid, error) {
	if s.withdraw != nil {
		return s.withdraw(ctx, input)
	}
	return &models.Bid{ID: input.BidID, Status: enums.BidStatusWithdrawn}, nil
}

func (s *stubMarketplace) ListBidsForOrder(ctx context.Context, input marketplace.ListOrderBidsInput) ([]models.Bid, error) {
	if s.listOrder != nil {
		return s.listOrder(ctx, input)
	}
	return nil, nil
}

func (s *stubMarketplace) ListBidsForWriter(ctx context.Context, writerID uuid.UUID, status *enums.BidStatus) ([]models.Bid, error) {
	if s.listWriter != nil {
		return s.listWriter(ctx, writerID, status)
	}
	return nil, nil
}

func newRequest(method, target, body string, actorID uuid.UUID, role enums.Role, params map[string]string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if actorID != uuid.Nil {
		ctx = middleware.WithActor(ctx, actorID, role)
	}
	return req.WithContext(ctx)
}

func TestSubmitBidUsesCaller(t *testing.T) {
	orderID := uuid.New()
	writerID := uuid.New()
	var captured marketplace.SubmitBidInput
	svc := &stubMarketplace{
		submit: func(ctx context.Context, input marketplace.SubmitBidInput) (*models.Bid, error) {
			captured = input
			return &models.Bid{ID: uuid.New(), OrderID: input.OrderID, WriterID: input.WriterID, AmountCents: *input.AmountCents}, nil
		},
	}

	req := newRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/bids", `{"amount_cents":2500,"proposal":"  I can do it "}`,
		writerID, enums.RoleWriter, map[string]string{"orderId": orderID.String()})
	resp := httptest.NewRecorder()
	Submit(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", resp.Code, resp.Body.String())
	}
	if captured.WriterID != writerID || captured.OrderID != orderID {
		t.Fatalf("unexpected input %+v", captured)
	}
	if captured.AmountCents == nil || *captured.AmountCents != 2500 {
		t.Fatalf("amount not forwarded")
	}
	if captured.DeliveryHours != nil {
		t.Fatalf("expected delivery hours to fall back to policy")
	}
	if captured.Proposal != "I can do it" {
		t.Fatalf("proposal not trimmed: %q", captured.Proposal)
	}
}

func TestSubmitBidDuplicate(t *testing.T) {
	orderID := uuid.New()
	svc := &stubMarketplace{
		submit: func(ctx context.Context, input marketplace.SubmitBidInput) (*models.Bid, error) {
			return nil, pkgerrors.New(pkgerrors.CodeDuplicateBid, "writer already has a pending bid on this order")
		},
	}
	req := newRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/bids", `{}`,
		uuid.New(), enums.RoleWriter, map[string]string{"orderId": orderID.String()})
	resp := httptest.NewRecorder()
	Submit(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "pending bid") {
		t.Fatalf("expected duplicate message in body: %s", resp.Body.String())
	}
}

func TestSubmitBidRejectsNonPositiveAmount(t *testing.T) {
	orderID := uuid.New()
	req := newRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/bids", `{"amount_cents":0}`,
		uuid.New(), enums.RoleWriter, map[string]string{"orderId": orderID.String()})
	resp := httptest.NewRecorder()
	Submit(&stubMarketplace{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestListForOrderForwardsActor(t *testing.T) {
	orderID := uuid.New()
	customerID := uuid.New()
	svc := &stubMarketplace{
		listOrder: func(ctx context.Context, input marketplace.ListOrderBidsInput) ([]models.Bid, error) {
			if input.OrderID != orderID || input.ActorUserID != customerID || input.ActorRole != enums.RoleCustomer {
				t.Fatalf("unexpected input %+v", input)
			}
			return []models.Bid{{ID: uuid.New()}, {ID: uuid.New()}}, nil
		},
	}
	req := newRequest(http.MethodGet, "/api/v1/orders/"+orderID.String()+"/bids", "",
		customerID, enums.RoleCustomer, map[string]string{"orderId": orderID.String()})
	resp := httptest.NewRecorder()
	ListForOrder(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data []models.Bid `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 2 {
		t.Fatalf("expected 2 bids got %d", len(envelope.Data))
	}
}

func TestListMineStatusFilter(t *testing.T) {
	writerID := uuid.New()
	var got *enums.BidStatus
	svc := &stubMarketplace{
		listWriter: func(ctx context.Context, id uuid.UUID, status *enums.BidStatus) ([]models.Bid, error) {
			got = status
			return nil, nil
		},
	}

	req := newRequest(http.MethodGet, "/api/v1/bids/mine?status=pending", "", writerID, enums.RoleWriter, nil)
	resp := httptest.NewRecorder()
	ListMine(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got == nil || *got != enums.BidStatusPending {
		t.Fatalf("status filter not parsed")
	}

	bad := newRequest(http.MethodGet, "/api/v1/bids/mine?status=lost", "", writerID, enums.RoleWriter, nil)
	resp = httptest.NewRecorder()
	ListMine(svc, nil).ServeHTTP(resp, bad)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAcceptWithoutBody(t *testing.T) {
	bidID := uuid.New()
	customerID := uuid.New()
	svc := &stubMarketplace{
		accept: func(ctx context.Context, input marketplace.DecideBidInput) (*marketplace.AcceptResult, error) {
			if input.BidID != bidID || input.ActorUserID != customerID {
				t.Fatalf("unexpected input %+v", input)
			}
			return &marketplace.AcceptResult{
				Bid:   models.Bid{ID: bidID, Status: enums.BidStatusAccepted},
				Order: models.Order{ID: uuid.New(), Status: enums.OrderStatusInProgress},
			}, nil
		},
	}
	req := newRequest(http.MethodPost, "/api/v1/bids/"+bidID.String()+"/accept", "",
		customerID, enums.RoleCustomer, map[string]string{"bidId": bidID.String()})
	resp := httptest.NewRecorder()
	Accept(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
}

func TestAcceptInsufficientFunds(t *testing.T) {
	bidID := uuid.New()
	svc := &stubMarketplace{
		accept: func(ctx context.Context, input marketplace.DecideBidInput) (*marketplace.AcceptResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "wallet balance is below the bid amount")
		},
	}
	req := newRequest(http.MethodPost, "/api/v1/bids/"+bidID.String()+"/accept", "",
		uuid.New(), enums.RoleCustomer, map[string]string{"bidId": bidID.String()})
	resp := httptest.NewRecorder()
	Accept(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402 got %d", resp.Code)
	}
}

func TestRejectCarriesReason(t *testing.T) {
	bidID := uuid.New()
	var reason string
	svc := &stubMarketplace{
		reject: func(ctx context.Context, input marketplace.DecideBidInput) (*models.Bid, error) {
			reason = input.Reason
			return &models.Bid{ID: bidID, Status: enums.BidStatusRejected}, nil
		},
	}
	req := newRequest(http.MethodPost, "/api/v1/bids/"+bidID.String()+"/reject", `{"reason":" too expensive "}`,
		uuid.New(), enums.RoleCustomer, map[string]string{"bidId": bidID.String()})
	resp := httptest.NewRecorder()
	Reject(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if reason != "too expensive" {
		t.Fatalf("unexpected reason %q", reason)
	}
}

func TestWithdrawForbidden(t *testing.T) {
	bidID := uuid.New()
	svc := &stubMarketplace{
		withdraw: func(ctx context.Context, input marketplace.DecideBidInput) (*models.Bid, error) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the bidding writer can withdraw")
		},
	}
	req := newRequest(http.MethodPost, "/api/v1/bids/"+bidID.String()+"/withdraw", "",
		uuid.New(), enums.RoleWriter, map[string]string{"bidId": bidID.String()})
	resp := httptest.NewRecorder()
	Withdraw(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestDecisionRequiresAuth(t *testing.T) {
	bidID := uuid.New()
	req := newRequest(http.MethodPost, "/api/v1/bids/"+bidID.String()+"/accept", "", uuid.Nil, "", map[string]string{"bidId": bidID.String()})
	resp := httptest.NewRecorder()
	Accept(&stubMarketplace{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}
