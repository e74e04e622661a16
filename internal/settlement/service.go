package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/assignmentpoint-backend/internal/ledger"
	"github.com/angelmondragon/assignmentpoint-backend/internal/orders"
	"github.com/angelmondragon/assignmentpoint-backend/internal/users"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/db/models"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/assignmentpoint-backend/pkg/errors"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/logger"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/money"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/outbox"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/outbox/payloads"
)

const (
	outcomeSettled = "settled"
	outcomeSkipped = "skipped"
	outcomeFailed  = "failed"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Wallets is the slice of the ledger settlement posts through.
type Wallets interface {
	EnsureAccount(ctx context.Context, tx *gorm.DB, ownerType enums.AccountOwnerType, ownerID uuid.UUID, currency enums.Currency) (*models.WalletAccount, error)
	LockAccounts(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
	Post(ctx context.Context, tx *gorm.DB, input ledger.PostInput, direction ledger.Direction) (*ledger.PostResult, error)
	TotalsByType(ctx context.Context) ([]ledger.TypeTotal, error)
}

// CompletionRecorder bumps the profile counters a completed order affects.
type CompletionRecorder interface {
	RecordOrderCompleted(ctx context.Context, tx *gorm.DB, input users.CompletionInput) error
}

type settlementMetrics interface {
	ObserveSettlement(outcome string, totalCents int64)
}

// Service distributes completed orders and administers the revenue split table.
type Service interface {
	Settle(ctx context.Context, tx *gorm.DB, order *models.Order) error
	ListRules(ctx context.Context) ([]models.RevenueRule, error)
	CreateRule(ctx context.Context, input CreateRuleInput) (*models.RevenueRule, error)
	DeactivateRule(ctx context.Context, id uuid.UUID) error
	SeedDefaultRules(ctx context.Context) (int, error)
	RevenueSummary(ctx context.Context) (*RevenueSummary, error)
}

// CreateRuleInput adds a revenue rule. Percentage is a decimal string such as "12.5".
type CreateRuleInput struct {
	Name                string
	Role                enums.RevenueRole
	Percentage          string
	IsReturningCustomer bool
}

// RevenueSummary aggregates ledger activity for the admin dashboard.
type RevenueSummary struct {
	CompletedOrders        int64              `json:"completed_orders"`
	CompletedTotalCents    int64              `json:"completed_total_cents"`
	PlatformProfitCents    int64              `json:"platform_profit_cents"`
	ParticipantPayoutCents int64              `json:"participant_payout_cents"`
	DepositedCents         int64              `json:"deposited_cents"`
	ByType                 []ledger.TypeTotal `json:"by_type"`
}

// Deps groups the collaborators of the settlement service.
type Deps struct {
	Rules    Repository
	Orders   orders.Repository
	Tx       txRunner
	Wallets  Wallets
	Profiles CompletionRecorder
	Outbox   outboxPublisher
	Policy   Policy
	Logger   *logger.Logger
	Metrics  settlementMetrics
}

type service struct {
	rules    Repository
	orders   orders.Repository
	tx       txRunner
	wallets  Wallets
	profiles CompletionRecorder
	outbox   outboxPublisher
	policy   Policy
	logg     *logger.Logger
	metrics  settlementMetrics
	now      func() time.Time
}

// NewService wires the settlement engine.
func NewService(deps Deps) (Service, error) {
	if deps.Rules == nil {
		return nil, fmt.Errorf("revenue rule repository required")
	}
	if deps.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if deps.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if deps.Wallets == nil {
		return nil, fmt.Errorf("wallets required")
	}
	if deps.Profiles == nil {
		return nil, fmt.Errorf("completion recorder required")
	}
	if deps.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if deps.Policy.PlatformOwnerID == uuid.Nil {
		return nil, fmt.Errorf("platform account owner required")
	}
	return &service{
		rules:    deps.Rules,
		orders:   deps.Orders,
		tx:       deps.Tx,
		wallets:  deps.Wallets,
		profiles: deps.Profiles,
		outbox:   deps.Outbox,
		policy:   deps.Policy,
		logg:     deps.Logger,
		metrics:  deps.Metrics,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

type posting struct {
	ownerType enums.AccountOwnerType
	ownerID   uuid.UUID
	entryType enums.LedgerEntryType
	amount    int64
	accountID uuid.UUID
}

// Settle distributes a completed order's total inside the completing transaction. An order
// that is already settled is left alone.
func (s *service) Settle(ctx context.Context, tx *gorm.DB, order *models.Order) (err error) {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "settlement requires a transaction")
	}
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	if order.Settled {
		s.observe(outcomeSkipped, order.TotalCents)
		return nil
	}
	if order.WriterID == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no writer to settle")
	}
	defer func() {
		if err != nil {
			s.observe(outcomeFailed, order.TotalCents)
		}
	}()

	settledAt := s.now()
	marked, err := s.orders.WithTx(tx).MarkSettled(ctx, order.ID, settledAt)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order settled")
	}
	if !marked {
		order.Settled = true
		s.observe(outcomeSkipped, order.TotalCents)
		return nil
	}

	pcts, usedDefault, err := s.percentagesFor(ctx, tx, order)
	if err != nil {
		return err
	}

	parties := map[enums.RevenueRole]*uuid.UUID{
		enums.RevenueRoleWriter:     order.WriterID,
		enums.RevenueRoleSalesAgent: order.SalesAgentID,
		enums.RevenueRoleManager:    order.ManagerID,
		enums.RevenueRoleEditor:     order.EditorID,
	}
	applicable := Percentages{}
	for role, pct := range pcts {
		if parties[role] != nil {
			applicable[role] = pct
		}
	}
	split, err := ComputeSplit(order.TotalCents, applicable)
	if err != nil {
		return err
	}

	postings := make([]posting, 0, len(split.Shares)+1)
	for _, share := range split.Shares {
		if share.AmountCents <= 0 {
			continue
		}
		postings = append(postings, posting{
			ownerType: share.Role.OwnerType(),
			ownerID:   *parties[share.Role],
			entryType: share.Role.EntryType(),
			amount:    share.AmountCents,
		})
	}
	if split.PlatformCents > 0 {
		postings = append(postings, posting{
			ownerType: enums.AccountOwnerPlatform,
			ownerID:   s.policy.PlatformOwnerID,
			entryType: enums.LedgerEntryPlatformProfit,
			amount:    split.PlatformCents,
		})
	}

	lines, err := s.post(ctx, tx, order, postings)
	if err != nil {
		return err
	}

	if err := s.profiles.RecordOrderCompleted(ctx, tx, users.CompletionInput{
		WriterID:   *order.WriterID,
		CustomerID: order.CustomerID,
		TotalCents: order.TotalCents,
	}); err != nil {
		return err
	}

	order.Settled = true
	order.SettledAt = &settledAt

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderSettled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.OrderSettledEvent{
			OrderID:      order.ID,
			TotalCents:   order.TotalCents,
			DefaultSplit: usedDefault,
			Lines:        lines,
		},
	}); err != nil {
		return err
	}

	s.observe(outcomeSettled, order.TotalCents)
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"total":         money.Format(order.TotalCents),
			"platform":      money.Format(split.PlatformCents),
			"postings":      len(lines),
			"default_split": usedDefault,
		})
		s.logg.Info(logCtx, "order settled")
	}
	return nil
}

func (s *service) observe(outcome string, totalCents int64) {
	if s.metrics != nil {
		s.metrics.ObserveSettlement(outcome, totalCents)
	}
}

// percentagesFor loads the active rules for the order's customer class. A missing writer
// rule falls back to the configured split only when the policy allows it.
func (s *service) percentagesFor(ctx context.Context, tx *gorm.DB, order *models.Order) (Percentages, bool, error) {
	rules, err := s.rules.WithTx(tx).ListActive(ctx, order.CustomerIsReturning)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load revenue rules")
	}

	pcts := Percentages{}
	for _, rule := range rules {
		if _, dup := pcts[rule.Role]; dup {
			return nil, false, pkgerrors.Newf(pkgerrors.CodeConfiguration, "more than one active %s rule", rule.Role).
				WithDetails(map[string]any{"returning_customer": order.CustomerIsReturning})
		}
		pcts[rule.Role] = rule.Percentage
	}
	if sum := pcts.Sum(); sum.GreaterThan(hundred) {
		return nil, false, pkgerrors.Newf(pkgerrors.CodeConfiguration, "active revenue rules sum to %s%%", sum.String()).
			WithDetails(map[string]any{"returning_customer": order.CustomerIsReturning, "sum": sum.String()})
	}
	if _, ok := pcts[enums.RevenueRoleWriter]; ok {
		return pcts, false, nil
	}

	if !s.policy.AllowDefaultSplit {
		return nil, false, pkgerrors.New(pkgerrors.CodeConfiguration, "no active writer revenue rule").
			WithDetails(map[string]any{"returning_customer": order.CustomerIsReturning})
	}
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		logCtx = s.logg.WithField(logCtx, "returning_customer", order.CustomerIsReturning)
		s.logg.Warn(logCtx, "no active writer revenue rule, using default split")
	}
	return s.policy.DefaultSplit, true, nil
}

// post ensures every account, locks them in id order, then credits each share.
func (s *service) post(ctx context.Context, tx *gorm.DB, order *models.Order, postings []posting) ([]payloads.SettlementLine, error) {
	ids := make([]uuid.UUID, 0, len(postings))
	for i := range postings {
		account, err := s.wallets.EnsureAccount(ctx, tx, postings[i].ownerType, postings[i].ownerID, order.Currency)
		if err != nil {
			return nil, err
		}
		postings[i].accountID = account.ID
		ids = append(ids, account.ID)
	}
	if err := s.wallets.LockAccounts(ctx, tx, ids); err != nil {
		return nil, err
	}

	orderID := order.ID
	lines := make([]payloads.SettlementLine, 0, len(postings))
	for _, p := range postings {
		if _, err := s.wallets.Post(ctx, tx, ledger.PostInput{
			AccountID:   p.accountID,
			AmountCents: p.amount,
			Type:        p.entryType,
			OrderID:     &orderID,
			Description: fmt.Sprintf("%s for order %s", strings.ToLower(string(p.entryType)), order.OrderNumber),
		}, ledger.DirectionCredit); err != nil {
			return nil, err
		}
		lines = append(lines, payloads.SettlementLine{AccountID: p.accountID, Type: p.entryType, AmountCents: p.amount})
	}
	return lines, nil
}

func (s *service) ListRules(ctx context.Context) ([]models.RevenueRule, error) {
	rules, err := s.rules.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list revenue rules")
	}
	return rules, nil
}

// CreateRule adds an active rule. A role may hold one active rule per customer class and the
// active rules of a class may not exceed 100 percent.
func (s *service) CreateRule(ctx context.Context, input CreateRuleInput) (*models.RevenueRule, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rule name required")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid revenue role %q", input.Role)
	}
	pct, err := money.ParsePercent(strings.TrimSpace(input.Percentage))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid percentage")
	}

	rule := &models.RevenueRule{
		Name:                name,
		IsReturningCustomer: input.IsReturningCustomer,
		Role:                input.Role,
		Percentage:          pct,
		Active:              true,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.rules.WithTx(tx)
		if _, err := repo.FindByName(ctx, name); err == nil {
			return pkgerrors.Newf(pkgerrors.CodeConflict, "revenue rule %q already exists", name)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load revenue rule")
		}

		active, err := repo.LockActive(ctx, input.IsReturningCustomer)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active revenue rules")
		}
		sum := pct
		for _, existing := range active {
			if existing.Role == input.Role {
				return pkgerrors.Newf(pkgerrors.CodeConflict, "an active %s rule already exists", input.Role).
					WithDetails(map[string]any{"rule_id": existing.ID})
			}
			sum = sum.Add(existing.Percentage)
		}
		if sum.GreaterThan(hundred) {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "active rules would sum to %s%%", sum.String()).
				WithDetails(map[string]any{"sum": sum.String()})
		}

		if err := repo.Create(ctx, rule); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create revenue rule")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"rule_id":   rule.ID.String(),
			"role":      rule.Role,
			"pct":       rule.Percentage.String(),
			"returning": rule.IsReturningCustomer,
		})
		s.logg.Info(logCtx, "revenue rule created")
	}
	return rule, nil
}

func (s *service) DeactivateRule(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "rule id required")
	}
	ok, err := s.rules.Deactivate(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate revenue rule")
	}
	if ok {
		if s.logg != nil {
			s.logg.Info(s.logg.WithField(ctx, "rule_id", id.String()), "revenue rule deactivated")
		}
		return nil
	}
	if _, err := s.rules.Find(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "revenue rule not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load revenue rule")
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "revenue rule already inactive")
}

// defaultRules is the standard split table: new customers pay 40/15/15, returning customers
// earn the sales agent a smaller 10 percent commission.
var defaultRules = []CreateRuleInput{
	{Name: "new_customer_writer", Role: enums.RevenueRoleWriter, Percentage: "40"},
	{Name: "new_customer_sales_agent", Role: enums.RevenueRoleSalesAgent, Percentage: "15"},
	{Name: "new_customer_manager", Role: enums.RevenueRoleManager, Percentage: "15"},
	{Name: "returning_customer_writer", Role: enums.RevenueRoleWriter, Percentage: "40", IsReturningCustomer: true},
	{Name: "returning_customer_sales_agent", Role: enums.RevenueRoleSalesAgent, Percentage: "10", IsReturningCustomer: true},
	{Name: "returning_customer_manager", Role: enums.RevenueRoleManager, Percentage: "15", IsReturningCustomer: true},
}

// SeedDefaultRules installs the standard split table when no rules exist at all. Postgres
// deployments get the same rows from the migrations; this covers AutoMigrate databases.
func (s *service) SeedDefaultRules(ctx context.Context) (int, error) {
	existing, err := s.rules.List(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list revenue rules")
	}
	if len(existing) > 0 {
		return 0, nil
	}
	created := 0
	for _, input := range defaultRules {
		if _, err := s.CreateRule(ctx, input); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

func (s *service) RevenueSummary(ctx context.Context) (*RevenueSummary, error) {
	totals, err := s.wallets.TotalsByType(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum ledger entries")
	}
	completed, err := s.orders.CompletedTotals(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum completed orders")
	}

	summary := &RevenueSummary{
		CompletedOrders:     completed.Count,
		CompletedTotalCents: completed.TotalCents,
		ByType:              totals,
	}
	for _, total := range totals {
		switch {
		case total.Type == enums.LedgerEntryPlatformProfit:
			summary.PlatformProfitCents += total.TotalCents
		case total.Type == enums.LedgerEntryDeposit:
			summary.DepositedCents += total.TotalCents
		case total.Type.IsEarning():
			summary.ParticipantPayoutCents += total.TotalCents
		}
	}
	return summary, nil
}
