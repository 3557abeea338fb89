package order

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/gym-membership/internal"
	orderDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/order"
	pgtypes "github.com/frahmantamala/gym-membership/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/gym-membership/internal/member"
	"github.com/frahmantamala/gym-membership/internal/paymentgateway"
	"github.com/frahmantamala/gym-membership/internal/plan"
)

const (
	RedirectPath = "/api/v1/payments/gateway/redirect"
	WebhookPath  = "/api/v1/payments/gateway/webhook"
)

type RepositoryAPI interface {
	Create(ctx context.Context, o *orderDatamodel.PendingOrder) error
}

type PlanLookup interface {
	Lookup(ctx context.Context, id int64) (*plan.Plan, error)
}

type MemberLookup interface {
	Lookup(ctx context.Context, id int64) (*member.Member, error)
}

type MembershipChecker interface {
	HasActiveSubscription(ctx context.Context, memberID int64, now time.Time) (bool, error)
}

type Gateway interface {
	CreatePayment(ctx context.Context, req *pgtypes.PayRequest) (string, error)
}

type Config struct {
	Enabled         bool
	CallbackBaseURL string
}

type Initiator struct {
	cfg        Config
	repo       RepositoryAPI
	plans      PlanLookup
	members    MemberLookup
	membership MembershipChecker
	gateway    Gateway
	now        internal.Clock
	logger     *slog.Logger
}

func NewInitiator(cfg Config, repo RepositoryAPI, plans PlanLookup, members MemberLookup, membership MembershipChecker, gateway Gateway, now internal.Clock, logger *slog.Logger) *Initiator {
	return &Initiator{
		cfg:        cfg,
		repo:       repo,
		plans:      plans,
		members:    members,
		membership: membership,
		gateway:    gateway,
		now:        now,
		logger:     logger,
	}
}

// Initiate prices the plan for the member, registers the payment with the
// provider and only then records the pending order. A provider rejection
// leaves nothing behind.
func (i *Initiator) Initiate(ctx context.Context, memberID, planID int64) (*Checkout, error) {
	if !i.cfg.Enabled || i.gateway == nil {
		return nil, internal.ErrGatewayDisabled
	}

	p, err := i.plans.Lookup(ctx, planID)
	if err != nil {
		return nil, err
	}
	m, err := i.members.Lookup(ctx, memberID)
	if err != nil {
		return nil, err
	}

	now := i.now()
	waive, err := i.membership.HasActiveSubscription(ctx, memberID, now)
	if err != nil {
		return nil, internal.NewInternalError("failed to check membership", err)
	}
	amount := p.PayableAmount(waive)
	if !amount.GreaterThan(decimal.Zero) {
		return nil, internal.NewValidationError("Plan has no payable amount", internal.ErrCodeInvalidAmount)
	}

	orderID := NewOrderID(now)
	redirectURL, err := i.gateway.CreatePayment(ctx, &pgtypes.PayRequest{
		MerchantTransactionID: orderID,
		MerchantUserID:        MerchantUserID(memberID),
		Amount:                paymentgateway.ToMinorUnits(amount),
		RedirectURL:           i.cfg.CallbackBaseURL + RedirectPath + "?order_id=" + orderID,
		RedirectMode:          "REDIRECT",
		CallbackURL:           i.cfg.CallbackBaseURL + WebhookPath,
		MobileNumber:          m.Phone,
		PaymentInstrument:     pgtypes.PaymentInstrument{Type: "PAY_PAGE"},
	})
	if err != nil {
		i.logger.Warn("payment initiation rejected", "order_id", orderID, "member_id", memberID, "error", err)
		return nil, err
	}

	pending := &orderDatamodel.PendingOrder{
		OrderID:   orderID,
		MemberID:  memberID,
		PlanID:    planID,
		Amount:    amount,
		CreatedAt: now,
	}
	if err := i.repo.Create(ctx, pending); err != nil {
		i.logger.Error("provider accepted order but it was not recorded", "order_id", orderID, "error", err)
		return nil, internal.NewInternalError("failed to record order", err)
	}

	i.logger.Info("order initiated",
		"order_id", orderID,
		"member_id", memberID,
		"plan_id", planID,
		"amount", amount.StringFixed(2),
		"admission_waived", waive)

	return &Checkout{
		OrderID:         orderID,
		RedirectURL:     redirectURL,
		Amount:          amount,
		AdmissionWaived: waive,
	}, nil
}

// MerchantUserID is the payer reference sent to the provider for a member.
func MerchantUserID(memberID int64) string {
	return "M" + strconv.FormatInt(memberID, 10)
}
