package payment

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/gym-membership/internal"
	"github.com/frahmantamala/gym-membership/internal/core/common/validation"
	paymentDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/payment"
	"github.com/frahmantamala/gym-membership/internal/order"
	"github.com/frahmantamala/gym-membership/internal/paymentgateway"
	"github.com/frahmantamala/gym-membership/internal/settlement"
)

type RepositoryAPI interface {
	GetByTransactionID(ctx context.Context, orderID string) (*paymentDatamodel.Payment, error)
	HasPendingOrder(ctx context.Context, orderID string) (bool, error)
	// MarkRefunded moves a completed payment to refunded only while it carries
	// no refund id, and reports whether this call made the transition.
	MarkRefunded(ctx context.Context, id int64, refund RefundRecord) (bool, error)
}

// RefundRecord is the refund as accepted by the provider.
type RefundRecord struct {
	RefundID   string
	Amount     decimal.Decimal
	RefundedAt time.Time
	// Response is the JSON stored in payments.refund_response.
	Response []byte
}

type Gateway interface {
	CheckStatus(ctx context.Context, orderID string) (*paymentgateway.StatusResult, error)
	InitiateRefund(ctx context.Context, refundID, originalOrderID string, amount int64, memberRef string) (*paymentgateway.RefundResult, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, orderID string, outcome settlement.Outcome) (*settlement.Result, error)
}

type ServiceAPI interface {
	Status(ctx context.Context, orderID string) (*StatusResponse, error)
	Resolve(ctx context.Context, orderID string) (*settlement.Result, error)
	Refund(ctx context.Context, orderID string, amount *decimal.Decimal) (*RefundResponse, error)
}

type Service struct {
	repo       RepositoryAPI
	gateway    Gateway
	reconciler Reconciler
	now        internal.Clock
	logger     *slog.Logger
}

func NewService(repo RepositoryAPI, gateway Gateway, reconciler Reconciler, now internal.Clock, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		gateway:    gateway,
		reconciler: reconciler,
		now:        now,
		logger:     logger,
	}
}

type refundReply struct {
	Amount   string          `json:"amount"`
	Code     string          `json:"code"`
	Provider json.RawMessage `json:"provider,omitempty"`
}

// Status combines the provider's view of orderID with the local record. It
// never reconciles.
func (s *Service) Status(ctx context.Context, orderID string) (*StatusResponse, error) {
	if appErr := validation.ValidateOrderID(orderID); appErr != nil {
		return nil, appErr
	}
	if s.gateway == nil {
		return nil, internal.ErrGatewayDisabled
	}

	remote, err := s.gateway.CheckStatus(ctx, orderID)
	if err != nil {
		return nil, err
	}

	resp := &StatusResponse{
		OrderID:       orderID,
		ProviderState: string(remote.State),
		ProviderCode:  remote.Code,
		LocalState:    LocalStateUnknown,
	}

	p, err := s.repo.GetByTransactionID(ctx, orderID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load payment", err)
	}
	if p != nil {
		resp.Payment = ToView(p)
		resp.LocalState = LocalStateSettled
		if p.Status == paymentDatamodel.StatusRefunded {
			resp.LocalState = LocalStateRefunded
		}
		return resp, nil
	}

	queued, err := s.repo.HasPendingOrder(ctx, orderID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load pending order", err)
	}
	if queued {
		resp.LocalState = LocalStatePending
	}
	return resp, nil
}

// Resolve asks the provider for the state of orderID and reconciles it when the
// state is terminal. An unreachable provider leaves the order untouched.
func (s *Service) Resolve(ctx context.Context, orderID string) (*settlement.Result, error) {
	if appErr := validation.ValidateOrderID(orderID); appErr != nil {
		return nil, appErr
	}
	if s.gateway == nil {
		return nil, internal.ErrGatewayDisabled
	}

	remote, err := s.gateway.CheckStatus(ctx, orderID)
	if err != nil {
		s.logger.Warn("status check failed; outcome unknown", "order_id", orderID, "error", err)
		return nil, err
	}

	outcome, terminal := OutcomeFor(remote.State)
	if !terminal {
		return &settlement.Result{OrderID: orderID, Status: settlement.StatusPending}, nil
	}
	return s.reconciler.Reconcile(ctx, orderID, outcome)
}

// Refund refunds a settled gateway payment. The refund id is derived from the
// order, so repeating the call returns the stored result instead of refunding twice.
func (s *Service) Refund(ctx context.Context, orderID string, amount *decimal.Decimal) (*RefundResponse, error) {
	if appErr := validation.ValidateOrderID(orderID); appErr != nil {
		return nil, appErr
	}
	if s.gateway == nil {
		return nil, internal.ErrGatewayDisabled
	}

	p, err := s.repo.GetByTransactionID(ctx, orderID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load payment", err)
	}
	if p == nil {
		return nil, internal.ErrPaymentNotFound
	}
	if p.RefundID != nil {
		s.logger.Info("refund already recorded", "order_id", orderID, "refund_id", *p.RefundID)
		return storedRefund(orderID, p), nil
	}
	if p.Status != paymentDatamodel.StatusCompleted || p.PaymentSource != paymentDatamodel.SourceGateway {
		return nil, internal.ErrRefundNotAllowed
	}

	refundAmount := p.Amount
	if amount != nil {
		if !amount.IsPositive() || amount.GreaterThan(p.Amount) {
			return nil, internal.NewValidationError("Refund amount must be positive and not exceed the payment", internal.ErrCodeInvalidAmount)
		}
		refundAmount = *amount
	}

	refundID := RefundID(orderID)
	log := s.logger.With("order_id", orderID, "refund_id", refundID, "payment_id", p.ID)

	res, err := s.gateway.InitiateRefund(ctx, refundID, orderID, paymentgateway.ToMinorUnits(refundAmount), order.MerchantUserID(p.MemberID))
	if err != nil {
		log.Warn("refund call failed", "error", err)
		return nil, err
	}
	if !res.Success {
		log.Warn("provider declined refund", "code", res.Code)
		return nil, internal.ErrRefundFailed
	}

	reply, err := json.Marshal(refundReply{
		Amount:   refundAmount.StringFixed(2),
		Code:     res.Code,
		Provider: res.Raw,
	})
	if err != nil {
		return nil, internal.NewInternalError("failed to encode refund response", err)
	}

	refundedAt := s.now().UTC()
	changed, err := s.repo.MarkRefunded(ctx, p.ID, RefundRecord{
		RefundID:   refundID,
		Amount:     refundAmount,
		RefundedAt: refundedAt,
		Response:   reply,
	})
	if err != nil {
		log.Error("provider accepted refund but it was not recorded", "error", err)
		return nil, internal.NewInternalError("failed to record refund", err)
	}
	if !changed {
		// a concurrent call recorded it first
		current, err := s.repo.GetByTransactionID(ctx, orderID)
		if err != nil || current == nil || current.RefundID == nil {
			return nil, internal.NewInternalError("failed to reload refunded payment", err)
		}
		return storedRefund(orderID, current), nil
	}

	log.Info("payment refunded", "amount", refundAmount.StringFixed(2))
	return &RefundResponse{
		OrderID:    orderID,
		RefundID:   refundID,
		Status:     paymentDatamodel.StatusRefunded,
		Amount:     refundAmount.StringFixed(2),
		RefundedAt: &refundedAt,
	}, nil
}

func storedRefund(orderID string, p *paymentDatamodel.Payment) *RefundResponse {
	amount := p.Amount
	if p.RefundedAmount.Valid {
		amount = p.RefundedAmount.Decimal
	}
	return &RefundResponse{
		OrderID:    orderID,
		RefundID:   *p.RefundID,
		Status:     p.Status,
		Amount:     amount.StringFixed(2),
		RefundedAt: p.RefundedAt,
	}
}
