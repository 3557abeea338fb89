package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/gym-membership/internal"
	"github.com/frahmantamala/gym-membership/internal/core/common/validation"
	orderDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/order"
	paymentDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/payment"
	planDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/plan"
	subscriptionDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/subscription"
	"github.com/frahmantamala/gym-membership/internal/core/events"
	"github.com/frahmantamala/gym-membership/internal/subscription"
)

type Config struct {
	// RecheckBase and RecheckAttempts bound how long a caller that lost the
	// claim waits for the winner's payment to become visible.
	RecheckBase     time.Duration
	RecheckAttempts uint64
}

func DefaultConfig() Config {
	return Config{RecheckBase: 50 * time.Millisecond, RecheckAttempts: 5}
}

type Reconciler struct {
	store     Store
	publisher events.Publisher
	now       internal.Clock
	cfg       Config
	logger    *slog.Logger
}

func NewReconciler(store Store, publisher events.Publisher, now internal.Clock, cfg Config, logger *slog.Logger) *Reconciler {
	if cfg.RecheckBase <= 0 {
		cfg.RecheckBase = DefaultConfig().RecheckBase
	}
	if cfg.RecheckAttempts == 0 {
		cfg.RecheckAttempts = DefaultConfig().RecheckAttempts
	}
	return &Reconciler{
		store:     store,
		publisher: publisher,
		now:       now,
		cfg:       cfg,
		logger:    logger,
	}
}

// errWriteFailed marks a failure after the claim, inside the transaction.
type errWriteFailed struct{ cause error }

func (e *errWriteFailed) Error() string { return "settlement write: " + e.cause.Error() }
func (e *errWriteFailed) Unwrap() error { return e.cause }

// Reconcile settles orderID with the given outcome. It is safe to call any
// number of times, concurrently, from the webhook, the redirect and the resolver.
//
// The existing payment is checked first since a missing pending order alone
// cannot tell "already settled" from "never existed". The pending order is then
// claimed by a row-count checked delete inside the same transaction that writes
// the subscription and payment, so a failed write rolls the claim back and the
// order stays reconcilable.
func (r *Reconciler) Reconcile(ctx context.Context, orderID string, outcome Outcome) (*Result, error) {
	if appErr := validation.ValidateOrderID(orderID); appErr != nil {
		return nil, appErr
	}
	if outcome != OutcomeSuccess && outcome != OutcomeFailure {
		return nil, internal.NewValidationError("unknown settlement outcome", internal.ErrCodeValidationFailed)
	}

	log := r.logger.With("order_id", orderID, "outcome", string(outcome))

	if res, err := r.existing(ctx, orderID); err != nil || res != nil {
		return res, err
	}

	pending, err := r.store.FindPendingOrder(ctx, orderID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load pending order", err)
	}
	if pending == nil {
		return r.awaitWinner(ctx, orderID, log)
	}

	var plan *planDatamodel.MembershipPlan
	if outcome == OutcomeSuccess {
		plan, err = r.store.FindPlan(ctx, pending.PlanID)
		if err != nil {
			return nil, internal.NewInternalError("failed to load plan", err)
		}
		if plan == nil {
			log.Error("pending order references a missing plan", "plan_id", pending.PlanID)
			return nil, internal.ErrPlanNotFound
		}
	}

	var (
		claimed *orderDatamodel.PendingOrder
		sub     *subscriptionDatamodel.Subscription
		pay     *paymentDatamodel.Payment
	)
	now := r.now()

	err = r.store.WithinTransaction(ctx, func(tx TxStore) error {
		var err error
		claimed, err = tx.ClaimPendingOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if outcome == OutcomeFailure {
			return nil
		}

		sub, pay = build(claimed, plan, now)
		if err := tx.CreateSubscription(ctx, sub); err != nil {
			return &errWriteFailed{cause: fmt.Errorf("create subscription: %w", err)}
		}
		pay.SubscriptionID = sub.ID
		if err := tx.CreatePayment(ctx, pay); err != nil {
			return &errWriteFailed{cause: fmt.Errorf("create payment: %w", err)}
		}
		return nil
	})

	var writeErr *errWriteFailed
	switch {
	case errors.Is(err, ErrClaimLost):
		return r.awaitWinner(ctx, orderID, log)
	case errors.As(err, &writeErr):
		log.Error("settlement write failed after claim; order rolled back to pending",
			"member_id", pending.MemberID, "error", err)
		r.publish(ctx, events.NewSettlementAlertEvent(orderID, pending.MemberID, writeErr.Error()), log)
		return nil, internal.ErrAtomicWriteFailed.Wrap(err)
	case err != nil:
		return nil, internal.NewInternalError("failed to settle order", err)
	}

	if outcome == OutcomeFailure {
		log.Info("order settled as failed", "member_id", claimed.MemberID)
		r.publish(ctx, events.NewPaymentFailedEvent(orderID, claimed.MemberID, claimed.PlanID, claimed.Amount.StringFixed(2)), log)
		return &Result{OrderID: orderID, Status: StatusFailed}, nil
	}

	log.Info("order settled",
		"member_id", claimed.MemberID,
		"subscription_id", sub.ID,
		"payment_id", pay.ID,
		"invoice_number", pay.InvoiceNumber)
	r.publish(ctx, events.NewSubscriptionPurchasedEvent(orderID, claimed.MemberID, claimed.PlanID, sub.ID, pay.ID, pay.Amount.StringFixed(2), sub.EndDate), log)

	return &Result{OrderID: orderID, Status: StatusSettled, Subscription: sub, Payment: pay}, nil
}

// existing returns the already-settled result for orderID, or nil if there is none.
func (r *Reconciler) existing(ctx context.Context, orderID string) (*Result, error) {
	pay, err := r.store.FindPaymentByTransactionID(ctx, orderID)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up payment", err)
	}
	if pay == nil {
		return nil, nil
	}
	sub, err := r.store.FindSubscription(ctx, pay.SubscriptionID)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up subscription", err)
	}
	return &Result{OrderID: orderID, Status: StatusAlreadySettled, Subscription: sub, Payment: pay}, nil
}

// awaitWinner is taken by a caller that found the pending order gone. The
// winner may not have committed yet, so the payment check is retried with
// bounded backoff before giving up.
func (r *Reconciler) awaitWinner(ctx context.Context, orderID string, log *slog.Logger) (*Result, error) {
	var (
		found       *Result
		stillQueued bool
		lookupErr   error
	)
	backoff := retry.WithMaxRetries(r.cfg.RecheckAttempts, retry.NewExponential(r.cfg.RecheckBase))

	_ = retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, err := r.existing(ctx, orderID)
		if err != nil {
			lookupErr = err
			return err
		}
		if res != nil {
			found = res
			return nil
		}
		pending, err := r.store.FindPendingOrder(ctx, orderID)
		if err != nil {
			lookupErr = err
			return err
		}
		stillQueued = pending != nil
		return retry.RetryableError(errors.New("payment not visible yet"))
	})

	switch {
	case found != nil:
		log.Info("order already settled")
		return found, nil
	case lookupErr != nil:
		return nil, internal.NewInternalError("settlement recheck failed", lookupErr)
	case ctx.Err() != nil:
		return nil, internal.NewInternalError("settlement recheck interrupted", ctx.Err())
	case stillQueued:
		log.Warn("order still pending after recheck")
		return &Result{OrderID: orderID, Status: StatusPending}, nil
	default:
		log.Info("no pending order or payment for order")
		return &Result{OrderID: orderID, Status: StatusNotFound}, nil
	}
}

func build(o *orderDatamodel.PendingOrder, plan *planDatamodel.MembershipPlan, now time.Time) (*subscriptionDatamodel.Subscription, *paymentDatamodel.Payment) {
	start, end := subscription.Term(now, plan.DurationMonths)

	admission := o.Amount.Sub(plan.Price)
	if admission.IsNegative() {
		admission = decimal.Zero
	}

	sub := &subscriptionDatamodel.Subscription{
		MemberID:         o.MemberID,
		PlanID:           o.PlanID,
		StartDate:        start,
		EndDate:          end,
		AmountPaid:       o.Amount,
		AdmissionFeePaid: admission,
		PaymentStatus:    subscriptionDatamodel.PaymentStatusPaid,
		Status:           subscriptionDatamodel.StatusActive,
	}

	txID := o.OrderID
	paymentType := paymentDatamodel.TypePlan
	if admission.IsPositive() {
		paymentType = paymentDatamodel.TypeAdmission
	}
	pay := &paymentDatamodel.Payment{
		MemberID:      o.MemberID,
		Amount:        o.Amount,
		PaymentMethod: paymentDatamodel.MethodGateway,
		PaymentSource: paymentDatamodel.SourceGateway,
		PaymentType:   paymentType,
		PaymentDate:   now.UTC(),
		Status:        paymentDatamodel.StatusCompleted,
		TransactionID: &txID,
		InvoiceNumber: NewInvoiceNumber(now),
	}
	return sub, pay
}

func (r *Reconciler) publish(ctx context.Context, event events.Event, log *slog.Logger) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, event); err != nil {
		log.Warn("failed to publish settlement event", "event_type", event.EventType(), "error", err)
	}
}
