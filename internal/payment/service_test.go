package payment_test

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/frahmantamala/gym-membership/internal"
	orderDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/order"
	paymentDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/payment"
	pgtypes "github.com/frahmantamala/gym-membership/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/gym-membership/internal/core/testdb"
	"github.com/frahmantamala/gym-membership/internal/payment"
	paymentPostgres "github.com/frahmantamala/gym-membership/internal/payment/postgres"
	"github.com/frahmantamala/gym-membership/internal/settlement"
	settlementPostgres "github.com/frahmantamala/gym-membership/internal/settlement/postgres"
	"github.com/frahmantamala/gym-membership/pkg/logger"
)

var _ = ginkgo.Describe("Service", func() {
	const orderID = "GYM20240301095000_0a1b2c3d"

	var (
		db         *gorm.DB
		gateway    *fakeGateway
		reconciler *settlement.Reconciler
		service    *payment.Service
		slogger    *slog.Logger
		ctx        context.Context
		planID     int64
	)

	ginkgo.BeforeEach(func() {
		var err error
		db, err = testdb.Open()
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		ctx = context.Background()
		slogger = logger.Discard()
		gateway = newFakeGateway()
		reconciler = settlement.NewReconciler(settlementPostgres.NewStore(db), nil, fixedClock,
			settlement.Config{RecheckBase: time.Millisecond, RecheckAttempts: 2}, slogger)
		service = payment.NewService(paymentPostgres.NewPaymentRepository(db), gateway, reconciler, fixedClock, slogger)

		planID = seedPlan(db).ID
		seedPending(db, planID, orderID, testNow.Add(-time.Hour))
	})

	settle := func() {
		gateway.set(orderID, pgtypes.StateCompleted)
		res, err := service.Resolve(ctx, orderID)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(res.Status).To(gomega.Equal(settlement.StatusSettled))
	}

	ginkgo.Describe("Resolve", func() {
		ginkgo.It("should settle an order the provider reports completed", func() {
			settle()
			gomega.Expect(countRows(db, &paymentDatamodel.Payment{})).To(gomega.Equal(int64(1)))
		})

		ginkgo.It("should settle a declined order as failed", func() {
			gateway.set(orderID, pgtypes.StateFailed)

			res, err := service.Resolve(ctx, orderID)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(res.Status).To(gomega.Equal(settlement.StatusFailed))
			gomega.Expect(countRows(db, &orderDatamodel.PendingOrder{})).To(gomega.BeZero())
		})

		ginkgo.It("should leave a pending order untouched", func() {
			gateway.set(orderID, pgtypes.StatePending)

			res, err := service.Resolve(ctx, orderID)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(res.Status).To(gomega.Equal(settlement.StatusPending))
			gomega.Expect(countRows(db, &orderDatamodel.PendingOrder{})).To(gomega.Equal(int64(1)))
		})

		ginkgo.It("should treat an unreachable provider as an unknown outcome", func() {
			gateway.statusErr = internal.ErrProviderUnreachable.Wrap(context.DeadlineExceeded)

			_, err := service.Resolve(ctx, orderID)
			gomega.Expect(errors.Is(err, internal.ErrProviderUnreachable)).To(gomega.BeTrue())
			gomega.Expect(countRows(db, &orderDatamodel.PendingOrder{})).To(gomega.Equal(int64(1)))
			gomega.Expect(countRows(db, &paymentDatamodel.Payment{})).To(gomega.BeZero())
		})
	})

	ginkgo.Describe("Status", func() {
		ginkgo.It("should report a queued order as pending locally", func() {
			gateway.set(orderID, pgtypes.StatePending)

			resp, err := service.Status(ctx, orderID)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(resp.ProviderState).To(gomega.Equal(string(pgtypes.StatePending)))
			gomega.Expect(resp.LocalState).To(gomega.Equal(payment.LocalStatePending))
			gomega.Expect(resp.Payment).To(gomega.BeNil())
		})

		ginkgo.It("should not reconcile a completed order", func() {
			gateway.set(orderID, pgtypes.StateCompleted)

			resp, err := service.Status(ctx, orderID)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(resp.LocalState).To(gomega.Equal(payment.LocalStatePending))
			gomega.Expect(countRows(db, &paymentDatamodel.Payment{})).To(gomega.BeZero())
		})

		ginkgo.It("should include the payment once settled", func() {
			settle()

			resp, err := service.Status(ctx, orderID)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(resp.LocalState).To(gomega.Equal(payment.LocalStateSettled))
			gomega.Expect(resp.Payment.OrderID).To(gomega.Equal(orderID))
			gomega.Expect(resp.Payment.Amount).To(gomega.Equal("2000.00"))
		})
	})

	ginkgo.Describe("Refund", func() {
		ginkgo.It("should refund the full amount and record the refund id", func() {
			settle()

			resp, err := service.Refund(ctx, orderID, nil)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(resp.RefundID).To(gomega.Equal("RF" + orderID))
			gomega.Expect(resp.Status).To(gomega.Equal(paymentDatamodel.StatusRefunded))
			gomega.Expect(resp.Amount).To(gomega.Equal("2000.00"))
			gomega.Expect(gateway.lastRefundAmt).To(gomega.Equal(int64(200000)))

			var stored paymentDatamodel.Payment
			gomega.Expect(db.Where("transaction_id = ?", orderID).First(&stored).Error).To(gomega.Succeed())
			gomega.Expect(stored.Status).To(gomega.Equal(paymentDatamodel.StatusRefunded))
			gomega.Expect(*stored.RefundID).To(gomega.Equal("RF" + orderID))
			gomega.Expect(stored.RefundedAt).NotTo(gomega.BeNil())
			gomega.Expect(stored.RefundResponse).NotTo(gomega.BeNil())
			gomega.Expect(*stored.RefundResponse).To(gomega.ContainSubstring(`"amount":"2000.00"`))
			gomega.Expect(stored.RefundedAmount.Decimal.StringFixed(2)).To(gomega.Equal("2000.00"))
		})

		ginkgo.It("should return the stored refund on repeat without calling the provider", func() {
			settle()
			half := decimal.RequireFromString("1000")

			first, err := service.Refund(ctx, orderID, &half)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			again, err := service.Refund(ctx, orderID, nil)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(again.RefundID).To(gomega.Equal(first.RefundID))
			gomega.Expect(again.Amount).To(gomega.Equal("1000.00"))
			gomega.Expect(gateway.refundCalls).To(gomega.Equal(1))
		})

		ginkgo.It("should keep reporting a refunded order", func() {
			settle()
			half := decimal.RequireFromString("500")
			_, err := service.Refund(ctx, orderID, &half)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			status, err := service.Status(ctx, orderID)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(status.LocalState).To(gomega.Equal(payment.LocalStateRefunded))
			gomega.Expect(status.Payment.Amount).To(gomega.Equal("2000.00"))
			gomega.Expect(status.Payment.RefundedAmount).To(gomega.Equal("500.00"))

			res, err := reconciler.Reconcile(ctx, orderID, settlement.OutcomeSuccess)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(res.Status).To(gomega.Equal(settlement.StatusAlreadySettled))
		})

		ginkgo.It("should keep the payment completed when the provider declines", func() {
			settle()
			gateway.refundDecline = true

			_, err := service.Refund(ctx, orderID, nil)
			gomega.Expect(errors.Is(err, internal.ErrRefundFailed)).To(gomega.BeTrue())

			var stored paymentDatamodel.Payment
			gomega.Expect(db.Where("transaction_id = ?", orderID).First(&stored).Error).To(gomega.Succeed())
			gomega.Expect(stored.Status).To(gomega.Equal(paymentDatamodel.StatusCompleted))
			gomega.Expect(stored.RefundID).To(gomega.BeNil())
		})

		ginkgo.It("should reject amounts above the payment", func() {
			settle()
			tooMuch := decimal.RequireFromString("2000.01")

			_, err := service.Refund(ctx, orderID, &tooMuch)
			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.Code).To(gomega.Equal(internal.ErrCodeInvalidAmount))
			gomega.Expect(gateway.refundCalls).To(gomega.BeZero())
		})

		ginkgo.It("should refuse manual payments", func() {
			txID := "MANUAL-1"
			gomega.Expect(db.Create(&paymentDatamodel.Payment{
				SubscriptionID: 1,
				MemberID:       7,
				Amount:         decimal.NewFromInt(1500),
				PaymentMethod:  paymentDatamodel.MethodCash,
				PaymentSource:  paymentDatamodel.SourceManual,
				PaymentType:    paymentDatamodel.TypePlan,
				PaymentDate:    testNow,
				Status:         paymentDatamodel.StatusCompleted,
				TransactionID:  &txID,
				InvoiceNumber:  "INV-20240301-MANUAL01",
			}).Error).To(gomega.Succeed())

			_, err := service.Refund(ctx, txID, nil)
			gomega.Expect(errors.Is(err, internal.ErrRefundNotAllowed)).To(gomega.BeTrue())
		})

		ginkgo.It("should report unknown payments", func() {
			_, err := service.Refund(ctx, orderID, nil)
			gomega.Expect(errors.Is(err, internal.ErrPaymentNotFound)).To(gomega.BeTrue())
		})
	})

	ginkgo.Describe("Resolver", func() {
		var resolver *payment.Resolver

		ginkgo.BeforeEach(func() {
			sqlDB, err := db.DB()
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			report := settlement.NewReport(sqlx.NewDb(sqlDB, "sqlite3"))
			resolver = payment.NewResolver(report, service, payment.ResolverConfig{
				MinAge:     15 * time.Minute,
				StaleAfter: 2 * time.Hour,
			}, slogger)
		})

		ginkgo.It("should settle terminal orders and count the rest", func() {
			seedPending(db, planID, "GYM20240301060000_00000002", testNow.Add(-4*time.Hour))
			seedPending(db, planID, "GYM20240301095500_00000003", testNow.Add(-5*time.Minute))
			gateway.set(orderID, pgtypes.StateCompleted)
			gateway.set("GYM20240301060000_00000002", pgtypes.StatePending)

			summary, err := resolver.ResolvePending(ctx, testNow)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(summary.Checked).To(gomega.Equal(2))
			gomega.Expect(summary.Settled).To(gomega.Equal(1))
			gomega.Expect(summary.Pending).To(gomega.Equal(1))
			gomega.Expect(summary.Stale).To(gomega.Equal(1))
			gomega.Expect(countRows(db, &orderDatamodel.PendingOrder{})).To(gomega.Equal(int64(2)))
		})

		ginkgo.It("should keep going after a failing order", func() {
			gateway.statusErr = internal.ErrProviderUnreachable

			summary, err := resolver.ResolvePending(ctx, testNow)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(summary.Errors).To(gomega.Equal(1))
		})
	})
})
