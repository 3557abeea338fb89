package payment_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi"
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
	"github.com/frahmantamala/gym-membership/internal/settlement"
	settlementPostgres "github.com/frahmantamala/gym-membership/internal/settlement/postgres"
	"github.com/frahmantamala/gym-membership/internal/transport"
	"github.com/frahmantamala/gym-membership/pkg/logger"
)

type fakeService struct {
	result    *settlement.Result
	err       error
	refundAmt *decimal.Decimal
	refundHit bool
}

func (f *fakeService) Status(_ context.Context, orderID string) (*payment.StatusResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &payment.StatusResponse{OrderID: orderID, ProviderState: "COMPLETED", LocalState: payment.LocalStateSettled}, nil
}

func (f *fakeService) Resolve(_ context.Context, orderID string) (*settlement.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	res := *f.result
	res.OrderID = orderID
	return &res, nil
}

func (f *fakeService) Refund(_ context.Context, orderID string, amount *decimal.Decimal) (*payment.RefundResponse, error) {
	f.refundHit = true
	f.refundAmt = amount
	if f.err != nil {
		return nil, f.err
	}
	return &payment.RefundResponse{OrderID: orderID, RefundID: payment.RefundID(orderID), Status: paymentDatamodel.StatusRefunded, Amount: "10.00"}, nil
}

var _ = ginkgo.Describe("WebhookHandler", func() {
	const orderID = "GYM20240301095000_feedbeef"

	var (
		db      *gorm.DB
		handler *payment.WebhookHandler
	)

	post := func(h *payment.WebhookHandler, body []byte, signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/gateway/webhook", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if signature != "" {
			req.Header.Set(pgtypes.HeaderVerify, signature)
		}
		rec := httptest.NewRecorder()
		h.HandleWebhook(rec, req)
		return rec
	}

	ginkgo.BeforeEach(func() {
		var err error
		db, err = testdb.Open()
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		plan := seedPlan(db)
		seedPending(db, plan.ID, orderID, testNow.Add(-time.Minute))

		reconciler := settlement.NewReconciler(settlementPostgres.NewStore(db), nil, fixedClock,
			settlement.Config{RecheckBase: time.Millisecond, RecheckAttempts: 2}, logger.Discard())
		handler = payment.NewWebhookHandler(transport.NewBaseHandler(logger.Discard()), reconciler, testSalt)
	})

	ginkgo.It("should settle a verified success and acknowledge with {}", func() {
		body, sig := signedCallback(pgtypes.CodePaymentSuccess, orderID)

		rec := post(handler, body, sig)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(strings.TrimSpace(rec.Body.String())).To(gomega.Equal("{}"))
		gomega.Expect(countRows(db, &paymentDatamodel.Payment{})).To(gomega.Equal(int64(1)))
	})

	ginkgo.It("should absorb redelivery", func() {
		body, sig := signedCallback(pgtypes.CodePaymentSuccess, orderID)

		for i := 0; i < 3; i++ {
			gomega.Expect(post(handler, body, sig).Code).To(gomega.Equal(http.StatusOK))
		}
		gomega.Expect(countRows(db, &paymentDatamodel.Payment{})).To(gomega.Equal(int64(1)))
	})

	ginkgo.It("should reject a body signed with another salt", func() {
		body, _ := signedCallback(pgtypes.CodePaymentSuccess, orderID)
		forged := "0000000000000000000000000000000000000000000000000000000000000000###1"

		rec := post(handler, body, forged)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
		gomega.Expect(countRows(db, &paymentDatamodel.Payment{})).To(gomega.BeZero())
		gomega.Expect(countRows(db, &orderDatamodel.PendingOrder{})).To(gomega.Equal(int64(1)))
	})

	ginkgo.It("should reject a tampered body", func() {
		_, sig := signedCallback(pgtypes.CodePaymentError, orderID)
		body, _ := signedCallback(pgtypes.CodePaymentSuccess, orderID)

		gomega.Expect(post(handler, body, sig).Code).To(gomega.Equal(http.StatusUnauthorized))
		gomega.Expect(countRows(db, &paymentDatamodel.Payment{})).To(gomega.BeZero())
	})

	ginkgo.It("should reject an unsigned body", func() {
		body, _ := signedCallback(pgtypes.CodePaymentSuccess, orderID)
		gomega.Expect(post(handler, body, "").Code).To(gomega.Equal(http.StatusUnauthorized))
	})

	ginkgo.It("should settle declined payments as failed", func() {
		body, sig := signedCallback(pgtypes.CodePaymentDeclined, orderID)

		gomega.Expect(post(handler, body, sig).Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(countRows(db, &orderDatamodel.PendingOrder{})).To(gomega.BeZero())
		gomega.Expect(countRows(db, &paymentDatamodel.Payment{})).To(gomega.BeZero())
	})

	ginkgo.It("should acknowledge pending callbacks without settling", func() {
		body, sig := signedCallback(pgtypes.CodePaymentPending, orderID)

		gomega.Expect(post(handler, body, sig).Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(countRows(db, &orderDatamodel.PendingOrder{})).To(gomega.Equal(int64(1)))
	})

	ginkgo.It("should acknowledge callbacks for unknown orders", func() {
		body, sig := signedCallback(pgtypes.CodePaymentSuccess, "GYM20240301000000_00000000")

		gomega.Expect(post(handler, body, sig).Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(countRows(db, &paymentDatamodel.Payment{})).To(gomega.BeZero())
	})

	ginkgo.It("should acknowledge a signed but malformed envelope", func() {
		body := []byte(`{"response":"not base64!"}`)
		sig := checksumSign(body)

		rec := post(handler, body, sig)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(strings.TrimSpace(rec.Body.String())).To(gomega.Equal("{}"))
		gomega.Expect(countRows(db, &orderDatamodel.PendingOrder{})).To(gomega.Equal(int64(1)))
	})

	ginkgo.It("should acknowledge a verified callback with an invalid order id", func() {
		body, sig := signedCallback(pgtypes.CodePaymentSuccess, "not an order")

		rec := post(handler, body, sig)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(strings.TrimSpace(rec.Body.String())).To(gomega.Equal("{}"))
		gomega.Expect(countRows(db, &paymentDatamodel.Payment{})).To(gomega.BeZero())
	})

	ginkgo.It("should acknowledge a verified callback whose plan is gone", func() {
		orphaned := payment.NewWebhookHandler(transport.NewBaseHandler(logger.Discard()),
			stubReconciler{err: internal.ErrPlanNotFound}, testSalt)
		body, sig := signedCallback(pgtypes.CodePaymentSuccess, orderID)

		rec := post(orphaned, body, sig)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(strings.TrimSpace(rec.Body.String())).To(gomega.Equal("{}"))
	})

	ginkgo.It("should answer 500 when the settlement write fails so the provider redelivers", func() {
		broken := payment.NewWebhookHandler(transport.NewBaseHandler(logger.Discard()),
			stubReconciler{err: internal.ErrAtomicWriteFailed.Wrap(errBoom)}, testSalt)
		body, sig := signedCallback(pgtypes.CodePaymentSuccess, orderID)

		rec := post(broken, body, sig)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusInternalServerError))
		gomega.Expect(rec.Body.String()).NotTo(gomega.ContainSubstring("boom"))
	})
})

var _ = ginkgo.Describe("Handler", func() {
	const orderID = "GYM20240301095000_c0ffee00"

	var (
		service *fakeService
		router  chi.Router
	)

	pages := payment.RedirectPages{
		Success: "https://gym.example.com/pay/success",
		Failure: "https://gym.example.com/pay/failure?lang=en",
		Pending: "https://gym.example.com/pay/pending",
	}

	do := func(method, target string, body []byte) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	ginkgo.BeforeEach(func() {
		service = &fakeService{result: &settlement.Result{Status: settlement.StatusSettled}}
		h := payment.NewHandler(transport.NewBaseHandler(logger.Discard()), service, pages)

		router = chi.NewRouter()
		router.Get("/redirect", h.HandleRedirect)
		router.Get("/payments/{orderId}/status", h.GetStatus)
		router.Post("/payments/{orderId}/resolve", h.Resolve)
		router.Post("/payments/{orderId}/refund", h.Refund)
	})

	ginkgo.DescribeTable("redirect targets",
		func(status settlement.Status, err error, page string) {
			service.result = &settlement.Result{Status: status}
			service.err = err

			rec := do(http.MethodGet, "/redirect?order_id="+orderID+"&state=success", nil)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusFound))

			loc, parseErr := url.Parse(rec.Header().Get("Location"))
			gomega.Expect(parseErr).NotTo(gomega.HaveOccurred())
			gomega.Expect(loc.Scheme + "://" + loc.Host + loc.Path).To(gomega.Equal(strings.SplitN(page, "?", 2)[0]))
			gomega.Expect(loc.Query().Get("order_id")).To(gomega.Equal(orderID))
			gomega.Expect(loc.Query().Has("state")).To(gomega.BeFalse())
		},
		ginkgo.Entry("settled", settlement.StatusSettled, nil, pages.Success),
		ginkgo.Entry("already settled", settlement.StatusAlreadySettled, nil, pages.Success),
		ginkgo.Entry("failed", settlement.StatusFailed, nil, pages.Failure),
		ginkgo.Entry("unknown order", settlement.StatusNotFound, nil, pages.Failure),
		ginkgo.Entry("still pending", settlement.StatusPending, nil, pages.Pending),
		ginkgo.Entry("provider unreachable", settlement.StatusPending, internal.ErrProviderUnreachable, pages.Pending),
	)

	ginkgo.It("should keep the failure page's own query", func() {
		service.result = &settlement.Result{Status: settlement.StatusFailed}

		rec := do(http.MethodGet, "/redirect?order_id="+orderID, nil)
		loc, _ := url.Parse(rec.Header().Get("Location"))
		gomega.Expect(loc.Query().Get("lang")).To(gomega.Equal("en"))
	})

	ginkgo.It("should reject a redirect without a valid order id", func() {
		rec := do(http.MethodGet, "/redirect?order_id=%3Cscript%3E", nil)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
	})

	ginkgo.It("should return the resolve result", func() {
		rec := do(http.MethodPost, "/payments/"+orderID+"/resolve", nil)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))

		var body map[string]interface{}
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(gomega.Succeed())
		gomega.Expect(body["order_id"]).To(gomega.Equal(orderID))
		gomega.Expect(body["status"]).To(gomega.Equal(string(settlement.StatusSettled)))
	})

	ginkgo.It("should map provider errors on status to 502", func() {
		service.err = internal.ErrProviderUnreachable
		rec := do(http.MethodGet, "/payments/"+orderID+"/status", nil)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadGateway))
	})

	ginkgo.It("should refund with and without an amount", func() {
		rec := do(http.MethodPost, "/payments/"+orderID+"/refund", nil)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(service.refundAmt).To(gomega.BeNil())

		rec = do(http.MethodPost, "/payments/"+orderID+"/refund", []byte(`{"amount":"10.00"}`))
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(service.refundAmt.Equal(decimal.NewFromInt(10))).To(gomega.BeTrue())
	})

	ginkgo.It("should reject a non-positive refund amount", func() {
		rec := do(http.MethodPost, "/payments/"+orderID+"/refund", []byte(`{"amount":"-5"}`))
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
		gomega.Expect(service.refundHit).To(gomega.BeFalse())
	})
})
