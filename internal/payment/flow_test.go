package payment_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"gorm.io/gorm"

	orderDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/order"
	paymentDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/payment"
	pgtypes "github.com/frahmantamala/gym-membership/internal/core/datamodel/paymentgateway"
	subscriptionDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/subscription"
	"github.com/frahmantamala/gym-membership/internal/core/testdb"
	"github.com/frahmantamala/gym-membership/internal/order"
	"github.com/frahmantamala/gym-membership/internal/payment"
	paymentPostgres "github.com/frahmantamala/gym-membership/internal/payment/postgres"
	"github.com/frahmantamala/gym-membership/internal/paymentgateway"
	"github.com/frahmantamala/gym-membership/internal/settlement"
	settlementPostgres "github.com/frahmantamala/gym-membership/internal/settlement/postgres"
	"github.com/frahmantamala/gym-membership/internal/transport"
	"github.com/frahmantamala/gym-membership/pkg/logger"
)

var _ = ginkgo.Describe("Redirect and webhook racing against the sandbox", func() {
	const (
		merchantID = "GYMTEST"
		orderID    = "GYM20240301095900_5a5a5a5a"
	)

	var (
		db       *gorm.DB
		sandbox  *paymentgateway.Sandbox
		provider *httptest.Server
		app      *httptest.Server
		client   *paymentgateway.Client
		browser  *http.Client
	)

	ginkgo.BeforeEach(func() {
		var err error
		db, err = testdb.Open()
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		slogger := logger.Discard()

		sandbox = paymentgateway.NewSandbox(paymentgateway.SandboxConfig{
			MerchantID: merchantID,
			SaltKey:    testSalt.Key,
			SaltIndex:  testSalt.Index,
			MaxWorkers: 2,
			QueueSize:  8,
			Delay:      func() time.Duration { return 0 },
			Decide:     func(string, int64) pgtypes.State { return pgtypes.StateCompleted },
		}, slogger)
		provider = httptest.NewServer(sandbox)

		client = paymentgateway.NewClient(paymentgateway.Config{
			MerchantID: merchantID,
			SaltKey:    testSalt.Key,
			SaltIndex:  testSalt.Index,
			BaseURL:    provider.URL,
			Timeout:    2 * time.Second,
		}, slogger)

		reconciler := settlement.NewReconciler(settlementPostgres.NewStore(db), nil, time.Now,
			settlement.Config{RecheckBase: 5 * time.Millisecond, RecheckAttempts: 5}, slogger)
		service := payment.NewService(paymentPostgres.NewPaymentRepository(db), client, reconciler, time.Now, slogger)
		base := transport.NewBaseHandler(slogger)
		webhook := payment.NewWebhookHandler(base, reconciler, testSalt)
		handler := payment.NewHandler(base, service, payment.RedirectPages{
			Success: "https://gym.example.com/success",
			Failure: "https://gym.example.com/failure",
			Pending: "https://gym.example.com/pending",
		})

		r := chi.NewRouter()
		r.Post(order.WebhookPath, webhook.HandleWebhook)
		r.Get(order.RedirectPath, handler.HandleRedirect)
		app = httptest.NewServer(r)

		browser = &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}}

		plan := seedPlan(db)
		seedPending(db, plan.ID, orderID, time.Now().UTC())
	})

	ginkgo.AfterEach(func() {
		sandbox.Shutdown()
		provider.Close()
		app.Close()
	})

	ginkgo.It("should create exactly one subscription and payment", func() {
		_, err := client.CreatePayment(context.Background(), &pgtypes.PayRequest{
			MerchantTransactionID: orderID,
			MerchantUserID:        order.MerchantUserID(7),
			Amount:                200000,
			RedirectURL:           app.URL + order.RedirectPath + "?order_id=" + orderID,
			RedirectMode:          "REDIRECT",
			CallbackURL:           app.URL + order.WebhookPath,
			PaymentInstrument:     pgtypes.PaymentInstrument{Type: "PAY_PAGE"},
		})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		var wg sync.WaitGroup
		for i := 0; i < 3; i++ {
			wg.Add(1)
			go func() {
				defer ginkgo.GinkgoRecover()
				defer wg.Done()
				gomega.Eventually(func() string {
					resp, err := browser.Get(app.URL + order.RedirectPath + "?order_id=" + orderID)
					if err != nil {
						return ""
					}
					resp.Body.Close()
					return resp.Header.Get("Location")
				}).WithTimeout(5 * time.Second).Should(gomega.HavePrefix("https://gym.example.com/success"))
			}()
		}
		wg.Wait()

		gomega.Eventually(func() string {
			tx, _ := sandbox.Transaction(orderID)
			return tx.State
		}).Should(gomega.Equal(string(pgtypes.StateCompleted)))

		gomega.Consistently(func() int64 {
			return countRows(db, &paymentDatamodel.Payment{})
		}, 300*time.Millisecond).Should(gomega.Equal(int64(1)))
		gomega.Expect(countRows(db, &subscriptionDatamodel.Subscription{})).To(gomega.Equal(int64(1)))
		gomega.Expect(countRows(db, &orderDatamodel.PendingOrder{})).To(gomega.BeZero())
	})
})
