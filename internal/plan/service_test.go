package plan_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/frahmantamala/gym-membership/internal"
	"github.com/frahmantamala/gym-membership/internal/auth"
	planDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/plan"
	"github.com/frahmantamala/gym-membership/internal/core/testdb"
	"github.com/frahmantamala/gym-membership/internal/plan"
	planPostgres "github.com/frahmantamala/gym-membership/internal/plan/postgres"
	"github.com/frahmantamala/gym-membership/internal/transport"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type stubMembership struct {
	active map[int64]bool
	err    error
}

func (s *stubMembership) HasActiveSubscription(_ context.Context, memberID int64, _ time.Time) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.active[memberID], nil
}

var _ = Describe("Plan Service", func() {
	var (
		db         *gorm.DB
		repo       plan.RepositoryAPI
		membership *stubMembership
		service    *plan.Service
		ctx        context.Context
		monthly    *planDatamodel.MembershipPlan
		retired    *planDatamodel.MembershipPlan
		now        time.Time
	)

	BeforeEach(func() {
		var err error
		db, err = testdb.Open()
		Expect(err).NotTo(HaveOccurred())

		ctx = context.Background()
		now = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
		repo = planPostgres.NewPlanRepository(db)
		membership = &stubMembership{active: map[int64]bool{7: true}}
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = plan.NewService(repo, membership, slogger)

		monthly = &planDatamodel.MembershipPlan{
			Name:           "Monthly",
			Price:          decimal.RequireFromString("1500.00"),
			AdmissionFee:   decimal.RequireFromString("500.00"),
			DurationMonths: 1,
			IsActive:       true,
		}
		Expect(repo.Create(ctx, monthly)).To(Succeed())

		retired = &planDatamodel.MembershipPlan{
			Name:           "Legacy",
			Price:          decimal.RequireFromString("900.00"),
			AdmissionFee:   decimal.RequireFromString("100.00"),
			DurationMonths: 12,
			IsActive:       true,
		}
		Expect(repo.Create(ctx, retired)).To(Succeed())
		Expect(db.Model(retired).Update("is_active", false).Error).To(Succeed())
	})

	Describe("Lookup", func() {
		It("should return an active plan", func() {
			p, err := service.Lookup(ctx, monthly.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Name).To(Equal("Monthly"))
			Expect(p.DurationMonths).To(Equal(1))
			Expect(p.Price.Equal(decimal.NewFromInt(1500))).To(BeTrue())
		})

		It("should treat inactive plans as missing", func() {
			_, err := service.Lookup(ctx, retired.ID)
			Expect(errors.Is(err, internal.ErrPlanNotFound)).To(BeTrue())
		})

		It("should report unknown plans", func() {
			_, err := service.Lookup(ctx, 9999)
			Expect(errors.Is(err, internal.ErrPlanNotFound)).To(BeTrue())
		})
	})

	Describe("PayableAmount", func() {
		It("should add the admission fee unless waived", func() {
			p := plan.FromDataModel(monthly)
			Expect(p.PayableAmount(false).Equal(decimal.NewFromInt(2000))).To(BeTrue())
			Expect(p.PayableAmount(true).Equal(decimal.NewFromInt(1500))).To(BeTrue())
		})
	})

	Describe("ListWithPayable", func() {
		It("should charge admission to members without an active subscription", func() {
			plans, err := service.ListWithPayable(ctx, 3, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(plans).To(HaveLen(1))
			Expect(plans[0].Payable).To(Equal("2000.00"))
			Expect(plans[0].AdmissionWaived).To(BeFalse())
		})

		It("should waive admission for active members", func() {
			plans, err := service.ListWithPayable(ctx, 7, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(plans[0].Payable).To(Equal("1500.00"))
			Expect(plans[0].AdmissionWaived).To(BeTrue())
		})

		It("should surface membership lookup failures", func() {
			membership.err = errors.New("db down")
			_, err := service.ListWithPayable(ctx, 7, now)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("GET /plans", func() {
		var handler *plan.Handler

		BeforeEach(func() {
			slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
			handler = plan.NewHandler(&transport.BaseHandler{Logger: slogger}, service, func() time.Time { return now })
		})

		It("should list plans for the caller", func() {
			req := httptest.NewRequest(http.MethodGet, "/plans", nil)
			req = req.WithContext(auth.ContextWithUser(req.Context(), &auth.User{ID: 7}))
			w := httptest.NewRecorder()

			handler.GetPlans(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			var response plan.PlansResponse
			Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
			Expect(response.Plans).To(HaveLen(1))
			Expect(response.Plans[0].Name).To(Equal("Monthly"))
			Expect(response.Plans[0].Payable).To(Equal("1500.00"))
		})

		It("should reject anonymous callers", func() {
			req := httptest.NewRequest(http.MethodGet, "/plans", nil)
			w := httptest.NewRecorder()

			handler.GetPlans(w, req)

			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})
	})
})
