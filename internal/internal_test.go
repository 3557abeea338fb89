package internal_test

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/gym-membership/internal"
)

func TestInternal(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Internal Suite")
}

func setenv(key, value string) {
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(os.Unsetenv, key)
}

var _ = Describe("LoadConfigFromEnv", func() {
	It("falls back to defaults for unset variables", func() {
		cfg, err := internal.LoadConfigFromEnv()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Server.Port).To(Equal(8080))
		Expect(cfg.Gateway.SaltIndex).To(Equal("1"))
		Expect(cfg.Scheduler.StaleAfter).To(Equal(24 * time.Hour))
		Expect(cfg.Redis.NotificationChannel).To(Equal("gym:notifications"))
	})

	It("decodes typed values from the environment", func() {
		setenv("HTTP_PORT", "9090")
		setenv("GATEWAY_ENABLED", "true")
		setenv("GATEWAY_TIMEOUT", "3s")
		setenv("DATABASE_URL", "postgres://gym@localhost/gym")

		cfg, err := internal.LoadConfigFromEnv()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Server.Port).To(Equal(9090))
		Expect(cfg.Gateway.Enabled).To(BeTrue())
		Expect(cfg.Gateway.Timeout).To(Equal(3 * time.Second))
		Expect(cfg.Database.GetDSN()).To(Equal("postgres://gym@localhost/gym"))
	})

	It("lists every missing gateway credential when the gateway is enabled", func() {
		gw := internal.GatewayConfig{Enabled: true, Environment: internal.GatewayEnvSandbox, SaltIndex: "1"}
		Expect(gw.Validate()).To(MatchError(ContainSubstring("merchant_id, salt_key, base_url, callback_base_url")))

		gw.Enabled = false
		Expect(gw.Validate()).To(Succeed())
	})
})

var _ = Describe("AppError", func() {
	It("keeps sentinels untouched when wrapping", func() {
		cause := errors.New("dial tcp: timeout")
		err := internal.ErrProviderUnreachable.Wrap(cause)

		Expect(errors.Is(err, internal.ErrProviderUnreachable)).To(BeTrue())
		Expect(errors.Is(err, cause)).To(BeTrue())
		Expect(internal.ErrProviderUnreachable.Cause).To(BeNil())
		Expect(err.StatusCode).To(Equal(http.StatusBadGateway))
	})

	It("is found through fmt wrapping", func() {
		err := fmt.Errorf("checkout: %w", internal.ErrPlanNotFound)
		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Code).To(Equal(internal.ErrCodePlanNotFound))
	})

	It("reports the first field message for validation failures", func() {
		err := internal.NewValidationFieldError("plan_id", "plan_id is required", internal.ErrCodeInvalidPlan)
		Expect(err.Error()).To(Equal("plan_id is required"))

		status, body := err.ToHTTPResponse()
		Expect(status).To(Equal(http.StatusBadRequest))
		Expect(body).To(BeAssignableToTypeOf(internal.Response{}))
	})

	It("never serialises the cause", func() {
		err := internal.NewInternalError("internal server error", errors.New("pq: password authentication failed"))
		Expect(err.MarshalJSON()).NotTo(ContainSubstring("password"))
	})
})

var _ = Describe("StartOfDay", func() {
	It("truncates to midnight UTC", func() {
		loc := time.FixedZone("WIB", 7*3600)
		got := internal.StartOfDay(time.Date(2024, 3, 2, 3, 30, 0, 0, loc))
		Expect(got).To(Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	})
})
