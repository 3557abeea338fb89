package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

var _ = ginkgo.Describe("Handler", func() {
	var (
		h       *Handler
		service *Service
	)

	ginkgo.BeforeEach(func() {
		tokenGen := NewJWTTokenGenerator("handler-access-secret", "handler-refresh-secret", time.Minute, time.Hour)
		service = NewService(newMockUserRepository(), tokenGen, bcrypt.MinCost)
		h = NewHandler(service)
	})

	post := func(handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
		return rec
	}

	errorCode := func(rec *httptest.ResponseRecorder) string {
		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(gomega.Succeed())
		return body.Error.Code
	}

	ginkgo.It("should log in with a normalised email", func() {
		rec := post(h.Login, `{"email":" Member@Example.com ","password":"correct_password"}`)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))

		var tokens AuthTokens
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &tokens)).To(gomega.Succeed())
		gomega.Expect(tokens.AccessToken).NotTo(gomega.BeEmpty())
	})

	ginkgo.It("should answer 401 with INVALID_CREDENTIALS on a wrong password", func() {
		rec := post(h.Login, `{"email":"member@example.com","password":"nope"}`)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
		gomega.Expect(errorCode(rec)).To(gomega.Equal("INVALID_CREDENTIALS"))
	})

	ginkgo.It("should answer 400 on a malformed body", func() {
		rec := post(h.Login, `{"email":`)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
	})

	ginkgo.It("should require a refresh token", func() {
		rec := post(h.RefreshToken, `{}`)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
		gomega.Expect(errorCode(rec)).To(gomega.Equal("VALIDATION_FAILED"))
	})

	ginkgo.Describe("AuthMiddleware", func() {
		var reached *User

		serve := func(token string) *httptest.ResponseRecorder {
			reached = nil
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached, _ = UserFromContext(r.Context())
			})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			rec := httptest.NewRecorder()
			h.AuthMiddleware(next).ServeHTTP(rec, req)
			return rec
		}

		ginkgo.It("should put the user and permissions on the context", func() {
			tokens, err := service.Authenticate(LoginDTO{Email: "cashier@example.com", Password: "correct_password"})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			rec := serve(tokens.AccessToken)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(reached).NotTo(gomega.BeNil())
			gomega.Expect(reached.Permissions).To(gomega.ConsistOf(PermissionManagePayments))
		})

		ginkgo.It("should refuse a missing token", func() {
			rec := serve("")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(errorCode(rec)).To(gomega.Equal("INVALID_TOKEN"))
			gomega.Expect(reached).To(gomega.BeNil())
		})

		ginkgo.It("should refuse a refresh token", func() {
			tokens, err := service.Authenticate(LoginDTO{Email: "member@example.com", Password: "correct_password"})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			rec := serve(tokens.RefreshToken)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(reached).To(gomega.BeNil())
		})
	})
})
