package auth_test

import (
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	authPostgres "github.com/frahmantamala/gym-membership/internal/auth/postgres"
	userDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/user"
	"github.com/frahmantamala/gym-membership/internal/core/testdb"
)

func TestAuthPostgres(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Auth Repository Suite")
}

var _ = ginkgo.Describe("Repository", func() {
	var (
		repo   *authPostgres.Repository
		active userDatamodel.User
	)

	ginkgo.BeforeEach(func() {
		db, err := testdb.Open()
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		repo = authPostgres.NewRepository(db)

		active = userDatamodel.User{Email: "desk@gym.local", Name: "Desk", PasswordHash: "hash", IsActive: true}
		gomega.Expect(db.Create(&active).Error).To(gomega.Succeed())
		inactive := userDatamodel.User{Email: "gone@gym.local", Name: "Gone", PasswordHash: "hash", IsActive: true}
		gomega.Expect(db.Create(&inactive).Error).To(gomega.Succeed())
		gomega.Expect(db.Model(&inactive).Update("is_active", false).Error).To(gomega.Succeed())

		for _, name := range []string{"manage_payments", "admin"} {
			p := userDatamodel.Permission{Name: name}
			gomega.Expect(db.Create(&p).Error).To(gomega.Succeed())
			gomega.Expect(db.Create(&userDatamodel.UserPermission{UserID: active.ID, PermissionID: p.ID}).Error).To(gomega.Succeed())
		}
	})

	ginkgo.It("should return the hash and id of an active user", func() {
		hash, id, err := repo.GetPasswordForUsername("desk@gym.local")
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(hash).To(gomega.Equal("hash"))
		gomega.Expect(id).NotTo(gomega.BeEmpty())
	})

	ginkgo.It("should not authenticate inactive users", func() {
		_, _, err := repo.GetPasswordForUsername("gone@gym.local")
		gomega.Expect(err).To(gomega.HaveOccurred())
	})

	ginkgo.It("should load permissions sorted by name", func() {
		u, err := repo.GetUserWithPermissions(active.ID)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(u.Email).To(gomega.Equal("desk@gym.local"))
		gomega.Expect(u.Permissions).To(gomega.Equal([]string{"admin", "manage_payments"}))
	})
})
