package cmd

import (
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	planDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/plan"
	userDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/user"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed permissions, an admin, a member and the standard membership plans for development.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlxDB, db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer sqlxDB.Close()

		if clearData {
			for _, table := range []string{"payments", "subscriptions", "pending_orders"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared payments, subscriptions and pending orders")
		}

		if err := seed(db); err != nil {
			log.Fatal(err)
		}
		fmt.Println("Seeding finished")
	},
}

type seedUser struct {
	Email       string
	Name        string
	Phone       string
	Permissions []string
}

func seed(db *gorm.DB) error {
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	permissions := []userDatamodel.Permission{
		{Name: "admin", Description: "full administrator"},
		{Name: "manage_payments", Description: "Can inspect, resolve and refund gateway payments"},
		{Name: "member", Description: "Gym member"},
	}
	permIDs := map[string]int64{}
	for _, p := range permissions {
		if err := db.Where("name = ?", p.Name).FirstOrCreate(&p).Error; err != nil {
			return fmt.Errorf("seed permission %s: %w", p.Name, err)
		}
		permIDs[p.Name] = p.ID
	}

	users := []seedUser{
		{Email: "admin@gym.local", Name: "Front Desk Admin", Permissions: []string{"admin", "manage_payments"}},
		{Email: "member@gym.local", Name: "Sample Member", Phone: "9999999999", Permissions: []string{"member"}},
	}
	for _, su := range users {
		u := userDatamodel.User{Email: su.Email}
		attrs := userDatamodel.User{Name: su.Name, Phone: su.Phone, PasswordHash: string(hash), IsActive: true}
		if err := db.Where("email = ?", su.Email).Attrs(attrs).FirstOrCreate(&u).Error; err != nil {
			return fmt.Errorf("seed user %s: %w", su.Email, err)
		}

		for _, name := range su.Permissions {
			grant := userDatamodel.UserPermission{UserID: u.ID, PermissionID: permIDs[name]}
			if err := db.Where("user_id = ? AND permission_id = ?", grant.UserID, grant.PermissionID).FirstOrCreate(&grant).Error; err != nil {
				return fmt.Errorf("grant %s to %s: %w", name, su.Email, err)
			}
		}
		fmt.Printf("Seeded user %s with %v\n", su.Email, su.Permissions)
	}

	plans := []planDatamodel.MembershipPlan{
		{Name: "Monthly", Description: "One month of gym access", Price: decimal.NewFromInt(1500), AdmissionFee: decimal.NewFromInt(500), DurationMonths: 1, IsActive: true},
		{Name: "Quarterly", Description: "Three months of gym access", Price: decimal.NewFromInt(4000), AdmissionFee: decimal.NewFromInt(500), DurationMonths: 3, IsActive: true},
		{Name: "Annual", Description: "Twelve months of gym access", Price: decimal.NewFromInt(14000), AdmissionFee: decimal.Zero, DurationMonths: 12, IsActive: true},
	}
	for _, p := range plans {
		if err := db.Where("name = ?", p.Name).FirstOrCreate(&p).Error; err != nil {
			return fmt.Errorf("seed plan %s: %w", p.Name, err)
		}
		fmt.Printf("Seeded plan %s (%s + %s admission)\n", p.Name, p.Price.StringFixed(2), p.AdmissionFee.StringFixed(2))
	}
	return nil
}
