// Package testdb opens throwaway SQLite databases carrying the production schema.
package testdb

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	orderDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/order"
	paymentDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/payment"
	planDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/plan"
	subscriptionDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/subscription"
	userDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/user"
)

// Open returns an in-memory database with every table migrated. The pool is
// pinned to one connection so all callers see the same memory database.
func Open() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&userDatamodel.User{},
		&userDatamodel.Permission{},
		&userDatamodel.UserPermission{},
		&planDatamodel.MembershipPlan{},
		&orderDatamodel.PendingOrder{},
		&subscriptionDatamodel.Subscription{},
		&paymentDatamodel.Payment{},
	)
	if err != nil {
		return nil, err
	}
	return db, nil
}
