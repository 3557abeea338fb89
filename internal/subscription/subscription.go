package subscription

import (
	"time"

	"github.com/frahmantamala/gym-membership/internal"
	subscriptionDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/subscription"
)

// Term returns the [start, end] dates of a subscription bought at now. Both are
// midnight UTC; the member is active through end inclusive.
func Term(now time.Time, durationMonths int) (time.Time, time.Time) {
	start := internal.StartOfDay(now)
	return start, start.AddDate(0, durationMonths, 0)
}

// IsActiveOn reports whether s counts as a live membership on the day of now.
func IsActiveOn(s *subscriptionDatamodel.Subscription, now time.Time) bool {
	return s.Status == subscriptionDatamodel.StatusActive && !s.EndDate.Before(internal.StartOfDay(now))
}

type CurrentResponse struct {
	Active         bool   `json:"active"`
	SubscriptionID int64  `json:"subscription_id,omitempty"`
	PlanID         int64  `json:"plan_id,omitempty"`
	StartDate      string `json:"start_date,omitempty"`
	EndDate        string `json:"end_date,omitempty"`
	DaysRemaining  int    `json:"days_remaining"`
	PaymentStatus  string `json:"payment_status,omitempty"`
}

func toCurrent(s *subscriptionDatamodel.Subscription, now time.Time) *CurrentResponse {
	today := internal.StartOfDay(now)
	return &CurrentResponse{
		Active:         true,
		SubscriptionID: s.ID,
		PlanID:         s.PlanID,
		StartDate:      s.StartDate.UTC().Format(time.DateOnly),
		EndDate:        s.EndDate.UTC().Format(time.DateOnly),
		DaysRemaining:  int(internal.StartOfDay(s.EndDate).Sub(today).Hours() / 24),
		PaymentStatus:  s.PaymentStatus,
	}
}

type SweepResponse struct {
	Expired int `json:"expired"`
}
