// Package settlement turns a verified payment outcome into exactly one
// subscription and one payment per order.
package settlement

import (
	"strings"
	"time"

	"github.com/google/uuid"

	paymentDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/payment"
	subscriptionDatamodel "github.com/frahmantamala/gym-membership/internal/core/datamodel/subscription"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

type Status string

const (
	StatusSettled        Status = "settled"
	StatusAlreadySettled Status = "already_settled"
	StatusFailed         Status = "failed"
	StatusNotFound       Status = "not_found"
	StatusPending        Status = "pending"
)

type Result struct {
	OrderID      string                              `json:"order_id"`
	Status       Status                              `json:"status"`
	Subscription *subscriptionDatamodel.Subscription `json:"-"`
	Payment      *paymentDatamodel.Payment           `json:"-"`
}

// Terminal reports whether the order needs no further reconcile calls.
func (r *Result) Terminal() bool {
	return r.Status != StatusPending
}

// NewInvoiceNumber returns INV-yyyymmdd-XXXXXXXX.
func NewInvoiceNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "INV-" + now.UTC().Format("20060102") + "-" + suffix
}
