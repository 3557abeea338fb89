package order

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const orderIDPrefix = "GYM"

// NewOrderID builds GYM<yyyymmddHHMMSS>_<8 hex>. The random suffix keeps
// concurrent checkouts in the same second apart.
func NewOrderID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return orderIDPrefix + now.UTC().Format("20060102150405") + "_" + suffix
}

type Checkout struct {
	OrderID         string          `json:"order_id"`
	RedirectURL     string          `json:"redirect_url"`
	Amount          decimal.Decimal `json:"amount"`
	AdmissionWaived bool            `json:"admission_waived"`
}
