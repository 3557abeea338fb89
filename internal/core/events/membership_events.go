package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeSubscriptionPurchased = "subscription.purchased"
	EventTypeSubscriptionExpired   = "subscription.expired"
	EventTypePaymentFailed         = "payment.failed"
	EventTypeSettlementAlert       = "settlement.alert"
)

func newBase(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

type SubscriptionPurchasedEvent struct {
	BaseEvent
	OrderID        string `json:"order_id"`
	MemberID       int64  `json:"member_id"`
	PlanID         int64  `json:"plan_id"`
	SubscriptionID int64  `json:"subscription_id"`
	PaymentID      int64  `json:"payment_id"`
	Amount         string `json:"amount"`
	EndDate        string `json:"end_date"`
}

func NewSubscriptionPurchasedEvent(orderID string, memberID, planID, subscriptionID, paymentID int64, amount string, endDate time.Time) *SubscriptionPurchasedEvent {
	end := endDate.Format("2006-01-02")
	return &SubscriptionPurchasedEvent{
		BaseEvent: newBase(EventTypeSubscriptionPurchased, map[string]interface{}{
			"order_id":        orderID,
			"member_id":       memberID,
			"plan_id":         planID,
			"subscription_id": subscriptionID,
			"payment_id":      paymentID,
			"amount":          amount,
			"end_date":        end,
		}),
		OrderID:        orderID,
		MemberID:       memberID,
		PlanID:         planID,
		SubscriptionID: subscriptionID,
		PaymentID:      paymentID,
		Amount:         amount,
		EndDate:        end,
	}
}

type SubscriptionExpiredEvent struct {
	BaseEvent
	SubscriptionID int64  `json:"subscription_id"`
	MemberID       int64  `json:"member_id"`
	PlanID         int64  `json:"plan_id"`
	EndDate        string `json:"end_date"`
}

func NewSubscriptionExpiredEvent(subscriptionID, memberID, planID int64, endDate time.Time) *SubscriptionExpiredEvent {
	end := endDate.Format("2006-01-02")
	return &SubscriptionExpiredEvent{
		BaseEvent: newBase(EventTypeSubscriptionExpired, map[string]interface{}{
			"subscription_id": subscriptionID,
			"member_id":       memberID,
			"plan_id":         planID,
			"end_date":        end,
		}),
		SubscriptionID: subscriptionID,
		MemberID:       memberID,
		PlanID:         planID,
		EndDate:        end,
	}
}

type PaymentFailedEvent struct {
	BaseEvent
	OrderID  string `json:"order_id"`
	MemberID int64  `json:"member_id"`
	PlanID   int64  `json:"plan_id"`
	Amount   string `json:"amount"`
}

func NewPaymentFailedEvent(orderID string, memberID, planID int64, amount string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseEvent: newBase(EventTypePaymentFailed, map[string]interface{}{
			"order_id":  orderID,
			"member_id": memberID,
			"plan_id":   planID,
			"amount":    amount,
		}),
		OrderID:  orderID,
		MemberID: memberID,
		PlanID:   planID,
		Amount:   amount,
	}
}

// SettlementAlertEvent is raised when an order could not be settled after its claim
// and needs an operator.
type SettlementAlertEvent struct {
	BaseEvent
	OrderID  string `json:"order_id"`
	MemberID int64  `json:"member_id"`
	Reason   string `json:"reason"`
}

func NewSettlementAlertEvent(orderID string, memberID int64, reason string) *SettlementAlertEvent {
	return &SettlementAlertEvent{
		BaseEvent: newBase(EventTypeSettlementAlert, map[string]interface{}{
			"order_id":  orderID,
			"member_id": memberID,
			"reason":    reason,
		}),
		OrderID:  orderID,
		MemberID: memberID,
		Reason:   reason,
	}
}
