package kafka

import "time"

const (
	TopicAccountCreated = `shop.account-created`
	TopicOrderPaid      = `shop.order-paid`
)

// AccountCreatedEvent is published after a successful registration.
type AccountCreatedEvent struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// OrderPaidEvent is published per line item once a payment succeeds.
type OrderPaidEvent struct {
	OrderId   string    `json:"order_id"`
	ProductId string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}
