package billing

// Payment-provider webhook event types handled by the reconciler.
// Unrecognized types are accepted, logged, and dropped.
const (
	EventOrderPaid             = "order.paid"
	EventOrderRefunded         = "order.refunded"
	EventSubscriptionCreated   = "subscription.created"
	EventSubscriptionRenewed   = "subscription.renewed"
	EventSubscriptionCancelled = "subscription.cancelled"
)

// Event is the provider's webhook payload.
type Event struct {
	Event     string    `json:"event"`
	Data      EventData `json:"data"`
	Timestamp string    `json:"timestamp"`
}

type EventData struct {
	OrderID      string        `json:"order_id"`
	Customer     Customer      `json:"customer"`
	Product      Product       `json:"product"`
	Payment      Payment       `json:"payment"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

type Customer struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type Product struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Payment struct {
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Method   string `json:"method"`
}

type Subscription struct {
	ID              string `json:"id"`
	Status          string `json:"status"`
	Plan            string `json:"plan"`
	NextBillingDate string `json:"next_billing_date"`
}

// CorrelationID returns the identifier the event's idempotency key is built
// from: the subscription id for subscription lifecycle events, otherwise the
// order id.
func (e *Event) CorrelationID() string {
	if e.Data.Subscription != nil && e.Data.Subscription.ID != "" {
		switch e.Event {
		case EventSubscriptionCreated, EventSubscriptionRenewed, EventSubscriptionCancelled:
			return e.Data.Subscription.ID
		}
	}
	return e.Data.OrderID
}

// PlanCode returns the provider's plan identifier for the event: the
// subscription plan when present, otherwise the purchased product id.
func (e *Event) PlanCode() string {
	if e.Data.Subscription != nil && e.Data.Subscription.Plan != "" {
		return e.Data.Subscription.Plan
	}
	return e.Data.Product.ID
}
