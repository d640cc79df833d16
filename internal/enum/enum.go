package enum

// ── Order lifecycle (CHECK constrained in DB) ──

const (
	OrderStatusPending        = "pending"
	OrderStatusConfirmed      = "confirmed"
	OrderStatusPreparing      = "preparing"
	OrderStatusReadyForPickup = "ready_for_pickup"
	OrderStatusPickedUp       = "picked_up"
	OrderStatusInTransit      = "in_transit"
	OrderStatusDelivered      = "delivered"
	OrderStatusCancelled      = "cancelled"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

// ── Roles (CHECK constrained in DB) ──

const (
	UserTypeClient   = "client"
	UserTypeMerchant = "merchant"
	UserTypeDriver   = "driver"
)

// ── Payment channels (CHECK constrained in DB) ──

const (
	PaymentMethodTMoney = "tmoney"
	PaymentMethodFlooz  = "flooz"
	PaymentMethodCash   = "cash"
)
