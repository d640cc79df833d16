package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// OrderStatus is the order lifecycle state. The forward path is
// pending → confirmed → preparing → ready_for_pickup → picked_up →
// in_transit → delivered; cancelled is a side terminal state.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusReadyForPickup OrderStatus = "ready_for_pickup"
	OrderStatusPickedUp       OrderStatus = "picked_up"
	OrderStatusInTransit      OrderStatus = "in_transit"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

type UserType string

const (
	UserTypeClient   UserType = "client"
	UserTypeMerchant UserType = "merchant"
	UserTypeDriver   UserType = "driver"
)

// NullOrderStatus is an optional status filter value.
type NullOrderStatus struct {
	OrderStatus OrderStatus
	Valid       bool
}

type Profile struct {
	UserID         uuid.UUID
	Email          string
	HashedPassword string
	FullName       string
	Phone          pgtype.Text
	UserType       UserType
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Shop struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Name        string
	Description pgtype.Text
	Address     string
	Phone       pgtype.Text
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Category struct {
	ID   uuid.UUID
	Name string
	Slug string
}

type Product struct {
	ID            uuid.UUID
	ShopID        uuid.UUID
	CategoryID    pgtype.UUID
	Name          string
	Description   pgtype.Text
	Price         pgtype.Numeric
	OriginalPrice pgtype.Numeric
	StockQuantity int32
	ImageUrls     []string
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Cart struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	CreatedAt time.Time
}

type CartItem struct {
	ID        uuid.UUID
	CartID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int32
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Order struct {
	ID                uuid.UUID
	CustomerID        uuid.UUID
	ShopID            uuid.UUID
	DriverID          pgtype.UUID
	DeliveryAddressID uuid.UUID
	TotalAmount       pgtype.Numeric
	DeliveryFee       pgtype.Numeric
	PaymentMethod     string
	PaymentStatus     PaymentStatus
	Status            OrderStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type OrderItem struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	ProductID  uuid.UUID
	Quantity   int32
	UnitPrice  pgtype.Numeric
	TotalPrice pgtype.Numeric
}

type OrderStatusHistory struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	Status    OrderStatus
	ChangedBy uuid.UUID
	Notes     pgtype.Text
	CreatedAt time.Time
}

type UserAddress struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Label     string
	Address   string
	IsDefault bool
	CreatedAt time.Time
}

type UserPaymentMethod struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	MethodType    string
	AccountNumber string
	AccountName   pgtype.Text
	IsDefault     bool
	CreatedAt     time.Time
}

type Favorite struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	ProductID uuid.UUID
	CreatedAt time.Time
}
