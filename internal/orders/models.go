package orders

import "time"

type Product struct {
	ID                int64
	ParentID          *int64 // set on variations, pointing at the base product
	SKU               string
	Name              string
	Stock             *int // nil = stock not tracked
	BackordersAllowed bool
	BackordersNotify  bool
	PriceCents        int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Order struct {
	ID           int64
	UserID       string
	BillingEmail string
	Status       Status // see status.go
	TotalCents   int
	Items        []OrderItem
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type OrderItem struct {
	ID         string
	OrderID    int64
	ProductID  int64
	Name       string
	Qty        int
	PriceCents int
}

type OrderNote struct {
	ID        int64
	OrderID   int64
	Note      string
	CreatedAt time.Time
}
