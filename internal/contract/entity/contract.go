package entity

import "time"

// Contract statuses.
const (
	StatusDraft     = "draft"
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Delivery statuses.
const (
	DeliveryPending   = "pending"
	DeliveryPartial   = "partial"
	DeliveryDelivered = "delivered"
)

// Contract is a purchase or sale agreement referencing the shared
// reference data. Contract numbers are assigned by the caller.
type Contract struct {
	ID             int64     `db:"id" json:"id"`
	ContractNumber string    `db:"contract_number" json:"contract_number"`
	CounterpartyID int64     `db:"counterparty_id" json:"counterparty_id"`
	CommodityID    int64     `db:"commodity_id" json:"commodity_id"`
	CurrencyID     int64     `db:"currency_id" json:"currency_id"`
	Quantity       float64   `db:"quantity" json:"quantity"`
	UnitPrice      float64   `db:"unit_price" json:"unit_price"`
	DeliveryStatus string    `db:"delivery_status" json:"delivery_status"`
	Status         string    `db:"status" json:"status"`
	ContractDate   time.Time `db:"contract_date" json:"contract_date"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Amendment records a single field change on a contract. The history is
// append-only; amendments are written in the same transaction as the
// update they describe.
type Amendment struct {
	ID         int64     `db:"id" json:"id"`
	ContractID int64     `db:"contract_id" json:"contract_id"`
	Field      string    `db:"field" json:"field"`
	OldValue   string    `db:"old_value" json:"old_value"`
	NewValue   string    `db:"new_value" json:"new_value"`
	CreatedBy  int64     `db:"created_by" json:"created_by"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
