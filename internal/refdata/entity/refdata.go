package entity

import "time"

// Counterparty is a trading partner in the contract registry.
type Counterparty struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	TaxID     string    `db:"tax_id" json:"tax_id"`
	Address   string    `db:"address" json:"address"`
	City      string    `db:"city" json:"city"`
	Country   string    `db:"country" json:"country"`
	Phone     string    `db:"phone" json:"phone"`
	Email     string    `db:"email" json:"email"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Commodity is a tradeable physical good, optionally classified by group
// and type.
type Commodity struct {
	ID          int64     `db:"id" json:"id"`
	NameShort   string    `db:"name_short" json:"name_short"`
	NameFull    string    `db:"name_full" json:"name_full"`
	GroupID     *int64    `db:"group_id" json:"group_id"`
	TypeID      *int64    `db:"type_id" json:"type_id"`
	Code        string    `db:"code" json:"code"`
	DefaultUnit string    `db:"default_unit" json:"default_unit"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CommodityGroup and CommodityType are sort-ordered classification lookups
// for commodities.
type CommodityGroup struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	SortOrder   int       `db:"sort_order" json:"sort_order"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

type CommodityType struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	SortOrder   int       `db:"sort_order" json:"sort_order"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Trader is an internal employee who books contracts.
type Trader struct {
	ID         int64      `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	Email      string     `db:"email" json:"email"`
	Phone      string     `db:"phone" json:"phone"`
	EmployeeID string     `db:"employee_id" json:"employee_id"`
	Department string     `db:"department" json:"department"`
	HireDate   *time.Time `db:"hire_date" json:"hire_date"`
	IsActive   bool       `db:"is_active" json:"is_active"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// Sociedad is a legal entity of the company group that contracts are
// booked under.
type Sociedad struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	TaxID     string    `db:"tax_id" json:"tax_id"`
	Address   string    `db:"address" json:"address"`
	City      string    `db:"city" json:"city"`
	Country   string    `db:"country" json:"country"`
	Phone     string    `db:"phone" json:"phone"`
	Email     string    `db:"email" json:"email"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CostCenter is an internal accounting bucket.
type CostCenter struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Currency is an ISO currency usable on contracts.
type Currency struct {
	ID       int64  `db:"id" json:"id"`
	Code     string `db:"code" json:"code"`
	Name     string `db:"name" json:"name"`
	Symbol   string `db:"symbol" json:"symbol"`
	IsActive bool   `db:"is_active" json:"is_active"`
}

// ExchangeRate is one day's conversion rate from a currency to the base
// currency. Rates are append-only per (currency, date).
type ExchangeRate struct {
	ID         int64     `db:"id" json:"id"`
	CurrencyID int64     `db:"currency_id" json:"currency_id"`
	Rate       float64   `db:"rate" json:"rate"`
	RateDate   time.Time `db:"rate_date" json:"rate_date"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
