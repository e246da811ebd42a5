package models

import "time"

// Transaction kinds. The store rejects anything else.
const (
	KindSale    = "sale"
	KindExpense = "expense"
)

// BusinessProfile is the singleton row describing the business that owns the books.
// Fields are nullable: a write that omits a field stores NULL.
type BusinessProfile struct {
	ID              int64   `json:"id"`
	Name            *string `json:"name"`
	RCNumber        *string `json:"rcNumber"`
	TIN             *string `json:"tin"`
	FiscalYearStart *string `json:"fiscalYearStart"`
}

// Payload is the caller-owned document attached to a transaction. The store never inspects it.
type Payload map[string]any

type Transaction struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Date      *string   `json:"date"`
	Data      Payload   `json:"data"`
	CreatedAt time.Time `json:"createdTimestamp"`
}
