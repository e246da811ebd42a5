package events

import "time"

// Event types
const (
	BusinessInfoUpdated = "business_info.updated"
	TransactionCreated  = "transaction.created"
	TransactionUpdated  = "transaction.updated"
	TransactionDeleted  = "transaction.deleted"
	LedgerCleared       = "ledger.cleared"
)

// LedgerEventsStream is the Redis stream every ledger change is appended to.
const LedgerEventsStream = "ledger.events"

type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

type BusinessInfoUpdatedEvent struct {
	Name            *string `json:"name"`
	RCNumber        *string `json:"rcNumber"`
	TIN             *string `json:"tin"`
	FiscalYearStart *string `json:"fiscalYearStart"`
}

type TransactionCreatedEvent struct {
	TransactionID int64   `json:"transactionId"`
	Type          string  `json:"type"`
	Date          *string `json:"date"`
}

type TransactionUpdatedEvent struct {
	TransactionID int64   `json:"transactionId"`
	Date          *string `json:"date"`
}

type TransactionDeletedEvent struct {
	TransactionID int64 `json:"transactionId"`
}

type LedgerClearedEvent struct {
	FiscalYearStart string `json:"fiscalYearStart"`
}
