package cqrs

import "github.com/taxtracker/ledger/shared/models"

// SetBusinessInfoCommand overwrites every profile field. Nil fields are stored as NULL.
type SetBusinessInfoCommand struct {
	Name            *string
	RCNumber        *string
	TIN             *string
	FiscalYearStart *string
}

type CreateTransactionCommand struct {
	Type string
	Date *string
	Data models.Payload
}

type ReplaceTransactionCommand struct {
	TransactionID int64
	Date          *string
	Data          models.Payload
}

type RemoveTransactionCommand struct {
	TransactionID int64
}

type ResetAllCommand struct{}
