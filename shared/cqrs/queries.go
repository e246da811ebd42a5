package cqrs

// GetInitialStateQuery fetches the profile and all transactions, split by kind.
// It carries no parameters: the ledger is single-user.
type GetInitialStateQuery struct{}
