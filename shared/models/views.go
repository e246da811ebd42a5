package models

// Entry is the flattened read projection of a transaction: payload fields plus id and date.
type Entry map[string]any

// InitialState is everything the front end needs on first load.
type InitialState struct {
	BusinessInfo   *BusinessProfile `json:"businessInfo"`
	SalesEntries   []Entry          `json:"salesEntries"`
	ExpenseEntries []Entry          `json:"expenseEntries"`
}

// NewEntry merges the payload with the transaction's own id and date.
// Payload keys named "id" or "date" are overwritten.
func NewEntry(t *Transaction) Entry {
	entry := make(Entry, len(t.Data)+2)
	for k, v := range t.Data {
		entry[k] = v
	}
	entry["id"] = t.ID
	entry["date"] = t.Date
	return entry
}
