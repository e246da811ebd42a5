package query

import (
	"context"

	"github.com/taxtracker/ledger/internal/repository"
	"github.com/taxtracker/ledger/shared/cqrs"
	"github.com/taxtracker/ledger/shared/models"
)

// LedgerQueryService assembles the initial-state view, preferring the Redis copy when present.
type LedgerQueryService struct {
	readRepo *repository.LedgerReadRepository
}

func NewLedgerQueryService(readRepo *repository.LedgerReadRepository) *LedgerQueryService {
	return &LedgerQueryService{readRepo: readRepo}
}

func (s *LedgerQueryService) GetInitialState(ctx context.Context, _ cqrs.GetInitialStateQuery) (*models.InitialState, error) {
	state, gen, ok := s.readRepo.CachedInitialState(ctx)
	if ok {
		return state, nil
	}
	profile, err := s.readRepo.ReadProfile(ctx)
	if err != nil {
		return nil, err
	}
	transactions, err := s.readRepo.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	state = BuildInitialState(profile, transactions)
	s.readRepo.CacheInitialState(ctx, gen, state)
	return state, nil
}

// BuildInitialState splits transactions by kind and flattens each into an entry.
// Rows of any other kind are skipped.
func BuildInitialState(profile *models.BusinessProfile, transactions []models.Transaction) *models.InitialState {
	state := &models.InitialState{
		BusinessInfo:   profile,
		SalesEntries:   []models.Entry{},
		ExpenseEntries: []models.Entry{},
	}
	for i := range transactions {
		t := &transactions[i]
		switch t.Type {
		case models.KindSale:
			state.SalesEntries = append(state.SalesEntries, models.NewEntry(t))
		case models.KindExpense:
			state.ExpenseEntries = append(state.ExpenseEntries, models.NewEntry(t))
		}
	}
	return state
}
