package command

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/taxtracker/ledger/internal/repository"
	"github.com/taxtracker/ledger/shared/cqrs"
	"github.com/taxtracker/ledger/shared/events"
	"github.com/taxtracker/ledger/shared/models"
)

// LedgerCommandService forwards writes to the store, then retires the cached
// initial-state view and publishes a change event.
type LedgerCommandService struct {
	writeRepo *repository.LedgerWriteRepository
	readRepo  *repository.LedgerReadRepository
	publisher *events.Publisher
	now       func() time.Time
}

// NewLedgerCommandService accepts a nil publisher, which disables change events.
func NewLedgerCommandService(
	writeRepo *repository.LedgerWriteRepository,
	readRepo *repository.LedgerReadRepository,
	publisher *events.Publisher,
) *LedgerCommandService {
	return &LedgerCommandService{
		writeRepo: writeRepo,
		readRepo:  readRepo,
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *LedgerCommandService) SetBusinessInfo(ctx context.Context, cmd cqrs.SetBusinessInfoCommand) error {
	profile := &models.BusinessProfile{
		ID:              1,
		Name:            cmd.Name,
		RCNumber:        cmd.RCNumber,
		TIN:             cmd.TIN,
		FiscalYearStart: cmd.FiscalYearStart,
	}
	if err := s.writeRepo.WriteProfile(ctx, profile); err != nil {
		return err
	}
	s.afterWrite(ctx, events.BusinessInfoUpdated, events.BusinessInfoUpdatedEvent{
		Name:            cmd.Name,
		RCNumber:        cmd.RCNumber,
		TIN:             cmd.TIN,
		FiscalYearStart: cmd.FiscalYearStart,
	})
	return nil
}

func (s *LedgerCommandService) CreateTransaction(ctx context.Context, cmd cqrs.CreateTransactionCommand) (int64, error) {
	transaction := &models.Transaction{
		Type:      cmd.Type,
		Date:      cmd.Date,
		Data:      cmd.Data,
		CreatedAt: s.now().UTC(),
	}
	id, err := s.writeRepo.AddTransaction(ctx, transaction)
	if err != nil {
		return 0, err
	}
	s.afterWrite(ctx, events.TransactionCreated, events.TransactionCreatedEvent{
		TransactionID: id,
		Type:          cmd.Type,
		Date:          cmd.Date,
	})
	return id, nil
}

// ReplaceTransaction overwrites date and payload. Kind and id never change.
func (s *LedgerCommandService) ReplaceTransaction(ctx context.Context, cmd cqrs.ReplaceTransactionCommand) error {
	if err := s.writeRepo.UpdateTransaction(ctx, cmd.TransactionID, cmd.Date, cmd.Data); err != nil {
		return err
	}
	s.afterWrite(ctx, events.TransactionUpdated, events.TransactionUpdatedEvent{
		TransactionID: cmd.TransactionID,
		Date:          cmd.Date,
	})
	return nil
}

func (s *LedgerCommandService) RemoveTransaction(ctx context.Context, cmd cqrs.RemoveTransactionCommand) error {
	if err := s.writeRepo.DeleteTransaction(ctx, cmd.TransactionID); err != nil {
		return err
	}
	s.afterWrite(ctx, events.TransactionDeleted, events.TransactionDeletedEvent{
		TransactionID: cmd.TransactionID,
	})
	return nil
}

// ResetAll removes every transaction and blanks the profile atomically.
func (s *LedgerCommandService) ResetAll(ctx context.Context, _ cqrs.ResetAllCommand) error {
	fiscalYearStart := repository.FiscalYearStart(s.now())
	if err := s.writeRepo.ClearAll(ctx, fiscalYearStart); err != nil {
		return err
	}
	s.afterWrite(ctx, events.LedgerCleared, events.LedgerClearedEvent{
		FiscalYearStart: fiscalYearStart,
	})
	return nil
}

func (s *LedgerCommandService) afterWrite(ctx context.Context, eventType string, data any) {
	if err := s.readRepo.InvalidateInitialState(ctx); err != nil {
		log.Warn().Err(err).Str("event", eventType).Msg("cached view not invalidated, reads bypass the cache")
	}
	if s.publisher == nil {
		return
	}
	if _, err := s.publisher.Publish(ctx, eventType, data); err != nil {
		log.Error().Err(err).Str("event", eventType).Msg("failed to publish ledger event")
	}
}
