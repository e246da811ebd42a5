package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/taxtracker/ledger/shared/cqrs"
	"github.com/taxtracker/ledger/shared/middleware"
	"github.com/taxtracker/ledger/shared/models"
)

// LedgerCommander defines the write-side operations used by LedgerHandler.
type LedgerCommander interface {
	SetBusinessInfo(context.Context, cqrs.SetBusinessInfoCommand) error
	CreateTransaction(context.Context, cqrs.CreateTransactionCommand) (int64, error)
	ReplaceTransaction(context.Context, cqrs.ReplaceTransactionCommand) error
	RemoveTransaction(context.Context, cqrs.RemoveTransactionCommand) error
	ResetAll(context.Context, cqrs.ResetAllCommand) error
}

// LedgerQuerier defines the read-side operations used by LedgerHandler.
type LedgerQuerier interface {
	GetInitialState(context.Context, cqrs.GetInitialStateQuery) (*models.InitialState, error)
}

type LedgerHandler struct {
	commands LedgerCommander
	queries  LedgerQuerier
}

type BusinessInfoRequest struct {
	Name            *string `json:"name"`
	RCNumber        *string `json:"rcNumber"`
	TIN             *string `json:"tin"`
	FiscalYearStart *string `json:"fiscalYearStart"`
}

type CreateTransactionRequest struct {
	Type string         `json:"type"`
	Date *string        `json:"date"`
	Data models.Payload `json:"data"`
}

type ReplaceTransactionRequest struct {
	Date *string        `json:"date"`
	Data models.Payload `json:"data"`
}

func NewLedgerHandler(commands LedgerCommander, queries LedgerQuerier) *LedgerHandler {
	return &LedgerHandler{commands: commands, queries: queries}
}

func (h *LedgerHandler) GetInitialState(c *gin.Context) {
	state, err := h.queries.GetInitialState(c.Request.Context(), cqrs.GetInitialStateQuery{})
	if err != nil {
		respondWithFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *LedgerHandler) SetBusinessInfo(c *gin.Context) {
	var req BusinessInfoRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithFailure(c, err)
		return
	}

	err := h.commands.SetBusinessInfo(c.Request.Context(), cqrs.SetBusinessInfoCommand{
		Name:            req.Name,
		RCNumber:        req.RCNumber,
		TIN:             req.TIN,
		FiscalYearStart: req.FiscalYearStart,
	})
	if err != nil {
		respondWithFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *LedgerHandler) CreateTransaction(c *gin.Context) {
	var req CreateTransactionRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithFailure(c, err)
		return
	}

	id, err := h.commands.CreateTransaction(c.Request.Context(), cqrs.CreateTransactionCommand{
		Type: req.Type,
		Date: req.Date,
		Data: req.Data,
	})
	if err != nil {
		respondWithFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "success": true})
}

func (h *LedgerHandler) ReplaceTransaction(c *gin.Context) {
	id, err := transactionID(c)
	if err != nil {
		respondWithFailure(c, err)
		return
	}
	var req ReplaceTransactionRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithFailure(c, err)
		return
	}

	err = h.commands.ReplaceTransaction(c.Request.Context(), cqrs.ReplaceTransactionCommand{
		TransactionID: id,
		Date:          req.Date,
		Data:          req.Data,
	})
	if err != nil {
		respondWithFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *LedgerHandler) RemoveTransaction(c *gin.Context) {
	id, err := transactionID(c)
	if err != nil {
		respondWithFailure(c, err)
		return
	}
	if err := h.commands.RemoveTransaction(c.Request.Context(), cqrs.RemoveTransactionCommand{TransactionID: id}); err != nil {
		respondWithFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *LedgerHandler) ResetAll(c *gin.Context) {
	if err := h.commands.ResetAll(c.Request.Context(), cqrs.ResetAllCommand{}); err != nil {
		respondWithFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// bindJSON treats an empty body as an empty object.
func bindJSON(c *gin.Context, obj any) error {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return nil
	}
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func transactionID(c *gin.Context) (int64, error) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid transaction id %q", raw)
	}
	return id, nil
}

// Every failure is reported as a 500 carrying the underlying message.
func respondWithFailure(c *gin.Context, err error) {
	_ = c.Error(err)
	middleware.RespondWithError(c, http.StatusInternalServerError, err.Error())
}
