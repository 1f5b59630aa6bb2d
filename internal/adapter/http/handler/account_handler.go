package handler

import (
	"atm-gateway/internal/adapter/http/dto"
	"atm-gateway/internal/core/domain"
	"atm-gateway/internal/core/ports"
	"atm-gateway/pkg/apperror"
	"atm-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// AccountHandler handles account administration endpoints.
type AccountHandler struct {
	ledger ports.LedgerService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(ledger ports.LedgerService) *AccountHandler {
	return &AccountHandler{ledger: ledger}
}

// Create handles POST /api/v1/accounts.
func (h *AccountHandler) Create(c *gin.Context) {
	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.TrimStrings(&req)

	account := domain.Account{
		Name:    req.Name,
		Balance: req.Balance,
		CardNr:  req.CardNr,
		PinCode: req.PinCode,
		NextOTP: req.NextOTP,
	}
	if err := h.ledger.CreateAccount(c.Request.Context(), account); err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.AccountResponse{
		Name:    account.Name,
		CardNr:  account.CardNr,
		Balance: account.Balance,
	})
}
