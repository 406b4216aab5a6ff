package api

import (
	"context"
	"net/http"

	"github.com/fsdevblog/festwallet/internal/domain"
	"github.com/fsdevblog/festwallet/internal/ledger"
	"github.com/fsdevblog/festwallet/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type TransactionsHandler struct {
	ledger LedgerServicer
}

func NewTransactionsHandler(l LedgerServicer) *TransactionsHandler {
	return &TransactionsHandler{ledger: l}
}

// ApplyTransactionParams участник задается либо id, либо номером карты.
type ApplyTransactionParams struct {
	ParticipantID string                 `binding:"required_without=CardNumber"               json:"participantId"`
	CardNumber    string                 `binding:"required_without=ParticipantID,max_bytes=64" json:"cardNumber"`
	Type          domain.TransactionType `binding:"required,oneof=credit debit"               json:"type"`
	Amount        decimal.Decimal        `json:"amount"`
	Booth         string                 `binding:"max=255"                                   json:"booth"`
	Description   string                 `binding:"max=255"                                   json:"description"`
}

// Apply POST RouteGroup + TransactionsRoute. Кредит это пополнение, дебет это списание.
func (h *TransactionsHandler) Apply(c *gin.Context) {
	var params ApplyTransactionParams
	if !bindJSON(c, &params) {
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	spec := ledger.TransactionSpec{
		ParticipantID: params.ParticipantID,
		Type:          params.Type,
		Amount:        params.Amount,
		Booth:         params.Booth,
		Description:   params.Description,
		OperatorName:  middlewares.CurrentOperator(c),
	}
	var (
		t   *domain.Transaction
		err error
	)
	if params.ParticipantID != "" {
		t, err = h.ledger.ApplyTransaction(ctx, spec)
	} else {
		t, err = h.ledger.ApplyByCard(ctx, params.CardNumber, spec)
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// Index GET RouteGroup + TransactionsRoute. Фильтры participantId, booth и type необязательны.
func (h *TransactionsHandler) Index(c *gin.Context) {
	filter := ledger.TransactionFilter{
		ParticipantID: c.Query("participantId"),
		Booth:         c.Query("booth"),
		Type:          domain.TransactionType(c.Query("type")),
	}
	if filter.Type != "" && !filter.Type.Valid() {
		abortWithError(c, domain.ErrInvalidTransactionType)
		return
	}
	c.JSON(http.StatusOK, h.ledger.Transactions(filter))
}

// Show GET RouteGroup + TransactionRoute.
func (h *TransactionsHandler) Show(c *gin.Context) {
	t, err := h.ledger.Transaction(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

type PurchaseItemParams struct {
	ProductID string `binding:"required"     json:"productId"`
	Quantity  int    `binding:"required,min=1" json:"quantity"`
}

type PurchaseParams struct {
	CardNumber string               `binding:"required,max_bytes=64"  json:"cardNumber"`
	Items      []PurchaseItemParams `binding:"required,min=1,dive"    json:"items"`
}

// Purchase POST RouteGroup + PurchasesRoute. Продажа товаров одной точки по карте участника.
func (h *TransactionsHandler) Purchase(c *gin.Context) {
	var params PurchaseParams
	if !bindJSON(c, &params) {
		return
	}

	items := make([]ledger.PurchaseItem, 0, len(params.Items))
	for _, item := range params.Items {
		items = append(items, ledger.PurchaseItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	t, err := h.ledger.Purchase(ctx, ledger.PurchaseSpec{
		CardNumber:   params.CardNumber,
		Items:        items,
		OperatorName: middlewares.CurrentOperator(c),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}
