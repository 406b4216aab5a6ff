package api

import (
	"net/http"

	"github.com/fsdevblog/festwallet/internal/ledger"
	"github.com/fsdevblog/festwallet/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type ParticipantsHandler struct {
	ledger LedgerServicer
}

func NewParticipantsHandler(l LedgerServicer) *ParticipantsHandler {
	return &ParticipantsHandler{ledger: l}
}

type RegisterParticipantParams struct {
	CardNumber     string          `binding:"required,max_bytes=64" json:"cardNumber"`
	Name           string          `binding:"max=255"               json:"name"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
}

// Register POST RouteGroup + ParticipantsRoute. Регистрирует участника, при ненулевом
// начальном балансе сразу проводит транзакцию начальной загрузки.
func (h *ParticipantsHandler) Register(c *gin.Context) {
	var params RegisterParticipantParams
	if !bindJSON(c, &params) {
		return
	}

	p, err := h.ledger.AddParticipant(ledger.ParticipantSpec{
		CardNumber:     params.CardNumber,
		Name:           params.Name,
		InitialBalance: params.InitialBalance,
		OperatorName:   middlewares.CurrentOperator(c),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// Index GET RouteGroup + ParticipantsRoute.
func (h *ParticipantsHandler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, h.ledger.Participants())
}

// Show GET RouteGroup + ParticipantRoute.
func (h *ParticipantsHandler) Show(c *gin.Context) {
	p, err := h.ledger.Participant(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ByCard GET RouteGroup + CardRoute. Поиск участника по номеру карты, используется на кассе
// перед продажей.
func (h *ParticipantsHandler) ByCard(c *gin.Context) {
	p, err := h.ledger.LookupByCard(c.Param("card"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type UpdateParticipantParams struct {
	Name     *string `binding:"omitempty,max=255" json:"name"`
	IsActive *bool   `json:"isActive"`
}

// Update PATCH RouteGroup + ParticipantRoute.
func (h *ParticipantsHandler) Update(c *gin.Context) {
	var params UpdateParticipantParams
	if !bindJSON(c, &params) {
		return
	}

	p, err := h.ledger.UpdateParticipant(c.Param("id"), ledger.ParticipantUpdate{
		Name:     params.Name,
		IsActive: params.IsActive,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Delete DELETE RouteGroup + ParticipantRoute. Без ?force=true участник с транзакциями не удаляется.
func (h *ParticipantsHandler) Delete(c *gin.Context) {
	if err := h.ledger.DeleteParticipant(c.Param("id"), boolQuery(c, "force")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
