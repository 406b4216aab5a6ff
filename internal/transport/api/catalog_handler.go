package api

import (
	"net/http"

	"github.com/fsdevblog/festwallet/internal/ledger"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CatalogHandler точки продаж и их товары.
type CatalogHandler struct {
	ledger LedgerServicer
}

func NewCatalogHandler(l LedgerServicer) *CatalogHandler {
	return &CatalogHandler{ledger: l}
}

type CreateBoothParams struct {
	Name string `binding:"required,max=255" json:"name"`
}

type SetActiveParams struct {
	IsActive *bool `binding:"required" json:"isActive"`
}

// CreateBooth POST RouteGroup + BoothsRoute.
func (h *CatalogHandler) CreateBooth(c *gin.Context) {
	var params CreateBoothParams
	if !bindJSON(c, &params) {
		return
	}
	b, err := h.ledger.AddBooth(ledger.BoothSpec{Name: params.Name})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// Booths GET RouteGroup + BoothsRoute.
func (h *CatalogHandler) Booths(c *gin.Context) {
	c.JSON(http.StatusOK, h.ledger.Booths())
}

// ShowBooth GET RouteGroup + BoothRoute. Ответ содержит итог продаж точки.
func (h *CatalogHandler) ShowBooth(c *gin.Context) {
	b, err := h.ledger.Booth(c.Param("name"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// SetBoothActive PATCH RouteGroup + BoothRoute.
func (h *CatalogHandler) SetBoothActive(c *gin.Context) {
	var params SetActiveParams
	if !bindJSON(c, &params) {
		return
	}
	b, err := h.ledger.SetBoothActive(c.Param("name"), *params.IsActive)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// DeleteBooth DELETE RouteGroup + BoothRoute.
func (h *CatalogHandler) DeleteBooth(c *gin.Context) {
	if err := h.ledger.DeleteBooth(c.Param("name"), boolQuery(c, "force")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type CreateProductParams struct {
	Name  string          `binding:"required,max=255" json:"name"`
	Price decimal.Decimal `json:"price"`
	Booth string          `binding:"required,max=255" json:"booth"`
}

// CreateProduct POST RouteGroup + ProductsRoute. Нулевая цена делает товар бесплатным.
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var params CreateProductParams
	if !bindJSON(c, &params) {
		return
	}
	p, err := h.ledger.AddProduct(ledger.ProductSpec{
		Name:  params.Name,
		Price: params.Price,
		Booth: params.Booth,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// Products GET RouteGroup + ProductsRoute. Необязательный фильтр booth.
func (h *CatalogHandler) Products(c *gin.Context) {
	c.JSON(http.StatusOK, h.ledger.Products(c.Query("booth")))
}

// SetProductActive PATCH RouteGroup + ProductRoute.
func (h *CatalogHandler) SetProductActive(c *gin.Context) {
	var params SetActiveParams
	if !bindJSON(c, &params) {
		return
	}
	p, err := h.ledger.SetProductActive(c.Param("id"), *params.IsActive)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DeleteProduct DELETE RouteGroup + ProductRoute.
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	if err := h.ledger.DeleteProduct(c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
