package api

import (
	"context"
	"net/http"
	"time"

	"github.com/fsdevblog/festwallet/internal/session"
	"github.com/gin-gonic/gin"
)

// syncTimeout запас сверх таймаута рукопожатия на подключение к серверу.
const syncTimeout = 15 * time.Second

type SyncHandler struct {
	sync SyncServicer
}

func NewSyncHandler(s SyncServicer) *SyncHandler {
	return &SyncHandler{sync: s}
}

type SyncStatusResponse struct {
	State     session.State `json:"state"`
	Role      session.Role  `json:"role"`
	PeerCount int           `json:"peerCount"`
	Address   string        `json:"address,omitempty"`
	Error     string        `json:"error,omitempty"`
}

func newSyncStatusResponse(st session.Status) SyncStatusResponse {
	return SyncStatusResponse{
		State:     st.State,
		Role:      st.Role,
		PeerCount: st.PeerCount,
		Address:   st.Address,
		Error:     st.ErrString(),
	}
}

type SyncAddressParams struct {
	Address string `binding:"required,max=255" json:"address"`
}

// Status GET RouteGroup + SyncStatusRoute.
func (h *SyncHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, newSyncStatusResponse(h.sync.Status()))
}

// Serve POST RouteGroup + SyncServerRoute. Запускает сервер синхронизации на address.
func (h *SyncHandler) Serve(c *gin.Context) {
	var params SyncAddressParams
	if !bindJSON(c, &params) {
		return
	}

	ctx, cancel := context.WithTimeout(c, syncTimeout)
	defer cancel()

	if err := h.sync.StartServer(ctx, params.Address); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSyncStatusResponse(h.sync.Status()))
}

// Connect POST RouteGroup + SyncConnectRoute. Отвечает после обмена снимками с сервером.
func (h *SyncHandler) Connect(c *gin.Context) {
	var params SyncAddressParams
	if !bindJSON(c, &params) {
		return
	}

	ctx, cancel := context.WithTimeout(c, syncTimeout)
	defer cancel()

	if err := h.sync.Connect(ctx, params.Address); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSyncStatusResponse(h.sync.Status()))
}

// Disconnect POST RouteGroup + SyncDisconnectRoute.
func (h *SyncHandler) Disconnect(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c, syncTimeout)
	defer cancel()

	if err := h.sync.Disconnect(ctx); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSyncStatusResponse(h.sync.Status()))
}
