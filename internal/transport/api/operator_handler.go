package api

import (
	"net/http"
	"time"

	"github.com/fsdevblog/festwallet/internal/transport/api/tokens"
	"github.com/gin-gonic/gin"
)

const operatorTokenTTL = 12 * time.Hour

type OperatorHandler struct {
	jwtSecret []byte
}

func NewOperatorHandler(jwtSecret []byte) *OperatorHandler {
	return &OperatorHandler{jwtSecret: jwtSecret}
}

type OperatorTokenParams struct {
	Name string `binding:"required,max=64" json:"name"`
}

type OperatorTokenResponse struct {
	Token string `json:"token"`
}

// Token POST RouteGroup + OperatorTokenRoute. Выдает токен оператору смены: имя из токена
// попадает во все проведенные им транзакции.
func (h *OperatorHandler) Token(c *gin.Context) {
	var params OperatorTokenParams
	if !bindJSON(c, &params) {
		return
	}

	token, err := tokens.GenerateOperatorJWT(params.Name, operatorTokenTTL, h.jwtSecret)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}
	c.Header("Authorization", "Bearer "+token)
	c.JSON(http.StatusOK, OperatorTokenResponse{Token: token})
}
