package api

import (
	"errors"
	"net/http"

	"github.com/fsdevblog/festwallet/internal/domain"
	"github.com/fsdevblog/festwallet/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// statusFor сопоставляет ошибку ledger или сессии http статусу. Второе значение сообщает,
// можно ли показать текст ошибки клиенту.
func statusFor(err error) (int, bool) {
	switch {
	case errors.Is(err, domain.ErrDuplicateCard),
		errors.Is(err, domain.ErrDuplicateBooth),
		errors.Is(err, domain.ErrReferencedEntity),
		errors.Is(err, domain.ErrInactive),
		errors.Is(err, session.ErrBusy):
		return http.StatusConflict, true
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusPaymentRequired, true
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidCard),
		errors.Is(err, domain.ErrInvalidBooth),
		errors.Is(err, domain.ErrInvalidTransactionType),
		errors.Is(err, domain.ErrInvalidPurchase):
		return http.StatusUnprocessableEntity, true
	case errors.Is(err, domain.ErrBindFailed),
		errors.Is(err, domain.ErrPeerUnreachable):
		return http.StatusBadGateway, true
	case errors.Is(err, domain.ErrHandshakeTimeout):
		return http.StatusGatewayTimeout, true
	default:
		return http.StatusInternalServerError, false
	}
}

func abortWithError(c *gin.Context, err error) {
	status, public := statusFor(err)
	errType := gin.ErrorTypePrivate
	if public {
		errType = gin.ErrorTypePublic
	}
	_ = c.AbortWithError(status, err).SetType(errType)
}

// bindJSON разбирает тело запроса в params. Ошибки валидации отдаются с 422, остальные с 400.
func bindJSON(c *gin.Context, params any) bool {
	if bindErr := c.ShouldBindJSON(params); bindErr != nil {
		var valErrs validator.ValidationErrors
		if errors.As(bindErr, &valErrs) {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": valErrs.Error()})
			return false
		}
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).
			SetType(gin.ErrorTypeBind)
		return false
	}
	return true
}

// boolQuery true только для "true" и "1".
func boolQuery(c *gin.Context, key string) bool {
	v := c.Query(key)
	return v == "true" || v == "1"
}
