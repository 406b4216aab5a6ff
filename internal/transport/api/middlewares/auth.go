package middlewares

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fsdevblog/festwallet/internal/transport/api/tokens"
	"github.com/gin-gonic/gin"
)

var ErrTokenNotExist = errors.New("token not exist")

const CurrentOperatorKey = "currentOperator"

// checkAuthorization извлекает токен из заголовка Authorization и проверяет его. Если токен не
// передан, вернется ошибка ErrTokenNotExist.
func checkAuthorization(c *gin.Context, jwtTokenSecret []byte) (*tokens.OperatorClaims, error) {
	tokenHeader := c.GetHeader("Authorization")
	tokenStr, found := strings.CutPrefix(tokenHeader, "Bearer ")
	if !found || tokenStr == "" {
		return nil, ErrTokenNotExist
	}

	claims, err := tokens.ValidateOperatorJWT(tokenStr, jwtTokenSecret)
	if err != nil {
		return nil, fmt.Errorf("check authorization: %w", err)
	}
	return claims, nil
}

// OperatorRequired пропускает только запросы с действительным токеном оператора. Записывает в
// контекст (поле CurrentOperatorKey) имя оператора.
func OperatorRequired(jwtTokenSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := checkAuthorization(c, jwtTokenSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			if !errors.Is(err, ErrTokenNotExist) {
				_ = c.Error(err).SetType(gin.ErrorTypePrivate)
			}
			return
		}
		c.Set(CurrentOperatorKey, claims.Name)
		c.Next()
	}
}

// CurrentOperator возвращает имя оператора, установленное OperatorRequired, или пустую строку.
func CurrentOperator(c *gin.Context) string {
	return c.GetString(CurrentOperatorKey)
}
