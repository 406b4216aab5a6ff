// Package tokens выпускает и проверяет JWT операторов кассы.
package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired  = errors.New("token expired")
	ErrInvalidClaims = errors.New("invalid claims")
)

// OperatorClaims токен указывает только имя оператора, которое попадает в транзакции.
type OperatorClaims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
}

func GenerateOperatorJWT(name string, expire time.Duration, key []byte) (string, error) {
	claims := OperatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   name,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expire)),
		},
		Name: name,
	}
	token, err := generateJWT(claims, key)
	if err != nil {
		return "", fmt.Errorf("generating operator jwt token: %w", err)
	}
	return token, nil
}

func ValidateOperatorJWT(tokenString string, key []byte) (*OperatorClaims, error) {
	token, err := validateJWT(tokenString, new(OperatorClaims), key)
	if err != nil {
		return nil, fmt.Errorf("validating operator jwt token: %w", err)
	}

	claims, ok := token.Claims.(*OperatorClaims)
	if !ok || claims.Name == "" {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

func generateJWT(claims jwt.Claims, key []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("signing jwt token: %s", err.Error())
	}

	return tokenString, nil
}

func validateJWT(tokenString string, claims jwt.Claims, key []byte) (*jwt.Token, error) {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{"HS256"}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("parsing jwt token: %w", err)
	}

	return token, nil
}
