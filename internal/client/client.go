// Package client HTTP клиент API узла, используется festctl.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/fsdevblog/festwallet/internal/domain"
	"github.com/fsdevblog/festwallet/internal/transport/api"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const defaultTimeout = 20 * time.Second

// ErrUnauthorized сервер отклонил токен оператора или токен не задан.
var ErrUnauthorized = errors.New("operator token required")

// APIError ответ сервера с кодом ошибки.
type APIError struct {
	Status  int
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

type Client struct {
	http *resty.Client
}

// New создает клиент узла с адресом baseURL, например http://localhost:8080.
func New(baseURL string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(defaultTimeout).
			SetHeader("Accept", "application/json"),
	}
}

// SetToken задает токен оператора для изменяющих запросов.
func (c *Client) SetToken(token string) *Client {
	c.http.SetAuthToken(token)
	return c
}

// do выполняет запрос и разбирает ответ в result. Коды ответа 4xx и 5xx приводятся к *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	apiErr := new(APIError)
	req := c.http.R().
		SetContext(ctx).
		SetError(apiErr)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr.Status = resp.StatusCode()
		if apiErr.Status == http.StatusUnauthorized {
			return fmt.Errorf("%s %s: %w: %w", method, path, ErrUnauthorized, apiErr)
		}
		return fmt.Errorf("%s %s: %w", method, path, apiErr)
	}
	return nil
}

func (c *Client) IssueToken(ctx context.Context, operator string) (string, error) {
	var res api.OperatorTokenResponse
	if err := c.do(ctx, http.MethodPost, api.RouteGroup+api.OperatorTokenRoute,
		api.OperatorTokenParams{Name: operator}, &res); err != nil {
		return "", err
	}
	return res.Token, nil
}

func (c *Client) RegisterParticipant(ctx context.Context, card, name string, initial decimal.Decimal) (*domain.Participant, error) {
	var p domain.Participant
	err := c.do(ctx, http.MethodPost, api.RouteGroup+api.ParticipantsRoute, api.RegisterParticipantParams{
		CardNumber:     card,
		Name:           name,
		InitialBalance: initial,
	}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) LookupCard(ctx context.Context, card string) (*domain.Participant, error) {
	var p domain.Participant
	path := api.RouteGroup + "/cards/" + url.PathEscape(card)
	if err := c.do(ctx, http.MethodGet, path, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// TopUp пополняет баланс карты.
func (c *Client) TopUp(ctx context.Context, card string, amount decimal.Decimal, description string) (*domain.Transaction, error) {
	return c.applyByCard(ctx, api.ApplyTransactionParams{
		CardNumber:  card,
		Type:        domain.TransactionCredit,
		Amount:      amount,
		Description: description,
	})
}

// Sell списывает сумму с карты в пользу точки продаж booth.
func (c *Client) Sell(ctx context.Context, card string, amount decimal.Decimal, booth, description string) (*domain.Transaction, error) {
	return c.applyByCard(ctx, api.ApplyTransactionParams{
		CardNumber:  card,
		Type:        domain.TransactionDebit,
		Amount:      amount,
		Booth:       booth,
		Description: description,
	})
}

func (c *Client) applyByCard(ctx context.Context, params api.ApplyTransactionParams) (*domain.Transaction, error) {
	var t domain.Transaction
	if err := c.do(ctx, http.MethodPost, api.RouteGroup+api.TransactionsRoute, params, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) Transactions(ctx context.Context, participantID string) ([]domain.Transaction, error) {
	var list []domain.Transaction
	path := api.RouteGroup + api.TransactionsRoute + "?participantId=" + url.QueryEscape(participantID)
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) CreateBooth(ctx context.Context, name string) (*domain.Booth, error) {
	var b domain.Booth
	if err := c.do(ctx, http.MethodPost, api.RouteGroup+api.BoothsRoute, api.CreateBoothParams{Name: name}, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) Booths(ctx context.Context) ([]domain.Booth, error) {
	var list []domain.Booth
	if err := c.do(ctx, http.MethodGet, api.RouteGroup+api.BoothsRoute, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) SyncStatus(ctx context.Context) (*api.SyncStatusResponse, error) {
	var st api.SyncStatusResponse
	if err := c.do(ctx, http.MethodGet, api.RouteGroup+api.SyncStatusRoute, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) SyncServe(ctx context.Context, address string) (*api.SyncStatusResponse, error) {
	return c.syncCommand(ctx, api.SyncServerRoute, &api.SyncAddressParams{Address: address})
}

func (c *Client) SyncConnect(ctx context.Context, address string) (*api.SyncStatusResponse, error) {
	return c.syncCommand(ctx, api.SyncConnectRoute, &api.SyncAddressParams{Address: address})
}

func (c *Client) SyncDisconnect(ctx context.Context) (*api.SyncStatusResponse, error) {
	return c.syncCommand(ctx, api.SyncDisconnectRoute, nil)
}

func (c *Client) syncCommand(ctx context.Context, route string, params *api.SyncAddressParams) (*api.SyncStatusResponse, error) {
	var st api.SyncStatusResponse
	var body any
	if params != nil {
		body = params
	}
	if err := c.do(ctx, http.MethodPost, api.RouteGroup+route, body, &st); err != nil {
		return nil, err
	}
	return &st, nil
}
