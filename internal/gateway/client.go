// Package gateway talks to the remote catalog, pricing and order services.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/carbuild-backend/internal/catalog"
	"github.com/angelmondragon/carbuild-backend/internal/orders"
	"github.com/angelmondragon/carbuild-backend/internal/pricing"
	"github.com/angelmondragon/carbuild-backend/pkg/errors"
)

const (
	defaultTimeout    = 10 * time.Second
	idempotencyHeader = "Idempotency-Key"
	maxErrorBody      = 4 << 10
)

// Client issues catalog, pricing and order calls against the parts API.
type Client struct {
	baseURL string
	http    *http.Client
	legacy  bool
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.http.Timeout = timeout
		}
	}
}

// WithLegacyCheckout posts orders to /pagar, which answers with the flat shape.
func WithLegacyCheckout(enabled bool) Option {
	return func(c *Client) {
		c.legacy = enabled
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the {status, data, message} wrapper of every parts API response.
type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type vehiclePayload struct {
	ID     int64  `json:"id"`
	Modelo string `json:"modelo"`
	Ano    int    `json:"ano"`
}

type partPayload struct {
	ID    catalog.PartID  `json:"id"`
	Nome  string          `json:"nome"`
	Valor decimal.Decimal `json:"valor"`
}

type itemPayload struct {
	PecaID     int64 `json:"peca_id"`
	Quantidade int   `json:"quantidade"`
}

type pricePayload struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	Frete       decimal.Decimal `json:"frete"`
	Total       decimal.Decimal `json:"total"`
	FreteGratis bool            `json:"frete_gratis"`
}

type legacyItemPayload struct {
	Peca struct {
		ID    int64           `json:"id"`
		Nome  string          `json:"nome"`
		Valor decimal.Decimal `json:"valor"`
	} `json:"peca"`
	Quantidade int `json:"quantidade"`
}

// ListVehicles implements catalog.Source.
func (c *Client) ListVehicles(ctx context.Context) ([]catalog.Vehicle, error) {
	var payload []vehiclePayload
	if err := c.getData(ctx, &payload, "cars"); err != nil {
		return nil, err
	}
	out := make([]catalog.Vehicle, 0, len(payload))
	for _, v := range payload {
		out = append(out, catalog.Vehicle{ID: v.ID, Model: v.Modelo, Year: v.Ano})
	}
	return out, nil
}

// ListPartsForVehicle implements catalog.Source.
func (c *Client) ListPartsForVehicle(ctx context.Context, vehicleID int64) ([]catalog.Part, error) {
	var payload []partPayload
	if err := c.getData(ctx, &payload, "cars", strconv.FormatInt(vehicleID, 10), "pecas"); err != nil {
		return nil, err
	}
	out := make([]catalog.Part, 0, len(payload))
	for _, p := range payload {
		out = append(out, catalog.Part{ID: p.ID, Name: p.Nome, UnitPrice: p.Valor})
	}
	return out, nil
}

// CalculatePrice implements pricing.Calculator.
func (c *Client) CalculatePrice(ctx context.Context, items []pricing.Item) (pricing.Totals, error) {
	body := struct {
		Items []itemPayload `json:"items"`
	}{Items: make([]itemPayload, 0, len(items))}
	for _, item := range items {
		id, err := item.PartID.Int()
		if err != nil {
			return pricing.Totals{}, err
		}
		body.Items = append(body.Items, itemPayload{PecaID: id, Quantidade: item.Quantity})
	}

	raw, err := c.post(ctx, body, "", "calculate-price")
	if err != nil {
		return pricing.Totals{}, err
	}
	var payload pricePayload
	if err := unwrapInto(raw, &payload); err != nil {
		return pricing.Totals{}, err
	}
	return pricing.Totals{
		Subtotal:     payload.Subtotal,
		Shipping:     payload.Frete,
		Total:        payload.Total,
		FreeShipping: payload.FreteGratis,
	}, nil
}

// SubmitOrder implements orders.Client. The raw body is returned as is so the
// order normalizer can tell the response shapes apart.
func (c *Client) SubmitOrder(ctx context.Context, req orders.Request) (json.RawMessage, error) {
	if c.legacy {
		return c.submitLegacy(ctx, req)
	}
	body := struct {
		Items []itemPayload `json:"items"`
	}{Items: make([]itemPayload, 0, len(req.Lines))}
	for _, line := range req.Lines {
		body.Items = append(body.Items, itemPayload{PecaID: line.PartID, Quantidade: line.Quantity})
	}
	return c.post(ctx, body, req.IdempotencyKey, "orders")
}

func (c *Client) submitLegacy(ctx context.Context, req orders.Request) (json.RawMessage, error) {
	body := struct {
		Itens      []legacyItemPayload `json:"itens"`
		ValorTotal decimal.Decimal     `json:"valor_total"`
	}{Itens: make([]legacyItemPayload, 0, len(req.Lines)), ValorTotal: req.Total}
	for _, line := range req.Lines {
		var item legacyItemPayload
		item.Peca.ID = line.PartID
		item.Peca.Nome = line.Name
		item.Peca.Valor = line.UnitPrice
		item.Quantidade = line.Quantity
		body.Itens = append(body.Itens, item)
	}
	return c.post(ctx, body, req.IdempotencyKey, "pagar")
}

// OrderReport fetches the stored report of a placed order.
func (c *Client) OrderReport(ctx context.Context, orderID string) (json.RawMessage, error) {
	var report json.RawMessage
	if err := c.getData(ctx, &report, "orders", orderID, "report"); err != nil {
		return nil, err
	}
	return report, nil
}

// Ping checks the parts API health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, nil, "", "health")
	return err
}

func (c *Client) getData(ctx context.Context, dst any, segments ...string) error {
	raw, err := c.do(ctx, http.MethodGet, nil, "", segments...)
	if err != nil {
		return err
	}
	return unwrapInto(raw, dst)
}

func (c *Client) post(ctx context.Context, body any, idempotencyKey string, segments ...string) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "encode request")
	}
	return c.do(ctx, http.MethodPost, payload, idempotencyKey, segments...)
}

func (c *Client) do(ctx context.Context, method string, payload []byte, idempotencyKey string, segments ...string) (json.RawMessage, error) {
	if c == nil || c.baseURL == "" {
		return nil, errors.New(errors.CodeDependency, "parts api base url is not configured")
	}
	endpoint, err := url.JoinPath(c.baseURL, segments...)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "build endpoint")
	}
	// The parts API routes every collection with a trailing slash.
	endpoint += "/"

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set(idempotencyHeader, idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, fmt.Sprintf("%s %s", method, strings.Join(segments, "/")))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "read response")
	}
	if resp.StatusCode >= 400 {
		return nil, errors.New(errors.CodeDependency, errorMessage(resp.StatusCode, raw))
	}
	return raw, nil
}

// unwrapInto decodes data out of the response envelope. Bodies without an
// envelope decode directly.
func unwrapInto(raw json.RawMessage, dst any) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil {
		if strings.EqualFold(env.Status, "error") {
			return errors.New(errors.CodeDependency, nonEmpty(env.Message, "parts api reported an error"))
		}
		if len(env.Data) > 0 {
			raw = env.Data
		}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "decode response")
	}
	return nil
}

func errorMessage(status int, body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && strings.TrimSpace(env.Message) != "" {
		return env.Message
	}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return fmt.Sprintf("parts api status %d: %s", status, text)
	}
	return fmt.Sprintf("parts api status %d", status)
}

func nonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
