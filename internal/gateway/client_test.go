package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/carbuild-backend/internal/catalog"
	"github.com/angelmondragon/carbuild-backend/internal/orders"
	"github.com/angelmondragon/carbuild-backend/internal/pricing"
	"github.com/angelmondragon/carbuild-backend/pkg/errors"
)

type recorded struct {
	method string
	path   string
	header http.Header
	body   []byte
}

func newServer(t *testing.T, status int, body string) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, _ := io.ReadAll(r.Body)
		calls = append(calls, recorded{method: r.Method, path: r.URL.Path, header: r.Header.Clone(), body: payload})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestListVehiclesUnwrapsEnvelope(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, `{"status":"success","data":[{"id":1,"modelo":"Civic","ano":2020}],"count":1}`)

	vehicles, err := NewClient(srv.URL + "/api").ListVehicles(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []catalog.Vehicle{{ID: 1, Model: "Civic", Year: 2020}}, vehicles)
	require.Len(t, *calls, 1)
	assert.Equal(t, "/api/cars/", (*calls)[0].path)
}

func TestListPartsAcceptsStringPrices(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, `{"status":"success","data":[{"id":7,"nome":"Chassi","valor":"1500.00"},{"id":"8","nome":"Pneu","valor":300}]}`)

	parts, err := NewClient(srv.URL).ListPartsForVehicle(context.Background(), 3)
	require.NoError(t, err)

	require.Len(t, parts, 2)
	assert.Equal(t, catalog.PartID("7"), parts[0].ID)
	assert.True(t, parts[0].UnitPrice.Equal(decimal.NewFromInt(1500)))
	assert.Equal(t, catalog.PartID("8"), parts[1].ID)
	assert.Equal(t, "/cars/3/pecas/", (*calls)[0].path)
}

func TestCalculatePriceSendsItems(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, `{"status":"success","data":{"subtotal":1000.0,"frete":0.0,"total":1000.0,"frete_gratis":true,"items":[]}}`)

	totals, err := NewClient(srv.URL).CalculatePrice(context.Background(), []pricing.Item{
		{PartID: "1", Quantity: 1},
		{PartID: "2", Quantity: 3},
	})
	require.NoError(t, err)

	assert.True(t, totals.Total.Equal(decimal.NewFromInt(1000)))
	assert.True(t, totals.FreeShipping)

	call := (*calls)[0]
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "/calculate-price/", call.path)
	assert.JSONEq(t, `{"items":[{"peca_id":1,"quantidade":1},{"peca_id":2,"quantidade":3}]}`, string(call.body))
}

func TestCalculatePriceErrorEnvelope(t *testing.T) {
	srv, _ := newServer(t, http.StatusBadRequest, `{"status":"error","message":"Peça com ID 9 não encontrada"}`)

	_, err := NewClient(srv.URL).CalculatePrice(context.Background(), []pricing.Item{{PartID: "9", Quantity: 1}})
	require.Error(t, err)

	assert.True(t, errors.IsCode(err, errors.CodeDependency))
	assert.Equal(t, "Peça com ID 9 não encontrada", errors.As(err).Message())
}

func TestErrorStatusInSuccessfulResponse(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `{"status":"error","message":"Erro no gateway"}`)

	_, err := NewClient(srv.URL).ListVehicles(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Erro no gateway", errors.As(err).Message())
}

func TestNonJSONErrorBody(t *testing.T) {
	srv, _ := newServer(t, http.StatusBadGateway, `upstream down`)

	_, err := NewClient(srv.URL).ListVehicles(context.Background())
	require.Error(t, err)
	assert.Equal(t, "parts api status 502: upstream down", errors.As(err).Message())
}

func TestSubmitOrderSendsIdempotencyKey(t *testing.T) {
	body := `{"status":"success","data":{"pedido_id":"abc","valor_total":600.0,"data_pedido":"2024-05-01T10:00:00","relatorio":{"itens":[]}}}`
	srv, calls := newServer(t, http.StatusCreated, body)

	raw, err := NewClient(srv.URL).SubmitOrder(context.Background(), orders.Request{
		Lines:          []orders.Line{{PartID: 2, Quantity: 2}},
		IdempotencyKey: "key-1",
	})
	require.NoError(t, err)
	assert.JSONEq(t, body, string(raw))

	call := (*calls)[0]
	assert.Equal(t, "/orders/", call.path)
	assert.Equal(t, "key-1", call.header.Get("Idempotency-Key"))
	assert.JSONEq(t, `{"items":[{"peca_id":2,"quantidade":2}]}`, string(call.body))
}

func TestSubmitOrderLegacyCheckout(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, `{"pedidoId":"L-1","status":"aprovado","itensComprados":[]}`)

	_, err := NewClient(srv.URL, WithLegacyCheckout(true)).SubmitOrder(context.Background(), orders.Request{
		Lines:          []orders.Line{{PartID: 2, Quantity: 2, Name: "Pneu", UnitPrice: decimal.NewFromInt(300)}},
		Total:          decimal.NewFromInt(625),
		IdempotencyKey: "key-2",
	})
	require.NoError(t, err)

	call := (*calls)[0]
	assert.Equal(t, "/pagar/", call.path)
	var sent struct {
		Itens []struct {
			Peca struct {
				ID    int64  `json:"id"`
				Nome  string `json:"nome"`
				Valor string `json:"valor"`
			} `json:"peca"`
			Quantidade int `json:"quantidade"`
		} `json:"itens"`
		ValorTotal string `json:"valor_total"`
	}
	require.NoError(t, json.Unmarshal(call.body, &sent))
	require.Len(t, sent.Itens, 1)
	assert.Equal(t, "Pneu", sent.Itens[0].Peca.Nome)
	assert.Equal(t, "625", sent.ValorTotal)
}

func TestOrderReportAndPing(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, `{"status":"success","data":{"id_pedido":"abc","itens":[]}}`)
	client := NewClient(srv.URL)

	report, err := client.OrderReport(context.Background(), "abc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id_pedido":"abc","itens":[]}`, string(report))

	require.NoError(t, client.Ping(context.Background()))
	assert.Equal(t, "/orders/abc/report/", (*calls)[0].path)
	assert.Equal(t, "/health/", (*calls)[1].path)
}

func TestUnconfiguredClient(t *testing.T) {
	_, err := NewClient("  ").ListVehicles(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeDependency))
}
