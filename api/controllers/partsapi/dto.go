package partsapi

import (
	"time"

	"github.com/shopspring/decimal"

	svc "github.com/angelmondragon/carbuild-backend/internal/partsapi"
	"github.com/angelmondragon/carbuild-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/carbuild-backend/pkg/errors"
)

// reportDateLayout renders data_pedido inside order reports (dd/mm/yyyy hh:mm).
const reportDateLayout = "02/01/2006 15:04"

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type vehicleResponse struct {
	ID     int64  `json:"id"`
	Modelo string `json:"modelo"`
	Ano    int    `json:"ano"`
}

func newVehicleResponse(v models.Vehicle) vehicleResponse {
	return vehicleResponse{ID: v.ID, Modelo: v.Model, Ano: v.Year}
}

type partResponse struct {
	ID           int64            `json:"id"`
	Nome         string           `json:"nome"`
	Valor        string           `json:"valor"`
	Owner        *int64           `json:"owner"`
	OwnerDetails *vehicleResponse `json:"owner_details,omitempty"`
}

func newPartResponse(p models.Part) partResponse {
	out := partResponse{ID: p.ID, Nome: p.Name, Valor: money(p.UnitPrice), Owner: p.VehicleID}
	if p.Vehicle != nil {
		details := newVehicleResponse(*p.Vehicle)
		out.OwnerDetails = &details
	}
	return out
}

func newPartResponses(parts []models.Part) []partResponse {
	out := make([]partResponse, 0, len(parts))
	for _, p := range parts {
		out = append(out, newPartResponse(p))
	}
	return out
}

// itemRequest uses pointers so a missing key is told apart from zero.
type itemRequest struct {
	PecaID     *int64 `json:"peca_id"`
	Quantidade *int   `json:"quantidade"`
}

type itemsRequest struct {
	Items []itemRequest `json:"items"`
}

func toItemInputs(items []itemRequest) ([]svc.ItemInput, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, svc.MsgItemsRequired)
	}
	out := make([]svc.ItemInput, 0, len(items))
	for i, item := range items {
		if item.PecaID == nil || item.Quantidade == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, svc.MsgItemFields).WithDetails(map[string]any{"index": i})
		}
		out = append(out, svc.ItemInput{PartID: *item.PecaID, Quantity: *item.Quantidade})
	}
	return out, nil
}

type pricedItemResponse struct {
	PecaID        int64  `json:"peca_id"`
	Nome          string `json:"nome"`
	Quantidade    int    `json:"quantidade"`
	ValorUnitario string `json:"valor_unitario"`
	Subtotal      string `json:"subtotal"`
}

type priceResponse struct {
	Subtotal    string               `json:"subtotal"`
	Frete       string               `json:"frete"`
	Total       string               `json:"total"`
	FreteGratis bool                 `json:"frete_gratis"`
	Items       []pricedItemResponse `json:"items"`
}

func newPriceResponse(q *svc.PriceQuote) priceResponse {
	out := priceResponse{
		Subtotal:    money(q.Subtotal),
		Frete:       money(q.Shipping),
		Total:       money(q.Total),
		FreteGratis: q.FreeShipping,
		Items:       make([]pricedItemResponse, 0, len(q.Items)),
	}
	for _, item := range q.Items {
		out.Items = append(out.Items, pricedItemResponse{
			PecaID:        item.PartID,
			Nome:          item.PartName,
			Quantidade:    item.Quantity,
			ValorUnitario: money(item.UnitPrice),
			Subtotal:      money(item.Subtotal),
		})
	}
	return out
}

type reportItemResponse struct {
	NomePeca      string `json:"nome_peca"`
	Quantidade    int    `json:"quantidade"`
	ValorUnitario string `json:"valor_unitario"`
	Subtotal      string `json:"subtotal"`
}

type reportResponse struct {
	IDPedido   string               `json:"id_pedido"`
	DataPedido string               `json:"data_pedido"`
	Itens      []reportItemResponse `json:"itens"`
	Frete      string               `json:"frete"`
	ValorTotal string               `json:"valor_total"`
}

func newReportResponse(r svc.Report) reportResponse {
	out := reportResponse{
		IDPedido:   r.OrderID.String(),
		DataPedido: r.CreatedAt.Format(reportDateLayout),
		Frete:      money(r.Shipping),
		ValorTotal: money(r.Total),
		Itens:      make([]reportItemResponse, 0, len(r.Items)),
	}
	for _, item := range r.Items {
		out.Itens = append(out.Itens, reportItemResponse{
			NomePeca:      item.PartName,
			Quantidade:    item.Quantity,
			ValorUnitario: money(item.UnitPrice),
			Subtotal:      money(item.Subtotal),
		})
	}
	return out
}

type orderResponse struct {
	PedidoID   string         `json:"pedido_id"`
	ValorTotal string         `json:"valor_total"`
	DataPedido string         `json:"data_pedido"`
	Relatorio  reportResponse `json:"relatorio"`
}

func newOrderResponse(r svc.Report) orderResponse {
	return orderResponse{
		PedidoID:   r.OrderID.String(),
		ValorTotal: money(r.Total),
		DataPedido: r.CreatedAt.UTC().Format(time.RFC3339),
		Relatorio:  newReportResponse(r),
	}
}

type generatedIDResponse struct {
	OrderID     string `json:"order_id"`
	GeneratedAt string `json:"generated_at"`
}

// legacyCheckoutRequest is the body of POST /pagar. Part names and prices
// sent by the client are ignored; the catalog prices the order.
type legacyCheckoutRequest struct {
	Itens []struct {
		Peca struct {
			ID    *int64          `json:"id"`
			Nome  string          `json:"nome"`
			Valor decimal.Decimal `json:"valor"`
		} `json:"peca"`
		Quantidade *int `json:"quantidade"`
	} `json:"itens"`
	ValorTotal decimal.Decimal `json:"valor_total"`
}

func (r legacyCheckoutRequest) items() []itemRequest {
	out := make([]itemRequest, 0, len(r.Itens))
	for _, item := range r.Itens {
		out = append(out, itemRequest{PecaID: item.Peca.ID, Quantidade: item.Quantidade})
	}
	return out
}

type purchasedPart struct {
	ID    int64  `json:"id"`
	Nome  string `json:"nome"`
	Valor string `json:"valor"`
}

type purchasedItem struct {
	Quantidade int           `json:"quantidade"`
	Peca       purchasedPart `json:"peca"`
}

// legacyReceiptResponse is the flat, unwrapped answer of POST /pagar.
type legacyReceiptResponse struct {
	OrderID        string          `json:"order_id"`
	Status         string          `json:"status"`
	CreatedAt      string          `json:"created_at"`
	Subtotal       string          `json:"subtotal"`
	Frete          string          `json:"frete"`
	ValorTotal     string          `json:"valor_total"`
	ItensComprados []purchasedItem `json:"itens_comprados"`
}

func newLegacyReceiptResponse(r *svc.Receipt) legacyReceiptResponse {
	out := legacyReceiptResponse{
		OrderID:        r.Report.OrderID.String(),
		Status:         "confirmed",
		CreatedAt:      r.Report.CreatedAt.UTC().Format(time.RFC3339),
		Subtotal:       money(r.Report.Subtotal),
		Frete:          money(r.Report.Shipping),
		ValorTotal:     money(r.Report.Total),
		ItensComprados: make([]purchasedItem, 0, len(r.Report.Items)),
	}
	for _, item := range r.Report.Items {
		out.ItensComprados = append(out.ItensComprados, purchasedItem{
			Quantidade: item.Quantity,
			Peca:       purchasedPart{ID: item.PartID, Nome: item.PartName, Valor: money(item.UnitPrice)},
		})
	}
	return out
}
