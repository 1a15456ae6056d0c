package orders

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/carbuild-backend/pkg/errors"
)

// Field aliases. Each list names one concept as the backends spell it.
var (
	keyOrderID   = []string{"orderId", "order_id", "pedidoId", "pedido_id", "id_pedido"}
	keyStatus    = []string{"status"}
	keyCreatedAt = []string{"createdAt", "created_at", "dataPedido", "data_pedido"}
	keySubtotal  = []string{"subtotal"}
	keyShipping  = []string{"shipping", "frete"}
	keyTotal     = []string{"total", "valorTotal", "valor_total"}
	keyPurchased = []string{"purchasedItems", "purchased_items", "itensComprados", "itens_comprados"}
	keyQuantity  = []string{"quantity", "quantidade"}
	keyPart      = []string{"part", "peca"}
	keyPartName  = []string{"name", "nome", "partName", "part_name", "nome_peca"}
	keyUnitPrice = []string{"unitPrice", "unit_price", "valor", "valor_unitario"}
	keyReport    = []string{"relatorio", "report"}
	keyItems     = []string{"itens", "items"}
	keyMessage   = []string{"message", "mensagem", "error"}
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"02/01/2006 15:04",
	"02/01/2006 15:04:05",
}

type object map[string]json.RawMessage

func (o object) pick(keys []string) (json.RawMessage, bool) {
	for _, key := range keys {
		raw, ok := o[key]
		if !ok || isNull(raw) {
			continue
		}
		return raw, true
	}
	return nil, false
}

func (o object) has(keys []string) bool {
	_, ok := o.pick(keys)
	return ok
}

// DetectShape classifies a decoded response body. Enveloped bodies carry a
// nested report; flat ones carry the purchased items or order id at the top.
func DetectShape(body []byte) (Shape, error) {
	obj, err := decodeBody(body)
	if err != nil {
		return "", err
	}
	return detect(obj)
}

func detect(obj object) (Shape, error) {
	switch {
	case obj.has(keyReport):
		return ShapeEnveloped, nil
	case obj.has(keyPurchased), obj.has(keyOrderID):
		return ShapeFlat, nil
	default:
		return "", errors.New(errors.CodeDependency, "unrecognized order response")
	}
}

// Normalize decodes either order response shape into a Confirmation. A body
// reporting status "error" becomes a dependency error carrying its message.
func Normalize(body []byte) (*Confirmation, error) {
	obj, err := decodeBody(body)
	if err != nil {
		return nil, err
	}
	shape, err := detect(obj)
	if err != nil {
		return nil, err
	}

	var conf *Confirmation
	switch shape {
	case ShapeEnveloped:
		conf, err = normalizeEnveloped(obj)
	default:
		conf, err = normalizeFlat(obj)
	}
	if err != nil {
		return nil, err
	}
	conf.Shape = shape
	return conf, nil
}

func decodeBody(body []byte) (object, error) {
	var obj object
	if err := json.Unmarshal(body, &obj); err != nil || obj == nil {
		if err == nil {
			err = fmt.Errorf("empty body")
		}
		return nil, errors.Wrap(errors.CodeDependency, err, "decode order response")
	}

	if raw, ok := obj.pick(keyStatus); ok && strings.EqualFold(stringValue(raw), "error") {
		msg := "order submission failed"
		if m, ok := obj.pick(keyMessage); ok && stringValue(m) != "" {
			msg = stringValue(m)
		}
		return nil, errors.New(errors.CodeDependency, msg)
	}

	// {status, data, message} wrappers carry the order under data.
	if raw, ok := obj["data"]; ok && isObject(raw) {
		var inner object
		if err := json.Unmarshal(raw, &inner); err == nil {
			return inner, nil
		}
	}
	return obj, nil
}

func normalizeFlat(obj object) (*Confirmation, error) {
	conf := &Confirmation{
		OrderID: pickString(obj, keyOrderID),
		Status:  pickString(obj, keyStatus),
	}
	if conf.Status == "" {
		conf.Status = StatusConfirmed
	}
	var err error
	if conf.CreatedAt, err = pickTime(obj, keyCreatedAt); err != nil {
		return nil, err
	}

	var raws []json.RawMessage
	if raw, ok := obj.pick(keyPurchased); ok {
		if err := json.Unmarshal(raw, &raws); err != nil {
			return nil, errors.Wrap(errors.CodeDependency, err, "decode purchased items")
		}
	}
	linesTotal := decimal.Zero
	for _, raw := range raws {
		var entry object
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, errors.Wrap(errors.CodeDependency, err, "decode purchased item")
		}
		part := entry
		if nested, ok := entry.pick(keyPart); ok {
			if err := json.Unmarshal(nested, &part); err != nil {
				return nil, errors.Wrap(errors.CodeDependency, err, "decode purchased part")
			}
		}
		item := ConfirmationItem{
			Quantity:  pickInt(entry, keyQuantity),
			PartName:  pickString(part, keyPartName),
			UnitPrice: pickDecimal(part, keyUnitPrice),
		}
		item.Subtotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		linesTotal = linesTotal.Add(item.Subtotal)
		conf.Items = append(conf.Items, item)
	}

	conf.Subtotal = linesTotal
	if obj.has(keySubtotal) {
		conf.Subtotal = pickDecimal(obj, keySubtotal)
	}
	conf.Shipping = pickDecimal(obj, keyShipping)
	if obj.has(keyTotal) {
		conf.Total = pickDecimal(obj, keyTotal)
	} else {
		conf.Total = conf.Subtotal.Add(conf.Shipping)
	}
	return conf, nil
}

func normalizeEnveloped(obj object) (*Confirmation, error) {
	var report object
	if raw, ok := obj.pick(keyReport); ok {
		if err := json.Unmarshal(raw, &report); err != nil {
			return nil, errors.Wrap(errors.CodeDependency, err, "decode order report")
		}
	}

	conf := &Confirmation{
		OrderID: pickString(obj, keyOrderID),
		Status:  pickString(obj, keyStatus),
	}
	if conf.OrderID == "" {
		conf.OrderID = pickString(report, keyOrderID)
	}
	if conf.Status == "" {
		conf.Status = StatusConfirmed
	}

	var err error
	if obj.has(keyCreatedAt) {
		conf.CreatedAt, err = pickTime(obj, keyCreatedAt)
	} else {
		conf.CreatedAt, err = pickTime(report, keyCreatedAt)
	}
	if err != nil {
		return nil, err
	}

	var raws []json.RawMessage
	if raw, ok := report.pick(keyItems); ok {
		if err := json.Unmarshal(raw, &raws); err != nil {
			return nil, errors.Wrap(errors.CodeDependency, err, "decode report items")
		}
	}
	subtotal := decimal.Zero
	for _, raw := range raws {
		var entry object
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, errors.Wrap(errors.CodeDependency, err, "decode report item")
		}
		item := ConfirmationItem{
			Quantity:  pickInt(entry, keyQuantity),
			PartName:  pickString(entry, keyPartName),
			UnitPrice: pickDecimal(entry, keyUnitPrice),
		}
		if entry.has(keySubtotal) {
			item.Subtotal = pickDecimal(entry, keySubtotal)
		} else {
			item.Subtotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		}
		subtotal = subtotal.Add(item.Subtotal)
		conf.Items = append(conf.Items, item)
	}

	switch {
	case obj.has(keyTotal):
		conf.Total = pickDecimal(obj, keyTotal)
	case report.has(keyTotal):
		conf.Total = pickDecimal(report, keyTotal)
	default:
		conf.Total = subtotal
	}
	conf.Subtotal = subtotal
	conf.Shipping = conf.Total.Sub(subtotal)
	if conf.Shipping.IsNegative() {
		conf.Shipping = decimal.Zero
	}
	return conf, nil
}

func pickString(obj object, keys []string) string {
	raw, ok := obj.pick(keys)
	if !ok {
		return ""
	}
	return stringValue(raw)
}

func pickInt(obj object, keys []string) int {
	raw, ok := obj.pick(keys)
	if !ok {
		return 0
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil {
		return 0
	}
	return int(d.IntPart())
}

func pickDecimal(obj object, keys []string) decimal.Decimal {
	raw, ok := obj.pick(keys)
	if !ok {
		return decimal.Zero
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil {
		return decimal.Zero
	}
	return d
}

func pickTime(obj object, keys []string) (time.Time, error) {
	value := pickString(obj, keys)
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, errors.New(errors.CodeDependency, fmt.Sprintf("unrecognized order timestamp %q", value))
}

// stringValue renders a JSON string or number as text.
func stringValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
