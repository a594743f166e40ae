package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItem is the single normalized cart line shape. Historical
// payloads arrive as either cartItems[] or items[] with the product id
// under several names; NormalizeLineItems folds all of them into this
// type at the boundary and nothing downstream sees the legacy shapes.
type LineItem struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Size      string          `json:"size"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// productIDKeys in resolution order: first non-empty wins.
var productIDKeys = []string{"productId", "product_id", "id", "_id"}

// ResolveProductID picks the product id out of a raw line map.
func ResolveProductID(raw map[string]interface{}) (uuid.UUID, error) {
	for _, key := range productIDKeys {
		v, ok := raw[key]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		id, err := uuid.Parse(strings.TrimSpace(s))
		if err != nil {
			continue
		}
		return id, nil
	}
	return uuid.Nil, ErrMissingProductID
}

// NormalizeLineItems converts a raw order document's line arrays into
// LineItems. cartItems[] is canonical; legacy items[] is the fallback.
func NormalizeLineItems(doc map[string]interface{}) ([]LineItem, error) {
	raw := extractLines(doc)
	if len(raw) == 0 {
		return nil, ErrEmptyCart
	}

	items := make([]LineItem, 0, len(raw))
	for i, entry := range raw {
		line, err := normalizeLine(entry)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		items = append(items, line)
	}
	return items, nil
}

// DecodeStoredLineItems parses the items document persisted on an
// order row. New rows hold the normalized array, but historical rows
// carry legacy field spellings or the wrapped cartItems document, so
// every load funnels through the normalizer.
func DecodeStoredLineItems(data []byte) ([]LineItem, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	var raw []map[string]interface{}
	if err := json.Unmarshal(data, &raw); err == nil {
		items := make([]LineItem, 0, len(raw))
		for i, entry := range raw {
			line, err := normalizeLine(entry)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i, err)
			}
			items = append(items, line)
		}
		return items, nil
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode stored line items: %w", err)
	}
	return NormalizeLineItems(doc)
}

func extractLines(doc map[string]interface{}) []map[string]interface{} {
	for _, key := range []string{"cartItems", "items"} {
		arr, ok := doc[key].([]interface{})
		if !ok || len(arr) == 0 {
			continue
		}
		lines := make([]map[string]interface{}, 0, len(arr))
		for _, el := range arr {
			if m, ok := el.(map[string]interface{}); ok {
				lines = append(lines, m)
			}
		}
		if len(lines) > 0 {
			return lines
		}
	}
	return nil
}

func normalizeLine(raw map[string]interface{}) (LineItem, error) {
	id, err := ResolveProductID(raw)
	if err != nil {
		return LineItem{}, err
	}

	qty := intField(raw, "quantity", "qty")
	if qty <= 0 {
		return LineItem{}, fmt.Errorf("invalid quantity %d", qty)
	}

	price := decimalField(raw, "unitPrice", "price")
	total := decimalField(raw, "lineTotal", "total")
	if total.IsZero() && !price.IsZero() {
		total = price.Mul(decimal.NewFromInt(int64(qty)))
	}

	return LineItem{
		ProductID: id,
		Name:      stringField(raw, "name", "title"),
		Size:      stringField(raw, "size"),
		Quantity:  qty,
		UnitPrice: price,
		LineTotal: total,
	}, nil
}

func stringField(raw map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s, ok := raw[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func intField(raw map[string]interface{}, keys ...string) int {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case float64:
			return int(v)
		case int:
			return v
		}
	}
	return 0
}

func decimalField(raw map[string]interface{}, keys ...string) decimal.Decimal {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case float64:
			return decimal.NewFromFloat(v)
		case string:
			if d, err := decimal.NewFromString(v); err == nil {
				return d
			}
		}
	}
	return decimal.Zero
}
