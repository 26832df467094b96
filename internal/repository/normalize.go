package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"campus-eats/internal/model"

	"github.com/shopspring/decimal"
)

// storedLineItem accepts the shapes line items have been persisted in:
// numeric or string ids, quantities and prices, and "price"/"id" keys
// written by older clients.
type storedLineItem struct {
	MenuItemID     flexString          `json:"menuItemId"`
	ID             flexString          `json:"id"`
	Name           string              `json:"name"`
	Quantity       flexInt             `json:"quantity"`
	UnitPrice      decimal.NullDecimal `json:"unitPrice"`
	Price          decimal.NullDecimal `json:"price"`
	Customizations map[string]any      `json:"customizations"`
}

// decodeItems normalizes a JSON items document into line items.
func decodeItems(raw []byte) ([]model.LineItem, error) {
	var stored []storedLineItem
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode order items: %w", err)
	}

	items := make([]model.LineItem, len(stored))
	for i, s := range stored {
		id := string(s.MenuItemID)
		if id == "" {
			id = string(s.ID)
		}
		price := s.UnitPrice
		if !price.Valid {
			price = s.Price
		}
		items[i] = model.LineItem{
			MenuItemID:     id,
			Name:           s.Name,
			Quantity:       int(s.Quantity),
			UnitPrice:      price.Decimal,
			Customizations: s.Customizations,
		}
	}
	return items, nil
}

// encodeItems serializes line items for storage.
func encodeItems(items []model.LineItem) ([]byte, error) {
	if items == nil {
		items = []model.LineItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode order items: %w", err)
	}
	return b, nil
}

// flexString decodes from a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexInt decodes from a JSON number or numeric string.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	*f = flexInt(n)
	return nil
}
