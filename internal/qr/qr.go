// Package qr encodes the pickup token printed on a customer's receipt and
// parses scanned or hand-typed tokens back into lookup fields.
//
// A token carries no authority: it only names an order. Pickup decisions are
// always made against the live order read from the store.
package qr

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode"

	"campus-eats/internal/model"
)

// TokenType is the discriminator written into every structured token.
const TokenType = "order"

const maxLiteralLength = 64

// ErrUnreadable is returned when input is neither a structured token nor a
// plausible bare order number.
var ErrUnreadable = model.ErrScanUnreadable

// Payload is the structured content of a token.
type Payload struct {
	Type        string `json:"type"`
	OrderNumber string `json:"orderNumber"`
	UserID      string `json:"userId,omitempty"`
	// OrderID is only present in legacy tokens.
	OrderID   string `json:"orderId,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"` // unix milliseconds
}

// Decoded is the result of parsing a token.
type Decoded struct {
	OrderNumber string
	UserID      string
	Timestamp   time.Time
	// Literal is set when the input was taken verbatim as an order number.
	Literal bool
}

// Encode produces the token for an order. Output is deterministic for a given
// input; timestamps are carried with millisecond precision.
func Encode(orderNumber, userID string, ts time.Time) string {
	p := Payload{
		Type:        TokenType,
		OrderNumber: orderNumber,
		UserID:      userID,
		Timestamp:   ts.UnixMilli(),
	}
	// Marshalling a struct of strings and an int64 cannot fail.
	b, _ := json.Marshal(p)
	return string(b)
}

// Decode parses a token. Structured JSON is tried first; anything that is not
// a JSON object is treated as a bare order number typed by staff.
func Decode(raw string) (Decoded, error) {
	input := strings.TrimSpace(raw)
	if input == "" {
		return Decoded{}, ErrUnreadable
	}

	if strings.HasPrefix(input, "{") {
		return decodeStructured(input)
	}

	return decodeLiteral(input)
}

func decodeStructured(input string) (Decoded, error) {
	var p Payload
	if err := json.Unmarshal([]byte(input), &p); err != nil {
		return Decoded{}, ErrUnreadable
	}

	// Legacy tokens may omit type; anything else must say "order".
	if p.Type != "" && p.Type != TokenType {
		return Decoded{}, ErrUnreadable
	}

	number := strings.TrimSpace(p.OrderNumber)
	if number == "" {
		return Decoded{}, ErrUnreadable
	}

	d := Decoded{
		OrderNumber: number,
		UserID:      p.UserID,
	}
	if p.Timestamp != 0 {
		d.Timestamp = time.UnixMilli(p.Timestamp).UTC()
	}
	return d, nil
}

func decodeLiteral(input string) (Decoded, error) {
	if len(input) > maxLiteralLength {
		return Decoded{}, ErrUnreadable
	}
	for _, r := range input {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return Decoded{}, ErrUnreadable
		}
	}
	return Decoded{OrderNumber: input, Literal: true}, nil
}

// IsUnreadable reports whether err came from a failed decode.
func IsUnreadable(err error) bool {
	return errors.Is(err, ErrUnreadable)
}
