package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MenuItem represents a food item offered by a canteen.
type MenuItem struct {
	ID        string          `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	Category  string          `json:"category" db:"category"`
	CanteenID string          `json:"canteenId" db:"canteen_id"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Available bool            `json:"available" db:"available"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
}
