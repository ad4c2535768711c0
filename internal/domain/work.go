package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Work is a service offering that customers book, e.g. "Kitchen sink repair".
type Work struct {
	ID                 int32           `json:"id"`
	WorkerID           *int32          `json:"worker_id,omitempty"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	Charges            decimal.Decimal `json:"charges"`
	EstimatedTimeHours float64         `json:"estimated_time_hours"`
	Category           string          `json:"category"`
	Latitude           *float64        `json:"latitude,omitempty"`
	Longitude          *float64        `json:"longitude,omitempty"`
	IsAvailable        bool            `json:"is_available"`
	CreatedAt          time.Time       `json:"created_at"`
}
