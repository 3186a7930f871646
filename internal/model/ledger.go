package model

import "time"

// LedgerEntry is one signed point delta for a kid. Entries are append-only;
// a kid's balance is the sum of their amounts.
type LedgerEntry struct {
	ID         int64     `json:"id"`
	KidID      int64     `json:"kid_id"`
	Amount     int       `json:"amount"`
	Reason     string    `json:"reason"`
	InstanceID *int64    `json:"instance_id"`
	Note       string    `json:"note"`
	CreatedAt  time.Time `json:"created_at"`
}

type LedgerSummary struct {
	KidID         int64   `json:"kid_id"`
	KidName       string  `json:"kid_name"`
	Balance       int     `json:"balance"`
	RentAmount    int     `json:"rent_amount"`
	RentDay       int     `json:"rent_day_of_month"`
	MonthsCovered float64 `json:"months_covered"`
}
