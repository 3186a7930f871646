package model

// RentPolicy configures the monthly rent charge for one kid. LastChargedOn
// holds the last charge date as YYYY-MM-DD, or nil if never charged.
type RentPolicy struct {
	ID             int64   `json:"id"`
	KidID          int64   `json:"kid_id"`
	RentAmount     int     `json:"rent_amount"`
	RentDayOfMonth int     `json:"rent_day_of_month"`
	LastChargedOn  *string `json:"last_charged_on"`
}
