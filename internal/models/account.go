package models

// Account is one registered mobile-money account under a network.
type Account struct {
	ID          string  `json:"id"`
	NetworkID   string  `json:"network_id"`
	PhoneNumber string  `json:"phone_number"`
	Balance     float64 `json:"balance"`
	AccountType string  `json:"account_type,omitempty"`
	CreatedAt   string  `json:"created_at"`
	IsActive    bool    `json:"is_active"`
}
