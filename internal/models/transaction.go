package models

// Transaction is one immutable ledger record. Records are prepended to the
// ledger at creation time and never mutated afterwards.
type Transaction struct {
	ID          string  `json:"id"`
	Timestamp   string  `json:"timestamp"`
	NetworkID   string  `json:"network_id"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	Phone       string  `json:"phone,omitempty"`
	Reference   *string `json:"reference,omitempty"`
	Status      string  `json:"status"`
	Commission  float64 `json:"commission,omitempty"`
	Description string  `json:"description,omitempty"`
}
