package models

// Summary aggregates ledger activity for the reporting surface.
type Summary struct {
	From            string                      `json:"from,omitempty"`
	To              string                      `json:"to,omitempty"`
	Count           int                         `json:"count"`
	TotalAmount     float64                     `json:"total_amount"`
	TotalCommission float64                     `json:"total_commission"`
	ByType          map[string]TypeBreakdown    `json:"by_type"`
	ByNetwork       map[string]NetworkBreakdown `json:"by_network"`
}

// TypeBreakdown is per-transaction-type aggregate activity.
type TypeBreakdown struct {
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
}

// NetworkBreakdown is per-network aggregate activity.
type NetworkBreakdown struct {
	Count      int     `json:"count"`
	Amount     float64 `json:"amount"`
	Commission float64 `json:"commission"`
}
