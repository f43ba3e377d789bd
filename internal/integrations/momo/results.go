package momo

// Result is the shared success/failure half of every client response. Remote
// failures are reported here rather than as Go errors; Error is always a
// human-readable string when Success is false.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func ok() Result {
	return Result{Success: true}
}

func failed(msg string) Result {
	return Result{Success: false, Error: msg}
}

// Credentials is the login payload for one network.
type Credentials struct {
	PhoneNumber string `json:"phoneNumber"`
	PIN         string `json:"pin"`
}

// AuthResult is the outcome of an Authenticate call.
type AuthResult struct {
	Result
	User map[string]interface{} `json:"user,omitempty"`
}

// BalanceResult is the outcome of a GetBalance call.
type BalanceResult struct {
	Result
	Balance  float64 `json:"balance,omitempty"`
	Currency string  `json:"currency,omitempty"`
}

// RemoteTransaction is one entry of a remote transaction history page.
type RemoteTransaction struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Amount    float64 `json:"amount"`
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
}

// Pagination describes the window of a remote history page.
type Pagination struct {
	Page    int `json:"page"`
	PerPage int `json:"perPage"`
	Total   int `json:"total"`
}

// HistoryResult is the outcome of a GetTransactionHistory call.
type HistoryResult struct {
	Result
	Transactions []RemoteTransaction `json:"transactions,omitempty"`
	Pagination   *Pagination         `json:"pagination,omitempty"`
}

// TransferResult is the outcome of any money-movement call.
type TransferResult struct {
	Result
	TransactionID string `json:"transaction_id,omitempty"`
	Status        string `json:"status,omitempty"`
}

// StatusResult is the outcome of a CheckTransactionStatus call.
type StatusResult struct {
	Result
	Status  string                 `json:"status,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Biller is one bill-payment provider supported by a network.
type Biller struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// BillersResult is the outcome of a GetSupportedBillers call.
type BillersResult struct {
	Result
	Billers []Biller `json:"billers,omitempty"`
}
