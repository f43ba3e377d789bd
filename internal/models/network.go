package models

// Network is the static descriptor for one supported mobile-money network.
type Network struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Color       string `json:"color"`
	USSDPrefix  string `json:"ussd_prefix"`
	APIBaseURL  string `json:"api_base_url"`
}

// Physical SIM slot identifiers.
const (
	SimSlot1 = "sim1"
	SimSlot2 = "sim2"
)

// Account types.
const (
	AccountTypePersonal = "personal"
	AccountTypeAgent    = "agent"
	AccountTypeBusiness = "business"
)

// Transaction types.
const (
	TxnCashIn       = "cash_in"
	TxnCashOut      = "cash_out"
	TxnSendMoney    = "send_money"
	TxnBuyAirtime   = "buy_airtime"
	TxnPayBill      = "pay_bill"
	TxnBalanceCheck = "balance_check"
)

// Transaction statuses.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)
