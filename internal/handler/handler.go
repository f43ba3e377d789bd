package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/mopay/agent-service/internal/integrations/momo"
	"github.com/mopay/agent-service/internal/models"
	"github.com/mopay/agent-service/internal/network"
	"github.com/mopay/agent-service/internal/reports"
	"github.com/mopay/agent-service/internal/service"
	"github.com/mopay/agent-service/internal/store"
	"github.com/sirupsen/logrus"
)

// Handler exposes the store, service and registry over HTTP.
type Handler struct {
	svc      *service.Service
	store    *store.Store
	registry *network.Registry
	log      *logrus.Logger
}

// NewHandler initializes the HTTP handler set.
func NewHandler(svc *service.Service, st *store.Store, registry *network.Registry, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, store: st, registry: registry, log: log}
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// Login handles agent PIN authentication.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.svc.Login(r.Context(), req.PIN)
	if err != nil {
		respondError(w, http.StatusUnauthorized, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

// SetupPIN sets the initial agent PIN. Once a PIN exists, changes must go
// through the authenticated ChangePIN route.
func (h *Handler) SetupPIN(w http.ResponseWriter, r *http.Request) {
	if h.svc.HasPIN(r.Context()) {
		respondError(w, http.StatusConflict, "PIN already set")
		return
	}
	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.SetPIN(r.Context(), req.PIN); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}

// ChangePIN updates the agent PIN.
func (h *Handler) ChangePIN(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.SetPIN(r.Context(), req.PIN); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Networks lists the configured network descriptors.
func (h *Handler) Networks(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.registry.All())
}

// ListAccounts returns accounts, optionally filtered by network.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	if networkID := r.URL.Query().Get("network"); networkID != "" {
		respondJSON(w, http.StatusOK, h.store.Accounts(networkID))
		return
	}
	respondJSON(w, http.StatusOK, h.store.AllAccounts())
}

// CreateAccount registers a new account under a network.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NetworkID   string  `json:"network_id"`
		PhoneNumber string  `json:"phone_number"`
		Balance     float64 `json:"balance"`
		AccountType string  `json:"account_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := h.store.AddAccount(req.NetworkID, models.Account{
		PhoneNumber: req.PhoneNumber,
		Balance:     req.Balance,
		AccountType: req.AccountType,
	})
	if err != nil {
		if errors.Is(err, network.ErrUnknownNetwork) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, account)
}

// DeleteAccount removes an account from a network's list.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	h.store.RemoveAccount(vars["networkId"], vars["accountId"])
	respondJSON(w, http.StatusNoContent, nil)
}

// SimAssignments returns the SIM slot to network mapping.
func (h *Handler) SimAssignments(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.store.SimAssignments())
}

// AssignSim maps a SIM slot to a network.
func (h *Handler) AssignSim(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Slot      string `json:"slot"`
		NetworkID string `json:"network_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Slot != models.SimSlot1 && req.Slot != models.SimSlot2 {
		respondError(w, http.StatusBadRequest, "unknown SIM slot")
		return
	}
	if err := h.store.AssignSimToNetwork(req.Slot, req.NetworkID); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, h.store.SimAssignments())
}

// ListTransactions returns the ledger, optionally filtered by network.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	if networkID := r.URL.Query().Get("network"); networkID != "" {
		respondJSON(w, http.StatusOK, h.store.TransactionsByNetwork(networkID))
		return
	}
	respondJSON(w, http.StatusOK, h.store.Transactions())
}

type operationRequest struct {
	NetworkID     string  `json:"network_id"`
	AgentPhone    string  `json:"agent_phone"`
	CustomerPhone string  `json:"customer_phone"`
	FromAccountID string  `json:"from_account_id"`
	ToPhone       string  `json:"to_phone"`
	Phone         string  `json:"phone"`
	BillerID      string  `json:"biller_id"`
	AccountNumber string  `json:"account_number"`
	Amount        float64 `json:"amount"`
	Description   string  `json:"description"`
	Reference     string  `json:"reference"`
}

type operationResponse struct {
	Result      momo.TransferResult `json:"result"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
}

func (h *Handler) respondOperation(w http.ResponseWriter, res momo.TransferResult, txn *models.Transaction, err error) {
	if err != nil {
		if errors.Is(err, network.ErrUnknownNetwork) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadGateway
	}
	respondJSON(w, status, operationResponse{Result: res, Transaction: txn})
}

// CashIn performs a cash-in on the given network.
func (h *Handler) CashIn(w http.ResponseWriter, r *http.Request) {
	var req operationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, txn, err := h.svc.CashIn(r.Context(), req.NetworkID, req.AgentPhone, req.CustomerPhone, req.Amount)
	h.respondOperation(w, res, txn, err)
}

// CashOut performs a cash-out on the given network.
func (h *Handler) CashOut(w http.ResponseWriter, r *http.Request) {
	var req operationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, txn, err := h.svc.CashOut(r.Context(), req.NetworkID, req.AgentPhone, req.CustomerPhone, req.Amount)
	h.respondOperation(w, res, txn, err)
}

// SendMoney performs a transfer on the given network.
func (h *Handler) SendMoney(w http.ResponseWriter, r *http.Request) {
	var req operationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, txn, err := h.svc.SendMoney(r.Context(), req.NetworkID, req.FromAccountID, req.ToPhone, req.Amount, req.Description)
	h.respondOperation(w, res, txn, err)
}

// BuyAirtime performs an airtime top-up on the given network.
func (h *Handler) BuyAirtime(w http.ResponseWriter, r *http.Request) {
	var req operationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, txn, err := h.svc.BuyAirtime(r.Context(), req.NetworkID, req.Phone, req.Amount)
	h.respondOperation(w, res, txn, err)
}

// PayBill performs a bill payment on the given network.
func (h *Handler) PayBill(w http.ResponseWriter, r *http.Request) {
	var req operationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, txn, err := h.svc.PayBill(r.Context(), req.NetworkID, req.BillerID, req.AccountNumber, req.Amount, req.Reference)
	h.respondOperation(w, res, txn, err)
}

// TransactionStatus polls the remote status of a transaction.
func (h *Handler) TransactionStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	res, err := h.svc.TransactionStatus(r.Context(), vars["networkId"], vars["transactionId"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// Billers lists a network's supported bill-payment providers.
func (h *Handler) Billers(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	res, err := h.svc.Billers(r.Context(), vars["networkId"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// Balance returns the balance for one network, live when possible.
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	balance, err := h.svc.NetworkBalance(r.Context(), vars["networkId"], r.URL.Query().Get("account"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, balance)
}

// Balances fans balance checks out across networks.
func (h *Handler) Balances(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountIDs map[string]string `json:"account_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	respondJSON(w, http.StatusOK, h.svc.Balances(r.Context(), req.AccountIDs))
}

// AuthenticateNetworks logs into every configured network.
func (h *Handler) AuthenticateNetworks(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Credentials map[string]momo.Credentials `json:"credentials"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	respondJSON(w, http.StatusOK, h.svc.AuthenticateNetworks(r.Context(), req.Credentials))
}

// ReportSummary aggregates the ledger over an optional date range.
func (h *Handler) ReportSummary(w http.ResponseWriter, r *http.Request) {
	var rng reports.Range
	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid from timestamp")
			return
		}
		rng.From = t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid to timestamp")
			return
		}
		rng.To = t
	}
	respondJSON(w, http.StatusOK, reports.Summarize(h.store.Transactions(), rng))
}

// ReportStatement exports the ledger as an XML statement.
func (h *Handler) ReportStatement(w http.ResponseWriter, r *http.Request) {
	out, err := reports.ExportXML(h.svc.Profile(r.Context()), h.store.Transactions(), time.Now())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

// Profile returns the agent profile.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.Profile(r.Context()))
}

// UpdateProfile persists the agent profile.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var p models.Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.SaveProfile(r.Context(), p); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// SecuritySettings returns the agent's security preferences.
func (h *Handler) SecuritySettings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.SecuritySettings(r.Context()))
}

// UpdateSecuritySettings persists new security preferences.
func (h *Handler) UpdateSecuritySettings(w http.ResponseWriter, r *http.Request) {
	var settings models.SecuritySettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.SaveSecuritySettings(r.Context(), settings); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, settings)
}
