package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mopay/agent-service/internal/config"
	"github.com/mopay/agent-service/internal/integrations/momo"
	"github.com/mopay/agent-service/internal/models"
	"github.com/mopay/agent-service/internal/storage"
	"github.com/mopay/agent-service/internal/store"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Secure-store keys owned by this layer.
const (
	agentPINKey         = "mopay_agent_pin"
	securitySettingsKey = "mopay_security_settings"
	profileKey          = "profile"
)

// Agent commission charged on every completed operation.
const commissionRate = 0.025

// BalanceSource identifies where a balance figure came from.
type BalanceSource string

const (
	BalanceSourceLive   BalanceSource = "live"
	BalanceSourceCached BalanceSource = "cached"
)

// NetworkBalance is a balance figure together with its provenance. Callers
// should trust Source == "live"; "cached" means the live call failed and the
// figure is the locally derived account sum.
type NetworkBalance struct {
	NetworkID string        `json:"network_id"`
	Balance   float64       `json:"balance"`
	Currency  string        `json:"currency,omitempty"`
	Source    BalanceSource `json:"source"`
	Error     string        `json:"error,omitempty"`
}

// Service implements the agent-facing operations on top of the store and the
// per-network API clients.
type Service struct {
	store   *store.Store
	manager *momo.Manager
	secrets storage.SecureStore
	app     storage.AppStore
	cfg     *config.Config
	log     *logrus.Logger
}

// NewService initializes the agent service.
func NewService(st *store.Store, manager *momo.Manager, secrets storage.SecureStore, app storage.AppStore, cfg *config.Config, log *logrus.Logger) *Service {
	return &Service{store: st, manager: manager, secrets: secrets, app: app, cfg: cfg, log: log}
}

// SetPIN stores a bcrypt hash of the agent PIN.
func (s *Service) SetPIN(ctx context.Context, pin string) error {
	if len(pin) < 4 {
		return fmt.Errorf("PIN must be at least 4 digits")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash PIN: %w", err)
	}
	if err := s.secrets.Set(ctx, agentPINKey, string(hash)); err != nil {
		return fmt.Errorf("failed to store PIN: %w", err)
	}
	s.log.Info("Agent PIN updated")
	return nil
}

// HasPIN reports whether an agent PIN has been set.
func (s *Service) HasPIN(ctx context.Context) bool {
	_, err := s.secrets.Get(ctx, agentPINKey)
	return err == nil
}

// Login verifies the agent PIN and returns a session JWT.
func (s *Service) Login(ctx context.Context, pin string) (string, error) {
	hash, err := s.secrets.Get(ctx, agentPINKey)
	if err != nil {
		return "", fmt.Errorf("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)); err != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	ttl := time.Duration(s.cfg.SessionTTLHrs) * time.Hour
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "agent",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	})
	tokenString, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Info("Agent logged in")
	return tokenString, nil
}

// SecuritySettings returns the stored security preferences, or the defaults
// when none have been saved yet.
func (s *Service) SecuritySettings(ctx context.Context) models.SecuritySettings {
	raw, err := s.secrets.Get(ctx, securitySettingsKey)
	if err != nil {
		return models.DefaultSecuritySettings()
	}
	var settings models.SecuritySettings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		s.log.Warnf("failed to decode security settings: %v", err)
		return models.DefaultSecuritySettings()
	}
	return settings
}

// SaveSecuritySettings persists the agent's security preferences.
func (s *Service) SaveSecuritySettings(ctx context.Context, settings models.SecuritySettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode security settings: %w", err)
	}
	return s.secrets.Set(ctx, securitySettingsKey, string(raw))
}

// Profile returns the stored agent profile, seeding and persisting a default
// one on first use.
func (s *Service) Profile(ctx context.Context) models.Profile {
	raw, err := s.app.Get(ctx, profileKey)
	if err == nil {
		var p models.Profile
		if err := json.Unmarshal([]byte(raw), &p); err == nil {
			return p
		}
		s.log.Warnf("failed to decode stored profile: %v", err)
	}

	p := models.Profile{
		ID:       fmt.Sprintf("agent_%d", time.Now().Unix()),
		Name:     "MoPay Agent",
		Location: "Accra, Ghana",
		Joined:   time.Now().UTC().Format("2006-01-02"),
	}
	if encoded, err := json.Marshal(p); err == nil {
		if err := s.app.Set(ctx, profileKey, string(encoded)); err != nil {
			s.log.Warnf("failed to seed profile: %v", err)
		}
	}
	return p
}

// SaveProfile persists the agent profile.
func (s *Service) SaveProfile(ctx context.Context, p models.Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	return s.app.Set(ctx, profileKey, string(raw))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// record writes a completed operation to the ledger with the agent commission.
func (s *Service) record(networkID, txnType string, amount float64, phone string, reference *string, remoteStatus string) models.Transaction {
	status := remoteStatus
	if status == "" {
		status = models.StatusSuccess
	}
	return s.store.AddTransaction(models.Transaction{
		NetworkID:  networkID,
		Type:       txnType,
		Amount:     amount,
		Phone:      phone,
		Reference:  reference,
		Status:     status,
		Commission: round2(amount * commissionRate),
	})
}

// CashIn deposits cash into a customer wallet and records the transaction.
// A remote failure records nothing; the result carries the error message.
func (s *Service) CashIn(ctx context.Context, networkID, agentPhone, customerPhone string, amount float64) (momo.TransferResult, *models.Transaction, error) {
	client, err := s.manager.ClientFor(networkID)
	if err != nil {
		return momo.TransferResult{}, nil, err
	}
	res := client.CashIn(ctx, agentPhone, customerPhone, amount)
	if !res.Success {
		return res, nil, nil
	}
	txn := s.record(networkID, models.TxnCashIn, amount, customerPhone, nil, res.Status)
	return res, &txn, nil
}

// CashOut pays cash out of a customer wallet and records the transaction.
func (s *Service) CashOut(ctx context.Context, networkID, agentPhone, customerPhone string, amount float64) (momo.TransferResult, *models.Transaction, error) {
	client, err := s.manager.ClientFor(networkID)
	if err != nil {
		return momo.TransferResult{}, nil, err
	}
	res := client.CashOut(ctx, agentPhone, customerPhone, amount)
	if !res.Success {
		return res, nil, nil
	}
	txn := s.record(networkID, models.TxnCashOut, amount, customerPhone, nil, res.Status)
	return res, &txn, nil
}

// SendMoney transfers funds to a phone number and records the transaction.
func (s *Service) SendMoney(ctx context.Context, networkID, fromAccountID, toPhone string, amount float64, description string) (momo.TransferResult, *models.Transaction, error) {
	client, err := s.manager.ClientFor(networkID)
	if err != nil {
		return momo.TransferResult{}, nil, err
	}
	res := client.SendMoney(ctx, fromAccountID, toPhone, amount, description)
	if !res.Success {
		return res, nil, nil
	}
	txn := s.record(networkID, models.TxnSendMoney, amount, toPhone, nil, res.Status)
	return res, &txn, nil
}

// BuyAirtime tops up airtime and records the transaction.
func (s *Service) BuyAirtime(ctx context.Context, networkID, phone string, amount float64) (momo.TransferResult, *models.Transaction, error) {
	client, err := s.manager.ClientFor(networkID)
	if err != nil {
		return momo.TransferResult{}, nil, err
	}
	res := client.BuyAirtime(ctx, phone, amount)
	if !res.Success {
		return res, nil, nil
	}
	txn := s.record(networkID, models.TxnBuyAirtime, amount, phone, nil, res.Status)
	return res, &txn, nil
}

// PayBill settles a bill and records the transaction with its reference.
func (s *Service) PayBill(ctx context.Context, networkID, billerID, accountNumber string, amount float64, reference string) (momo.TransferResult, *models.Transaction, error) {
	client, err := s.manager.ClientFor(networkID)
	if err != nil {
		return momo.TransferResult{}, nil, err
	}
	res := client.PayBill(ctx, billerID, accountNumber, amount, reference)
	if !res.Success {
		return res, nil, nil
	}
	var ref *string
	if reference != "" {
		ref = &reference
	}
	txn := s.record(networkID, models.TxnPayBill, amount, accountNumber, ref, res.Status)
	return res, &txn, nil
}

// NetworkBalance prefers the live API figure for an account and falls back to
// the locally derived sum of the network's accounts when the live call fails
// or no account id is known.
func (s *Service) NetworkBalance(ctx context.Context, networkID, accountID string) (NetworkBalance, error) {
	client, err := s.manager.ClientFor(networkID)
	if err != nil {
		return NetworkBalance{}, err
	}

	var liveErr string
	if accountID != "" {
		res := client.GetBalance(ctx, accountID)
		if res.Success {
			return NetworkBalance{
				NetworkID: networkID,
				Balance:   res.Balance,
				Currency:  res.Currency,
				Source:    BalanceSourceLive,
			}, nil
		}
		liveErr = res.Error
	}

	return NetworkBalance{
		NetworkID: networkID,
		Balance:   s.store.TotalBalance(networkID),
		Source:    BalanceSourceCached,
		Error:     liveErr,
	}, nil
}

// AuthenticateNetworks logs into every configured network.
func (s *Service) AuthenticateNetworks(ctx context.Context, creds map[string]momo.Credentials) map[string]momo.AuthResult {
	return s.manager.AuthenticateAll(ctx, creds)
}

// Balances fans balance checks out across networks.
func (s *Service) Balances(ctx context.Context, accountIDs map[string]string) map[string]momo.BalanceResult {
	return s.manager.AllBalances(ctx, accountIDs)
}

// TransactionStatus polls the remote status of a transaction.
func (s *Service) TransactionStatus(ctx context.Context, networkID, transactionID string) (momo.StatusResult, error) {
	client, err := s.manager.ClientFor(networkID)
	if err != nil {
		return momo.StatusResult{}, err
	}
	return client.CheckTransactionStatus(ctx, transactionID), nil
}

// Billers lists a network's supported bill-payment providers.
func (s *Service) Billers(ctx context.Context, networkID string) (momo.BillersResult, error) {
	client, err := s.manager.ClientFor(networkID)
	if err != nil {
		return momo.BillersResult{}, err
	}
	return client.GetSupportedBillers(ctx), nil
}
