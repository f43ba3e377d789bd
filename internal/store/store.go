package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mopay/agent-service/internal/models"
	"github.com/mopay/agent-service/internal/network"
	"github.com/mopay/agent-service/internal/storage"
	"github.com/sirupsen/logrus"
)

// Persisted collection keys. Accounts and SIM assignments are considered
// sensitive and live in the secure store; the ledger goes to app storage.
const (
	accountsKey       = "mopay_accounts"
	simAssignmentsKey = "mopay_sim_assignments"
	transactionsKey   = "mopay_transactions"
)

// Store owns the agent's accounts, SIM-to-network assignments and the
// transaction ledger. Mutations update memory synchronously and persist the
// affected collection in the background; a persistence failure is logged and
// never rolls back the in-memory state.
type Store struct {
	registry *network.Registry
	secrets  storage.SecureStore
	app      storage.AppStore
	log      *logrus.Logger

	mu             sync.Mutex
	accounts       map[string][]models.Account
	simAssignments map[string]string
	transactions   []models.Transaction
	lastStamp      int64

	writes sync.WaitGroup
}

// New initializes an empty store. Call Load to pick up persisted state.
func New(registry *network.Registry, secrets storage.SecureStore, app storage.AppStore, log *logrus.Logger) *Store {
	return &Store{
		registry:       registry,
		secrets:        secrets,
		app:            app,
		log:            log,
		accounts:       make(map[string][]models.Account),
		simAssignments: make(map[string]string),
		transactions:   []models.Transaction{},
	}
}

// Load reads the persisted collections. A missing key leaves the matching
// collection empty; an unreadable value is logged and skipped so one corrupt
// collection cannot take the others down.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if raw, err := s.secrets.Get(ctx, accountsKey); err == nil {
		if err := json.Unmarshal([]byte(raw), &s.accounts); err != nil {
			s.log.Warnf("failed to decode saved accounts: %v", err)
			s.accounts = make(map[string][]models.Account)
		}
	} else if err != storage.ErrNotFound {
		s.log.Warnf("failed to load saved accounts: %v", err)
	}

	if raw, err := s.secrets.Get(ctx, simAssignmentsKey); err == nil {
		if err := json.Unmarshal([]byte(raw), &s.simAssignments); err != nil {
			s.log.Warnf("failed to decode saved SIM assignments: %v", err)
			s.simAssignments = make(map[string]string)
		}
	} else if err != storage.ErrNotFound {
		s.log.Warnf("failed to load saved SIM assignments: %v", err)
	}

	if raw, err := s.app.Get(ctx, transactionsKey); err == nil {
		if err := json.Unmarshal([]byte(raw), &s.transactions); err != nil {
			s.log.Warnf("failed to decode saved transactions: %v", err)
			s.transactions = []models.Transaction{}
		}
	} else if err != storage.ErrNotFound {
		s.log.Warnf("failed to load saved transactions: %v", err)
	}
}

// nextStamp returns the current unix-millisecond clock, bumped forward when
// two mutations land in the same millisecond so generated ids stay unique and
// sortable. Caller must hold s.mu.
func (s *Store) nextStamp() int64 {
	now := time.Now().UnixMilli()
	if now <= s.lastStamp {
		now = s.lastStamp + 1
	}
	s.lastStamp = now
	return now
}

// persistAsync writes one collection in the background.
func (s *Store) persistAsync(what string, write func(context.Context) error) {
	s.writes.Add(1)
	go func() {
		defer s.writes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := write(ctx); err != nil {
			s.log.Warnf("failed to persist %s: %v", what, err)
		}
	}()
}

// Flush blocks until all in-flight persistence writes have completed.
// Intended for shutdown and for tests that need deterministic state on disk.
func (s *Store) Flush() {
	s.writes.Wait()
}

// AddAccount registers a new account under the given network. The network id
// must exist in the registry; an unknown id is a caller bug and returns
// network.ErrUnknownNetwork.
func (s *Store) AddAccount(networkID string, account models.Account) (models.Account, error) {
	if _, err := s.registry.Get(networkID); err != nil {
		return models.Account{}, err
	}

	s.mu.Lock()
	stamp := s.nextStamp()
	account.ID = fmt.Sprintf("%s_%d", networkID, stamp)
	account.NetworkID = networkID
	account.CreatedAt = time.UnixMilli(stamp).UTC().Format(time.RFC3339)
	account.IsActive = true
	s.accounts[networkID] = append(s.accounts[networkID], account)
	snapshot, err := json.Marshal(s.accounts)
	s.mu.Unlock()

	if err != nil {
		s.log.Warnf("failed to encode accounts: %v", err)
	} else {
		s.persistAsync("accounts", func(ctx context.Context) error {
			return s.secrets.Set(ctx, accountsKey, string(snapshot))
		})
	}
	return account, nil
}

// RemoveAccount drops the matching account from a network's list. Removing an
// unknown account id is a no-op.
func (s *Store) RemoveAccount(networkID, accountID string) {
	s.mu.Lock()
	list := s.accounts[networkID]
	filtered := make([]models.Account, 0, len(list))
	for _, acc := range list {
		if acc.ID != accountID {
			filtered = append(filtered, acc)
		}
	}
	s.accounts[networkID] = filtered
	snapshot, err := json.Marshal(s.accounts)
	s.mu.Unlock()

	if err != nil {
		s.log.Warnf("failed to encode accounts: %v", err)
		return
	}
	s.persistAsync("accounts", func(ctx context.Context) error {
		return s.secrets.Set(ctx, accountsKey, string(snapshot))
	})
}

// AssignSimToNetwork maps a physical SIM slot to a network, replacing any
// prior assignment for that slot.
func (s *Store) AssignSimToNetwork(simSlot, networkID string) error {
	if _, err := s.registry.Get(networkID); err != nil {
		return err
	}

	s.mu.Lock()
	s.simAssignments[simSlot] = networkID
	snapshot, err := json.Marshal(s.simAssignments)
	s.mu.Unlock()

	if err != nil {
		s.log.Warnf("failed to encode SIM assignments: %v", err)
		return nil
	}
	s.persistAsync("sim assignments", func(ctx context.Context) error {
		return s.secrets.Set(ctx, simAssignmentsKey, string(snapshot))
	})
	return nil
}

// AddTransaction stamps the record and prepends it to the ledger, so the
// ledger is always newest-first. The stored record is returned.
func (s *Store) AddTransaction(txn models.Transaction) models.Transaction {
	s.mu.Lock()
	stamp := s.nextStamp()
	txn.ID = fmt.Sprintf("txn_%d", stamp)
	txn.Timestamp = time.UnixMilli(stamp).UTC().Format(time.RFC3339)
	s.transactions = append([]models.Transaction{txn}, s.transactions...)
	snapshot, err := json.Marshal(s.transactions)
	s.mu.Unlock()

	if err != nil {
		s.log.Warnf("failed to encode transactions: %v", err)
	} else {
		s.persistAsync("transactions", func(ctx context.Context) error {
			return s.app.Set(ctx, transactionsKey, string(snapshot))
		})
	}
	return txn
}

// Accounts returns a copy of the account list for one network.
func (s *Store) Accounts(networkID string) []models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Account, len(s.accounts[networkID]))
	copy(out, s.accounts[networkID])
	return out
}

// AllAccounts returns a copy of every network's account list.
func (s *Store) AllAccounts() map[string][]models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]models.Account, len(s.accounts))
	for networkID, list := range s.accounts {
		out[networkID] = append([]models.Account(nil), list...)
	}
	return out
}

// SimAssignment returns the network assigned to a slot, if any.
func (s *Store) SimAssignment(simSlot string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	networkID, ok := s.simAssignments[simSlot]
	return networkID, ok
}

// SimAssignments returns a copy of the full slot-to-network mapping.
func (s *Store) SimAssignments() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.simAssignments))
	for slot, networkID := range s.simAssignments {
		out[slot] = networkID
	}
	return out
}

// Transactions returns a copy of the full ledger, newest first.
func (s *Store) Transactions() []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}

// TransactionsByNetwork filters the ledger by network, preserving order.
func (s *Store) TransactionsByNetwork(networkID string) []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Transaction{}
	for _, txn := range s.transactions {
		if txn.NetworkID == networkID {
			out = append(out, txn)
		}
	}
	return out
}

// TotalBalance sums the balances of a network's accounts. This is a local
// approximation; the live API figure is authoritative when available.
func (s *Store) TotalBalance(networkID string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total float64
	for _, acc := range s.accounts[networkID] {
		total += acc.Balance
	}
	return total
}
