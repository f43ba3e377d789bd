package momo

import (
	"context"
	"sync"

	"github.com/mopay/agent-service/internal/network"
	"github.com/mopay/agent-service/internal/storage"
	"github.com/sirupsen/logrus"
)

// Manager hands out one lazily-built client per network and fans queries out
// across all of them. Clients are cached by network id and never recreated.
type Manager struct {
	registry *network.Registry
	cfg      Config
	secrets  storage.SecureStore
	log      *logrus.Logger

	mu      sync.Mutex
	clients map[string]*Client
}

// NewManager initializes a manager over the given registry.
func NewManager(registry *network.Registry, cfg Config, secrets storage.SecureStore, log *logrus.Logger) *Manager {
	return &Manager{
		registry: registry,
		cfg:      cfg,
		secrets:  secrets,
		log:      log,
		clients:  make(map[string]*Client),
	}
}

// ClientFor returns the cached client for a network, building it on first use.
func (m *Manager) ClientFor(networkID string) (*Client, error) {
	net, err := m.registry.Get(networkID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, exists := m.clients[networkID]; exists {
		return c, nil
	}
	c := NewClient(net, m.cfg, m.secrets, m.log)
	m.clients[networkID] = c
	return c, nil
}

// AuthenticateAll logs into every configured network independently. A missing
// credentials entry still produces an attempt (and a recorded rejection);
// one network's failure never blocks another's result.
func (m *Manager) AuthenticateAll(ctx context.Context, creds map[string]Credentials) map[string]AuthResult {
	results := make(map[string]AuthResult)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, net := range m.registry.All() {
		wg.Add(1)
		go func(networkID string) {
			defer wg.Done()
			client, err := m.ClientFor(networkID)
			if err != nil {
				return
			}
			res := client.Authenticate(ctx, creds[networkID])
			mu.Lock()
			results[networkID] = res
			mu.Unlock()
		}(net.ID)
	}

	wg.Wait()
	return results
}

// AllBalances fetches balances across networks, skipping entries with no
// account id. Each network's result stands alone.
func (m *Manager) AllBalances(ctx context.Context, accountIDs map[string]string) map[string]BalanceResult {
	results := make(map[string]BalanceResult)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for networkID, accountID := range accountIDs {
		if accountID == "" {
			continue
		}
		wg.Add(1)
		go func(networkID, accountID string) {
			defer wg.Done()
			client, err := m.ClientFor(networkID)
			if err != nil {
				mu.Lock()
				results[networkID] = BalanceResult{Result: failed(err.Error())}
				mu.Unlock()
				return
			}
			res := client.GetBalance(ctx, accountID)
			mu.Lock()
			results[networkID] = res
			mu.Unlock()
		}(networkID, accountID)
	}

	wg.Wait()
	return results
}
