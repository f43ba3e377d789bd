package momo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mopay/agent-service/internal/models"
	"github.com/mopay/agent-service/internal/network"
	"github.com/mopay/agent-service/internal/storage"
)

func balanceServer(t *testing.T, balance float64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"balance": balance, "currency": "GHS"})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func failingServer(t *testing.T, message string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"message": message})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testManager(registry *network.Registry) *Manager {
	cfg := Config{Timeout: 2 * time.Second, RetryAttempts: 1, RetryDelay: time.Millisecond}
	return NewManager(registry, cfg, storage.NewMemoryKV(), testLogger())
}

func TestClientForCachesPerNetwork(t *testing.T) {
	m := testManager(network.NewRegistry(network.Defaults()))

	first, err := m.ClientFor("mtn")
	if err != nil {
		t.Fatalf("ClientFor returned error: %v", err)
	}
	second, err := m.ClientFor("mtn")
	if err != nil {
		t.Fatalf("ClientFor returned error: %v", err)
	}
	if first != second {
		t.Fatal("expected the same client instance on repeat lookups")
	}

	if _, err := m.ClientFor("glo"); !errors.Is(err, network.ErrUnknownNetwork) {
		t.Fatalf("expected ErrUnknownNetwork, got %v", err)
	}
}

func TestAllBalancesIsolatesFailures(t *testing.T) {
	mtn := balanceServer(t, 100)
	airtel := failingServer(t, "maintenance window")
	vodafone := balanceServer(t, 250.5)

	registry := network.NewRegistry([]models.Network{
		{ID: "mtn", APIBaseURL: mtn.URL},
		{ID: "airteltigo", APIBaseURL: airtel.URL},
		{ID: "vodafone", APIBaseURL: vodafone.URL},
	})

	results := testManager(registry).AllBalances(context.Background(), map[string]string{
		"mtn":        "acc-mtn",
		"airteltigo": "acc-at",
		"vodafone":   "acc-voda",
	})

	if len(results) != 3 {
		t.Fatalf("expected a result per queried network, got %d", len(results))
	}
	if !results["mtn"].Success || results["mtn"].Balance != 100 {
		t.Fatalf("unexpected mtn result: %+v", results["mtn"])
	}
	if !results["vodafone"].Success || results["vodafone"].Balance != 250.5 {
		t.Fatalf("unexpected vodafone result: %+v", results["vodafone"])
	}
	if results["airteltigo"].Success {
		t.Fatal("expected airteltigo to fail")
	}
	if results["airteltigo"].Error != "maintenance window" {
		t.Fatalf("expected server message, got %q", results["airteltigo"].Error)
	}
}

func TestAllBalancesSkipsBlankAccountIDs(t *testing.T) {
	mtn := balanceServer(t, 42)
	registry := network.NewRegistry([]models.Network{
		{ID: "mtn", APIBaseURL: mtn.URL},
		{ID: "vodafone", APIBaseURL: "http://127.0.0.1:0"},
	})

	results := testManager(registry).AllBalances(context.Background(), map[string]string{
		"mtn":      "acc-mtn",
		"vodafone": "",
	})

	if len(results) != 1 {
		t.Fatalf("expected the blank entry to be skipped, got %d results", len(results))
	}
	if !results["mtn"].Success {
		t.Fatalf("unexpected mtn result: %+v", results["mtn"])
	}
}

func TestAllBalancesRecordsUnknownNetwork(t *testing.T) {
	results := testManager(network.NewRegistry(network.Defaults())).AllBalances(context.Background(), map[string]string{
		"glo": "acc-glo",
	})

	res, exists := results["glo"]
	if !exists {
		t.Fatal("expected a failed result for the unknown network")
	}
	if res.Success {
		t.Fatal("expected failure")
	}
}

func TestAuthenticateAllContinuesPastFailures(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"accessToken": "tok", "refreshToken": "ref"})
	}))
	defer good.Close()
	bad := failingServer(t, "wrong PIN")

	registry := network.NewRegistry([]models.Network{
		{ID: "mtn", APIBaseURL: good.URL},
		{ID: "vodafone", APIBaseURL: bad.URL},
	})

	results := testManager(registry).AuthenticateAll(context.Background(), map[string]Credentials{
		"mtn":      {PhoneNumber: "0241234567", PIN: "1234"},
		"vodafone": {PhoneNumber: "0201234567", PIN: "1234"},
	})

	if len(results) != 2 {
		t.Fatalf("expected results for every network, got %d", len(results))
	}
	if !results["mtn"].Success {
		t.Fatalf("unexpected mtn result: %+v", results["mtn"])
	}
	if results["vodafone"].Success || results["vodafone"].Error != "wrong PIN" {
		t.Fatalf("unexpected vodafone result: %+v", results["vodafone"])
	}
}
