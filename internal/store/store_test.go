package store

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/mopay/agent-service/internal/models"
	"github.com/mopay/agent-service/internal/network"
	"github.com/mopay/agent-service/internal/storage"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestStore() (*Store, *storage.MemoryKV, *storage.MemoryKV) {
	secrets := storage.NewMemoryKV()
	app := storage.NewMemoryKV()
	s := New(network.NewRegistry(network.Defaults()), secrets, app, testLogger())
	return s, secrets, app
}

func TestAddTransactionLedgerIsNewestFirst(t *testing.T) {
	s, _, _ := newTestStore()

	var ids []string
	for i := 0; i < 5; i++ {
		txn := s.AddTransaction(models.Transaction{
			NetworkID: "mtn",
			Type:      models.TxnCashIn,
			Amount:    float64(i + 1),
			Status:    models.StatusSuccess,
		})
		ids = append(ids, txn.ID)
	}

	ledger := s.Transactions()
	if len(ledger) != 5 {
		t.Fatalf("expected 5 ledger entries, got %d", len(ledger))
	}
	for i, txn := range ledger {
		// Newest first: position 0 holds the last call.
		want := ids[len(ids)-1-i]
		if txn.ID != want {
			t.Fatalf("position %d: expected id %q, got %q", i, want, txn.ID)
		}
	}

	seen := make(map[string]bool)
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate transaction id %q", id)
		}
		seen[id] = true
	}
}

func TestSimAssignmentLastWriteWins(t *testing.T) {
	s, _, _ := newTestStore()

	if err := s.AssignSimToNetwork(models.SimSlot1, "mtn"); err != nil {
		t.Fatalf("AssignSimToNetwork returned error: %v", err)
	}
	if err := s.AssignSimToNetwork(models.SimSlot1, "vodafone"); err != nil {
		t.Fatalf("AssignSimToNetwork returned error: %v", err)
	}

	networkID, ok := s.SimAssignment(models.SimSlot1)
	if !ok {
		t.Fatal("expected sim1 to be assigned")
	}
	if networkID != "vodafone" {
		t.Fatalf("expected last write to win, got %q", networkID)
	}
	if len(s.SimAssignments()) != 1 {
		t.Fatalf("expected exactly one assignment for the slot")
	}
}

func TestAssignSimToUnknownNetworkFails(t *testing.T) {
	s, _, _ := newTestStore()

	err := s.AssignSimToNetwork(models.SimSlot2, "glo")
	if !errors.Is(err, network.ErrUnknownNetwork) {
		t.Fatalf("expected ErrUnknownNetwork, got %v", err)
	}
	if _, ok := s.SimAssignment(models.SimSlot2); ok {
		t.Fatal("failed assignment must not be recorded")
	}
}

func TestAddRemoveAccountRoundTrip(t *testing.T) {
	s, _, _ := newTestStore()

	before := s.Accounts("mtn")

	acc, err := s.AddAccount("mtn", models.Account{PhoneNumber: "0241234567"})
	if err != nil {
		t.Fatalf("AddAccount returned error: %v", err)
	}
	if acc.ID == "" || acc.CreatedAt == "" || !acc.IsActive {
		t.Fatalf("account not fully initialized: %+v", acc)
	}
	if acc.NetworkID != "mtn" {
		t.Fatalf("expected network id to be set, got %q", acc.NetworkID)
	}

	s.RemoveAccount("mtn", acc.ID)

	after := s.Accounts("mtn")
	if len(after) != len(before) {
		t.Fatalf("expected account list restored, got %d entries", len(after))
	}
}

func TestRemoveUnknownAccountIsNoOp(t *testing.T) {
	s, _, _ := newTestStore()

	if _, err := s.AddAccount("mtn", models.Account{PhoneNumber: "0241234567"}); err != nil {
		t.Fatalf("AddAccount returned error: %v", err)
	}
	s.RemoveAccount("mtn", "mtn_999")
	if len(s.Accounts("mtn")) != 1 {
		t.Fatal("removing an unknown id must not touch other accounts")
	}
}

func TestAddAccountUnknownNetworkFails(t *testing.T) {
	s, _, _ := newTestStore()

	_, err := s.AddAccount("glo", models.Account{PhoneNumber: "0241234567"})
	if !errors.Is(err, network.ErrUnknownNetwork) {
		t.Fatalf("expected ErrUnknownNetwork, got %v", err)
	}
}

func TestTotalBalance(t *testing.T) {
	s, _, _ := newTestStore()

	if got := s.TotalBalance("mtn"); got != 0 {
		t.Fatalf("empty account set must sum to 0, got %f", got)
	}

	// No balance supplied: defaults to zero.
	if _, err := s.AddAccount("mtn", models.Account{PhoneNumber: "0241234567"}); err != nil {
		t.Fatalf("AddAccount returned error: %v", err)
	}
	if got := s.TotalBalance("mtn"); got != 0 {
		t.Fatalf("missing balance must count as 0, got %f", got)
	}

	if _, err := s.AddAccount("mtn", models.Account{PhoneNumber: "0551112233", Balance: 150.25}); err != nil {
		t.Fatalf("AddAccount returned error: %v", err)
	}
	if _, err := s.AddAccount("vodafone", models.Account{PhoneNumber: "0201112233", Balance: 40}); err != nil {
		t.Fatalf("AddAccount returned error: %v", err)
	}

	if got := s.TotalBalance("mtn"); got != 150.25 {
		t.Fatalf("expected 150.25, got %f", got)
	}
	if got := s.TotalBalance("vodafone"); got != 40 {
		t.Fatalf("expected 40, got %f", got)
	}
}

func TestTransactionsByNetworkFilters(t *testing.T) {
	s, _, _ := newTestStore()

	s.AddTransaction(models.Transaction{NetworkID: "mtn", Type: models.TxnCashIn, Amount: 50, Status: models.StatusSuccess})
	s.AddTransaction(models.Transaction{NetworkID: "vodafone", Type: models.TxnCashOut, Amount: 20, Status: models.StatusSuccess})

	mtn := s.TransactionsByNetwork("mtn")
	if len(mtn) != 1 {
		t.Fatalf("expected exactly one mtn transaction, got %d", len(mtn))
	}
	if mtn[0].Amount != 50 || mtn[0].Type != models.TxnCashIn {
		t.Fatalf("unexpected transaction: %+v", mtn[0])
	}

	if got := s.TransactionsByNetwork("airteltigo"); len(got) != 0 {
		t.Fatalf("expected no airteltigo transactions, got %d", len(got))
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	s, secrets, app := newTestStore()
	ctx := context.Background()

	acc, err := s.AddAccount("mtn", models.Account{PhoneNumber: "0241234567", Balance: 75})
	if err != nil {
		t.Fatalf("AddAccount returned error: %v", err)
	}
	if err := s.AssignSimToNetwork(models.SimSlot1, "mtn"); err != nil {
		t.Fatalf("AssignSimToNetwork returned error: %v", err)
	}
	txn := s.AddTransaction(models.Transaction{NetworkID: "mtn", Type: models.TxnCashIn, Amount: 50, Status: models.StatusSuccess})
	s.Flush()

	// Accounts and SIM assignments live in the secure store, the ledger in
	// app storage.
	if _, err := secrets.Get(ctx, "mopay_accounts"); err != nil {
		t.Fatalf("accounts not persisted to secure store: %v", err)
	}
	if _, err := secrets.Get(ctx, "mopay_sim_assignments"); err != nil {
		t.Fatalf("sim assignments not persisted to secure store: %v", err)
	}
	if _, err := app.Get(ctx, "mopay_transactions"); err != nil {
		t.Fatalf("transactions not persisted to app storage: %v", err)
	}

	reloaded := New(network.NewRegistry(network.Defaults()), secrets, app, testLogger())
	reloaded.Load(ctx)

	accounts := reloaded.Accounts("mtn")
	if len(accounts) != 1 || accounts[0].ID != acc.ID || accounts[0].Balance != 75 {
		t.Fatalf("reloaded accounts mismatch: %+v", accounts)
	}
	if networkID, ok := reloaded.SimAssignment(models.SimSlot1); !ok || networkID != "mtn" {
		t.Fatalf("reloaded sim assignment mismatch: %q", networkID)
	}
	ledger := reloaded.Transactions()
	if len(ledger) != 1 || ledger[0].ID != txn.ID {
		t.Fatalf("reloaded ledger mismatch: %+v", ledger)
	}
}

func TestLoadWithNothingPersistedStartsEmpty(t *testing.T) {
	s, _, _ := newTestStore()
	s.Load(context.Background())

	if got := s.Transactions(); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil ledger, got %#v", got)
	}
	if got := s.SimAssignments(); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil assignments, got %#v", got)
	}
	if got := s.Accounts("mtn"); len(got) != 0 {
		t.Fatalf("expected no accounts, got %d", len(got))
	}
}
