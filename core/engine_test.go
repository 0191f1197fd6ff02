package core

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
)

func tmpEnginePath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "ledger.db")
}

func mustOpen(t *testing.T, initial map[Address]uint64) *Engine {
	t.Helper()
	e, err := Open(tmpEnginePath(t), initial)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return e
}

func mineAndAdd(t *testing.T, e *Engine, proposer Address) *Block {
	t.Helper()
	block, err := e.MineBlock(proposer)
	if err != nil {
		t.Fatalf("MineBlock: %v", err)
	}
	if err := e.AddBlock(block); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	return block
}

// The genesis block's proposer is the literal "system", per spec.md §3.
func TestOpenGenesisProposerIsSystem(t *testing.T) {
	e := mustOpen(t, map[Address]uint64{"alice": 1000})

	genesis, ok := e.chain.BlockAt(0)
	if !ok {
		t.Fatalf("expected a genesis block at index 0")
	}
	if genesis.Proposer != "system" {
		t.Fatalf("genesis proposer = %q, want %q", genesis.Proposer, "system")
	}
}

// S1: single transfer, fee = 1.
func TestScenarioS1SingleTransfer(t *testing.T) {
	e := mustOpen(t, map[Address]uint64{"alice": 1000, "bob": 500})

	txID, err := e.CreateTransaction("alice", "bob", 100)
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if txID == "" {
		t.Fatalf("expected non-empty tx id")
	}
	if got := e.mempool.Len(); got != 1 {
		t.Fatalf("mempool size = %d, want 1", got)
	}

	mineAndAdd(t, e, "proposer")

	if got := e.GetBalance("alice"); got != 899 {
		t.Fatalf("alice balance = %d, want 899", got)
	}
	if got := e.GetBalance("bob"); got != 600 {
		t.Fatalf("bob balance = %d, want 600", got)
	}
	if got := e.accounts.TotalBalance(); got != 1499 {
		t.Fatalf("total_coins = %d, want 1499", got)
	}
}

// S2: 100 small transfers from the same sender, consecutive nonces.
func TestScenarioS2ManyTransfersSameSender(t *testing.T) {
	e := mustOpen(t, map[Address]uint64{"alice": 1000})

	for i := 0; i < 100; i++ {
		if _, err := e.CreateTransaction("alice", "bob", 1); err != nil {
			t.Fatalf("CreateTransaction #%d: %v", i, err)
		}
	}

	block := mineAndAdd(t, e, "proposer")
	if len(block.Transactions) != 100 {
		t.Fatalf("block tx count = %d, want 100", len(block.Transactions))
	}
	for i, tx := range block.Transactions {
		if tx.Nonce != uint64(i+1) {
			t.Fatalf("tx[%d].Nonce = %d, want %d", i, tx.Nonce, i+1)
		}
	}

	if got := e.GetBalance("alice"); got != 800 {
		t.Fatalf("alice balance = %d, want 800", got)
	}
	if got := e.GetBalance("bob"); got != 100 {
		t.Fatalf("bob balance = %d, want 100", got)
	}
	txs, err := e.GetUserTransactions("alice")
	if err != nil {
		t.Fatalf("GetUserTransactions: %v", err)
	}
	if len(txs) != 100 {
		t.Fatalf("alice tx history len = %d, want 100", len(txs))
	}
}

// S3: deterministic leaderboard ordering.
func TestScenarioS3Leaderboard(t *testing.T) {
	e := mustOpen(t, map[Address]uint64{"alice": 1000, "bob": 500, "charlie": 750})

	board := e.GetLeaderboard()
	want := []Address{"alice", "charlie", "bob"}
	if len(board) != len(want) {
		t.Fatalf("leaderboard len = %d, want %d", len(board), len(want))
	}
	for i, addr := range want {
		if board[i].Address != addr {
			t.Fatalf("leaderboard[%d] = %s, want %s", i, board[i].Address, addr)
		}
	}
}

// S4: zero amount is rejected and never touches the mempool.
func TestScenarioS4InvalidAmount(t *testing.T) {
	e := mustOpen(t, map[Address]uint64{"alice": 1000, "bob": 500})

	_, err := e.CreateTransaction("alice", "bob", 0)
	if err == nil {
		t.Fatalf("expected error for zero amount")
	}
	if !isErr(err, ErrInvalidAmount) {
		t.Fatalf("err = %v, want ErrInvalidAmount", err)
	}
	if got := e.mempool.Len(); got != 0 {
		t.Fatalf("mempool size = %d, want 0", got)
	}
}

// S5: insufficient funds is rejected before touching the mempool.
func TestScenarioS5InsufficientFunds(t *testing.T) {
	e := mustOpen(t, map[Address]uint64{"alice": 10})

	_, err := e.CreateTransaction("alice", "bob", 11)
	if !isErr(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
}

// S6: balances and nonce continuity survive a close/reopen, and signing
// still round-trips afterward.
func TestScenarioS6ReloadRoundTrip(t *testing.T) {
	path := tmpEnginePath(t)
	e, err := Open(path, map[Address]uint64{"alice": 1000, "bob": 500})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := e.CreateTransaction("alice", "bob", 100); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	mineAndAdd(t, e, "proposer")
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := reloaded.GetBalance("alice"); got != 899 {
		t.Fatalf("reloaded alice balance = %d, want 899", got)
	}

	txID, err := reloaded.CreateTransaction("alice", "charlie", 50)
	if err != nil {
		t.Fatalf("CreateTransaction after reload: %v", err)
	}
	var pending Transaction
	for _, tx := range reloaded.GetPending() {
		if tx.TxID == txID {
			pending = tx
		}
	}
	if pending.TxID == "" {
		t.Fatalf("pending tx %s not found", txID)
	}
	if pending.Nonce != 2 {
		t.Fatalf("nonce after reload = %d, want 2 (continuing from S1's nonce 1)", pending.Nonce)
	}
	wallet, err := reloaded.GetWallet("alice")
	if err != nil {
		t.Fatalf("GetWallet: %v", err)
	}
	if !verifyTransaction(wallet.PublicKey, pending) {
		t.Fatalf("signature verification failed after reload")
	}
}

// S7: a corrupted on-disk block hash is caught by verify_chain after reload.
func TestScenarioS7CorruptedBlockFailsVerify(t *testing.T) {
	path := tmpEnginePath(t)
	e, err := Open(path, map[Address]uint64{"alice": 1000, "bob": 500})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := e.CreateTransaction("alice", "bob", 100); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	mineAndAdd(t, e, "proposer")
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	store, err := OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	blob, ok, err := store.Get(blockKey(1))
	if err != nil || !ok {
		t.Fatalf("Get block:1: ok=%v err=%v", ok, err)
	}
	// Flip one byte of the stored hash value, leaving the JSON decodable.
	corrupted := append([]byte(nil), blob...)
	marker := []byte(`"hash":"`)
	at := bytes.Index(corrupted, marker)
	if at < 0 {
		t.Fatalf("block:1 record has no hash field: %s", blob)
	}
	corrupted[at+len(marker)] ^= 0x01
	if err := store.Put(blockKey(1), corrupted); err != nil {
		t.Fatalf("Put corrupted block: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close store: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reloaded.VerifyChain() {
		t.Fatalf("expected VerifyChain to fail on a corrupted block")
	}
}

func TestMineBlockEmptyWhenNothingAccepted(t *testing.T) {
	e := mustOpen(t, map[Address]uint64{"alice": 1000})
	if _, err := e.CreateTransaction("alice", "bob", 10); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	// Manually corrupt the pending transaction's signature so mining rejects it.
	pending := e.mempool.Snapshot()
	pending[0].Signature = "not-a-real-signature"
	e.mempool.queue = pending

	_, err := e.MineBlock("proposer")
	if !isErr(err, ErrEmptyBlock) {
		t.Fatalf("err = %v, want ErrEmptyBlock", err)
	}
	if got := e.mempool.Len(); got != 0 {
		t.Fatalf("mempool size = %d, want 0 (signature failure permanently dropped)", got)
	}
}

func TestMineBlockRequeuesNonceGaps(t *testing.T) {
	e := mustOpen(t, map[Address]uint64{"alice": 1000, "bob": 500})
	if _, err := e.CreateTransaction("alice", "bob", 100); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if _, err := e.CreateTransaction("alice", "bob", 50); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	// Forge a gap: drop the first pending tx so only nonce 2 remains.
	pending := e.mempool.Snapshot()
	e.mempool.queue = []Transaction{pending[1]}

	_, err := e.MineBlock("proposer")
	if !isErr(err, ErrEmptyBlock) {
		t.Fatalf("err = %v, want ErrEmptyBlock (nonce 2 before nonce 1 is seen)", err)
	}
	if got := e.mempool.Len(); got != 1 {
		t.Fatalf("mempool size = %d, want 1 (requeued, not dropped)", got)
	}
}

func isErr(err, target error) bool {
	return errors.Is(err, target)
}
