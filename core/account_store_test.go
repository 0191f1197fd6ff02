package core

import (
	"sync"
	"testing"
)

func TestNextNonceMonotoneUnderConcurrency(t *testing.T) {
	as := newAccountStore()
	as.CreateWallet("alice", 1_000_000, 0)

	const n = 200
	results := make([]uint64, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			results[i] = as.NextNonce("alice")
		}()
	}
	wg.Wait()

	seen := make(map[uint64]bool, n)
	for _, nonce := range results {
		if nonce < 1 || nonce > n {
			t.Fatalf("nonce %d out of range [1,%d]", nonce, n)
		}
		if seen[nonce] {
			t.Fatalf("nonce %d issued twice", nonce)
		}
		seen[nonce] = true
	}
}

func TestLeaderboardDeterministicTieBreak(t *testing.T) {
	as := newAccountStore()
	as.CreateWallet("zed", 100, 0)
	as.CreateWallet("amy", 100, 0)
	as.CreateWallet("bob", 250, 0)

	board := as.Leaderboard()
	want := []Address{"bob", "amy", "zed"}
	for i, addr := range want {
		if board[i].Address != addr {
			t.Fatalf("leaderboard[%d] = %s, want %s", i, board[i].Address, addr)
		}
	}
}

func TestEnsureWalletDoesNotOverwrite(t *testing.T) {
	as := newAccountStore()
	as.CreateWallet("alice", 500, 0)

	w := as.EnsureWallet("alice", 1)
	if w.Balance != 500 {
		t.Fatalf("EnsureWallet overwrote existing wallet: balance = %d, want 500", w.Balance)
	}
}

func TestPrepareBlockRejectsInsufficientFunds(t *testing.T) {
	as := newAccountStore()
	as.CreateWallet("alice", 10, 0)

	tx := Transaction{From: "alice", To: "bob", Amount: 100, Fee: 1, Nonce: 1, TxID: "x"}
	if _, err := as.PrepareBlock([]Transaction{tx}, 1, 0); !isErr(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
}

func TestCommitBlockUpdatesNonceAndTxIndex(t *testing.T) {
	as := newAccountStore()
	as.CreateWallet("alice", 1000, 0)

	tx := Transaction{From: "alice", To: "bob", Amount: 100, Fee: 1, Nonce: 1, TxID: "tx-1"}
	staged, err := as.PrepareBlock([]Transaction{tx}, 1, 5)
	if err != nil {
		t.Fatalf("PrepareBlock: %v", err)
	}
	as.CommitBlock(staged)

	if got := as.Balance("alice"); got != 899 {
		t.Fatalf("alice balance = %d, want 899", got)
	}
	if got := as.Balance("bob"); got != 100 {
		t.Fatalf("bob balance = %d, want 100", got)
	}
	if got := as.LastAppliedNonce("alice"); got != 1 {
		t.Fatalf("alice applied nonce = %d, want 1", got)
	}
	if got := as.NextNonce("alice"); got != 2 {
		t.Fatalf("alice next nonce = %d, want 2 (continues from applied)", got)
	}
	txs := as.UserTransactions("bob")
	if len(txs) != 1 || txs[0].TxID != "tx-1" {
		t.Fatalf("bob tx index = %+v, want one entry for tx-1", txs)
	}
}
