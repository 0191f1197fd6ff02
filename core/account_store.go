package core

// AccountStore holds the live wallet/nonce/tx-index state as shard-locked
// hash maps, generalizing the teacher's single-mutex AccountManager
// (account_and_balance_operations.go) into the sharded design spec.md §9
// calls for: concurrent submissions from different senders hash to
// different shards and never block each other.

import (
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
)

const numShards = 32

type accountShard struct {
	mu      sync.RWMutex
	wallets map[Address]*Wallet
	nonces  map[Address]uint64
	applied map[Address]uint64
	txIndex map[Address][]TransactionIndex
}

// AccountStore is the account-model state: wallets, next-nonce-issued
// counters, last-applied nonces (used by block mining), and per-address
// transaction indices.
type AccountStore struct {
	shards [numShards]*accountShard
}

func newAccountStore() *AccountStore {
	as := &AccountStore{}
	for i := range as.shards {
		as.shards[i] = &accountShard{
			wallets: make(map[Address]*Wallet),
			nonces:  make(map[Address]uint64),
			applied: make(map[Address]uint64),
			txIndex: make(map[Address][]TransactionIndex),
		}
	}
	return as
}

func shardIndex(addr Address) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(addr))
	return int(h.Sum32() % numShards)
}

func (as *AccountStore) shardFor(addr Address) *accountShard {
	return as.shards[shardIndex(addr)]
}

// CreateWallet inserts (or overwrites) a wallet with the given balance. Used
// at genesis and when restoring persisted state.
func (as *AccountStore) CreateWallet(addr Address, balance uint64, now uint64) *Wallet {
	w := &Wallet{
		Address:     addr,
		PublicKey:   derivePublicKey(addr),
		Balance:     balance,
		CreatedAt:   now,
		LastUpdated: now,
	}
	shard := as.shardFor(addr)
	shard.mu.Lock()
	shard.wallets[addr] = w
	shard.mu.Unlock()
	cp := *w
	return &cp
}

// restoreWallet installs w verbatim, used only while replaying a loaded
// chain where the exact persisted fields (including stamps) must survive.
func (as *AccountStore) restoreWallet(w Wallet) {
	shard := as.shardFor(w.Address)
	shard.mu.Lock()
	shard.wallets[w.Address] = &w
	shard.mu.Unlock()
}

// EnsureWallet creates a zero-balance wallet for addr if one doesn't
// already exist. Unlike CreateWallet it never overwrites an existing
// wallet, so two concurrent callers racing to pay the same first-time
// recipient can't clobber each other's credit.
func (as *AccountStore) EnsureWallet(addr Address, now uint64) *Wallet {
	shard := as.shardFor(addr)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	if w, ok := shard.wallets[addr]; ok {
		cp := *w
		return &cp
	}
	w := &Wallet{Address: addr, PublicKey: derivePublicKey(addr), CreatedAt: now, LastUpdated: now}
	shard.wallets[addr] = w
	cp := *w
	return &cp
}

// Get returns a copy of the wallet at addr, if any.
func (as *AccountStore) Get(addr Address) (*Wallet, bool) {
	shard := as.shardFor(addr)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	w, ok := shard.wallets[addr]
	if !ok {
		return nil, false
	}
	cp := *w
	return &cp, true
}

// Balance returns the balance of addr, or 0 if it has no wallet.
func (as *AccountStore) Balance(addr Address) uint64 {
	w, ok := as.Get(addr)
	if !ok {
		return 0
	}
	return w.Balance
}

// NextNonce atomically increments and returns the next-nonce-issued counter
// for addr. The first call for a fresh address returns 1.
func (as *AccountStore) NextNonce(addr Address) uint64 {
	shard := as.shardFor(addr)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	shard.nonces[addr]++
	return shard.nonces[addr]
}

// restoreNonceCursor is used only while replaying a loaded chain: it sets
// both the next-issued and last-applied counters to nonce so that a fresh
// create_transaction call after Load continues the sequence rather than
// restarting it.
func (as *AccountStore) restoreNonceCursor(addr Address, nonce uint64) {
	shard := as.shardFor(addr)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	if nonce > shard.nonces[addr] {
		shard.nonces[addr] = nonce
	}
	shard.applied[addr] = nonce
}

// LastAppliedNonce returns the nonce of the most recently committed
// transaction sent by addr, or 0 if none has ever been applied.
func (as *AccountStore) LastAppliedNonce(addr Address) uint64 {
	shard := as.shardFor(addr)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	return shard.applied[addr]
}

func (as *AccountStore) appendTxIndex(addr Address, idx TransactionIndex) {
	shard := as.shardFor(addr)
	shard.mu.Lock()
	shard.txIndex[addr] = append(shard.txIndex[addr], idx)
	shard.mu.Unlock()
}

// UserTransactions returns a copy of every TransactionIndex recorded for
// addr, in the order they were applied.
func (as *AccountStore) UserTransactions(addr Address) []TransactionIndex {
	shard := as.shardFor(addr)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	out := make([]TransactionIndex, len(shard.txIndex[addr]))
	copy(out, shard.txIndex[addr])
	return out
}

// Count returns the number of wallets across every shard.
func (as *AccountStore) Count() int {
	total := 0
	for _, shard := range as.shards {
		shard.mu.RLock()
		total += len(shard.wallets)
		shard.mu.RUnlock()
	}
	return total
}

// SnapshotBalances returns a copy of every wallet's balance, used as the
// shadow ledger during mining and to compute the state root. Shards are
// locked sequentially (never more than one at a time), so this cannot
// deadlock against any other AccountStore operation; the copy is not atomic
// across shards, so a CommitBlock running at the same time may show up in
// some shards and not in others.
func (as *AccountStore) SnapshotBalances() map[Address]uint64 {
	out := make(map[Address]uint64)
	for _, shard := range as.shards {
		shard.mu.RLock()
		for addr, w := range shard.wallets {
			out[addr] = w.Balance
		}
		shard.mu.RUnlock()
	}
	return out
}

// TotalBalance sums every wallet's balance.
func (as *AccountStore) TotalBalance() uint64 {
	var total uint64
	for _, shard := range as.shards {
		shard.mu.RLock()
		for _, w := range shard.wallets {
			total += w.Balance
		}
		shard.mu.RUnlock()
	}
	return total
}

// Leaderboard returns every wallet ordered by descending balance, breaking
// ties by ascending address so the ordering is deterministic across calls.
func (as *AccountStore) Leaderboard() []Wallet {
	out := make([]Wallet, 0, as.Count())
	for _, shard := range as.shards {
		shard.mu.RLock()
		for _, w := range shard.wallets {
			out = append(out, *w)
		}
		shard.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Balance != out[j].Balance {
			return out[i].Balance > out[j].Balance
		}
		return out[i].Address < out[j].Address
	})
	return out
}

// stagedBlock holds the wallet/tx-index/nonce mutations produced by applying
// a block's transactions, computed without touching live AccountStore state.
// Engine.AddBlock persists from this staged copy before committing it, so a
// persistence failure never leaves live state half-updated.
type stagedBlock struct {
	wallets      map[Address]*Wallet
	txIndexAdds  map[Address][]TransactionIndex
	appliedNonce map[Address]uint64
}

// PrepareBlock simulates applying txs (in order) against a snapshot of
// current wallet state and returns the resulting mutations. It does not
// modify the account store. now stamps created_at/last_updated for any
// wallet touched.
func (as *AccountStore) PrepareBlock(txs []Transaction, blockIndex uint64, now uint64) (*stagedBlock, error) {
	sb := &stagedBlock{
		wallets:      make(map[Address]*Wallet),
		txIndexAdds:  make(map[Address][]TransactionIndex),
		appliedNonce: make(map[Address]uint64),
	}
	get := func(addr Address) *Wallet {
		if w, ok := sb.wallets[addr]; ok {
			return w
		}
		if w, ok := as.Get(addr); ok {
			sb.wallets[addr] = w
			return w
		}
		w := &Wallet{Address: addr, PublicKey: derivePublicKey(addr), CreatedAt: now, LastUpdated: now}
		sb.wallets[addr] = w
		return w
	}
	for pos, tx := range txs {
		sender := get(tx.From)
		cost := tx.Amount + tx.Fee
		if sender.Balance < cost {
			return nil, fmt.Errorf("apply %s: sender %s: %w", tx.TxID, tx.From, ErrInsufficientFunds)
		}
		sender.Balance -= cost
		sender.TxCount++
		sender.LastUpdated = now

		recipient := get(tx.To)
		recipient.Balance += tx.Amount
		recipient.TxCount++
		recipient.LastUpdated = now

		idx := TransactionIndex{TxID: tx.TxID, BlockIndex: blockIndex, Position: pos}
		sb.txIndexAdds[tx.From] = append(sb.txIndexAdds[tx.From], idx)
		sb.txIndexAdds[tx.To] = append(sb.txIndexAdds[tx.To], idx)
		sb.appliedNonce[tx.From] = tx.Nonce
	}
	return sb, nil
}

// CommitBlock merges a staged block's mutations into live state. A shard
// lock is taken for one address at a time and released before the next,
// so no two shards are ever held simultaneously and this cannot deadlock. Returns the mutated wallets for
// the caller to persist or log.
func (as *AccountStore) CommitBlock(sb *stagedBlock) []*Wallet {
	mutated := make([]*Wallet, 0, len(sb.wallets))
	for addr, w := range sb.wallets {
		shard := as.shardFor(addr)
		cp := *w
		shard.mu.Lock()
		shard.wallets[addr] = &cp
		shard.mu.Unlock()
		mutated = append(mutated, w)
	}
	for addr, adds := range sb.txIndexAdds {
		shard := as.shardFor(addr)
		shard.mu.Lock()
		shard.txIndex[addr] = append(shard.txIndex[addr], adds...)
		shard.mu.Unlock()
	}
	for addr, nonce := range sb.appliedNonce {
		shard := as.shardFor(addr)
		shard.mu.Lock()
		shard.applied[addr] = nonce
		if nonce > shard.nonces[addr] {
			shard.nonces[addr] = nonce
		}
		shard.mu.Unlock()
	}
	return mutated
}
