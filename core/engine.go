package core

// Engine is the single entry point callers hold: one *Engine per open
// node, wrapping a *Store, a *Chain, a *Mempool, and an *AccountStore. This
// mirrors the teacher's own Ledger (one struct behind a handful of
// narrowly-scoped mutexes) rather than an actor/channel model — simpler,
// and sufficient per the allowance that a single-threaded-safe
// implementation is acceptable.

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

type Engine struct {
	store    *Store
	chain    *Chain
	mempool  *Mempool
	accounts *AccountStore
	logger   *logrus.Logger
}

// SetLogger overrides the logger e uses for every subsequent call, mirroring
// wallet.go's SetWalletLogger/globalLogger injection point. A nil l installs
// logrus.StandardLogger().
func (e *Engine) SetLogger(l *logrus.Logger) {
	if l == nil {
		l = logrus.StandardLogger()
	}
	e.logger = l
}

// Open creates a brand new ledger at path, seeding wallets with the given
// initial balances, and persists the genesis block immediately.
func Open(path string, initial map[Address]uint64) (*Engine, error) {
	for addr := range initial {
		if err := validateAddress(addr); err != nil {
			return nil, fmt.Errorf("open: %w", err)
		}
	}
	store, err := OpenStore(path)
	if err != nil {
		return nil, err
	}
	accounts := newAccountStore()
	now := uint64(time.Now().Unix())
	for addr, bal := range initial {
		w := accounts.CreateWallet(addr, bal, now)
		blob, err := json.Marshal(w)
		if err != nil {
			return nil, fmt.Errorf("encode genesis wallet %s: %w", addr, err)
		}
		if err := store.Put(walletKey(addr), blob); err != nil {
			return nil, err
		}
	}
	genesis := &Block{
		Index:        0,
		Timestamp:    now,
		PrevHash:     "0",
		Transactions: []Transaction{},
		Proposer:     "system",
		StateRoot:    computeStateRoot(accounts.SnapshotBalances()),
		Hash:         "genesis",
	}
	blob, err := json.Marshal(genesis)
	if err != nil {
		return nil, fmt.Errorf("encode genesis block: %w", err)
	}
	if err := store.Put(blockKey(0), blob); err != nil {
		return nil, err
	}
	logger := logrus.StandardLogger()
	logger.WithFields(logrus.Fields{"path": path, "wallets": len(initial)}).Info("ledger opened")
	return &Engine{
		store:    store,
		chain:    newChain(genesis),
		mempool:  newMempool(),
		accounts: accounts,
		logger:   logger,
	}, nil
}

// Load reopens an existing ledger at path, restoring the wallet map from
// persisted wallet records and replaying persisted blocks to rebuild the
// in-memory chain, nonce cursors, and transaction index. The mempool is never persisted and always starts empty.
func Load(path string) (*Engine, error) {
	store, err := OpenStore(path)
	if err != nil {
		return nil, err
	}
	accounts := newAccountStore()

	walletPairs, err := store.ScanPrefix([]byte(walletKeyPrefix))
	if err != nil {
		return nil, err
	}
	for _, pair := range walletPairs {
		var w Wallet
		if err := json.Unmarshal(pair.Value, &w); err != nil {
			return nil, fmt.Errorf("decode %s: %w", pair.Key, err)
		}
		accounts.restoreWallet(w)
	}

	blockPairs, err := store.ScanPrefix([]byte(blockKeyPrefix))
	if err != nil {
		return nil, err
	}
	blocks := make([]*Block, 0, len(blockPairs))
	for _, pair := range blockPairs {
		var b Block
		if err := json.Unmarshal(pair.Value, &b); err != nil {
			return nil, fmt.Errorf("decode %s: %w", pair.Key, err)
		}
		blocks = append(blocks, &b)
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("load %s: no genesis block: %w", path, ErrPersistence)
	}
	for _, b := range blocks {
		for pos, tx := range b.Transactions {
			idx := TransactionIndex{TxID: tx.TxID, BlockIndex: b.Index, Position: pos}
			accounts.appendTxIndex(tx.From, idx)
			accounts.appendTxIndex(tx.To, idx)
			accounts.restoreNonceCursor(tx.From, tx.Nonce)
		}
	}

	logger := logrus.StandardLogger()
	logger.WithFields(logrus.Fields{"path": path, "height": blocks[len(blocks)-1].Index}).Info("ledger loaded")
	return &Engine{
		store:    store,
		chain:    newChainFromBlocks(blocks),
		mempool:  newMempool(),
		accounts: accounts,
		logger:   logger,
	}, nil
}

// Close releases the underlying store handle.
func (e *Engine) Close() error {
	return e.store.Close()
}

// GetWallet returns the wallet for addr.
func (e *Engine) GetWallet(addr Address) (*Wallet, error) {
	w, ok := e.accounts.Get(addr)
	if !ok {
		return nil, fmt.Errorf("wallet %s: %w", addr, ErrNotFound)
	}
	return w, nil
}

// GetBalance returns the balance of addr (0 if it has no wallet).
func (e *Engine) GetBalance(addr Address) uint64 {
	return e.accounts.Balance(addr)
}

// GetLeaderboard returns every wallet ordered by descending balance.
func (e *Engine) GetLeaderboard() []Wallet {
	return e.accounts.Leaderboard()
}

// GetUserTransactions resolves every transaction addr has sent or received,
// in application order.
func (e *Engine) GetUserTransactions(addr Address) ([]Transaction, error) {
	indices := e.accounts.UserTransactions(addr)
	out := make([]Transaction, 0, len(indices))
	for _, idx := range indices {
		block, ok := e.chain.BlockAt(idx.BlockIndex)
		if !ok || idx.Position >= len(block.Transactions) {
			return nil, fmt.Errorf("resolve tx %s: %w", idx.TxID, ErrNotFound)
		}
		out = append(out, block.Transactions[idx.Position])
	}
	return out, nil
}

// GetPending returns a copy of the pending mempool queue.
func (e *Engine) GetPending() []Transaction {
	return e.mempool.Snapshot()
}

// GetChain returns the full committed chain.
func (e *Engine) GetChain() []Block {
	return e.chain.Blocks()
}

// VerifyChain checks hash linkage across the whole committed chain.
func (e *Engine) VerifyChain() bool {
	return e.chain.Verify()
}

// Stats aggregates the get_stats surface.
func (e *Engine) Stats() Stats {
	return Stats{
		ChainHeight:       e.chain.Height(),
		TotalBlocks:       e.chain.Height() + 1,
		TotalWallets:      e.accounts.Count(),
		TotalTransactions: e.chain.TotalTransactions(),
		Pending:           e.mempool.Len(),
		TotalCoins:        e.accounts.TotalBalance(),
		IsValid:           e.chain.Verify(),
	}
}
