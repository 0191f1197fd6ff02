package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// MineBlock drains the mempool against a shadow balance/nonce simulation
// and assembles (but does not commit) the next block. Signature-invalid
// and unknown-sender transactions are dropped for good; nonce-order or
// balance rejects are returned to the front of the mempool, in their
// original order, ahead of anything submitted while mining ran. If nothing
// is accepted, the mempool is left exactly as it was (minus those
// permanently-dropped transactions) and ErrEmptyBlock is returned.
func (e *Engine) MineBlock(proposer Address) (*Block, error) {
	shadow := e.accounts.SnapshotBalances()
	expected := make(map[Address]uint64)

	accepted := e.mempool.process(func(pending []Transaction) (accepted, requeue []Transaction) {
		for _, tx := range pending {
			wallet, ok := e.accounts.Get(tx.From)
			if !ok {
				e.logger.Warnf("mine: dropping %s: sender %s unknown", tx.TxID, tx.From)
				continue
			}
			if !verifyTransaction(wallet.PublicKey, tx) {
				e.logger.Warnf("mine: dropping %s: signature verification failed", tx.TxID)
				continue
			}
			if _, seen := expected[tx.From]; !seen {
				expected[tx.From] = e.accounts.LastAppliedNonce(tx.From)
			}
			if tx.Nonce != expected[tx.From]+1 {
				e.logger.Warnf("mine: requeuing %s: nonce %d != expected %d", tx.TxID, tx.Nonce, expected[tx.From]+1)
				requeue = append(requeue, tx)
				continue
			}
			cost := tx.Amount + tx.Fee
			if shadow[tx.From] < cost {
				e.logger.Warnf("mine: requeuing %s: sender %s balance %d < %d", tx.TxID, tx.From, shadow[tx.From], cost)
				requeue = append(requeue, tx)
				continue
			}
			shadow[tx.From] -= cost
			shadow[tx.To] += tx.Amount
			expected[tx.From] = tx.Nonce
			accepted = append(accepted, tx)
		}
		return accepted, requeue
	})

	if len(accepted) == 0 {
		return nil, ErrEmptyBlock
	}

	tip := e.chain.Tip()
	index := tip.Index + 1
	timestamp := uint64(time.Now().Unix())
	stateRoot := computeStateRoot(shadow)
	hash := computeBlockHash(index, timestamp, tip.Hash, stateRoot, txIDsOf(accepted))

	block := &Block{
		Index:        index,
		Timestamp:    timestamp,
		PrevHash:     tip.Hash,
		Transactions: accepted,
		Proposer:     proposer,
		StateRoot:    stateRoot,
		Hash:         hash,
	}
	e.logger.WithFields(logrus.Fields{"index": index, "tx_count": len(accepted)}).Info("block mined")
	return block, nil
}

// AddBlock validates block against the current chain tip and, if
// structurally sound, applies its transactions and commits it. Wallet
// mutations are staged and persisted before any live in-memory state is
// touched, so a PersistenceError never leaves the account store
// partially updated.
func (e *Engine) AddBlock(block *Block) error {
	e.chain.mu.Lock()
	defer e.chain.mu.Unlock()

	tip := e.chain.blocks[len(e.chain.blocks)-1]
	if block.Index != tip.Index+1 {
		return fmt.Errorf("block %d: expected index %d: %w", block.Index, tip.Index+1, ErrBadIndex)
	}
	if block.PrevHash != tip.Hash {
		return fmt.Errorf("block %d: prev_hash mismatch: %w", block.Index, ErrBadLink)
	}
	recomputed := computeBlockHash(block.Index, block.Timestamp, block.PrevHash, block.StateRoot, txIDsOf(block.Transactions))
	if recomputed != block.Hash {
		return fmt.Errorf("block %d: hash mismatch: %w", block.Index, ErrBadHash)
	}

	now := uint64(time.Now().Unix())
	staged, err := e.accounts.PrepareBlock(block.Transactions, block.Index, now)
	if err != nil {
		return err
	}

	blockBlob, err := json.Marshal(block)
	if err != nil {
		return fmt.Errorf("encode block %d: %w", block.Index, err)
	}
	if err := e.store.Put(blockKey(block.Index), blockBlob); err != nil {
		e.logger.Errorf("add block %d: persist block: %v", block.Index, err)
		return err
	}
	for addr, w := range staged.wallets {
		blob, err := json.Marshal(w)
		if err != nil {
			return fmt.Errorf("encode wallet %s: %w", addr, err)
		}
		if err := e.store.Put(walletKey(addr), blob); err != nil {
			e.logger.Errorf("add block %d: persist wallet %s: %v", block.Index, addr, err)
			return err
		}
	}
	if err := e.store.Flush(); err != nil {
		e.logger.Errorf("add block %d: flush: %v", block.Index, err)
		return err
	}

	e.accounts.CommitBlock(staged)
	e.chain.blocks = append(e.chain.blocks, block)
	e.logger.WithFields(logrus.Fields{"index": block.Index, "tx_count": len(block.Transactions)}).Info("block applied")
	return nil
}
