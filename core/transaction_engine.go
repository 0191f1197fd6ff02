package core

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// MaxAmount bounds a single transfer; spec.md §3 requires amount be a
// positive integer, and this keeps fee arithmetic comfortably within
// uint64 range.
const MaxAmount = 1_000_000_000_000

// CreateTransaction validates, signs, and enqueues a transfer of amount
// from `from` to `to`. The recipient wallet is created with a zero balance
// if it doesn't already exist. Returns the new transaction's ID.
func (e *Engine) CreateTransaction(from, to Address, amount uint64) (string, error) {
	if amount == 0 || amount > MaxAmount {
		return "", fmt.Errorf("amount %d: %w", amount, ErrInvalidAmount)
	}
	if err := validateAddress(to); err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}
	sender, ok := e.accounts.Get(from)
	if !ok {
		return "", fmt.Errorf("sender %s: %w", from, ErrUnknownSender)
	}
	fee := calcFee(amount)
	if sender.Balance < amount+fee {
		return "", fmt.Errorf("sender %s needs %d, has %d: %w", from, amount+fee, sender.Balance, ErrInsufficientFunds)
	}
	e.accounts.EnsureWallet(to, uint64(time.Now().Unix()))

	nonce := e.accounts.NextNonce(from)
	timestamp := uint64(time.Now().Unix())
	txID := fmt.Sprintf("%s-%s-%d-%d", from, to, nonce, timestamp)
	signature := signTxID(from, txID)

	tx := Transaction{
		From:      from,
		To:        to,
		Amount:    amount,
		Fee:       fee,
		Timestamp: timestamp,
		Nonce:     nonce,
		TxID:      txID,
		Signature: signature,
	}
	e.mempool.Add(tx)
	e.logger.WithFields(logrus.Fields{"tx_id": txID, "from": from, "to": to, "amount": amount}).Info("transaction submitted")
	return txID, nil
}
