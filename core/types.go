package core

import (
	"fmt"
	"regexp"
)

// addressPattern matches the printable identifier grammar an Address must
// satisfy: 1-255 characters drawn from the base62 alphabet plus '_' and '-'.
var addressPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,255}$`)

// Address identifies a wallet. Unlike the teacher's fixed 20-byte Address,
// this is a caller-chosen printable string: the signing key is derived from
// it on demand rather than the other way around.
type Address string

func validateAddress(addr Address) error {
	if !addressPattern.MatchString(string(addr)) {
		return fmt.Errorf("%q: %w", string(addr), ErrInvalidAddress)
	}
	return nil
}

// Wallet is the persisted, in-memory state for one address. It never carries
// signing key material: the key is always re-derived from Address on demand.
type Wallet struct {
	Address     Address  `json:"address"`
	PublicKey   [32]byte `json:"public_key"`
	Balance     uint64   `json:"balance"`
	TxCount     uint64   `json:"tx_count"`
	CreatedAt   uint64   `json:"created_at"`
	LastUpdated uint64   `json:"last_updated"`
}

// String renders a Wallet for logs without ever implying key material is
// stored alongside it.
func (w *Wallet) String() string {
	return fmt.Sprintf("wallet{%s balance=%d tx_count=%d}", w.Address, w.Balance, w.TxCount)
}

// Transaction is a signed transfer of Amount (plus Fee) from From to To.
// TxID doubles as the message signed by From's derived key.
type Transaction struct {
	From      Address `json:"from"`
	To        Address `json:"to"`
	Amount    uint64  `json:"amount"`
	Fee       uint64  `json:"fee"`
	Timestamp uint64  `json:"timestamp"`
	Nonce     uint64  `json:"nonce"`
	TxID      string  `json:"tx_id"`
	Signature string  `json:"signature"`
}

// Block is one committed unit of the chain log.
type Block struct {
	Index        uint64        `json:"index"`
	Timestamp    uint64        `json:"timestamp"`
	PrevHash     string        `json:"prev_hash"`
	Transactions []Transaction `json:"transactions"`
	Proposer     Address       `json:"proposer"`
	StateRoot    string        `json:"state_root"`
	Hash         string        `json:"hash"`
}

// TransactionIndex locates one transaction within the chain log, used to
// answer get_user_transactions without scanning every block.
type TransactionIndex struct {
	TxID       string `json:"tx_id"`
	BlockIndex uint64 `json:"block_index"`
	Position   int    `json:"position"`
}

// Stats is the aggregate returned by get_stats.
type Stats struct {
	ChainHeight       uint64 `json:"chain_height"`
	TotalBlocks       uint64 `json:"total_blocks"`
	TotalWallets      int    `json:"total_wallets"`
	TotalTransactions uint64 `json:"total_transactions"`
	Pending           int    `json:"pending"`
	TotalCoins        uint64 `json:"total_coins"`
	IsValid           bool   `json:"is_valid"`
}
