package core

import (
	"encoding/binary"
	"encoding/hex"
	"sort"
)

// computeStateRoot hashes the sorted (address, balance) pairs of balances,
// giving a single digest that commits to the whole account state at a point
// in time.
func computeStateRoot(balances map[Address]uint64) string {
	keys := make([]string, 0, len(balances))
	for a := range balances {
		keys = append(keys, string(a))
	}
	sort.Strings(keys)
	parts := make([][]byte, 0, len(keys)*2)
	for _, k := range keys {
		parts = append(parts, []byte(k))
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, balances[Address(k)])
		parts = append(parts, b)
	}
	digest := HashBytes(parts...)
	return hex.EncodeToString(digest[:])
}

// computeBlockHash commits to a block's identity: its position, timestamp,
// link to the previous block, state root, and the ordered list of included
// transaction IDs.
func computeBlockHash(index, timestamp uint64, prevHash, stateRoot string, txIDs []string) string {
	indexBuf := make([]byte, 8)
	binary.LittleEndian.PutUint64(indexBuf, index)
	tsBuf := make([]byte, 8)
	binary.LittleEndian.PutUint64(tsBuf, timestamp)

	parts := [][]byte{indexBuf, tsBuf, []byte(prevHash), []byte(stateRoot)}
	for _, id := range txIDs {
		parts = append(parts, []byte(id))
	}
	digest := HashBytes(parts...)
	return hex.EncodeToString(digest[:])
}

// calcFee computes ceil(amount * 0.01) using integer arithmetic, clamped to
// a minimum of 1, so consensus-relevant code never touches floating point.
func calcFee(amount uint64) uint64 {
	fee := (amount + 99) / 100
	if fee < 1 {
		fee = 1
	}
	return fee
}
