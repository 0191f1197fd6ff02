package core

import "sync"

// Mempool is a mutex-guarded FIFO queue of signed transactions awaiting a
// block. The mutex is held for the entire duration of a mine pass (see
// process), not just append/drain, so no transaction can be appended or
// drained mid-mine.
type Mempool struct {
	mu    sync.Mutex
	queue []Transaction
}

func newMempool() *Mempool {
	return &Mempool{}
}

// Add enqueues tx at the back of the pool.
func (mp *Mempool) Add(tx Transaction) {
	mp.mu.Lock()
	mp.queue = append(mp.queue, tx)
	mp.mu.Unlock()
}

// Snapshot returns a copy of the pending queue without draining it.
func (mp *Mempool) Snapshot() []Transaction {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	out := make([]Transaction, len(mp.queue))
	copy(out, mp.queue)
	return out
}

// Len returns the number of pending transactions.
func (mp *Mempool) Len() int {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return len(mp.queue)
}

// process drains the queue and hands it to fn, which partitions it into
// accepted transactions (removed for good) and requeue (returned to the
// front of the pool, in their original relative order). Transactions fn
// drops silently (neither accepted nor requeued; in MineBlock, signature
// failures and unknown senders) are gone forever. The whole pass runs under the mempool lock, so submissions
// arriving mid-pass queue up behind it rather than interleaving.
func (mp *Mempool) process(fn func(pending []Transaction) (accepted, requeue []Transaction)) []Transaction {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	pending := mp.queue
	mp.queue = nil
	accepted, requeue := fn(pending)
	mp.queue = requeue
	return accepted
}
