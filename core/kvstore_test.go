package core

import (
	"path/filepath"
	"testing"
)

func tmpStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStorePutGetRoundTrip(t *testing.T) {
	s := tmpStore(t)
	if err := s.Put([]byte("wallet:alice"), []byte(`{"balance":100}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	v, ok, err := s.Get([]byte("wallet:alice"))
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(v) != `{"balance":100}` {
		t.Fatalf("Get value = %s", v)
	}
	if _, ok, _ := s.Get([]byte("wallet:bob")); ok {
		t.Fatalf("expected missing key to report false")
	}
}

func TestStoreScanPrefixOrdersByZeroPaddedIndex(t *testing.T) {
	s := tmpStore(t)
	for _, i := range []uint64{0, 1, 2, 10} {
		if err := s.Put(blockKey(i), []byte("{}")); err != nil {
			t.Fatalf("Put block %d: %v", i, err)
		}
	}
	pairs, err := s.ScanPrefix([]byte(blockKeyPrefix))
	if err != nil {
		t.Fatalf("ScanPrefix: %v", err)
	}
	if len(pairs) != 4 {
		t.Fatalf("got %d pairs, want 4", len(pairs))
	}
	want := []string{"block:00000000000000000000", "block:00000000000000000001", "block:00000000000000000002", "block:00000000000000000010"}
	for i, w := range want {
		if string(pairs[i].Key) != w {
			t.Fatalf("pairs[%d].Key = %s, want %s", i, pairs[i].Key, w)
		}
	}
}

func TestStoreScanPrefixIsolatesNamespaces(t *testing.T) {
	s := tmpStore(t)
	if err := s.Put(blockKey(0), []byte("{}")); err != nil {
		t.Fatalf("Put block: %v", err)
	}
	if err := s.Put(walletKey("alice"), []byte("{}")); err != nil {
		t.Fatalf("Put wallet: %v", err)
	}
	pairs, err := s.ScanPrefix([]byte(walletKeyPrefix))
	if err != nil {
		t.Fatalf("ScanPrefix: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("got %d wallet pairs, want 1", len(pairs))
	}
}
