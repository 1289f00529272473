package repository

import (
	"context"
	"sync"
)

// ReceiptStore records settled payment hashes keyed by wallet, recipient
// and amount. A retried attempt for the same challenge reuses the recorded
// hash instead of paying a second time.
type ReceiptStore interface {
	Get(ctx context.Context, walletAddress, recipient, amount string) (string, bool)
	Put(ctx context.Context, walletAddress, recipient, amount, txHash string) error
}

// MemReceiptStore is the fallback when redis is not configured. Receipts
// then live only as long as the process.
type MemReceiptStore struct {
	mu       sync.Mutex
	receipts map[string]string
}

func NewMemReceiptStore() *MemReceiptStore {
	return &MemReceiptStore{receipts: make(map[string]string)}
}

func (s *MemReceiptStore) Get(_ context.Context, walletAddress, recipient, amount string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash, ok := s.receipts[receiptKey(walletAddress, recipient, amount)]
	return hash, ok
}

func (s *MemReceiptStore) Put(_ context.Context, walletAddress, recipient, amount, txHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := receiptKey(walletAddress, recipient, amount)
	if _, exists := s.receipts[key]; !exists {
		s.receipts[key] = txHash
	}
	return nil
}

func receiptKey(walletAddress, recipient, amount string) string {
	return "receipt:" + walletAddress + ":" + recipient + ":" + amount
}
