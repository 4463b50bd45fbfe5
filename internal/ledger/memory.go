package ledger

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// MemoryStore is an in-memory Store implementation, safe for concurrent
// use. It backs tests and ephemeral runs; for persistence use SQLiteStore.
type MemoryStore struct {
	mu       sync.RWMutex
	txs      map[string]domain.Transaction
	balances map[string]domain.AssetBalance
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		txs:      make(map[string]domain.Transaction),
		balances: make(map[string]domain.AssetBalance),
		now:      time.Now,
	}
}

func (s *MemoryStore) CreateTransaction(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx.ID = uuid.New().String()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now().UTC()
	}
	s.txs[tx.ID] = tx
	return tx, nil
}

func (s *MemoryStore) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.txs[id]
	if !ok {
		return domain.Transaction{}, domain.ErrNotFound
	}
	return tx, nil
}

func (s *MemoryStore) ListTransactions(ctx context.Context, f Filter) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Transaction
	for _, tx := range s.txs {
		if matches(tx, f) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.txs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.txs, id)
	return nil
}

func (s *MemoryStore) UpsertBalance(ctx context.Context, b domain.AssetBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = s.now().UTC()
	}
	s.balances[b.AccountName] = b
	return nil
}

func (s *MemoryStore) ListBalances(ctx context.Context) ([]domain.AssetBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.AssetBalance, 0, len(s.balances))
	for _, b := range s.balances {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountName < out[j].AccountName })
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

func matches(tx domain.Transaction, f Filter) bool {
	if !f.From.IsZero() && tx.OccurredOn.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && tx.OccurredOn.After(f.To) {
		return false
	}
	if f.Kind != "" && tx.Kind != f.Kind {
		return false
	}
	if f.Category != "" && !strings.Contains(strings.ToLower(tx.Category), strings.ToLower(f.Category)) {
		return false
	}
	return true
}
