// Package memory holds in-memory implementations of the repository interfaces
// for local development and tests.
package memory

import (
	"context"
	"sync"

	"catalog/internal/model"
	"catalog/internal/repository"

	"github.com/google/uuid"
)

type txKey struct{}

// Store backs both repositories. Transactions are serialized by txMu and
// rolled back by restoring a snapshot taken when they started. Calls made
// outside a transaction also take txMu, so they never see uncommitted writes.
type Store struct {
	txMu sync.Mutex

	mu        sync.RWMutex
	products  map[uuid.UUID]model.Product
	approvals map[uuid.UUID]model.ApprovalRequest
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		products:  make(map[uuid.UUID]model.Product),
		approvals: make(map[uuid.UUID]model.ApprovalRequest),
	}
}

// Products returns a ProductRepository over the store.
func (s *Store) Products() repository.ProductRepository {
	return &productRepositoryInMemory{store: s}
}

// Approvals returns an ApprovalRepository over the store.
func (s *Store) Approvals() repository.ApprovalRepository {
	return &approvalRepositoryInMemory{store: s}
}

// TxManager returns a TransactionManager over the store.
func (s *Store) TxManager() repository.TransactionManager {
	return &transactionManagerInMemory{store: s}
}

// lockOutsideTx holds txMu for the duration of a call made outside RunInTx.
// Inside a transaction the lock is already held.
func (s *Store) lockOutsideTx(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		return func() {}
	}
	s.txMu.Lock()
	return s.txMu.Unlock
}

type snapshot struct {
	products  map[uuid.UUID]model.Product
	approvals map[uuid.UUID]model.ApprovalRequest
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshot{
		products:  make(map[uuid.UUID]model.Product, len(s.products)),
		approvals: make(map[uuid.UUID]model.ApprovalRequest, len(s.approvals)),
	}
	for k, v := range s.products {
		snap.products[k] = v
	}
	for k, v := range s.approvals {
		snap.approvals[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = snap.products
	s.approvals = snap.approvals
}

type transactionManagerInMemory struct {
	store *Store
}

func (t *transactionManagerInMemory) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	t.store.txMu.Lock()
	defer t.store.txMu.Unlock()

	snap := t.store.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

var _ repository.TransactionManager = (*transactionManagerInMemory)(nil)
