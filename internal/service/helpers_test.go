package service

import (
	"context"
	"io"
	"sync"
	"testing"

	"catalog/internal/event"
	"catalog/internal/model"
	"catalog/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// mapCache is an in-process ProductCache that counts hits. Like the redis
// cache, Delete bumps a per-product version that Set must match.
type mapCache struct {
	mu       sync.Mutex
	items    map[uuid.UUID]model.Product
	versions map[uuid.UUID]int64
	hits     int
}

func newMapCache() *mapCache {
	return &mapCache{
		items:    make(map[uuid.UUID]model.Product),
		versions: make(map[uuid.UUID]int64),
	}
}

func (c *mapCache) Get(_ context.Context, id uuid.UUID) (*model.Product, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.items[id]
	if !ok {
		return nil, c.versions[id], nil
	}
	c.hits++
	return &p, c.versions[id], nil
}

func (c *mapCache) Set(_ context.Context, p *model.Product, version int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[p.ID] != version {
		return
	}
	c.items[p.ID] = *p
}

func (c *mapCache) Delete(_ context.Context, ids ...uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.items, id)
		c.versions[id]++
	}
}

type fixture struct {
	store     *memory.Store
	products  ProductService
	approvals ApprovalService
	events    *recordingPublisher
	cache     *mapCache
}

func newFixture(t *testing.T, rejectRevertsToActive bool) *fixture {
	t.Helper()

	store := memory.NewStore()
	events := &recordingPublisher{}
	cache := newMapCache()
	log := testLogger()

	return &fixture{
		store: store,
		products: NewProductService(store.Products(), store.Approvals(), store.TxManager(),
			DefaultApprovalPolicy(), cache, events, nil, log),
		approvals: NewApprovalService(store.Products(), store.Approvals(), store.TxManager(),
			cache, events, nil, log, rejectRevertsToActive),
		events: events,
		cache:  cache,
	}
}

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func strPtr(s string) *string {
	return &s
}
