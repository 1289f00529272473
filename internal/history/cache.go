// Package history mirrors the server's per-wallet report ledger so
// previously purchased reports can be restored without paying again.
package history

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/iamsernine/aptoseidon/internal/model"
	"github.com/iamsernine/aptoseidon/internal/pkg/logger"
	"github.com/iamsernine/aptoseidon/internal/pkg/metrics"
)

type Fetcher interface {
	History(ctx context.Context, walletAddress string) ([]model.HistoryItem, error)
}

// Selection is a prior report restored into the active view. Selecting is a
// pure local projection; it never triggers network or payment activity.
type Selection struct {
	PreCheck model.PreCheck
	Report   model.RiskReport
	JobID    string
	HasPaid  bool
}

// Cache is the address-scoped client mirror. The cached sequence is
// replaced wholesale on every refresh and the server's ordering is kept
// as-is. Switching address clears the cache and invalidates any in-flight
// fetch, so a report from wallet A is never shown attributed to wallet B.
type Cache struct {
	fetcher Fetcher
	log     *slog.Logger

	mu      sync.Mutex
	address string
	epoch   uint64
	items   []model.HistoryItem
}

func NewCache(fetcher Fetcher) *Cache {
	return &Cache{
		fetcher: fetcher,
		log:     logger.With("component", "history"),
	}
}

// SetAddress switches the active wallet, clearing the cache before any new
// fetch resolves.
func (c *Cache) SetAddress(address string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.address == address {
		return
	}
	c.address = address
	c.epoch++
	c.items = nil
}

func (c *Cache) Address() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.address
}

// Refresh replaces the cached sequence for address. Fetch failures yield an
// empty sequence rather than an error; history is a convenience view, not
// load-bearing. A refresh that resolves after the address switched is
// discarded wholesale.
func (c *Cache) Refresh(ctx context.Context, address string) []model.HistoryItem {
	c.mu.Lock()
	if c.address != address {
		c.address = address
		c.epoch++
		c.items = nil
	}
	epoch := c.epoch
	c.mu.Unlock()

	items, err := c.fetcher.History(ctx, address)
	if err != nil {
		c.log.Warn("history fetch failed", "address", address, "error", err)
		metrics.HistoryRefreshes.WithLabelValues("error").Inc()
		items = nil
	} else {
		metrics.HistoryRefreshes.WithLabelValues("ok").Inc()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		// Address switched while the fetch was in flight; the result
		// belongs to the old wallet.
		return nil
	}
	c.items = items
	return slices.Clone(c.items)
}

// Items returns the cached sequence in server order.
func (c *Cache) Items() []model.HistoryItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

// Select restores the report of a cached entry into the active view and
// marks it as paid.
func (c *Cache) Select(jobID string) (*Selection, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range c.items {
		if item.JobID == jobID {
			return &Selection{
				PreCheck: item.Report.PreCheck,
				Report:   item.Report.Report,
				JobID:    item.JobID,
				HasPaid:  true,
			}, true
		}
	}
	return nil, false
}
