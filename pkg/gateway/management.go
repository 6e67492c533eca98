package gateway

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tournevent/labelbridge/pkg/shipment"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Management splits mixed-store batches into per-store batches and runs them
// through the store gateways.
type Management struct {
	cache    *Cache
	parallel bool
	logger   *otelzap.Logger
}

// NewManagement creates a dispatcher. With parallel set, store batches run
// concurrently; results keep the store order either way.
func NewManagement(cache *Cache, parallel bool, logger *otelzap.Logger) *Management {
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	return &Management{cache: cache, parallel: parallel, logger: logger}
}

// CreateShipments creates labels for shipments of any number of stores.
// Requests without an index are indexed by their position in reqs, or by the
// next free number when another request already uses that position.
func (m *Management) CreateShipments(ctx context.Context, reqs []*shipment.ShipmentRequest) ([]shipment.Response, error) {
	if len(reqs) == 0 {
		return []shipment.Response{}, nil
	}

	given := make([]string, len(reqs))
	for i, req := range reqs {
		given[i] = req.RequestIndex
	}
	if err := uniqueIndices(given); err != nil {
		return nil, err
	}
	indices := assignIndices(given)

	indexed := make([]*shipment.ShipmentRequest, len(reqs))
	for i, req := range reqs {
		if req.RequestIndex == "" {
			cp := *req
			cp.RequestIndex = indices[i]
			req = &cp
		}
		indexed[i] = req
	}

	stores, batches := partition(indexed, func(r *shipment.ShipmentRequest) int { return r.StoreID })
	return m.dispatch(ctx, "create", stores, func(ctx context.Context, g *Gateway, storeID int) ([]shipment.Response, error) {
		return g.CreateShipments(ctx, batches[storeID])
	})
}

// CancelShipments cancels shipments of any number of stores.
func (m *Management) CancelShipments(ctx context.Context, reqs []*shipment.CancellationRequest) ([]shipment.Response, error) {
	if len(reqs) == 0 {
		return []shipment.Response{}, nil
	}

	given := make([]string, len(reqs))
	for i, req := range reqs {
		given[i] = req.RequestIndex
	}
	if err := uniqueIndices(given); err != nil {
		return nil, err
	}
	indices := assignIndices(given)

	indexed := make([]*shipment.CancellationRequest, len(reqs))
	for i, req := range reqs {
		if req.RequestIndex == "" {
			cp := *req
			cp.RequestIndex = indices[i]
			req = &cp
		}
		indexed[i] = req
	}

	stores, batches := partition(indexed, func(r *shipment.CancellationRequest) int { return r.StoreID })
	return m.dispatch(ctx, "cancel", stores, func(ctx context.Context, g *Gateway, storeID int) ([]shipment.Response, error) {
		return g.CancelShipments(ctx, batches[storeID])
	})
}

type storeRun func(ctx context.Context, g *Gateway, storeID int) ([]shipment.Response, error)

func (m *Management) dispatch(ctx context.Context, operation string, stores []int, run storeRun) ([]shipment.Response, error) {
	results := make([][]shipment.Response, len(stores))

	runStore := func(ctx context.Context, slot, storeID int) error {
		g, err := m.cache.Get(storeID)
		if err != nil {
			return err
		}
		responses, err := run(ctx, g, storeID)
		if err != nil {
			m.logger.Ctx(ctx).Error("Store batch failed",
				zap.String("operation", operation),
				zap.Int("store_id", storeID),
				zap.Error(err),
			)
			return fmt.Errorf("store %d: %w", storeID, err)
		}
		results[slot] = responses
		return nil
	}

	if m.parallel && len(stores) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		for slot, storeID := range stores {
			slot, storeID := slot, storeID
			g.Go(func() error {
				return runStore(gctx, slot, storeID)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for slot, storeID := range stores {
			if err := runStore(ctx, slot, storeID); err != nil {
				return nil, err
			}
		}
	}

	var out []shipment.Response
	for _, responses := range results {
		out = append(out, responses...)
	}
	if out == nil {
		out = []shipment.Response{}
	}
	return out, nil
}

// partition groups requests by store, keeping their relative order. Stores
// are returned in order of first appearance.
func partition[R any](reqs []R, storeOf func(R) int) ([]int, map[int][]R) {
	var stores []int
	batches := make(map[int][]R)
	for _, req := range reqs {
		id := storeOf(req)
		if _, ok := batches[id]; !ok {
			stores = append(stores, id)
		}
		batches[id] = append(batches[id], req)
	}
	return stores, batches
}

// assignIndices fills empty indices with the item position. Positions already
// taken by a given index are replaced by the next free number past the batch.
func assignIndices(given []string) []string {
	taken := make(map[string]struct{}, len(given))
	for _, index := range given {
		if index != "" {
			taken[index] = struct{}{}
		}
	}

	out := make([]string, len(given))
	next := len(given)
	for i, index := range given {
		if index == "" {
			index = strconv.Itoa(i)
			for {
				if _, ok := taken[index]; !ok {
					break
				}
				index = strconv.Itoa(next)
				next++
			}
			taken[index] = struct{}{}
		}
		out[i] = index
	}
	return out
}

// uniqueIndices rejects given indices used twice. Empty indices are ignored.
func uniqueIndices(indices []string) error {
	seen := make(map[string]struct{}, len(indices))
	for _, index := range indices {
		if index == "" {
			continue
		}
		if _, ok := seen[index]; ok {
			return fmt.Errorf("%w: %s", shipment.ErrDuplicateRequestIndex, index)
		}
		seen[index] = struct{}{}
	}
	return nil
}
