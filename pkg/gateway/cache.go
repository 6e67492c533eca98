package gateway

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/tournevent/labelbridge/pkg/carrier"
	"github.com/tournevent/labelbridge/pkg/shipment"
	"golang.org/x/sync/singleflight"
)

// BuildFunc creates the gateway of a store.
type BuildFunc func(storeID int) (*Gateway, error)

// NewBuildFunc resolves store settings and creates gateways sharing factory
// and options.
func NewBuildFunc(settings shipment.SettingsProvider, factory carrier.Factory, opts Options) BuildFunc {
	return func(storeID int) (*Gateway, error) {
		s, err := settings.StoreSettings(storeID)
		if err != nil {
			return nil, fmt.Errorf("store %d: %w", storeID, err)
		}
		s.StoreID = storeID
		return New(s, factory, opts), nil
	}
}

// Cache holds one gateway per store.
type Cache struct {
	build    BuildFunc
	gateways map[int]*Gateway
	mu       sync.RWMutex

	// Concurrent first requests for one store share a single construction.
	sf singleflight.Group
}

// NewCache creates an empty gateway cache.
func NewCache(build BuildFunc) *Cache {
	return &Cache{
		build:    build,
		gateways: make(map[int]*Gateway),
	}
}

// Get returns the gateway of a store, creating it on first use.
func (c *Cache) Get(storeID int) (*Gateway, error) {
	c.mu.RLock()
	g, ok := c.gateways[storeID]
	c.mu.RUnlock()
	if ok {
		return g, nil
	}

	v, err, _ := c.sf.Do(strconv.Itoa(storeID), func() (interface{}, error) {
		c.mu.RLock()
		g, ok := c.gateways[storeID]
		c.mu.RUnlock()
		if ok {
			return g, nil
		}

		g, err := c.build(storeID)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.gateways[storeID] = g
		c.mu.Unlock()
		return g, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Gateway), nil
}

// StoreIDs returns the ids of all cached stores in ascending order.
func (c *Cache) StoreIDs() []int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]int, 0, len(c.gateways))
	for id := range c.gateways {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Count returns the number of cached gateways.
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.gateways)
}
