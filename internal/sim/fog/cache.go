package fog

import "time"

// CellRecord is the built sample set for one cell. Records are replaced
// wholesale on rebuild, never mutated in place.
type CellRecord struct {
	Points  []Vec3
	BuiltAt time.Time
}

// CellCache maps cells to their built records. It never evicts on its own;
// all expiry policy lives in RetentionTracker. Accessed only from the tick
// loop, so no locking.
type CellCache struct {
	records map[CellKey]*CellRecord
}

func NewCellCache() *CellCache {
	return &CellCache{records: make(map[CellKey]*CellRecord)}
}

func (c *CellCache) Get(k CellKey) (*CellRecord, bool) {
	r, ok := c.records[k]
	return r, ok
}

func (c *CellCache) Has(k CellKey) bool {
	_, ok := c.records[k]
	return ok
}

func (c *CellCache) Set(k CellKey, r *CellRecord) {
	c.records[k] = r
}

func (c *CellCache) Delete(k CellKey) {
	delete(c.records, k)
}

func (c *CellCache) Len() int { return len(c.records) }

func (c *CellCache) ForEachKey(fn func(CellKey)) {
	for k := range c.records {
		fn(k)
	}
}
