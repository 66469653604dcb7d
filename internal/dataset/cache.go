package dataset

import "sync"

// Cache memoizes one dataset load for the lifetime of the process. It has no
// key and is never invalidated; the sources are read-only at runtime.
type Cache struct {
	load func() (*Dataset, error)
	once sync.Once
	ds   *Dataset
	err  error
}

// NewCache returns a Cache that will call load at most once.
func NewCache(load func() (*Dataset, error)) *Cache {
	return &Cache{load: load}
}

// Get returns the dataset, loading it on first use. A failed load is cached
// too: a broken source does not get better by retrying.
func (c *Cache) Get() (*Dataset, error) {
	c.once.Do(func() {
		c.ds, c.err = c.load()
	})
	return c.ds, c.err
}
